// Command saltecho is a minimal Salt Channel v2 echo client/server,
// the demo driver for the saltchannel-go module: it establishes a
// handshake over a TCP StreamTransport and echoes every application
// message it receives back to the sender.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	saltchannel "github.com/saltchannel/saltchannel-go"
	"github.com/saltchannel/saltchannel-go/channel"
	"github.com/saltchannel/saltchannel-go/internal/zlogadapter"
	"github.com/saltchannel/saltchannel-go/pkg/cryptoutil"
	"github.com/saltchannel/saltchannel-go/pkg/transport"
)

var rootCmd = &cobra.Command{
	Use:   "saltecho",
	Short: "Salt Channel v2 echo demo client/server",
}

var (
	flagAddr       string
	flagSigSeedHex string
	flagPeerSigHex string
	flagBufferM2   bool
	flagBufferM4   bool
	flagStrict     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "accept one handshake and echo application messages until the connection ends",
	RunE:  runServe,
}

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "connect, handshake, and echo lines typed on stdin",
	RunE:  runDial,
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "print a freshly generated signing key pair as hex",
	RunE:  runKeygen,
}

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "run a client and server in one process over an in-memory PipeTransport",
	RunE:  runLoopback,
}

func init() {
	for _, cmd := range []*cobra.Command{serveCmd, dialCmd} {
		flags := cmd.Flags()
		flags.StringVar(&flagAddr, "addr", "127.0.0.1:4242", "TCP address to listen on or dial")
		flags.StringVar(&flagSigSeedHex, "sig-seed", "", "hex-encoded 32-byte Ed25519 seed (random if empty)")
		flags.BoolVar(&flagStrict, "strict", false, "reject non-zero reserved bits on ingress")
	}
	serveCmd.Flags().BoolVar(&flagBufferM2, "buffer-m2", false, "batch M2 and M3 into a single write")
	dialCmd.Flags().BoolVar(&flagBufferM4, "buffer-m4", false, "piggyback M4 on the first application write")
	dialCmd.Flags().StringVar(&flagPeerSigHex, "expect-server-key", "", "hex-encoded 32-byte signing key the server must present")

	loopbackCmd.Flags().BoolVar(&flagStrict, "strict", false, "reject non-zero reserved bits on ingress")
	loopbackCmd.Flags().BoolVar(&flagBufferM2, "buffer-m2", false, "batch M2 and M3 into a single write")
	loopbackCmd.Flags().BoolVar(&flagBufferM4, "buffer-m4", false, "piggyback M4 on the first application write")

	rootCmd.AddCommand(serveCmd, dialCmd, keygenCmd, loopbackCmd)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("saltecho")
	}
}

func loadOrGenerateSigningKeyPair(seedHex string) (cryptoutil.SigningKeyPair, error) {
	if seedHex == "" {
		return cryptoutil.GenerateSigningKeyPair()
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return cryptoutil.SigningKeyPair{}, fmt.Errorf("decoding --sig-seed: %w", err)
	}
	return cryptoutil.SigningKeyPairFromSeed(seed)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	pair, err := cryptoutil.GenerateSigningKeyPair()
	if err != nil {
		return err
	}
	fmt.Printf("seed:   %x\n", pair.Secret.Seed())
	fmt.Printf("public: %x\n", pair.Public)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sigKeys, err := loadOrGenerateSigningKeyPair(flagSigSeedHex)
	if err != nil {
		return err
	}
	log.Info().Str("public_key", hex.EncodeToString(sigKeys.Public)).Msg("server identity")

	ln, err := net.Listen("tcp", flagAddr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	factory := zlogadapter.NewFactory(log.Logger)
	config := &saltchannel.Config{
		SigningKeyPair: sigKeys,
		LoggerFactory:  factory,
		StrictMode:     flagStrict,
		BufferM2:       flagBufferM2,
	}

	t := transport.NewStreamTransport(conn)
	session, err := saltchannel.NewServerSession(t, config)
	if err != nil {
		return err
	}
	app, err := session.Handshake(ctx)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	log.Info().Msg("handshake complete, echoing application messages")

	for {
		msg, err := app.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		log.Debug().Int("bytes", len(msg)).Msg("echoing message")
		if err := app.Write(ctx, app.Last(), msg); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		if app.Last() {
			return nil
		}
	}
}

func runDial(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sigKeys, err := loadOrGenerateSigningKeyPair(flagSigSeedHex)
	if err != nil {
		return err
	}

	conn, err := net.Dial("tcp", flagAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	factory := zlogadapter.NewFactory(log.Logger)
	config := &saltchannel.Config{
		SigningKeyPair: sigKeys,
		LoggerFactory:  factory,
		StrictMode:     flagStrict,
		BufferM4:       flagBufferM4,
	}
	if flagPeerSigHex != "" {
		expected, err := hex.DecodeString(flagPeerSigHex)
		if err != nil {
			return fmt.Errorf("decoding --expect-server-key: %w", err)
		}
		config.ExpectedServerSigKey = expected
	}

	t := transport.NewStreamTransport(conn)
	session, err := saltchannel.NewClientSession(t, config)
	if err != nil {
		return err
	}
	app, err := session.Handshake(ctx)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	log.Info().Msg("handshake complete, type lines to echo")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		if err := app.Write(ctx, false, append([]byte(nil), line...)); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		reply, err := app.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("echo: %s\n", reply)
	}
	return scanner.Err()
}

// runLoopback runs a client and server session in one process over a
// pair of PipeTransport ends, handshaking and echoing a handful of
// messages with no network involved.
func runLoopback(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverSigKeys, err := cryptoutil.GenerateSigningKeyPair()
	if err != nil {
		return err
	}
	clientSigKeys, err := cryptoutil.GenerateSigningKeyPair()
	if err != nil {
		return err
	}

	clientT, serverT := transport.Pipe()
	factory := zlogadapter.NewFactory(log.Logger)

	serverConfig := &saltchannel.Config{
		SigningKeyPair: serverSigKeys,
		LoggerFactory:  factory,
		StrictMode:     flagStrict,
		BufferM2:       flagBufferM2,
	}
	clientConfig := &saltchannel.Config{
		SigningKeyPair: clientSigKeys,
		LoggerFactory:  factory,
		StrictMode:     flagStrict,
		BufferM4:       flagBufferM4,
	}

	serverSession, err := saltchannel.NewServerSession(serverT, serverConfig)
	if err != nil {
		return err
	}
	clientSession, err := saltchannel.NewClientSession(clientT, clientConfig)
	if err != nil {
		return err
	}

	type serverResult struct {
		app *channel.AppChannel
		err error
	}
	serverDone := make(chan serverResult, 1)
	go func() {
		app, err := serverSession.Handshake(ctx)
		serverDone <- serverResult{app, err}
	}()

	clientApp, err := clientSession.Handshake(ctx)
	if err != nil {
		return fmt.Errorf("client handshake: %w", err)
	}
	result := <-serverDone
	if result.err != nil {
		return fmt.Errorf("server handshake: %w", result.err)
	}
	serverApp := result.app
	log.Info().Msg("loopback handshake complete")

	messages := [][]byte{[]byte("hello"), []byte("salt channel"), []byte("loopback")}

	// The server ends the session: its echo of the final message carries
	// LastFlag. The client never writes LastFlag, since a channel that has
	// written one is closed and could not read the reply.
	echoDone := make(chan error, 1)
	go func() {
		for i := range messages {
			msg, err := serverApp.Read(ctx)
			if err != nil {
				echoDone <- err
				return
			}
			if err := serverApp.Write(ctx, i == len(messages)-1, msg); err != nil {
				echoDone <- err
				return
			}
		}
		echoDone <- nil
	}()

	for _, msg := range messages {
		if err := clientApp.Write(ctx, false, msg); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		reply, err := clientApp.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("echo: %s\n", reply)
	}
	return <-echoDone
}
