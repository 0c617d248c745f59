package channel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/handshake"
	"github.com/saltchannel/saltchannel-go/pkg/timeutil"
	"github.com/saltchannel/saltchannel-go/pkg/transport"
)

func newAppChannelPair(t *testing.T) (*AppChannel, *AppChannel) {
	t.Helper()
	key := sharedTestKey(t)
	clientT, serverT := transport.Pipe()
	clientEnc := NewEncryptedChannel(clientT, key, RoleClient, protocol.Options{}, nil)
	serverEnc := NewEncryptedChannel(serverT, key, RoleServer, protocol.Options{}, nil)
	client := NewAppChannel(clientEnc, timeutil.NewSequentialTimeKeeper(), timeutil.SequentialTimeChecker{}, protocol.Options{})
	server := NewAppChannel(serverEnc, timeutil.NewSequentialTimeKeeper(), timeutil.SequentialTimeChecker{}, protocol.Options{})
	return client, server
}

func TestAppChannelSingleMessageRoundTrip(t *testing.T) {
	client, server := newAppChannelPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- client.Write(ctx, false, []byte("hello")) }()

	got, err := server.Read(ctx)
	if err != nil {
		t.Fatalf("server.Read: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("client.Write: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}
}

func TestAppChannelMultiMessageDemux(t *testing.T) {
	client, server := newAppChannelPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	done := make(chan error, 1)
	go func() { done <- client.Write(ctx, true, msgs...) }()

	for _, want := range msgs {
		got, err := server.Read(ctx)
		if err != nil {
			t.Fatalf("server.Read: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("client.Write: %v", err)
	}
	if !server.Last() {
		t.Fatal("server did not observe LastFlag after draining the MultiAppPacket")
	}
}

func TestAppChannelBufferedM4Piggyback(t *testing.T) {
	client, server := newAppChannelPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m4 := &handshake.M4{ClientSigKey: [32]byte{1, 2, 3}}
	client.SetBufferedM4(m4)

	done := make(chan error, 1)
	go func() { done <- client.Write(ctx, false, []byte("payload")) }()

	// The server's encrypted channel sees two records: the piggybacked
	// M4 first, then the AppPacket.
	m4Bytes, err := server.enc.Read(ctx)
	if err != nil {
		t.Fatalf("reading piggybacked M4: %v", err)
	}
	var gotM4 handshake.M4
	if err := gotM4.Unmarshal(m4Bytes, protocol.Options{}); err != nil {
		t.Fatalf("decoding piggybacked M4: %v", err)
	}
	if gotM4.ClientSigKey != m4.ClientSigKey {
		t.Fatalf("ClientSigKey = %x, want %x", gotM4.ClientSigKey, m4.ClientSigKey)
	}

	appMsg, err := server.Read(ctx)
	if err != nil {
		t.Fatalf("server.Read: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("client.Write: %v", err)
	}
	if !bytes.Equal(appMsg, []byte("payload")) {
		t.Fatalf("appMsg = %q", appMsg)
	}
}

func TestAppChannelRejectsUnexpectedPacketType(t *testing.T) {
	client, server := newAppChannelPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		m1 := &handshake.M1{ClientEncKey: [32]byte{1}}
		encoded, err := m1.Marshal()
		if err != nil {
			done <- err
			return
		}
		done <- client.enc.Write(ctx, false, encoded)
	}()

	if _, err := server.Read(ctx); err == nil {
		t.Fatal("expected error reading an M1 through the app channel")
	}
	<-done
}

