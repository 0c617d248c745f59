package saltchannel

import (
	"context"
	"sync/atomic"

	"github.com/saltchannel/saltchannel-go/channel"
	"github.com/saltchannel/saltchannel-go/pkg/cryptoutil"
	"github.com/saltchannel/saltchannel-go/pkg/protocol"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/handshake"
	"github.com/saltchannel/saltchannel-go/pkg/transport"
)

// ClientSession runs the client side of a Salt Channel v2 handshake
// over a single transport. A ClientSession is single-use: call
// Handshake exactly once.
type ClientSession struct {
	transport transport.Transport
	config    *Config
	used      atomic.Bool
}

// NewClientSession constructs a ClientSession bound to t, validating
// config per the rules validateConfig enforces.
func NewClientSession(t transport.Transport, config *Config) (*ClientSession, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &ClientSession{transport: t, config: config}, nil
}

// Handshake runs M1→M2→M3→M4 and returns the live application channel
// on success.
func (s *ClientSession) Handshake(ctx context.Context) (*channel.AppChannel, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionClosed
	}

	opts := protocol.Options{Strict: s.config.StrictMode}
	timeKeeper := s.config.timeKeeper()
	timeChecker := s.config.timeChecker()
	log := s.config.logger()

	eph, err := cryptoutil.GenerateBoxKeyPair()
	if err != nil {
		return nil, err
	}
	defer cryptoutil.Zero(eph.Secret[:])

	m1 := &handshake.M1{
		Time:         timeKeeper.First(),
		ClientEncKey: eph.Public,
	}
	if s.config.ExpectedServerSigKey != nil {
		m1.ServerSigKeyIncluded = true
		copy(m1.ServerSigKey[:], s.config.ExpectedServerSigKey)
	}
	m1Bytes, err := m1.Marshal()
	if err != nil {
		return nil, err
	}
	if err := s.transport.Write(ctx, m1Bytes); err != nil {
		return nil, err
	}
	m1Hash := cryptoutil.SHA512(m1Bytes)

	m2Bytes, err := s.transport.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(m2Bytes) < 1 {
		return nil, protocol.NewBadPeer("empty reply to M1")
	}
	if protocol.Type(m2Bytes[0]) == protocol.TypeA2 {
		return nil, protocol.NewBadPeer("server replied with A2, not M2, to a handshake attempt")
	}
	var m2 handshake.M2
	if err := m2.Unmarshal(m2Bytes, opts); err != nil {
		return nil, err
	}
	m2Hash := cryptoutil.SHA512(m2Bytes)
	if err := timeChecker.ReportFirst(m2.Time); err != nil {
		return nil, err
	}
	if m2.NoSuchServer {
		return nil, ErrNoSuchServer
	}

	sharedKey := cryptoutil.BoxBeforeNM(&m2.ServerEncKey, &eph.Secret)
	defer cryptoutil.Zero(sharedKey[:])

	enc := channel.NewEncryptedChannel(s.transport, sharedKey, channel.RoleClient, opts, log)

	m3Bytes, err := enc.Read(ctx)
	if err != nil {
		return nil, err
	}
	var m3 handshake.M3
	if err := m3.Unmarshal(m3Bytes, opts); err != nil {
		return nil, err
	}
	if err := timeChecker.Check(m3.Time); err != nil {
		return nil, err
	}
	sig1Message := signatureTranscript(handshake.SIG1Prefix, m1Hash, m2Hash)
	sig1 := m3.Signature1
	if err := cryptoutil.SignOpen(sig1Message, sig1[:], m3.ServerSigKey[:]); err != nil {
		return nil, protocol.NewBadPeer("invalid signature")
	}

	app := channel.NewAppChannel(enc, timeKeeper, timeChecker, opts)

	m4 := &handshake.M4{
		Time:         timeKeeper.Now(),
		ClientSigKey: [32]byte(s.config.SigningKeyPair.Public),
	}
	sig2Message := signatureTranscript(handshake.SIG2Prefix, m1Hash, m2Hash)
	copy(m4.Signature2[:], cryptoutil.Sign(sig2Message, s.config.SigningKeyPair.Secret)[len(sig2Message):])

	if s.config.BufferM4 {
		app.SetBufferedM4(m4)
	} else {
		encoded, err := m4.Marshal()
		if err != nil {
			return nil, err
		}
		if err := enc.Write(ctx, false, encoded); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// signatureTranscript builds prefix||m1Hash||m2Hash, the bytes both
// Signature1 and Signature2 sign.
func signatureTranscript(prefix [8]byte, m1Hash, m2Hash [cryptoutil.HashSize]byte) []byte {
	out := make([]byte, 0, 8+len(m1Hash)+len(m2Hash))
	out = append(out, prefix[:]...)
	out = append(out, m1Hash[:]...)
	out = append(out, m2Hash[:]...)
	return out
}
