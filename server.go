package saltchannel

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/saltchannel/saltchannel-go/channel"
	"github.com/saltchannel/saltchannel-go/pkg/cryptoutil"
	"github.com/saltchannel/saltchannel-go/pkg/protocol"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/a1a2"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/handshake"
	"github.com/saltchannel/saltchannel-go/pkg/transport"
)

// ServerSession runs the server side of a Salt Channel v2 handshake,
// including the A1/A2 discovery branch, over a single transport. A
// ServerSession is single-use: call Handshake exactly once.
type ServerSession struct {
	transport transport.Transport
	config    *Config
	used      atomic.Bool
}

// NewServerSession constructs a ServerSession bound to t.
func NewServerSession(t transport.Transport, config *Config) (*ServerSession, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &ServerSession{transport: t, config: config}, nil
}

// Handshake reads the first message and either serves A1/A2 discovery
// (returning ErrDiscoveryCompleted) or runs M1→M2→M3→M4 and returns
// the live application channel.
func (s *ServerSession) Handshake(ctx context.Context) (*channel.AppChannel, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionClosed
	}

	opts := protocol.Options{Strict: s.config.StrictMode}
	timeKeeper := s.config.timeKeeper()
	timeChecker := s.config.timeChecker()
	log := s.config.logger()

	first, err := s.transport.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(first) < 1 {
		return nil, protocol.NewBadPeer("empty opening message")
	}

	if protocol.Type(first[0]) == protocol.TypeA1 {
		return nil, s.serveDiscovery(ctx, first, opts)
	}

	var m1 handshake.M1
	if err := m1.Unmarshal(first, opts); err != nil {
		return nil, err
	}
	if err := timeChecker.ReportFirst(m1.Time); err != nil {
		return nil, err
	}
	m1Hash := cryptoutil.SHA512(first)

	ourPub := [32]byte(s.config.SigningKeyPair.Public)
	if m1.ServerSigKeyIncluded && !bytes.Equal(m1.ServerSigKey[:], ourPub[:]) {
		reject := &handshake.M2{NoSuchServer: true, LastFlag: true}
		encoded, err := reject.Marshal()
		if err != nil {
			return nil, err
		}
		if err := s.transport.Write(ctx, encoded); err != nil {
			return nil, err
		}
		return nil, ErrNoSuchServer
	}

	eph, err := cryptoutil.GenerateBoxKeyPair()
	if err != nil {
		return nil, err
	}
	defer cryptoutil.Zero(eph.Secret[:])

	m2 := &handshake.M2{ServerEncKey: eph.Public}
	var m2Bytes []byte
	var m2Hash [cryptoutil.HashSize]byte
	var m3Time uint32

	if !s.config.BufferM2 {
		m2.Time = timeKeeper.First()
		m2Bytes, err = m2.Marshal()
		if err != nil {
			return nil, err
		}
		if err := s.transport.Write(ctx, m2Bytes); err != nil {
			return nil, err
		}
		m2Hash = cryptoutil.SHA512(m2Bytes)
		m3Time = timeKeeper.Now()
	} else {
		m3Time = timeKeeper.First()
		m2.Time = m3Time
		m2Bytes, err = m2.Marshal()
		if err != nil {
			return nil, err
		}
		m2Hash = cryptoutil.SHA512(m2Bytes)
	}

	sharedKey := cryptoutil.BoxBeforeNM(&m1.ClientEncKey, &eph.Secret)
	defer cryptoutil.Zero(sharedKey[:])

	enc := channel.NewEncryptedChannel(s.transport, sharedKey, channel.RoleServer, opts, log)

	m3 := &handshake.M3{
		Time:         m3Time,
		ServerSigKey: ourPub,
	}
	sig1Message := signatureTranscript(handshake.SIG1Prefix, m1Hash, m2Hash)
	copy(m3.Signature1[:], cryptoutil.Sign(sig1Message, s.config.SigningKeyPair.Secret)[len(sig1Message):])
	m3Bytes, err := m3.Marshal()
	if err != nil {
		return nil, err
	}

	if s.config.BufferM2 {
		sealed, err := enc.Seal(m3Bytes)
		if err != nil {
			return nil, err
		}
		if err := s.transport.Write(ctx, m2Bytes, sealed); err != nil {
			return nil, err
		}
	} else {
		if err := enc.Write(ctx, false, m3Bytes); err != nil {
			return nil, err
		}
	}

	m4Bytes, err := enc.Read(ctx)
	if err != nil {
		return nil, err
	}
	var m4 handshake.M4
	if err := m4.Unmarshal(m4Bytes, opts); err != nil {
		return nil, err
	}
	if err := timeChecker.Check(m4.Time); err != nil {
		return nil, err
	}
	sig2Message := signatureTranscript(handshake.SIG2Prefix, m1Hash, m2Hash)
	sig2 := m4.Signature2
	if err := cryptoutil.SignOpen(sig2Message, sig2[:], m4.ClientSigKey[:]); err != nil {
		return nil, protocol.NewBadPeer("invalid signature")
	}

	return channel.NewAppChannel(enc, timeKeeper, timeChecker, opts), nil
}

// serveDiscovery answers an A1 with an A2 and terminates the session.
func (s *ServerSession) serveDiscovery(ctx context.Context, raw []byte, opts protocol.Options) error {
	var a1 a1a2.A1
	if err := a1.Unmarshal(raw, opts); err != nil {
		return err
	}

	a2 := &a1a2.A2{}
	if a1.AddressType == a1a2.AddressTypePubkey && !bytes.Equal(a1.Address, s.config.SigningKeyPair.Public) {
		a2.NoSuchServer = true
	} else {
		a2.Prot = []a1a2.Prot{a1a2.DefaultProt()}
	}

	encoded, err := a2.Marshal()
	if err != nil {
		return err
	}
	if err := s.transport.Write(ctx, encoded); err != nil {
		return err
	}
	return ErrDiscoveryCompleted
}
