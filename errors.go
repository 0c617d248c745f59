package saltchannel

import "errors"

// ErrNoConfigProvided is returned by NewClientSession/NewServerSession
// when config is nil.
var ErrNoConfigProvided = errors.New("saltchannel: no config provided")

// ErrMissingSigningKeyPair is returned when Config.SigningKeyPair.Public
// is not a 32-byte Ed25519 public key (for example, when the key pair
// was never set). The secret key is not checked.
var ErrMissingSigningKeyPair = errors.New("saltchannel: config is missing a signing key pair")

// ErrBadExpectedServerSigKey is returned when
// Config.ExpectedServerSigKey is set but is not 32 bytes.
var ErrBadExpectedServerSigKey = errors.New("saltchannel: ExpectedServerSigKey must be 32 bytes")

// ErrNoSuchServer is returned by ClientSession.Handshake when the
// server rejects the requested ExpectedServerSigKey, and by
// ServerSession.Handshake when it issues that rejection itself.
var ErrNoSuchServer = errors.New("saltchannel: no such server")

// ErrSessionClosed is returned by a session's Handshake if it has
// already been used once; sessions are single-use.
var ErrSessionClosed = errors.New("saltchannel: session already used")

// ErrDiscoveryCompleted is returned by ServerSession.Handshake when
// the first message it read was A1: the A1/A2 exchange ran to
// completion and the session terminates without an application
// channel.
var ErrDiscoveryCompleted = errors.New("saltchannel: served A1/A2 discovery, no handshake performed")
