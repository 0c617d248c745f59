package saltchannel

import (
	"github.com/pion/logging"

	"github.com/saltchannel/saltchannel-go/pkg/cryptoutil"
	"github.com/saltchannel/saltchannel-go/pkg/timeutil"
)

// Config configures a ClientSession or ServerSession. SigningKeyPair
// must be set; every other field's zero value is usable: timing is
// disabled (timeutil.NullTimeKeeper/NullTimeChecker), strict mode is
// off, and neither M2 nor M4 batching is requested.
type Config struct {
	// SigningKeyPair is this session's own long-term identity. Required.
	SigningKeyPair cryptoutil.SigningKeyPair

	// TimeKeeper stamps outgoing packets. Defaults to timeutil.NullTimeKeeper{}.
	TimeKeeper timeutil.TimeKeeper
	// TimeChecker validates the peer's reported timestamps. Defaults to
	// timeutil.NullTimeChecker{}.
	TimeChecker timeutil.TimeChecker

	// LoggerFactory builds the logging.LeveledLogger handed to the
	// encrypted channel. Defaults to logging.NewDefaultLoggerFactory(),
	// mirroring the teacher's fallback.
	LoggerFactory logging.LoggerFactory

	// StrictMode rejects non-zero reserved bits on ingress instead of
	// ignoring them. See protocol.Options.Strict.
	StrictMode bool

	// BufferM2, on the server, defers writing M2 until M3 is ready so
	// both go out in a single transport write.
	BufferM2 bool
	// BufferM4, on the client, defers writing M4 until the caller's
	// first application write, sending it as its own record in that
	// same transport write.
	BufferM4 bool

	// ExpectedServerSigKey, if set, is sent in M1 as the target server
	// signing key (client-only); a server whose own key differs
	// responds with NoSuchServer.
	ExpectedServerSigKey []byte
}

func (c *Config) timeKeeper() timeutil.TimeKeeper {
	if c.TimeKeeper != nil {
		return c.TimeKeeper
	}
	return timeutil.NullTimeKeeper{}
}

func (c *Config) timeChecker() timeutil.TimeChecker {
	if c.TimeChecker != nil {
		return c.TimeChecker
	}
	return timeutil.NullTimeChecker{}
}

func (c *Config) logger() logging.LeveledLogger {
	factory := c.LoggerFactory
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	return factory.NewLogger("saltchannel")
}

// validateConfig checks the invariants every session needs regardless
// of role.
func validateConfig(c *Config) error {
	if c == nil {
		return ErrNoConfigProvided
	}
	if len(c.SigningKeyPair.Public) != cryptoutil.SigningPublicKeySize {
		return ErrMissingSigningKeyPair
	}
	if c.ExpectedServerSigKey != nil && len(c.ExpectedServerSigKey) != cryptoutil.SigningPublicKeySize {
		return ErrBadExpectedServerSigKey
	}
	return nil
}
