// Package closer provides a one-shot close signal for channels that must
// poison themselves after the first terminal event. It is used by
// channel.EncryptedChannel; the session types use their own atomic flag.
package closer

import "sync"

// Closer is a thread-safe, idempotent close signal. Close may be called
// any number of times from any number of goroutines; Done's channel is
// closed exactly once, on the first call.
type Closer struct {
	once sync.Once
	done chan struct{}
}

// NewCloser returns a ready-to-use Closer.
func NewCloser() *Closer {
	return &Closer{done: make(chan struct{})}
}

// Close signals Done. Safe to call more than once.
func (c *Closer) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done returns a channel that is closed once Close has been called.
func (c *Closer) Done() <-chan struct{} {
	return c.done
}

// IsClosed reports whether Close has already been called.
func (c *Closer) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
