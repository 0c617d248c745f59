package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrPipeClosed is returned by a PipeTransport end after it or its
// peer has been closed.
var ErrPipeClosed = errors.New("transport: pipe closed")

// PipeTransport is an in-memory, unbuffered two-way Transport, used by
// the session test suite and by cmd/saltecho's loopback mode.
type PipeTransport struct {
	out chan<- []byte
	in  <-chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// Pipe returns two PipeTransport ends wired to each other: messages
// written on one are read on the other, in order.
func Pipe() (a, b *PipeTransport) {
	ab := make(chan []byte)
	ba := make(chan []byte)
	a = &PipeTransport{out: ab, in: ba, closed: make(chan struct{})}
	b = &PipeTransport{out: ba, in: ab, closed: make(chan struct{})}
	return a, b
}

// Read returns the next message written by the peer.
func (p *PipeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, ErrPipeClosed
	case msg, ok := <-p.in:
		if !ok {
			return nil, ErrPipeClosed
		}
		return msg, nil
	}
}

// Write delivers msgs to the peer in order. Each message is a
// separate send on the underlying channel, so the peer observes each
// with its own Read call, even though no batching is possible over an
// unbuffered channel.
func (p *PipeTransport) Write(ctx context.Context, msgs ...[]byte) error {
	for _, m := range msgs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.closed:
			return ErrPipeClosed
		case p.out <- m:
		}
	}
	return nil
}

// Close marks this end closed. Safe to call more than once.
func (p *PipeTransport) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
