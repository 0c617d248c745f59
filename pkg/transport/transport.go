// Package transport defines the external collaborator: a
// message-oriented, reliable, ordered, two-way channel. The core never
// interprets transport bytes beyond framing; it only calls Read and
// Write.
package transport

import "context"

// Transport is the two-way message channel the core sessions and
// channels are built on. Read returns the next whole message; Write
// delivers one or more messages to the peer as a single batched
// operation, so the peer observes each as one Transport.Read call —
// this is what lets the server send M2+M3 (or the client M4+app data)
// in one write as a buffering optimisation.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, msgs ...[]byte) error
}
