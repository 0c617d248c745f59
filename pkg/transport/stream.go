package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	pideadline "github.com/pion/transport/v3/deadline"
)

// lengthPrefixSize is the size of the little-endian 32-bit length
// prefix used to frame messages on a byte stream.
const lengthPrefixSize = 4

// MaxMessageSize bounds the length prefix a StreamTransport will
// accept, guarding against a peer claiming an unreasonable allocation.
const MaxMessageSize = 16 * 1024 * 1024

// StreamTransport adapts an io.ReadWriteCloser (typically a net.Conn)
// into a Transport using little-endian 32-bit length-prefix framing.
// Read/write deadlines are backed by github.com/pion/transport/v3/deadline,
// a cancellable, settable gate composable with a context-aware
// Read/Write loop.
type StreamTransport struct {
	conn io.ReadWriteCloser

	readMu  sync.Mutex
	writeMu sync.Mutex

	readDeadline  *pideadline.Deadline
	writeDeadline *pideadline.Deadline
}

// NewStreamTransport wraps conn.
func NewStreamTransport(conn io.ReadWriteCloser) *StreamTransport {
	return &StreamTransport{
		conn:          conn,
		readDeadline:  pideadline.New(),
		writeDeadline: pideadline.New(),
	}
}

// SetReadDeadline arms the read deadline; Read calls in flight after
// it elapses fail with context.DeadlineExceeded.
func (t *StreamTransport) SetReadDeadline(d time.Time) {
	t.readDeadline.Set(d)
}

// SetWriteDeadline arms the write deadline analogously.
func (t *StreamTransport) SetWriteDeadline(d time.Time) {
	t.writeDeadline.Set(d)
}

// Read reads one length-prefixed message.
func (t *StreamTransport) Read(ctx context.Context) ([]byte, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	type result struct {
		msg []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := t.readMessage()
		done <- result{msg, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.readDeadline.Done():
		return nil, context.DeadlineExceeded
	case r := <-done:
		return r.msg, r.err
	}
}

func (t *StreamTransport) readMessage() ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(t.conn, lenBuf[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(lenBuf[:])
	if size > MaxMessageSize {
		return nil, fmt.Errorf("transport: message size %d exceeds limit %d", size, MaxMessageSize)
	}
	msg := make([]byte, size)
	if _, err := io.ReadFull(t.conn, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Write frames each of msgs with its length prefix and writes them to
// the underlying connection as one Write call, so the peer's framing
// reader sees them delivered atomically with respect to other writers.
func (t *StreamTransport) Write(ctx context.Context, msgs ...[]byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	raw := make([]byte, 0, len(msgs)*lengthPrefixSize)
	for _, m := range msgs {
		var lenBuf [lengthPrefixSize]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(m)))
		raw = append(raw, lenBuf[:]...)
		raw = append(raw, m...)
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.conn.Write(raw)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.writeDeadline.Done():
		return context.DeadlineExceeded
	case err := <-done:
		return err
	}
}

// Close closes the underlying connection.
func (t *StreamTransport) Close() error {
	return t.conn.Close()
}
