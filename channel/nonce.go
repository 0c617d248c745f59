// Package channel implements the encrypted record layer and the
// application message layer on top of a pkg/transport.Transport:
// nonce sequencing, authenticated encryption, last-flag signalling,
// and per-message framing/packing.
package channel

import (
	"encoding/binary"
	"errors"

	"github.com/saltchannel/saltchannel-go/pkg/cryptoutil"
)

// Role identifies which side of the session a channel plays, which
// decides the initial nonce counters.
type Role int

// The two roles a session can hold.
const (
	RoleClient Role = iota
	RoleServer
)

// ErrNonceExhausted is returned when a nonce counter would overflow
// 2^64: counters never wrap, so the session fails fatally instead.
var ErrNonceExhausted = errors.New("channel: nonce counter exhausted")

// nonce is the 24-byte value 8-byte little-endian counter || 8-byte
// session nonce tag (always zero, resume being out of scope) || 8 zero
// bytes.
type nonce struct {
	counter uint64
}

func (n *nonce) bytes() [cryptoutil.BoxNonceSize]byte {
	var b [cryptoutil.BoxNonceSize]byte
	binary.LittleEndian.PutUint64(b[0:8], n.counter)
	// bytes 8:16 (session nonce tag) and 16:24 (trailing zero) are
	// always zero: resume, which would populate the tag, is out of
	// scope for this implementation.
	return b
}

// advance moves the counter forward by 2, the per-record step, failing
// fatally rather than wrapping.
func (n *nonce) advance() error {
	if n.counter > ^uint64(0)-2 {
		return ErrNonceExhausted
	}
	n.counter += 2
	return nil
}

// initialCounters returns the (read, write) starting counters for
// role: the client starts write-counter=1 and read-counter=2; the
// server the reverse.
func initialCounters(role Role) (read, write uint64) {
	if role == RoleClient {
		return 2, 1
	}
	return 1, 2
}
