// Package protocol defines the wire-level packet types and shared
// validation errors of the Salt Channel v2 packet codec. Concrete
// packet bodies live in the handshake, a1a2, recordlayer and apppacket
// subpackages; this package holds what they all share: the PacketType
// byte values and the BadPeer error shape.
package protocol

import (
	"errors"
	"fmt"
)

// Type is the first byte of every packet header.
type Type uint8

// The nine packet types the protocol defines. Resume-related types (7,
// 10 in one source variant) are not defined at all: session resume is
// out of scope for this implementation.
const (
	TypeM1             Type = 1
	TypeM2             Type = 2
	TypeM3             Type = 3
	TypeM4             Type = 4
	TypeAppPacket      Type = 5
	TypeEncrypted      Type = 6
	TypeA1             Type = 8
	TypeA2             Type = 9
	TypeMultiAppPacket Type = 11
)

// String renders t the way log lines and error messages want it.
func (t Type) String() string {
	switch t {
	case TypeM1:
		return "M1"
	case TypeM2:
		return "M2"
	case TypeM3:
		return "M3"
	case TypeM4:
		return "M4"
	case TypeAppPacket:
		return "AppPacket"
	case TypeEncrypted:
		return "EncryptedPacket"
	case TypeA1:
		return "A1"
	case TypeA2:
		return "A2"
	case TypeMultiAppPacket:
		return "MultiAppPacket"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ErrBadPeer is the sentinel every BadPeerError wraps, so callers can
// test with errors.Is(err, protocol.ErrBadPeer) regardless of reason.
var ErrBadPeer = errors.New("protocol: bad peer")

// BadPeerError reports that a received packet is structurally invalid,
// has fields out of range, an unexpected type, a reserved-bit
// violation, or a size/count mismatch.
type BadPeerError struct {
	Reason string
}

// Error implements error.
func (e *BadPeerError) Error() string {
	return "protocol: bad peer: " + e.Reason
}

// Unwrap makes errors.Is(err, ErrBadPeer) true for any BadPeerError.
func (e *BadPeerError) Unwrap() error {
	return ErrBadPeer
}

// NewBadPeer builds a BadPeerError with a formatted reason.
func NewBadPeer(format string, args ...interface{}) *BadPeerError {
	return &BadPeerError{Reason: fmt.Sprintf(format, args...)}
}

// Options controls codec-level leniency, set from a session Config.
type Options struct {
	// Strict, when true, rejects packets with non-zero reserved bits
	// on ingress. When false (the default), reserved bits are ignored
	// on read but are always emitted as zero on write.
	Strict bool
}

// CheckType validates that the first byte of data is the expected
// packet type, returning a BadPeerError otherwise.
func CheckType(data []byte, want Type) error {
	if len(data) < 1 {
		return NewBadPeer("packet too short to contain a type byte")
	}
	if Type(data[0]) != want {
		return NewBadPeer("expected packet type %s, got %s", want, Type(data[0]))
	}
	return nil
}

// CheckReserved validates a reserved byte/bits value is zero when
// opts.Strict is set; it never rejects when Strict is false, accepting
// arbitrary reserved bits on ingress.
func CheckReserved(opts Options, reserved uint8, mask uint8, label string) error {
	if !opts.Strict {
		return nil
	}
	if reserved&mask != 0 {
		return NewBadPeer("reserved bits set in %s: %#02x", label, reserved&mask)
	}
	return nil
}
