package a1a2

import (
	"regexp"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

// A2FlagNoSuchServer and A2FlagLastFlag are the two defined bits of
// A2's flags byte.
const (
	A2FlagNoSuchServer = 1 << 0
	A2FlagLastFlag     = 1 << 7
)

// ProtSize is the fixed size, in bytes, of each of P1 and P2 in a
// Prot entry.
const ProtSize = 10

// MaxProtCount is the largest Count A2 may declare.
const MaxProtCount = 127

const a2FixedSize = 1 + 1 + 1

var protPattern = regexp.MustCompile(`^[A-Za-z0-9./_-]+$`)

// Prot is one (P1, P2) protocol name pair.
type Prot struct {
	P1 [ProtSize]byte
	P2 [ProtSize]byte
}

// DefaultProt is the canonical Salt Channel v2 protocol advertisement:
// ("SCv2------", "----------").
func DefaultProt() Prot {
	var p Prot
	copy(p.P1[:], "SCv2------")
	copy(p.P2[:], "----------")
	return p
}

// A2 is the server's response to A1.
type A2 struct {
	NoSuchServer bool
	Prot         []Prot
}

// Marshal encodes a. LastFlag is always emitted as 1: A2 always
// terminates the discovery exchange.
func (a *A2) Marshal() ([]byte, error) {
	count := len(a.Prot)
	if a.NoSuchServer {
		count = 0
	}
	out := make([]byte, a2FixedSize+count*2*ProtSize)
	out[0] = byte(protocol.TypeA2)
	flags := uint8(A2FlagLastFlag)
	if a.NoSuchServer {
		flags |= A2FlagNoSuchServer
	}
	out[1] = flags
	out[2] = uint8(count)
	offset := a2FixedSize
	for i := 0; i < count; i++ {
		copy(out[offset:offset+ProtSize], a.Prot[i].P1[:])
		offset += ProtSize
		copy(out[offset:offset+ProtSize], a.Prot[i].P2[:])
		offset += ProtSize
	}
	return out, nil
}

// Unmarshal decodes an A2 from data and validates its constraints:
// NoSuchServer=1 implies Count=0; LastFlag must be 1; 0<=Count<=127;
// every P1/P2 is exactly 10 bytes matching the allowed character
// class.
func (a *A2) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) < a2FixedSize {
		return protocol.NewBadPeer("A2 too short: %d bytes", len(data))
	}
	if err := protocol.CheckType(data, protocol.TypeA2); err != nil {
		return err
	}
	flags := data[1]
	reservedMask := ^uint8(A2FlagNoSuchServer | A2FlagLastFlag)
	if err := protocol.CheckReserved(opts, flags, reservedMask, "A2 flags"); err != nil {
		return err
	}
	a.NoSuchServer = flags&A2FlagNoSuchServer != 0
	if flags&A2FlagLastFlag == 0 {
		return protocol.NewBadPeer("A2 LastFlag must be set")
	}
	count := int(int8(data[2]))
	if count < 0 || count > MaxProtCount {
		return protocol.NewBadPeer("A2 Count out of range: %d", count)
	}
	if a.NoSuchServer && count != 0 {
		return protocol.NewBadPeer("A2 Count must be zero when NoSuchServer is set, got %d", count)
	}
	wantLen := a2FixedSize + count*2*ProtSize
	if len(data) != wantLen {
		return protocol.NewBadPeer("A2 length %d does not match Count %d", len(data), count)
	}
	a.Prot = make([]Prot, count)
	offset := a2FixedSize
	for i := 0; i < count; i++ {
		var p Prot
		copy(p.P1[:], data[offset:offset+ProtSize])
		offset += ProtSize
		copy(p.P2[:], data[offset:offset+ProtSize])
		offset += ProtSize
		if !protPattern.Match(p.P1[:]) {
			return protocol.NewBadPeer("A2 Prot[%d].P1 invalid: %q", i, p.P1[:])
		}
		if !protPattern.Match(p.P2[:]) {
			return protocol.NewBadPeer("A2 Prot[%d].P2 invalid: %q", i, p.P2[:])
		}
		a.Prot[i] = p
	}
	return nil
}
