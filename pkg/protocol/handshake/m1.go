// Package handshake implements the M1–M4 mutual-authentication
// packets: bit-exact, byte-oriented Marshal/Unmarshal pairs with no
// reflection.
package handshake

import (
	"encoding/binary"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

// ProtocolIndicator is the fixed 4-byte string every M1 opens with.
var ProtocolIndicator = [4]byte{'S', 'C', 'v', '2'}

const (
	m1FixedSize = 4 + 1 + 1 + 4 + 32
	// M1FlagServerSigKeyIncluded is bit 0 of M1's flags byte.
	M1FlagServerSigKeyIncluded = 1 << 0
)

// M1 is the client's opening handshake message.
type M1 struct {
	ServerSigKeyIncluded bool
	Time                 uint32
	ClientEncKey         [32]byte
	// ServerSigKey is present only when ServerSigKeyIncluded is true.
	ServerSigKey [32]byte
}

// Marshal encodes m, always with a zeroed reserved flag field except
// for ServerSigKeyIncluded.
func (m *M1) Marshal() ([]byte, error) {
	size := m1FixedSize
	if m.ServerSigKeyIncluded {
		size += 32
	}
	out := make([]byte, size)
	copy(out[0:4], ProtocolIndicator[:])
	out[4] = byte(protocol.TypeM1)
	if m.ServerSigKeyIncluded {
		out[5] = M1FlagServerSigKeyIncluded
	}
	binary.LittleEndian.PutUint32(out[6:10], m.Time)
	copy(out[10:42], m.ClientEncKey[:])
	if m.ServerSigKeyIncluded {
		copy(out[42:74], m.ServerSigKey[:])
	}
	return out, nil
}

// Unmarshal decodes an M1 from data, validating the protocol
// indicator, packet type, and that ServerSigKey is present iff the
// ServerSigKeyIncluded flag says so.
func (m *M1) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) < m1FixedSize {
		return protocol.NewBadPeer("M1 too short: %d bytes", len(data))
	}
	if [4]byte(data[0:4]) != ProtocolIndicator {
		return protocol.NewBadPeer("unexpected M1 protocol indicator: %x", data[0:4])
	}
	if err := protocol.CheckType(data[4:], protocol.TypeM1); err != nil {
		return err
	}
	flags := data[5]
	if err := protocol.CheckReserved(opts, flags, ^uint8(M1FlagServerSigKeyIncluded), "M1 flags"); err != nil {
		return err
	}
	m.ServerSigKeyIncluded = flags&M1FlagServerSigKeyIncluded != 0
	m.Time = binary.LittleEndian.Uint32(data[6:10])
	copy(m.ClientEncKey[:], data[10:42])

	wantSize := m1FixedSize
	if m.ServerSigKeyIncluded {
		wantSize += 32
	}
	if len(data) != wantSize {
		return protocol.NewBadPeer("M1 length %d does not match ServerSigKeyIncluded=%v", len(data), m.ServerSigKeyIncluded)
	}
	if m.ServerSigKeyIncluded {
		copy(m.ServerSigKey[:], data[42:74])
	}
	return nil
}
