package handshake

import (
	"encoding/binary"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

const (
	m2Size = 1 + 1 + 4 + 32
	// M2FlagNoSuchServer is bit 0 of M2's flags byte.
	M2FlagNoSuchServer = 1 << 0
	// M2FlagLastFlag is bit 7 of M2's flags byte.
	M2FlagLastFlag = 1 << 7
)

// M2 is the server's response to M1.
type M2 struct {
	NoSuchServer bool
	LastFlag     bool
	Time         uint32
	ServerEncKey [32]byte
}

// Marshal encodes m. If NoSuchServer is set, LastFlag is forced set
// too: a NoSuchServer rejection always terminates the session.
func (m *M2) Marshal() ([]byte, error) {
	out := make([]byte, m2Size)
	out[0] = byte(protocol.TypeM2)
	last := m.LastFlag || m.NoSuchServer
	var flags uint8
	if m.NoSuchServer {
		flags |= M2FlagNoSuchServer
	}
	if last {
		flags |= M2FlagLastFlag
	}
	out[1] = flags
	binary.LittleEndian.PutUint32(out[2:6], m.Time)
	copy(out[6:38], m.ServerEncKey[:])
	return out, nil
}

// Unmarshal decodes an M2 from data.
func (m *M2) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) != m2Size {
		return protocol.NewBadPeer("M2 length %d, want %d", len(data), m2Size)
	}
	if err := protocol.CheckType(data, protocol.TypeM2); err != nil {
		return err
	}
	flags := data[1]
	reservedMask := ^uint8(M2FlagNoSuchServer | M2FlagLastFlag)
	if err := protocol.CheckReserved(opts, flags, reservedMask, "M2 flags"); err != nil {
		return err
	}
	m.NoSuchServer = flags&M2FlagNoSuchServer != 0
	m.LastFlag = flags&M2FlagLastFlag != 0
	m.Time = binary.LittleEndian.Uint32(data[2:6])
	copy(m.ServerEncKey[:], data[6:38])
	return nil
}
