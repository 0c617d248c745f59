package handshake

import (
	"encoding/binary"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

const m4Size = 1 + 1 + 4 + 32 + 64

// SIG2Prefix is prepended to the m1Hash||m2Hash transcript before
// signing/verifying M4.Signature2.
var SIG2Prefix = [8]byte{'S', 'C', '-', 'S', 'I', 'G', '0', '2'}

// M4 carries the client's long-term signing key and its signature
// over the handshake transcript, sent encrypted.
type M4 struct {
	Time         uint32
	ClientSigKey [32]byte
	Signature2   [64]byte
}

// Marshal encodes m with a zero reserved byte.
func (m *M4) Marshal() ([]byte, error) {
	out := make([]byte, m4Size)
	out[0] = byte(protocol.TypeM4)
	binary.LittleEndian.PutUint32(out[2:6], m.Time)
	copy(out[6:38], m.ClientSigKey[:])
	copy(out[38:102], m.Signature2[:])
	return out, nil
}

// Unmarshal decodes an M4 from data.
func (m *M4) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) != m4Size {
		return protocol.NewBadPeer("M4 length %d, want %d", len(data), m4Size)
	}
	if err := protocol.CheckType(data, protocol.TypeM4); err != nil {
		return err
	}
	if err := protocol.CheckReserved(opts, data[1], 0xFF, "M4 reserved"); err != nil {
		return err
	}
	m.Time = binary.LittleEndian.Uint32(data[2:6])
	copy(m.ClientSigKey[:], data[6:38])
	copy(m.Signature2[:], data[38:102])
	return nil
}
