package handshake

import (
	"encoding/binary"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

const m3Size = 1 + 1 + 4 + 32 + 64

// SIG1Prefix is prepended to the m1Hash||m2Hash transcript before
// signing/verifying M3.Signature1.
var SIG1Prefix = [8]byte{'S', 'C', '-', 'S', 'I', 'G', '0', '1'}

// M3 carries the server's long-term signing key and its signature
// over the handshake transcript, sent encrypted.
type M3 struct {
	Time         uint32
	ServerSigKey [32]byte
	Signature1   [64]byte
}

// Marshal encodes m with a zero reserved byte.
func (m *M3) Marshal() ([]byte, error) {
	out := make([]byte, m3Size)
	out[0] = byte(protocol.TypeM3)
	binary.LittleEndian.PutUint32(out[2:6], m.Time)
	copy(out[6:38], m.ServerSigKey[:])
	copy(out[38:102], m.Signature1[:])
	return out, nil
}

// Unmarshal decodes an M3 from data.
func (m *M3) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) != m3Size {
		return protocol.NewBadPeer("M3 length %d, want %d", len(data), m3Size)
	}
	if err := protocol.CheckType(data, protocol.TypeM3); err != nil {
		return err
	}
	if err := protocol.CheckReserved(opts, data[1], 0xFF, "M3 reserved"); err != nil {
		return err
	}
	m.Time = binary.LittleEndian.Uint32(data[2:6])
	copy(m.ServerSigKey[:], data[6:38])
	copy(m.Signature1[:], data[38:102])
	return nil
}
