// Package recordlayer implements the EncryptedPacket container: the
// wrapper every record of the encrypted channel is carried in.
package recordlayer

import (
	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

// LastFlag is bit 7 of EncryptedPacket's flags byte.
const LastFlag = 1 << 7

const headerSize = 2

// MinBodySize is the smallest legal Body: a NaCl box authenticator
// with no plaintext.
const MinBodySize = 16

// EncryptedPacket wraps an AEAD ciphertext body (an M3, M4, AppPacket
// or MultiAppPacket once encrypted).
type EncryptedPacket struct {
	LastFlag bool
	Body     []byte
}

// Marshal encodes p. Callers must have already set Body to the box
// ciphertext; Marshal does not encrypt.
func (p *EncryptedPacket) Marshal() ([]byte, error) {
	if len(p.Body) < MinBodySize {
		return nil, protocol.NewBadPeer("EncryptedPacket body too small: %d bytes", len(p.Body))
	}
	out := make([]byte, headerSize+len(p.Body))
	out[0] = byte(protocol.TypeEncrypted)
	if p.LastFlag {
		out[1] = LastFlag
	}
	copy(out[headerSize:], p.Body)
	return out, nil
}

// Unmarshal decodes an EncryptedPacket from data, leaving Body as the
// still-encrypted ciphertext.
func (p *EncryptedPacket) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) < headerSize {
		return protocol.NewBadPeer("EncryptedPacket too short: %d bytes", len(data))
	}
	if err := protocol.CheckType(data, protocol.TypeEncrypted); err != nil {
		return err
	}
	flags := data[1]
	if err := protocol.CheckReserved(opts, flags, ^uint8(LastFlag), "EncryptedPacket flags"); err != nil {
		return err
	}
	p.LastFlag = flags&LastFlag != 0
	body := data[headerSize:]
	if len(body) < MinBodySize {
		return protocol.NewBadPeer("EncryptedPacket body too small: %d bytes", len(body))
	}
	p.Body = append([]byte(nil), body...)
	return nil
}
