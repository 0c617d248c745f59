// Package a1a2 implements the A1/A2 discovery packets: a short,
// unencrypted exchange a client may use to probe a server for which
// signing keys it serves, with no handshake or encryption involved.
package a1a2

import (
	"encoding/binary"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

// AddressType values for A1.AddressType.
const (
	AddressTypeAny    uint8 = 0
	AddressTypePubkey uint8 = 1
)

// MaxAddressLength is the largest AddressSize A1 may declare.
const MaxAddressLength = 65535

const a1FixedSize = 1 + 1 + 1 + 2

// A1 is the client's discovery request.
type A1 struct {
	AddressType uint8
	Address     []byte
}

// Marshal encodes a with a zero reserved byte.
func (a *A1) Marshal() ([]byte, error) {
	out := make([]byte, a1FixedSize+len(a.Address))
	out[0] = byte(protocol.TypeA1)
	out[2] = a.AddressType
	binary.LittleEndian.PutUint16(out[3:5], uint16(len(a.Address)))
	copy(out[5:], a.Address)
	return out, nil
}

// Unmarshal decodes an A1 from data and validates the address
// constraints: ADDRESS_TYPE_ANY requires size 0, ADDRESS_TYPE_PUBKEY
// requires size 32, other types are rejected.
func (a *A1) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) < a1FixedSize {
		return protocol.NewBadPeer("A1 too short: %d bytes", len(data))
	}
	if err := protocol.CheckType(data, protocol.TypeA1); err != nil {
		return err
	}
	if err := protocol.CheckReserved(opts, data[1], 0xFF, "A1 reserved"); err != nil {
		return err
	}
	a.AddressType = data[2]
	addrSize := binary.LittleEndian.Uint16(data[3:5])
	if int(addrSize) > MaxAddressLength {
		return protocol.NewBadPeer("A1 address too long: %d", addrSize)
	}
	if len(data) != a1FixedSize+int(addrSize) {
		return protocol.NewBadPeer("A1 AddressSize %d does not match received length", addrSize)
	}
	a.Address = append([]byte(nil), data[a1FixedSize:]...)

	switch a.AddressType {
	case AddressTypeAny:
		if len(a.Address) != 0 {
			return protocol.NewBadPeer("A1 address must be empty for ADDRESS_TYPE_ANY, got %d bytes", len(a.Address))
		}
	case AddressTypePubkey:
		if len(a.Address) != 32 {
			return protocol.NewBadPeer("A1 address must be 32 bytes for ADDRESS_TYPE_PUBKEY, got %d", len(a.Address))
		}
	default:
		return protocol.NewBadPeer("A1 unknown AddressType: %d", a.AddressType)
	}
	return nil
}
