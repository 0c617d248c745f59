// Package apppacket implements the application message layer's wire
// packets: AppPacket (one message) and MultiAppPacket (several
// messages packed into a single record).
package apppacket

import (
	"encoding/binary"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

const appFixedSize = 1 + 1 + 4

// AppPacket carries a single application message.
type AppPacket struct {
	Time uint32
	Data []byte
}

// Marshal encodes p with a zero reserved byte.
func (p *AppPacket) Marshal() ([]byte, error) {
	out := make([]byte, appFixedSize+len(p.Data))
	out[0] = byte(protocol.TypeAppPacket)
	binary.LittleEndian.PutUint32(out[2:6], p.Time)
	copy(out[6:], p.Data)
	return out, nil
}

// Unmarshal decodes an AppPacket from data.
func (p *AppPacket) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) < appFixedSize {
		return protocol.NewBadPeer("AppPacket too short: %d bytes", len(data))
	}
	if err := protocol.CheckType(data, protocol.TypeAppPacket); err != nil {
		return err
	}
	if err := protocol.CheckReserved(opts, data[1], 0xFF, "AppPacket reserved"); err != nil {
		return err
	}
	p.Time = binary.LittleEndian.Uint32(data[2:6])
	p.Data = append([]byte(nil), data[appFixedSize:]...)
	return nil
}

const multiAppFixedSize = 1 + 1 + 4 + 2

// MaxMessageLength is the largest a single message may be to be
// eligible for MultiAppPacket packing (the length-prefix is 16 bits).
const MaxMessageLength = 65535

// MaxEncodedSize is the largest a MultiAppPacket's total encoded size
// may be (the record itself has no outer length field, but the
// transport framing/receive buffers are sized around it).
const MaxEncodedSize = 65535

// MultiAppPacket carries two or more application messages in one
// record, used when ShouldUse reports it is worthwhile.
type MultiAppPacket struct {
	Time     uint32
	Messages [][]byte
}

// ShouldUse reports whether msgs should be packed as a single
// MultiAppPacket rather than one AppPacket per message: more than one
// message, total encoded size within 65535 bytes, and every individual
// message at most 65535 bytes.
func ShouldUse(msgs [][]byte) bool {
	if len(msgs) <= 1 {
		return false
	}
	total := multiAppFixedSize
	for _, m := range msgs {
		if len(m) > MaxMessageLength {
			return false
		}
		total += 2 + len(m)
		if total > MaxEncodedSize {
			return false
		}
	}
	return true
}

// Marshal encodes p with a zero reserved byte.
func (p *MultiAppPacket) Marshal() ([]byte, error) {
	size := multiAppFixedSize
	for _, m := range p.Messages {
		if len(m) > MaxMessageLength {
			return nil, protocol.NewBadPeer("MultiAppPacket message too long: %d bytes", len(m))
		}
		size += 2 + len(m)
	}
	out := make([]byte, size)
	out[0] = byte(protocol.TypeMultiAppPacket)
	binary.LittleEndian.PutUint32(out[2:6], p.Time)
	binary.LittleEndian.PutUint16(out[6:8], uint16(len(p.Messages)))
	offset := multiAppFixedSize
	for _, m := range p.Messages {
		binary.LittleEndian.PutUint16(out[offset:offset+2], uint16(len(m)))
		offset += 2
		copy(out[offset:], m)
		offset += len(m)
	}
	return out, nil
}

// Unmarshal decodes a MultiAppPacket from data.
func (p *MultiAppPacket) Unmarshal(data []byte, opts protocol.Options) error {
	if len(data) < multiAppFixedSize {
		return protocol.NewBadPeer("MultiAppPacket too short: %d bytes", len(data))
	}
	if err := protocol.CheckType(data, protocol.TypeMultiAppPacket); err != nil {
		return err
	}
	if err := protocol.CheckReserved(opts, data[1], 0xFF, "MultiAppPacket reserved"); err != nil {
		return err
	}
	p.Time = binary.LittleEndian.Uint32(data[2:6])
	count := int(binary.LittleEndian.Uint16(data[6:8]))

	offset := multiAppFixedSize
	msgs := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if offset+2 > len(data) {
			return protocol.NewBadPeer("MultiAppPacket truncated reading message %d length", i)
		}
		msgLen := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if offset+msgLen > len(data) {
			return protocol.NewBadPeer("MultiAppPacket truncated reading message %d body", i)
		}
		msgs = append(msgs, append([]byte(nil), data[offset:offset+msgLen]...))
		offset += msgLen
	}
	if offset != len(data) {
		return protocol.NewBadPeer("MultiAppPacket has %d trailing bytes", len(data)-offset)
	}
	p.Messages = msgs
	return nil
}
