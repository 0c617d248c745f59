package channel

import (
	"context"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/apppacket"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/handshake"
	"github.com/saltchannel/saltchannel-go/pkg/timeutil"
)

// AppChannel is the application message layer: it adds a small
// per-message header to each plaintext message, packs one or many
// messages per transport write, and — on the client only — piggybacks
// a deferred M4 on the very first write.
type AppChannel struct {
	enc         *EncryptedChannel
	timeKeeper  timeutil.TimeKeeper
	timeChecker timeutil.TimeChecker
	opts        protocol.Options

	inbound [][]byte

	// bufferedM4 holds a client M4 the handshake chose to defer so it
	// rides along with the first application write instead of its own
	// transport round trip.
	bufferedM4 *handshake.M4
}

// NewAppChannel wraps enc.
func NewAppChannel(enc *EncryptedChannel, timeKeeper timeutil.TimeKeeper, timeChecker timeutil.TimeChecker, opts protocol.Options) *AppChannel {
	return &AppChannel{enc: enc, timeKeeper: timeKeeper, timeChecker: timeChecker, opts: opts}
}

// SetBufferedM4 arms the M4 piggyback for the next Write call.
func (a *AppChannel) SetBufferedM4(m4 *handshake.M4) {
	a.bufferedM4 = m4
}

// Last reports the LastFlag observed on the most recently read record.
func (a *AppChannel) Last() bool {
	return a.enc.LastFlag()
}

// Read returns the next application message, demultiplexing a
// MultiAppPacket across successive calls via an internal FIFO. Any
// error closes the underlying encrypted channel.
func (a *AppChannel) Read(ctx context.Context) (_ []byte, err error) {
	defer func() {
		if err != nil {
			a.enc.Close()
		}
	}()
	if len(a.inbound) > 0 {
		msg := a.inbound[0]
		a.inbound = a.inbound[1:]
		return msg, nil
	}

	raw, err := a.enc.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) < 1 {
		return nil, protocol.NewBadPeer("empty app channel record")
	}

	switch protocol.Type(raw[0]) {
	case protocol.TypeAppPacket:
		var ap apppacket.AppPacket
		if err := ap.Unmarshal(raw, a.opts); err != nil {
			return nil, err
		}
		if err := a.timeChecker.Check(ap.Time); err != nil {
			return nil, err
		}
		return ap.Data, nil

	case protocol.TypeMultiAppPacket:
		var mp apppacket.MultiAppPacket
		if err := mp.Unmarshal(raw, a.opts); err != nil {
			return nil, err
		}
		if err := a.timeChecker.Check(mp.Time); err != nil {
			return nil, err
		}
		if len(mp.Messages) == 0 {
			return nil, protocol.NewBadPeer("MultiAppPacket carries zero messages")
		}
		a.inbound = append(a.inbound, mp.Messages[1:]...)
		return mp.Messages[0], nil

	default:
		return nil, protocol.NewBadPeer("unexpected packet type in app channel: %s", protocol.Type(raw[0]))
	}
}

// Write sends one or more application messages as a single batched
// transport write. If more than one message is given and packing them
// into a MultiAppPacket is worthwhile (apppacket.ShouldUse), they are
// sent as one record; otherwise each gets its own AppPacket record.
func (a *AppChannel) Write(ctx context.Context, last bool, msgs ...[]byte) error {
	var wrapped [][]byte

	if a.bufferedM4 != nil {
		a.bufferedM4.Time = a.timeKeeper.Now()
		encoded, err := a.bufferedM4.Marshal()
		if err != nil {
			return err
		}
		wrapped = append(wrapped, encoded)
		a.bufferedM4 = nil
	}

	if len(msgs) > 0 {
		if apppacket.ShouldUse(msgs) {
			mp := &apppacket.MultiAppPacket{Time: a.timeKeeper.Now(), Messages: msgs}
			encoded, err := mp.Marshal()
			if err != nil {
				return err
			}
			wrapped = append(wrapped, encoded)
		} else {
			for _, m := range msgs {
				ap := &apppacket.AppPacket{Time: a.timeKeeper.Now(), Data: m}
				encoded, err := ap.Marshal()
				if err != nil {
					return err
				}
				wrapped = append(wrapped, encoded)
			}
		}
	}

	if len(wrapped) == 0 {
		return nil
	}
	return a.enc.Write(ctx, last, wrapped...)
}
