package channel

import (
	"context"
	"fmt"

	"github.com/pion/logging"

	"github.com/saltchannel/saltchannel-go/internal/closer"
	"github.com/saltchannel/saltchannel-go/pkg/cryptoutil"
	"github.com/saltchannel/saltchannel-go/pkg/protocol"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/recordlayer"
	"github.com/saltchannel/saltchannel-go/pkg/transport"
)

// EncryptedChannel is the encrypted record layer: it owns the
// transport, the shared session key, and the two nonce counters, and
// turns plaintext messages into authenticated EncryptedPacket records
// and back.
type EncryptedChannel struct {
	transport transport.Transport
	sharedKey [cryptoutil.BoxSharedKeySize]byte
	opts      protocol.Options
	log       logging.LeveledLogger

	readNonce  nonce
	writeNonce nonce

	// pushback holds a single transport message handed back through
	// PushBack, which the next Read consumes instead of reading the
	// transport. The session types in this module do not call PushBack.
	pushback []byte

	lastFlag bool
	closed   *closer.Closer
}

// NewEncryptedChannel constructs an EncryptedChannel over t, deriving
// the initial nonce counters from role.
func NewEncryptedChannel(t transport.Transport, sharedKey [cryptoutil.BoxSharedKeySize]byte, role Role, opts protocol.Options, log logging.LeveledLogger) *EncryptedChannel {
	readCounter, writeCounter := initialCounters(role)
	if log == nil {
		log = logging.NewDefaultLoggerFactory().NewLogger("saltchannel")
	}
	return &EncryptedChannel{
		transport:  t,
		sharedKey:  sharedKey,
		opts:       opts,
		log:        log,
		readNonce:  nonce{counter: readCounter},
		writeNonce: nonce{counter: writeCounter},
		closed:     closer.NewCloser(),
	}
}

// PushBack stashes a transport message already read by the caller for
// consumption by the next Read call, instead of issuing a fresh
// transport read.
func (c *EncryptedChannel) PushBack(msg []byte) {
	c.pushback = msg
}

// LastFlag reports the LastFlag observed on the most recently
// decrypted EncryptedPacket.
func (c *EncryptedChannel) LastFlag() bool {
	return c.lastFlag
}

// Read decrypts and returns the next plaintext record.
func (c *EncryptedChannel) Read(ctx context.Context) ([]byte, error) {
	if c.closed.IsClosed() {
		return nil, ErrChannelClosed
	}

	var raw []byte
	var err error
	if c.pushback != nil {
		raw, c.pushback = c.pushback, nil
	} else {
		raw, err = c.transport.Read(ctx)
		if err != nil {
			c.closed.Close()
			return nil, err
		}
	}

	var pkt recordlayer.EncryptedPacket
	if err := pkt.Unmarshal(raw, c.opts); err != nil {
		c.closed.Close()
		return nil, err
	}

	nb := c.readNonce.bytes()
	plaintext, err := cryptoutil.BoxOpenAfterNM(pkt.Body, &nb, &c.sharedKey)
	if err != nil {
		c.closed.Close()
		c.log.Debugf("saltchannel: decrypt failed: %s", err)
		return nil, protocol.NewBadPeer("invalid ciphertext")
	}
	if err := c.readNonce.advance(); err != nil {
		c.closed.Close()
		return nil, err
	}
	c.lastFlag = pkt.LastFlag
	if pkt.LastFlag {
		c.log.Trace("saltchannel: observed LastFlag on read")
	}
	return plaintext, nil
}

// Write encrypts each of msgs under the next write nonce, wraps each
// in an EncryptedPacket, and hands them all to the transport as one
// batched write. LastFlag is set only on the final record, and only
// when last is true.
func (c *EncryptedChannel) Write(ctx context.Context, last bool, msgs ...[]byte) error {
	if c.closed.IsClosed() {
		return ErrChannelClosed
	}
	if len(msgs) == 0 {
		return nil
	}

	raw := make([][]byte, len(msgs))
	for i, m := range msgs {
		nb := c.writeNonce.bytes()
		ciphertext := cryptoutil.BoxAfterNM(m, &nb, &c.sharedKey)
		if err := c.writeNonce.advance(); err != nil {
			c.closed.Close()
			return err
		}
		pkt := recordlayer.EncryptedPacket{
			LastFlag: last && i == len(msgs)-1,
			Body:     ciphertext,
		}
		encoded, err := pkt.Marshal()
		if err != nil {
			c.closed.Close()
			return fmt.Errorf("saltchannel: encoding EncryptedPacket: %w", err)
		}
		raw[i] = encoded
	}

	if err := c.transport.Write(ctx, raw...); err != nil {
		c.closed.Close()
		return err
	}
	if last {
		c.closed.Close()
	}
	return nil
}

// Seal encrypts and wraps a single plaintext record without handing
// it to the transport, advancing the write nonce as Write would. It
// lets a session layer batch a cleartext packet (M2) together with an
// encrypted one (M3) in a single Transport.Write call, for the
// server's buffer_m2 optimisation.
func (c *EncryptedChannel) Seal(plaintext []byte) ([]byte, error) {
	if c.closed.IsClosed() {
		return nil, ErrChannelClosed
	}
	nb := c.writeNonce.bytes()
	ciphertext := cryptoutil.BoxAfterNM(plaintext, &nb, &c.sharedKey)
	if err := c.writeNonce.advance(); err != nil {
		c.closed.Close()
		return nil, err
	}
	pkt := recordlayer.EncryptedPacket{Body: ciphertext}
	encoded, err := pkt.Marshal()
	if err != nil {
		c.closed.Close()
		return nil, fmt.Errorf("saltchannel: encoding EncryptedPacket: %w", err)
	}
	return encoded, nil
}

// Close marks the channel closed without closing the transport. No
// session type closes the transport either; it stays open until whoever
// created it closes it.
func (c *EncryptedChannel) Close() {
	c.closed.Close()
}
