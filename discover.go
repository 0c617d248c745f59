package saltchannel

import (
	"context"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
	"github.com/saltchannel/saltchannel-go/pkg/protocol/a1a2"
	"github.com/saltchannel/saltchannel-go/pkg/transport"
)

// A1Request is the client-side input to DiscoverA1.
type A1Request struct {
	// AddressType is a1a2.AddressTypeAny or a1a2.AddressTypePubkey.
	AddressType uint8
	// Address is the address to query; required and exactly 32 bytes
	// when AddressType is AddressTypePubkey, empty for AddressTypeAny.
	Address []byte
}

// A2Response is the decoded result of a DiscoverA1 call.
type A2Response struct {
	NoSuchServer bool
	Prot         []a1a2.Prot
}

// DiscoverA1 runs the short, unencrypted A1/A2 discovery exchange:
// write one A1, read and decode one A2. It performs no handshake and
// opens no encrypted channel.
func DiscoverA1(ctx context.Context, t transport.Transport, req A1Request, opts protocol.Options) (A2Response, error) {
	a1 := &a1a2.A1{AddressType: req.AddressType, Address: req.Address}
	encoded, err := a1.Marshal()
	if err != nil {
		return A2Response{}, err
	}
	if err := t.Write(ctx, encoded); err != nil {
		return A2Response{}, err
	}

	raw, err := t.Read(ctx)
	if err != nil {
		return A2Response{}, err
	}
	var a2 a1a2.A2
	if err := a2.Unmarshal(raw, opts); err != nil {
		return A2Response{}, err
	}
	return A2Response{NoSuchServer: a2.NoSuchServer, Prot: a2.Prot}, nil
}
