package a1a2

import (
	"bytes"
	"testing"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

func TestA1RoundTripAddressTypeAny(t *testing.T) {
	want := &A1{AddressType: AddressTypeAny}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got A1
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.AddressType != want.AddressType || len(got.Address) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestA1RoundTripAddressTypePubkey(t *testing.T) {
	addr := bytes.Repeat([]byte{0x42}, 32)
	want := &A1{AddressType: AddressTypePubkey, Address: addr}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got A1
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(got.Address, addr) {
		t.Fatalf("got address %x, want %x", got.Address, addr)
	}
}

func TestA1RejectsWrongSizeForAddressTypeAny(t *testing.T) {
	a := &A1{AddressType: AddressTypeAny, Address: []byte{1, 2, 3}}
	encoded, _ := a.Marshal()
	var got A1
	if err := got.Unmarshal(encoded, protocol.Options{}); err == nil {
		t.Fatal("expected error for nonempty ADDRESS_TYPE_ANY address")
	}
}

func TestA1RejectsWrongSizeForAddressTypePubkey(t *testing.T) {
	a := &A1{AddressType: AddressTypePubkey, Address: []byte{1, 2, 3}}
	encoded, _ := a.Marshal()
	var got A1
	if err := got.Unmarshal(encoded, protocol.Options{}); err == nil {
		t.Fatal("expected error for short ADDRESS_TYPE_PUBKEY address")
	}
}

func TestA1RejectsUnknownAddressType(t *testing.T) {
	a := &A1{AddressType: 99}
	encoded, _ := a.Marshal()
	var got A1
	if err := got.Unmarshal(encoded, protocol.Options{}); err == nil {
		t.Fatal("expected error for unknown AddressType")
	}
}

func TestA2RoundTripDefault(t *testing.T) {
	want := &A2{Prot: []Prot{DefaultProt()}}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got A2
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Prot) != 1 || got.Prot[0] != DefaultProt() {
		t.Fatalf("got %+v", got)
	}
}

func TestA2RoundTripNoSuchServer(t *testing.T) {
	want := &A2{NoSuchServer: true}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got A2
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.NoSuchServer || len(got.Prot) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestA2MarshalAlwaysSetsLastFlag(t *testing.T) {
	a := &A2{}
	encoded, _ := a.Marshal()
	if encoded[1]&A2FlagLastFlag == 0 {
		t.Fatal("Marshal did not set LastFlag")
	}
}

func TestA2UnmarshalRejectsMissingLastFlag(t *testing.T) {
	a := &A2{}
	encoded, _ := a.Marshal()
	encoded[1] &^= A2FlagLastFlag
	var got A2
	if err := got.Unmarshal(encoded, protocol.Options{}); err == nil {
		t.Fatal("expected error when LastFlag is unset")
	}
}

func TestA2UnmarshalRejectsBadProtCharacters(t *testing.T) {
	a := &A2{Prot: []Prot{DefaultProt()}}
	encoded, _ := a.Marshal()
	encoded[len(encoded)-1] = ' '
	var got A2
	if err := got.Unmarshal(encoded, protocol.Options{}); err == nil {
		t.Fatal("expected error for invalid Prot characters")
	}
}

func TestA2UnmarshalRejectsCountMismatch(t *testing.T) {
	a := &A2{Prot: []Prot{DefaultProt()}}
	encoded, _ := a.Marshal()
	truncated := encoded[:len(encoded)-1]
	var got A2
	if err := got.Unmarshal(truncated, protocol.Options{}); err == nil {
		t.Fatal("expected error for truncated A2")
	}
}
