package handshake

import (
	"bytes"
	"testing"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

func TestM1RoundTripWithoutServerSigKey(t *testing.T) {
	want := &M1{Time: 1, ClientEncKey: [32]byte{1, 2, 3}}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got M1
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != *want {
		t.Fatalf("got %+v, want %+v", got, *want)
	}
}

func TestM1RoundTripWithServerSigKey(t *testing.T) {
	want := &M1{
		ServerSigKeyIncluded: true,
		Time:                 7,
		ClientEncKey:         [32]byte{9},
		ServerSigKey:         [32]byte{8},
	}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(encoded) != 74 {
		t.Fatalf("encoded length = %d, want 74", len(encoded))
	}
	var got M1
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != *want {
		t.Fatalf("got %+v, want %+v", got, *want)
	}
}

func TestM1RejectsBadProtocolIndicator(t *testing.T) {
	m := &M1{Time: 1}
	encoded, _ := m.Marshal()
	encoded[0] = 'X'
	var got M1
	if err := got.Unmarshal(encoded, protocol.Options{}); err == nil {
		t.Fatal("expected error for bad protocol indicator")
	}
}

func TestM1RejectsLengthMismatch(t *testing.T) {
	m := &M1{ServerSigKeyIncluded: true, Time: 1}
	encoded, _ := m.Marshal()
	short := encoded[:len(encoded)-10]
	var got M1
	if err := got.Unmarshal(short, protocol.Options{}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestM2RoundTrip(t *testing.T) {
	want := &M2{Time: 3, ServerEncKey: [32]byte{4, 5, 6}}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got M2
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != *want {
		t.Fatalf("got %+v, want %+v", got, *want)
	}
}

func TestM2NoSuchServerForcesLastFlag(t *testing.T) {
	m := &M2{NoSuchServer: true}
	encoded, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got M2
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.LastFlag {
		t.Fatal("NoSuchServer did not force LastFlag")
	}
}

func TestM3RoundTrip(t *testing.T) {
	want := &M3{Time: 2, ServerSigKey: [32]byte{1}, Signature1: [64]byte{2}}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(encoded) != 102 {
		t.Fatalf("encoded length = %d, want 102", len(encoded))
	}
	var got M3
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != *want {
		t.Fatalf("got %+v, want %+v", got, *want)
	}
}

func TestM3RejectsWrongType(t *testing.T) {
	m4 := &M4{Time: 1}
	encoded, _ := m4.Marshal()
	var got M3
	if err := got.Unmarshal(encoded, protocol.Options{}); err == nil {
		t.Fatal("expected error decoding M4 bytes as M3")
	}
}

func TestM4RoundTrip(t *testing.T) {
	want := &M4{Time: 2, ClientSigKey: [32]byte{3}, Signature2: [64]byte{4}}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got M4
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != *want {
		t.Fatalf("got %+v, want %+v", got, *want)
	}
}

func TestM3AndM4RejectNonzeroReservedOnlyWhenStrict(t *testing.T) {
	m := &M3{Time: 1}
	encoded, _ := m.Marshal()
	encoded[1] = 0xFF

	var lenient M3
	if err := lenient.Unmarshal(encoded, protocol.Options{Strict: false}); err != nil {
		t.Fatalf("lenient Unmarshal should ignore reserved bits: %v", err)
	}

	var strict M3
	if err := strict.Unmarshal(encoded, protocol.Options{Strict: true}); err == nil {
		t.Fatal("strict Unmarshal should reject nonzero reserved byte")
	}

	m4 := &M4{Time: 1}
	encoded4, _ := m4.Marshal()
	encoded4[1] = 0xFF

	var lenient4 M4
	if err := lenient4.Unmarshal(encoded4, protocol.Options{Strict: false}); err != nil {
		t.Fatalf("lenient M4 Unmarshal should ignore reserved bits: %v", err)
	}

	var strict4 M4
	if err := strict4.Unmarshal(encoded4, protocol.Options{Strict: true}); err == nil {
		t.Fatal("strict M4 Unmarshal should reject nonzero reserved byte")
	}
}

func TestSignaturePrefixesAreEightBytes(t *testing.T) {
	if !bytes.Equal(SIG1Prefix[:], []byte("SC-SIG01")) {
		t.Fatalf("SIG1Prefix = %q", SIG1Prefix[:])
	}
	if !bytes.Equal(SIG2Prefix[:], []byte("SC-SIG02")) {
		t.Fatalf("SIG2Prefix = %q", SIG2Prefix[:])
	}
}
