package recordlayer

import (
	"bytes"
	"testing"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

func TestEncryptedPacketRoundTrip(t *testing.T) {
	want := &EncryptedPacket{LastFlag: true, Body: bytes.Repeat([]byte{0xAB}, 32)}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got EncryptedPacket
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.LastFlag != want.LastFlag || !bytes.Equal(got.Body, want.Body) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestEncryptedPacketRejectsShortBody(t *testing.T) {
	p := &EncryptedPacket{Body: make([]byte, MinBodySize-1)}
	if _, err := p.Marshal(); err == nil {
		t.Fatal("expected error marshaling a too-short body")
	}
}

func TestEncryptedPacketUnmarshalRejectsShortBody(t *testing.T) {
	ok := &EncryptedPacket{Body: make([]byte, MinBodySize)}
	encoded, _ := ok.Marshal()
	truncated := encoded[:len(encoded)-1]
	var got EncryptedPacket
	if err := got.Unmarshal(truncated, protocol.Options{}); err == nil {
		t.Fatal("expected error for truncated body")
	}
}
