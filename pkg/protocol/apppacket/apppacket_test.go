package apppacket

import (
	"bytes"
	"testing"

	"github.com/saltchannel/saltchannel-go/pkg/protocol"
)

func TestAppPacketRoundTrip(t *testing.T) {
	want := &AppPacket{Time: 1, Data: []byte("hello")}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got AppPacket
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Time != want.Time || !bytes.Equal(got.Data, want.Data) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAppPacketRoundTripEmptyData(t *testing.T) {
	want := &AppPacket{Time: 0}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got AppPacket
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Data) != 0 {
		t.Fatalf("got Data %v, want empty", got.Data)
	}
}

func TestMultiAppPacketRoundTrip(t *testing.T) {
	want := &MultiAppPacket{Time: 5, Messages: [][]byte{[]byte("one"), []byte("two"), []byte("three")}}
	encoded, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got MultiAppPacket
	if err := got.Unmarshal(encoded, protocol.Options{}); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("got %d messages, want %d", len(got.Messages), len(want.Messages))
	}
	for i := range want.Messages {
		if !bytes.Equal(got.Messages[i], want.Messages[i]) {
			t.Fatalf("message %d = %q, want %q", i, got.Messages[i], want.Messages[i])
		}
	}
}

func TestMultiAppPacketRejectsTruncatedPayload(t *testing.T) {
	m := &MultiAppPacket{Time: 1, Messages: [][]byte{[]byte("abcdef")}}
	encoded, _ := m.Marshal()
	truncated := encoded[:len(encoded)-2]
	var got MultiAppPacket
	if err := got.Unmarshal(truncated, protocol.Options{}); err == nil {
		t.Fatal("expected error for truncated MultiAppPacket")
	}
}

func TestShouldUse(t *testing.T) {
	cases := []struct {
		name string
		msgs [][]byte
		want bool
	}{
		{"single message", [][]byte{[]byte("a")}, false},
		{"no messages", nil, false},
		{"two small messages", [][]byte{[]byte("a"), []byte("b")}, true},
		{"one message too large", [][]byte{make([]byte, MaxMessageLength+1), []byte("b")}, false},
		{"total too large", [][]byte{make([]byte, MaxEncodedSize), make([]byte, MaxEncodedSize)}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ShouldUse(c.msgs); got != c.want {
				t.Fatalf("ShouldUse() = %v, want %v", got, c.want)
			}
		})
	}
}
