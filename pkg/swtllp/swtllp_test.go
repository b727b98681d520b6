package swtllp

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncapsulateMapsEtherType(t *testing.T) {
	tests := []struct {
		name      string
		tunFrame  []byte
		wantTag   byte
		wantBytes []byte
	}{
		{
			name:      "IPv4",
			tunFrame:  []byte{0x00, 0x00, 0x08, 0x00, 0xDE, 0xAD, 0xBE, 0xEF},
			wantTag:   TagIPv4,
			wantBytes: []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		{
			name:      "IPv6",
			tunFrame:  []byte{0x00, 0x00, 0x86, 0xDD, 0x60, 0x00},
			wantTag:   TagIPv6,
			wantBytes: []byte{0x60, 0x00},
		},
	}

	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := a.Encapsulate(tt.tunFrame)
			if err != nil {
				t.Fatalf("Encapsulate: %v", err)
			}
			if out[0] != tt.wantTag {
				t.Errorf("tag = 0x%02x, want 0x%02x", out[0], tt.wantTag)
			}
			if !bytes.Equal(out[1:], tt.wantBytes) {
				t.Errorf("payload = %x, want %x", out[1:], tt.wantBytes)
			}
		})
	}
}

func TestEncapsulateRejectsUnknownEtherType(t *testing.T) {
	a := New()
	_, err := a.Encapsulate([]byte{0x00, 0x00, 0x08, 0x06, 0x01, 0x02})
	if !errors.Is(err, ErrUnknownProtocol) {
		t.Errorf("err = %v, want ErrUnknownProtocol", err)
	}
}

func TestEncapsulateRejectsShortFrame(t *testing.T) {
	a := New()
	_, err := a.Encapsulate([]byte{0x00, 0x00})
	if !errors.Is(err, ErrFrameTooShort) {
		t.Errorf("err = %v, want ErrFrameTooShort", err)
	}
}

func TestDecapsulateSynthesizesPrefix(t *testing.T) {
	a := New()

	out, ok := a.Decapsulate([]byte{TagIPv4, 0xDE, 0xAD, 0xBE, 0xEF})
	if !ok {
		t.Fatal("Decapsulate should succeed for a known tag")
	}
	want := []byte{0x00, 0x00, 0x08, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(out, want) {
		t.Errorf("tunFrame = %x, want %x", out, want)
	}

	out, ok = a.Decapsulate([]byte{TagIPv6, 0x60})
	if !ok {
		t.Fatal("Decapsulate should succeed for IPv6 tag")
	}
	want = []byte{0x00, 0x00, 0x86, 0xDD, 0x60}
	if !bytes.Equal(out, want) {
		t.Errorf("tunFrame = %x, want %x", out, want)
	}
}

func TestDecapsulateDropsUnknownTag(t *testing.T) {
	a := New()
	_, ok := a.Decapsulate([]byte{0x7F, 0x00})
	if ok {
		t.Fatal("unknown tag should be rejected, not synthesized")
	}
}

func TestRoundTrip(t *testing.T) {
	a := New()
	original := []byte{0x00, 0x00, 0x08, 0x00, 1, 2, 3, 4, 5}

	encapsulated, err := a.Encapsulate(original)
	if err != nil {
		t.Fatalf("Encapsulate: %v", err)
	}
	roundTripped, ok := a.Decapsulate(encapsulated)
	if !ok {
		t.Fatal("Decapsulate failed on a just-encapsulated frame")
	}
	if !bytes.Equal(roundTripped, original) {
		t.Errorf("round trip = %x, want %x", roundTripped, original)
	}
}
