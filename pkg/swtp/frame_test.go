package swtp

import (
	"bytes"
	"errors"
	"testing"
)

func TestDataFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		sendSeq Seq
		recvSeq Seq
		payload []byte
	}{
		{"zero sequences, no payload", 0, 0, nil},
		{"typical payload", 3, 7, []byte{0x01, 0xDE, 0xAD, 0xBE, 0xEF}},
		{"max sequence numbers", seqModulo - 1, seqModulo - 1, []byte("hello")},
		{"max payload size", 12, 5, bytes.Repeat([]byte{0x42}, MaxPayloadSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeData(tt.sendSeq, tt.recvSeq, tt.payload)
			if err != nil {
				t.Fatalf("EncodeData: %v", err)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			if decoded.IsControl {
				t.Fatal("decoded frame marked as control")
			}
			if decoded.SendSeq != tt.sendSeq {
				t.Errorf("SendSeq = %d, want %d", decoded.SendSeq, tt.sendSeq)
			}
			if decoded.RecvSeq != tt.recvSeq {
				t.Errorf("RecvSeq = %d, want %d", decoded.RecvSeq, tt.recvSeq)
			}
			if !bytes.Equal(decoded.Payload, tt.payload) {
				t.Errorf("Payload = %x, want %x", decoded.Payload, tt.payload)
			}
		})
	}
}

func TestControlFrameRoundTrip(t *testing.T) {
	kinds := []ControlKind{ControlSABM, ControlDISC, ControlTEST, ControlSREJ, ControlREJ, ControlRR, ControlRNR}

	for _, kind := range kinds {
		encoded := EncodeControl(kind, 1234)
		if len(encoded) != HeaderSize {
			t.Fatalf("control frame size = %d, want %d", len(encoded), HeaderSize)
		}

		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !decoded.IsControl {
			t.Fatal("decoded frame not marked as control")
		}
		if decoded.Kind != kind {
			t.Errorf("Kind = %s, want %s", decoded.Kind, kind)
		}
		if decoded.RecvSeq != 1234 {
			t.Errorf("RecvSeq = %d, want 1234", decoded.RecvSeq)
		}
	}
}

func TestSABMCapacity(t *testing.T) {
	encoded := EncodeControl(ControlSABM, 8)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Capacity() != 8 {
		t.Errorf("Capacity() = %d, want 8", decoded.Capacity())
	}
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02})
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("err = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeRejectsOversizedFrame(t *testing.T) {
	_, err := Decode(make([]byte, MaxFrameSize+1))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("err = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeRejectsOversizedControlFrame(t *testing.T) {
	data := EncodeControl(ControlRR, 1)
	data = append(data, 0x00) // 5 bytes: no longer a valid control frame
	_, err := Decode(data)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("err = %v, want ErrMalformedFrame", err)
	}
}

func TestEncodeDataRejectsOversizedPayload(t *testing.T) {
	_, err := EncodeData(0, 0, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestReservedKindIgnored(t *testing.T) {
	// Kind 3 is reserved; the codec still decodes it faithfully, leaving
	// the decision to ignore it up to the engine dispatch.
	encoded := EncodeControl(controlReserved3, 0)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != controlReserved3 {
		t.Errorf("Kind = %d, want %d", decoded.Kind, controlReserved3)
	}
}
