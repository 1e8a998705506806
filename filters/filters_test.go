package filters

import (
	"bytes"
	"testing"

	"github.com/kcrt/qr-code-print/ir/raw"
)

func TestFlateRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("q 100 0 0 100 50 692 cm /Im7 Do Q\n"), 40)
	enc, err := FlateEncode(payload)
	if err != nil {
		t.Fatalf("FlateEncode: %v", err)
	}
	if len(enc) >= len(payload) {
		t.Fatalf("repetitive payload did not compress: %d >= %d", len(enc), len(payload))
	}
	dec, err := NewFlateDecoder().Decode(enc, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec, payload) {
		t.Fatal("round trip mismatch")
	}
}

func TestFlateUpPredictor(t *testing.T) {
	// Two 4-byte rows, tag 2 (Up): second row adds the first.
	rows := []byte{
		0, 1, 2, 3, 4,
		2, 1, 1, 1, 1,
	}
	enc, err := FlateEncode(rows)
	if err != nil {
		t.Fatal(err)
	}
	params := raw.Dict()
	params.Set("Predictor", raw.NumberInt(12))
	params.Set("Columns", raw.NumberInt(4))
	dec, err := NewFlateDecoder().Decode(enc, params)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{1, 2, 3, 4, 2, 3, 4, 5}
	if !bytes.Equal(dec, want) {
		t.Fatalf("predictor output = %v, want %v", dec, want)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	dec, err := NewASCIIHexDecoder().Decode([]byte("48 65 6C 6C 6F>"), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(dec) != "Hello" {
		t.Fatalf("got %q", dec)
	}
	// Odd digit count pads with zero.
	dec, err = NewASCIIHexDecoder().Decode([]byte("48656C6C6F2>"), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(dec) != "Hello " {
		t.Fatalf("got %q", dec)
	}
}

func TestDecodeStreamFilterChain(t *testing.T) {
	payload := []byte("BT /F1 12 Tf ET")
	enc, err := FlateEncode(payload)
	if err != nil {
		t.Fatal(err)
	}
	dict := raw.Dict()
	dict.Set("Filter", raw.NameLiteral("FlateDecode"))
	stm := raw.NewStream(dict, enc)
	dec, err := NewPipeline().DecodeStream(stm, nil)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if !bytes.Equal(dec, payload) {
		t.Fatal("mismatch")
	}
}

func TestDecodeUnknownFilter(t *testing.T) {
	if _, err := NewPipeline().Decode(nil, []string{"DCTDecode"}, nil); err == nil {
		t.Fatal("expected error for unregistered filter")
	}
}
