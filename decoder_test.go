package jpeg

import (
	"bytes"
	"image"
	"testing"

	"github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
)

// seg builds a marker segment: 0xFF, code, big-endian length (including
// the length field itself), then payload.
func seg(code byte, payload []byte) []byte {
	l := len(payload) + 2
	out := []byte{0xFF, code, byte(l >> 8), byte(l)}
	return append(out, payload...)
}

func dqtAllOnes(tq byte) []byte {
	payload := make([]byte, 1+64)
	payload[0] = tq // Pq=0
	for i := 1; i <= 64; i++ {
		payload[i] = 1
	}
	return seg(0xDB, payload)
}

// dhtSingleZero builds a DHT defining exactly one 1-bit code (code 0)
// mapping to symbol 0x00, for the given class (0=DC,1=AC) and id.
func dhtSingleZero(class, id byte) []byte {
	payload := make([]byte, 1+16+1)
	payload[0] = class<<4 | id
	payload[1] = 1 // one code of length 1
	payload[17] = 0x00
	return seg(0xC4, payload)
}

func sof0(width, height uint16, comps [][3]byte) []byte {
	payload := []byte{8, byte(height >> 8), byte(height), byte(width >> 8), byte(width), byte(len(comps))}
	for _, c := range comps {
		payload = append(payload, c[0], c[1], c[2])
	}
	return seg(0xC0, payload)
}

func sos(comps [][2]byte, ss, se, ahal byte) []byte {
	payload := []byte{byte(len(comps))}
	for _, c := range comps {
		payload = append(payload, c[0], c[1])
	}
	payload = append(payload, ss, se, ahal)
	return seg(0xDA, payload)
}

// TestDecodeGrayscaleSingleBlock builds a minimal baseline grayscale
// JPEG (scenario 1: single 8x8 block, DC-only, all-zero AC) and checks
// Decode produces an 8x8 Gray image with uniform mid-gray pixels,
// matching the decoded DC coefficient's level-shifted value.
func TestDecodeGrayscaleSingleBlock(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8}) // SOI
	buf.Write(dqtAllOnes(0))
	buf.Write(dhtSingleZero(0, 0)) // DC table: code 0 -> size 0 (DC diff = 0)
	buf.Write(dhtSingleZero(1, 0)) // AC table: code 0 -> EOB
	buf.Write(sof0(8, 8, [][3]byte{{1, 0x11, 0}}))
	buf.Write(sos([][2]byte{{1, 0x00}}, 0, 63, 0x00))
	buf.WriteByte(0x3F) // bits: DC(0) AC(0) then 1-padding
	buf.Write([]byte{0xFF, 0xD9})

	sink := &ImageSink{}
	res, err := Decode(bytes.NewReader(buf.Bytes()), sink, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Width != 8 || res.Height != 8 {
		t.Fatalf("dimensions = %dx%d, want 8x8", res.Width, res.Height)
	}
	if res.ColorSpace != ColorGrayscale {
		t.Fatalf("color space = %v, want Grayscale", res.ColorSpace)
	}
	img := sink.Image()
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("image type = %T, want *image.Gray", img)
	}
	// DC diff decoded as 0, dequantized DC stays 0, so the IDCT of an
	// all-zero block is flat 128 after level shift.
	want := byte(128)
	for i, v := range gray.Pix {
		if v != want {
			t.Fatalf("pixel %d = %d, want %d", i, v, want)
		}
	}
}

func TestDecodeRejectsMissingSOI(t *testing.T) {
	data := []byte{0xFF, 0xD9} // a bare EOI marker, never preceded by SOI
	_, err := Decode(bytes.NewReader(data), &ImageSink{}, Options{})
	if err == nil {
		t.Fatal("expected error for missing SOI")
	}
	jerr, ok := err.(*Error)
	if !ok || jerr.Kind != ErrMissingSOI {
		t.Fatalf("expected ErrMissingSOI, got %v", err)
	}
}

func TestDecodeRejectsMultipleSOF(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	buf.Write(dqtAllOnes(0))
	buf.Write(dhtSingleZero(0, 0))
	buf.Write(dhtSingleZero(1, 0))
	buf.Write(sof0(8, 8, [][3]byte{{1, 0x11, 0}}))
	buf.Write(sof0(8, 8, [][3]byte{{1, 0x11, 0}}))

	_, err := Decode(bytes.NewReader(buf.Bytes()), &ImageSink{}, Options{})
	if err == nil {
		t.Fatal("expected error for duplicate SOF")
	}
	jerr, ok := err.(*Error)
	if !ok || jerr.Kind != ErrMultipleSOF {
		t.Fatalf("expected ErrMultipleSOF, got %v", err)
	}
}

// TestSegmentInventoryOrder checks the informational segment list
// records every length-prefixed segment (SOI and EOI carry no length
// and are not listed) with its payload length, in stream order, using quicktest
// for readable assertions and go-cmp to diff the whole slice at once
// rather than a field-by-field comparison.
func TestSegmentInventoryOrder(t *testing.T) {
	c := quicktest.New(t)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	buf.Write(dqtAllOnes(0))
	buf.Write(dhtSingleZero(0, 0))
	buf.Write(dhtSingleZero(1, 0))
	buf.Write(sof0(8, 8, [][3]byte{{1, 0x11, 0}}))
	buf.Write(sos([][2]byte{{1, 0x00}}, 0, 63, 0x00))
	buf.WriteByte(0x3F)
	buf.Write([]byte{0xFF, 0xD9})

	res, err := Decode(bytes.NewReader(buf.Bytes()), &ImageSink{}, Options{})
	c.Assert(err, quicktest.IsNil)

	want := []SegmentInfo{
		{Marker: "DQT", Length: 65},
		{Marker: "DHT", Length: 18},
		{Marker: "DHT", Length: 18},
		{Marker: "SOF", Length: 9},
		{Marker: "SOS", Length: 6},
	}
	if diff := cmp.Diff(want, res.Segments()); diff != "" {
		t.Fatalf("segment inventory mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetadataStopsAfterSOF(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	buf.Write(dqtAllOnes(0))
	buf.Write(sof0(4, 4, [][3]byte{{1, 0x11, 0}}))
	// deliberately no SOS/entropy data/EOI: ParseMetadata must not
	// need them.
	res, err := ParseMetadata(bytes.NewReader(buf.Bytes()), Options{})
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if res.Width != 4 || res.Height != 4 {
		t.Fatalf("dimensions = %dx%d, want 4x4", res.Width, res.Height)
	}
}
