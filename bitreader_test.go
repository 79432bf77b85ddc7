package jpeg

import (
	"bufio"
	"bytes"
	"testing"
)

func TestBitReaderDestuffing(t *testing.T) {
	// 0xFF 0x00 is a stuffed literal 0xFF; the two plain bytes around
	// it should read back unchanged.
	data := []byte{0x55, 0xFF, 0x00, 0xAA}
	br := newBitReader(bufio.NewReader(bytes.NewReader(data)))

	v, err := br.ReadBits(8)
	if err != nil || v != 0x55 {
		t.Fatalf("byte 1: got %#x, err %v", v, err)
	}
	v, err = br.ReadBits(8)
	if err != nil || v != 0xFF {
		t.Fatalf("destuffed byte: got %#x, err %v", v, err)
	}
	v, err = br.ReadBits(8)
	if err != nil || v != 0xAA {
		t.Fatalf("byte 3: got %#x, err %v", v, err)
	}
}

func TestBitReaderStopsAtMarker(t *testing.T) {
	data := []byte{0xAB, 0xFF, 0xD0, 0x00} // RST0 after one data byte
	br := newBitReader(bufio.NewReader(bytes.NewReader(data)))

	v, err := br.ReadBits(8)
	if err != nil || v != 0xAB {
		t.Fatalf("data byte: got %#x, err %v", v, err)
	}
	_, err = br.ReadBit()
	if err != errMarkerInStream {
		t.Fatalf("expected errMarkerInStream, got %v", err)
	}
	if br.Marker() != uint16(markRST0) {
		t.Fatalf("expected RST0 pending, got %#x", br.Marker())
	}
}

func TestExtendSignExtension(t *testing.T) {
	cases := []struct {
		v, size int32
		want    int32
	}{
		{0, 1, -1},
		{1, 1, 1},
		{0, 2, -3},
		{3, 2, 3},
		{0, 0, 0},
	}
	for _, c := range cases {
		got := extend(c.v, uint(c.size))
		if got != c.want {
			t.Errorf("extend(%d,%d) = %d, want %d", c.v, c.size, got, c.want)
		}
	}
}

func TestPeekBitsMatchesReadBits(t *testing.T) {
	data := []byte{0b10110100, 0b11001010}
	br := newBitReader(bufio.NewReader(bytes.NewReader(data)))

	peek, ok := br.PeekBits(5)
	if !ok {
		t.Fatalf("PeekBits reported not ok")
	}
	if peek != 0b10110 {
		t.Fatalf("PeekBits = %05b, want 10110", peek)
	}
	got, err := br.ReadBits(5)
	if err != nil || got != peek {
		t.Fatalf("ReadBits after PeekBits = %05b (err %v), want %05b", got, err, peek)
	}
}
