package jpeg

import (
	"bufio"
	"bytes"
	"testing"
)

// buildSimpleTable constructs a 3-symbol canonical table:
// symbol 'A' -> code 0 (1 bit), 'B' -> code 10 (2 bits), 'C' -> code 11 (2 bits).
func buildSimpleTable(t *testing.T) *huffTable {
	t.Helper()
	var counts [17]int
	counts[1] = 1
	counts[2] = 2
	symbols := []byte{'A', 'B', 'C'}
	ht, err := buildHuffTable(counts, symbols)
	if err != nil {
		t.Fatalf("buildHuffTable: %v", err)
	}
	return ht
}

func TestHuffmanDecodeSymbol(t *testing.T) {
	ht := buildSimpleTable(t)

	// bits: 0 (A), 10 (B), 11 (C) => packed as 0 10 11 000 = 0b01011000 = 0x58
	data := []byte{0b01011000}
	br := newBitReader(bufio.NewReader(bytes.NewReader(data)))

	for _, want := range []byte{'A', 'B', 'C'} {
		got, err := ht.decodeSymbol(br)
		if err != nil {
			t.Fatalf("decodeSymbol: %v", err)
		}
		if got != want {
			t.Fatalf("decodeSymbol = %c, want %c", got, want)
		}
	}
}

func TestHuffmanRejectsSymbolCountMismatch(t *testing.T) {
	var counts [17]int
	counts[1] = 2 // two 1-bit codes (0 and 1): a complete, valid tree
	symbols := []byte{'A', 'B'}
	if _, err := buildHuffTable(counts, symbols); err != nil {
		t.Fatalf("two 1-bit codes should be valid: %v", err)
	}

	// Now declare one 1-bit and one 2-bit code but supply only one
	// symbol, so the counts cannot be satisfied.
	badCounts := [17]int{}
	badCounts[1] = 1
	badCounts[2] = 1
	badSymbols := []byte{'A'} // too few symbols for the declared counts
	if _, err := buildHuffTable(badCounts, badSymbols); err == nil {
		t.Fatalf("expected error for symbol/count mismatch")
	}
}
