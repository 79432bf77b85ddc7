package jpeg

// huffNode is a node of the canonical Huffman binary trie built from a
// JPEG DHT segment's 16 length counts and symbol list. Leaves carry a
// symbol; internal nodes carry left (bit 0) and right (bit 1) children.
// Grounded on the teacher's buildTree/hcnode in segment.go, generalized
// here to also populate an 8-bit lookahead table for the common case of
// short codes.
type huffNode struct {
	left, right *huffNode
	symbol      byte
	leaf        bool
}

const huffLUTBits = 8

// huffLUTEntry is a precomputed fast-path decode result for an 8-bit
// lookahead: if a code is no longer than huffLUTBits, decoding it costs
// one table lookup instead of a bit-by-bit tree walk.
type huffLUTEntry struct {
	symbol byte
	length uint8 // 0 means "no code of length <= huffLUTBits matches"
}

// huffTable is a decoded Huffman table (one of the 8 class/id slots:
// class 0 = DC, class 1 = AC; id 0..3).
type huffTable struct {
	root *huffNode
	lut  [1 << huffLUTBits]huffLUTEntry
	set  bool
}

// buildHuffTable builds the canonical Huffman code tree for 16 bit-length
// counts (bits[1..16], bits[0] unused) and their associated symbols, in
// the order DHT segments encode them. It mirrors the teacher's
// buildTree: codes are assigned in symbol order, shortest-code-first,
// canonical JPEG style (ITU-T T.81 Annex C).
func buildHuffTable(counts [17]int, symbols []byte) (*huffTable, error) {
	ht := &huffTable{}
	root := &huffNode{}

	type codeEntry struct {
		sym  byte
		code uint32
		len  uint
	}
	var entries []codeEntry
	code := uint32(0)
	k := 0
	for length := 1; length <= 16; length++ {
		for i := 0; i < counts[length]; i++ {
			if k >= len(symbols) {
				return nil, newErr("buildHuffTable", ErrBadHuffmanCode, "symbol count does not match bit-length counts")
			}
			entries = append(entries, codeEntry{sym: symbols[k], code: code, len: uint(length)})
			k++
			code++
		}
		code <<= 1
	}
	if k != len(symbols) {
		return nil, newErr("buildHuffTable", ErrBadHuffmanCode, "unused symbols remain")
	}

	for _, e := range entries {
		n := root
		for b := int(e.len) - 1; b >= 0; b-- {
			bit := (e.code >> uint(b)) & 1
			if bit == 0 {
				if n.left == nil {
					n.left = &huffNode{}
				}
				n = n.left
			} else {
				if n.right == nil {
					n.right = &huffNode{}
				}
				n = n.right
			}
		}
		if n.leaf || n.left != nil || n.right != nil {
			return nil, newErr("buildHuffTable", ErrBadHuffmanCode, "overlapping or malformed Huffman codes")
		}
		n.leaf = true
		n.symbol = e.sym

		if e.len <= huffLUTBits {
			shift := huffLUTBits - e.len
			base := e.code << shift
			for fill := uint32(0); fill < (1 << shift); fill++ {
				ht.lut[base+fill] = huffLUTEntry{symbol: e.sym, length: uint8(e.len)}
			}
		}
	}
	ht.root = root
	ht.set = true
	return ht, nil
}

// decodeSymbol walks the tree (or LUT, when possible) one bit at a time
// and returns the next Huffman symbol from br.
func (ht *huffTable) decodeSymbol(br *bitReader) (byte, error) {
	if !ht.set {
		return 0, newErr("decodeSymbol", ErrBadHuffmanCode, "Huffman table not defined")
	}
	if bits, ok := br.PeekBits(huffLUTBits); ok {
		e := ht.lut[bits]
		if e.length != 0 {
			if err := br.SkipBits(uint(e.length)); err != nil {
				return 0, err
			}
			return e.symbol, nil
		}
	}
	n := ht.root
	for {
		bit, err := br.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			n = n.left
		} else {
			n = n.right
		}
		if n == nil {
			return 0, newErr("decodeSymbol", ErrBadHuffmanCode, "no matching Huffman code")
		}
		if n.leaf {
			return n.symbol, nil
		}
	}
}
