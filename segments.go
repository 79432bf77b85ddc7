package jpeg

// handleDQT parses a Define Quantization Table segment: one or more
// Pq/Tq-prefixed tables of 64 entries each (1 byte/entry if Pq=0, 2
// bytes/entry if Pq=1), stored on the wire in zig-zag order. Grounded
// on the teacher's defineQuantizationTable in segment.go.
func (d *decoder) handleDQT(length uint) error {
	payload, err := d.mr.readExact(length)
	if err != nil {
		return err
	}
	d.recordSegment("DQT", int(length))

	pos := 0
	for pos < len(payload) {
		pq := payload[pos] >> 4
		tq := payload[pos] & 0x0f
		pos++
		if pq > 1 {
			return newErr("handleDQT", ErrBadPq, "invalid quantization table precision %d", pq)
		}
		if tq > 3 {
			return newErr("handleDQT", ErrBadTq, "invalid quantization table destination %d", tq)
		}
		entrySize := 1
		if pq == 1 {
			entrySize = 2
		}
		if pos+64*entrySize > len(payload) {
			return newErr("handleDQT", ErrSegmentLengthMismatch, "DQT segment too short for table %d", tq)
		}
		qt := &quantTable{set: true}
		for i := 0; i < 64; i++ {
			var v uint16
			if pq == 0 {
				v = uint16(payload[pos])
				pos++
			} else {
				v = uint16(payload[pos])<<8 | uint16(payload[pos+1])
				pos += 2
			}
			qt.values[zigZagOrder[i]] = v
		}
		d.storeQuantTable(tq, qt)
	}
	return nil
}

// storeQuantTable stashes a quantization table until a frame exists to
// own it, copying it into the active frame immediately when one does.
func (d *decoder) storeQuantTable(tq byte, qt *quantTable) {
	if d.frame != nil {
		d.frame.quantTables[tq] = qt
		return
	}
	if d.pendingQuant == nil {
		d.pendingQuant = &[4]*quantTable{}
	}
	d.pendingQuant[tq] = qt
}

// handleDHT parses a Define Huffman Table segment: one or more
// Tc/Th-prefixed tables, each 16 bit-length counts followed by their
// symbols. Grounded on the teacher's defineHuffmanTable/buildTree in
// segment.go.
func (d *decoder) handleDHT(length uint) error {
	payload, err := d.mr.readExact(length)
	if err != nil {
		return err
	}
	d.recordSegment("DHT", int(length))

	pos := 0
	for pos < len(payload) {
		if pos+17 > len(payload) {
			return newErr("handleDHT", ErrSegmentLengthMismatch, "DHT segment truncated")
		}
		tc := payload[pos] >> 4
		th := payload[pos] & 0x0f
		pos++
		if tc > 1 {
			return newErr("handleDHT", ErrBadTc, "invalid Huffman table class %d", tc)
		}
		if th > 3 {
			return newErr("handleDHT", ErrBadTh, "invalid Huffman table destination %d", th)
		}
		var counts [17]int
		total := 0
		for i := 1; i <= 16; i++ {
			counts[i] = int(payload[pos])
			total += counts[i]
			pos++
		}
		if pos+total > len(payload) {
			return newErr("handleDHT", ErrSegmentLengthMismatch, "DHT segment truncated in symbol list")
		}
		symbols := payload[pos : pos+total]
		pos += total

		ht, err := buildHuffTable(counts, symbols)
		if err != nil {
			return err
		}
		d.storeHuffTable(tc, th, ht)
	}
	return nil
}

func (d *decoder) storeHuffTable(tc, th byte, ht *huffTable) {
	if d.frame != nil {
		if tc == 0 {
			d.frame.dcTables[th] = ht
		} else {
			d.frame.acTables[th] = ht
		}
		return
	}
	if tc == 0 {
		d.pendingDC[th] = ht
	} else {
		d.pendingAC[th] = ht
	}
}

// handleDRI parses Define Restart Interval: a single 16-bit MCU count.
func (d *decoder) handleDRI(length uint) error {
	payload, err := d.mr.readExact(length)
	if err != nil {
		return err
	}
	d.recordSegment("DRI", int(length))
	if len(payload) != 2 {
		return newErr("handleDRI", ErrSegmentLengthMismatch, "DRI payload must be 2 bytes, got %d", len(payload))
	}
	interval := uint16(payload[0])<<8 | uint16(payload[1])
	if d.frame != nil {
		d.frame.restartInterval = interval
	}
	d.pendingRestartInterval = interval
	d.haveRestartInterval = true
	return nil
}

const (
	fixedFrameHeaderSize   = 6
	frameComponentSpecSize = 3
)

// handleSOF parses a Start Of Frame segment (SOF0/1/2): precision,
// dimensions, and per-component sampling/quantization bindings.
// Grounded on the teacher's startOfFrame in segment.go.
func (d *decoder) handleSOF(m marker, length uint) error {
	payload, err := d.mr.readExact(length)
	if err != nil {
		return err
	}
	d.recordSegment("SOF", int(length))

	if length < fixedFrameHeaderSize {
		return newErr("handleSOF", ErrSegmentLengthMismatch, "SOF header too short (%d)", length)
	}
	precision := payload[0]
	if precision != 8 {
		return newErr("handleSOF", ErrUnsupportedPrecision, "unsupported sample precision %d", precision)
	}
	height := uint16(payload[1])<<8 | uint16(payload[2])
	width := uint16(payload[3])<<8 | uint16(payload[4])
	nComponents := int(payload[5])
	if nComponents != 1 && nComponents != 3 && nComponents != 4 {
		return newErr("handleSOF", ErrUnsupportedColorMode, "unsupported component count %d", nComponents)
	}
	if uint(length) < fixedFrameHeaderSize+uint(nComponents)*frameComponentSpecSize {
		return newErr("handleSOF", ErrSegmentLengthMismatch, "SOF header too short for %d components", nComponents)
	}
	if d.opt.MaxWidth > 0 && int(width) > d.opt.MaxWidth {
		return newErr("handleSOF", ErrInvalidMCUCoordinate, "frame width %d exceeds MaxWidth %d", width, d.opt.MaxWidth)
	}
	if d.opt.MaxHeight > 0 && int(height) > d.opt.MaxHeight {
		return newErr("handleSOF", ErrInvalidMCUCoordinate, "frame height %d exceeds MaxHeight %d", height, d.opt.MaxHeight)
	}

	f := &frameState{
		precision:      precision,
		width:          width,
		height:         height,
		progressive:    m == markSOF2,
		adobeTransform: d.adobeTransform,
	}

	pos := fixedFrameHeaderSize
	var maxH, maxV uint8
	for i := 0; i < nComponents; i++ {
		id := payload[pos]
		hv := payload[pos+1]
		tq := payload[pos+2]
		h := hv >> 4
		v := hv & 0x0f
		if h == 0 || h > 4 || v == 0 || v > 4 {
			return newErr("handleSOF", ErrUnsupportedColorMode, "invalid sampling factors %d x %d", h, v)
		}
		if tq > 3 {
			return newErr("handleSOF", ErrBadTq, "invalid quantization table index %d", tq)
		}
		if h > maxH {
			maxH = h
		}
		if v > maxV {
			maxV = v
		}
		f.components = append(f.components, &component{id: id, h: h, v: v, tq: tq})
		pos += frameComponentSpecSize
	}
	f.maxH, f.maxV = maxH, maxV

	maxSamplesPerMCUx := int(maxH) * 8
	maxSamplesPerMCUy := int(maxV) * 8
	f.mcusPerLine = (int(width) + maxSamplesPerMCUx - 1) / maxSamplesPerMCUx
	f.mcusPerColumn = (int(height) + maxSamplesPerMCUy - 1) / maxSamplesPerMCUy
	f.allocateBlocks()

	cs, err := f.deduceColorSpace()
	if err != nil {
		return err
	}
	f.colorSpace = cs

	if d.pendingQuant != nil {
		f.quantTables = *d.pendingQuant
	}
	for i, ht := range d.pendingDC {
		if ht != nil {
			f.dcTables[i] = ht
		}
	}
	for i, ht := range d.pendingAC {
		if ht != nil {
			f.acTables[i] = ht
		}
	}
	if d.haveRestartInterval {
		f.restartInterval = d.pendingRestartInterval
	}

	d.frame = f
	d.log.Debug().Uint16("width", width).Uint16("height", height).
		Int("components", nComponents).Bool("progressive", f.progressive).
		Str("colorSpace", cs.String()).Msg("SOF")
	return nil
}
