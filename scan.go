package jpeg

// scanComponent binds one SOS component selector to its frame
// component and the Huffman tables it uses for this scan.
type scanComponent struct {
	comp    *component
	dcTable *huffTable
	acTable *huffTable
}

// scanHeader is the parsed SOS payload: component bindings plus the
// spectral-selection/successive-approximation parameters that select
// which of the five entropy-decode algorithms (sequential,
// DC-first, DC-refine, AC-first, AC-refine) applies, per spec section
// 4.6 and ITU-T T.81 Annex G.
type scanHeader struct {
	comps []scanComponent
	ss, se uint8
	ah, al uint8
}

func (d *decoder) parseScanHeader(payload []byte) (*scanHeader, error) {
	if len(payload) < 1 {
		return nil, newErr("parseScanHeader", ErrSegmentLengthMismatch, "SOS header empty")
	}
	ns := int(payload[0])
	if ns < 1 || ns > 4 {
		return nil, newErr("parseScanHeader", ErrUnsupportedColorMode, "invalid scan component count %d", ns)
	}
	if len(payload) < 1+2*ns+3 {
		return nil, newErr("parseScanHeader", ErrSegmentLengthMismatch, "SOS header too short for %d components", ns)
	}
	sh := &scanHeader{}
	pos := 1
	for i := 0; i < ns; i++ {
		cs := payload[pos]
		tdta := payload[pos+1]
		pos += 2
		comp := d.frame.componentByID(cs)
		if comp == nil {
			return nil, newErr("parseScanHeader", ErrInvalidMCUCoordinate, "scan references unknown component id %d", cs)
		}
		td := tdta >> 4
		ta := tdta & 0x0f
		if td > 3 || ta > 3 {
			return nil, newErr("parseScanHeader", ErrBadTh, "invalid Huffman table selector")
		}
		sh.comps = append(sh.comps, scanComponent{comp: comp, dcTable: d.frame.dcTables[td], acTable: d.frame.acTables[ta]})
	}
	sh.ss = payload[pos]
	sh.se = payload[pos+1]
	ahal := payload[pos+2]
	sh.ah = ahal >> 4
	sh.al = ahal & 0x0f
	if sh.ss > 63 || sh.se > 63 || sh.ss > sh.se {
		return nil, newErr("parseScanHeader", ErrSegmentLengthMismatch, "invalid spectral selection Ss=%d Se=%d", sh.ss, sh.se)
	}

	needDC := sh.ss == 0
	needAC := sh.se > 0 || !d.frame.progressive
	for _, sc := range sh.comps {
		if needDC && sc.dcTable == nil {
			return nil, newErr("parseScanHeader", ErrBadHuffmanCode, "component %d has no DC Huffman table bound", sc.comp.id)
		}
		if needAC && sc.acTable == nil {
			return nil, newErr("parseScanHeader", ErrBadHuffmanCode, "component %d has no AC Huffman table bound", sc.comp.id)
		}
	}
	return sh, nil
}

// handleSOS parses a Start Of Scan header and decodes its
// entropy-coded segment inline, dispatching to the sequential or one
// of the four progressive decode algorithms per spec section 4.6.
// Grounded on the teacher's processScan/getEcsFct dispatch in
// segment.go (whose four target functions are referenced but never
// defined anywhere in the retrieval pack) and on the bit-level decode
// algorithm actually present in analyse.go's processECS, generalized
// here to the progressive variants.
func (d *decoder) handleSOS(length uint, sink PixelSink) error {
	payload, err := d.mr.readExact(length)
	if err != nil {
		return err
	}
	d.recordSegment("SOS", int(length))

	sh, err := d.parseScanHeader(payload)
	if err != nil {
		return err
	}
	for _, sc := range sh.comps {
		sc.comp.dcPredictor = 0
	}

	br := newBitReader(d.mr.r)
	sd := &scanDecoder{d: d, br: br, sh: sh}

	interleaved := len(sh.comps) > 1
	restartInterval := int(d.frame.restartInterval)

	unitsTotal, unitsPerRow := sd.unitCounts(interleaved)

	unitsSinceRestart := 0
	nextRST := byte(0)
	col, row := 0, 0

	for u := 0; u < unitsTotal; u++ {
		var uerr error
		if interleaved {
			uerr = sd.decodeMCU(col, row)
		} else {
			uerr = sd.decodeSingleUnit(col, row)
		}
		if uerr != nil {
			if _, ok := uerr.(*Error); ok {
				return uerr
			}
			if uerr == errMarkerInStream {
				return wrapErr("handleSOS", ErrUnexpectedMarker, uerr)
			}
			return wrapErr("handleSOS", ErrUnexpectedEOF, uerr)
		}
		col++
		if col >= unitsPerRow {
			col = 0
			row++
		}

		unitsSinceRestart++
		if restartInterval > 0 && unitsSinceRestart == restartInterval && u != unitsTotal-1 {
			if err := sd.handleRestart(&nextRST); err != nil {
				return err
			}
			unitsSinceRestart = 0
			for _, sc := range sh.comps {
				sc.comp.dcPredictor = 0
			}
			sd.eobRun = 0
		}
	}

	// Discard any leftover padding bits between the last decoded
	// coefficient and the marker that ends the entropy-coded segment.
	if err := sd.flushToMarker(); err != nil {
		return err
	}

	// Whatever marker the bitReader's lookahead landed on (RST
	// trailing the last unit, or the real next segment marker)
	// belongs to the outer parse loop now.
	if m := br.Marker(); m != 0 {
		if isRestartMarker(marker(m)) {
			br.ConsumeMarker() // trailing RST with nothing after it in this interval; discard
		} else {
			d.pendingMarker = marker(m)
		}
	}
	return nil
}

// unitCounts returns the number of coding units (MCUs if interleaved,
// individual data units otherwise) in the scan and how many make up
// one row, so restart-interval bookkeeping and progress through the
// component's own block grid stay in lock step. Per ITU-T T.81
// A.2.3, a scan with exactly one component is never interleaved and
// is scanned directly over that component's true (unpadded) data-unit
// extent, not its MCU-padded block grid: the encoder never writes
// entropy data for the padding rows/columns the frame's MCU grid adds
// to accommodate other, more-subsampled components, so counting those
// padding blocks here would desync the bitstream by reading bits that
// belong to the next row or the following segment.
func (sd *scanDecoder) unitCounts(interleaved bool) (total, perRow int) {
	f := sd.d.frame
	if interleaved {
		return f.mcusPerLine * f.mcusPerColumn, f.mcusPerLine
	}
	c := sd.sh.comps[0].comp
	return c.trueBlocksPerLine * c.trueBlocksPerColumn, c.trueBlocksPerLine
}

// scanDecoder holds the mutable state threaded through one scan's
// entropy decode: the bit reader and the progressive AC end-of-band
// run counter (shared across the whole scan, reset at restarts).
type scanDecoder struct {
	d   *decoder
	br  *bitReader
	sh  *scanHeader
	eobRun int
}

func (sd *scanDecoder) decodeMCU(mcuCol, mcuRow int) error {
	for _, sc := range sd.sh.comps {
		c := sc.comp
		for v := 0; v < int(c.v); v++ {
			for h := 0; h < int(c.h); h++ {
				blockCol := mcuCol*int(c.h) + h
				blockRow := mcuRow*int(c.v) + v
				if blockRow >= len(c.blocks) || blockCol >= len(c.blocks[blockRow]) {
					return newErr("decodeMCU", ErrInvalidMCUCoordinate, "MCU position out of range")
				}
				if err := sd.decodeBlock(&sc, &c.blocks[blockRow][blockCol]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (sd *scanDecoder) decodeSingleUnit(col, row int) error {
	sc := &sd.sh.comps[0]
	c := sc.comp
	if row >= len(c.blocks) || col >= len(c.blocks[row]) {
		return newErr("decodeSingleUnit", ErrInvalidMCUCoordinate, "scan position out of range")
	}
	return sd.decodeBlock(sc, &c.blocks[row][col])
}

func (sd *scanDecoder) decodeBlock(sc *scanComponent, blk *Block) error {
	f := sd.d.frame
	switch {
	case !f.progressive:
		return sd.decodeSequentialBlock(sc, blk)
	case sd.sh.ss == 0 && sd.sh.ah == 0:
		return sd.decodeDCFirst(sc, blk)
	case sd.sh.ss == 0 && sd.sh.ah > 0:
		return sd.decodeDCRefine(blk)
	case sd.sh.ss > 0 && sd.sh.ah == 0:
		return sd.decodeACFirst(sc, blk)
	default:
		return sd.decodeACRefine(sc, blk)
	}
}

// decodeSequentialBlock implements baseline/extended-sequential block
// decoding: a DC diff followed by a zero-run/size-coded AC run to
// end-of-block. Grounded on analyse.go's processECS.
func (sd *scanDecoder) decodeSequentialBlock(sc *scanComponent, blk *Block) error {
	diff, err := sd.decodeDCDiff(sc.dcTable)
	if err != nil {
		return err
	}
	sc.comp.dcPredictor += diff
	blk[0] = sc.comp.dcPredictor

	k := 1
	for k < 64 {
		rs, err := sc.acTable.decodeSymbol(sd.br)
		if err != nil {
			return err
		}
		run := int(rs >> 4)
		size := uint(rs & 0x0f)
		if size == 0 {
			if run == 15 {
				k += 16 // ZRL: 16 zero coefficients
				continue
			}
			break // EOB
		}
		k += run
		if k >= 64 {
			return newErr("decodeSequentialBlock", ErrBadHuffmanCode, "zero run overruns block")
		}
		bits, err := sd.br.ReadBits(size)
		if err != nil {
			return err
		}
		blk[zigZagOrder[k]] = extend(int32(bits), size)
		k++
	}
	return nil
}

func (sd *scanDecoder) decodeDCDiff(dcTable *huffTable) (int32, error) {
	size, err := dcTable.decodeSymbol(sd.br)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	if size > 16 {
		return 0, newErr("decodeDCDiff", ErrBadHuffmanCode, "invalid DC coefficient size %d", size)
	}
	bits, err := sd.br.ReadBits(uint(size))
	if err != nil {
		return 0, err
	}
	return extend(int32(bits), uint(size)), nil
}

// decodeDCFirst implements the progressive DC-first-scan algorithm
// (Ss=Se=0, Ah=0): decode one DC diff per block, left-shifted by Al.
func (sd *scanDecoder) decodeDCFirst(sc *scanComponent, blk *Block) error {
	diff, err := sd.decodeDCDiff(sc.dcTable)
	if err != nil {
		return err
	}
	sc.comp.dcPredictor += diff
	blk[0] = sc.comp.dcPredictor << sd.sh.al
	return nil
}

// decodeDCRefine implements the progressive DC-refinement-scan
// algorithm (Ss=Se=0, Ah>0): append one correction bit to the
// previously decoded DC coefficient.
func (sd *scanDecoder) decodeDCRefine(blk *Block) error {
	bit, err := sd.br.ReadBit()
	if err != nil {
		return err
	}
	if bit != 0 {
		blk[0] |= 1 << sd.sh.al
	}
	return nil
}

// decodeACFirst implements the progressive AC-first-scan algorithm
// (Ss>0, Ah=0) with end-of-band runs, per ITU-T T.81 G.1.2.2.
func (sd *scanDecoder) decodeACFirst(sc *scanComponent, blk *Block) error {
	if sd.eobRun > 0 {
		sd.eobRun--
		return nil
	}
	k := int(sd.sh.ss)
	for k <= int(sd.sh.se) {
		rs, err := sc.acTable.decodeSymbol(sd.br)
		if err != nil {
			return err
		}
		run := int(rs >> 4)
		size := uint(rs & 0x0f)
		if size == 0 {
			if run < 15 {
				eobBits, err := sd.br.ReadBits(uint(run))
				if err != nil {
					return err
				}
				sd.eobRun = (1 << run) + int(eobBits) - 1
				break
			}
			k += 16 // ZRL
			continue
		}
		k += run
		if k > int(sd.sh.se) {
			return newErr("decodeACFirst", ErrBadHuffmanCode, "zero run overruns spectral band")
		}
		bits, err := sd.br.ReadBits(size)
		if err != nil {
			return err
		}
		blk[zigZagOrder[k]] = extend(int32(bits), size) << sd.sh.al
		k++
	}
	return nil
}

// decodeACRefine implements the progressive AC-refinement-scan
// algorithm (Ss>0, Ah>0), interleaving zero runs with correction bits
// for previously nonzero coefficients, per ITU-T T.81 G.1.2.3.
func (sd *scanDecoder) decodeACRefine(sc *scanComponent, blk *Block) error {
	p1 := int32(1) << sd.sh.al
	m1 := int32(-1) << sd.sh.al

	k := int(sd.sh.ss)

	if sd.eobRun == 0 {
		for k <= int(sd.sh.se) {
			rs, err := sc.acTable.decodeSymbol(sd.br)
			if err != nil {
				return err
			}
			run := int(rs >> 4)
			size := uint(rs & 0x0f)
			var newCoef int32
			haveNew := false
			if size == 0 {
				if run < 15 {
					eobBits, err := sd.br.ReadBits(uint(run))
					if err != nil {
						return err
					}
					sd.eobRun = (1 << run) + int(eobBits)
					break
				}
				// run == 15: ZRL, skip 16 zero-history coefficients
				// while still refining any nonzero ones in between.
			} else {
				bit, err := sd.br.ReadBit()
				if err != nil {
					return err
				}
				if bit != 0 {
					newCoef = p1
				} else {
					newCoef = m1
				}
				haveNew = true
			}

			for ; k <= int(sd.sh.se); k++ {
				coef := &blk[zigZagOrder[k]]
				if *coef != 0 {
					bit, err := sd.br.ReadBit()
					if err != nil {
						return err
					}
					if bit != 0 && (*coef&p1) == 0 {
						if *coef >= 0 {
							*coef += p1
						} else {
							*coef += m1
						}
					}
					continue
				}
				if run == 0 {
					if haveNew {
						*coef = newCoef
					}
					k++
					break
				}
				run--
			}
		}
	}

	if sd.eobRun > 0 {
		for ; k <= int(sd.sh.se); k++ {
			coef := &blk[zigZagOrder[k]]
			if *coef != 0 {
				bit, err := sd.br.ReadBit()
				if err != nil {
					return err
				}
				if bit != 0 && (*coef&p1) == 0 {
					if *coef >= 0 {
						*coef += p1
					} else {
						*coef += m1
					}
				}
			}
		}
		sd.eobRun--
	}
	return nil
}

// handleRestart validates and consumes the restart marker expected at
// a restart-interval boundary, per spec section 4.6's 3-bit cyclic
// RST validation, tolerating (with a warning) a marker whose cycle
// number doesn't match expectations rather than aborting the decode.
func (sd *scanDecoder) handleRestart(nextRST *byte) error {
	if err := sd.flushToMarker(); err != nil {
		return err
	}
	m := marker(sd.br.Marker())
	if !isRestartMarker(m) {
		return newErr("handleRestart", ErrBadRestartMarker, "expected restart marker, got 0x%04x", uint16(m))
	}
	got := byte(m-markRST0) & 0x07
	if got != *nextRST {
		sd.d.log.Warn().Uint8("expected", *nextRST).Uint8("got", got).Msg("restart marker out of sequence")
	}
	*nextRST = (got + 1) & 0x07
	sd.br.ConsumeMarker()
	return nil
}

// flushToMarker discards any buffered padding bits, fetching forward
// one byte at a time (via the ordinary bit-reader path, so byte
// stuffing and marker detection both apply) until a marker is found.
func (sd *scanDecoder) flushToMarker() error {
	br := sd.br
	for br.Marker() == 0 {
		if _, err := br.ReadBit(); err != nil {
			if err == errMarkerInStream {
				break
			}
			return wrapErr("flushToMarker", ErrUnexpectedEOF, err)
		}
	}
	return nil
}
