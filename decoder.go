package jpeg

import (
	"github.com/rs/zerolog"
)

// Metadata carries the ancillary, non-pixel information recognized
// from a JPEG stream: resolution (EXIF preferred over JFIF, per spec
// section 4.8), and verbatim EXIF/ICC payloads for callers that want
// to parse them further themselves.
type Metadata struct {
	HorizontalResolution float64 // dots per inch
	VerticalResolution   float64

	EXIFProfile []byte // verbatim APP1 payload, nil if absent
	ICCProfile  []byte // reassembled APP2 chunks, nil if absent
	Orientation int     // EXIF orientation tag value, 0 if absent/not an int

	ColorSpace ColorSpace
	Width      int
	Height     int
}

// SegmentInfo is one entry of the purely informational segment
// inventory the decoder keeps while parsing (spec.md's Desc-style
// segment list, carried over from the teacher's FormatSegments/segments
// field as a supplemented feature).
type SegmentInfo struct {
	Marker string
	Length int
}

// Result is the outcome of a full Decode call: the metadata plus the
// color space and dimensions pixels were written in.
type Result struct {
	Metadata
	segments []SegmentInfo
}

// Segments returns the ordered list of length-prefixed segments
// encountered while parsing, each with its payload length (excluding
// the 2-byte length field), for diagnostics. SOI and EOI are not
// listed. It never influences decoding.
func (r *Result) Segments() []SegmentInfo { return r.segments }

// decoder drives C8: the marker-parse-then-post-process orchestration
// described in spec section 4.8, grounded on the teacher's Parse/Desc
// state machine in jpeg.go.
type decoder struct {
	mr  *markerReader
	src ByteSource
	opt Options
	log zerolog.Logger

	sawSOI   bool
	sawSOF   bool
	sawEOI   bool
	frame    *frameState
	segments []SegmentInfo

	// pendingMarker holds a marker already consumed from the
	// underlying stream by a scan's bitReader (entropy decoding reads
	// one byte ahead to detect markers) but not yet acted on by the
	// outer parse loop.
	pendingMarker marker

	adobeSeen     bool
	adobeTransform int8

	jfifXDensity, jfifYDensity uint16
	jfifUnits                  byte
	haveJFIFDensity            bool

	exifBlob  []byte
	iccChunks map[int][]byte
	iccTotal  int

	// pending* hold tables/parameters defined before SOF (the
	// conforming order) until a frameState exists to own them. Tables
	// redefined mid-stream (e.g. between progressive scans) are
	// written directly into the active frame instead.
	pendingQuant           *[4]*quantTable
	pendingDC, pendingAC   [4]*huffTable
	pendingRestartInterval uint16
	haveRestartInterval    bool
}

func newDecoder(src ByteSource, opt Options) *decoder {
	return &decoder{
		mr:             newMarkerReader(src),
		src:            src,
		opt:            opt,
		log:            opt.logger(),
		iccChunks:      make(map[int][]byte),
		adobeTransform: -1,
	}
}

func (d *decoder) recordSegment(name string, length int) {
	d.segments = append(d.segments, SegmentInfo{Marker: name, Length: length})
}

// Decode parses a full JPEG stream from src and writes decoded pixels
// into sink, returning the resulting metadata. It implements spec
// section 4.8's decode(): parse-then-post-process, driven by the
// marker stream, with the entropy-coded scans decoded inline as their
// SOS segments are encountered.
func Decode(src ByteSource, sink PixelSink, opt Options) (*Result, error) {
	d := newDecoder(src, opt)
	if err := d.run(sink); err != nil {
		return nil, err
	}
	return d.result(), nil
}

// ParseMetadata parses only as much of the stream as is needed to
// learn dimensions, color space, and EXIF/JFIF/ICC metadata, stopping
// immediately after the frame header (SOF) without decoding any scan
// data. Spec section 4.8/9's Open Question on JFIF-only early exit is
// resolved here: the stop condition is "a SOF has been seen", not
// "JFIF was present".
func ParseMetadata(src ByteSource, opt Options) (*Result, error) {
	d := newDecoder(src, opt)
	if err := d.runMetadataOnly(); err != nil {
		return nil, err
	}
	return d.result(), nil
}

func (d *decoder) result() *Result {
	res := &Result{segments: d.segments}
	res.Width, res.Height = 0, 0
	if d.frame != nil {
		res.Width = int(d.frame.width)
		res.Height = int(d.frame.height)
		res.ColorSpace = d.frame.colorSpace
	}
	res.EXIFProfile = d.exifBlob
	res.ICCProfile = d.assembleICC()
	res.HorizontalResolution, res.VerticalResolution, res.Orientation = d.resolveResolution()
	return res
}

func (d *decoder) assembleICC() []byte {
	if d.iccTotal == 0 || len(d.iccChunks) == 0 {
		return nil
	}
	out := make([]byte, 0, 65536)
	for i := 1; i <= d.iccTotal; i++ {
		chunk, ok := d.iccChunks[i]
		if !ok {
			d.log.Warn().Int("chunk", i).Msg("missing ICC profile chunk, profile truncated")
			break
		}
		out = append(out, chunk...)
	}
	return out
}

// resolveResolution implements spec's "EXIF preferred over JFIF"
// precedence rule (section 4.8 step 2 / 8 scenario 5).
func (d *decoder) resolveResolution() (h, v float64, orientation int) {
	if len(d.exifBlob) > 0 {
		if eh, ev, eo, ok := readEXIFResolution(d.exifBlob); ok {
			return eh, ev, eo
		}
	}
	if d.haveJFIFDensity {
		switch d.jfifUnits {
		case 1: // dots per inch
			return float64(d.jfifXDensity), float64(d.jfifYDensity), 0
		case 2: // dots per cm
			return float64(d.jfifXDensity) * 2.54, float64(d.jfifYDensity) * 2.54, 0
		}
	}
	return 0, 0, 0
}

func (d *decoder) runMetadataOnly() error {
	return d.parseLoop(nil, true)
}

func (d *decoder) run(sink PixelSink) error {
	return d.parseLoop(sink, false)
}

// parseLoop is the main marker dispatch loop, mirroring the teacher's
// Parse() switch in jpeg.go: SOI must be first, segments are dispatched
// by marker with their declared length enforced, EOI ends the stream,
// and unrecognized APPn segments are silently skipped.
func (d *decoder) parseLoop(sink PixelSink, metadataOnly bool) error {
	for {
		var m marker
		var err error
		if d.pendingMarker != 0 {
			m, d.pendingMarker = d.pendingMarker, 0
		} else {
			m, err = d.mr.next()
			if err != nil {
				return err
			}
		}

		if !d.sawSOI {
			if m != markSOI {
				return newErr("parseLoop", ErrMissingSOI, "stream does not start with SOI")
			}
			d.sawSOI = true
			d.log.Debug().Msg("SOI")
			continue
		}

		if m == markEOI {
			d.log.Debug().Msg("EOI")
			d.sawEOI = true
			if !metadataOnly && sink != nil {
				if d.frame == nil {
					return newErr("parseLoop", ErrUnexpectedMarker, "EOI before any frame header")
				}
				return d.postProcess(sink)
			}
			return nil
		}
		if isRestartMarker(m) {
			// A lone RST outside an entropy-coded segment is a
			// framing error: restart markers only ever appear
			// embedded in scan data, consumed by the scan decoder.
			return newErr("parseLoop", ErrUnexpectedMarker, "unexpected restart marker outside scan")
		}

		length, err := d.mr.length()
		if err != nil {
			return err
		}

		switch {
		case m == markAPP0:
			err = d.handleAPP0(length)
		case m == markAPP1:
			err = d.handleAPP1(length)
		case m == markAPP2:
			err = d.handleAPP2(length)
		case m == markAPP14:
			err = d.handleAPP14(length)
		case m >= markAPP0 && m <= markAPP15:
			d.recordSegment("APPn", int(length))
			err = d.mr.skip(length)
		case m == markCOM:
			d.recordSegment("COM", int(length))
			err = d.mr.skip(length)
		case m == markDQT:
			err = d.handleDQT(length)
		case m == markDHT:
			err = d.handleDHT(length)
		case m == markDRI:
			err = d.handleDRI(length)
		case m == markDNL:
			d.recordSegment("DNL", int(length))
			err = d.mr.skip(length)
		case isAnySOF(m):
			if d.sawSOF {
				return newErr("parseLoop", ErrMultipleSOF, "more than one SOF segment")
			}
			if !isSupportedSOF(m) {
				return newErr("parseLoop", ErrUnsupportedColorMode, "unsupported SOF variant 0x%04x", uint16(m))
			}
			err = d.handleSOF(m, length)
			d.sawSOF = true
			if metadataOnly && err == nil {
				return nil
			}
		case m == markSOS:
			if !d.sawSOF {
				return newErr("parseLoop", ErrUnexpectedMarker, "SOS before SOF")
			}
			if metadataOnly {
				// Should not happen: metadataOnly returns right
				// after SOF above. Defensive guard only.
				return nil
			}
			err = d.handleSOS(length, sink)
		default:
			d.recordSegment("RES", int(length))
			err = d.mr.skip(length)
		}
		if err != nil {
			return err
		}
	}
}

// PixelSink is the external collaborator pixels are written into. It
// is intentionally minimal: the decoder never allocates or owns an
// image container type (spec section 6). See sink.go for concrete
// image.Image-backed adapters.
type PixelSink interface {
	// SetSize is called once, after SOF, with the frame's pixel
	// dimensions and deduced color space, before any SetRow call.
	SetSize(width, height int, cs ColorSpace)
	// SetRow is called once per output row, top to bottom, with
	// interleaved samples: 1 byte/pixel for Grayscale, 3 for
	// RGB/YCbCr (stored as RGB after conversion), 4 for CMYK/YCCK
	// (stored as CMYK after conversion).
	SetRow(y int, row []byte)
}
