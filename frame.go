package jpeg

// Block is one 8x8 block of coefficients or samples, stored in natural
// (row-major) order. Zig-zag order is strictly a wire-format detail of
// DQT/entropy-coded coefficient scanning and never appears outside the
// parsing/decoding code that immediately reorders into this layout.
type Block [64]int32

var zigZagOrder = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// quantTable is one of the up to 4 quantization tables (Tq 0..3)
// defined by DQT, stored in natural order.
type quantTable struct {
	values [64]uint16
	set    bool
}

// ColorSpace is the color interpretation the orchestrator deduces for
// a frame's pixel data, per spec section 4.5/4.8.
type ColorSpace int

const (
	ColorUnknown ColorSpace = iota
	ColorGrayscale
	ColorYCbCr
	ColorRGB
	ColorCMYK
	ColorYCCK
)

func (c ColorSpace) String() string {
	switch c {
	case ColorGrayscale:
		return "Grayscale"
	case ColorYCbCr:
		return "YCbCr"
	case ColorRGB:
		return "RGB"
	case ColorCMYK:
		return "CMYK"
	case ColorYCCK:
		return "YCCK"
	}
	return "Unknown"
}

// component holds per-component frame and scan state: its sampling
// factors, quantization/Huffman table bindings, its grid of decoded
// coefficient blocks, and the running DC predictor used while decoding
// the entropy-coded segment. Grounded on the teacher's component type
// in jpeg.go/segment.go (H/V sampling factors, per-component iDCTdata
// grid of dataUnit rows).
type component struct {
	id   byte
	h, v uint8 // sampling factors, 1..4
	tq   byte  // quantization table index

	blocksPerLine   int
	blocksPerColumn int
	blocks          [][]Block // [row][col], row-major grid of 8x8 blocks

	// trueBlocksPerLine/trueBlocksPerColumn are the component's own
	// data-unit extent (ITU-T T.81 A.1.1), smaller than
	// blocksPerLine/blocksPerColumn whenever the frame's MCU padding
	// overshoots this component. A non-interleaved scan only ever
	// carries entropy data for this extent; the remaining padded rows
	// and columns of blocks are never written by the encoder and exist
	// solely so postProcess has a whole-MCU grid to crop.
	trueBlocksPerLine   int
	trueBlocksPerColumn int

	// dcPredictor is the running DC prediction, reset to zero at the
	// start of every scan and at every restart interval boundary.
	dcPredictor int32
}

// frameState captures C5: the frame-wide parameters established by
// SOF and refined by subsequent DHT/DQT/DRI/SOS segments.
type frameState struct {
	precision  uint8
	width      uint16
	height     uint16
	progressive bool

	components []*component
	maxH, maxV uint8

	mcusPerLine   int
	mcusPerColumn int

	quantTables [4]*quantTable
	dcTables    [4]*huffTable
	acTables    [4]*huffTable

	restartInterval uint16

	colorSpace    ColorSpace
	adobeTransform int8 // -1 = no Adobe marker seen, else 0/1/2
}

func (f *frameState) componentByID(id byte) *component {
	for _, c := range f.components {
		if c.id == id {
			return c
		}
	}
	return nil
}

// deduceColorSpace implements spec section 4.5's color-space deduction
// rule: driven primarily by component count, refined by an Adobe APP14
// ColorTransform value when present. Grounded on the teacher's handling
// of Adobe APP14 alongside component-count-based defaults (jpeg.go).
func (f *frameState) deduceColorSpace() (ColorSpace, error) {
	n := len(f.components)
	switch n {
	case 1:
		return ColorGrayscale, nil
	case 3:
		if f.adobeTransform == 0 {
			return ColorRGB, nil
		}
		return ColorYCbCr, nil
	case 4:
		switch f.adobeTransform {
		case 2:
			return ColorYCCK, nil
		default:
			return ColorCMYK, nil
		}
	default:
		return ColorUnknown, newErr("deduceColorSpace", ErrUnsupportedColorMode, "unsupported component count %d", n)
	}
}

// allocateBlocks sizes each component's block grid from the frame's
// MCU grid and the component's sampling factors, per spec section
// 4.5's component/frame state rules (mirrors the teacher's
// startOfFrame nUnitsRow/nUnitsCol computation in segment.go), and also
// computes each component's true (unpadded) data-unit extent per
// ITU-T T.81 A.1.1, used to bound non-interleaved scans.
func (f *frameState) allocateBlocks() {
	for _, c := range f.components {
		blocksPerLine := f.mcusPerLine * int(c.h)
		blocksPerColumn := f.mcusPerColumn * int(c.v)
		c.blocksPerLine = blocksPerLine
		c.blocksPerColumn = blocksPerColumn
		c.blocks = make([][]Block, blocksPerColumn)
		for r := range c.blocks {
			c.blocks[r] = make([]Block, blocksPerLine)
		}

		samplesPerLine := (int(f.width)*int(c.h) + int(f.maxH) - 1) / int(f.maxH)
		samplesPerColumn := (int(f.height)*int(c.v) + int(f.maxV) - 1) / int(f.maxV)
		c.trueBlocksPerLine = (samplesPerLine + 7) / 8
		c.trueBlocksPerColumn = (samplesPerColumn + 7) / 8
	}
}
