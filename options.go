package jpeg

import "github.com/rs/zerolog"

// UpsampleMode selects the chroma reconstruction filter used when a
// component's sampling factors are below the frame's maximum.
type UpsampleMode int

const (
	// NearestNeighbor replicates each chroma sample across the block of
	// luma samples it covers. This is the baseline algorithm every
	// conforming decoder must support.
	NearestNeighbor UpsampleMode = iota
	// Bilinear interpolates between adjacent chroma samples for a
	// smoother, slower reconstruction.
	Bilinear
)

// Options controls optional decoder behavior. The zero value is the
// conforming baseline: metadata is parsed, nearest-neighbor upsampling
// is used, diagnostics are silent, and no resolution guard is applied.
type Options struct {
	// IgnoreMetadata discards APP0/APP1/APP2 payloads: the segments
	// are still read and recorded but their contents are neither
	// parsed nor retained. The Adobe APP14 segment is parsed either
	// way, since its ColorTransform value drives color-space deduction.
	IgnoreMetadata bool

	// Logger receives leveled diagnostics: Debug entries for SOI, EOI,
	// SOF and the recognized JFIF/EXIF/Adobe segments, and Warn entries
	// for tolerated irregularities (out-of-sequence restart markers,
	// ICC chunk problems). Individual MCUs and blocks are not traced.
	// The zero value produces no output.
	Logger zerolog.Logger

	// Upsampler selects the chroma reconstruction filter.
	Upsampler UpsampleMode

	// MaxWidth and MaxHeight, if non-zero, bound the frame dimensions
	// the decoder will allocate spectral storage for. A SOF declaring
	// a larger image fails with ErrInvalidMCUCoordinate before any
	// per-component grid is allocated.
	MaxWidth, MaxHeight int
}

func (o *Options) logger() zerolog.Logger {
	return o.Logger
}
