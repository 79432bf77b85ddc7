// Package jpeg decodes baseline and progressive JPEG (ITU-T T.81 |
// ISO/IEC 10918-1) byte streams into pixel images plus ancillary
// metadata (resolution, EXIF, ICC profile).
//
// The decoder is pull-based: it reads from a ByteSource rather than
// owning file I/O, and it writes decoded samples into a caller-supplied
// PixelSink rather than defining its own image container. Decoding,
// including post-processing (dequantize, IDCT, upsample, color
// convert), is single-threaded and sequential with respect to the
// input stream; the per-component, per-row structure of post-processing
// would allow a bounded worker pool to parallelize it, but nothing in
// this package spawns one today.
package jpeg
