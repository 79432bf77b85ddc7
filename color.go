package jpeg

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// componentPlane is a component's full decoded sample plane, at that
// component's own (possibly subsampled) resolution.
type componentPlane struct {
	pix           []byte
	width, height int
}

// postProcess implements C7/C8's final stage: dequantize, IDCT,
// upsample, color convert, in that order, for every component, then
// streams rows into sink. Grounded on the teacher's dequantize
// (decode.go) and writeYCbCr/writeBW row-oriented pixel writers
// (decode.go), generalized to the five color spaces ColorSpace defines
// instead of the teacher's YCbCr/grayscale-only pair.
func (d *decoder) postProcess(sink PixelSink) error {
	f := d.frame
	width, height := int(f.width), int(f.height)
	sink.SetSize(width, height, f.colorSpace)

	planes := make([]*componentPlane, len(f.components))
	for i, c := range f.components {
		qt := f.quantTables[c.tq]
		if qt == nil || !qt.set {
			return newErr("postProcess", ErrBadTq, "component %d references undefined quantization table %d", c.id, c.tq)
		}
		nativeW := c.blocksPerLine * 8
		nativeH := c.blocksPerColumn * 8
		plane := &componentPlane{pix: make([]byte, nativeW*nativeH), width: nativeW, height: nativeH}
		for br := 0; br < c.blocksPerColumn; br++ {
			for bc := 0; bc < c.blocksPerLine; bc++ {
				blk := c.blocks[br][bc]
				dequantize(&blk, qt)
				off := br*8*nativeW + bc*8
				idct8x8(&blk, plane.pix[off:], nativeW)
			}
		}
		planes[i] = upsamplePlane(plane, int(c.h), int(c.v), int(f.maxH), int(f.maxV), width, height, d.opt.Upsampler)
	}

	nComp := len(f.components)
	row := make([]byte, width*nComp)
	for y := 0; y < height; y++ {
		for ci, plane := range planes {
			base := y * plane.width
			for x := 0; x < width; x++ {
				row[x*nComp+ci] = plane.pix[base+x]
			}
		}
		convertRow(row, nComp, f.colorSpace)
		sink.SetRow(y, row)
	}
	return nil
}

// upsamplePlane brings a component's native-resolution plane up to the
// frame's full pixel resolution. When the component isn't subsampled
// relative to the frame maximum, it's just cropped to width/height
// (spec's padding/truncation rule: the block grid is always rounded up
// to a whole number of MCUs, so the last row/column of blocks can
// extend past the declared image size).
func upsamplePlane(src *componentPlane, h, v, maxH, maxV, width, height int, mode UpsampleMode) *componentPlane {
	if h == maxH && v == maxV {
		return cropPlane(src, width, height)
	}
	fullW := src.width * maxH / h
	fullH := src.height * maxV / v

	dst := &componentPlane{pix: make([]byte, fullW*fullH), width: fullW, height: fullH}
	switch mode {
	case Bilinear:
		srcImg := &image.Gray{Pix: src.pix, Stride: src.width, Rect: image.Rect(0, 0, src.width, src.height)}
		dstImg := &image.Gray{Pix: dst.pix, Stride: dst.width, Rect: image.Rect(0, 0, dst.width, dst.height)}
		xdraw.BiLinear.Scale(dstImg, dstImg.Bounds(), srcImg, srcImg.Bounds(), draw.Src, nil)
	default: // NearestNeighbor, the conforming baseline algorithm
		for y := 0; y < fullH; y++ {
			sy := y * v / maxV
			if sy >= src.height {
				sy = src.height - 1
			}
			for x := 0; x < fullW; x++ {
				sx := x * h / maxH
				if sx >= src.width {
					sx = src.width - 1
				}
				dst.pix[y*fullW+x] = src.pix[sy*src.width+sx]
			}
		}
	}
	return cropPlane(dst, width, height)
}

func cropPlane(src *componentPlane, width, height int) *componentPlane {
	if src.width == width && src.height == height {
		return src
	}
	dst := &componentPlane{pix: make([]byte, width*height), width: width, height: height}
	for y := 0; y < height; y++ {
		sy := y
		if sy >= src.height {
			sy = src.height - 1
		}
		copy(dst.pix[y*width:(y+1)*width], src.pix[sy*src.width:sy*src.width+minInt(width, src.width)])
		if width > src.width {
			last := src.pix[sy*src.width+src.width-1]
			for x := src.width; x < width; x++ {
				dst.pix[y*width+x] = last
			}
		}
	}
	return dst
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// convertRow applies the frame's color-space conversion formula to one
// interleaved row of nComp-byte pixels, in place. Grounded on the
// teacher's writeYCbCr (decode.go) for the YCbCr/JFIF constants; RGB,
// CMYK and YCCK are supplemented per SPEC_FULL.md's domain stack.
func convertRow(row []byte, nComp int, cs ColorSpace) {
	switch cs {
	case ColorGrayscale, ColorRGB:
		// no conversion needed: single-channel luma, or already RGB
	case ColorYCbCr:
		for i := 0; i < len(row); i += nComp {
			y := float64(row[i])
			cb := float64(row[i+1]) - 128
			cr := float64(row[i+2]) - 128
			row[i+0] = clamp8(y + 1.402*cr)
			row[i+1] = clamp8(y - 0.344136*cb - 0.714136*cr)
			row[i+2] = clamp8(y + 1.772*cb)
		}
	case ColorCMYK:
		for i := 0; i < len(row); i += nComp {
			for k := 0; k < 4; k++ {
				row[i+k] = 255 - row[i+k]
			}
		}
	case ColorYCCK:
		for i := 0; i < len(row); i += nComp {
			y := float64(row[i])
			cb := float64(row[i+1]) - 128
			cr := float64(row[i+2]) - 128
			c := clamp8(y + 1.402*cr)
			m := clamp8(y - 0.344136*cb - 0.714136*cr)
			yy := clamp8(y + 1.772*cb)
			row[i+0] = 255 - c
			row[i+1] = 255 - m
			row[i+2] = 255 - yy
			row[i+3] = 255 - row[i+3]
		}
	}
}
