package jpeg

import "image"

// ImageSink adapts the decoder's PixelSink capability onto a concrete
// stdlib image.Image, chosen at SetSize time based on the frame's
// deduced color space. Image returns the result once decoding
// completes; calling it earlier returns nil.
//
// This is the default, supplemented output adapter (spec section 6
// treats the pixel container as an external collaborator); nothing in
// the retrieved corpus offers a non-stdlib pixel container, and
// image.Image is the interchange type every pack imaging library,
// including golang.org/x/image, already targets.
type ImageSink struct {
	img image.Image

	gray *image.Gray
	rgba *image.RGBA
	cmyk *image.CMYK

	width, height int
}

func (s *ImageSink) SetSize(width, height int, cs ColorSpace) {
	s.width, s.height = width, height
	rect := image.Rect(0, 0, width, height)
	switch cs {
	case ColorGrayscale:
		s.gray = image.NewGray(rect)
		s.img = s.gray
	case ColorCMYK, ColorYCCK:
		s.cmyk = image.NewCMYK(rect)
		s.img = s.cmyk
	default: // YCbCr, RGB: both delivered to SetRow as RGB triples
		s.rgba = image.NewRGBA(rect)
		s.img = s.rgba
	}
}

func (s *ImageSink) SetRow(y int, row []byte) {
	switch {
	case s.gray != nil:
		copy(s.gray.Pix[y*s.gray.Stride:y*s.gray.Stride+s.width], row)
	case s.cmyk != nil:
		copy(s.cmyk.Pix[y*s.cmyk.Stride:y*s.cmyk.Stride+s.width*4], row)
	case s.rgba != nil:
		base := y * s.rgba.Stride
		for x := 0; x < s.width; x++ {
			s.rgba.Pix[base+x*4+0] = row[x*3+0]
			s.rgba.Pix[base+x*4+1] = row[x*3+1]
			s.rgba.Pix[base+x*4+2] = row[x*3+2]
			s.rgba.Pix[base+x*4+3] = 0xff
		}
	}
}

// Image returns the decoded image. It is nil until SetSize has been
// called (i.e. until SOF has been parsed and at least Decode has
// started post-processing).
func (s *ImageSink) Image() image.Image { return s.img }
