package jpeg

import "math"

// idctCosTable[x][u] = cos((2x+1)*u*pi/16), precomputed once so the
// separable inverse DCT below never calls math.Cos in its hot loop.
// This keeps the teacher's "fast, two-pass, no inner-loop allocation"
// IDCT shape (decode.go's inverseDCT8) while replacing its
// hand-derived Loeffler/AAN butterfly network with the textbook
// separable formulation, which is far easier to verify coefficient by
// coefficient without running the code.
var idctCosTable [8][8]float64

func init() {
	for x := 0; x < 8; x++ {
		for u := 0; u < 8; u++ {
			idctCosTable[x][u] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / 16)
		}
	}
}

func idctAlpha(u int) float64 {
	if u == 0 {
		return 1 / math.Sqrt2
	}
	return 1
}

// dequantize multiplies a block's coefficients (already reordered into
// natural/row-major order by the scan decoder) by the corresponding
// quantization table entries. Grounded on the teacher's dequantize in
// decode.go.
func dequantize(blk *Block, qt *quantTable) {
	for i := 0; i < 64; i++ {
		blk[i] *= int32(qt.values[i])
	}
}

// idct8x8 performs the inverse 2-D DCT on a natural-order coefficient
// block, writing level-shifted, clamped 8-bit samples into out
// (row-major, stride bytes per row). Implemented as two separable 1-D
// passes (columns then rows), matching the teacher's two-pass
// structure.
func idct8x8(blk *Block, out []byte, stride int) {
	var tmp [64]float64

	// Column pass: tmp[y][x] = sum_v alpha(v) * coef[v][x] * cos(...)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			var sum float64
			for v := 0; v < 8; v++ {
				sum += idctAlpha(v) * float64(blk[v*8+x]) * idctCosTable[y][v]
			}
			tmp[y*8+x] = sum * 0.5
		}
	}

	// Row pass, plus level shift (+128) and clamp to [0,255].
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			var sum float64
			for u := 0; u < 8; u++ {
				sum += idctAlpha(u) * tmp[y*8+u] * idctCosTable[x][u]
			}
			v := sum*0.5 + 128
			out[y*stride+x] = clamp8(v)
		}
	}
}

func clamp8(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}
