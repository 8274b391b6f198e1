package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math/bits"
)

// ImageToRGBA copies any image.Image into an *image.RGBA with bounds starting at (0,0).
func ImageToRGBA(src image.Image) *image.RGBA {
	if r, ok := src.(*image.RGBA); ok && r.Bounds().Min == (image.Point{}) {
		return r
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// ilog2 returns floor(log2(n)) for n >= 1.
func ilog2(n int) int {
	return bits.Len(uint(n)) - 1
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// BitWriter accumulates bits (msb-first in each byte) into a bytes.Buffer.
type BitWriter struct {
	buf  *bytes.Buffer
	acc  byte
	nbit uint8 // bits pending in acc (0..7)
}

func NewBitWriter(buf *bytes.Buffer) *BitWriter {
	return &BitWriter{buf: buf}
}

// WriteBit writes a single bit.
func (bw *BitWriter) WriteBit(v bool) error {
	if v {
		bw.acc |= 1 << (7 - bw.nbit)
	}
	bw.nbit++
	if bw.nbit == 8 {
		if err := bw.buf.WriteByte(bw.acc); err != nil {
			return err
		}
		bw.acc = 0
		bw.nbit = 0
	}
	return nil
}

// WriteBits writes the low n bits of v, msb-first. n must be in 1..32.
// For example, n=4 and v=0b1011 writes the bits 1,0,1,1.
func (bw *BitWriter) WriteBits(v uint32, n uint8) error {
	for n > 0 {
		free := 8 - bw.nbit
		k := free
		if k > n {
			k = n
		}
		chunk := byte(v >> (n - k) & (1<<k - 1))
		bw.acc |= chunk << (free - k)
		bw.nbit += k
		n -= k
		if bw.nbit == 8 {
			if err := bw.buf.WriteByte(bw.acc); err != nil {
				return err
			}
			bw.acc = 0
			bw.nbit = 0
		}
	}
	return nil
}

// Flush writes the trailing partial byte, if any, padded with zero bits.
func (bw *BitWriter) Flush() error {
	if bw.nbit == 0 {
		return nil
	}
	if err := bw.buf.WriteByte(bw.acc); err != nil {
		return err
	}
	bw.acc = 0
	bw.nbit = 0
	return nil
}

// BitReader reads bits (msb-first in each byte) from a byte slice.
// Reading past the end of the data fails with io.ErrUnexpectedEOF.
type BitReader struct {
	data []byte
	pos  int
	nbit uint8 // bits consumed from data[pos] (0..7)
}

func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// ReadBit reads a single bit.
func (br *BitReader) ReadBit() (bool, error) {
	if br.pos >= len(br.data) {
		return false, io.ErrUnexpectedEOF
	}
	bit := br.data[br.pos]&(1<<(7-br.nbit)) != 0
	br.nbit++
	if br.nbit == 8 {
		br.nbit = 0
		br.pos++
	}
	return bit, nil
}

// ReadBits reads n bits (1..32) and returns them in the low n bits of the
// result, msb-first.
func (br *BitReader) ReadBits(n uint8) (uint32, error) {
	var out uint32
	for n > 0 {
		if br.pos >= len(br.data) {
			return 0, io.ErrUnexpectedEOF
		}
		rem := 8 - br.nbit
		k := rem
		if k > n {
			k = n
		}
		chunk := br.data[br.pos] >> (rem - k) & (1<<k - 1)
		out = out<<k | uint32(chunk)
		br.nbit += k
		n -= k
		if br.nbit == 8 {
			br.nbit = 0
			br.pos++
		}
	}
	return out, nil
}

// colorDistance is the squared euclidean distance between two RGBA colors.
func colorDistance(a, b color.RGBA) uint32 {
	dr := int32(a.R) - int32(b.R)
	dg := int32(a.G) - int32(b.G)
	db := int32(a.B) - int32(b.B)
	da := int32(a.A) - int32(b.A)
	return uint32(dr*dr + dg*dg + db*db + da*da)
}

// dedupDistance is colorDistance with the alpha delta deweighted 4x;
// transparency differences matter less when merging palette candidates.
func dedupDistance(a, b color.RGBA) uint32 {
	dr := int32(a.R) - int32(b.R)
	dg := int32(a.G) - int32(b.G)
	db := int32(a.B) - int32(b.B)
	da := (int32(a.A) - int32(b.A)) / 4
	return uint32(dr*dr + dg*dg + db*db + da*da)
}

// colorKey packs a color into a uint32 used as a deterministic sort key.
func colorKey(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// colorLerp linearly interpolates between a and b; t in [0,1].
func colorLerp(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8((float64(b.R)-float64(a.R))*t + float64(a.R)),
		G: uint8((float64(b.G)-float64(a.G))*t + float64(a.G)),
		B: uint8((float64(b.B)-float64(a.B))*t + float64(a.B)),
		A: uint8((float64(b.A)-float64(a.A))*t + float64(a.A)),
	}
}
