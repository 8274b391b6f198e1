// QTI (QuadTree Image) is a lossy image codec. An input image is reduced to
// a small RGBA palette, partitioned into an adaptive quadtree (regions that
// are homogeneous enough stay whole, busy regions split into four quadrants),
// and the tree is bit-packed into a byte-boundary-free stream.
//
// Two wire layouts exist. Version 1 serializes the tree depth-first and its
// header carries no image dimensions; it is decoded for compatibility but no
// longer written. Version 2 serializes the tree level-order and packs a
// gradient-rendering flag plus the image dimensions into the header.
package main

import (
	"errors"
	"fmt"
)

const (
	// magic is the six ASCII bytes opening every QTI stream.
	magic = "QuTrIm"

	version1 = 0x01
	version2 = 0x02

	// headerLenV1/V2 are the byte offsets at which the palette starts.
	headerLenV1 = 8
	headerLenV2 = 12

	// maxImageSide keeps height within the 15 bits left of the gradient
	// flag in the packed dimensions field.
	maxImageSide = 1 << 14
)

var (
	ErrBadParams          = errors.New("qti: invalid palette parameters")
	ErrNonSquare          = errors.New("qti: image is not square")
	ErrNonPowerOfTwo      = errors.New("qti: image side is not a power of two")
	ErrImageTooLarge      = errors.New("qti: image side too large")
	ErrInvalidMagic       = errors.New("qti: invalid magic")
	ErrUnsupportedVersion = errors.New("qti: unsupported format version")
	ErrCorruptStream      = errors.New("qti: corrupt or truncated stream")
	ErrColorOutOfRange    = errors.New("qti: palette index out of range")
)

// Palette geometry. A single header byte encodes the index width b and the
// palette length multiplier n: bits 7-5 hold n (0..7), bits 4-0 hold b-1
// (b in 1..32). The palette length is c = (n+9) * 2^(b-4), truncating for
// b < 4. Every palette index in the tree stream is written in b bits and
// must be < c.

func colorSpaceByte(n, b int) byte {
	return byte(n)<<5 | byte(b-1)
}

func parseColorSpace(cs byte) (n, b int) {
	return int(cs >> 5), int(cs&0x1f) + 1
}

func validateParams(n, b int) error {
	if b < 1 || b > 32 {
		return fmt.Errorf("%w: b=%d outside [1,32]", ErrBadParams, b)
	}
	if n < 0 || n > 7 {
		return fmt.Errorf("%w: n=%d outside [0,7]", ErrBadParams, n)
	}
	return nil
}

// paletteLen returns c = (n+9) * 2^(b-4).
func paletteLen(n, b int) int {
	if b >= 4 {
		return (n + 9) << (b - 4)
	}
	return (n + 9) >> (4 - b)
}

// paramsForColors picks the smallest (n, b) whose palette length covers
// count colors. The inverse direction of paletteLen: re-encoding a stream
// yields the same color-space byte.
func paramsForColors(count int) (n, b int) {
	if count < 1 {
		count = 1
	}
	b = ilog2(nextPow2(count))
	if b < 1 {
		b = 1
	}
	for n = 0; n < 7; n++ {
		if paletteLen(n, b) >= count {
			return n, b
		}
	}
	return 7, b
}
