package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
)

// Options controls encoding. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// N and B pin the palette geometry of the stream (c = (N+9)*2^(B-4)
	// colors, B bits per index). Leave B at 0 to derive the smallest
	// geometry covering the generated palette.
	N, B int

	// DedupDist is the squared color distance under which source colors
	// are merged into one palette entry.
	DedupDist uint32

	// Threshold is the tolerated region impurity in 1/16384 units of the
	// region area; see buildParams.
	Threshold int

	// MinBlock stops subdivision at the given region side, trading detail
	// for tree size. 1 allows per-pixel leaves.
	MinBlock int

	// Gradient sets the stream's gradient flag and makes the builder
	// close off four-color regions as blendable corner leaves.
	Gradient bool

	// TrimPasses runs the leaf-merging trim pass that many times at
	// TrimDepth before serializing.
	TrimPasses int
	TrimDepth  int
}

func DefaultOptions() Options {
	return Options{
		DedupDist: 256,
		Threshold: 256,
		MinBlock:  1,
		TrimDepth: 6,
	}
}

// Encode compresses img into a version 2 QTI stream.
//
// The image must be square with a power-of-two side no larger than
// maxImageSide; quantization parameters outside their ranges are rejected
// before any work happens. On error no bytes are returned.
func Encode(img image.Image, opts Options) ([]byte, error) {
	if opts.B != 0 {
		if err := validateParams(opts.N, opts.B); err != nil {
			return nil, err
		}
	}
	if opts.Threshold < 0 || opts.Threshold > 16384 {
		return nil, fmt.Errorf("%w: threshold=%d outside [0,16384]", ErrBadParams, opts.Threshold)
	}

	rgba := ImageToRGBA(img)
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	if w != h {
		return nil, fmt.Errorf("%w: %dx%d", ErrNonSquare, w, h)
	}
	if !isPow2(w) {
		return nil, fmt.Errorf("%w: side %d", ErrNonPowerOfTwo, w)
	}
	if w > maxImageSide {
		return nil, fmt.Errorf("%w: side %d > %d", ErrImageTooLarge, w, maxImageSide)
	}

	pal := generatePalette(rgba, opts.DedupDist)
	var n, b int
	if opts.B != 0 {
		n, b = opts.N, opts.B
		if c := paletteLen(n, b); len(pal) > c {
			// Ranked by abundance, so dropping the tail loses the
			// least-used colors.
			pal = pal[:c]
		}
	} else {
		n, b = paramsForColors(len(pal))
	}
	c := paletteLen(n, b)

	idx := quantizeToPalette(rgba, pal)
	tree := buildTree(idx, w, buildParams{
		threshold: opts.Threshold,
		minBlock:  opts.MinBlock,
		gradient:  opts.Gradient,
	})
	for i := 0; i < opts.TrimPasses; i++ {
		tree.trim(opts.TrimDepth)
	}

	buf := &bytes.Buffer{}
	writeHeader(buf, n, b, w, opts.Gradient)
	writePalette(buf, pal, c)
	bw := NewBitWriter(buf)
	if err := encodeTreeV2(bw, tree, b, c); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeHeader emits the 12-byte version 2 header: magic, version,
// color-space byte, then a big-endian packed field whose bit 31 is the
// gradient flag, bits 30-16 the height and bits 15-0 the width.
func writeHeader(buf *bytes.Buffer, n, b, size int, gradient bool) {
	buf.WriteString(magic)
	buf.WriteByte(version2)
	buf.WriteByte(colorSpaceByte(n, b))
	packed := uint32(size)<<16 | uint32(size)
	if gradient {
		packed |= 1 << 31
	}
	binary.Write(buf, binary.BigEndian, packed)
}

// writePalette emits exactly c RGBA entries, zero-padding past the palette.
func writePalette(buf *bytes.Buffer, pal Palette, c int) {
	for i := 0; i < c; i++ {
		if i < len(pal) {
			buf.Write([]byte{pal[i].R, pal[i].G, pal[i].B, pal[i].A})
		} else {
			buf.Write([]byte{0, 0, 0, 0})
		}
	}
}

// encodeTreeV2 serializes the tree level-order: all nodes of one depth, in
// quadrant order, before any node of the next. Per node one has-children
// bit then b bits of palette index. A branch implicitly enqueues its four
// children for the next level; the stream ends when a level enqueues none.
func encodeTreeV2(bw *BitWriter, root *QuadNode, b, c int) error {
	queue := []*QuadNode{root}
	for len(queue) > 0 {
		var next []*QuadNode
		for _, node := range queue {
			if int(node.Color) >= c {
				return fmt.Errorf("%w: %d >= %d", ErrColorOutOfRange, node.Color, c)
			}
			if err := bw.WriteBit(node.Sub != nil); err != nil {
				return err
			}
			if err := bw.WriteBits(node.Color, uint8(b)); err != nil {
				return err
			}
			if node.Sub != nil {
				for i := range node.Sub {
					next = append(next, &node.Sub[i])
				}
			}
		}
		queue = next
	}
	return nil
}

// encodeTreeV1 serializes the tree depth-first, each node immediately
// followed by its subtrees. New streams are always version 2; this writer
// remains to produce fixtures for the legacy decode path.
func encodeTreeV1(bw *BitWriter, root *QuadNode, b, c int) error {
	stack := []*QuadNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if int(node.Color) >= c {
			return fmt.Errorf("%w: %d >= %d", ErrColorOutOfRange, node.Color, c)
		}
		if err := bw.WriteBit(node.Sub != nil); err != nil {
			return err
		}
		if err := bw.WriteBits(node.Color, uint8(b)); err != nil {
			return err
		}
		if node.Sub != nil {
			for i := len(node.Sub) - 1; i >= 0; i-- {
				stack = append(stack, &node.Sub[i])
			}
		}
	}
	return nil
}

// encodeLegacyV1 assembles a whole version 1 file (8-byte header, no
// dimensions field, depth-first tree) around an existing tree and palette.
func encodeLegacyV1(root *QuadNode, pal Palette, n, b int) ([]byte, error) {
	if err := validateParams(n, b); err != nil {
		return nil, err
	}
	c := paletteLen(n, b)
	buf := &bytes.Buffer{}
	buf.WriteString(magic)
	buf.WriteByte(version1)
	buf.WriteByte(colorSpaceByte(n, b))
	writePalette(buf, pal, c)
	bw := NewBitWriter(buf)
	if err := encodeTreeV1(bw, root, b, c); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
