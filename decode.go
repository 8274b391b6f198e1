package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

// Decode parses a QTI stream (version 1 or 2) and renders it back into an
// RGBA image. A failed decode returns no image.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) < headerLenV1 {
		return nil, fmt.Errorf("%w: %d byte header", ErrCorruptStream, len(data))
	}
	if string(data[:6]) != magic {
		return nil, ErrInvalidMagic
	}
	version := data[6]
	n, b := parseColorSpace(data[7])
	c := paletteLen(n, b)
	if c < 1 {
		return nil, fmt.Errorf("%w: empty palette", ErrCorruptStream)
	}

	var (
		palOff   int
		size     int
		gradient bool
	)
	switch version {
	case version1:
		// No dimensions field; the output side is fixed by the tree
		// depth after decoding.
		palOff = headerLenV1
	case version2:
		if len(data) < headerLenV2 {
			return nil, fmt.Errorf("%w: missing dimensions field", ErrCorruptStream)
		}
		packed := binary.BigEndian.Uint32(data[8:12])
		gradient = packed>>31 != 0
		height := int(packed >> 16 & 0x7fff)
		width := int(packed & 0xffff)
		if width != height {
			return nil, fmt.Errorf("%w: %dx%d", ErrNonSquare, width, height)
		}
		if !isPow2(width) {
			return nil, fmt.Errorf("%w: side %d", ErrNonPowerOfTwo, width)
		}
		palOff = headerLenV2
		size = width
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	if len(data) < palOff+4*c {
		return nil, fmt.Errorf("%w: palette shorter than %d entries", ErrCorruptStream, c)
	}
	pal := make(Palette, c)
	for i := range pal {
		o := palOff + 4*i
		pal[i] = color.RGBA{data[o], data[o+1], data[o+2], data[o+3]}
	}

	br := NewBitReader(data[palOff+4*c:])
	var root *QuadNode
	var err error
	switch version {
	case version1:
		root, err = decodeTreeV1(br, b, c)
		if err != nil {
			return nil, err
		}
		d := root.depth()
		if 1<<d > maxImageSide {
			return nil, fmt.Errorf("%w: tree depth %d", ErrCorruptStream, d)
		}
		size = 1 << d
	default:
		root, err = decodeTreeV2(br, b, c, ilog2(size))
		if err != nil {
			return nil, err
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	if err := renderNode(img, pal, root, size, 0, 0, gradient); err != nil {
		return nil, err
	}
	return img, nil
}

// decodeTreeV1 parses the legacy depth-first layout: each node's four
// subtrees immediately follow it. An explicit stack of pending nodes keeps
// the parse depth independent of the tree depth.
func decodeTreeV1(br *BitReader, b, c int) (*QuadNode, error) {
	root := new(QuadNode)
	stack := []*QuadNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := readNode(br, node, b, c); err != nil {
			return nil, err
		}
		if node.Sub != nil {
			for i := len(node.Sub) - 1; i >= 0; i-- {
				stack = append(stack, &node.Sub[i])
			}
		}
	}
	return root, nil
}

// decodeTreeV2 parses the level-order layout: a frontier of pending nodes
// is filled left to right, branches appending their four children to the
// next frontier, until a frontier completes with no branches. maxDepth
// bounds the frontier count so a corrupt stream cannot demand a tree deeper
// than the image it claims to describe.
func decodeTreeV2(br *BitReader, b, c, maxDepth int) (*QuadNode, error) {
	root := new(QuadNode)
	frontier := []*QuadNode{root}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth > maxDepth {
			return nil, fmt.Errorf("%w: tree deeper than image", ErrCorruptStream)
		}
		var next []*QuadNode
		for _, node := range frontier {
			if err := readNode(br, node, b, c); err != nil {
				return nil, err
			}
			if node.Sub != nil {
				for i := range node.Sub {
					next = append(next, &node.Sub[i])
				}
			}
		}
		frontier = next
	}
	return root, nil
}

// readNode materializes one node: the has-children bit, then b bits of
// palette index.
func readNode(br *BitReader, node *QuadNode, b, c int) error {
	hasSub, err := br.ReadBit()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	ind, err := br.ReadBits(uint8(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	if int(ind) >= c {
		return fmt.Errorf("%w: palette index %d >= %d", ErrCorruptStream, ind, c)
	}
	node.Color = ind
	if hasSub {
		node.Sub = new([4]QuadNode)
	}
	return nil
}
