package main

import (
	"fmt"
	"image"
	"image/color"
)

// renderNode paints the node's size x size region at (x0, y0). Leaves fill
// their region with the palette color; branches recurse into their
// quadrants. With gradient set, a branch whose four children are all leaves
// is instead painted as a bilinear blend of the four child colors, which
// undoes the corner sampling the builder applied in gradient mode.
func renderNode(img *image.RGBA, pal Palette, node *QuadNode, size, x0, y0 int, gradient bool) error {
	if int(node.Color) >= len(pal) {
		return fmt.Errorf("%w: %d >= %d", ErrColorOutOfRange, node.Color, len(pal))
	}

	if node.Sub == nil || size == 1 {
		fillSquare(img, x0, y0, size, pal[node.Color])
		return nil
	}

	if gradient && node.Sub[0].Sub == nil && node.Sub[1].Sub == nil &&
		node.Sub[2].Sub == nil && node.Sub[3].Sub == nil {
		return blendSquare(img, pal, node, size, x0, y0)
	}

	half := size / 2
	for i := range node.Sub {
		err := renderNode(img, pal, &node.Sub[i], half, x0+(i&1)*half, y0+(i>>1)*half, gradient)
		if err != nil {
			return err
		}
	}
	return nil
}

func fillSquare(img *image.RGBA, x0, y0, size int, c color.RGBA) {
	for y := y0; y < y0+size; y++ {
		row := img.Pix[y*img.Stride+x0*4 : y*img.Stride+(x0+size)*4]
		for x := 0; x < size*4; x += 4 {
			row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, c.A
		}
	}
}

// blendSquare paints the region as a bilinear ramp between the four child
// colors: top-left/top-right across the top edge, bottom-left/bottom-right
// across the bottom, interpolated vertically in between.
func blendSquare(img *image.RGBA, pal Palette, node *QuadNode, size, x0, y0 int) error {
	var corner [4]color.RGBA
	for i := range node.Sub {
		if int(node.Sub[i].Color) >= len(pal) {
			return fmt.Errorf("%w: %d >= %d", ErrColorOutOfRange, node.Sub[i].Color, len(pal))
		}
		corner[i] = pal[node.Sub[i].Color]
	}
	for y := y0; y < y0+size; y++ {
		fy := float64(y-y0) / float64(size)
		for x := x0; x < x0+size; x++ {
			fx := float64(x-x0) / float64(size)
			c := colorLerp(
				colorLerp(corner[0], corner[1], fx),
				colorLerp(corner[2], corner[3], fx),
				fy,
			)
			o := y*img.Stride + x*4
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.R, c.G, c.B, c.A
		}
	}
	return nil
}
