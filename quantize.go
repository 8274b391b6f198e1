package main

import (
	"image"
	"image/color"
	"sort"
)

// Palette is an ordered list of RGBA colors. Index 0 is the most abundant
// color in the source image; the order is part of the encoded stream.
type Palette []color.RGBA

type colorCount struct {
	col   color.RGBA
	count int64
}

// generatePalette reduces the image's color set by greedy frequency
// clustering: colors are visited from most to least common and merged into
// the first existing cluster whose seed lies within dedupDist (squared
// distance, alpha deweighted). Each cluster becomes one palette entry, the
// count-weighted average of its members.
//
// Iteration order is fully determined by (count desc, color key asc), so the
// palette is reproducible for a given image and threshold.
func generatePalette(img *image.RGBA, dedupDist uint32) Palette {
	counts := make(map[color.RGBA]int64)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			counts[color.RGBA{row[x], row[x+1], row[x+2], row[x+3]}]++
		}
	}

	ranked := make([]colorCount, 0, len(counts))
	for col, cnt := range counts {
		ranked = append(ranked, colorCount{col, cnt})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return colorKey(ranked[i].col) < colorKey(ranked[j].col)
	})

	type cluster struct {
		seed       color.RGBA
		r, g, b, a int64
		total      int64
	}
	var clusters []*cluster
	for _, cc := range ranked {
		var home *cluster
		for _, cl := range clusters {
			if dedupDistance(cl.seed, cc.col) < dedupDist {
				home = cl
				break
			}
		}
		if home == nil {
			home = &cluster{seed: cc.col}
			clusters = append(clusters, home)
		}
		home.r += int64(cc.col.R) * cc.count
		home.g += int64(cc.col.G) * cc.count
		home.b += int64(cc.col.B) * cc.count
		home.a += int64(cc.col.A) * cc.count
		home.total += cc.count
	}

	pal := make(Palette, 0, len(clusters))
	for _, cl := range clusters {
		pal = append(pal, color.RGBA{
			R: uint8(cl.r / cl.total),
			G: uint8(cl.g / cl.total),
			B: uint8(cl.b / cl.total),
			A: uint8(cl.a / cl.total),
		})
	}
	return pal
}

// quantizeToPalette maps every pixel to the index of its nearest palette
// entry (squared distance; the lower index wins ties) and returns the image
// as a row-major index raster.
func quantizeToPalette(img *image.RGBA, pal Palette) []uint32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint32, w*h)

	// Flat-colored regions dominate the inputs QTI is good at, so a
	// per-color cache pays for itself quickly.
	cache := make(map[color.RGBA]uint32)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			col := color.RGBA{row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]}
			ind, ok := cache[col]
			if !ok {
				ind = nearestIndex(pal, col)
				cache[col] = ind
			}
			out[y*w+x] = ind
		}
	}
	return out
}

func nearestIndex(pal Palette, col color.RGBA) uint32 {
	best := uint32(0)
	bestDist := colorDistance(pal[0], col)
	for i := 1; i < len(pal); i++ {
		if d := colorDistance(pal[i], col); d < bestDist {
			best = uint32(i)
			bestDist = d
		}
	}
	return best
}
