package main

import (
	"sort"
	"sync"
)

// QuadNode is one square region of the image. A leaf holds only its palette
// index; a branch additionally owns exactly four children covering its
// quadrants. Every node carries a color, so descent can stop at any level
// and still give a meaningful preview.
//
// Quadrant order is fixed and part of the wire contract: child i covers the
// quadrant at offset ((i&1)*half, (i>>1)*half), i.e. top-left, top-right,
// bottom-left, bottom-right.
type QuadNode struct {
	Color uint32
	Sub   *[4]QuadNode
}

type buildParams struct {
	// threshold is the tolerated impurity of a region, in 1/16384 units
	// of its area: a region stays a leaf when count(pixels != mode) *
	// 16384 <= threshold * area. 0 splits on any impurity, 16384 never
	// splits.
	threshold int
	// minBlock caps tree depth: regions with side <= minBlock are never
	// subdivided.
	minBlock int
	// gradient closes off regions dominated by four colors as four
	// corner-sampled leaves, to be rendered as a bilinear blend.
	gradient bool
}

// parallelMinSide is the region side below which mount stops forking
// goroutines for its quadrants.
const parallelMinSide = 256

type idxCount struct {
	idx   uint32
	count int
}

// regionRank counts palette indices in the size x size region at (x0, y0)
// and returns them ordered by count descending, index ascending.
func regionRank(idx []uint32, rowLen, size, x0, y0 int) []idxCount {
	counts := make(map[uint32]int)
	for y := y0; y < y0+size; y++ {
		row := idx[y*rowLen+x0 : y*rowLen+x0+size]
		for _, v := range row {
			counts[v]++
		}
	}
	rank := make([]idxCount, 0, len(counts))
	for v, c := range counts {
		rank = append(rank, idxCount{v, c})
	}
	sort.Slice(rank, func(i, j int) bool {
		if rank[i].count != rank[j].count {
			return rank[i].count > rank[j].count
		}
		return rank[i].idx < rank[j].idx
	})
	return rank
}

// buildTree arranges a row-major index raster of side size (a power of two)
// into a quadtree. The caller validates the geometry.
func buildTree(idx []uint32, size int, p buildParams) *QuadNode {
	if p.minBlock < 1 {
		p.minBlock = 1
	}
	root := new(QuadNode)
	root.mount(idx, size, size, 0, 0, p)
	return root
}

func (qn *QuadNode) mount(idx []uint32, rowLen, size, x0, y0 int, p buildParams) {
	rank := regionRank(idx, rowLen, size, x0, y0)
	qn.Color = rank[0].idx

	area := size * size
	off := area - rank[0].count
	// Exactly-at-threshold regions stay leaves; this favors smaller trees
	// at boundary values.
	if size <= p.minBlock || off*16384 <= p.threshold*area {
		return
	}

	qn.Sub = new([4]QuadNode)
	half := size / 2

	if p.gradient && size > 2 && cornerBlendable(rank, area, p.threshold) {
		// The region is essentially four colors; keep it one level deep
		// and sample each child from its outer corner patch so the
		// bilinear renderer reconstructs the ramp.
		patch := size / 4
		for i := range qn.Sub {
			px := x0 + (i&1)*3*patch
			py := y0 + (i>>1)*3*patch
			qn.Sub[i].Color = regionRank(idx, rowLen, patch, px, py)[0].idx
		}
		return
	}

	if size >= parallelMinSide {
		var wg sync.WaitGroup
		for i := range qn.Sub {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				qn.Sub[i].mount(idx, rowLen, half, x0+(i&1)*half, y0+(i>>1)*half, p)
			}(i)
		}
		wg.Wait()
		return
	}
	for i := range qn.Sub {
		qn.Sub[i].mount(idx, rowLen, half, x0+(i&1)*half, y0+(i>>1)*half, p)
	}
}

// cornerBlendable reports whether the four dominant colors individually
// stand out and together cover enough of the region that a four-leaf
// gradient branch approximates it well.
func cornerBlendable(rank []idxCount, area, threshold int) bool {
	sameness := 16384 - threshold
	covered := 0
	for i := 0; i < 4 && i < len(rank); i++ {
		if rank[i].count*65536 > sameness*area {
			covered += rank[i].count
		}
	}
	return covered*16384 > sameness*area
}

// trim removes all-leaf branches deeper than depth whose children are
// near-uniform in color (three distinct colors, or two with a 3:1 split),
// replacing them with the branch's own modal color.
func (qn *QuadNode) trim(depth int) {
	if qn.Sub == nil {
		return
	}
	allLeaves := true
	for i := range qn.Sub {
		if qn.Sub[i].Sub != nil {
			allLeaves = false
			break
		}
	}
	if depth <= 0 && allLeaves {
		freq := make(map[uint32]int, 4)
		for i := range qn.Sub {
			freq[qn.Sub[i].Color]++
		}
		maxFreq := 0
		for _, f := range freq {
			if f > maxFreq {
				maxFreq = f
			}
		}
		if len(freq) == 3 || (len(freq) == 2 && maxFreq == 3) {
			qn.Sub = nil
		}
		return
	}
	for i := range qn.Sub {
		qn.Sub[i].trim(depth - 1)
	}
}

// countNodes returns the total number of nodes in the tree.
func (qn *QuadNode) countNodes() int {
	n := 1
	if qn.Sub != nil {
		for i := range qn.Sub {
			n += qn.Sub[i].countNodes()
		}
	}
	return n
}

// countLeaves returns the number of leaf nodes in the tree.
func (qn *QuadNode) countLeaves() int {
	if qn.Sub == nil {
		return 1
	}
	n := 0
	for i := range qn.Sub {
		n += qn.Sub[i].countLeaves()
	}
	return n
}

// depth returns the length of the longest root-to-leaf path, 0 for a
// single leaf.
func (qn *QuadNode) depth() int {
	if qn.Sub == nil {
		return 0
	}
	max := 0
	for i := range qn.Sub {
		if d := qn.Sub[i].depth(); d > max {
			max = d
		}
	}
	return max + 1
}
