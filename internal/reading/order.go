// Package reading implements the Spatial Reading Orderer (spec §4.2):
// given the columns the Page Geometry Analyzer detected, it linearizes a
// page's elements into natural reading order. It generalizes the teacher's
// fixed top-to-bottom/left-to-right sort in internal/pdf/parser.go
// (ExtractText's final sort.Slice) to the spec's column-aware and
// jitter-tolerant algorithm.
package reading

import (
	"math"
	"sort"

	"latex-translator/internal/geometry"
	"latex-translator/internal/model"
)

// Element is anything the orderer can position: a text span or an image
// region, reduced to its bounding box and page.
type Element struct {
	BBox model.BBox
	Page int
	// Height approximates the element's own vertical extent, used to
	// derive the adaptive single-column tolerance band.
	Height float64
}

// Order assigns a 0-based reading_order_position to each element of a
// single page, given that page's detected columns. The returned slice is a
// permutation of 0..len(elements)-1, indexed the same as the input.
func Order(elements []Element, columns []geometry.ColumnBounds) []int {
	n := len(elements)
	positions := make([]int, n)
	if n == 0 {
		return positions
	}

	type indexed struct {
		idx int
		el  Element
	}
	items := make([]indexed, n)
	for i, e := range elements {
		items[i] = indexed{idx: i, el: e}
	}

	if len(columns) > 1 {
		buckets := make([][]indexed, len(columns))
		for _, it := range items {
			col := assignColumn(it.el.BBox.CenterX(), columns)
			buckets[col] = append(buckets[col], it)
		}
		order := 0
		for _, bucket := range buckets {
			sort.SliceStable(bucket, func(i, j int) bool {
				a, b := bucket[i].el.BBox, bucket[j].el.BBox
				if a.Y0 != b.Y0 {
					return a.Y0 < b.Y0
				}
				return a.X0 < b.X0
			})
			for _, it := range bucket {
				positions[it.idx] = order
				order++
			}
		}
		return positions
	}

	// Single column: adaptive vertical-band tolerance (spec §4.2 step 4).
	avgHeight := averageHeight(elements)
	tol := clamp(avgHeight*0.5, 10, 30)

	sort.SliceStable(items, func(i, j int) bool {
		bi := math.Round(items[i].el.BBox.Y0/tol) * tol
		bj := math.Round(items[j].el.BBox.Y0/tol) * tol
		if bi != bj {
			return bi < bj
		}
		return items[i].el.BBox.X0 < items[j].el.BBox.X0
	})
	for order, it := range items {
		positions[it.idx] = order
	}
	return positions
}

// assignColumn returns the index of the column whose horizontal interval
// contains x; outliers attach to the nearest column by x-distance.
func assignColumn(x float64, columns []geometry.ColumnBounds) int {
	for i, c := range columns {
		if x >= c.X0 && x <= c.X1 {
			return i
		}
	}
	best, bestDist := 0, math.MaxFloat64
	for i, c := range columns {
		mid := (c.X0 + c.X1) / 2
		d := math.Abs(x - mid)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func averageHeight(elements []Element) float64 {
	if len(elements) == 0 {
		return 12
	}
	var sum float64
	for _, e := range elements {
		h := e.Height
		if h <= 0 {
			h = e.BBox.Height()
		}
		sum += h
	}
	avg := sum / float64(len(elements))
	if avg <= 0 {
		return 12
	}
	return avg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
