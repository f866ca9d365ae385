// Package geometry implements the Page Geometry Analyzer (spec §4.1): it
// derives per-document font statistics and per-page column layout so that
// downstream components can classify and order content without hardcoded
// thresholds. It is grounded in the teacher's determineBlockType heuristics
// (internal/pdf/parser.go), generalized from fixed thresholds to
// document-adaptive statistics, and in the teacher's LayoutDetector
// (internal/pdf/layout_detector.go) for the optional ONNX-backed hook.
package geometry

import (
	"math"
	"sort"

	"latex-translator/internal/model"
)

// StructureAnalysis is the output of the Page Geometry Analyzer (spec §4.1).
type StructureAnalysis struct {
	DominantFontSize float64
	Mean             float64
	Std              float64
	// SizeToHeadingLevel maps a heading size band (rounded to 0.5pt) to the
	// heading level it represents, 1 being the largest/most prominent band.
	SizeToHeadingLevel map[float64]int
	// HeadingSizeBands holds the same bands in descending order, so level i
	// (1-indexed) is HeadingSizeBands[i-1].
	HeadingSizeBands []float64
	BodyFontName     string
	ColumnsPerPage   map[int]int
	// ColumnBoundsPerPage holds, for each multi-column page, the detected
	// column x-intervals in left-to-right order.
	ColumnBoundsPerPage map[int][]ColumnBounds
}

// ColumnBounds is one detected column's horizontal extent on a page.
type ColumnBounds struct {
	X0, X1 float64
}

const maxHeadingLevels = 6

// Analyze computes document-wide font statistics and per-page column
// layout from raw text spans.
func Analyze(pages []model.PageContent) StructureAnalysis {
	sa := StructureAnalysis{
		SizeToHeadingLevel:  make(map[float64]int),
		ColumnsPerPage:      make(map[int]int),
		ColumnBoundsPerPage: make(map[int][]ColumnBounds),
	}

	sizes := make([]float64, 0)
	sizeFreq := make(map[float64]int)
	fontFreq := make(map[string]int)

	for _, page := range pages {
		for _, sp := range page.Spans {
			if sp.FontSize <= 0 {
				continue
			}
			r := roundTo(sp.FontSize, 0.5)
			sizes = append(sizes, sp.FontSize)
			sizeFreq[r]++
			if sp.FontName != "" {
				fontFreq[sp.FontName]++
			}
		}
	}

	sa.DominantFontSize = modeFloat(sizeFreq)
	sa.Mean, sa.Std = meanStd(sizes)
	sa.BodyFontName = modeString(fontFreq)

	// Heading size bands: modes with size > body + std, descending, top 6.
	type bucket struct {
		size  float64
		count int
	}
	var candidates []bucket
	threshold := sa.DominantFontSize + sa.Std
	for sz, cnt := range sizeFreq {
		if sz > threshold {
			candidates = append(candidates, bucket{sz, cnt})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].size != candidates[j].size {
			return candidates[i].size > candidates[j].size
		}
		return candidates[i].count > candidates[j].count
	})
	if len(candidates) > maxHeadingLevels {
		candidates = candidates[:maxHeadingLevels]
	}
	for i, b := range candidates {
		level := i + 1
		sa.SizeToHeadingLevel[b.size] = level
		sa.HeadingSizeBands = append(sa.HeadingSizeBands, b.size)
	}

	for _, page := range pages {
		bounds := detectColumns(page)
		sa.ColumnsPerPage[page.PageNum] = len(bounds)
		sa.ColumnBoundsPerPage[page.PageNum] = bounds
	}

	return sa
}

// LevelForSize maps a span's font size to a heading level 1..6 using the
// nearest size band within ±0.5pt; if none is close enough, it estimates a
// level from the z-score, capped to 1..6 (spec §4.3).
func (sa StructureAnalysis) LevelForSize(size float64) int {
	bestLevel := 0
	bestDist := math.MaxFloat64
	for sz, level := range sa.SizeToHeadingLevel {
		d := math.Abs(sz - size)
		if d <= 0.5 && d < bestDist {
			bestDist = d
			bestLevel = level
		}
	}
	if bestLevel > 0 {
		return bestLevel
	}

	if sa.Std <= 0 {
		return maxHeadingLevels
	}
	z := (size - sa.DominantFontSize) / sa.Std
	level := maxHeadingLevels - int(z)
	if level < 1 {
		level = 1
	}
	if level > maxHeadingLevels {
		level = maxHeadingLevels
	}
	return level
}

// ZScore returns the size's standard-score against the document's body
// font statistics; used by the Content Classifier's size signal.
func (sa StructureAnalysis) ZScore(size float64) float64 {
	if sa.Std <= 0 {
		return 0
	}
	return (size - sa.DominantFontSize) / sa.Std
}

// detectColumns clusters spans by x-edge to find column boundaries: any
// gap wider than max(100, page_width*0.3) between successive left edges
// signals a column boundary (spec §4.1).
func detectColumns(page model.PageContent) []ColumnBounds {
	if len(page.Spans) == 0 {
		return []ColumnBounds{{X0: 0, X1: page.Width}}
	}

	xs := make([]float64, 0, len(page.Spans))
	for _, sp := range page.Spans {
		xs = append(xs, sp.BBox.X0)
	}
	sort.Float64s(xs)

	threshold := 100.0
	if adaptive := page.Width * 0.3; adaptive > threshold {
		threshold = adaptive
	}

	var boundaries []float64
	for i := 1; i < len(xs); i++ {
		if xs[i]-xs[i-1] > threshold {
			boundaries = append(boundaries, (xs[i]+xs[i-1])/2)
		}
	}

	if len(boundaries) == 0 {
		minX, maxX := xs[0], xs[len(xs)-1]
		width := page.Width
		if width <= 0 {
			width = maxX + 50
		}
		return []ColumnBounds{{X0: math.Min(0, minX), X1: math.Max(width, maxX+50)}}
	}

	bounds := make([]ColumnBounds, 0, len(boundaries)+1)
	prev := 0.0
	for _, b := range boundaries {
		bounds = append(bounds, ColumnBounds{X0: prev, X1: b})
		prev = b
	}
	right := page.Width
	if right <= 0 {
		right = xs[len(xs)-1] + 50
	}
	bounds = append(bounds, ColumnBounds{X0: prev, X1: right})
	return bounds
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}

func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(vals)))
	return mean, std
}

func modeFloat(freq map[float64]int) float64 {
	best, bestCount := 0.0, -1
	keys := make([]float64, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	for _, k := range keys {
		if freq[k] > bestCount {
			best, bestCount = k, freq[k]
		}
	}
	return best
}

func modeString(freq map[string]int) string {
	best, bestCount := "", -1
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if freq[k] > bestCount {
			best, bestCount = k, freq[k]
		}
	}
	return best
}
