// Package region implements the Image/Region Extractor (spec §4.4): it
// turns raw page images, text lines and drawing counts into typed Regions
// (raster images, detected tables, detected equations, visual areas),
// filters false positives with the assessment-text and text-only guards,
// validates each surviving region against its page's textual context, and
// resolves competing extractions on the same page with a quality score.
// It generalizes the teacher's caption/figure heuristics in
// internal/pdf/parser.go and content_validator.go from single-signal
// string checks to the spec's multi-stage region pipeline, and uses
// golang.org/x/image for the pixel-level size/aspect checks the raster
// pass needs.
package region

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"regexp"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"latex-translator/internal/model"
)

// Config holds the tunable thresholds spec §4.4 and §6 expose.
type Config struct {
	MinWidth, MinHeight float64 // W_min, H_min; default 8
	MaxAspectRatio      float64 // max/min aspect ratio ceiling; default 20
	MinTableRows        int     // default 2
	MinTableColumns     int     // default 2
	RowYTolerance       float64 // row-grouping y-proximity tolerance; default 5
	ColXTolerance       float64 // column x-start tolerance; default 20
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinWidth: 8, MinHeight: 8, MaxAspectRatio: 20,
		MinTableRows: 2, MinTableColumns: 2,
		RowYTolerance: 5, ColXTolerance: 20,
	}
}

var mathSymbols = "∑∫∂∆∇±≤≥≠≈∝∈⊂∪∩…"
var eqExprPattern = regexp.MustCompile(`^[A-Za-z0-9_]+\s*=\s*\S`)
var eqPowerPattern = regexp.MustCompile(`[A-Za-z0-9]\^[A-Za-z0-9{(]`)
var eqSubPattern = regexp.MustCompile(`[A-Za-z0-9]_[A-Za-z0-9{(]`)
var eqCmdPattern = regexp.MustCompile(`\\[a-zA-Z]+\{`)

var assessmentMarkers = []string{
	"first point", "second point", "third point", "assessment criterion",
	"grading rubric", "marking scheme", "criteria for evaluation",
}
var numberedAssessmentPattern = regexp.MustCompile(`^\s*\(?[0-9]+[.)]\s+\S`)

var figureRefPattern = regexp.MustCompile(`(?i)figure\s+\d+|fig\.\s*\d+|table\s+\d+|tab\.\s*\d+`)
var strongVisualKeywords = []string{"diagram", "chart", "plot", "illustration", "photograph", "schematic"}
var technicalVisualKeywords = []string{"shown in", "depicted", "illustrated", "see figure", "see table"}

var academicConnectives = []string{"however", "therefore", "furthermore", "moreover", "consequently", "nevertheless"}
var tocBibliographyKeywords = []string{"table of contents", "bibliography", "references", "works cited"}

// TextLine is one line of extracted text used for table/equation detection.
type TextLine struct {
	Text string
	BBox model.BBox
}

// PageInput bundles everything the extractor needs for one page.
type PageInput struct {
	PageNum      int
	Width        float64
	Height       float64
	Images       []model.ImageRef
	Lines        []TextLine
	DrawingCount int
	PageText     string // full page text, used for context validation
}

// Extracted is a surviving region plus its assigned priority and any
// quality-resolution bookkeeping.
type Extracted struct {
	Region   model.Region
	Priority float64
}

// Stats reports how many candidate regions were filtered versus kept,
// feeding the per-run diagnostic summary.
type Stats struct {
	Filtered int
	Kept     int
}

// Extract runs the full sub-stage pipeline (spec §4.4 a-h) over one page
// and returns the surviving, prioritized regions.
func Extract(page PageInput, cfg Config) ([]Extracted, Stats) {
	var candidates []model.Region

	candidates = append(candidates, rasterPass(page, cfg)...)
	candidates = append(candidates, tableCandidates(page, cfg)...)
	candidates = append(candidates, equationCandidates(page)...)
	if va, ok := visualAreaPass(page); ok {
		candidates = append(candidates, va)
	}

	var stats Stats
	var survivors []model.Region
	for _, r := range candidates {
		if r.Kind == model.RegionDetectedTable && assessmentGuardRejects(r) {
			stats.Filtered++
			continue
		}
		if r.Kind == model.RegionVisualArea && textOnlyGuardRejects(r) {
			stats.Filtered++
			continue
		}
		if !imageContextValid(page) {
			stats.Filtered++
			continue
		}
		survivors = append(survivors, r)
	}

	resolved := resolveCompeting(survivors)
	stats.Filtered += len(survivors) - len(resolved)
	stats.Kept = len(resolved)

	out := make([]Extracted, len(resolved))
	for i, r := range resolved {
		out[i] = Extracted{Region: r, Priority: priorityFor(r, page)}
	}
	return out, stats
}

// rasterPass emits a raster_image region for every embedded image that
// clears the minimum size and aspect-ratio bounds (spec §4.4a).
func rasterPass(page PageInput, cfg Config) []model.Region {
	var out []model.Region
	for _, img := range page.Images {
		w, h := float64(img.Width), float64(img.Height)
		if w == 0 || h == 0 {
			if cfg2, ok := decodeBounds(img.Bytes); ok {
				w, h = cfg2.X, cfg2.Y
			}
		}
		if w < cfg.MinWidth || h < cfg.MinHeight {
			continue
		}
		aspect := w / h
		if aspect < 1 {
			aspect = 1 / aspect
		}
		if aspect > cfg.MaxAspectRatio {
			continue
		}
		out = append(out, model.Region{
			RegionID:   model.NewRegionID(),
			Kind:       model.RegionRasterImage,
			BBox:       img.BBox,
			PageNum:    page.PageNum,
			Confidence: 0.95,
			FileSizeMB: float64(len(img.Bytes)) / (1024 * 1024),
		})
	}
	return out
}

// decodeBounds returns an image's pixel dimensions via the stdlib/x/image
// decoders registered above, for raw image bytes lacking pre-parsed size.
func decodeBounds(data []byte) (image.Point, bool) {
	if len(data) == 0 {
		return image.Point{}, false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, false
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, true
}

// tableCandidates groups lines into rows by y-proximity and similar column
// x-starts, emitting a detected_table region when row/column counts clear
// the configured minimums with consistent column counts (spec §4.4b).
func tableCandidates(page PageInput, cfg Config) []model.Region {
	rows := groupRows(page.Lines, cfg.RowYTolerance)
	if len(rows) < cfg.MinTableRows {
		return nil
	}

	colCounts := make([]int, len(rows))
	for i, row := range rows {
		colCounts[i] = countColumns(row, cfg.ColXTolerance)
	}

	maxCols := 0
	for _, c := range colCounts {
		if c > maxCols {
			maxCols = c
		}
	}
	if maxCols < cfg.MinTableColumns {
		return nil
	}

	consistent := 0
	for _, c := range colCounts {
		if abs(c-maxCols) <= 1 {
			consistent++
		}
	}
	if float64(consistent)/float64(len(rows)) < 0.70 {
		return nil
	}

	bbox := boundingBoxOf(page.Lines)
	var allText strings.Builder
	for _, l := range page.Lines {
		allText.WriteString(l.Text)
		allText.WriteString("\n")
	}

	return []model.Region{{
		RegionID:   model.NewRegionID(),
		Kind:       model.RegionDetectedTable,
		BBox:       bbox,
		PageNum:    page.PageNum,
		Confidence: 0.8,
		OCRText:    allText.String(),
	}}
}

func groupRows(lines []TextLine, yTol float64) [][]TextLine {
	sorted := make([]TextLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BBox.Y0 < sorted[j].BBox.Y0 })

	var rows [][]TextLine
	for _, l := range sorted {
		placed := false
		for i := range rows {
			if math.Abs(rows[i][0].BBox.Y0-l.BBox.Y0) <= yTol {
				rows[i] = append(rows[i], l)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, []TextLine{l})
		}
	}
	return rows
}

func countColumns(row []TextLine, xTol float64) int {
	xs := make([]float64, len(row))
	for i, l := range row {
		xs[i] = l.BBox.X0
	}
	sort.Float64s(xs)
	if len(xs) == 0 {
		return 0
	}
	cols := 1
	for i := 1; i < len(xs); i++ {
		if xs[i]-xs[i-1] > xTol {
			cols++
		}
	}
	return cols
}

// equationCandidates emits an equation region for any line containing a
// mathematical symbol or matching one of the equation patterns (spec §4.4c).
func equationCandidates(page PageInput) []model.Region {
	var out []model.Region
	for _, l := range page.Lines {
		if isEquationText(l.Text) {
			out = append(out, model.Region{
				RegionID:   model.NewRegionID(),
				Kind:       model.RegionDetectedEquation,
				BBox:       l.BBox,
				PageNum:    page.PageNum,
				Confidence: 0.8,
				OCRText:    l.Text,
			})
		}
	}
	return out
}

func isEquationText(text string) bool {
	for _, r := range text {
		if strings.ContainsRune(mathSymbols, r) {
			return true
		}
	}
	return eqExprPattern.MatchString(text) || eqPowerPattern.MatchString(text) ||
		eqSubPattern.MatchString(text) || eqCmdPattern.MatchString(text)
}

// visualAreaPass emits a page-spanning visual_area region when the page
// shows enough non-text signal: ≥3 vector drawings, any raster image, or
// text coverage under 20% of the page area (spec §4.4d).
func visualAreaPass(page PageInput) (model.Region, bool) {
	hasRaster := len(page.Images) > 0
	manyDrawings := page.DrawingCount >= 3
	lowTextCoverage := textCoverageRatio(page) < 0.20

	if !hasRaster && !manyDrawings && !lowTextCoverage {
		return model.Region{}, false
	}

	margin := 0.05
	bbox := model.BBox{
		X0: page.Width * margin, Y0: page.Height * margin,
		X1: page.Width * (1 - margin), Y1: page.Height * (1 - margin),
	}
	confidence := 0.7
	if hasRaster {
		confidence = 0.9
	} else if manyDrawings {
		confidence = 0.8
	}

	return model.Region{
		RegionID:   model.NewRegionID(),
		Kind:       model.RegionVisualArea,
		BBox:       bbox,
		PageNum:    page.PageNum,
		Confidence: confidence,
		OCRText:    page.PageText,
	}, true
}

func textCoverageRatio(page PageInput) float64 {
	area := page.Width * page.Height
	if area <= 0 {
		return 1
	}
	var covered float64
	for _, l := range page.Lines {
		covered += l.BBox.Area()
	}
	ratio := covered / area
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// assessmentGuardRejects rejects a table candidate whose text reads as
// prose enumeration rather than tabular data (spec §4.4e).
func assessmentGuardRejects(r model.Region) bool {
	lower := strings.ToLower(r.OCRText)
	for _, marker := range assessmentMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	lines := strings.Split(r.OCRText, "\n")
	if len(lines) == 0 {
		return false
	}
	matched := 0
	for _, l := range lines {
		if numberedAssessmentPattern.MatchString(strings.TrimSpace(l)) {
			matched++
		}
	}
	return float64(matched)/float64(len(lines)) >= 0.30
}

// textOnlyGuardRejects rejects a visual-area region whose clipped text
// reads as continuous prose rather than visual content (spec §4.4f).
func textOnlyGuardRejects(r model.Region) bool {
	text := r.OCRText
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)

	sentences := splitSentences(text)
	if len(sentences) > 0 {
		avgLen, longRatio := sentenceStats(sentences)
		paragraphBreaks := strings.Count(text, "\n\n")
		if avgLen > 40 && longRatio > 0.3 && paragraphBreaks >= 2 {
			return true
		}
	}

	connectiveCount := 0
	for _, c := range academicConnectives {
		if strings.Contains(lower, c) {
			connectiveCount++
		}
	}
	if connectiveCount >= 2 && len(sentences) > 5 {
		return true
	}

	for _, kw := range tocBibliographyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	return false
}

func splitSentences(text string) []string {
	raw := regexp.MustCompile(`[.!?]+\s+`).Split(text, -1)
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sentenceStats(sentences []string) (avgLen float64, longRatio float64) {
	if len(sentences) == 0 {
		return 0, 0
	}
	var total int
	long := 0
	for _, s := range sentences {
		total += len(s)
		if len(s) > 40 {
			long++
		}
	}
	avgLen = float64(total) / float64(len(sentences))
	longRatio = float64(long) / float64(len(sentences))
	return avgLen, longRatio
}

// imageContextValid retains a region only if its page's text contains an
// explicit figure/table reference, two strong visual keywords, or
// technical content with at least one visual keyword (spec §4.4g).
func imageContextValid(page PageInput) bool {
	lower := strings.ToLower(page.PageText)
	if figureRefPattern.MatchString(page.PageText) {
		return true
	}
	strongCount := 0
	for _, kw := range strongVisualKeywords {
		if strings.Contains(lower, kw) {
			strongCount++
		}
	}
	if strongCount >= 2 {
		return true
	}
	hasTechnical := false
	for _, kw := range technicalVisualKeywords {
		if strings.Contains(lower, kw) {
			hasTechnical = true
			break
		}
	}
	return hasTechnical && strongCount >= 1
}

// resolveCompeting groups same-kind regions and keeps the highest-quality
// visual_area, dropping others deemed "similar" (spec §4.4h).
func resolveCompeting(regions []model.Region) []model.Region {
	byKind := make(map[model.RegionKind][]model.Region)
	var order []model.RegionKind
	for _, r := range regions {
		if _, ok := byKind[r.Kind]; !ok {
			order = append(order, r.Kind)
		}
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	var out []model.Region
	for _, kind := range order {
		group := byKind[kind]
		if kind == model.RegionVisualArea {
			out = append(out, keepBestQuality(group)...)
			continue
		}
		out = append(out, dropSimilar(group)...)
	}
	return out
}

// keepBestQuality keeps exactly the single highest-Q region of a
// visual_area group: spec §4.4h collapses visual_area candidates to one
// survivor per page rather than clustering by similarity.
func keepBestQuality(group []model.Region) []model.Region {
	if len(group) == 0 {
		return nil
	}
	best := group[0]
	for _, r := range group[1:] {
		if qualityScore(r) > qualityScore(best) {
			best = r
		}
	}
	return []model.Region{best}
}

func dropSimilar(group []model.Region) []model.Region {
	var kept []model.Region
	used := make([]bool, len(group))
	for i := range group {
		if used[i] {
			continue
		}
		best := i
		used[i] = true
		for j := i + 1; j < len(group); j++ {
			if used[j] {
				continue
			}
			if isSimilar(group[i], group[j]) {
				used[j] = true
				if qualityScore(group[j]) > qualityScore(group[best]) {
					best = j
				}
			}
		}
		kept = append(kept, group[best])
	}
	return kept
}

// isSimilar implements spec §4.4h's similarity test: same kind and either
// bbox overlap over 20% of the smaller area, or file-size ratio over 3x.
func isSimilar(a, b model.Region) bool {
	if a.Kind != b.Kind {
		return false
	}
	overlap := a.BBox.OverlapArea(b.BBox)
	smaller := math.Min(a.BBox.Area(), b.BBox.Area())
	if smaller > 0 && overlap/smaller > 0.20 {
		return true
	}
	ratio := sizeRatio(a.FileSizeMB, b.FileSizeMB)
	return ratio > 3.0
}

func sizeRatio(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 1
	}
	if a > b {
		return a / b
	}
	return b / a
}

// qualityScore implements the spec §4.4h quality formula Q.
func qualityScore(r model.Region) float64 {
	q := clampF(r.FileSizeMB, 0, 5)
	q += clampF(r.BBox.Area()/100000, 0, 3)
	q += 2 * r.Confidence
	q += kindBonus(r.Kind)
	if r.FileSizeMB*1024 < 50 {
		q -= 2.0
	}
	return q
}

func kindBonus(kind model.RegionKind) float64 {
	switch kind {
	case model.RegionRasterImage:
		return 0.5
	case model.RegionDetectedTable, model.RegionDetectedEquation:
		return 0.3
	default:
		return 0
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// priorityFor assigns the output priority spec §4.4 documents: explicit
// images 0.95, detected equations/tables 0.8, visual areas 0.7-0.9 by size.
func priorityFor(r model.Region, page PageInput) float64 {
	switch r.Kind {
	case model.RegionRasterImage:
		return 0.95
	case model.RegionDetectedEquation, model.RegionDetectedTable:
		return 0.8
	case model.RegionVisualArea:
		pageArea := page.Width * page.Height
		if pageArea <= 0 {
			return 0.7
		}
		ratio := r.BBox.Area() / pageArea
		p := 0.7 + clampF(ratio, 0, 1)*0.2
		return p
	default:
		return 0.7
	}
}

func boundingBoxOf(lines []TextLine) model.BBox {
	if len(lines) == 0 {
		return model.BBox{}
	}
	bbox := lines[0].BBox
	for _, l := range lines[1:] {
		bbox.X0 = math.Min(bbox.X0, l.BBox.X0)
		bbox.Y0 = math.Min(bbox.Y0, l.BBox.Y0)
		bbox.X1 = math.Max(bbox.X1, l.BBox.X1)
		bbox.Y1 = math.Max(bbox.Y1, l.BBox.Y1)
	}
	return bbox
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
