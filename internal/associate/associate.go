// Package associate implements the Image↔Text Associator and Caption
// Linker (spec §4.5): for each extracted region it determines how the
// region sits relative to the page's text blocks, and — among nearby
// candidate captions — scores and selects the most likely caption.
// It generalizes the teacher's caption-prefix heuristic in
// internal/pdf/parser.go (isCaption's "Figure"/"Table" prefix check) into
// the spec's adaptive-distance, multi-signal confidence score.
package associate

import (
	"math"
	"regexp"
	"strings"

	"latex-translator/internal/model"
)

// Config holds the tunable thresholds spec §4.5 and §9 (Open Questions)
// expose.
type Config struct {
	// CaptionConfidenceFloor resolves spec §9's open question between the
	// debug value 0.01 and the "likely-intended" 0.3: checked against the
	// original implementation (pdf_parser.py's
	// `if confidence > 0.01: # Minimum confidence threshold (lowered for
	// debugging)`), 0.01 is in fact the value the shipped pipeline runs
	// with, not a leftover debug artifact — so that is the default here.
	CaptionConfidenceFloor float64
	CaptionMaxWords        int // descriptive-caption word ceiling; default 15
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{CaptionConfidenceFloor: 0.01, CaptionMaxWords: 15}
}

// TextCandidate is a text block considered as a caption or association
// partner for a region.
type TextCandidate struct {
	BlockID             string
	BBox                model.BBox
	Text                string
	ReadingOrderPosition int
}

var captionPrefixPattern = regexp.MustCompile(`(?i)^(figure|fig|table|chart|diagram|source|credit)\b`)
var captionLetterPattern = regexp.MustCompile(`^\([a-z0-9]+\)`)
var captionStepPattern = regexp.MustCompile(`(?i)^(step|phase|stage|example)\b`)

var descriptiveKeywords = []string{
	"shows", "illustrates", "depicts", "comparison", "overview",
	"summary", "example of", "results for", "view of",
}

// AssociationResult is one region's resolved spatial relationship and, if
// any candidate qualified, its linked caption.
type AssociationResult struct {
	SpatialRelationship  model.SpatialRelationship
	ReadingOrderPosition int
	CaptionBlockID       string
	CaptionConfidence    float64
	HasCaption           bool
}

// Associate determines a region's spatial relationship to the nearest text
// block and selects its best caption, if any candidate clears the
// configured confidence floor (spec §4.5).
func Associate(region model.Region, candidates []TextCandidate, cfg Config) AssociationResult {
	result := AssociationResult{SpatialRelationship: model.RelStandalone}

	if nearest, ok := nearestTextBlock(region.BBox, candidates); ok {
		result.SpatialRelationship = spatialRelationship(region.BBox, nearest.BBox)
		result.ReadingOrderPosition = readingOrderNear(region.BBox, nearest)
	}

	bestIdx := -1
	bestConfidence := 0.0
	for i, c := range candidates {
		if !withinCaptionDistance(region.BBox, c.BBox) {
			continue
		}
		if !looksLikeCaption(c.Text, cfg) {
			continue
		}
		confidence := captionConfidence(region.BBox, c.BBox, c.Text)
		if confidence > bestConfidence {
			bestConfidence = confidence
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestConfidence > cfg.CaptionConfidenceFloor {
		result.CaptionBlockID = candidates[bestIdx].BlockID
		result.CaptionConfidence = bestConfidence
		result.HasCaption = true
	}

	return result
}

// spatialRelationship classifies a region's position relative to a text
// block: overlapping counts as wrapped; otherwise before/after/alongside
// by the dominant axis of separation (spec §4.5).
func spatialRelationship(region, text model.BBox) model.SpatialRelationship {
	if region.OverlapArea(text) > 0 {
		return model.RelWrapped
	}

	vGap := verticalGap(region, text)
	hGap := horizontalGap(region, text)

	if vGap >= hGap {
		if region.CenterY() < text.CenterY() {
			return model.RelBefore
		}
		return model.RelAfter
	}
	return model.RelAlongside
}

func verticalGap(a, b model.BBox) float64 {
	if a.Y1 < b.Y0 {
		return b.Y0 - a.Y1
	}
	if b.Y1 < a.Y0 {
		return a.Y0 - b.Y1
	}
	return 0
}

func horizontalGap(a, b model.BBox) float64 {
	if a.X1 < b.X0 {
		return b.X0 - a.X1
	}
	if b.X1 < a.X0 {
		return a.X0 - b.X1
	}
	return 0
}

func nearestTextBlock(region model.BBox, candidates []TextCandidate) (TextCandidate, bool) {
	if len(candidates) == 0 {
		return TextCandidate{}, false
	}
	best := candidates[0]
	bestDist := centerDistance(region, best.BBox)
	for _, c := range candidates[1:] {
		d := centerDistance(region, c.BBox)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best, true
}

func centerDistance(a, b model.BBox) float64 {
	dx := a.CenterX() - b.CenterX()
	dy := a.CenterY() - b.CenterY()
	return math.Hypot(dx, dy)
}

// readingOrderNear assigns the region a position adjacent to its nearest
// text block: immediately after if the region sits below it, otherwise
// immediately before (spec §4.5 "±1 or midpoint").
func readingOrderNear(region model.BBox, nearest TextCandidate) int {
	if region.CenterY() >= nearest.BBox.CenterY() {
		return nearest.ReadingOrderPosition + 1
	}
	if nearest.ReadingOrderPosition > 0 {
		return nearest.ReadingOrderPosition - 1
	}
	return 0
}

func withinCaptionDistance(region, text model.BBox) bool {
	maxV := clamp(region.Height()*0.5, 50, 100)
	maxH := clamp(region.Width()*0.3, 75, 150)
	return verticalGap(region, text) <= maxV && horizontalGap(region, text) <= maxH
}

func looksLikeCaption(text string, cfg Config) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if captionPrefixPattern.MatchString(trimmed) {
		return true
	}
	if captionLetterPattern.MatchString(trimmed) {
		return true
	}
	if captionStepPattern.MatchString(trimmed) {
		return true
	}
	return isDescriptiveCaption(trimmed, cfg)
}

func isDescriptiveCaption(text string, cfg Config) bool {
	words := strings.Fields(text)
	if len(words) > cfg.CaptionMaxWords {
		return false
	}
	last := text[len(text)-1:]
	if last == "." || last == "!" || last == "?" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range descriptiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// captionConfidence implements the spec §4.5 scoring formula: base +
// position bonus + proximity bonus + alignment bonus, halved when the
// candidate text exceeds 200 characters.
func captionConfidence(region, text model.BBox, caption string) float64 {
	base := captionBase(caption)

	rel := spatialRelationship(region, text)
	switch rel {
	case model.RelAfter:
		base += 0.3
	case model.RelBefore:
		base += 0.2
	case model.RelAlongside:
		base += 0.1
	}

	dist := math.Max(verticalGap(region, text), horizontalGap(region, text))
	switch {
	case dist <= 10:
		base += 0.2
	case dist <= 30:
		base += 0.1
	case dist <= 50:
		base += 0.05
	}

	base += 0.2 * alignmentScore(region, text)

	if len(caption) > 200 {
		base *= 0.5
	}
	return base
}

func captionBase(text string) float64 {
	switch {
	case captionPrefixPattern.MatchString(text):
		return 0.5
	case captionStepPattern.MatchString(text), captionLetterPattern.MatchString(text):
		return 0.35
	default:
		return 0.2
	}
}

// alignmentScore measures how well a region and a candidate caption share
// a horizontal or vertical axis, as a fraction of the smaller extent
// overlapping, in [0,1].
func alignmentScore(region, text model.BBox) float64 {
	hOverlap := overlap1D(region.X0, region.X1, text.X0, text.X1)
	vOverlap := overlap1D(region.Y0, region.Y1, text.Y0, text.Y1)
	hSpan := math.Min(region.Width(), text.Width())
	vSpan := math.Min(region.Height(), text.Height())

	var score float64
	if hSpan > 0 {
		score = math.Max(score, hOverlap/hSpan)
	}
	if vSpan > 0 {
		score = math.Max(score, vOverlap/vSpan)
	}
	if score > 1 {
		score = 1
	}
	return score
}

func overlap1D(a0, a1, b0, b1 float64) float64 {
	lo := math.Max(a0, b0)
	hi := math.Min(a1, b1)
	if hi <= lo {
		return 0
	}
	return hi - lo
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
