// Package classifier implements the Content Classifier (spec §4.3): it
// maps raw text spans into typed ContentBlocks using the weighted,
// multi-signal score the spec defines, replacing the teacher's fixed
// size/bold thresholds in internal/pdf/parser.go (determineBlockType,
// isMathFormula, isNumberedHeading, isAllUpperCase, isListItem) with
// document-adaptive statistics from the Page Geometry Analyzer.
package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"latex-translator/internal/geometry"
	"latex-translator/internal/model"
)

// Config holds the tunable thresholds spec §6 exposes for classification.
type Config struct {
	HeadingMaxWords int // default 12
	HeadingMaxChars int // soft guard alongside the word count (90, spec §8 property 5)
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{HeadingMaxWords: 12, HeadingMaxChars: 90}
}

const headingScoreThreshold = 0.6

var sectionStartWords = map[string]bool{
	"introduction": true, "conclusion": true, "methodology": true,
	"results": true, "references": true, "abstract": true,
	"discussion": true, "background": true, "acknowledgments": true,
	"appendix": true, "related work": true,
}

var numberedHeadingPattern = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S`)
var chapterSectionPattern = regexp.MustCompile(`(?i)^(chapter|section|appendix)\s+\S`)

var bulletRunes = []rune{'•', '◦', '▪', '▫', '●', '○', '■', '□', '-', '*', '–', '—'}
var numberedListPattern = regexp.MustCompile(`^(\(?[0-9]+[.)]|\(?[a-zA-Z][.)])\s+\S`)

var mathSymbols = "∑∫∂∆∇±≤≥≠≈∝∈⊂∪∩…"
var equationExprPattern = regexp.MustCompile(`^[A-Za-z0-9_]+\s*=\s*\S`)
var equationPowerPattern = regexp.MustCompile(`[A-Za-z0-9]\^[A-Za-z0-9{(]`)
var equationSubPattern = regexp.MustCompile(`[A-Za-z0-9]_[A-Za-z0-9{(]`)
var equationCmdPattern = regexp.MustCompile(`\\[a-zA-Z]+\{`)

var codeFencePattern = regexp.MustCompile("^```")
var tablePipePattern = regexp.MustCompile(`\|.*\|.*\|`)

var pageNumberPattern = regexp.MustCompile(`^\d{1,4}$`)
var copyrightPattern = regexp.MustCompile(`(?i)(copyright|©|confidential|all rights reserved)`)
var urlPattern = regexp.MustCompile(`https?://`)
var artifactPattern = regexp.MustCompile(`(?i)(\[MISSING_PAGE\]|\\begin\{)`)

var titleCaser = cases.Title(language.English)
var upperCaser = cases.Upper(language.English)

// Result is the outcome of classifying one span: either a block, or a
// filtering decision that produces no block.
type Result struct {
	Block    model.ContentBlock
	Filtered bool
}

// Classify scores a single span and returns the ContentBlock it becomes,
// or (zero, false) if the span is filtered out (spec §4.3's Filtering
// rules: page numbers, running headers/footers, sub-3-character noise).
func Classify(span model.Span, sa geometry.StructureAnalysis, pageHeight float64, cfg Config) (model.ContentBlock, bool) {
	text := strings.TrimSpace(span.Text)
	if len(text) < 3 {
		return model.ContentBlock{}, false
	}

	yRatio := verticalRatio(span.BBox.CenterY(), pageHeight)
	inTopBand := yRatio <= 0.10
	inBottomBand := yRatio >= 0.90

	if (inTopBand || inBottomBand) && pageNumberPattern.MatchString(text) {
		return model.ContentBlock{}, false
	}
	if inTopBand && chapterSectionPattern.MatchString(text) && wordCount(text) <= 6 {
		return model.ContentBlock{}, false
	}
	if inBottomBand && (copyrightPattern.MatchString(text) || urlPattern.MatchString(text)) {
		return model.ContentBlock{}, false
	}

	if artifactPattern.MatchString(text) {
		return blockOf(span, model.Metadata{Content: text, MetadataType: model.MetadataArtifact}), true
	}

	if isEquation(text) {
		return blockOf(span, model.Equation{Content: text}), true
	}
	if codeFencePattern.MatchString(text) {
		return blockOf(span, model.CodeBlock{Content: text}), true
	}
	if tablePipePattern.MatchString(text) {
		cols := strings.Count(text, "|") - 1
		return blockOf(span, model.Table{MarkdownContent: text, RowCount: 1, ColumnCount: cols}), true
	}

	if marker, ok := listMarker(text); ok {
		return blockOf(span, model.ListItem{Content: text, MarkerStyle: marker}), true
	}

	if score, ok := headingScore(text, span, sa, cfg); ok && score >= headingScoreThreshold {
		level := sa.LevelForSize(span.FontSize)
		return blockOf(span, model.Heading{Level: level, Content: text}), true
	}

	if caption, ok := captionLike(text); ok {
		return blockOf(span, caption), true
	}

	return blockOf(span, model.Paragraph{Content: text}), true
}

func blockOf(span model.Span, payload model.Payload) model.ContentBlock {
	return model.ContentBlock{
		BlockID:   model.NewBlockID(),
		BlockType: payload.blockType(),
		PageNum:   span.Page,
		BBox:      span.BBox,
		Formatting: model.Formatting{
			FontName: span.FontName,
			FontSize: span.FontSize,
			IsBold:   span.Bold,
			IsItalic: span.Italic,
			Color:    span.Color,
			Flags:    span.Flags,
		},
		Payload: payload,
	}
}

// headingScore implements the spec §4.3 weighted scoring table. The bool
// return is false when the length guard forces a non-heading regardless of
// score (">120 chars OR >12 words: force paragraph").
func headingScore(text string, span model.Span, sa geometry.StructureAnalysis, cfg Config) (float64, bool) {
	words := wordCount(text)
	if len(text) > 120 || words > cfg.HeadingMaxWords {
		return 0, false
	}
	if len(text) > cfg.HeadingMaxChars {
		return 0, false
	}

	var score float64

	z := sa.ZScore(span.FontSize)
	switch {
	case z > 2.0:
		score += 0.40
	case z > 1.5:
		score += 0.30
	case z > 1.0:
		score += 0.20
	}

	if span.Bold {
		score += 0.30
	} else if span.Italic {
		score += 0.10
	}

	if span.FontName != "" && sa.BodyFontName != "" && span.FontName != sa.BodyFontName {
		score += 0.10
	}

	switch {
	case len(text) <= 50:
		score += 0.10
	case len(text) <= 100:
		score += 0.05
	}

	if matchesHeadingPattern(text) {
		score += 0.10
	}

	if isSectionStart(text) {
		score += 0.10
	}

	return score, true
}

func matchesHeadingPattern(text string) bool {
	if numberedHeadingPattern.MatchString(text) {
		return true
	}
	if chapterSectionPattern.MatchString(text) {
		return true
	}
	words := strings.Fields(text)
	if len(words) <= 5 && isAllCaps(text) {
		return true
	}
	if len(words) <= 7 && isTitleCase(text) {
		return true
	}
	return false
}

func isAllCaps(text string) bool {
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter {
		return false
	}
	return upperCaser.String(text) == text
}

func isTitleCase(text string) bool {
	return titleCaser.String(strings.ToLower(text)) == text
}

func isSectionStart(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return sectionStartWords[lower]
}

func isEquation(text string) bool {
	for _, r := range text {
		if strings.ContainsRune(mathSymbols, r) {
			return true
		}
	}
	return equationExprPattern.MatchString(text) ||
		equationPowerPattern.MatchString(text) ||
		equationSubPattern.MatchString(text) ||
		equationCmdPattern.MatchString(text)
}

func listMarker(text string) (string, bool) {
	runes := []rune(text)
	if len(runes) == 0 {
		return "", false
	}
	for _, b := range bulletRunes {
		if runes[0] == b {
			return string(b), true
		}
	}
	if numberedListPattern.MatchString(text) {
		end := strings.IndexAny(text, ".)")
		if end >= 0 && end < 5 {
			return text[:end+1], true
		}
	}
	return "", false
}

func captionLike(text string) (model.Caption, bool) {
	lower := strings.ToLower(text)
	for _, prefix := range []string{"figure", "fig.", "table", "tab.", "chart", "diagram"} {
		if strings.HasPrefix(lower, prefix) {
			return model.Caption{Content: text}, true
		}
	}
	return model.Caption{}, false
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func verticalRatio(y, pageHeight float64) float64 {
	if pageHeight <= 0 {
		return 0.5
	}
	r := y / pageHeight
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return r
}
