// Package toc implements the two-pass ToC Reconciler (spec §4.6): it
// scores pages to find explicit table-of-contents pages, extracts entries
// from them with three line patterns, folds in entries derived from the
// heading structure, and reconciles the two into a single deduplicated,
// sorted list. It generalizes the teacher's section-pattern matching in
// internal/pdf/content_validator.go (extractSections) from a single-pass
// completeness check into the spec's scored two-pass reconciliation.
package toc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"latex-translator/internal/model"
)

var tocTitlePattern = regexp.MustCompile(`(?i)^(table of contents|contents|toc)\s*$`)
var dotsPageNumPattern = regexp.MustCompile(`^(.+?)\s*\.{3,}\s*(\d+)$`)
var numberedSectionPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)\s+(.+?)\s+(\d+)$`)
var chapterColonPattern = regexp.MustCompile(`(?i)^(?:Chapter|Section)\s+(\d+):\s*(.+)$`)
var trailingDotPattern = regexp.MustCompile(`\.{2,}\s*\d+\s*$`)

var tocKeywords = []string{"chapter", "section", "appendix", "part", "index"}

const tocPageScoreThreshold = 5

// canonicalHeadings are the literal terms the original implementation
// (pdf_parser.py's ToC dedup pass) checks for as substrings of a lowered
// title, each left as its own canonical form rather than merged into a
// shared synonym — "background" and "history" stay distinct canonical
// titles, they are not folded into "introduction".
var canonicalHeadings = []string{"introduction", "background", "methods", "history", "current state"}

// PageLine is one non-empty line of page text, in top-to-bottom order.
type PageLine struct {
	Text string
}

// PageInput bundles a page's lines for ToC-page scoring and extraction.
type PageInput struct {
	PageNum int
	Lines   []PageLine
}

// IsTocPage reports whether a page scores ≥5 against the spec §4.6 ToC-page
// heuristics.
func IsTocPage(page PageInput) bool {
	return tocPageScore(page) >= tocPageScoreThreshold
}

func tocPageScore(page PageInput) int {
	score := 0
	nonEmpty := 0
	shortLines := 0
	structurePatterns := 0
	keywordHits := 0

	for _, l := range page.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		nonEmpty++

		if tocTitlePattern.MatchString(text) {
			score += 3
		}
		if dotsPageNumPattern.MatchString(text) || numberedSectionPattern.MatchString(text) || chapterColonPattern.MatchString(text) {
			structurePatterns++
		}
		if trailingDotPattern.MatchString(text) {
			score += 1
		}
		if len(text) >= 3 && len(text) <= 60 {
			shortLines++
		}
		lower := strings.ToLower(text)
		for _, kw := range tocKeywords {
			if strings.Contains(lower, kw) {
				keywordHits++
				break
			}
		}
	}

	if structurePatterns > 3 {
		structurePatterns = 3
	}
	score += structurePatterns

	if nonEmpty > 0 && float64(shortLines)/float64(nonEmpty) >= 0.60 {
		score += 2
	}

	switch {
	case keywordHits >= 3:
		score += 2
	case keywordHits >= 1:
		score += 1
	}

	return score
}

// ExtractFromTocPage runs the spec §4.6 three line patterns against one
// confirmed ToC page.
func ExtractFromTocPage(page PageInput) []model.ToCEntry {
	var entries []model.ToCEntry
	for _, l := range page.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}

		if m := dotsPageNumPattern.FindStringSubmatch(text); m != nil {
			if pg, err := strconv.Atoi(m[2]); err == nil {
				entries = append(entries, model.ToCEntry{
					Title: strings.TrimSpace(m[1]), Page: pg, Level: 1,
					Source: model.ToCSourceTocPageDots, Confidence: 0.9,
				})
			}
			continue
		}

		if m := numberedSectionPattern.FindStringSubmatch(text); m != nil {
			if pg, err := strconv.Atoi(m[3]); err == nil {
				dots := strings.Count(m[1], ".")
				entries = append(entries, model.ToCEntry{
					Title: m[1] + " " + strings.TrimSpace(m[2]), Page: pg, Level: dots + 1,
					Source: model.ToCSourceTocPageNumbered, Confidence: 0.95,
				})
			}
			continue
		}

		if m := chapterColonPattern.FindStringSubmatch(text); m != nil {
			entries = append(entries, model.ToCEntry{
				Title: strings.TrimSpace(m[2]), Page: 0, Level: 1,
				Source: model.ToCSourceTocPageChapter, Confidence: 0.85,
			})
			continue
		}
	}
	return entries
}

// FromHeadings emits a ToC entry for every Heading block, per pass 1b.
func FromHeadings(blocks []model.ContentBlock) []model.ToCEntry {
	var entries []model.ToCEntry
	for _, b := range blocks {
		h, ok := b.Payload.(model.Heading)
		if !ok {
			continue
		}
		entries = append(entries, model.ToCEntry{
			Title: h.Content, Page: b.PageNum, Level: h.Level,
			Source: model.ToCSourceHeadingStruct, Confidence: 0.8,
		})
	}
	return entries
}

// Reconcile merges ToC-page and heading-structure entries into a single
// deduplicated, sorted list (spec §4.6 pass 2). It is idempotent: running
// it twice on the same input (or on its own prior output) yields the same
// entries (spec §8 property 9).
func Reconcile(entries []model.ToCEntry) []model.ToCEntry {
	normalized := make([]model.ToCEntry, len(entries))
	for i, e := range entries {
		normalized[i] = e
		normalized[i].Title = normalizeTitle(e.Title)
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		li, lj := len(normalized[i].Title), len(normalized[j].Title)
		if li != lj {
			return li < lj
		}
		return normalized[i].Confidence > normalized[j].Confidence
	})

	var kept []model.ToCEntry
	for _, e := range normalized {
		dropped := false
		for i := range kept {
			if strings.Contains(kept[i].Title, e.Title) {
				dropped = true
				break
			}
			if strings.Contains(e.Title, kept[i].Title) {
				kept[i] = e
				dropped = true
				break
			}
		}
		if !dropped {
			kept = append(kept, e)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Page != kept[j].Page {
			return kept[i].Page < kept[j].Page
		}
		return kept[i].Level < kept[j].Level
	})

	counter := 1
	for i := range kept {
		if kept[i].Page <= 0 {
			kept[i].Page = counter
		}
		counter = kept[i].Page + 1
	}

	return kept
}

// normalizeTitle lowercases the title, substitutes a canonical heading term
// if one of canonicalHeadings appears anywhere in it, then truncates to at
// most 16 words (spec §4.6 pass 2) — matching pdf_parser.py's dedup pass
// exactly: containment, not whole-title equality, decides the match, and a
// match replaces the title outright rather than merging it into another
// heading's bucket.
func normalizeTitle(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))

	for _, heading := range canonicalHeadings {
		if strings.Contains(lower, heading) {
			lower = heading
			break
		}
	}

	fields := strings.Fields(lower)
	if len(fields) > 16 {
		fields = fields[:16]
	}
	return strings.Join(fields, " ")
}
