package toc

import (
	"reflect"
	"testing"

	"latex-translator/internal/model"
)

// S3 — ToC reconciliation merge (spec §8 scenario S3).
func TestReconcile_S3_MergeDuplicateTitle(t *testing.T) {
	entries := []model.ToCEntry{
		{Title: "Introduction", Page: 1, Level: 1, Source: model.ToCSourceTocPageChapter, Confidence: 0.85},
		{Title: "Introduction", Page: 1, Level: 1, Source: model.ToCSourceHeadingStruct, Confidence: 0.8},
	}

	merged := Reconcile(entries)
	if len(merged) != 1 {
		t.Fatalf("expected a single merged entry, got %d: %+v", len(merged), merged)
	}
	if merged[0].Source != model.ToCSourceTocPageChapter {
		t.Errorf("expected the explicit ToC-page entry to win by confidence, got source %v", merged[0].Source)
	}
}

// Property 9 — idempotent reconciliation: running the reconciler twice on
// the same inputs (or on its own output) yields identical entries.
func TestReconcile_Property9_Idempotent(t *testing.T) {
	entries := []model.ToCEntry{
		{Title: "Introduction", Page: 1, Level: 1, Source: model.ToCSourceTocPageDots, Confidence: 0.9},
		{Title: "Background and Motivation", Page: 2, Level: 2, Source: model.ToCSourceHeadingStruct, Confidence: 0.8},
		{Title: "Results", Page: 5, Level: 1, Source: model.ToCSourceTocPageNumbered, Confidence: 0.95},
	}

	once := Reconcile(entries)
	twice := Reconcile(once)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("reconciliation is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestIsTocPage_ScoresExplicitTocPage(t *testing.T) {
	page := PageInput{
		PageNum: 2,
		Lines: []PageLine{
			{Text: "Table of Contents"},
			{Text: "1 Introduction ......... 1"},
			{Text: "2 Background ......... 5"},
			{Text: "Chapter 3: Methods ......... 12"},
			{Text: "Appendix A ......... 40"},
		},
	}
	if !IsTocPage(page) {
		t.Errorf("expected page to score as a ToC page, score=%d", tocPageScore(page))
	}
}

func TestIsTocPage_RejectsProsePage(t *testing.T) {
	page := PageInput{
		PageNum: 10,
		Lines: []PageLine{
			{Text: "This chapter discusses the broader implications of the results obtained in the previous section."},
			{Text: "We further argue that the methodology generalizes well to other domains of application."},
		},
	}
	if IsTocPage(page) {
		t.Errorf("expected a prose page to not score as a ToC page, score=%d", tocPageScore(page))
	}
}

func TestExtractFromTocPage_DotsPattern(t *testing.T) {
	page := PageInput{Lines: []PageLine{{Text: "Introduction ......... 3"}}}
	entries := ExtractFromTocPage(page)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Title != "Introduction" || entries[0].Page != 3 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestExtractFromTocPage_NumberedPattern(t *testing.T) {
	page := PageInput{Lines: []PageLine{{Text: "1.2 System Overview 14"}}}
	entries := ExtractFromTocPage(page)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != 2 || entries[0].Page != 14 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestReconcile_FillsMissingPageNumbers(t *testing.T) {
	entries := []model.ToCEntry{
		{Title: "Overview", Page: 0, Level: 1, Source: model.ToCSourceTocPageChapter, Confidence: 0.85},
		{Title: "Details", Page: 3, Level: 1, Source: model.ToCSourceHeadingStruct, Confidence: 0.8},
	}
	merged := Reconcile(entries)
	for _, e := range merged {
		if e.Page <= 0 {
			t.Errorf("expected all entries to have a positive page number after reconciliation, got %+v", e)
		}
	}
}
