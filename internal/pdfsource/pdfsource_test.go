package pdfsource

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func TestMergeRow_BuildsSpanWithFlippedY(t *testing.T) {
	row := pdf.Row{Content: []pdf.Text{
		{S: "Intro", X: 72, Y: 700, Font: "Helvetica-Bold", FontSize: 14},
		{S: "duction", X: 100, Y: 700, Font: "Helvetica-Bold", FontSize: 14},
	}}

	span, ok := mergeRow(row, 1, 792)
	if !ok {
		t.Fatal("expected a span")
	}
	if span.Text != "Introduction" {
		t.Errorf("Text = %q, want %q", span.Text, "Introduction")
	}
	if !span.Bold {
		t.Error("expected Bold to be true for a Helvetica-Bold font name")
	}
	// Native Y=700 near the top of a 792-tall page should flip to a small
	// top-left Y, not a value near the page height.
	if span.BBox.Y0 > 792-700+20 {
		t.Errorf("BBox.Y0 = %v, want a small top-of-page value after flipping", span.BBox.Y0)
	}
	if span.BBox.Y0 < 0 {
		t.Errorf("BBox.Y0 = %v, want non-negative", span.BBox.Y0)
	}
}

func TestMergeRow_EmptyRowRejected(t *testing.T) {
	if _, ok := mergeRow(pdf.Row{}, 1, 792); ok {
		t.Error("expected empty row to be rejected")
	}
}

func TestMergeRow_DropsPostScriptGarbage(t *testing.T) {
	row := pdf.Row{Content: []pdf.Text{
		{S: "/F1 12 Tf gsave newpath moveto", X: 0, Y: 0, Font: "F1", FontSize: 12},
	}}
	if _, ok := mergeRow(row, 1, 792); ok {
		t.Error("expected PostScript-operator text to be dropped")
	}
}

func TestIsPostScriptCode(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"The quick brown fox", false},
		{"gsave newpath moveto lineto stroke", true},
		{"/name def", true},
		{"https://example.com/path", false},
		{"", false},
	}
	for _, c := range cases {
		if got := isPostScriptCode(c.text); got != c.want {
			t.Errorf("isPostScriptCode(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestHasExcessiveNonPrintable(t *testing.T) {
	if hasExcessiveNonPrintable("Normal prose.") {
		t.Error("expected normal prose to pass")
	}
	garbled := "\x01\x02\x03\x04abc"
	if !hasExcessiveNonPrintable(garbled) {
		t.Error("expected control-character-heavy text to be rejected")
	}
}

func TestPageNumFromImageName(t *testing.T) {
	cases := []struct {
		name       string
		totalPages int
		want       int
	}{
		{"doc_3_Im0.png", 5, 3},
		{"doc_1_Im2.jpg", 5, 1},
		{"single.png", 1, 1},
		{"unparseable.png", 5, 0},
	}
	for _, c := range cases {
		if got := pageNumFromImageName(c.name, c.totalPages); got != c.want {
			t.Errorf("pageNumFromImageName(%q, %d) = %d, want %d", c.name, c.totalPages, got, c.want)
		}
	}
}
