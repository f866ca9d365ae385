package classifier

import (
	"strings"
	"testing"

	"latex-translator/internal/geometry"
	"latex-translator/internal/model"
)

// S1 — heading classification (spec §8 scenario S1).
func TestClassify_S1_Heading(t *testing.T) {
	sa := geometry.StructureAnalysis{DominantFontSize: 12.0, Std: 1.5, SizeToHeadingLevel: map[float64]int{16.0: 2}}
	span := model.Span{Text: "Introduction", FontSize: 16.0, Bold: true, Page: 1, BBox: model.BBox{Y0: 100, Y1: 120}}

	block, ok := Classify(span, sa, 800, DefaultConfig())
	if !ok {
		t.Fatal("expected a block, got filtered")
	}
	h, isHeading := block.Payload.(model.Heading)
	if !isHeading {
		t.Fatalf("expected Heading payload, got %T", block.Payload)
	}
	if h.Level != 2 {
		t.Errorf("expected level 2, got %d", h.Level)
	}
	if h.Content != "Introduction" {
		t.Errorf("unexpected content %q", h.Content)
	}
}

// S2 — paragraph fragment rejected as heading (spec §8 scenario S2).
func TestClassify_S2_LongFragmentIsParagraph(t *testing.T) {
	sa := geometry.StructureAnalysis{DominantFontSize: 12.0, Std: 1.5}
	text := "This is a long paragraph fragment with more than twelve words continuing the previous section."
	span := model.Span{Text: text, FontSize: 14.4, Bold: false, Page: 1, BBox: model.BBox{Y0: 300, Y1: 320}}

	block, ok := Classify(span, sa, 800, DefaultConfig())
	if !ok {
		t.Fatal("expected a block, got filtered")
	}
	if _, isParagraph := block.Payload.(model.Paragraph); !isParagraph {
		t.Fatalf("expected Paragraph payload, got %T", block.Payload)
	}
}

// Property 5 — heading-length guard: no block with >12 words or >90 chars
// is classified as a heading, regardless of score.
func TestClassify_Property5_HeadingLengthGuard(t *testing.T) {
	sa := geometry.StructureAnalysis{DominantFontSize: 10.0, Std: 1.0}
	longText := strings.Repeat("WORD ", 20) // 20 words, all caps, bold
	span := model.Span{Text: strings.TrimSpace(longText), FontSize: 30.0, Bold: true, Page: 1, BBox: model.BBox{Y0: 300, Y1: 320}}

	block, ok := Classify(span, sa, 800, DefaultConfig())
	if !ok {
		t.Fatal("expected a block")
	}
	if _, isHeading := block.Payload.(model.Heading); isHeading {
		t.Error("heading-length guard did not fire for a >12-word, bold, oversized span")
	}
}

// Property 6 — page-number filter: a run matching ^\d{1,4}$ in the top or
// bottom 10% of page height is never emitted as a block.
func TestClassify_Property6_PageNumberFilter(t *testing.T) {
	sa := geometry.StructureAnalysis{DominantFontSize: 10.0, Std: 1.0}
	pageHeight := 800.0

	top := model.Span{Text: "142", FontSize: 10, Page: 1, BBox: model.BBox{Y0: 10, Y1: 20}}
	if _, ok := Classify(top, sa, pageHeight, DefaultConfig()); ok {
		t.Error("page number in top band should be filtered")
	}

	bottom := model.Span{Text: "107", FontSize: 10, Page: 1, BBox: model.BBox{Y0: 790, Y1: 798}}
	if _, ok := Classify(bottom, sa, pageHeight, DefaultConfig()); ok {
		t.Error("page number in bottom band should be filtered")
	}

	middle := model.Span{Text: "420", FontSize: 10, Page: 1, BBox: model.BBox{Y0: 400, Y1: 410}}
	if _, ok := Classify(middle, sa, pageHeight, DefaultConfig()); !ok {
		t.Error("a bare number in the middle of the page should not be filtered as a page number")
	}
}

func TestClassify_ShortTextDropped(t *testing.T) {
	sa := geometry.StructureAnalysis{}
	span := model.Span{Text: "Hi", FontSize: 10, Page: 1, BBox: model.BBox{Y0: 400, Y1: 410}}
	if _, ok := Classify(span, sa, 800, DefaultConfig()); ok {
		t.Error("text under 3 characters should be dropped")
	}
}

func TestClassify_Equation(t *testing.T) {
	sa := geometry.StructureAnalysis{DominantFontSize: 10, Std: 1}
	span := model.Span{Text: "x = y + 2", FontSize: 10, Page: 1, BBox: model.BBox{Y0: 400, Y1: 410}}
	block, ok := Classify(span, sa, 800, DefaultConfig())
	if !ok {
		t.Fatal("expected a block")
	}
	if _, isEq := block.Payload.(model.Equation); !isEq {
		t.Fatalf("expected Equation payload, got %T", block.Payload)
	}
}

func TestClassify_ListItem(t *testing.T) {
	sa := geometry.StructureAnalysis{DominantFontSize: 10, Std: 1}
	span := model.Span{Text: "1. first item in the list", FontSize: 10, Page: 1, BBox: model.BBox{Y0: 400, Y1: 410}}
	block, ok := Classify(span, sa, 800, DefaultConfig())
	if !ok {
		t.Fatal("expected a block")
	}
	if _, isList := block.Payload.(model.ListItem); !isList {
		t.Fatalf("expected ListItem payload, got %T", block.Payload)
	}
}

func TestClassify_Artifact(t *testing.T) {
	sa := geometry.StructureAnalysis{}
	span := model.Span{Text: "[MISSING_PAGE]", FontSize: 10, Page: 1, BBox: model.BBox{Y0: 400, Y1: 410}}
	block, ok := Classify(span, sa, 800, DefaultConfig())
	if !ok {
		t.Fatal("expected a block")
	}
	meta, isMeta := block.Payload.(model.Metadata)
	if !isMeta || meta.MetadataType != model.MetadataArtifact {
		t.Fatalf("expected Metadata(artifact), got %+v", block.Payload)
	}
}
