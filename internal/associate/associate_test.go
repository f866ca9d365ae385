package associate

import (
	"testing"

	"latex-translator/internal/model"
)

func TestAssociate_BelowCaptionWins(t *testing.T) {
	region := model.Region{BBox: model.BBox{X0: 100, Y0: 100, X1: 300, Y1: 300}} // 200x200
	candidates := []TextCandidate{
		{BlockID: "far", BBox: model.BBox{X0: 0, Y0: 500, X1: 400, Y1: 520}, Text: "Some unrelated paragraph about something else entirely here."},
		{BlockID: "caption", BBox: model.BBox{X0: 100, Y0: 305, X1: 300, Y1: 320}, Text: "Figure 1: A diagram of the system."},
	}

	result := Associate(region, candidates, DefaultConfig())
	if !result.HasCaption {
		t.Fatal("expected a caption to be linked")
	}
	if result.CaptionBlockID != "caption" {
		t.Errorf("expected 'caption' block to win, got %q", result.CaptionBlockID)
	}
	if result.SpatialRelationship != model.RelBefore {
		t.Errorf("expected region to be 'before' (above) its nearest text block in this layout, got %v", result.SpatialRelationship)
	}
}

func TestAssociate_NoQualifyingCaption(t *testing.T) {
	region := model.Region{BBox: model.BBox{X0: 100, Y0: 100, X1: 300, Y1: 300}}
	candidates := []TextCandidate{
		{BlockID: "far", BBox: model.BBox{X0: 0, Y0: 1000, X1: 400, Y1: 1020}, Text: "Figure 9: too far away to qualify as a caption for this region."},
	}
	result := Associate(region, candidates, DefaultConfig())
	if result.HasCaption {
		t.Error("expected no caption to be linked when the only candidate is out of range")
	}
}

func TestSpatialRelationship_Wrapped(t *testing.T) {
	region := model.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}
	text := model.BBox{X0: 50, Y0: 50, X1: 150, Y1: 150}
	if got := spatialRelationship(region, text); got != model.RelWrapped {
		t.Errorf("expected RelWrapped for overlapping boxes, got %v", got)
	}
}

func TestSpatialRelationship_Alongside(t *testing.T) {
	region := model.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}
	text := model.BBox{X0: 300, Y0: 10, X1: 400, Y1: 90}
	if got := spatialRelationship(region, text); got != model.RelAlongside {
		t.Errorf("expected RelAlongside, got %v", got)
	}
}

func TestLooksLikeCaption(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		text string
		want bool
	}{
		{"Figure 3: A plot of the results.", true},
		{"Table 1 summarizing the data.", true},
		{"(a) first sub-figure", true},
		{"Step 2: apply the transform", true},
		{"This shows the overview of the pipeline", true},
		{"This is a completely unrelated sentence that ends with punctuation.", false},
	}
	for _, c := range cases {
		if got := looksLikeCaption(c.text, cfg); got != c.want {
			t.Errorf("looksLikeCaption(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
