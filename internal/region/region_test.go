package region

import (
	"testing"

	"latex-translator/internal/model"
)

// S5 — competing visual-area resolution (spec §8 scenario S5).
func TestResolveCompeting_S5_VisualAreaQuality(t *testing.T) {
	a := model.Region{
		RegionID: "a", Kind: model.RegionVisualArea,
		BBox: model.BBox{X0: 0, Y0: 0, X1: 400, Y1: 300}, // 400x300
		PageNum: 22, Confidence: 0.9, FileSizeMB: 800.0 / 1024,
	}
	b := model.Region{
		RegionID: "b", Kind: model.RegionVisualArea,
		BBox: model.BBox{X0: 10, Y0: 10, X1: 90, Y1: 70}, // 80x60, overlapping
		PageNum: 22, Confidence: 0.3, FileSizeMB: 15.0 / 1024,
	}

	kept := resolveCompeting([]model.Region{a, b})
	if len(kept) != 1 {
		t.Fatalf("expected exactly one surviving visual_area region, got %d", len(kept))
	}
	if kept[0].RegionID != "a" {
		t.Errorf("expected region A to survive (higher quality score), got %q", kept[0].RegionID)
	}

	qa, qb := qualityScore(a), qualityScore(b)
	if !(qa > qb) {
		t.Errorf("expected Q_A > Q_B, got Q_A=%.3f Q_B=%.3f", qa, qb)
	}
}

// Property 7 — deduplication preserves at least one: a non-empty group of
// competing same-kind regions always yields exactly one (visual_area) or
// at least one (other kinds) survivor.
func TestResolveCompeting_Property7_PreservesAtLeastOne(t *testing.T) {
	visualGroup := []model.Region{
		{RegionID: "v1", Kind: model.RegionVisualArea, BBox: model.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}, Confidence: 0.5},
		{RegionID: "v2", Kind: model.RegionVisualArea, BBox: model.BBox{X0: 200, Y0: 200, X1: 300, Y1: 300}, Confidence: 0.4},
	}
	kept := resolveCompeting(visualGroup)
	if len(kept) != 1 {
		t.Errorf("expected exactly one surviving visual_area, got %d", len(kept))
	}

	tableGroup := []model.Region{
		{RegionID: "t1", Kind: model.RegionDetectedTable, BBox: model.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}, Confidence: 0.8},
		{RegionID: "t2", Kind: model.RegionDetectedTable, BBox: model.BBox{X0: 500, Y0: 500, X1: 600, Y1: 600}, Confidence: 0.8},
	}
	kept = resolveCompeting(tableGroup)
	if len(kept) < 1 {
		t.Error("expected at least one table region to survive")
	}
	if len(kept) != 2 {
		t.Errorf("expected both non-overlapping tables to survive independently, got %d", len(kept))
	}
}

func TestRasterPass_SizeAndAspectFilters(t *testing.T) {
	page := PageInput{
		PageNum: 1, Width: 600, Height: 800,
		Images: []model.ImageRef{
			{Width: 200, Height: 150, BBox: model.BBox{X0: 10, Y0: 10, X1: 210, Y1: 160}, Bytes: make([]byte, 2048)},
			{Width: 3, Height: 3, BBox: model.BBox{X0: 0, Y0: 0, X1: 3, Y1: 3}, Bytes: make([]byte, 10)},   // too small
			{Width: 500, Height: 5, BBox: model.BBox{X0: 0, Y0: 0, X1: 500, Y1: 5}, Bytes: make([]byte, 10)}, // aspect too extreme
		},
	}
	regions := rasterPass(page, DefaultConfig())
	if len(regions) != 1 {
		t.Fatalf("expected exactly one raster region to survive filters, got %d", len(regions))
	}
}

func TestTableCandidates_DetectsGrid(t *testing.T) {
	var lines []TextLine
	for row := 0; row < 4; row++ {
		for col := 0; col < 3; col++ {
			lines = append(lines, TextLine{
				Text: "cell",
				BBox: model.BBox{
					X0: float64(col * 100), Y0: float64(row * 20),
					X1: float64(col*100 + 50), Y1: float64(row*20 + 15),
				},
			})
		}
	}
	page := PageInput{PageNum: 1, Lines: lines}
	regions := tableCandidates(page, DefaultConfig())
	if len(regions) != 1 {
		t.Fatalf("expected a detected table region, got %d", len(regions))
	}
	if regions[0].Kind != model.RegionDetectedTable {
		t.Errorf("expected RegionDetectedTable, got %v", regions[0].Kind)
	}
}

func TestAssessmentGuard_RejectsEnumeratedProse(t *testing.T) {
	r := model.Region{
		Kind: model.RegionDetectedTable,
		OCRText: "1. first point to consider\n2. second point to consider\n3. third point to consider",
	}
	if !assessmentGuardRejects(r) {
		t.Error("expected enumerated prose to be rejected by the assessment-text guard")
	}
}

func TestEquationCandidates_DetectsSymbolAndPattern(t *testing.T) {
	page := PageInput{PageNum: 1, Lines: []TextLine{
		{Text: "x = y + 2", BBox: model.BBox{X0: 0, Y0: 0, X1: 50, Y1: 10}},
		{Text: "just a regular sentence about nothing", BBox: model.BBox{X0: 0, Y0: 20, X1: 200, Y1: 30}},
		{Text: "∑ f(x) dx", BBox: model.BBox{X0: 0, Y0: 40, X1: 50, Y1: 50}},
	}}
	regions := equationCandidates(page)
	if len(regions) != 2 {
		t.Fatalf("expected 2 equation regions, got %d", len(regions))
	}
}
