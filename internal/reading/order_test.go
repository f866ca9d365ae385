package reading

import (
	"math/rand"
	"testing"

	"latex-translator/internal/geometry"
	"latex-translator/internal/model"
)

// S6 — multi-column reading order (spec §8 scenario S6).
func TestOrder_MultiColumn(t *testing.T) {
	// A=(120,80), B=(420,80), C=(120,200), D=(420,200)
	elements := []Element{
		{BBox: model.BBox{X0: 100, Y0: 70, X1: 140, Y1: 90}},  // A
		{BBox: model.BBox{X0: 400, Y0: 70, X1: 440, Y1: 90}},  // B
		{BBox: model.BBox{X0: 100, Y0: 190, X1: 140, Y1: 210}}, // C
		{BBox: model.BBox{X0: 400, Y0: 190, X1: 440, Y1: 210}}, // D
	}
	columns := []geometry.ColumnBounds{
		{X0: 50, X1: 250},
		{X0: 300, X1: 540},
	}

	positions := Order(elements, columns)

	// Expected order: A, C, B, D -> positions[A]=0, [C]=1, [B]=2, [D]=3
	if positions[0] != 0 {
		t.Errorf("A should be first, got position %d", positions[0])
	}
	if positions[2] != 1 {
		t.Errorf("C should be second, got position %d", positions[2])
	}
	if positions[1] != 2 {
		t.Errorf("B should be third, got position %d", positions[1])
	}
	if positions[3] != 3 {
		t.Errorf("D should be fourth, got position %d", positions[3])
	}
}

// Property 3 — reading-order stability: the result is a permutation with
// no duplicates, and re-running with the same input yields the same order.
func TestOrder_IsPermutation_AndStable(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 30
	elements := make([]Element, n)
	for i := range elements {
		x := float64(rng.Intn(500))
		y := float64(rng.Intn(800))
		elements[i] = Element{BBox: model.BBox{X0: x, Y0: y, X1: x + 50, Y1: y + 12}}
	}

	first := Order(elements, nil)
	seen := make(map[int]bool, n)
	for _, p := range first {
		if p < 0 || p >= n {
			t.Fatalf("position %d out of range", p)
		}
		if seen[p] {
			t.Fatalf("duplicate position %d", p)
		}
		seen[p] = true
	}

	second := Order(elements, nil)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-running Order produced a different order at index %d: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestOrder_SingleColumnBaselineJitter(t *testing.T) {
	// Two spans on (approximately) the same line should sort left-to-right
	// despite a couple of points of baseline jitter.
	elements := []Element{
		{BBox: model.BBox{X0: 200, Y0: 101, X1: 260, Y1: 113}, Height: 12},
		{BBox: model.BBox{X0: 20, Y0: 100, X1: 80, Y1: 112}, Height: 12},
	}
	positions := Order(elements, nil)
	if positions[1] != 0 || positions[0] != 1 {
		t.Errorf("expected left element first despite jitter, got positions %v", positions)
	}
}

func TestOrder_Empty(t *testing.T) {
	if got := Order(nil, nil); len(got) != 0 {
		t.Errorf("expected empty result for no elements, got %v", got)
	}
}
