package allocation

import (
	"testing"

	"cucina/models"
)

func TestTotalsFlourScenario(t *testing.T) {
	t.Parallel()

	// One package of flour (1000 at price 10), 200 consumed.
	confirmed := []models.RecipeIngredient{line("Flour", 800, 10, 200)}

	summary := Totals(confirmed, 10, 0)
	if !almostEqual(summary.TotalCost, 10) {
		t.Fatalf("TotalCost = %v, want 10", summary.TotalCost)
	}
	if !almostEqual(summary.UsageCost, 2) {
		t.Fatalf("UsageCost = %v, want (10/1000)*200 = 2", summary.UsageCost)
	}
	if !almostEqual(summary.UnitCost, 0.2) {
		t.Fatalf("UnitCost = %v, want 2/10 = 0.2", summary.UnitCost)
	}
}

func TestTotalsSkipsInvalidLines(t *testing.T) {
	t.Parallel()

	confirmed := []models.RecipeIngredient{
		line("Flour", 800, 10, 200),
		line("mystery", 0, 0, 50),    // no value recorded
		line("comped", 300, -5, 20),  // negative value
		line("unused", 400, 6, 0),    // nothing consumed: package spend only
	}

	summary := Totals(confirmed, 1, 0)
	if !almostEqual(summary.TotalCost, 16) {
		t.Fatalf("TotalCost = %v, want 10+6", summary.TotalCost)
	}
	if !almostEqual(summary.UsageCost, 2) {
		t.Fatalf("UsageCost = %v, want only the flour line counted", summary.UsageCost)
	}
	if summary.TotalCost < 0 || summary.UsageCost < 0 {
		t.Fatalf("costs must never be negative: %+v", summary)
	}
}

func TestTotalsYieldAndMargin(t *testing.T) {
	t.Parallel()

	confirmed := []models.RecipeIngredient{line("Flour", 800, 10, 200)}

	if summary := Totals(confirmed, 0, 0.5); summary.UnitCost != 0 {
		t.Fatalf("UnitCost with zero yield = %v, want 0", summary.UnitCost)
	}

	summary := Totals(confirmed, 10, 0.6)
	if !almostEqual(summary.SuggestedPrice, 0.5) {
		t.Fatalf("SuggestedPrice = %v, want 0.2/(1-0.6) = 0.5", summary.SuggestedPrice)
	}
	if !almostEqual(summary.SuggestedProfit, 0.3) {
		t.Fatalf("SuggestedProfit = %v, want 0.5-0.2 = 0.3", summary.SuggestedProfit)
	}

	if summary := Totals(nil, 10, 0.6); summary.SuggestedPrice != 0 || summary.SuggestedProfit != 0 {
		t.Fatalf("empty recipe should price at 0, got %+v", summary)
	}

	// A margin of 100% or more cannot be priced.
	if summary := Totals(confirmed, 10, 1); summary.SuggestedPrice != 0 {
		t.Fatalf("SuggestedPrice at full margin = %v, want 0", summary.SuggestedPrice)
	}
}

func TestTotalsIgnoresDrafts(t *testing.T) {
	t.Parallel()

	session := NewSession(0, []models.RecipeIngredient{line("Flour", 800, 10, 200)})
	idx := session.Add()
	if err := session.UpdateName(idx, "Sugar", testCatalog()); err != nil {
		t.Fatalf("update name: %v", err)
	}
	if err := session.UpdateQuantity(idx, 100); err != nil {
		t.Fatalf("update quantity: %v", err)
	}

	before := Totals(session.Confirmed, 10, 0)
	if !almostEqual(before.TotalCost, 10) || !almostEqual(before.UsageCost, 2) {
		t.Fatalf("draft line leaked into totals: %+v", before)
	}
}
