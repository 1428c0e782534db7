package allocation

import (
	"cucina/models"
)

// CostSummary carries every derived cost figure for one recipe.
type CostSummary struct {
	TotalCost       float64 `json:"total_cost"`
	UsageCost       float64 `json:"usage_cost"`
	UnitCost        float64 `json:"unit_cost"`
	SuggestedPrice  float64 `json:"suggested_price"`
	SuggestedProfit float64 `json:"suggested_profit"`
}

// Totals recomputes the full cost picture from scratch over the confirmed
// lines. Lines with missing or non-positive figures are skipped rather than
// rejected, so the display always has a number even over ragged data.
//
//   - TotalCost sums the frozen package values: what was spent on packages.
//   - UsageCost charges only what was consumed, pro-rated by package share.
//   - UnitCost spreads usage cost over the recipe yield.
//   - SuggestedPrice marks unit cost up to hit the margin fraction.
func Totals(confirmed []models.RecipeIngredient, yield, marginFraction float64) CostSummary {
	var summary CostSummary

	for _, line := range confirmed {
		if line.TotalValue > 0 {
			summary.TotalCost += line.TotalValue
		}
		// The stored package quantity is what remained after this line's
		// consumption; adding the quantity back gives the package baseline
		// the per-unit price has to be derived from.
		baseline := line.PackageQuantity + line.Quantity
		if line.TotalValue > 0 && baseline > 0 && line.Quantity > 0 {
			summary.UsageCost += (line.TotalValue / baseline) * line.Quantity
		}
	}

	if yield > 0 {
		summary.UnitCost = summary.UsageCost / yield
	}

	if summary.UnitCost > 0 && marginFraction < 1 {
		summary.SuggestedPrice = summary.UnitCost / (1 - marginFraction)
		summary.SuggestedProfit = summary.SuggestedPrice - summary.UnitCost
	}

	return summary
}
