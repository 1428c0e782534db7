package allocation

import (
	"math"
	"testing"

	"cucina/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testCatalog() CatalogMap {
	return NewCatalog([]models.Ingredient{
		{Name: "Flour", PackageQuantity: 1000, PackagePrice: 10},
		{Name: "Sugar", PackageQuantity: 500, PackagePrice: 8},
	})
}

func TestOriginalPackageQuantity(t *testing.T) {
	t.Parallel()

	ledger := []models.RecipeIngredient{
		{Name: "saffron", PackageQuantity: 2, Quantity: 0.5},
		{Name: "Saffron", PackageQuantity: 5, Quantity: 1},
	}
	engine := NewEngine(testCatalog(), ledger)

	if got := engine.OriginalPackageQuantity(" FLOUR "); !almostEqual(got, 1000) {
		t.Fatalf("catalog lookup returned %v, want 1000", got)
	}
	if got := engine.OriginalPackageQuantity("Saffron"); !almostEqual(got, 5) {
		t.Fatalf("ledger fallback returned %v, want largest seen package of 5", got)
	}
	if got := engine.OriginalPackageQuantity("nutmeg"); got != 0 {
		t.Fatalf("unknown ingredient returned %v, want 0", got)
	}
	if got := engine.OriginalPackageQuantity("  "); got != 0 {
		t.Fatalf("blank name returned %v, want 0", got)
	}
}

func TestGlobalRemainingBalance(t *testing.T) {
	t.Parallel()

	ledger := []models.RecipeIngredient{
		{Name: "flour", PackageQuantity: 1000, Quantity: 300},
		{Name: "Sugar", PackageQuantity: 500, Quantity: 700},
	}
	engine := NewEngine(testCatalog(), ledger)

	if got := engine.ConsumedByOtherRecipes("Flour"); !almostEqual(got, 300) {
		t.Fatalf("ConsumedByOtherRecipes = %v, want 300", got)
	}
	if got := engine.GlobalRemainingBalance("Flour"); !almostEqual(got, 700) {
		t.Fatalf("GlobalRemainingBalance = %v, want 700", got)
	}

	// Oversold elsewhere clamps to zero instead of going negative.
	if got := engine.GlobalRemainingBalance("Sugar"); got != 0 {
		t.Fatalf("oversold balance = %v, want 0", got)
	}
}

func TestSessionAvailableBalance(t *testing.T) {
	t.Parallel()

	ledger := []models.RecipeIngredient{
		{Name: "Flour", PackageQuantity: 1000, Quantity: 300},
	}
	engine := NewEngine(testCatalog(), ledger)

	confirmed := []models.RecipeIngredient{
		{Name: "flour", PackageQuantity: 0, TotalValue: 10, Quantity: 700},
	}

	if got := engine.ConsumedInSession("FLOUR", confirmed); !almostEqual(got, 700) {
		t.Fatalf("ConsumedInSession = %v, want 700", got)
	}
	if got := engine.SessionAvailableBalance("Flour", confirmed); got != 0 {
		t.Fatalf("SessionAvailableBalance = %v, want 0", got)
	}
	if got := engine.SessionAvailableBalance("Flour", nil); !almostEqual(got, 700) {
		t.Fatalf("SessionAvailableBalance without session = %v, want 700", got)
	}
}

func TestBalanceOrdering(t *testing.T) {
	t.Parallel()

	ledger := []models.RecipeIngredient{
		{Name: "Flour", PackageQuantity: 1000, Quantity: 250},
		{Name: "Sugar", PackageQuantity: 500, Quantity: 900},
		{Name: "saffron", PackageQuantity: 5, Quantity: 1},
	}
	engine := NewEngine(testCatalog(), ledger)
	confirmed := []models.RecipeIngredient{
		{Name: "flour", Quantity: 100},
		{Name: "Saffron", Quantity: 2},
	}

	// session available <= global remaining <= original, for every name.
	for _, name := range []string{"Flour", "Sugar", "Saffron", "unknown"} {
		balance := engine.BalanceFor(name, confirmed)
		if balance.SessionAvailable > balance.GlobalRemaining {
			t.Fatalf("%s: session available %v exceeds global remaining %v", name, balance.SessionAvailable, balance.GlobalRemaining)
		}
		if balance.GlobalRemaining > balance.OriginalQuantity {
			t.Fatalf("%s: global remaining %v exceeds original %v", name, balance.GlobalRemaining, balance.OriginalQuantity)
		}
		if balance.SessionAvailable < 0 || balance.GlobalRemaining < 0 {
			t.Fatalf("%s: negative balance in %+v", name, balance)
		}
	}
}

func TestConfirmReducesAvailabilityExactly(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testCatalog(), nil)
	session := NewSession(0, nil)

	const q = 150.0
	for i := 0; i < 2; i++ {
		idx := session.Add()
		if err := session.UpdateName(idx, "Flour", testCatalog()); err != nil {
			t.Fatalf("update name: %v", err)
		}
		if err := session.UpdateQuantity(idx, q); err != nil {
			t.Fatalf("update quantity: %v", err)
		}
		if err := session.Confirm(idx); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}

	available := engine.SessionAvailableBalance("Flour", session.Confirmed)
	if !almostEqual(available, 1000-2*q) {
		t.Fatalf("available after two confirmations = %v, want %v", available, 1000-2*q)
	}
}
