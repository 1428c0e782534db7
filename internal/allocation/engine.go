// Package allocation implements the ingredient-allocation engine behind the
// recipe editor: it tracks how much of each purchased package the rest of the
// kitchen has already consumed, how much the current editing session has
// committed, and what remains available to allocate right now.
//
// The engine is pure with respect to its inputs. Balances are always derived
// by full recomputation over the catalog, ledger and session snapshots it was
// handed, never by patching cached figures, so a stale number can only come
// from a stale snapshot.
package allocation

import (
	"cucina/models"
)

// PackageInfo describes one purchasable package from the catalog.
type PackageInfo struct {
	Quantity float64
	Price    float64
	Emoji    string
}

// Catalog is the read-only ingredient registry the engine consults.
// Lookup receives an already-normalized name.
type Catalog interface {
	Lookup(name string) (PackageInfo, bool)
}

// CatalogMap is an in-memory Catalog keyed by normalized ingredient name.
type CatalogMap map[string]PackageInfo

// NewCatalog builds a CatalogMap from persisted catalog entries. Later
// entries with the same normalized name overwrite earlier ones.
func NewCatalog(ingredients []models.Ingredient) CatalogMap {
	catalog := make(CatalogMap, len(ingredients))
	for _, ingredient := range ingredients {
		key := Normalize(ingredient.Name)
		if key == "" {
			continue
		}
		catalog[key] = PackageInfo{
			Quantity: ingredient.PackageQuantity,
			Price:    ingredient.PackagePrice,
			Emoji:    ingredient.Emoji,
		}
	}
	return catalog
}

// Lookup implements Catalog.
func (c CatalogMap) Lookup(name string) (PackageInfo, bool) {
	info, ok := c[name]
	return info, ok
}

// Engine computes ingredient balances from a catalog snapshot and a ledger
// view. The ledger must already exclude the recipe under edit; the engine
// cannot tell one recipe's lines from another's and trusts the caller's
// filtering.
type Engine struct {
	catalog Catalog
	ledger  []models.RecipeIngredient
}

// NewEngine builds an Engine over immutable catalog and ledger snapshots.
func NewEngine(catalog Catalog, ledger []models.RecipeIngredient) *Engine {
	if catalog == nil {
		catalog = CatalogMap{}
	}
	return &Engine{catalog: catalog, ledger: ledger}
}

// OriginalPackageQuantity returns the package size for name. When the catalog
// has no entry it falls back to the largest package quantity recorded on any
// ledger line for that name, which keeps ingredients that only exist inside
// recipe data from reading as zero.
func (e *Engine) OriginalPackageQuantity(name string) float64 {
	key := Normalize(name)
	if key == "" {
		return 0
	}
	if info, ok := e.catalog.Lookup(key); ok {
		return info.Quantity
	}
	largest := 0.0
	for _, line := range e.ledger {
		if Normalize(line.Name) == key && line.PackageQuantity > largest {
			largest = line.PackageQuantity
		}
	}
	return largest
}

// ConsumedByOtherRecipes sums the quantities every ledger line charges
// against name.
func (e *Engine) ConsumedByOtherRecipes(name string) float64 {
	key := Normalize(name)
	if key == "" {
		return 0
	}
	total := 0.0
	for _, line := range e.ledger {
		if Normalize(line.Name) == key {
			total += line.Quantity
		}
	}
	return total
}

// GlobalRemainingBalance is what is left of the package after every other
// recipe's consumption. Over-consumption elsewhere clamps to zero rather
// than going negative.
func (e *Engine) GlobalRemainingBalance(name string) float64 {
	remaining := e.OriginalPackageQuantity(name) - e.ConsumedByOtherRecipes(name)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ConsumedInSession sums what the given confirmed lines charge against name.
func (e *Engine) ConsumedInSession(name string, confirmed []models.RecipeIngredient) float64 {
	key := Normalize(name)
	if key == "" {
		return 0
	}
	total := 0.0
	for _, line := range confirmed {
		if Normalize(line.Name) == key {
			total += line.Quantity
		}
	}
	return total
}

// SessionAvailableBalance is the quantity still free to allocate while
// composing the current recipe: the global remaining balance minus what this
// session has already confirmed, clamped at zero.
func (e *Engine) SessionAvailableBalance(name string, confirmed []models.RecipeIngredient) float64 {
	available := e.GlobalRemainingBalance(name) - e.ConsumedInSession(name, confirmed)
	if available < 0 {
		return 0
	}
	return available
}

// Balance is the full availability picture for one ingredient name.
type Balance struct {
	Name              string  `json:"name"`
	OriginalQuantity  float64 `json:"original_quantity"`
	ConsumedByOthers  float64 `json:"consumed_by_others"`
	GlobalRemaining   float64 `json:"global_remaining"`
	ConsumedInSession float64 `json:"consumed_in_session"`
	SessionAvailable  float64 `json:"session_available"`
}

// BalanceFor assembles the Balance for one name against the given session
// confirmed lines (nil for a session that has not confirmed anything).
func (e *Engine) BalanceFor(name string, confirmed []models.RecipeIngredient) Balance {
	return Balance{
		Name:              name,
		OriginalQuantity:  e.OriginalPackageQuantity(name),
		ConsumedByOthers:  e.ConsumedByOtherRecipes(name),
		GlobalRemaining:   e.GlobalRemainingBalance(name),
		ConsumedInSession: e.ConsumedInSession(name, confirmed),
		SessionAvailable:  e.SessionAvailableBalance(name, confirmed),
	}
}
