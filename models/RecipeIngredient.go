package models

import (
	"gorm.io/gorm"
)

// RecipeIngredient is one ingredient usage inside one recipe.
//
// PackageQuantity and TotalValue are snapshots taken when the ingredient was
// first consumed by this recipe, not live references to the catalog:
// PackageQuantity records how much of the package remained for this recipe's
// accounting at entry time, TotalValue the monetary value attributed to the
// whole package. Both stay frozen across later partial consumptions.
type RecipeIngredient struct {
	gorm.Model
	RecipeID        uint    `gorm:"not null;index" json:"recipe_id"`
	Name            string  `gorm:"not null" json:"name"`
	Emoji           string  `json:"emoji"`
	PackageQuantity float64 `gorm:"not null;default:0" json:"package_quantity"`
	TotalValue      float64 `gorm:"not null;default:0" json:"total_value"`
	Quantity        float64 `gorm:"not null;default:0" json:"quantity"`
}
