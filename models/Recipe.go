package models

import (
	"gorm.io/gorm"
)

type Recipe struct {
	gorm.Model
	Name          string             `gorm:"not null" json:"name"`
	Notes         string             `gorm:"type:text" json:"notes"`
	Yield         float64            `gorm:"not null;default:1" json:"yield"`
	MarginPercent float64            `gorm:"not null;default:0" json:"margin_percent"`
	Ingredients   []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`

	// Derived from the confirmed ingredient lines on every save.
	TotalCost      float64 `gorm:"not null;default:0" json:"total_cost"`
	UsageCost      float64 `gorm:"not null;default:0" json:"usage_cost"`
	UnitCost       float64 `gorm:"not null;default:0" json:"unit_cost"`
	SuggestedPrice float64 `gorm:"not null;default:0" json:"suggested_price"`

	OwnerID uint  `gorm:"not null" json:"owner_id"`
	Owner   *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}
