package models

import (
	"gorm.io/gorm"
)

// Ingredient is one purchasable package in the catalog: the name is the
// natural key, matched case-insensitively everywhere.
type Ingredient struct {
	gorm.Model
	Name            string  `gorm:"uniqueIndex;not null" json:"name"`
	Emoji           string  `json:"emoji"`
	PackageQuantity float64 `gorm:"not null;default:0" json:"package_quantity"`
	PackagePrice    float64 `gorm:"not null;default:0" json:"package_price"`
	Unit            string  `gorm:"type:varchar(16)" json:"unit"`
	Notes           string  `gorm:"type:text" json:"notes"`
	OwnerID         uint    `gorm:"not null" json:"owner_id"`
	Owner           *User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}
