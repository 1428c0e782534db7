package models

import (
	"gorm.io/gorm"
)

// StockItem is a warehouse entry. Recipe creation pushes each confirmed
// line's package quantity here once; the stock screen owns it afterwards.
type StockItem struct {
	gorm.Model
	Name     string  `gorm:"uniqueIndex;not null" json:"name"`
	Emoji    string  `json:"emoji"`
	Quantity float64 `gorm:"not null;default:0" json:"quantity"`
	Unit     string  `gorm:"type:varchar(16)" json:"unit"`
	OwnerID  uint    `gorm:"not null" json:"owner_id"`
}
