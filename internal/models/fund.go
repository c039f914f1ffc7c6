package models

import "github.com/shopspring/decimal"

// Fund belongs to exactly one store and one machine. Percent is the share of
// allocation the fund claims; balance only moves through transactions or the
// explicit balance adjustment operation.
type Fund struct {
	Base
	MachineID   string          `gorm:"not null;index" json:"machine_id"`
	StoreID     string          `gorm:"not null;index" json:"store_id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Percent     float64         `gorm:"not null;default:0" json:"percent"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	Config      JSONMap         `gorm:"type:text" json:"config,omitempty"`
	Meta        JSONMap         `gorm:"type:text" json:"meta,omitempty"`

	// Relationships
	Store *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`
}
