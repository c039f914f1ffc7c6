package models

import "github.com/shopspring/decimal"

// WalletType represents the type of wallet
type WalletType string

const (
	WalletTypeCash   WalletType = "cash"
	WalletTypeBank   WalletType = "bank"
	WalletTypeCrypto WalletType = "crypto"
	WalletTypeStock  WalletType = "stock"
	WalletTypeOther  WalletType = "other"
)

// Wallet represents a physical money location within a machine. Its balance
// must remain non-negative under normal operation.
type Wallet struct {
	Base
	MachineID string          `gorm:"not null;index" json:"machine_id"`
	Name      string          `gorm:"not null" json:"name"`
	Icon      string          `json:"icon,omitempty"`
	Type      WalletType      `gorm:"not null" json:"type"`
	Currency  string          `gorm:"not null;default:'VND'" json:"currency"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	Meta      JSONMap         `gorm:"type:text" json:"meta,omitempty"`
}
