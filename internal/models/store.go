package models

// StoreType represents the type of store
type StoreType string

const (
	StoreTypeIncome    StoreType = "income"
	StoreTypeExpense   StoreType = "expense"
	StoreTypeReserve   StoreType = "reserve"
	StoreTypeExpansion StoreType = "expansion"
	StoreTypeBusiness  StoreType = "business"
)

// Store is a named grouping of funds under a machine. Stores of type income
// represent money sources and are exempt from the machine-level
// percentage-sum rule.
type Store struct {
	Base
	MachineID string    `gorm:"not null;index" json:"machine_id"`
	Name      string    `gorm:"not null" json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Type      StoreType `gorm:"not null" json:"type"`
	Config    JSONMap   `gorm:"type:text" json:"config,omitempty"`
	Meta      JSONMap   `gorm:"type:text" json:"meta,omitempty"`

	// Relationships
	Funds []Fund `gorm:"foreignKey:StoreID" json:"funds,omitempty"`
}
