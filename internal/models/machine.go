package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MachineRole represents a user's role on a machine
type MachineRole string

const (
	MachineRoleOwner  MachineRole = "owner"
	MachineRoleMember MachineRole = "member"
)

// Machine represents a shared financial workspace. All stores, funds,
// wallets, and transactions are scoped by machine ID.
type Machine struct {
	Base
	Name        string          `gorm:"not null" json:"name"`
	Icon        string          `json:"icon,omitempty"`
	Currency    string          `gorm:"not null;default:'VND'" json:"currency"`
	UnAllocated decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"un_allocated"`
	Config      JSONMap         `gorm:"type:text" json:"config,omitempty"`
	Meta        JSONMap         `gorm:"type:text" json:"meta,omitempty"`

	// Relationships
	Users   []MachineUser `gorm:"foreignKey:MachineID" json:"users,omitempty"`
	Stores  []Store       `gorm:"foreignKey:MachineID" json:"stores,omitempty"`
	Funds   []Fund        `gorm:"foreignKey:MachineID" json:"funds,omitempty"`
	Wallets []Wallet      `gorm:"foreignKey:MachineID" json:"wallets,omitempty"`
}

// MachineUser is the membership record linking a user to a machine.
// There is at most one record per (machine, user) pair.
type MachineUser struct {
	Base
	MachineID string      `gorm:"not null;index:idx_machine_user,unique" json:"machine_id"`
	UserID    string      `gorm:"not null;index:idx_machine_user,unique" json:"user_id"`
	Role      MachineRole `gorm:"not null" json:"role"`
	InvitedBy string      `json:"invited_by,omitempty"`
	JoinedAt  time.Time   `json:"joined_at"`
}
