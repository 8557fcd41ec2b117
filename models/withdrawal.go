// models/withdrawal.go
package models

import (
	"time"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// Withdrawal is a payout request created by the gating engine.
// Only the admin review moves it out of pending.
type Withdrawal struct {
	ID         string     `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID     string     `gorm:"not null;index" json:"user_id"`
	Amount     int64      `gorm:"not null" json:"amount"`
	Address    string     `gorm:"type:varchar(128);not null" json:"address"`
	Status     string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}
