package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile is the identity-linked account that carries the DULP balance.
// Balance is only ever written through the ledger, together with a Transaction row,
// and every write bumps Version (optimistic concurrency).
type Profile struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string     `gorm:"uniqueIndex;not null" json:"user_id"` // external identity from the auth collaborator
	DisplayName  string     `gorm:"not null;default:'User'" json:"display_name"`
	Balance      int64      `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	ReferralCode string     `gorm:"uniqueIndex;not null;size:16" json:"referral_code"`
	ReferredBy   *string    `gorm:"index;size:16" json:"referred_by,omitempty"` // set at most once
	StreakCount  int        `gorm:"not null;default:0" json:"streak_count"`
	LastStreakAt *time.Time `json:"last_streak_at,omitempty"`
	IsActivated  bool       `gorm:"not null;default:false" json:"is_activated"`
	Role         string     `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Version      int64      `gorm:"not null;default:0" json:"-"`

	Timestamps
}
