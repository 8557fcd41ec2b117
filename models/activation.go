package models

import (
	"time"
)

// ActivationCode unlocks withdrawals and advanced games for the account that redeems it.
type ActivationCode struct {
	ID          string     `gorm:"primaryKey;type:uuid"`
	Code        string     `gorm:"uniqueIndex;not null" json:"code"`
	MaxUses     int        `gorm:"not null;default:1" json:"max_uses"`
	CurrentUses int        `gorm:"not null;default:0" json:"current_uses"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
}

// UserActivation: one per user, ever.
type UserActivation struct {
	UserID           string    `gorm:"primaryKey" json:"user_id"`
	ActivationCodeID string    `gorm:"index;not null" json:"activation_code_id"`
	ActivatedAt      time.Time `gorm:"not null" json:"activated_at"`
}
