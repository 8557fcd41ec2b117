package models

import (
	"time"
)

// XPProfile tracks experience and the derived level for each user.
// Both fields only ever grow.
type XPProfile struct {
	UserID  string `gorm:"primaryKey" json:"user_id"`
	XP      int64  `gorm:"not null;default:0" json:"xp"`
	Level   int    `gorm:"not null;default:1" json:"level"`
	Version int64  `gorm:"not null;default:0" json:"-"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
