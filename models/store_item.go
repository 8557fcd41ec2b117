package models

import (
	"time"
)

// StoreItemType tells the purchase flow whether an item grants a timed boost
type StoreItemType string

const (
	StoreItemBooster  StoreItemType = "booster"
	StoreItemPowerup  StoreItemType = "powerup"
	StoreItemCosmetic StoreItemType = "cosmetic"
)

// StoreItem is something a user can buy with DULP.
type StoreItem struct {
	ID            string        `gorm:"primaryKey;type:uuid" json:"id"`
	Name          string        `gorm:"not null" json:"name"`
	Type          StoreItemType `gorm:"type:varchar(16);not null" json:"type"`
	Emoji         string        `gorm:"size:10" json:"emoji"`
	Excerpt       string        `gorm:"type:text" json:"excerpt"`
	Price         int64         `gorm:"not null" json:"price"`
	DurationHours int           `gorm:"not null;default:24" json:"duration_hours"`
	IsActive      bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// UserBoost is the timed effect granted by a booster or powerup purchase.
type UserBoost struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	ItemID    string    `gorm:"not null" json:"item_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// GrantsBoost reports whether buying the item creates a UserBoost.
func (i StoreItem) GrantsBoost() bool {
	return i.Type == StoreItemBooster || i.Type == StoreItemPowerup
}
