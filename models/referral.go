package models

import "time"

// Referral records the moment a user applied someone's referral code.
// Profile.ReferredBy stays the source of truth for commission; this row is history.
type Referral struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID       string    `gorm:"index;not null" json:"referrer_id"`       // UserID
	ReferredID       string    `gorm:"uniqueIndex;not null" json:"referred_id"` // UserID
	ReferralCodeUsed string    `gorm:"not null" json:"referral_code_used"`
	CreatedAt        time.Time `json:"created_at"`
}

// AllModels lists every table the service migrates.
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&XPProfile{},
		&Task{},
		&UserTaskCompletion{},
		&GameSession{},
		&Transaction{},
		&DailyEmission{},
		&Withdrawal{},
		&FraudFlag{},
		&LeaderboardEntry{},
		&Referral{},
		&ActivationCode{},
		&UserActivation{},
		&StoreItem{},
		&UserBoost{},
	}
}
