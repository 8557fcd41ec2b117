package models

import "time"

type TransactionType string

const (
	TxEarn       TransactionType = "earn"
	TxReferral   TransactionType = "referral"
	TxPurchase   TransactionType = "purchase"
	TxWithdrawal TransactionType = "withdrawal"
	TxRefund     TransactionType = "refund"
)

// Transaction is an immutable ledger entry. The signed sum of a user's rows
// equals Profile.Balance.
type Transaction struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string          `gorm:"index:idx_tx_user_created;not null" json:"user_id"`
	Amount      int64           `gorm:"not null" json:"amount"`
	Type        TransactionType `gorm:"type:varchar(16);not null;index" json:"type"`
	Description string          `json:"description"`
	ReferenceID string          `gorm:"index" json:"reference_id,omitempty"` // task completion, session, withdrawal or item
	CreatedAt   time.Time       `gorm:"index:idx_tx_user_created;not null" json:"created_at"`
}

// DailyEmission is the per-UTC-day issuance counter shared by every reward path.
type DailyEmission struct {
	Date         string    `gorm:"primaryKey;size:10" json:"date"` // YYYY-MM-DD
	TotalEmitted int64     `gorm:"not null;default:0" json:"total_emitted"`
	Version      int64     `gorm:"not null;default:0" json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FraudFlag is an append-only record of a rejected, suspicious action.
type FraudFlag struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Reason    string    `gorm:"type:varchar(64);not null" json:"reason"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}
