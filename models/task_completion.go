package models

import "time"

const CompletionStatusCompleted = "completed"

// UserTaskCompletion = one successful task claim. Append-only.
// The reward snapshot lets a retried claim with the same idempotency key
// replay its first answer without touching the ledger again.
type UserTaskCompletion struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"index:idx_completion_user_task;uniqueIndex:idx_completion_idem;not null" json:"user_id"`
	TaskID         string    `gorm:"index:idx_completion_user_task;not null" json:"task_id"`
	CompletedAt    time.Time `gorm:"index;not null" json:"completed_at"`
	Status         string    `gorm:"type:varchar(16);not null;default:'completed'" json:"status"`
	IdempotencyKey *string   `gorm:"uniqueIndex:idx_completion_idem;size:128" json:"-"`

	Reward       int64 `json:"reward" gorm:"not null;default:0"`
	XPGained     int64 `json:"xp_gained" gorm:"not null;default:0"`
	LevelAfter   int   `json:"level_after" gorm:"not null;default:1"`
	LeveledUp    bool  `json:"leveled_up" gorm:"not null;default:false"`
	BalanceAfter int64 `json:"balance_after" gorm:"not null;default:0"`
}
