package models

import "time"

const (
	SessionStateNew       = "new"
	SessionStateCompleted = "completed"
)

// GameSession records a single time-boxed play attempt.
// IsCompleted flips false → true exactly once; the flip carries the validated score.
type GameSession struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string     `gorm:"index:idx_session_user_open;not null" json:"user_id"`
	GameType     string     `gorm:"type:varchar(32);not null" json:"game_type"`
	StartTime    time.Time  `gorm:"not null" json:"start_time"`
	IsCompleted  bool       `gorm:"index:idx_session_user_open;not null;default:false" json:"is_completed"`
	Score        int64      `gorm:"not null;default:0" json:"score"`
	RewardIssued int64      `gorm:"not null;default:0" json:"reward_issued"`
	Abandoned    bool       `gorm:"not null;default:false" json:"abandoned"` // force-completed by a later start or the sweeper
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// State maps the completion flag onto the session state machine.
func (s GameSession) State() string {
	if s.IsCompleted {
		return SessionStateCompleted
	}
	return SessionStateNew
}
