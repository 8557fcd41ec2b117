package models

import (
	"time"
)

const (
	PeriodAllTime = "all_time"
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
)

// LeaderboardEntry accumulates a user's game score for one period bucket
// ("all_time", "daily:2026-10-17", "weekly:2026-W42").
type LeaderboardEntry struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_leaderboard_user_period;not null"`
	Period    string    `json:"period" gorm:"uniqueIndex:idx_leaderboard_user_period;index;not null;size:32"`
	Score     int64     `json:"score" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeaderboardRow is the read model returned to clients.
type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
}
