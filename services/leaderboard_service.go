package services

import (
	"context"
	"fmt"
	"time"

	"dulp-economy/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewLeaderboardService(db *gorm.DB, clock clockwork.Clock) *LeaderboardService {
	return &LeaderboardService{DB: db, Clock: clock}
}

// periodKey maps a period name to the bucket covering t (UTC).
func periodKey(period string, t time.Time) (string, error) {
	t = t.UTC()
	switch period {
	case models.PeriodAllTime, "":
		return models.PeriodAllTime, nil
	case models.PeriodDaily:
		return "daily:" + t.Format("2006-01-02"), nil
	case models.PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("weekly:%04d-W%02d", year, week), nil
	default:
		return "", validation("Unknown leaderboard period %q", period)
	}
}

// accumulateScore adds score to every period bucket of the user inside tx.
func accumulateScore(tx *gorm.DB, userID string, score int64, now time.Time) error {
	for _, period := range []string{models.PeriodAllTime, models.PeriodDaily, models.PeriodWeekly} {
		key, _ := periodKey(period, now)
		entry := models.LeaderboardEntry{
			ID:        uuid.NewString(),
			UserID:    userID,
			Period:    key,
			Score:     score,
			UpdatedAt: now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "period"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":      gorm.Expr("leaderboard_entries.score + ?", score),
				"updated_at": now,
			}),
		}).Create(&entry).Error
		if err != nil {
			return fmt.Errorf("accumulate %s score for %s: %w", key, userID, err)
		}
	}
	return nil
}

// Top returns the highest scores of the current bucket for period.
func (s *LeaderboardService) Top(ctx context.Context, period string, limit int) ([]models.LeaderboardRow, error) {
	key, err := periodKey(period, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows []models.LeaderboardRow
	if err := s.DB.WithContext(ctx).
		Table("leaderboard_entries AS l").
		Select("l.user_id, COALESCE(p.display_name, 'User') AS display_name, l.score").
		Joins("LEFT JOIN profiles p ON p.user_id = l.user_id").
		Where("l.period = ?", key).
		Order("l.score DESC, l.updated_at ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, internal(err, "failed to load leaderboard")
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}
