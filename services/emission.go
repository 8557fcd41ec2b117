package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"dulp-economy/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const emissionDateLayout = "2006-01-02"

// EmissionDate is the UTC calendar key of the counter that covers t.
func EmissionDate(t time.Time) string {
	return t.UTC().Format(emissionDateLayout)
}

// EmissionService owns the global per-day issuance cap.
type EmissionService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Cap   int64
}

func NewEmissionService(db *gorm.DB, clock clockwork.Clock, cap int64) *EmissionService {
	return &EmissionService{DB: db, Clock: clock, Cap: cap}
}

func ensureEmissionDay(tx *gorm.DB, date string, now time.Time) error {
	row := models.DailyEmission{Date: date, UpdatedAt: now}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// reserve adds amount to today's counter inside tx. It rejects with RateLimited
// when total + amount would exceed the cap, and returns errVersionConflict when
// another request moved the counter since it was read.
func (s *EmissionService) reserve(tx *gorm.DB, now time.Time, amount int64) error {
	if amount <= 0 {
		return nil
	}
	date := EmissionDate(now)
	if err := ensureEmissionDay(tx, date, now); err != nil {
		return fmt.Errorf("ensure emission row %s: %w", date, err)
	}

	var day models.DailyEmission
	if err := tx.Where("date = ?", date).First(&day).Error; err != nil {
		return fmt.Errorf("read emission row %s: %w", date, err)
	}
	if day.TotalEmitted+amount > s.Cap {
		log.Printf("🚫 [EMISSION] cap reached for %s: %d + %d > %d", date, day.TotalEmitted, amount, s.Cap)
		return rateLimited("Daily token emission limit reached. Try again tomorrow.").
			WithDetail("date", date).
			WithDetail("remaining", max(s.Cap-day.TotalEmitted, 0))
	}

	res := tx.Model(&models.DailyEmission{}).
		Where("date = ? AND version = ?", date, day.Version).
		Updates(map[string]interface{}{
			"total_emitted": gorm.Expr("total_emitted + ?", amount),
			"version":       day.Version + 1,
			"updated_at":    now,
		})
	if res.Error != nil {
		return fmt.Errorf("bump emission row %s: %w", date, res.Error)
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	return nil
}

// EmissionSnapshot is today's counter as seen by admins.
type EmissionSnapshot struct {
	Date      string `json:"date"`
	Emitted   int64  `json:"emitted"`
	Cap       int64  `json:"cap"`
	Remaining int64  `json:"remaining"`
}

// Snapshot reads the counter for the day containing the current clock time.
func (s *EmissionService) Snapshot(ctx context.Context) (*EmissionSnapshot, error) {
	date := EmissionDate(s.Clock.Now())
	var day models.DailyEmission
	err := s.DB.WithContext(ctx).Where("date = ?", date).First(&day).Error
	if err != nil && !isNotFound(err) {
		return nil, internal(err, "failed to read emission counter")
	}
	return &EmissionSnapshot{
		Date:      date,
		Emitted:   day.TotalEmitted,
		Cap:       s.Cap,
		Remaining: max(s.Cap-day.TotalEmitted, 0),
	}, nil
}

// EnsureDay pre-creates the counter row for the day containing t.
func (s *EmissionService) EnsureDay(ctx context.Context, t time.Time) error {
	if err := ensureEmissionDay(s.DB.WithContext(ctx), EmissionDate(t), s.Clock.Now()); err != nil {
		return internal(err, "failed to create emission row")
	}
	return nil
}
