package services

import (
	"context"
	"time"

	"dulp-economy/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// AdminStats is the dashboard summary.
type AdminStats struct {
	TotalUsers         int64 `json:"totalUsers"`
	PendingWithdrawals int64 `json:"pendingWithdrawals"`
	DailyEmission      int64 `json:"dailyEmission"`
	EmissionCap        int64 `json:"emissionCap"`
	FraudFlagsToday    int64 `json:"fraudFlagsToday"`
}

type AdminService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Emission *EmissionService
}

func NewAdminService(db *gorm.DB, clock clockwork.Clock, emission *EmissionService) *AdminService {
	return &AdminService{DB: db, Clock: clock, Emission: emission}
}

func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	db := s.DB.WithContext(ctx)
	var stats AdminStats

	if err := db.Model(&models.Profile{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, internal(err, "failed to count users")
	}
	if err := db.Model(&models.Withdrawal{}).
		Where("status = ?", models.WithdrawalPending).
		Count(&stats.PendingWithdrawals).Error; err != nil {
		return nil, internal(err, "failed to count withdrawals")
	}

	now := s.Clock.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := db.Model(&models.FraudFlag{}).
		Where("created_at >= ?", dayStart).
		Count(&stats.FraudFlagsToday).Error; err != nil {
		return nil, internal(err, "failed to count fraud flags")
	}

	snap, err := s.Emission.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats.DailyEmission = snap.Emitted
	stats.EmissionCap = snap.Cap
	return &stats, nil
}

// FraudFlags lists the most recent flags, newest first.
func (s *AdminService) FraudFlags(ctx context.Context, limit int) ([]models.FraudFlag, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var flags []models.FraudFlag
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&flags).Error; err != nil {
		return nil, internal(err, "failed to list fraud flags")
	}
	return flags, nil
}
