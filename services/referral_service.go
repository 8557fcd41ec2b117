package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"dulp-economy/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// ReferralService pays single-level commission and manages referral codes.
type ReferralService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Percent  int64
	Attempts int
}

func NewReferralService(db *gorm.DB, clock clockwork.Clock, percent int64, attempts int) *ReferralService {
	return &ReferralService{DB: db, Clock: clock, Percent: percent, Attempts: attempts}
}

// Commission is the referrer's cut of reward, rounded down.
func (s *ReferralService) Commission(reward int64) int64 {
	if reward <= 0 || s.Percent <= 0 {
		return 0
	}
	return reward * s.Percent / 100
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// referrerOf returns the profile owning prof.ReferredBy, or nil when the user
// was not referred, the code no longer resolves, or it resolves to the user.
func referrerOf(tx *gorm.DB, prof *models.Profile) (*models.Profile, error) {
	if prof.ReferredBy == nil || *prof.ReferredBy == "" {
		return nil, nil
	}
	var ref models.Profile
	err := tx.Where("referral_code = ?", *prof.ReferredBy).First(&ref).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load referrer %s: %w", *prof.ReferredBy, err)
	}
	if ref.UserID == prof.UserID {
		return nil, nil
	}
	return &ref, nil
}

// payCommission credits the referrer's commission inside tx. Commission is paid
// to the direct referrer only; it never cascades further up.
func (s *ReferralService) payCommission(tx *gorm.DB, referrer *models.Profile, from *models.Profile, commission int64, referenceID string, now time.Time) error {
	if referrer == nil || commission <= 0 {
		return nil
	}
	_, err := postLedger(tx, referrer, LedgerEntry{
		Amount:      commission,
		Type:        models.TxReferral,
		Description: fmt.Sprintf("Referral commission from %s", from.DisplayName),
		ReferenceID: referenceID,
	}, now)
	return err
}

// ReferralCheck is the answer to a validate or apply request.
type ReferralCheck struct {
	Valid        bool   `json:"valid"`
	ReferrerName string `json:"referrerName"`
}

func (s *ReferralService) checkCode(tx *gorm.DB, prof *models.Profile, code string) (*models.Profile, error) {
	if code == "" {
		return nil, validation("Code is required")
	}
	if code == prof.ReferralCode {
		return nil, validation("You cannot use your own referral code")
	}
	if prof.ReferredBy != nil {
		return nil, conflict("You already have a referral code applied")
	}
	var ref models.Profile
	err := tx.Where("referral_code = ?", code).First(&ref).Error
	if isNotFound(err) {
		return nil, notFound("Invalid referral code")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup referral code %s: %w", code, err)
	}
	return &ref, nil
}

// Validate reports whether code could be applied by userID right now.
func (s *ReferralService) Validate(ctx context.Context, userID, code string) (*ReferralCheck, error) {
	var out ReferralCheck
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		ref, err := s.checkCode(tx, prof, normalizeCode(code))
		if err != nil {
			return err
		}
		out = ReferralCheck{Valid: true, ReferrerName: ref.DisplayName}
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	return &out, nil
}

// Apply sets the user's referrer. referred_by is written at most once.
func (s *ReferralService) Apply(ctx context.Context, userID, code string) (*ReferralCheck, error) {
	code = normalizeCode(code)
	var out ReferralCheck
	err := runInTx(ctx, s.DB, s.Attempts, "REFERRAL", func(tx *gorm.DB) error {
		now := s.Clock.Now().UTC()
		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		ref, err := s.checkCode(tx, prof, code)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Profile{}).
			Where("id = ? AND version = ? AND referred_by IS NULL", prof.ID, prof.Version).
			Updates(map[string]interface{}{
				"referred_by": code,
				"version":     prof.Version + 1,
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("apply referral for %s: %w", userID, res.Error)
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}

		if err := tx.Create(&models.Referral{
			ID:               uuid.NewString(),
			ReferrerID:       ref.UserID,
			ReferredID:       userID,
			ReferralCodeUsed: code,
			CreatedAt:        now,
		}).Error; err != nil {
			return fmt.Errorf("record referral for %s: %w", userID, err)
		}

		out = ReferralCheck{Valid: true, ReferrerName: ref.DisplayName}
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	log.Printf("🤝 [REFERRAL] %s joined via code %s", userID, code)
	return &out, nil
}

// ReferredUser is one entry of the stats list.
type ReferredUser struct {
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// ReferralStats summarizes a user's referral activity.
type ReferralStats struct {
	Count         int64          `json:"count"`
	Earnings      int64          `json:"earnings"`
	ReferralCode  string         `json:"referralCode"`
	ReferredBy    *string        `json:"referredBy"`
	ReferredUsers []ReferredUser `json:"referredUsers"`
}

func (s *ReferralService) Stats(ctx context.Context, userID string) (*ReferralStats, error) {
	db := s.DB.WithContext(ctx)
	prof, err := loadProfile(db, userID)
	if err != nil {
		return nil, AsEngineError(err)
	}

	var referred []models.Profile
	if err := db.Where("referred_by = ?", prof.ReferralCode).
		Order("created_at ASC").
		Find(&referred).Error; err != nil {
		return nil, internal(err, "failed to load referred users")
	}

	var earnings int64
	if err := db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", userID, models.TxReferral).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&earnings).Error; err != nil {
		return nil, internal(err, "failed to sum referral earnings")
	}

	users := make([]ReferredUser, 0, len(referred))
	for _, p := range referred {
		users = append(users, ReferredUser{DisplayName: p.DisplayName, JoinedAt: p.CreatedAt})
	}
	return &ReferralStats{
		Count:         int64(len(referred)),
		Earnings:      earnings,
		ReferralCode:  prof.ReferralCode,
		ReferredBy:    prof.ReferredBy,
		ReferredUsers: users,
	}, nil
}
