package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"strings"

	"dulp-economy/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	referralCodeLength = 6
	referralPrefixMax  = 3
	codeAlphabet       = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ProfileService bootstraps and reads user profiles.
type ProfileService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Progress *ProgressionService
}

func NewProfileService(db *gorm.DB, clock clockwork.Clock, progress *ProgressionService) *ProfileService {
	return &ProfileService{DB: db, Clock: clock, Progress: progress}
}

// loadProfile reads the user's profile inside tx.
func loadProfile(tx *gorm.DB, userID string) (*models.Profile, error) {
	var prof models.Profile
	err := tx.Where("user_id = ?", userID).First(&prof).Error
	if isNotFound(err) {
		return nil, notFound("Profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return &prof, nil
}

// generateReferralCode builds an upper-case code from the display name plus a
// random suffix, e.g. "Ana María" -> "ANA7KQ".
func generateReferralCode(displayName string) (string, error) {
	prefix := strings.ToUpper(strings.ReplaceAll(slug.Make(displayName), "-", ""))
	if len(prefix) > referralPrefixMax {
		prefix = prefix[:referralPrefixMax]
	}

	buf := make([]byte, referralCodeLength-len(prefix))
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + string(buf), nil
}

// EnsureProfile returns the user's profile, creating it on first access.
// A referral code collision is retried with a fresh code.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, displayName string) (*models.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, Unauthorized("Unauthorized")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "User"
	}

	var prof *models.Profile
	err := runInTx(ctx, s.DB, defaultTxAttempts, "PROFILE", func(tx *gorm.DB) error {
		existing, err := loadProfile(tx, userID)
		if err == nil {
			prof = existing
			return nil
		}
		if KindOf(err) != KindNotFound {
			return err
		}

		code, err := generateReferralCode(displayName)
		if err != nil {
			return fmt.Errorf("generate referral code: %w", err)
		}
		created := models.Profile{
			ID:           uuid.NewString(),
			UserID:       userID,
			DisplayName:  displayName,
			ReferralCode: code,
			Role:         models.RoleUser,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&created)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// a concurrent request created it first
			return errVersionConflict
		}
		if _, err := loadXPProfile(tx, userID); err != nil {
			return err
		}
		log.Printf("👤 [PROFILE] created %s with referral code %s", userID, code)
		prof = &created
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	return prof, nil
}

// MeSnapshot is everything the client needs for its home screen.
type MeSnapshot struct {
	Profile  *models.Profile    `json:"profile"`
	Progress *ProgressSnapshot  `json:"progress"`
	Boosts   []models.UserBoost `json:"boosts"`
}

// Me returns the profile, XP card and currently active boosts.
func (s *ProfileService) Me(ctx context.Context, userID string) (*MeSnapshot, error) {
	prof, err := loadProfile(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, AsEngineError(err)
	}
	progress, err := s.Progress.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	var boosts []models.UserBoost
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, s.Clock.Now().UTC()).
		Order("expires_at ASC").
		Find(&boosts).Error; err != nil {
		return nil, internal(err, "failed to load boosts")
	}
	return &MeSnapshot{Profile: prof, Progress: progress, Boosts: boosts}, nil
}

// UpdateDisplayName changes the name shown on leaderboards and referral lists.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, userID, displayName string) (*models.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, validation("No updates provided")
	}
	if len(displayName) > 64 {
		return nil, validation("Display name is too long")
	}

	var prof *models.Profile
	err := runInTx(ctx, s.DB, defaultTxAttempts, "PROFILE", func(tx *gorm.DB) error {
		p, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		if err := touchProfile(tx, p, map[string]interface{}{"display_name": displayName}, s.Clock.Now().UTC()); err != nil {
			return err
		}
		p.DisplayName = displayName
		prof = p
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	return prof, nil
}
