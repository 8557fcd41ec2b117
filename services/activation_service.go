package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"dulp-economy/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// ActivationService redeems one-time activation codes.
type ActivationService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Attempts int
}

func NewActivationService(db *gorm.DB, clock clockwork.Clock, attempts int) *ActivationService {
	return &ActivationService{DB: db, Clock: clock, Attempts: attempts}
}

// Activate redeems code for userID and flips the profile's is_activated flag.
func (s *ActivationService) Activate(ctx context.Context, userID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return validation("Code required")
	}

	err := runInTx(ctx, s.DB, s.Attempts, "ACTIVATION", func(tx *gorm.DB) error {
		now := s.Clock.Now().UTC()

		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&models.UserActivation{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check activation: %w", err)
		}
		if existing > 0 || prof.IsActivated {
			return conflict("Account already activated")
		}

		var ac models.ActivationCode
		if err := tx.Where("code = ? AND is_active = ?", code, true).First(&ac).Error; err != nil {
			if isNotFound(err) {
				return notFound("Invalid activation code")
			}
			return fmt.Errorf("load activation code: %w", err)
		}
		if ac.ExpiresAt != nil && ac.ExpiresAt.Before(now) {
			return validation("Code expired")
		}
		if ac.CurrentUses >= ac.MaxUses {
			return validation("Code usage limit reached")
		}

		res := tx.Model(&models.ActivationCode{}).
			Where("id = ? AND current_uses = ?", ac.ID, ac.CurrentUses).
			Update("current_uses", ac.CurrentUses+1)
		if res.Error != nil {
			return fmt.Errorf("consume activation code: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}

		if err := tx.Create(&models.UserActivation{
			UserID:           userID,
			ActivationCodeID: ac.ID,
			ActivatedAt:      now,
		}).Error; err != nil {
			return fmt.Errorf("record activation: %w", err)
		}
		return touchProfile(tx, prof, map[string]interface{}{"is_activated": true}, now)
	})
	if err != nil {
		return AsEngineError(err)
	}
	log.Printf("🔓 [ACTIVATION] %s activated with code %s", userID, code)
	return nil
}
