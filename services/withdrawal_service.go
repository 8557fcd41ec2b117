package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"dulp-economy/config"
	"dulp-economy/models"
	"dulp-economy/utils"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const withdrawalSubmitted = "Withdrawal request submitted successfully"

// WithdrawalResult is returned after a request is accepted.
type WithdrawalResult struct {
	WithdrawalID string `json:"withdrawalId"`
	NewBalance   int64  `json:"newBalance"`
	Message      string `json:"message"`
}

type WithdrawalService struct {
	DB      *gorm.DB
	Clock   clockwork.Clock
	Rules   config.WithdrawalConfig
	Economy config.EconomyConfig
}

func NewWithdrawalService(db *gorm.DB, clock clockwork.Clock, rules config.WithdrawalConfig, economy config.EconomyConfig) *WithdrawalService {
	return &WithdrawalService{DB: db, Clock: clock, Rules: rules, Economy: economy}
}

// RequestWithdrawal debits amount and files a pending payout. The gates run in
// a fixed order and the first failing one is reported.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, userID string, amount int64, address string) (*WithdrawalResult, error) {
	address = strings.TrimSpace(address)
	if address == "" || amount <= 0 {
		return nil, validation("Amount and address required")
	}
	if amount < s.Rules.MinAmount {
		return nil, validation("Minimum withdrawal is %s DULP", utils.FormatDULP(s.Rules.MinAmount))
	}

	var result *WithdrawalResult
	err := runInTx(ctx, s.DB, s.Economy.MaxTxAttempts, "WITHDRAW", func(tx *gorm.DB) error {
		now := s.Clock.Now().UTC()

		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		if prof.Balance < amount {
			return validation("Insufficient balance").
				WithDetail("balance", prof.Balance)
		}
		if !prof.IsActivated {
			return forbidden("Account activation required for withdrawals")
		}
		level, err := currentLevel(tx, userID)
		if err != nil {
			return err
		}
		if level < s.Rules.MinLevel {
			return forbidden("Level %d required for withdrawals", s.Rules.MinLevel)
		}

		var today int64
		if err := tx.Model(&models.Withdrawal{}).
			Where("user_id = ? AND created_at >= ?", userID, startOfLocalDay(now, s.Economy.Location)).
			Count(&today).Error; err != nil {
			return fmt.Errorf("count withdrawals: %w", err)
		}
		if today >= s.Rules.MaxPerDay {
			return validation("Daily withdrawal limit reached")
		}

		var last models.Withdrawal
		err = tx.Where("user_id = ?", userID).Order("created_at DESC").First(&last).Error
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("load last withdrawal: %w", err)
		}
		if err == nil {
			sinceHours := now.Sub(last.CreatedAt).Hours()
			if sinceHours < s.Rules.CooldownHours {
				wait := int(math.Ceil(s.Rules.CooldownHours - sinceHours))
				return validation("Cooldown active. Please wait %d hours.", wait).
					WithDetail("hours_remaining", wait)
			}
		}

		withdrawal := models.Withdrawal{
			ID:        uuid.NewString(),
			UserID:    userID,
			Amount:    amount,
			Address:   address,
			Status:    models.WithdrawalPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := postLedger(tx, prof, LedgerEntry{
			Amount:      -amount,
			Type:        models.TxWithdrawal,
			Description: fmt.Sprintf("Withdrawal request to %s", address),
			ReferenceID: withdrawal.ID,
		}, now); err != nil {
			return err
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}

		result = &WithdrawalResult{
			WithdrawalID: withdrawal.ID,
			NewBalance:   prof.Balance,
			Message:      withdrawalSubmitted,
		}
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	log.Printf("💸 [WITHDRAW] %s requested %d DULP (balance now %d)", userID, amount, result.NewBalance)
	return result, nil
}

// ReviewWithdrawal moves a pending withdrawal to approved or rejected. A
// rejection refunds the amount in the same transaction.
func (s *WithdrawalService) ReviewWithdrawal(ctx context.Context, reviewerID, withdrawalID, status string) (*models.Withdrawal, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.WithdrawalApproved && status != models.WithdrawalRejected {
		return nil, validation("Status must be %q or %q", models.WithdrawalApproved, models.WithdrawalRejected)
	}

	var reviewed models.Withdrawal
	err := runInTx(ctx, s.DB, s.Economy.MaxTxAttempts, "WITHDRAW", func(tx *gorm.DB) error {
		now := s.Clock.Now().UTC()

		if err := tx.Where("id = ?", withdrawalID).First(&reviewed).Error; err != nil {
			if isNotFound(err) {
				return notFound("Withdrawal not found")
			}
			return fmt.Errorf("load withdrawal %s: %w", withdrawalID, err)
		}
		if reviewed.Status != models.WithdrawalPending {
			return conflict("Withdrawal already %s", reviewed.Status)
		}

		res := tx.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ?", withdrawalID, models.WithdrawalPending).
			Updates(map[string]interface{}{
				"status":      status,
				"reviewed_by": reviewerID,
				"reviewed_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("review withdrawal %s: %w", withdrawalID, res.Error)
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}

		if status == models.WithdrawalRejected {
			prof, err := loadProfile(tx, reviewed.UserID)
			if err != nil {
				return err
			}
			if _, err := postLedger(tx, prof, LedgerEntry{
				Amount:      reviewed.Amount,
				Type:        models.TxRefund,
				Description: "Withdrawal rejected, amount refunded",
				ReferenceID: reviewed.ID,
			}, now); err != nil {
				return err
			}
		}

		reviewed.Status = status
		reviewed.ReviewedBy = &reviewerID
		reviewed.ReviewedAt = &now
		reviewed.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	log.Printf("🧾 [WITHDRAW] %s %s withdrawal %s (%d DULP)", reviewerID, status, withdrawalID, reviewed.Amount)
	return &reviewed, nil
}

// List returns withdrawals newest first, optionally filtered by status.
func (s *WithdrawalService) List(ctx context.Context, status string, limit int) ([]models.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := s.DB.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Withdrawal
	if err := q.Find(&out).Error; err != nil {
		return nil, internal(err, "failed to list withdrawals")
	}
	return out, nil
}

// ForUser returns a user's own withdrawal history.
func (s *WithdrawalService) ForUser(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&out).Error; err != nil {
		return nil, internal(err, "failed to list withdrawals")
	}
	return out, nil
}
