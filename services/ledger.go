package services

import (
	"context"
	"fmt"
	"time"

	"dulp-economy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerEntry describes one balance-affecting event.
type LedgerEntry struct {
	Amount      int64
	Type        models.TransactionType
	Description string
	ReferenceID string

	// ProfileUpdates are extra profile columns written by the same conditional update
	// (e.g. the check-in streak).
	ProfileUpdates map[string]interface{}
}

// postLedger appends exactly one Transaction row and applies exactly one
// conditional balance update guarded by the profile version read in this
// transaction. prof is updated in place on success.
func postLedger(tx *gorm.DB, prof *models.Profile, entry LedgerEntry, now time.Time) (*models.Transaction, error) {
	newBalance := prof.Balance + entry.Amount
	if newBalance < 0 {
		return nil, validation("Insufficient balance").
			WithDetail("balance", prof.Balance).
			WithDetail("required", -entry.Amount)
	}

	updates := map[string]interface{}{
		"balance":    newBalance,
		"version":    prof.Version + 1,
		"updated_at": now,
	}
	for k, v := range entry.ProfileUpdates {
		updates[k] = v
	}

	q := tx.Model(&models.Profile{}).Where("id = ? AND version = ?", prof.ID, prof.Version)
	if entry.Amount < 0 {
		q = q.Where("balance >= ?", -entry.Amount)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update balance for %s: %w", prof.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errVersionConflict
	}

	row := models.Transaction{
		ID:          uuid.NewString(),
		UserID:      prof.UserID,
		Amount:      entry.Amount,
		Type:        entry.Type,
		Description: entry.Description,
		ReferenceID: entry.ReferenceID,
		CreatedAt:   now,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("append transaction for %s: %w", prof.UserID, err)
	}

	prof.Balance = newBalance
	prof.Version++
	return &row, nil
}

// touchProfile bumps the profile version without moving balance. Workflows use
// it to serialize per-user decisions that have no ledger write of their own.
func touchProfile(tx *gorm.DB, prof *models.Profile, updates map[string]interface{}, now time.Time) error {
	values := map[string]interface{}{
		"version":    prof.Version + 1,
		"updated_at": now,
	}
	for k, v := range updates {
		values[k] = v
	}
	res := tx.Model(&models.Profile{}).
		Where("id = ? AND version = ?", prof.ID, prof.Version).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("touch profile %s: %w", prof.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	prof.Version++
	return nil
}

// LedgerService exposes read access to the transaction log.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// History returns the user's most recent transactions, newest first.
func (s *LedgerService) History(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var txs []models.Transaction
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, internal(err, "failed to fetch transactions")
	}
	return txs, nil
}

// Reconciliation compares a profile's balance against the sum of its ledger.
type Reconciliation struct {
	UserID     string `json:"user_id"`
	Balance    int64  `json:"balance"`
	LedgerSum  int64  `json:"ledger_sum"`
	Consistent bool   `json:"consistent"`
}

// Reconcile reads balance and ledger sum in one transaction.
func (s *LedgerService) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	var out Reconciliation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prof models.Profile
		if err := tx.Where("user_id = ?", userID).First(&prof).Error; err != nil {
			return err
		}
		var sum int64
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ?", userID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&sum).Error; err != nil {
			return err
		}
		out = Reconciliation{
			UserID:     userID,
			Balance:    prof.Balance,
			LedgerSum:  sum,
			Consistent: prof.Balance == sum,
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("profile not found")
		}
		return nil, internal(err, "failed to reconcile ledger")
	}
	return &out, nil
}
