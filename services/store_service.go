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

const defaultBoostHours = 24

// PurchaseResult is returned after a successful store purchase.
type PurchaseResult struct {
	NewBalance int64             `json:"newBalance"`
	Item       string            `json:"item"`
	Boost      *models.UserBoost `json:"boost,omitempty"`
}

type StoreService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Attempts int
}

func NewStoreService(db *gorm.DB, clock clockwork.Clock, attempts int) *StoreService {
	return &StoreService{DB: db, Clock: clock, Attempts: attempts}
}

func (s *StoreService) ListItems(ctx context.Context) ([]models.StoreItem, error) {
	var items []models.StoreItem
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("price ASC").Find(&items).Error; err != nil {
		return nil, internal(err, "failed to list store items")
	}
	return items, nil
}

// Purchase debits the item price and grants its boost, if any.
func (s *StoreService) Purchase(ctx context.Context, userID, itemID string) (*PurchaseResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, validation("Item ID required")
	}

	var result *PurchaseResult
	err := runInTx(ctx, s.DB, s.Attempts, "STORE", func(tx *gorm.DB) error {
		now := s.Clock.Now().UTC()

		var item models.StoreItem
		if err := tx.Where("id = ? AND is_active = ?", itemID, true).First(&item).Error; err != nil {
			if isNotFound(err) {
				return notFound("Item not found or unavailable")
			}
			return fmt.Errorf("load item %s: %w", itemID, err)
		}

		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		if prof.Balance < item.Price {
			return validation("Insufficient balance").WithDetail("price", item.Price)
		}

		if item.Price > 0 {
			if _, err := postLedger(tx, prof, LedgerEntry{
				Amount:      -item.Price,
				Type:        models.TxPurchase,
				Description: fmt.Sprintf("Purchased: %s", item.Name),
				ReferenceID: item.ID,
			}, now); err != nil {
				return err
			}
		}

		result = &PurchaseResult{NewBalance: prof.Balance, Item: item.Name}
		if item.GrantsBoost() {
			hours := item.DurationHours
			if hours <= 0 {
				hours = defaultBoostHours
			}
			boost := models.UserBoost{
				ID:        uuid.NewString(),
				UserID:    userID,
				ItemID:    item.ID,
				ExpiresAt: now.Add(time.Duration(hours) * time.Hour),
				CreatedAt: now,
			}
			if err := tx.Create(&boost).Error; err != nil {
				return fmt.Errorf("grant boost: %w", err)
			}
			result.Boost = &boost
		}
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	log.Printf("🛒 [STORE] %s bought %s (balance now %d)", userID, result.Item, result.NewBalance)
	return result, nil
}
