package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"dulp-economy/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaseXPPerLevel scales the level curve: RequiredXP(n) = floor(BaseXPPerLevel * n^1.5)
const BaseXPPerLevel = 100

// RequiredXP is the cumulative XP at which a user leaves level.
func RequiredXP(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(float64(BaseXPPerLevel) * math.Pow(float64(level), 1.5)))
}

// LevelResult is the outcome of applying an XP gain.
type LevelResult struct {
	XP        int64 `json:"xp"`
	Level     int   `json:"level"`
	XPGained  int64 `json:"xpGained"`
	LeveledUp bool  `json:"leveledUp"`
}

// ApplyXP adds gain to xp and raises level until the next threshold is out of
// reach. Negative gains count as zero, so neither value ever decreases.
func ApplyXP(xp int64, level int, gain int64) LevelResult {
	if gain < 0 {
		gain = 0
	}
	if level < 1 {
		level = 1
	}
	newXP := xp + gain
	newLevel := level
	for newXP >= RequiredXP(newLevel) {
		newLevel++
	}
	return LevelResult{
		XP:        newXP,
		Level:     newLevel,
		XPGained:  gain,
		LeveledUp: newLevel > level,
	}
}

// Tiers group levels for display on the profile card.
var tierThresholds = []struct {
	MinLevel int
	Name     string
}{
	{20, "diamond"},
	{10, "gold"},
	{5, "silver"},
	{1, "bronze"},
}

// TierForLevel names the tier a level belongs to.
func TierForLevel(level int) string {
	for _, t := range tierThresholds {
		if level >= t.MinLevel {
			return t.Name
		}
	}
	return "bronze"
}

type ProgressionService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewProgressionService(db *gorm.DB, clock clockwork.Clock) *ProgressionService {
	return &ProgressionService{DB: db, Clock: clock}
}

// loadXPProfile returns the user's XP row, creating it at level 1 if missing.
func loadXPProfile(tx *gorm.DB, userID string) (*models.XPProfile, error) {
	seed := models.XPProfile{UserID: userID, Level: 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("create xp profile for %s: %w", userID, err)
	}
	var prog models.XPProfile
	if err := tx.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, fmt.Errorf("read xp profile for %s: %w", userID, err)
	}
	return &prog, nil
}

// award applies gain inside tx with a conditional update on the row version.
func (s *ProgressionService) award(tx *gorm.DB, userID string, gain int64, now time.Time) (LevelResult, error) {
	prog, err := loadXPProfile(tx, userID)
	if err != nil {
		return LevelResult{}, err
	}
	result := ApplyXP(prog.XP, prog.Level, gain)
	if result.XPGained == 0 {
		return result, nil
	}

	updates := map[string]interface{}{
		"xp":         result.XP,
		"level":      result.Level,
		"version":    prog.Version + 1,
		"updated_at": now,
	}
	if result.LeveledUp {
		updates["last_level_up_at"] = now
	}
	res := tx.Model(&models.XPProfile{}).
		Where("user_id = ? AND version = ?", userID, prog.Version).
		Updates(updates)
	if res.Error != nil {
		return LevelResult{}, fmt.Errorf("update xp for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return LevelResult{}, errVersionConflict
	}

	if result.LeveledUp {
		log.Printf("🎮 [XP] %s reached level %d (xp=%d)", userID, result.Level, result.XP)
	}
	return result, nil
}

// currentLevel reads the user's level inside tx. Users with no row are level 1.
func currentLevel(tx *gorm.DB, userID string) (int, error) {
	var prog models.XPProfile
	err := tx.Where("user_id = ?", userID).First(&prog).Error
	if isNotFound(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read level for %s: %w", userID, err)
	}
	return prog.Level, nil
}

// ProgressSnapshot is the XP card shown on /me.
type ProgressSnapshot struct {
	XP          int64  `json:"xp"`
	Level       int    `json:"level"`
	Tier        string `json:"tier"`
	NextLevelXP int64  `json:"next_level_xp"`
}

// GetOrCreate returns the user's XP snapshot, creating the row on first read.
func (s *ProgressionService) GetOrCreate(ctx context.Context, userID string) (*ProgressSnapshot, error) {
	var prog *models.XPProfile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		prog, err = loadXPProfile(tx, userID)
		return err
	})
	if err != nil {
		return nil, internal(err, "failed to load progression")
	}
	return &ProgressSnapshot{
		XP:          prog.XP,
		Level:       prog.Level,
		Tier:        TierForLevel(prog.Level),
		NextLevelXP: RequiredXP(prog.Level),
	}, nil
}
