package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"dulp-economy/config"
	"dulp-economy/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// TaskResult is returned by a successful (or replayed) task claim.
type TaskResult struct {
	Reward       int64 `json:"reward"`
	NewBalance   int64 `json:"newBalance"`
	XPGained     int64 `json:"xpGained"`
	CurrentLevel int   `json:"currentLevel"`
	LeveledUp    bool  `json:"leveledUp"`
	Replayed     bool  `json:"-"`
}

func resultFromCompletion(c *models.UserTaskCompletion) *TaskResult {
	return &TaskResult{
		Reward:       c.Reward,
		NewBalance:   c.BalanceAfter,
		XPGained:     c.XPGained,
		CurrentLevel: c.LevelAfter,
		LeveledUp:    c.LeveledUp,
		Replayed:     true,
	}
}

type TaskService struct {
	DB      *gorm.DB
	Clock   clockwork.Clock
	Economy config.EconomyConfig

	rewards *rewarder
}

func NewTaskService(db *gorm.DB, clock clockwork.Clock, economy config.EconomyConfig, rewards *rewarder) *TaskService {
	return &TaskService{DB: db, Clock: clock, Economy: economy, rewards: rewards}
}

// startOfLocalDay is midnight of now's calendar day in loc, expressed in UTC.
func startOfLocalDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
}

// CompleteTask claims taskID for userID. A repeated idempotencyKey returns the
// first claim's result and writes nothing.
func (s *TaskService) CompleteTask(ctx context.Context, userID, taskID, idempotencyKey string) (*TaskResult, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, validation("Task ID required")
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)

	var result *TaskResult
	err := runInTx(ctx, s.DB, s.Economy.MaxTxAttempts, "TASK", func(tx *gorm.DB) error {
		now := s.Clock.Now().UTC()

		if idempotencyKey != "" {
			var prior models.UserTaskCompletion
			err := tx.Where("user_id = ? AND idempotency_key = ?", userID, idempotencyKey).First(&prior).Error
			if err == nil {
				if prior.TaskID != taskID {
					return conflict("Idempotency key already used for another task")
				}
				result = resultFromCompletion(&prior)
				return nil
			}
			if !isNotFound(err) {
				return fmt.Errorf("lookup idempotency key: %w", err)
			}
		}

		var task models.Task
		if err := tx.Where("id = ? AND is_active = ?", taskID, true).First(&task).Error; err != nil {
			if isNotFound(err) {
				return notFound("Task not found or inactive")
			}
			return fmt.Errorf("load task %s: %w", taskID, err)
		}

		var today int64
		if err := tx.Model(&models.UserTaskCompletion{}).
			Where("user_id = ? AND task_id = ? AND completed_at >= ?", userID, taskID, startOfLocalDay(now, s.Economy.Location)).
			Count(&today).Error; err != nil {
			return fmt.Errorf("count completions: %w", err)
		}
		if today >= int64(task.MaxCompletionsPerDay) {
			return validation("Daily limit reached for this task").
				WithDetail("max_completions_per_day", task.MaxCompletionsPerDay)
		}

		if task.CooldownMinutes > 0 {
			var last models.UserTaskCompletion
			err := tx.Where("user_id = ? AND task_id = ?", userID, taskID).
				Order("completed_at DESC").
				First(&last).Error
			if err != nil && !isNotFound(err) {
				return fmt.Errorf("load last completion: %w", err)
			}
			if err == nil {
				cooldown := time.Duration(task.CooldownMinutes) * time.Minute
				if elapsed := now.Sub(last.CompletedAt); elapsed < cooldown {
					remaining := int(math.Ceil((cooldown - elapsed).Minutes()))
					return validation("Task in cooldown, %d minutes remaining", remaining).
						WithDetail("minutes_remaining", remaining)
				}
			}
		}

		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}

		completionID := uuid.NewString()
		grant := rewardGrant{
			Profile:     prof,
			Amount:      task.RewardAmount,
			XP:          s.Economy.XPPerTask,
			Description: fmt.Sprintf("Completed task: %s", task.Title),
			ReferenceID: completionID,
			PayReferral: true,
		}
		if task.Type == models.TaskTypeCheckin {
			grant.ProfileUpdates = map[string]interface{}{
				"streak_count":   prof.StreakCount + 1,
				"last_streak_at": now,
			}
		}
		granted, err := s.rewards.grant(tx, grant, now)
		if err != nil {
			return err
		}

		completion := models.UserTaskCompletion{
			ID:           completionID,
			UserID:       userID,
			TaskID:       taskID,
			CompletedAt:  now,
			Status:       models.CompletionStatusCompleted,
			Reward:       task.RewardAmount,
			XPGained:     granted.Level.XPGained,
			LevelAfter:   granted.Level.Level,
			LeveledUp:    granted.Level.LeveledUp,
			BalanceAfter: granted.NewBalance,
		}
		if idempotencyKey != "" {
			completion.IdempotencyKey = &idempotencyKey
		}
		if err := tx.Create(&completion).Error; err != nil {
			return fmt.Errorf("record completion: %w", err)
		}

		result = &TaskResult{
			Reward:       task.RewardAmount,
			NewBalance:   granted.NewBalance,
			XPGained:     granted.Level.XPGained,
			CurrentLevel: granted.Level.Level,
			LeveledUp:    granted.Level.LeveledUp,
		}
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}

	if result.Replayed {
		log.Printf("↩️  [TASK] replayed claim of %s by %s (key=%s)", taskID, userID, idempotencyKey)
	} else {
		log.Printf("✅ [TASK] %s completed %s: +%d DULP, level %d", userID, taskID, result.Reward, result.CurrentLevel)
	}
	return result, nil
}

// ListActive returns the task catalog.
func (s *TaskService) ListActive(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, internal(err, "failed to list tasks")
	}
	return tasks, nil
}
