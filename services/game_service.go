package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"dulp-economy/config"
	"dulp-economy/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const FraudImpossibleTapSpeed = "IMPOSSIBLE_TAP_SPEED"

// GameResult is returned by a successful EndGame.
type GameResult struct {
	Reward       int64 `json:"reward"`
	Score        int64 `json:"score"`
	XPGained     int64 `json:"xpGained"`
	CurrentLevel int   `json:"currentLevel"`
	LeveledUp    bool  `json:"leveledUp"`
}

// GameService runs the NEW -> COMPLETED session machine and its anti-cheat checks.
type GameService struct {
	DB      *gorm.DB
	Clock   clockwork.Clock
	Games   config.GameConfig
	Economy config.EconomyConfig

	rewards *rewarder
}

func NewGameService(db *gorm.DB, clock clockwork.Clock, games config.GameConfig, economy config.EconomyConfig, rewards *rewarder) *GameService {
	return &GameService{DB: db, Clock: clock, Games: games, Economy: economy, rewards: rewards}
}

// closeSession flips is_completed false -> true. It reports false when another
// request completed the session first.
func closeSession(tx *gorm.DB, sessionID string, score, reward int64, abandoned bool, now time.Time) (bool, error) {
	res := tx.Model(&models.GameSession{}).
		Where("id = ? AND is_completed = ?", sessionID, false).
		Updates(map[string]interface{}{
			"is_completed":  true,
			"score":         score,
			"reward_issued": reward,
			"abandoned":     abandoned,
			"completed_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("complete session %s: %w", sessionID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// StartGame opens a session for gameType. A still-fresh open session blocks
// the start; an abandoned one is closed with score 0 first.
func (s *GameService) StartGame(ctx context.Context, userID, gameType string) (*models.GameSession, error) {
	gameType = strings.TrimSpace(gameType)
	requiredLevel, known := s.Games.LevelGates[gameType]
	if !known {
		return nil, validation("Unknown game type %q", gameType)
	}

	var session *models.GameSession
	err := runInTx(ctx, s.DB, s.Economy.MaxTxAttempts, "GAME", func(tx *gorm.DB) error {
		now := s.Clock.Now().UTC()

		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		if s.Games.ActivationRequired[gameType] && !prof.IsActivated {
			return forbidden("Activation required for advanced games")
		}
		level, err := currentLevel(tx, userID)
		if err != nil {
			return err
		}
		if level < requiredLevel {
			return forbidden("Level %d required for this game", requiredLevel).
				WithDetail("required_level", requiredLevel).
				WithDetail("current_level", level)
		}

		// Two concurrent starts both bump the profile version; only one commits.
		if err := touchProfile(tx, prof, nil, now); err != nil {
			return err
		}

		var open []models.GameSession
		if err := tx.Where("user_id = ? AND is_completed = ?", userID, false).
			Order("start_time DESC").
			Find(&open).Error; err != nil {
			return fmt.Errorf("load open sessions: %w", err)
		}
		for _, existing := range open {
			if now.Sub(existing.StartTime) < s.Games.AbandonAfter {
				return conflict("Existing session in progress").WithDetail("sessionId", existing.ID)
			}
			if _, err := closeSession(tx, existing.ID, 0, 0, true, now); err != nil {
				return err
			}
			log.Printf("⏱️  [GAME] force-completed abandoned session %s of %s", existing.ID, userID)
		}

		session = &models.GameSession{
			ID:        uuid.NewString(),
			UserID:    userID,
			GameType:  gameType,
			StartTime: now,
		}
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	log.Printf("🎮 [GAME] %s started %s session %s", userID, gameType, session.ID)
	return session, nil
}

// EndGame validates the reported score and completes the session exactly once.
// An implausible score records a FraudFlag and closes the session without reward;
// that write commits even though the call fails.
func (s *GameService) EndGame(ctx context.Context, userID, sessionID string, score int64) (*GameResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, validation("Missing parameters")
	}
	if score < 0 {
		return nil, validation("Score must not be negative")
	}

	var (
		result *GameResult
		fraud  *EngineError
	)
	err := runInTx(ctx, s.DB, s.Economy.MaxTxAttempts, "GAME", func(tx *gorm.DB) error {
		result, fraud = nil, nil
		now := s.Clock.Now().UTC()

		var session models.GameSession
		if err := tx.Where("id = ?", sessionID).First(&session).Error; err != nil {
			if isNotFound(err) {
				return notFound("Session not found")
			}
			return fmt.Errorf("load session %s: %w", sessionID, err)
		}
		if session.UserID != userID {
			return validation("Session does not belong to you")
		}
		if session.IsCompleted {
			return conflict("Session already completed")
		}

		elapsed := now.Sub(session.StartTime).Seconds()
		if elapsed < s.Games.MinDurationSeconds {
			return antiCheat("Game finished too early (Anti-Cheat)").
				WithDetail("elapsed_seconds", elapsed)
		}

		maxScore := elapsed * s.Games.MaxScorePerSecond
		if float64(score) > maxScore {
			flag := models.FraudFlag{
				ID:        uuid.NewString(),
				UserID:    userID,
				Reason:    FraudImpossibleTapSpeed,
				Details:   fmt.Sprintf("Score: %d, Elapsed: %.2f, MaxAllowed: %.2f", score, elapsed, maxScore),
				CreatedAt: now,
			}
			if err := tx.Create(&flag).Error; err != nil {
				return fmt.Errorf("record fraud flag: %w", err)
			}
			closed, err := closeSession(tx, sessionID, 0, 0, false, now)
			if err != nil {
				return err
			}
			if !closed {
				return conflict("Session already completed")
			}
			fraud = antiCheat("Score too high (Anti-Bot)").
				WithDetail("max_allowed", maxScore)
			return nil
		}

		reward := score / s.Games.RewardDivisor
		closed, err := closeSession(tx, sessionID, score, reward, false, now)
		if err != nil {
			return err
		}
		if !closed {
			return conflict("Session already completed")
		}

		result = &GameResult{Reward: reward, Score: score}
		if reward <= 0 {
			level, err := currentLevel(tx, userID)
			if err != nil {
				return err
			}
			result.CurrentLevel = level
			return nil
		}

		prof, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		granted, err := s.rewards.grant(tx, rewardGrant{
			Profile:     prof,
			Amount:      reward,
			XP:          s.Economy.XPPerGame,
			Description: fmt.Sprintf("%s score: %d", gameTitle(session.GameType), score),
			ReferenceID: sessionID,
		}, now)
		if err != nil {
			return err
		}
		if err := accumulateScore(tx, userID, score, now); err != nil {
			return err
		}

		result.XPGained = granted.Level.XPGained
		result.CurrentLevel = granted.Level.Level
		result.LeveledUp = granted.Level.LeveledUp
		return nil
	})
	if err != nil {
		return nil, AsEngineError(err)
	}
	if fraud != nil {
		log.Printf("🚨 [ANTI_CHEAT] %s session %s: %s", userID, sessionID, fraud.Message)
		return nil, fraud
	}

	log.Printf("🏁 [GAME] %s finished %s: score=%d reward=%d", userID, sessionID, result.Score, result.Reward)
	return result, nil
}

// SweepAbandoned garbage-collects open sessions older than SweepAfter with
// score 0 and no reward. Sessions younger than that stay open so EndGame can
// still accept them; only the owner's next StartGame closes them sooner.
func (s *GameService) SweepAbandoned(ctx context.Context) (int64, error) {
	now := s.Clock.Now().UTC()
	sweepAfter := s.Games.SweepAfter
	if sweepAfter < s.Games.AbandonAfter {
		sweepAfter = s.Games.AbandonAfter
	}
	res := s.DB.WithContext(ctx).Model(&models.GameSession{}).
		Where("is_completed = ? AND start_time <= ?", false, now.Add(-sweepAfter)).
		Updates(map[string]interface{}{
			"is_completed":  true,
			"abandoned":     true,
			"score":         0,
			"reward_issued": 0,
			"completed_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return 0, internal(res.Error, "failed to sweep abandoned sessions")
	}
	return res.RowsAffected, nil
}

// gameTitle turns "tap_race" into "Tap Race".
func gameTitle(gameType string) string {
	words := strings.Split(gameType, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
