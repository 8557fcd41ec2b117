package services

import (
	"dulp-economy/config"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Engine wires every workflow over one database and one clock.
type Engine struct {
	Ledger      *LedgerService
	Emission    *EmissionService
	Progression *ProgressionService
	Referrals   *ReferralService
	Profiles    *ProfileService
	Tasks       *TaskService
	Games       *GameService
	Withdrawals *WithdrawalService
	Activation  *ActivationService
	Store       *StoreService
	Leaderboard *LeaderboardService
	Admin       *AdminService
}

func NewEngine(db *gorm.DB, clock clockwork.Clock, cfg config.Config) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	attempts := cfg.Economy.MaxTxAttempts

	emission := NewEmissionService(db, clock, cfg.Economy.MaxDailyEmission)
	progression := NewProgressionService(db, clock)
	referrals := NewReferralService(db, clock, cfg.Economy.ReferralPercent, attempts)
	rewards := &rewarder{emission: emission, progress: progression, referrals: referrals}

	return &Engine{
		Ledger:      NewLedgerService(db),
		Emission:    emission,
		Progression: progression,
		Referrals:   referrals,
		Profiles:    NewProfileService(db, clock, progression),
		Tasks:       NewTaskService(db, clock, cfg.Economy, rewards),
		Games:       NewGameService(db, clock, cfg.Games, cfg.Economy, rewards),
		Withdrawals: NewWithdrawalService(db, clock, cfg.Withdrawals, cfg.Economy),
		Activation:  NewActivationService(db, clock, attempts),
		Store:       NewStoreService(db, clock, attempts),
		Leaderboard: NewLeaderboardService(db, clock),
		Admin:       NewAdminService(db, clock, emission),
	}
}
