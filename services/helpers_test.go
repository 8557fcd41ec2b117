package services

import (
	"context"
	"testing"
	"time"

	"dulp-economy/config"
	"dulp-economy/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testStart = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	DB     *gorm.DB
	Clock  *clockwork.FakeClock
	Cfg    config.Config
	Engine *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, config.Default())
}

func newTestEnvWithConfig(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	clock := clockwork.NewFakeClockAt(testStart)
	return &testEnv{
		DB:     db,
		Clock:  clock,
		Cfg:    cfg,
		Engine: NewEngine(db, clock, cfg),
	}
}

type profileOpt func(*models.Profile)

func withBalance(b int64) profileOpt     { return func(p *models.Profile) { p.Balance = b } }
func withCode(code string) profileOpt    { return func(p *models.Profile) { p.ReferralCode = code } }
func referredBy(code string) profileOpt  { return func(p *models.Profile) { p.ReferredBy = &code } }
func activated() profileOpt              { return func(p *models.Profile) { p.IsActivated = true } }
func displayName(name string) profileOpt { return func(p *models.Profile) { p.DisplayName = name } }

// seedProfile inserts a profile. A non-zero balance is backed by an opening
// ledger row so balance == sum(transactions) holds from the start.
func (e *testEnv) seedProfile(t *testing.T, userID string, opts ...profileOpt) *models.Profile {
	t.Helper()
	prof := &models.Profile{
		ID:           uuid.NewString(),
		UserID:       userID,
		DisplayName:  userID,
		ReferralCode: "C" + userID,
		Role:         models.RoleUser,
	}
	for _, opt := range opts {
		opt(prof)
	}
	require.NoError(t, e.DB.Create(prof).Error)
	if prof.Balance != 0 {
		require.NoError(t, e.DB.Create(&models.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      prof.Balance,
			Type:        models.TxEarn,
			Description: "opening balance",
			CreatedAt:   e.Clock.Now().Add(-48 * time.Hour),
		}).Error)
	}
	return prof
}

func (e *testEnv) setLevel(t *testing.T, userID string, level int) {
	t.Helper()
	xp := int64(0)
	if level > 1 {
		xp = RequiredXP(level - 1)
	}
	require.NoError(t, e.DB.Create(&models.XPProfile{UserID: userID, XP: xp, Level: level}).Error)
}

func (e *testEnv) seedTask(t *testing.T, id string, reward int64, mutate ...func(*models.Task)) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:                   id,
		Title:                "Task " + id,
		RewardAmount:         reward,
		Type:                 models.TaskTypeSocial,
		MaxCompletionsPerDay: 1,
		IsActive:             true,
	}
	for _, m := range mutate {
		m(task)
	}
	require.NoError(t, e.DB.Create(task).Error)
	return task
}

func (e *testEnv) setEmitted(t *testing.T, total int64) {
	t.Helper()
	require.NoError(t, e.DB.Create(&models.DailyEmission{
		Date:         EmissionDate(e.Clock.Now()),
		TotalEmitted: total,
	}).Error)
}

func (e *testEnv) balance(t *testing.T, userID string) int64 {
	t.Helper()
	var prof models.Profile
	require.NoError(t, e.DB.Where("user_id = ?", userID).First(&prof).Error)
	return prof.Balance
}

func (e *testEnv) emitted(t *testing.T) int64 {
	t.Helper()
	var day models.DailyEmission
	err := e.DB.Where("date = ?", EmissionDate(e.Clock.Now())).First(&day).Error
	if err == gorm.ErrRecordNotFound {
		return 0
	}
	require.NoError(t, err)
	return day.TotalEmitted
}

func (e *testEnv) xp(t *testing.T, userID string) models.XPProfile {
	t.Helper()
	var prog models.XPProfile
	err := e.DB.Where("user_id = ?", userID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		return models.XPProfile{UserID: userID, Level: 1}
	}
	require.NoError(t, err)
	return prog
}

func (e *testEnv) transactions(t *testing.T, userID string) []models.Transaction {
	t.Helper()
	var txs []models.Transaction
	require.NoError(t, e.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&txs).Error)
	return txs
}

// requireLedgerConsistent checks balance == sum(transactions) for every profile.
func (e *testEnv) requireLedgerConsistent(t *testing.T) {
	t.Helper()
	var profiles []models.Profile
	require.NoError(t, e.DB.Find(&profiles).Error)
	for _, p := range profiles {
		rec, err := e.Engine.Ledger.Reconcile(context.Background(), p.UserID)
		require.NoError(t, err)
		require.Truef(t, rec.Consistent, "user %s: balance %d != ledger %d", p.UserID, rec.Balance, rec.LedgerSum)
	}
}

func requireKind(t *testing.T, err error, kind ErrorKind) *EngineError {
	t.Helper()
	require.Error(t, err)
	ee := AsEngineError(err)
	require.Equalf(t, kind, ee.Kind, "unexpected error: %v", err)
	return ee
}
