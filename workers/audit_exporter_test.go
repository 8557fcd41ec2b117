package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dulp-economy/config"
	"dulp-economy/models"
	"dulp-economy/services"
	"dulp-economy/workers/mocks"

	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var day = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedDay(t *testing.T, db *gorm.DB) {
	t.Helper()
	at := day.Add(10 * time.Hour)
	rows := []interface{}{
		&models.DailyEmission{Date: "2026-10-17", TotalEmitted: 70},
		&models.Transaction{ID: uuid.NewString(), UserID: "u1", Amount: 50, Type: models.TxEarn, CreatedAt: at},
		&models.Transaction{ID: uuid.NewString(), UserID: "u2", Amount: 20, Type: models.TxEarn, CreatedAt: at},
		&models.Transaction{ID: uuid.NewString(), UserID: "r1", Amount: 5, Type: models.TxReferral, CreatedAt: at},
		&models.Transaction{ID: uuid.NewString(), UserID: "u1", Amount: -30, Type: models.TxWithdrawal, CreatedAt: at},
		// outside the day
		&models.Transaction{ID: uuid.NewString(), UserID: "u1", Amount: 999, Type: models.TxEarn, CreatedAt: day.Add(-time.Minute)},
		&models.FraudFlag{ID: uuid.NewString(), UserID: "u3", Reason: services.FraudImpossibleTapSpeed, CreatedAt: at},
		&models.Withdrawal{ID: uuid.NewString(), UserID: "u1", Amount: 30, Address: "0xabc", Status: models.WithdrawalPending, CreatedAt: at, UpdatedAt: at},
		&models.GameSession{ID: uuid.NewString(), UserID: "u4", GameType: "tap_race", StartTime: at, IsCompleted: true, Abandoned: true},
		&models.GameSession{ID: uuid.NewString(), UserID: "u4", GameType: "tap_race", StartTime: at, IsCompleted: true},
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}
}

func TestAuditExporter_BuildReport(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)

	exp := NewAuditExporter(db, nil, "audit")
	report, err := exp.BuildReport(context.Background(), day.Add(5*time.Hour), day.Add(24*time.Hour))
	require.NoError(t, err)

	require.Equal(t, "2026-10-17", report.Date)
	require.Equal(t, int64(70), report.TotalEmitted)
	require.Len(t, report.FraudFlags, 1)
	require.Len(t, report.Withdrawals, 1)
	require.Equal(t, int64(1), report.AbandonedSessions)

	totals := map[models.TransactionType]TxTotal{}
	for _, tt := range report.Transactions {
		totals[tt.Type] = tt
	}
	require.Equal(t, TxTotal{Type: models.TxEarn, Count: 2, Sum: 70}, totals[models.TxEarn])
	require.Equal(t, int64(5), totals[models.TxReferral].Sum)
	require.Equal(t, int64(-30), totals[models.TxWithdrawal].Sum)
}

func TestAuditExporter_ExportDayUploadsJSON(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)

	ctrl := gomock.NewController(t)
	uploader := mocks.NewMockUploader(ctrl)

	var uploaded []byte
	uploader.EXPECT().
		Upload(gomock.Any(), "audit/2026-10-17.json", gomock.Any(), "application/json").
		DoAndReturn(func(_ context.Context, _ string, body []byte, _ string) error {
			uploaded = body
			return nil
		})

	exp := NewAuditExporter(db, uploader, "audit")
	require.NoError(t, exp.ExportDay(context.Background(), day, day.Add(24*time.Hour)))

	var report AuditReport
	require.NoError(t, json.Unmarshal(uploaded, &report))
	require.Equal(t, "2026-10-17", report.Date)
	require.Equal(t, int64(70), report.TotalEmitted)
}

func TestAuditExporter_UploadFailure(t *testing.T) {
	db := newTestDB(t)

	ctrl := gomock.NewController(t)
	uploader := mocks.NewMockUploader(ctrl)
	uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("bucket gone"))

	exp := NewAuditExporter(db, uploader, "audit")
	err := exp.ExportDay(context.Background(), day, day.Add(24*time.Hour))
	require.EqualError(t, err, "bucket gone")
}

func TestReportKey(t *testing.T) {
	require.Equal(t, "audit/2026-10-17.json", NewAuditExporter(nil, nil, "audit").ReportKey("2026-10-17"))
	require.Equal(t, "2026-10-17.json", NewAuditExporter(nil, nil, "").ReportKey("2026-10-17"))
}

func TestScheduler_JobsRun(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 17, 23, 54, 0, 0, time.UTC))
	engine := services.NewEngine(db, clock, config.Default())

	stale := models.GameSession{ID: uuid.NewString(), UserID: "u1", GameType: "tap_race", StartTime: clock.Now().Add(-25 * time.Hour)}
	idle := models.GameSession{ID: uuid.NewString(), UserID: "u2", GameType: "tap_race", StartTime: clock.Now().Add(-5 * time.Minute)}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&idle).Error)

	sched, err := NewScheduler(clock, engine.Games, engine.Emission, nil, time.Minute)
	require.NoError(t, err)

	sched.sweepAbandoned(context.Background())
	var got models.GameSession
	require.NoError(t, db.Where("id = ?", stale.ID).First(&got).Error)
	require.True(t, got.Abandoned)
	var open models.GameSession
	require.NoError(t, db.Where("id = ?", idle.ID).First(&open).Error)
	require.False(t, open.IsCompleted)

	sched.prepareTomorrow(context.Background())
	var n int64
	require.NoError(t, db.Model(&models.DailyEmission{}).Where("date = ?", "2026-10-18").Count(&n).Error)
	require.Equal(t, int64(1), n)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)
}
