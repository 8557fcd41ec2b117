package workers

//go:generate mockgen -destination=mocks/mock_uploader.go -package=mocks dulp-economy/workers Uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"time"

	"dulp-economy/models"

	"gorm.io/gorm"
)

// Uploader stores a finished report somewhere durable (R2 in production).
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// TxTotal is the signed sum of one transaction type for the day.
type TxTotal struct {
	Type  models.TransactionType `json:"type"`
	Count int64                  `json:"count"`
	Sum   int64                  `json:"sum"`
}

// AuditReport is the nightly snapshot of everything that moved balance or
// tripped anti-cheat on one UTC day.
type AuditReport struct {
	Date              string              `json:"date"`
	GeneratedAt       time.Time           `json:"generated_at"`
	TotalEmitted      int64               `json:"total_emitted"`
	Transactions      []TxTotal           `json:"transactions"`
	FraudFlags        []models.FraudFlag  `json:"fraud_flags"`
	Withdrawals       []models.Withdrawal `json:"withdrawals"`
	AbandonedSessions int64               `json:"abandoned_sessions"`
}

type AuditExporter struct {
	DB       *gorm.DB
	Uploader Uploader
	Prefix   string
}

func NewAuditExporter(db *gorm.DB, uploader Uploader, prefix string) *AuditExporter {
	return &AuditExporter{DB: db, Uploader: uploader, Prefix: prefix}
}

// BuildReport collects the report for the UTC day containing day.
func (e *AuditExporter) BuildReport(ctx context.Context, day time.Time, generatedAt time.Time) (*AuditReport, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	db := e.DB.WithContext(ctx)

	report := &AuditReport{
		Date:        start.Format("2006-01-02"),
		GeneratedAt: generatedAt.UTC(),
	}

	var emission models.DailyEmission
	if err := db.Where("date = ?", report.Date).First(&emission).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("read emission: %w", err)
	}
	report.TotalEmitted = emission.TotalEmitted

	if err := db.Model(&models.Transaction{}).
		Select("type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("type").
		Order("type").
		Scan(&report.Transactions).Error; err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}

	if err := db.Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Find(&report.FraudFlags).Error; err != nil {
		return nil, fmt.Errorf("load fraud flags: %w", err)
	}

	if err := db.Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Find(&report.Withdrawals).Error; err != nil {
		return nil, fmt.Errorf("load withdrawals: %w", err)
	}

	if err := db.Model(&models.GameSession{}).
		Where("abandoned = ? AND start_time >= ? AND start_time < ?", true, start, end).
		Count(&report.AbandonedSessions).Error; err != nil {
		return nil, fmt.Errorf("count abandoned sessions: %w", err)
	}

	return report, nil
}

// ReportKey is the object key of a day's report, e.g. "audit/2026-10-17.json".
func (e *AuditExporter) ReportKey(date string) string {
	return path.Join(e.Prefix, date+".json")
}

// ExportDay builds the report for day and uploads it.
func (e *AuditExporter) ExportDay(ctx context.Context, day time.Time, now time.Time) error {
	report, err := e.BuildReport(ctx, day, now)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	key := e.ReportKey(report.Date)
	if err := e.Uploader.Upload(ctx, key, body, "application/json"); err != nil {
		return err
	}
	log.Printf("📦 [AUDIT] exported %s (%d flags, %d withdrawals, %d emitted)",
		key, len(report.FraudFlags), len(report.Withdrawals), report.TotalEmitted)
	return nil
}
