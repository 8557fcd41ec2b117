package services

import (
	"context"
	"testing"
	"time"

	"dulp-economy/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmissionDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	require.Equal(t, "2026-10-17", EmissionDate(time.Date(2026, 10, 18, 1, 0, 0, 0, loc)))
	require.Equal(t, "2026-10-18", EmissionDate(time.Date(2026, 10, 18, 3, 0, 0, 0, loc)))
}

func TestEmission_Reserve(t *testing.T) {
	tests := []struct {
		name      string
		emitted   int64
		amount    int64
		wantErr   ErrorKind
		wantTotal int64
	}{
		{name: "cap would be exceeded", emitted: 99990, amount: 20, wantErr: KindRateLimited, wantTotal: 99990},
		{name: "lands exactly on cap", emitted: 99990, amount: 10, wantTotal: 100000},
		{name: "already at cap", emitted: 100000, amount: 1, wantErr: KindRateLimited, wantTotal: 100000},
		{name: "zero amount skips counter", emitted: 100000, amount: 0, wantTotal: 100000},
		{name: "fresh day", emitted: 0, amount: 500, wantTotal: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.emitted > 0 {
				env.setEmitted(t, tt.emitted)
			}

			err := env.DB.Transaction(func(tx *gorm.DB) error {
				return env.Engine.Emission.reserve(tx, env.Clock.Now(), tt.amount)
			})
			if tt.wantErr != "" {
				ee := requireKind(t, err, tt.wantErr)
				require.Equal(t, "Daily token emission limit reached. Try again tomorrow.", ee.Message)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantTotal, env.emitted(t))
		})
	}
}

func TestEmission_SnapshotAndEnsureDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	snap, err := env.Engine.Emission.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "2026-10-17", snap.Date)
	require.Equal(t, int64(0), snap.Emitted)
	require.Equal(t, int64(100000), snap.Remaining)

	tomorrow := env.Clock.Now().AddDate(0, 0, 1)
	require.NoError(t, env.Engine.Emission.EnsureDay(ctx, tomorrow))
	require.NoError(t, env.Engine.Emission.EnsureDay(ctx, tomorrow))

	var rows int64
	require.NoError(t, env.DB.Model(&models.DailyEmission{}).Where("date = ?", "2026-10-18").Count(&rows).Error)
	require.Equal(t, int64(1), rows)

	env.setEmitted(t, 99500)
	snap, err = env.Engine.Emission.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(500), snap.Remaining)
}
