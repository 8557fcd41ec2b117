package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRequiredXP(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{0, 100},
		{1, 100},
		{2, 282},
		{3, 519},
		{4, 800},
		{5, 1118},
		{10, 3162},
	}
	for _, tt := range tests {
		require.Equalf(t, tt.want, RequiredXP(tt.level), "level %d", tt.level)
	}
}

func TestApplyXP(t *testing.T) {
	tests := []struct {
		name      string
		xp        int64
		level     int
		gain      int64
		wantXP    int64
		wantLevel int
		leveledUp bool
	}{
		{name: "below threshold", xp: 0, level: 1, gain: 10, wantXP: 10, wantLevel: 1},
		{name: "exactly at threshold", xp: 90, level: 1, gain: 10, wantXP: 100, wantLevel: 2, leveledUp: true},
		{name: "several levels at once", xp: 0, level: 1, gain: 1000, wantXP: 1000, wantLevel: 5, leveledUp: true},
		{name: "negative gain ignored", xp: 50, level: 1, gain: -30, wantXP: 50, wantLevel: 1},
		{name: "zero level treated as one", xp: 0, level: 0, gain: 5, wantXP: 5, wantLevel: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyXP(tt.xp, tt.level, tt.gain)
			require.Equal(t, tt.wantXP, got.XP)
			require.Equal(t, tt.wantLevel, got.Level)
			require.Equal(t, tt.leveledUp, got.LeveledUp)
			require.GreaterOrEqual(t, got.XP, tt.xp)
		})
	}
}

func TestTierForLevel(t *testing.T) {
	require.Equal(t, "bronze", TierForLevel(1))
	require.Equal(t, "bronze", TierForLevel(4))
	require.Equal(t, "silver", TierForLevel(5))
	require.Equal(t, "gold", TierForLevel(10))
	require.Equal(t, "diamond", TierForLevel(25))
}

func TestProgression_AwardPersistsLevelUp(t *testing.T) {
	env := newTestEnv(t)
	svc := env.Engine.Progression

	err := env.DB.Transaction(func(tx *gorm.DB) error {
		res, err := svc.award(tx, "u1", 95, env.Clock.Now())
		require.NoError(t, err)
		require.False(t, res.LeveledUp)

		res, err = svc.award(tx, "u1", 10, env.Clock.Now())
		require.NoError(t, err)
		require.True(t, res.LeveledUp)
		require.Equal(t, 2, res.Level)
		return nil
	})
	require.NoError(t, err)

	prog := env.xp(t, "u1")
	require.Equal(t, int64(105), prog.XP)
	require.Equal(t, 2, prog.Level)
	require.NotNil(t, prog.LastLevelUpAt)

	snap, err := svc.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 2, snap.Level)
	require.Equal(t, "bronze", snap.Tier)
	require.Equal(t, RequiredXP(2), snap.NextLevelXP)
}

func TestProgression_GetOrCreateDefaultsToLevelOne(t *testing.T) {
	env := newTestEnv(t)

	snap, err := env.Engine.Progression.GetOrCreate(context.Background(), "fresh")
	require.NoError(t, err)
	require.Equal(t, int64(0), snap.XP)
	require.Equal(t, 1, snap.Level)
	require.Equal(t, int64(100), snap.NextLevelXP)
}
