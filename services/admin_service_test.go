package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	eligible(t, env, "rich", 1000)
	env.seedProfile(t, "cheat")
	env.seedTask(t, "follow", 20)
	ctx := context.Background()

	_, err := env.Engine.Withdrawals.RequestWithdrawal(ctx, "rich", 100, "0xabc")
	require.NoError(t, err)
	_, err = env.Engine.Tasks.CompleteTask(ctx, "rich", "follow", "")
	require.NoError(t, err)

	session := startTapRace(t, env, "cheat")
	env.Clock.Advance(10 * time.Second)
	_, err = env.Engine.Games.EndGame(ctx, "cheat", session.ID, 5000)
	requireKind(t, err, KindAntiCheat)

	stats, err := env.Engine.Admin.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalUsers)
	require.Equal(t, int64(1), stats.PendingWithdrawals)
	require.Equal(t, int64(20), stats.DailyEmission)
	require.Equal(t, int64(100000), stats.EmissionCap)
	require.Equal(t, int64(1), stats.FraudFlagsToday)

	flags, err := env.Engine.Admin.FraudFlags(ctx, 0)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	require.Equal(t, "cheat", flags[0].UserID)
}
