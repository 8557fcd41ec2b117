package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"dulp-economy/models"

	"github.com/stretchr/testify/require"
)

func TestCompleteTask_NoReferrer(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "follow", 20)

	res, err := env.Engine.Tasks.CompleteTask(context.Background(), "u1", "follow", "")
	require.NoError(t, err)
	require.Equal(t, int64(20), res.Reward)
	require.Equal(t, int64(20), res.NewBalance)
	require.Equal(t, int64(10), res.XPGained)
	require.Equal(t, 1, res.CurrentLevel)
	require.False(t, res.Replayed)

	require.Equal(t, int64(20), env.balance(t, "u1"))
	require.Equal(t, int64(10), env.xp(t, "u1").XP)
	require.Equal(t, int64(20), env.emitted(t))

	txs := env.transactions(t, "u1")
	require.Len(t, txs, 1)
	require.Equal(t, models.TxEarn, txs[0].Type)
	require.Equal(t, int64(20), txs[0].Amount)
	require.Equal(t, "Completed task: Task follow", txs[0].Description)
	env.requireLedgerConsistent(t)
}

func TestCompleteTask_PaysReferrerCommission(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "ref", withCode("CODE123"))
	env.seedProfile(t, "u1", referredBy("CODE123"), displayName("Alice"))
	env.seedTask(t, "follow", 20)

	res, err := env.Engine.Tasks.CompleteTask(context.Background(), "u1", "follow", "")
	require.NoError(t, err)
	require.Equal(t, int64(20), res.NewBalance)

	require.Equal(t, int64(2), env.balance(t, "ref"))
	refTxs := env.transactions(t, "ref")
	require.Len(t, refTxs, 1)
	require.Equal(t, models.TxReferral, refTxs[0].Type)
	require.Equal(t, int64(2), refTxs[0].Amount)
	require.Equal(t, "Referral commission from Alice", refTxs[0].Description)

	// the referrer earns no XP from someone else's task
	require.Equal(t, int64(0), env.xp(t, "ref").XP)
	// only the reward counts against the cap
	require.Equal(t, int64(20), env.emitted(t))
	env.requireLedgerConsistent(t)
}

func TestCompleteTask_EmissionCap(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "big", 20)
	env.seedTask(t, "small", 10)
	env.setEmitted(t, 99990)

	_, err := env.Engine.Tasks.CompleteTask(context.Background(), "u1", "big", "")
	requireKind(t, err, KindRateLimited)
	require.Equal(t, int64(0), env.balance(t, "u1"))
	require.Equal(t, int64(0), env.xp(t, "u1").XP)
	require.Empty(t, env.transactions(t, "u1"))

	var completions int64
	require.NoError(t, env.DB.Model(&models.UserTaskCompletion{}).Count(&completions).Error)
	require.Zero(t, completions)

	res, err := env.Engine.Tasks.CompleteTask(context.Background(), "u1", "small", "")
	require.NoError(t, err)
	require.Equal(t, int64(10), res.NewBalance)
	require.Equal(t, int64(100000), env.emitted(t))
}

func TestCompleteTask_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "follow", 20)
	env.seedTask(t, "retired", 20)
	require.NoError(t, env.DB.Model(&models.Task{}).Where("id = ?", "retired").Update("is_active", false).Error)

	tests := []struct {
		name    string
		userID  string
		taskID  string
		kind    ErrorKind
		message string
	}{
		{name: "missing task id", userID: "u1", taskID: "  ", kind: KindValidation, message: "Task ID required"},
		{name: "unknown task", userID: "u1", taskID: "nope", kind: KindNotFound, message: "Task not found or inactive"},
		{name: "inactive task", userID: "u1", taskID: "retired", kind: KindNotFound, message: "Task not found or inactive"},
		{name: "no profile", userID: "ghost", taskID: "follow", kind: KindNotFound, message: "Profile not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Engine.Tasks.CompleteTask(context.Background(), tt.userID, tt.taskID, "")
			ee := requireKind(t, err, tt.kind)
			require.Equal(t, tt.message, ee.Message)
		})
	}
	require.Equal(t, int64(0), env.emitted(t))
}

func TestCompleteTask_DailyLimitResetsAtMidnight(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "daily", 5, func(task *models.Task) { task.MaxCompletionsPerDay = 2 })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := env.Engine.Tasks.CompleteTask(ctx, "u1", "daily", "")
		require.NoError(t, err)
	}
	_, err := env.Engine.Tasks.CompleteTask(ctx, "u1", "daily", "")
	ee := requireKind(t, err, KindValidation)
	require.Equal(t, "Daily limit reached for this task", ee.Message)
	require.Equal(t, int64(10), env.balance(t, "u1"))

	env.Clock.Advance(12 * time.Hour) // 00:00 UTC next day
	_, err = env.Engine.Tasks.CompleteTask(ctx, "u1", "daily", "")
	require.NoError(t, err)
	require.Equal(t, int64(15), env.balance(t, "u1"))
}

func TestCompleteTask_Cooldown(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "watch", 5, func(task *models.Task) {
		task.MaxCompletionsPerDay = 10
		task.CooldownMinutes = 30
	})
	ctx := context.Background()

	_, err := env.Engine.Tasks.CompleteTask(ctx, "u1", "watch", "")
	require.NoError(t, err)

	env.Clock.Advance(10 * time.Minute)
	_, err = env.Engine.Tasks.CompleteTask(ctx, "u1", "watch", "")
	ee := requireKind(t, err, KindValidation)
	require.Equal(t, "Task in cooldown, 20 minutes remaining", ee.Message)

	env.Clock.Advance(20 * time.Minute)
	_, err = env.Engine.Tasks.CompleteTask(ctx, "u1", "watch", "")
	require.NoError(t, err)
	require.Equal(t, int64(10), env.balance(t, "u1"))
}

func TestCompleteTask_IdempotencyKeyReplays(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "follow", 20)
	env.seedTask(t, "share", 20)
	ctx := context.Background()

	first, err := env.Engine.Tasks.CompleteTask(ctx, "u1", "follow", "key-1")
	require.NoError(t, err)

	again, err := env.Engine.Tasks.CompleteTask(ctx, "u1", "follow", "key-1")
	require.NoError(t, err)
	require.True(t, again.Replayed)
	require.Equal(t, first.Reward, again.Reward)
	require.Equal(t, first.NewBalance, again.NewBalance)
	require.Equal(t, first.XPGained, again.XPGained)

	require.Equal(t, int64(20), env.balance(t, "u1"))
	require.Len(t, env.transactions(t, "u1"), 1)
	require.Equal(t, int64(20), env.emitted(t))

	_, err = env.Engine.Tasks.CompleteTask(ctx, "u1", "share", "key-1")
	requireKind(t, err, KindConflict)
}

func TestCompleteTask_CheckinAdvancesStreak(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "checkin", 0, func(task *models.Task) { task.Type = models.TaskTypeCheckin })

	res, err := env.Engine.Tasks.CompleteTask(context.Background(), "u1", "checkin", "")
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Reward)
	require.Equal(t, int64(10), res.XPGained)

	var prof models.Profile
	require.NoError(t, env.DB.Where("user_id = ?", "u1").First(&prof).Error)
	require.Equal(t, 1, prof.StreakCount)
	require.NotNil(t, prof.LastStreakAt)
	require.Empty(t, env.transactions(t, "u1"))
	require.Equal(t, int64(0), env.emitted(t))
}

func TestCompleteTask_ConcurrentClaimsRespectDailyLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedTask(t, "follow", 20)

	const workers = 5
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ok  int
		bad int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Engine.Tasks.CompleteTask(context.Background(), "u1", "follow", "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if KindOf(err) == KindValidation {
				bad++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, bad)
	require.Equal(t, int64(20), env.balance(t, "u1"))
	require.Equal(t, int64(20), env.emitted(t))
	env.requireLedgerConsistent(t)
}

func TestTaskService_ListActive(t *testing.T) {
	env := newTestEnv(t)
	env.seedTask(t, "a", 1)
	env.seedTask(t, "b", 1)
	require.NoError(t, env.DB.Model(&models.Task{}).Where("id = ?", "b").Update("is_active", false).Error)

	tasks, err := env.Engine.Tasks.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "a", tasks[0].ID)
}

func TestStartOfLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC) // 22:00 on the 16th locally
	require.Equal(t, time.Date(2026, 10, 16, 5, 0, 0, 0, time.UTC), startOfLocalDay(now, loc))
	require.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), startOfLocalDay(now, nil))
}
