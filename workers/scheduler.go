// workers/scheduler.go
package workers

import (
	"context"
	"log"
	"time"

	"dulp-economy/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Scheduler runs the engine's housekeeping jobs.
type Scheduler struct {
	sched    gocron.Scheduler
	clock    clockwork.Clock
	games    *services.GameService
	emission *services.EmissionService
	audit    *AuditExporter
}

// NewScheduler registers the jobs. audit may be nil when no bucket is configured.
func NewScheduler(clock clockwork.Clock, games *services.GameService, emission *services.EmissionService, audit *AuditExporter, sweepEvery time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{sched: sched, clock: clock, games: games, emission: emission, audit: audit}

	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(s.sweepAbandoned),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	// 23:55 UTC: create tomorrow's emission row before the first reward of the day.
	if _, err := sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(23, 55, 0))),
		gocron.NewTask(s.prepareTomorrow),
	); err != nil {
		return nil, err
	}

	if audit != nil {
		// 00:10 UTC: yesterday is closed, export it.
		if _, err := sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 10, 0))),
			gocron.NewTask(s.exportYesterday),
		); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.sched.Start()
	log.Println("✅ [SCHEDULER] started")
	<-ctx.Done()
	log.Println("🛑 [SCHEDULER] shutting down")
	return s.sched.Shutdown()
}

func (s *Scheduler) sweepAbandoned(ctx context.Context) {
	n, err := s.games.SweepAbandoned(ctx)
	if err != nil {
		log.Printf("❌ [SCHEDULER] sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 [SCHEDULER] closed %d abandoned sessions", n)
	}
}

func (s *Scheduler) prepareTomorrow(ctx context.Context) {
	tomorrow := s.clock.Now().UTC().AddDate(0, 0, 1)
	if err := s.emission.EnsureDay(ctx, tomorrow); err != nil {
		log.Printf("❌ [SCHEDULER] emission row for %s: %v", services.EmissionDate(tomorrow), err)
	}
}

func (s *Scheduler) exportYesterday(ctx context.Context) {
	now := s.clock.Now().UTC()
	if err := s.audit.ExportDay(ctx, now.AddDate(0, 0, -1), now); err != nil {
		log.Printf("❌ [AUDIT] export failed: %v", err)
	}
}
