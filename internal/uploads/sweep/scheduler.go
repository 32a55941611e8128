package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper removes abandoned upload sessions.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron
}

func NewScheduler(sweeper Sweeper, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		timeout:  5 * time.Minute,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Spec is the cron expression the sweep runs on.
func (s *Scheduler) Spec() string {
	return fmt.Sprintf("@every %s", s.interval)
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.Spec(), s.RunOnce); err != nil {
		return fmt.Errorf("failed to create sweep job: %w", err)
	}

	log.Printf("Upload sweep scheduler started (running %s)", s.Spec())
	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("[sweep] failed error=%v", err)
		return
	}
	log.Printf("[sweep] removed=%d took=%s", removed, time.Since(start))
}
