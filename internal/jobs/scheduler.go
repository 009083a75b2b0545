package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job is a named unit of background work.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on their intervals.
type Scheduler struct {
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// NewScheduler creates an empty scheduler.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{scheduler: s}, nil
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) error {
	ctx := context.Background()

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(job.Interval()),
		gocron.NewTask(func() {
			start := time.Now()
			if err := job.Run(ctx); err != nil {
				log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", job.Name(), err)
				return
			}
			log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", job.Name(), time.Since(start))
		}),
		gocron.WithName(job.Name()),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}

	log.Printf("⏰ [SCHEDULER] Registered job '%s' (every %v)", job.Name(), job.Interval())
	return nil
}

// Start begins running all registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Printf("🚀 [SCHEDULER] Job scheduler started")
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️  [SCHEDULER] Error during shutdown: %v", err)
		return
	}
	log.Println("✅ [SCHEDULER] Job scheduler stopped")
}
