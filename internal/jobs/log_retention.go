package jobs

import (
	"context"
	"log"
	"time"

	"llmgate/internal/services"
)

// LogRetentionJob prunes old audit records so the log table does not
// grow without bound.
type LogRetentionJob struct {
	callLogger *services.CallLogger
	retention  time.Duration
	interval   time.Duration
}

// NewLogRetentionJob creates the retention job. Records older than
// retention are deleted on each run.
func NewLogRetentionJob(callLogger *services.CallLogger, retention, interval time.Duration) *LogRetentionJob {
	return &LogRetentionJob{
		callLogger: callLogger,
		retention:  retention,
		interval:   interval,
	}
}

func (j *LogRetentionJob) Name() string { return "log_retention" }

func (j *LogRetentionJob) Interval() time.Duration { return j.interval }

func (j *LogRetentionJob) Run(ctx context.Context) error {
	deleted, err := j.callLogger.Prune(ctx, j.retention)
	if err != nil {
		return err
	}

	if deleted > 0 {
		log.Printf("🧹 [RETENTION] Pruned %d call records older than %v", deleted, j.retention)
	}
	return nil
}
