package jobs

import (
	"context"
	"time"

	"llmgate/internal/services"
)

// BackendProbeJob periodically health-checks both backends so the
// status endpoint and gauges stay fresh without waiting for traffic.
type BackendProbeJob struct {
	monitor  *services.MonitorService
	interval time.Duration
}

// NewBackendProbeJob creates the probe job.
func NewBackendProbeJob(monitor *services.MonitorService, interval time.Duration) *BackendProbeJob {
	return &BackendProbeJob{monitor: monitor, interval: interval}
}

func (j *BackendProbeJob) Name() string { return "backend_probe" }

func (j *BackendProbeJob) Interval() time.Duration { return j.interval }

func (j *BackendProbeJob) Run(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	j.monitor.Probe(probeCtx)
	return nil
}
