package services

import (
	"context"
	"log"
	"time"

	"llmgate/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

const (
	statusCacheKey = "backend_status"
	statusCacheTTL = 5 * time.Minute
)

// MonitorService runs the periodic health probes against both backends
// and caches the latest snapshot. Probes never run on the prompt path.
type MonitorService struct {
	configService *ConfigService
	metrics       *Metrics
	healthTimeout time.Duration
	cache         *gocache.Cache
}

// NewMonitorService creates a new monitor service.
func NewMonitorService(configService *ConfigService, metrics *Metrics, healthTimeout time.Duration) *MonitorService {
	return &MonitorService{
		configService: configService,
		metrics:       metrics,
		healthTimeout: healthTimeout,
		cache:         gocache.New(statusCacheTTL, 10*time.Minute),
	}
}

// Probe checks both configured backends and stores the snapshot.
// Intended to be driven by the job scheduler.
func (s *MonitorService) Probe(ctx context.Context) {
	cfg, err := s.configService.GetConfig(ctx, false)
	if err != nil {
		log.Printf("⚠️  [MONITOR] Skipping probe, no configuration: %v", err)
		return
	}

	statuses := []models.BackendStatus{
		s.probeOne(ctx, models.ModeLocal, cfg.LocalEndpoint),
		s.probeOne(ctx, models.ModeCloud, cfg.CloudEndpoint),
	}

	s.cache.Set(statusCacheKey, statuses, gocache.DefaultExpiration)
}

func (s *MonitorService) probeOne(ctx context.Context, mode, endpoint string) models.BackendStatus {
	status := models.BackendStatus{Mode: mode, Endpoint: endpoint, CheckedAt: time.Now()}
	if endpoint == "" {
		status.Error = "endpoint not configured"
		if s.metrics != nil {
			s.metrics.RecordBackendUp(mode, false)
		}
		return status
	}

	start := time.Now()
	client := NewBackendClient(endpoint, s.healthTimeout, s.healthTimeout)
	if err := client.HealthCheck(ctx); err != nil {
		status.Error = err.Error()
		log.Printf("⚠️  [MONITOR] %s backend down (%s): %v", mode, endpoint, err)
	} else {
		status.Healthy = true
	}
	status.LatencyMs = time.Since(start).Milliseconds()

	if s.metrics != nil {
		s.metrics.RecordBackendUp(mode, status.Healthy)
	}
	return status
}

// Status returns the latest probe snapshot, or ok=false when no probe
// has completed yet (or the snapshot expired).
func (s *MonitorService) Status() ([]models.BackendStatus, bool) {
	v, found := s.cache.Get(statusCacheKey)
	if !found {
		return nil, false
	}
	statuses, ok := v.([]models.BackendStatus)
	return statuses, ok
}
