package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"llmgate/internal/config"
	"llmgate/internal/database"
	"llmgate/internal/models"
)

// ErrConfigMissing is returned when no ExecutionConfig row exists and no
// seed data is available. The operator must configure the system first.
var ErrConfigMissing = errors.New("system configuration not found")

// configCache is an explicit TTL cache for the ExecutionConfig row. The
// expiry check is a pure function of the clock so tests never sleep.
type configCache struct {
	value     *models.ExecutionConfig
	fetchedAt time.Time
	ttl       time.Duration
}

func (c *configCache) expired(now time.Time) bool {
	return c.value == nil || now.Sub(c.fetchedAt) >= c.ttl
}

func (c *configCache) set(cfg *models.ExecutionConfig, now time.Time) {
	c.value = cfg
	c.fetchedAt = now
}

// ConfigService persists and serves the execution-mode configuration.
// Reads are cached for a short TTL because every prompt hits GetConfig.
type ConfigService struct {
	db    *database.DB
	mu    sync.Mutex
	cache configCache
	now   func() time.Time
}

// NewConfigService creates a new config service.
func NewConfigService(db *database.DB, cacheTTL time.Duration) *ConfigService {
	return &ConfigService{
		db:    db,
		cache: configCache{ttl: cacheTTL},
		now:   time.Now,
	}
}

const configColumns = `id, active_mode, local_endpoint, cloud_endpoint, active_endpoint, system_prompt, logs_enabled, updated_by, updated_at`

func scanConfig(row *sql.Row) (*models.ExecutionConfig, error) {
	var c models.ExecutionConfig
	var updatedBy sql.NullInt64
	err := row.Scan(&c.ID, &c.ActiveMode, &c.LocalEndpoint, &c.CloudEndpoint,
		&c.ActiveEndpoint, &c.SystemPrompt, &c.LogsEnabled, &updatedBy, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if updatedBy.Valid {
		v := int(updatedBy.Int64)
		c.UpdatedBy = &v
	}
	return &c, nil
}

// GetConfig returns the current configuration. Cached reads are served
// for the cache TTL unless forceRefresh is set. When the database read
// fails a stale cached value is returned rather than an error.
func (s *ConfigService) GetConfig(ctx context.Context, forceRefresh bool) (*models.ExecutionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !forceRefresh && !s.cache.expired(now) {
		return s.cache.value, nil
	}

	cfg, err := scanConfig(s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM system_config ORDER BY id LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, ErrConfigMissing
	}
	if err != nil {
		if s.cache.value != nil {
			log.Printf("⚠️  [CONFIG] Read failed, serving stale cache: %v", err)
			return s.cache.value, nil
		}
		return nil, fmt.Errorf("failed to read system config: %w", err)
	}

	s.cache.set(cfg, now)
	return cfg, nil
}

// UpdateConfig applies a partial update to the configuration row,
// creating it with defaults when absent. The UPDATE is scoped to the
// current row id so a concurrent mode switch is never clobbered blindly.
func (s *ConfigService) UpdateConfig(ctx context.Context, update models.ConfigUpdate, userID *int) (*models.ExecutionConfig, error) {
	current, err := s.GetConfig(ctx, true)
	if err != nil && err != ErrConfigMissing {
		return nil, err
	}

	if current == nil {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO system_config (active_mode, updated_by) VALUES ('local', ?)`, nullableInt(userID)); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		current, err = s.GetConfig(ctx, true)
		if err != nil {
			return nil, err
		}
	}

	merged := *current
	if update.ActiveMode != nil {
		merged.ActiveMode = *update.ActiveMode
	}
	if update.LocalEndpoint != nil {
		merged.LocalEndpoint = *update.LocalEndpoint
	}
	if update.CloudEndpoint != nil {
		merged.CloudEndpoint = *update.CloudEndpoint
	}
	if update.ActiveEndpoint != nil {
		merged.ActiveEndpoint = *update.ActiveEndpoint
	}
	if update.SystemPrompt != nil {
		merged.SystemPrompt = *update.SystemPrompt
	}
	if update.LogsEnabled != nil {
		merged.LogsEnabled = *update.LogsEnabled
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE system_config
		SET active_mode = ?, local_endpoint = ?, cloud_endpoint = ?, active_endpoint = ?,
		    system_prompt = ?, logs_enabled = ?, updated_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, merged.ActiveMode, merged.LocalEndpoint, merged.CloudEndpoint, merged.ActiveEndpoint,
		merged.SystemPrompt, merged.LogsEnabled, nullableInt(userID), current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update system config: %w", err)
	}

	return s.GetConfig(ctx, true)
}

// SwitchMode changes the primary backend. This is the only operation
// allowed to change active_mode; it re-points active_endpoint in the
// same update so the invariant mode<->endpoint holds atomically.
func (s *ConfigService) SwitchMode(ctx context.Context, mode string, userID *int) (*models.ExecutionConfig, error) {
	if !models.ValidMode(mode) {
		return nil, fmt.Errorf("invalid execution mode: %q", mode)
	}

	current, err := s.GetConfig(ctx, true)
	if err != nil {
		return nil, err
	}

	endpoint := current.EndpointForMode(mode)
	log.Printf("🔀 [CONFIG] Switching execution mode to %s (%s)", mode, endpoint)

	return s.UpdateConfig(ctx, models.ConfigUpdate{
		ActiveMode:     &mode,
		ActiveEndpoint: &endpoint,
	}, userID)
}

// SetActiveEndpoint records the endpoint that last served a request
// after a fallback. The mode itself stays untouched: fallback is sticky
// until an operator switches modes explicitly.
func (s *ConfigService) SetActiveEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.UpdateConfig(ctx, models.ConfigUpdate{ActiveEndpoint: &endpoint}, nil)
	return err
}

// Seed creates or refreshes the configuration row from the backends
// file. Existing active_mode/active_endpoint are preserved so a seed
// re-apply never undoes a fallback or an operator switch.
func (s *ConfigService) Seed(ctx context.Context, bf *config.BackendsFile) error {
	update := models.ConfigUpdate{}
	if bf.LocalEndpoint != "" {
		update.LocalEndpoint = &bf.LocalEndpoint
	}
	if bf.CloudEndpoint != "" {
		update.CloudEndpoint = &bf.CloudEndpoint
	}
	if bf.SystemPrompt != "" {
		update.SystemPrompt = &bf.SystemPrompt
	}
	if bf.LogsEnabled != nil {
		update.LogsEnabled = bf.LogsEnabled
	}

	current, err := s.GetConfig(ctx, true)
	if err == ErrConfigMissing {
		// First boot: the file's mode decides the initial primary.
		mode := bf.Mode
		if !models.ValidMode(mode) {
			mode = models.ModeLocal
		}
		update.ActiveMode = &mode
		endpoint := bf.LocalEndpoint
		if mode == models.ModeCloud {
			endpoint = bf.CloudEndpoint
		}
		update.ActiveEndpoint = &endpoint
	} else if err != nil {
		return err
	} else if current.ActiveMode == models.ModeLocal && bf.LocalEndpoint != "" && current.ActiveEndpoint == current.LocalEndpoint {
		update.ActiveEndpoint = &bf.LocalEndpoint
	} else if current.ActiveMode == models.ModeCloud && bf.CloudEndpoint != "" && current.ActiveEndpoint == current.CloudEndpoint {
		update.ActiveEndpoint = &bf.CloudEndpoint
	}

	_, err = s.UpdateConfig(ctx, update, nil)
	return err
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
