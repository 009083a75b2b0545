package handlers

import (
	"log"
	"time"

	"llmgate/internal/services"

	"github.com/gofiber/fiber/v2"
)

// MetricsHandler exposes the daily aggregate endpoints.
type MetricsHandler struct {
	metricsService *services.MetricsService
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsService *services.MetricsService) *MetricsHandler {
	return &MetricsHandler{metricsService: metricsService}
}

// Today returns the aggregate row for the current day
// GET /api/metrics/today
func (h *MetricsHandler) Today(c *fiber.Ctx) error {
	metrics, err := h.metricsService.Today(c.Context())
	if err != nil {
		log.Printf("❌ Failed to fetch daily metrics: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch metrics",
		})
	}

	return c.JSON(metrics)
}

// Daily returns aggregate rows for a date range, newest first
// GET /api/metrics/daily?days=7 or ?from=2026-08-01&to=2026-08-30
func (h *MetricsHandler) Daily(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")

	if days := c.QueryInt("days", 0); days > 0 && from == "" {
		from = time.Now().AddDate(0, 0, -(days - 1)).Format("2006-01-02")
	}

	rows, err := h.metricsService.Range(c.Context(), from, to)
	if err != nil {
		log.Printf("❌ Failed to fetch metrics range: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch metrics",
		})
	}

	return c.JSON(fiber.Map{
		"metrics": rows,
		"count":   len(rows),
	})
}
