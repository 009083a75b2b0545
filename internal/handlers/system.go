package handlers

import (
	"log"

	"llmgate/internal/models"
	"llmgate/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SystemHandler exposes the execution mode and backend configuration
// endpoints.
type SystemHandler struct {
	configService  *services.ConfigService
	llmService     *services.LLMService
	monitorService *services.MonitorService
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(configService *services.ConfigService, llmService *services.LLMService, monitorService *services.MonitorService) *SystemHandler {
	return &SystemHandler{
		configService:  configService,
		llmService:     llmService,
		monitorService: monitorService,
	}
}

// GetConfig returns the current execution configuration
// GET /api/system/config
func (h *SystemHandler) GetConfig(c *fiber.Ctx) error {
	forceRefresh := c.QueryBool("refresh", false)

	cfg, err := h.configService.GetConfig(c.Context(), forceRefresh)
	if err != nil {
		log.Printf("❌ Failed to load config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load configuration",
		})
	}

	return c.JSON(cfg)
}

// UpdateConfig applies a partial configuration change
// PATCH /api/system/config
func (h *SystemHandler) UpdateConfig(c *fiber.Ctx) error {
	var update models.ConfigUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if update.ActiveMode != nil && !models.ValidMode(*update.ActiveMode) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mode must be 'local' or 'cloud'",
		})
	}

	cfg, err := h.configService.UpdateConfig(c.Context(), update, nil)
	if err != nil {
		log.Printf("❌ Failed to update config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update configuration",
		})
	}

	return c.JSON(cfg)
}

// SwitchModeRequest is the request body for an explicit mode switch
type SwitchModeRequest struct {
	Mode   string `json:"mode"`
	UserID *int   `json:"userId"`
}

// SwitchMode switches the execution mode and resets the active endpoint
// POST /api/system/mode/switch
func (h *SystemHandler) SwitchMode(c *fiber.Ctx) error {
	var req SwitchModeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if !models.ValidMode(req.Mode) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mode must be 'local' or 'cloud'",
		})
	}

	cfg, err := h.configService.SwitchMode(c.Context(), req.Mode, req.UserID)
	if err != nil {
		log.Printf("❌ Failed to switch mode: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to switch execution mode",
		})
	}

	log.Printf("🔀 Execution mode switched to %s (%s)", cfg.ActiveMode, cfg.ActiveEndpoint)
	return c.JSON(fiber.Map{
		"success":    true,
		"mode":       cfg.ActiveMode,
		"active_url": cfg.PrimaryEndpoint(),
	})
}

// TestConnectionRequest is the request body for a backend probe
type TestConnectionRequest struct {
	Mode string `json:"mode"`
}

// TestConnection probes a single backend without sending a prompt
// POST /api/system/test-connection
func (h *SystemHandler) TestConnection(c *fiber.Ctx) error {
	var req TestConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if !models.ValidMode(req.Mode) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mode must be 'local' or 'cloud'",
		})
	}

	status, err := h.llmService.TestConnection(c.Context(), req.Mode)
	if err != nil {
		log.Printf("❌ Connection test failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to test connection",
		})
	}

	return c.JSON(status)
}

// Status returns the last known health of both backends
// GET /api/system/status
func (h *SystemHandler) Status(c *fiber.Ctx) error {
	statuses, ok := h.monitorService.Status()
	if !ok {
		// No cached probe yet, run one now.
		h.monitorService.Probe(c.Context())
		statuses, _ = h.monitorService.Status()
	}

	return c.JSON(fiber.Map{
		"backends": statuses,
	})
}
