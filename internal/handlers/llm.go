package handlers

import (
	"errors"
	"log"
	"strconv"

	"llmgate/internal/models"
	"llmgate/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LLMHandler exposes the prompt routing and call log endpoints.
type LLMHandler struct {
	llmService *services.LLMService
	callLogger *services.CallLogger
}

// NewLLMHandler creates a new LLM handler
func NewLLMHandler(llmService *services.LLMService, callLogger *services.CallLogger) *LLMHandler {
	return &LLMHandler{
		llmService: llmService,
		callLogger: callLogger,
	}
}

// PromptRequest is the request body for prompt routing
type PromptRequest struct {
	Prompt       string  `json:"prompt"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"maxTokens,omitempty"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	UserID       *int    `json:"userId,omitempty"`
}

// Prompt routes a prompt to the active backend with automatic fallback
// POST /api/llm/prompt
func (h *LLMHandler) Prompt(c *fiber.Ctx) error {
	var req PromptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	opts := models.PromptOptions{
		RequesterID:  req.UserID,
		Model:        req.Model,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		SystemPrompt: req.SystemPrompt,
	}

	result, err := h.llmService.SendPrompt(c.Context(), req.Prompt, opts)
	if err != nil {
		if errors.Is(err, services.ErrEmptyPrompt) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Prompt is required",
			})
		}

		var allErr *services.AllBackendsError
		if errors.As(err, &allErr) {
			// Both backends failed. The result still carries timing and
			// source so the caller can show what was attempted.
			return c.Status(fiber.StatusBadGateway).JSON(result)
		}

		if errors.Is(err, services.ErrConfigMissing) {
			// No backend was attempted, so there is no source to report.
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":  "System configuration not found",
				"source": "",
			})
		}

		log.Printf("❌ Prompt routing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Failed to process prompt",
			"source": "",
		})
	}

	return c.JSON(result)
}

// Logs returns the most recent call records, newest first
// GET /api/llm/logs?limit=50
func (h *LLMHandler) Logs(c *fiber.Ctx) error {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.callLogger.Recent(c.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to fetch call logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  records,
		"count": len(records),
	})
}
