package handlers

import (
	"log"
	"strings"

	"llmgate/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles operator login.
type AuthHandler struct {
	jwtAuth      *auth.LocalJWTAuth
	username     string
	passwordHash string
}

// NewAuthHandler creates a new auth handler for the configured operator
// credential.
func NewAuthHandler(jwtAuth *auth.LocalJWTAuth, username, passwordHash string) *AuthHandler {
	return &AuthHandler{
		jwtAuth:      jwtAuth,
		username:     username,
		passwordHash: passwordHash,
	}
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the operator and issues a JWT
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.jwtAuth == nil || h.passwordHash == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Authentication is not configured",
		})
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username and password are required",
		})
	}

	if req.Username != h.username {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	ok, err := auth.VerifyPassword(h.passwordHash, req.Password)
	if err != nil || !ok {
		log.Printf("⚠️  Failed login attempt for %s from %s", req.Username, c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := h.jwtAuth.GenerateToken(req.Username, "admin")
	if err != nil {
		log.Printf("❌ Failed to generate token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	log.Printf("✅ Operator logged in: %s", req.Username)
	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.jwtAuth.AccessTokenExpiry.Seconds()),
	})
}
