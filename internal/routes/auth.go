package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/omerfarukdemiral/wallet-auth/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
		group.Post("/otp/login", rateLimiter, h.LoginWithOTP)
	} else {
		group.Post("/login", h.Login)
		group.Post("/otp/login", h.LoginWithOTP)
	}
	group.Post("/otp", h.RequestOTP)
	group.Post("/forgot-password", h.ForgotPassword)
	group.Put("/reset-password", h.ResetPassword)
}
