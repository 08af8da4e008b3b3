package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

// RegisterWalletRoutes wires wallet registration. Registration is guarded by
// the idempotency middleware when Redis is available so client retries cannot
// create duplicate records.
func RegisterWalletRoutes(r fiber.Router, svc *wallet.Service, idempotency fiber.Handler, logger *slog.Logger) {
	register := func(c *fiber.Ctx) error {
		var req struct {
			WalletAddress string `json:"wallet_address"`
			Email         string `json:"email"`
			MobileNo      string `json:"mobile_no"`
			Password      string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		w, err := svc.Register(c.UserContext(), wallet.RegisterInput{
			Address:  req.WalletAddress,
			Email:    req.Email,
			MobileNo: req.MobileNo,
			Password: req.Password,
		})
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if logger != nil {
			logger.Info("wallet registered",
				slog.String("user_id", w.ID),
				slog.String("wallet_address", w.Address),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"id":             w.ID,
			"wallet_address": w.Address,
			"email":          w.Email,
			"role":           w.Role,
		})
	}

	if idempotency != nil {
		r.Post("/wallets/register", idempotency, register)
	} else {
		r.Post("/wallets/register", register)
	}
}

// RegisterProfileRoute exposes the authenticated user's own record.
func RegisterProfileRoute(r fiber.Router, repo wallet.Repository) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		w, err := repo.FindActiveByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"id":             w.ID,
			"wallet_address": w.Address,
			"email":          w.Email,
			"mobile_no":      w.MobileNo,
			"role":           w.Role,
			"created_at":     w.CreatedAt,
		})
	})
}
