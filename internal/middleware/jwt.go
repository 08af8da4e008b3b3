package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/omerfarukdemiral/wallet-auth/internal/token"
	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

// JWTAuth validates bearer tokens issued by the token issuer and verifies the
// wallet record is still active and not deleted.
func JWTAuth(issuer *token.Issuer, repo wallet.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := issuer.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		w, err := repo.FindActiveByID(c.UserContext(), claims.UserID)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "account no longer active")
		}

		c.Locals("user_id", w.ID)
		c.Locals("wallet_address", w.Address)
		c.Locals("platform", claims.Platform)
		return c.Next()
	}
}
