package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the auth engine over HTTP.
type Handler struct {
	engine *Engine
}

// NewHandler builds an auth HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type loginRequest struct {
	WalletAddress string `json:"wallet_address"`
	Password      string `json:"password"`
	Platform      string `json:"platform"`
	RoleAccess    bool   `json:"role_access"`
}

type walletResponse struct {
	ID      string `json:"id"`
	Address string `json:"wallet_address"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
}

type loginResponse struct {
	User       walletResponse `json:"user"`
	Token      string         `json:"token"`
	ExpiresAt  time.Time      `json:"expires_at"`
	RoleAccess []string       `json:"role_access,omitempty"`
}

// Login authenticates a wallet address with a password (optional for OTP-only
// records) and returns a platform-scoped token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.WalletAddress == "" {
		return fiber.NewError(http.StatusBadRequest, "wallet_address is required")
	}
	if !KnownPlatform(req.Platform) {
		return fiber.NewError(http.StatusBadRequest, "unknown platform")
	}

	result, err := h.engine.Login(c.UserContext(), LoginInput{
		Address:        req.WalletAddress,
		Password:       req.Password,
		Platform:       req.Platform,
		WithRoleAccess: req.RoleAccess,
	})
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(toLoginResponse(result))
}

type otpRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// RequestOTP generates and dispatches a one-time login code.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.WalletAddress == "" {
		return fiber.NewError(http.StatusBadRequest, "wallet_address is required")
	}

	if err := h.engine.RequestLoginOTP(c.UserContext(), req.WalletAddress); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "please check the configured channel for your code"})
}

type otpLoginRequest struct {
	WalletAddress string `json:"wallet_address"`
	Code          string `json:"code"`
	Platform      string `json:"platform"`
	RoleAccess    bool   `json:"role_access"`
}

// LoginWithOTP authenticates using a previously requested one-time code.
func (h *Handler) LoginWithOTP(c *fiber.Ctx) error {
	var req otpLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.WalletAddress == "" || req.Code == "" {
		return fiber.NewError(http.StatusBadRequest, "wallet_address and code are required")
	}
	if !KnownPlatform(req.Platform) {
		return fiber.NewError(http.StatusBadRequest, "unknown platform")
	}

	result, err := h.engine.LoginWithOTP(c.UserContext(), OTPLoginInput{
		Address:        req.WalletAddress,
		Code:           req.Code,
		Platform:       req.Platform,
		WithRoleAccess: req.RoleAccess,
	})
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(toLoginResponse(result))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword updates the authenticated user's password.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "old_password and new_password are required")
	}

	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing authenticated user")
	}

	if err := h.engine.ChangePassword(c.UserContext(), userID, req.OldPassword, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "password changed successfully"})
}

type forgotPasswordRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// ForgotPassword issues a reset token and reports per-channel dispatch results.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.WalletAddress == "" {
		return fiber.NewError(http.StatusBadRequest, "wallet_address is required")
	}

	result, err := h.engine.RequestPasswordReset(c.UserContext(), req.WalletAddress)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"result_of_email": result.Email,
		"result_of_sms":   result.SMS,
	})
}

type resetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword consumes a reset token and stores the new password.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Code == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "code and new_password are required")
	}

	if err := h.engine.ResetPassword(c.UserContext(), req.Code, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "password reset successfully"})
}

func toLoginResponse(result *LoginResult) loginResponse {
	return loginResponse{
		User: walletResponse{
			ID:      result.Wallet.ID,
			Address: result.Wallet.Address,
			Email:   result.Wallet.Email,
			Role:    result.Wallet.Role,
		},
		Token:      result.Token,
		ExpiresAt:  result.ExpiresAt,
		RoleAccess: result.RoleAccess,
	}
}

// ErrorHandler renders request errors as a JSON envelope. Plugged into the
// Fiber app config so rejections and validation failures share one shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}

// httpError maps engine rejections onto HTTP status codes. Internal faults
// surface as a generic 500 without the underlying message.
func httpError(err error) error {
	var ae *Error
	if !errors.As(err, &ae) {
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}
	return fiber.NewError(statusForKind(ae.Kind), ae.Message)
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindLocked:
		return http.StatusTooManyRequests
	case KindInvalidCredential:
		return http.StatusUnauthorized
	case KindUnauthorized, KindNoRoleAssigned:
		return http.StatusForbidden
	case KindDispatchFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
