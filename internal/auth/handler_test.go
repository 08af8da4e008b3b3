package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

func newTestApp(env *testEnv) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h := NewHandler(env.engine)

	app.Post("/auth/login", h.Login)
	app.Post("/auth/otp", h.RequestOTP)
	app.Post("/auth/otp/login", h.LoginWithOTP)
	app.Post("/auth/forgot-password", h.ForgotPassword)
	app.Put("/auth/reset-password", h.ResetPassword)
	app.Post("/auth/change-password", func(c *fiber.Ctx) error {
		// Stand-in for the JWT middleware.
		c.Locals("user_id", c.Get("X-Test-User"))
		return h.ChangePassword(c)
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func TestHandlerLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, nil)
	app := newTestApp(env)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"wallet_address": testAddress,
		"password":       testPassword,
		"platform":       PlatformClient,
	}, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, seeded.ID, user["id"])
	assert.Equal(t, seeded.Address, user["wallet_address"])
	assert.NotContains(t, user, "password_hash")
}

func TestHandlerLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, nil)
	app := newTestApp(env)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"wallet_address": testAddress,
		"password":       "nope",
		"platform":       PlatformClient,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	app := newTestApp(env)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"wallet_address": "0xunknown",
		"password":       testPassword,
		"platform":       PlatformClient,
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerLoginLocked(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, func(w *wallet.Wallet) {
		w.LoginRetryCount = 5
	})
	app := newTestApp(env)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"wallet_address": testAddress,
		"password":       testPassword,
		"platform":       PlatformClient,
	}, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body["message"], "too many failed login attempts")
}

func TestHandlerLoginUnknownPlatform(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, nil)
	app := newTestApp(env)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"wallet_address": testAddress,
		"password":       testPassword,
		"platform":       "kiosk",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerLoginPlatformForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, nil) // RoleUser
	app := newTestApp(env)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"wallet_address": testAddress,
		"password":       testPassword,
		"platform":       PlatformAdmin,
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandlerOTPRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, nil)
	app := newTestApp(env)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/otp", fiber.Map{
		"wallet_address": testAddress,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	code := env.fetch(t, seeded.ID).LoginOTP.Code

	resp, body := doJSON(t, app, http.MethodPost, "/auth/otp/login", fiber.Map{
		"wallet_address": testAddress,
		"code":           code,
		"platform":       PlatformClient,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestHandlerForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, nil)
	app := newTestApp(env)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/forgot-password", fiber.Map{
		"wallet_address": testAddress,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["result_of_email"])
	assert.Equal(t, true, body["result_of_sms"])

	code := env.fetch(t, seeded.ID).ResetToken.Code

	resp, _ = doJSON(t, app, http.MethodPut, "/auth/reset-password", fiber.Map{
		"code":         code,
		"new_password": "fresh-new-secret",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"wallet_address": testAddress,
		"password":       "fresh-new-secret",
		"platform":       PlatformClient,
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerChangePassword(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, nil)
	app := newTestApp(env)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/change-password", fiber.Map{
		"old_password": testPassword,
		"new_password": "a-brand-new-secret",
	}, map[string]string{"X-Test-User": seeded.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/change-password", fiber.Map{
		"old_password": testPassword,
		"new_password": "another-secret",
	}, map[string]string{"X-Test-User": seeded.ID})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "old password no longer valid")
}

func TestHandlerChangePasswordMissingUser(t *testing.T) {
	env := newTestEnv(t)
	app := newTestApp(env)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/change-password", fiber.Map{
		"old_password": testPassword,
		"new_password": "a-brand-new-secret",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerValidation(t *testing.T) {
	env := newTestEnv(t)
	app := newTestApp(env)

	cases := []struct {
		name   string
		method string
		path   string
		body   fiber.Map
	}{
		{"login without address", http.MethodPost, "/auth/login", fiber.Map{"platform": PlatformClient}},
		{"otp without address", http.MethodPost, "/auth/otp", fiber.Map{}},
		{"otp login without code", http.MethodPost, "/auth/otp/login", fiber.Map{"wallet_address": testAddress, "platform": PlatformClient}},
		{"forgot without address", http.MethodPost, "/auth/forgot-password", fiber.Map{}},
		{"reset without code", http.MethodPut, "/auth/reset-password", fiber.Map{"new_password": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, tc.method, tc.path, tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
