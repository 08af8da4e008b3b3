package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omerfarukdemiral/wallet-auth/internal/logging"
	"github.com/omerfarukdemiral/wallet-auth/internal/notification"
	"github.com/omerfarukdemiral/wallet-auth/internal/token"
	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

const (
	testPassword = "correct-horse-battery"
	testAddress  = "0xdeadbeefcafe"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	messages []notification.Message
	// fail lists channels whose sends should error.
	fail map[notification.Channel]bool
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	if n.fail[m.Channel] {
		return errors.New("delivery unavailable")
	}
	n.messages = append(n.messages, m)
	return nil
}

type testEnv struct {
	engine   *Engine
	repo     wallet.Repository
	tokens   *token.MemoryStore
	notifier *recordingNotifier
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock()
	repo := wallet.NewMemoryRepository()
	tokens := token.NewMemoryStore()
	notifier := &recordingNotifier{fail: map[notification.Channel]bool{}}
	issuer := token.NewIssuer(map[string]string{
		PlatformAdmin:  "admin-secret",
		PlatformClient: "client-secret",
	}, time.Hour).WithClock(clock.Now)

	policy := Policy{
		MaxLoginRetries: 5,
		CooldownWindow:  15 * time.Minute,
		OTPTTL:          6 * time.Hour,
		ResetTokenTTL:   20 * time.Minute,
		OTPChannel:      notification.ChannelEmail,
		ResetChannels:   []notification.Channel{notification.ChannelEmail, notification.ChannelSMS},
	}
	engine := NewEngine(repo, issuer, tokens, notifier, policy, logging.Discard()).WithClock(clock.Now)

	return &testEnv{engine: engine, repo: repo, tokens: tokens, notifier: notifier, clock: clock}
}

func (env *testEnv) seed(t *testing.T, mutate func(*wallet.Wallet)) wallet.Wallet {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	w := wallet.Wallet{
		ID:           uuid.New().String(),
		Address:      testAddress,
		Email:        "holder@example.com",
		MobileNo:     "+905551112233",
		PasswordHash: string(hash),
		Role:         wallet.RoleUser,
		IsActive:     true,
		CreatedAt:    env.clock.Now(),
		UpdatedAt:    env.clock.Now(),
	}
	if mutate != nil {
		mutate(&w)
	}
	require.NoError(t, env.repo.Create(context.Background(), w))
	return w
}

func (env *testEnv) fetch(t *testing.T, id string) wallet.Wallet {
	t.Helper()
	w, err := env.repo.FindActiveByID(context.Background(), id)
	require.NoError(t, err)
	return w
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, func(w *wallet.Wallet) {
		w.LoginRetryCount = 3
	})

	result, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: testPassword,
		Platform: PlatformClient,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, env.clock.Now().Add(time.Hour), result.ExpiresAt)
	assert.Equal(t, seeded.ID, result.Wallet.ID)
	assert.Empty(t, result.Wallet.PasswordHash, "credential material must be stripped")

	stored := env.fetch(t, seeded.ID)
	assert.Zero(t, stored.LoginRetryCount, "successful login clears the retry counter")
	assert.Nil(t, stored.LoginCooldownUntil)

	records := env.tokens.All()
	require.Len(t, records, 1, "exactly one issued-token audit record")
	assert.Equal(t, seeded.ID, records[0].UserID)
	assert.Equal(t, result.Token, records[0].Token)
	assert.Equal(t, result.ExpiresAt, records[0].ExpiresAt)
}

func TestLoginWrongPasswordIncrementsRetry(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, nil)

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: "nope",
		Platform: PlatformClient,
	})
	require.Error(t, err)
	assert.Equal(t, KindInvalidCredential, KindOf(err))

	stored := env.fetch(t, seeded.ID)
	assert.Equal(t, 1, stored.LoginRetryCount)
	assert.Nil(t, stored.LoginCooldownUntil)
	assert.Empty(t, env.tokens.All(), "no token issued on failure")
}

func TestLoginFourthRetryStaysOpen(t *testing.T) {
	// retryCount 4 with limit 5: one more failure lands on the limit but
	// the lockout only triggers on the next attempt.
	env := newTestEnv(t)
	seeded := env.seed(t, func(w *wallet.Wallet) {
		w.LoginRetryCount = 4
	})

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: "nope",
		Platform: PlatformClient,
	})
	assert.Equal(t, KindInvalidCredential, KindOf(err))

	stored := env.fetch(t, seeded.ID)
	assert.Equal(t, 5, stored.LoginRetryCount)
	assert.Nil(t, stored.LoginCooldownUntil, "still open, no cooldown yet")
}

func TestLoginAtLimitStartsCooldown(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, func(w *wallet.Wallet) {
		w.LoginRetryCount = 5
	})

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: testPassword,
		Platform: PlatformClient,
	})
	require.Error(t, err)
	assert.Equal(t, KindLocked, KindOf(err))

	var rejection *Error
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, 15*time.Minute, rejection.RetryAfter)

	stored := env.fetch(t, seeded.ID)
	assert.Equal(t, 6, stored.LoginRetryCount)
	require.NotNil(t, stored.LoginCooldownUntil)
	assert.Equal(t, env.clock.Now().Add(15*time.Minute), *stored.LoginCooldownUntil)
	assert.Empty(t, env.tokens.All(), "correct password does not bypass the lock")
}

func TestLoginWhileLockedTopsUpCooldown(t *testing.T) {
	env := newTestEnv(t)
	until := newFakeClock().Now().Add(5 * time.Minute)
	seeded := env.seed(t, func(w *wallet.Wallet) {
		w.LoginRetryCount = 6
		w.LoginCooldownUntil = &until
	})

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: testPassword,
		Platform: PlatformClient,
	})
	assert.Equal(t, KindLocked, KindOf(err))

	stored := env.fetch(t, seeded.ID)
	assert.Equal(t, 7, stored.LoginRetryCount, "attempts while locked keep counting")
	require.NotNil(t, stored.LoginCooldownUntil)
	assert.Equal(t, env.clock.Now().Add(15*time.Minute), *stored.LoginCooldownUntil,
		"cooldown is topped up on every attempt during lockout")
}

func TestLoginAfterCooldownElapsedRecovers(t *testing.T) {
	env := newTestEnv(t)
	until := newFakeClock().Now().Add(15 * time.Minute)
	seeded := env.seed(t, func(w *wallet.Wallet) {
		w.LoginRetryCount = 8
		w.LoginCooldownUntil = &until
	})

	env.clock.Advance(16 * time.Minute)

	result, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: testPassword,
		Platform: PlatformClient,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	stored := env.fetch(t, seeded.ID)
	assert.Zero(t, stored.LoginRetryCount)
	assert.Nil(t, stored.LoginCooldownUntil)
}

func TestLoginAfterCooldownElapsedRechecksPassword(t *testing.T) {
	env := newTestEnv(t)
	until := newFakeClock().Now().Add(15 * time.Minute)
	seeded := env.seed(t, func(w *wallet.Wallet) {
		w.LoginRetryCount = 8
		w.LoginCooldownUntil = &until
	})

	env.clock.Advance(16 * time.Minute)

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: "nope",
		Platform: PlatformClient,
	})
	assert.Equal(t, KindInvalidCredential, KindOf(err))

	stored := env.fetch(t, seeded.ID)
	assert.Equal(t, 1, stored.LoginRetryCount,
		"counter resets to zero on recovery before the failed check lands")
	assert.Nil(t, stored.LoginCooldownUntil)
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  "0xunknown",
		Password: testPassword,
		Platform: PlatformClient,
	})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestLoginInactiveRecordInvisible(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, func(w *wallet.Wallet) {
		w.IsActive = false
	})

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: testPassword,
		Platform: PlatformClient,
	})
	assert.Equal(t, KindNotFound, KindOf(err), "inactive records behave as if absent")
}

func TestLoginPlatformNotPermitted(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, nil) // RoleUser may not use the admin platform

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: testPassword,
		Platform: PlatformAdmin,
	})
	assert.Equal(t, KindUnauthorized, KindOf(err))

	stored := env.fetch(t, seeded.ID)
	assert.Zero(t, stored.LoginRetryCount, "platform rejection never touches the retry counter")
	assert.Empty(t, env.tokens.All())
}

func TestLoginNoRoleAssigned(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, func(w *wallet.Wallet) {
		w.Role = ""
	})

	_, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Password: testPassword,
		Platform: PlatformClient,
	})
	assert.Equal(t, KindNoRoleAssigned, KindOf(err))
}

func TestLoginWithoutPasswordSkipsCredentialCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, func(w *wallet.Wallet) {
		w.PasswordHash = "" // OTP-only record
	})

	result, err := env.engine.Login(context.Background(), LoginInput{
		Address:  testAddress,
		Platform: PlatformClient,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLoginRoleAccessSummary(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, func(w *wallet.Wallet) {
		w.Role = wallet.RoleAdmin
	})

	result, err := env.engine.Login(context.Background(), LoginInput{
		Address:        testAddress,
		Password:       testPassword,
		Platform:       PlatformAdmin,
		WithRoleAccess: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{PlatformAdmin, PlatformClient}, result.RoleAccess)
}
