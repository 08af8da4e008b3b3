package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/omerfarukdemiral/wallet-auth/internal/config"
	"github.com/omerfarukdemiral/wallet-auth/internal/notification"
	"github.com/omerfarukdemiral/wallet-auth/internal/token"
	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

// Policy holds the throttling and credential-lifecycle knobs of the engine.
type Policy struct {
	MaxLoginRetries int
	CooldownWindow  time.Duration
	OTPTTL          time.Duration
	ResetTokenTTL   time.Duration
	OTPChannel      notification.Channel
	ResetChannels   []notification.Channel
}

// PolicyFromConfig maps runtime configuration onto an engine policy.
func PolicyFromConfig(cfg config.Config) Policy {
	p := Policy{
		MaxLoginRetries: cfg.MaxLoginRetries,
		CooldownWindow:  cfg.LoginCooldown,
		OTPTTL:          cfg.OTPTTL,
		ResetTokenTTL:   cfg.ResetTokenTTL,
		OTPChannel:      notification.Channel(cfg.OTPChannel),
	}
	for _, ch := range cfg.ResetChannels {
		p.ResetChannels = append(p.ResetChannels, notification.Channel(ch))
	}
	return p
}

// Engine orchestrates login attempts, OTP issuance/verification and password
// flows against the wallet store, applying throttling and expiry rules. It
// holds no per-record state: the store is the single source of truth and the
// sole synchronization point, so concurrent attempts against one record may
// race past the throttle check (accepted weak-consistency tradeoff).
type Engine struct {
	wallets  wallet.Repository
	issuer   *token.Issuer
	tokens   token.Store
	notifier notification.Notifier
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine builds the auth engine.
func NewEngine(wallets wallet.Repository, issuer *token.Issuer, tokens token.Store,
	notifier notification.Notifier, policy Policy, logger *slog.Logger) *Engine {
	return &Engine{
		wallets:  wallets,
		issuer:   issuer,
		tokens:   tokens,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the engine clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// LoginInput carries a password login attempt.
type LoginInput struct {
	Address string
	// Password may be empty for OTP-only records, in which case the
	// credential check is skipped entirely.
	Password       string
	Platform       string
	WithRoleAccess bool
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Wallet    wallet.Wallet
	Token     string
	ExpiresAt time.Time
	// RoleAccess lists the platforms the record's role may authenticate
	// through, populated when requested.
	RoleAccess []string
}

// Login runs the throttle state machine and, when the record is open, verifies
// the password and issues a platform-scoped token.
func (e *Engine) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	w, err := e.findByAddress(ctx, input.Address)
	if err != nil {
		return nil, err
	}

	if err := e.applyThrottle(ctx, &w); err != nil {
		return nil, err
	}

	if input.Password != "" {
		if w.PasswordHash == "" ||
			bcrypt.CompareHashAndPassword([]byte(w.PasswordHash), []byte(input.Password)) != nil {
			if err := e.wallets.UpdateThrottle(ctx, w.ID, w.LoginRetryCount+1, w.LoginCooldownUntil); err != nil {
				return nil, e.internal("record failed attempt", err)
			}
			return nil, invalidCredential("incorrect password")
		}
	}

	return e.completeLogin(ctx, w, input.Platform, input.WithRoleAccess)
}

// applyThrottle evaluates the lockout state of the record and persists any
// transition. It returns a KindLocked rejection while the record is locked and
// mutates w in place when an elapsed cooldown resets the counters.
func (e *Engine) applyThrottle(ctx context.Context, w *wallet.Wallet) error {
	if w.LoginRetryCount < e.policy.MaxLoginRetries {
		return nil
	}

	now := e.now()

	if w.LoginCooldownUntil != nil {
		if w.LoginCooldownUntil.After(now) {
			// Still locked: top up the cooldown window and keep
			// counting attempts.
			until := now.Add(e.policy.CooldownWindow)
			if err := e.wallets.UpdateThrottle(ctx, w.ID, w.LoginRetryCount+1, &until); err != nil {
				return e.internal("extend cooldown", err)
			}
			return locked(until.Sub(now))
		}

		// Cooldown elapsed: recover to open before re-evaluating
		// credentials.
		if err := e.wallets.UpdateThrottle(ctx, w.ID, 0, nil); err != nil {
			return e.internal("reset throttle", err)
		}
		w.LoginRetryCount = 0
		w.LoginCooldownUntil = nil
		return nil
	}

	// Retry limit crossed with no cooldown yet: start the window.
	until := now.Add(e.policy.CooldownWindow)
	if err := e.wallets.UpdateThrottle(ctx, w.ID, w.LoginRetryCount+1, &until); err != nil {
		return e.internal("start cooldown", err)
	}
	return locked(e.policy.CooldownWindow)
}

// completeLogin gates the platform, issues the token, clears the throttle
// counters and appends the audit record.
func (e *Engine) completeLogin(ctx context.Context, w wallet.Wallet, platform string, withRoleAccess bool) (*LoginResult, error) {
	if w.Role == "" {
		return nil, noRole("no role has been assigned to this account")
	}
	if !roleCanAccess(w.Role, platform) {
		return nil, unauthorized("platform not permitted")
	}

	signed, expiresAt, err := e.issuer.Sign(w.ID, w.Address, platform)
	if err != nil {
		return nil, e.internal("sign token", err)
	}

	if w.LoginRetryCount > 0 || w.LoginCooldownUntil != nil {
		if err := e.wallets.UpdateThrottle(ctx, w.ID, 0, nil); err != nil {
			return nil, e.internal("clear throttle", err)
		}
		w.LoginRetryCount = 0
		w.LoginCooldownUntil = nil
	}

	record := token.IssuedToken{
		ID:        uuid.New().String(),
		UserID:    w.ID,
		Token:     signed,
		IssuedAt:  e.now(),
		ExpiresAt: expiresAt,
	}
	if err := e.tokens.Record(ctx, record); err != nil {
		return nil, e.internal("record issued token", err)
	}

	e.logger.Info("login succeeded",
		slog.String("user_id", w.ID),
		slog.String("platform", platform),
	)

	result := &LoginResult{Wallet: w.Sanitized(), Token: signed, ExpiresAt: expiresAt}
	if withRoleAccess {
		result.RoleAccess = PlatformsForRole(w.Role)
	}
	return result, nil
}

func (e *Engine) findByAddress(ctx context.Context, address string) (wallet.Wallet, error) {
	w, err := e.wallets.FindActiveByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return wallet.Wallet{}, notFound("user not exists")
		}
		return wallet.Wallet{}, e.internal("find wallet", err)
	}
	return w, nil
}

// internal logs the underlying fault and wraps it so callers see a generic
// system failure rather than a typed rejection.
func (e *Engine) internal(op string, err error) error {
	e.logger.Error(op+" failed", slog.Any("error", err))
	return fmt.Errorf("%s: %w", op, err)
}
