package auth

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"

	"github.com/omerfarukdemiral/wallet-auth/internal/notification"
	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

const otpDigits = 6

// RequestLoginOTP generates a one-time login code for the record and delivers
// it over the configured channel. Locked records are rejected the same way a
// login attempt would be; only throttle writes happen, no credential check.
func (e *Engine) RequestLoginOTP(ctx context.Context, address string) error {
	w, err := e.findByAddress(ctx, address)
	if err != nil {
		return err
	}

	if err := e.applyThrottle(ctx, &w); err != nil {
		return err
	}

	code, err := randomNumericCode(otpDigits)
	if err != nil {
		return e.internal("generate otp", err)
	}

	otp := wallet.OneTimeCode{Code: code, ExpiresAt: e.now().Add(e.policy.OTPTTL)}
	if err := e.wallets.SetLoginOTP(ctx, w.ID, otp); err != nil {
		return e.internal("store otp", err)
	}

	message := notification.Message{
		Channel:  e.policy.OTPChannel,
		To:       destination(w, e.policy.OTPChannel),
		Subject:  "Login OTP",
		Template: notification.TemplateLoginOTP,
		Data:     map[string]string{"otp": code},
	}
	if err := e.notifier.Send(ctx, message); err != nil {
		e.logger.Warn("otp dispatch failed",
			slog.String("user_id", w.ID),
			slog.String("channel", string(e.policy.OTPChannel)),
			slog.Any("error", err),
		)
		return dispatchFailure("otp can not be sent due to some issue, try again later")
	}
	return nil
}

// OTPLoginInput carries an OTP login attempt.
type OTPLoginInput struct {
	Address        string
	Code           string
	Platform       string
	WithRoleAccess bool
}

// LoginWithOTP runs the same login state machine with the password check
// replaced by a stored-OTP comparison. A consumed code is cleared and can
// never authenticate twice.
func (e *Engine) LoginWithOTP(ctx context.Context, input OTPLoginInput) (*LoginResult, error) {
	w, err := e.findByAddress(ctx, input.Address)
	if err != nil {
		return nil, err
	}

	if err := e.applyThrottle(ctx, &w); err != nil {
		return nil, err
	}

	if w.LoginOTP == nil || w.LoginOTP.Code != input.Code || w.LoginOTP.Expired(e.now()) {
		if err := e.wallets.UpdateThrottle(ctx, w.ID, w.LoginRetryCount+1, w.LoginCooldownUntil); err != nil {
			return nil, e.internal("record failed attempt", err)
		}
		return nil, invalidCredential("incorrect or expired code")
	}

	result, err := e.completeLogin(ctx, w, input.Platform, input.WithRoleAccess)
	if err != nil {
		return nil, err
	}

	if err := e.wallets.ClearLoginOTP(ctx, w.ID); err != nil {
		return nil, e.internal("clear otp", err)
	}
	return result, nil
}

func destination(w wallet.Wallet, channel notification.Channel) string {
	if channel == notification.ChannelSMS {
		return w.MobileNo
	}
	return w.Email
}

func randomNumericCode(digits int) (string, error) {
	max := big.NewInt(10)
	code := make([]byte, digits)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
