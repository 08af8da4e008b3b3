package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/omerfarukdemiral/wallet-auth/internal/notification"
	"github.com/omerfarukdemiral/wallet-auth/internal/wallet"
)

// ChangePassword verifies the old password and stores a hash of the new one.
// A mismatch makes no other state change; the login retry counter is a
// separate domain from this check.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	w, err := e.wallets.FindActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return notFound("user not found")
		}
		return e.internal("find wallet", err)
	}

	if w.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(w.PasswordHash), []byte(oldPassword)) != nil {
		return invalidCredential("incorrect old password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return e.internal("hash password", err)
	}

	if err := e.wallets.UpdatePassword(ctx, w.ID, string(hash)); err != nil {
		return e.internal("update password", err)
	}
	return nil
}

// DispatchResult reports, per channel, whether the reset notification was
// delivered. Each channel's outcome is tracked independently.
type DispatchResult struct {
	Email bool
	SMS   bool
}

// RequestPasswordReset stores a single-use reset token with a fixed expiry and
// dispatches it over every configured channel.
func (e *Engine) RequestPasswordReset(ctx context.Context, address string) (DispatchResult, error) {
	w, err := e.findByAddress(ctx, address)
	if err != nil {
		return DispatchResult{}, err
	}

	code := uuid.New().String()
	tok := wallet.OneTimeCode{Code: code, ExpiresAt: e.now().Add(e.policy.ResetTokenTTL)}
	if err := e.wallets.SetResetToken(ctx, w.ID, tok); err != nil {
		return DispatchResult{}, e.internal("store reset token", err)
	}

	var result DispatchResult
	for _, channel := range e.policy.ResetChannels {
		message := notification.Message{
			Channel:  channel,
			To:       destination(w, channel),
			Subject:  "Reset Password",
			Template: notification.TemplateResetPassword,
			Data:     map[string]string{"code": code},
		}
		if err := e.notifier.Send(ctx, message); err != nil {
			e.logger.Warn("reset dispatch failed",
				slog.String("user_id", w.ID),
				slog.String("channel", string(channel)),
				slog.Any("error", err),
			)
			continue
		}
		switch channel {
		case notification.ChannelEmail:
			result.Email = true
		case notification.ChannelSMS:
			result.SMS = true
		}
	}
	return result, nil
}

// ResetPassword consumes a reset token: the new hash is stored, the token is
// cleared, the login retry counter is zeroed and a confirmation is sent.
func (e *Engine) ResetPassword(ctx context.Context, code, newPassword string) error {
	w, err := e.wallets.FindActiveByResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return notFound("user not found")
		}
		return e.internal("find wallet", err)
	}

	if w.ResetToken == nil || w.ResetToken.Expired(e.now()) {
		return invalidCredential("reset code is expired or invalid")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return e.internal("hash password", err)
	}

	if err := e.wallets.CompleteReset(ctx, w.ID, string(hash)); err != nil {
		return e.internal("complete reset", err)
	}

	// Confirmation is best effort; the reset itself already succeeded.
	message := notification.Message{
		Channel:  notification.ChannelEmail,
		To:       w.Email,
		Subject:  "Reset Password",
		Template: notification.TemplateResetConfirmation,
		Data:     map[string]string{"message": "Your password has been changed successfully."},
	}
	if err := e.notifier.Send(ctx, message); err != nil {
		e.logger.Warn("reset confirmation dispatch failed",
			slog.String("user_id", w.ID),
			slog.Any("error", err),
		)
	}
	return nil
}
