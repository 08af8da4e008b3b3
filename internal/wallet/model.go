package wallet

import "time"

// Roles assigned to wallet records. The role decides which platforms a record
// may authenticate through (see the auth package).
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// OneTimeCode is a single-use credential with an expiry, used for both login
// OTPs and password-reset tokens.
type OneTimeCode struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code is no longer usable at the given instant.
func (c OneTimeCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Wallet is the credential record for a registered user. It is the single
// mutable aggregate owned by the store; the auth engine never caches it
// across calls.
type Wallet struct {
	ID           string
	Address      string
	Email        string
	MobileNo     string
	PasswordHash string // empty means OTP-only login
	Role         string

	LoginRetryCount    int
	LoginCooldownUntil *time.Time
	LoginOTP           *OneTimeCode
	ResetToken         *OneTimeCode

	IsActive  bool
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sanitized returns a copy safe to hand back to callers: credential material
// and one-time codes are stripped.
func (w Wallet) Sanitized() Wallet {
	w.PasswordHash = ""
	w.LoginOTP = nil
	w.ResetToken = nil
	return w
}
