package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by every issued credential token.
type Claims struct {
	jwt.RegisteredClaims
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	Platform      string `json:"platform"`
}

// Issuer signs time-limited credential tokens with a platform-scoped secret.
type Issuer struct {
	secrets map[string][]byte
	ttl     time.Duration
	now     func() time.Time
}

// NewIssuer builds an issuer from per-platform secrets and a fixed token TTL.
func NewIssuer(secrets map[string]string, ttl time.Duration) *Issuer {
	s := make(map[string][]byte, len(secrets))
	for platform, secret := range secrets {
		s[platform] = []byte(secret)
	}
	return &Issuer{secrets: s, ttl: ttl, now: time.Now}
}

// WithClock overrides the issuer clock. Test hook.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Sign creates an HS256 token bound to the user identity and platform.
func (i *Issuer) Sign(userID, walletAddress, platform string) (string, time.Time, error) {
	secret, ok := i.secrets[platform]
	if !ok {
		return "", time.Time{}, fmt.Errorf("no signing secret for platform %q", platform)
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		UserID:        userID,
		WalletAddress: walletAddress,
		Platform:      platform,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, selecting the secret from the token's
// platform claim.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		c, ok := t.Claims.(*Claims)
		if !ok {
			return nil, errors.New("unexpected claims type")
		}
		secret, ok := i.secrets[c.Platform]
		if !ok {
			return nil, fmt.Errorf("unknown platform %q", c.Platform)
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
