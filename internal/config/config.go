package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "WalletAuth"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second

	defaultTokenTTL        = time.Hour
	defaultMaxLoginRetry   = 5
	defaultLoginCooldown   = 15 * time.Minute
	defaultOTPTTL          = 6 * time.Hour
	defaultResetTokenTTL   = 20 * time.Minute
	defaultOTPChannel      = "email"
	defaultResetChannels   = "email,sms"
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultLoginRatePerMin = 5
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Token issuance.
	AdminTokenSecret  string
	ClientTokenSecret string
	TokenTTL          time.Duration

	// Login throttling policy.
	MaxLoginRetries int
	LoginCooldown   time.Duration
	LoginRatePerMin int

	// One-time credential policy.
	OTPTTL        time.Duration
	ResetTokenTTL time.Duration
	OTPChannel    string
	ResetChannels []string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
		AdminTokenSecret:  os.Getenv("ADMIN_TOKEN_SECRET"),
		ClientTokenSecret: os.Getenv("CLIENT_TOKEN_SECRET"),
		TokenTTL:          defaultTokenTTL,
		MaxLoginRetries:   defaultMaxLoginRetry,
		LoginCooldown:     defaultLoginCooldown,
		LoginRatePerMin:   defaultLoginRatePerMin,
		OTPTTL:            defaultOTPTTL,
		ResetTokenTTL:     defaultResetTokenTTL,
		OTPChannel:        strings.ToLower(getEnv("LOGIN_OTP_CHANNEL", defaultOTPChannel)),
	}

	var err error
	if cfg.ShutdownPeriod, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginCooldown, err = getDuration("LOGIN_COOLDOWN", cfg.LoginCooldown); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = getDuration("LOGIN_OTP_TTL", cfg.OTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.ResetTokenTTL, err = getDuration("RESET_TOKEN_TTL", cfg.ResetTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.MaxLoginRetries, err = getInt("MAX_LOGIN_RETRIES", cfg.MaxLoginRetries); err != nil {
		return Config{}, err
	}
	if cfg.LoginRatePerMin, err = getInt("LOGIN_RATE_PER_MIN", cfg.LoginRatePerMin); err != nil {
		return Config{}, err
	}

	for _, ch := range strings.Split(getEnv("RESET_CHANNELS", defaultResetChannels), ",") {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch == "" {
			continue
		}
		if ch != "email" && ch != "sms" {
			return Config{}, fmt.Errorf("invalid RESET_CHANNELS entry %q", ch)
		}
		cfg.ResetChannels = append(cfg.ResetChannels, ch)
	}

	if cfg.OTPChannel != "email" && cfg.OTPChannel != "sms" {
		return Config{}, fmt.Errorf("invalid LOGIN_OTP_CHANNEL %q", cfg.OTPChannel)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	if cfg.AdminTokenSecret == "" || cfg.ClientTokenSecret == "" {
		return Config{}, fmt.Errorf("ADMIN_TOKEN_SECRET and CLIENT_TOKEN_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration accepts either a bare number of seconds or a Go duration string.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
