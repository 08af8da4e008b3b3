package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no active, non-deleted record matches a lookup.
var ErrNotFound = errors.New("wallet not found")

// Repository persists wallet credential records.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	FindActiveByAddress(ctx context.Context, address string) (Wallet, error)
	FindActiveByID(ctx context.Context, id string) (Wallet, error)
	FindActiveByResetCode(ctx context.Context, code string) (Wallet, error)
	UpdateThrottle(ctx context.Context, id string, retryCount int, cooldownUntil *time.Time) error
	SetLoginOTP(ctx context.Context, id string, otp OneTimeCode) error
	ClearLoginOTP(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id string, token OneTimeCode) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	CompleteReset(ctx context.Context, id string, passwordHash string) error
}

// DB is the subset of pgxpool.Pool the repository needs. Declared as an
// interface so tests can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository builds a Postgres-backed wallet repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = `id, address, email, mobile_no, password_hash, role,
        login_retry_count, login_cooldown_until,
        login_otp_code, login_otp_expires_at,
        reset_token_code, reset_token_expires_at,
        is_active, is_deleted, created_at, updated_at`

// Create inserts a new wallet record.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	var otpCode, resetCode *string
	var otpExpires, resetExpires *time.Time
	if w.LoginOTP != nil {
		otpCode, otpExpires = &w.LoginOTP.Code, &w.LoginOTP.ExpiresAt
	}
	if w.ResetToken != nil {
		resetCode, resetExpires = &w.ResetToken.Code, &w.ResetToken.ExpiresAt
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (`+walletColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		walletID, w.Address, w.Email, w.MobileNo, w.PasswordHash, w.Role,
		w.LoginRetryCount, w.LoginCooldownUntil,
		otpCode, otpExpires, resetCode, resetExpires,
		w.IsActive, w.IsDeleted, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	return err
}

// FindActiveByAddress fetches a usable record by its unique login key.
func (r *PostgresRepository) FindActiveByAddress(ctx context.Context, address string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE address = $1 AND is_active AND NOT is_deleted`, address)
	return scanWallet(row)
}

// FindActiveByID fetches a usable record by identifier.
func (r *PostgresRepository) FindActiveByID(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE id = $1 AND is_active AND NOT is_deleted`, walletID)
	return scanWallet(row)
}

// FindActiveByResetCode fetches the record holding an unconsumed reset token.
func (r *PostgresRepository) FindActiveByResetCode(ctx context.Context, code string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE reset_token_code = $1 AND is_active AND NOT is_deleted`, code)
	return scanWallet(row)
}

// UpdateThrottle persists the login retry counter and cooldown timestamp.
func (r *PostgresRepository) UpdateThrottle(ctx context.Context, id string, retryCount int, cooldownUntil *time.Time) error {
	return r.exec(ctx, `UPDATE wallets SET login_retry_count = $1, login_cooldown_until = $2, updated_at = now()
        WHERE id = $3 AND is_active AND NOT is_deleted`, retryCount, cooldownUntil, id)
}

// SetLoginOTP stores a fresh login OTP, replacing any previous one.
func (r *PostgresRepository) SetLoginOTP(ctx context.Context, id string, otp OneTimeCode) error {
	return r.exec(ctx, `UPDATE wallets SET login_otp_code = $1, login_otp_expires_at = $2, updated_at = now()
        WHERE id = $3 AND is_active AND NOT is_deleted`, otp.Code, otp.ExpiresAt.UTC(), id)
}

// ClearLoginOTP removes a consumed login OTP.
func (r *PostgresRepository) ClearLoginOTP(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE wallets SET login_otp_code = NULL, login_otp_expires_at = NULL, updated_at = now()
        WHERE id = $1 AND is_active AND NOT is_deleted`, id)
}

// SetResetToken stores a fresh password-reset token, replacing any previous one.
func (r *PostgresRepository) SetResetToken(ctx context.Context, id string, token OneTimeCode) error {
	return r.exec(ctx, `UPDATE wallets SET reset_token_code = $1, reset_token_expires_at = $2, updated_at = now()
        WHERE id = $3 AND is_active AND NOT is_deleted`, token.Code, token.ExpiresAt.UTC(), id)
}

// UpdatePassword stores a new password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.exec(ctx, `UPDATE wallets SET password_hash = $1, updated_at = now()
        WHERE id = $2 AND is_active AND NOT is_deleted`, passwordHash, id)
}

// CompleteReset stores the new hash and clears the reset token, retry counter
// and cooldown in a single statement.
func (r *PostgresRepository) CompleteReset(ctx context.Context, id string, passwordHash string) error {
	return r.exec(ctx, `UPDATE wallets SET password_hash = $1,
        reset_token_code = NULL, reset_token_expires_at = NULL,
        login_retry_count = 0, login_cooldown_until = NULL, updated_at = now()
        WHERE id = $2 AND is_active AND NOT is_deleted`, passwordHash, id)
}

func (r *PostgresRepository) exec(ctx context.Context, sql string, args ...any) error {
	lastIdx := len(args) - 1
	walletID, err := uuid.Parse(args[lastIdx].(string))
	if err != nil {
		return ErrNotFound
	}
	args[lastIdx] = walletID
	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w            Wallet
		id           uuid.UUID
		otpCode      *string
		otpExpires   *time.Time
		resetCode    *string
		resetExpires *time.Time
	)
	err := row.Scan(&id, &w.Address, &w.Email, &w.MobileNo, &w.PasswordHash, &w.Role,
		&w.LoginRetryCount, &w.LoginCooldownUntil,
		&otpCode, &otpExpires, &resetCode, &resetExpires,
		&w.IsActive, &w.IsDeleted, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	w.ID = id.String()
	if otpCode != nil && otpExpires != nil {
		w.LoginOTP = &OneTimeCode{Code: *otpCode, ExpiresAt: otpExpires.UTC()}
	}
	if resetCode != nil && resetExpires != nil {
		w.ResetToken = &OneTimeCode{Code: *resetCode, ExpiresAt: resetExpires.UTC()}
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
