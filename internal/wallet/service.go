package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service manages wallet record lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new wallet service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures data required to register a wallet record.
type RegisterInput struct {
	Address  string
	Email    string
	MobileNo string
	Password string // optional: empty registers an OTP-only record
	Role     string
}

// Register creates a new active wallet record with a hashed password. A record
// registered without a password can only log in through the OTP flow.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Wallet, error) {
	if input.Address == "" {
		return Wallet{}, errors.New("wallet address is required")
	}
	if input.Password != "" && len(input.Password) < 8 {
		return Wallet{}, errors.New("password must be at least 8 characters")
	}

	if _, err := s.repo.FindActiveByAddress(ctx, input.Address); err == nil {
		return Wallet{}, errors.New("address already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return Wallet{}, err
	}

	var hash string
	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return Wallet{}, err
		}
		hash = string(hashed)
	}

	role := input.Role
	if role == "" {
		role = RoleUser
	}

	now := time.Now().UTC()
	w := Wallet{
		ID:           uuid.New().String(),
		Address:      input.Address,
		Email:        input.Email,
		MobileNo:     input.MobileNo,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}

	return w, nil
}
