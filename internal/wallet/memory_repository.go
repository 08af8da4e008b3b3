package wallet

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	wallets map[string]Wallet // keyed by ID
}

// NewMemoryRepository builds an in-memory wallet store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{wallets: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.Address == w.Address && !existing.IsDeleted {
			return errors.New("address already registered")
		}
	}
	r.wallets[w.ID] = clone(w)
	return nil
}

func (r *memoryRepository) FindActiveByAddress(_ context.Context, address string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.Address == address && usable(w) {
			return clone(w), nil
		}
	}
	return Wallet{}, ErrNotFound
}

func (r *memoryRepository) FindActiveByID(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok || !usable(w) {
		return Wallet{}, ErrNotFound
	}
	return clone(w), nil
}

func (r *memoryRepository) FindActiveByResetCode(_ context.Context, code string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.ResetToken != nil && w.ResetToken.Code == code && usable(w) {
			return clone(w), nil
		}
	}
	return Wallet{}, ErrNotFound
}

func (r *memoryRepository) UpdateThrottle(_ context.Context, id string, retryCount int, cooldownUntil *time.Time) error {
	return r.update(id, func(w *Wallet) {
		w.LoginRetryCount = retryCount
		if cooldownUntil != nil {
			t := *cooldownUntil
			w.LoginCooldownUntil = &t
		} else {
			w.LoginCooldownUntil = nil
		}
	})
}

func (r *memoryRepository) SetLoginOTP(_ context.Context, id string, otp OneTimeCode) error {
	return r.update(id, func(w *Wallet) {
		w.LoginOTP = &OneTimeCode{Code: otp.Code, ExpiresAt: otp.ExpiresAt}
	})
}

func (r *memoryRepository) ClearLoginOTP(_ context.Context, id string) error {
	return r.update(id, func(w *Wallet) {
		w.LoginOTP = nil
	})
}

func (r *memoryRepository) SetResetToken(_ context.Context, id string, token OneTimeCode) error {
	return r.update(id, func(w *Wallet) {
		w.ResetToken = &OneTimeCode{Code: token.Code, ExpiresAt: token.ExpiresAt}
	})
}

func (r *memoryRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	return r.update(id, func(w *Wallet) {
		w.PasswordHash = passwordHash
	})
}

func (r *memoryRepository) CompleteReset(_ context.Context, id string, passwordHash string) error {
	return r.update(id, func(w *Wallet) {
		w.PasswordHash = passwordHash
		w.ResetToken = nil
		w.LoginRetryCount = 0
		w.LoginCooldownUntil = nil
	})
}

func (r *memoryRepository) update(id string, apply func(*Wallet)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok || !usable(w) {
		return ErrNotFound
	}
	apply(&w)
	w.UpdatedAt = time.Now().UTC()
	r.wallets[id] = w
	return nil
}

func usable(w Wallet) bool {
	return w.IsActive && !w.IsDeleted
}

func clone(w Wallet) Wallet {
	if w.LoginCooldownUntil != nil {
		t := *w.LoginCooldownUntil
		w.LoginCooldownUntil = &t
	}
	if w.LoginOTP != nil {
		c := *w.LoginOTP
		w.LoginOTP = &c
	}
	if w.ResetToken != nil {
		c := *w.ResetToken
		w.ResetToken = &c
	}
	return w
}
