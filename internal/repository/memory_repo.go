package repository

import (
	"context"
	"sync"
	"time"

	"truematch-funnel/internal/domain"
)

// MemoryAccountRepository respalda el backend cuando no hay DATABASE_URL
// (desarrollo local y modo demo). Mismo contrato, estado en proceso.
type MemoryAccountRepository struct {
	mu      sync.Mutex
	byID    map[string]domain.User
	byEmail map[string]string
	byAuth  map[string]string
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
		byAuth:  make(map[string]string),
	}
}

func (r *MemoryAccountRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[user.ID] = user
	if user.Email != "" {
		r.byEmail[user.Email] = user.ID
	}
	if user.AuthProvider != "" && user.AuthSubject != "" {
		r.byAuth[user.AuthProvider+"|"+user.AuthSubject] = user.ID
	}
	return nil
}

func (r *MemoryAccountRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryAccountRepository) GetByAuth(_ context.Context, provider, subject string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byAuth[provider+"|"+subject]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryAccountRepository) mutate(id string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&user)
	r.byID[id] = user
	return nil
}

func (r *MemoryAccountRepository) LinkOAuth(_ context.Context, id, provider, subject string) error {
	err := r.mutate(id, func(u *domain.User) {
		u.AuthProvider = provider
		u.AuthSubject = subject
	})
	if err == nil {
		r.mu.Lock()
		r.byAuth[provider+"|"+subject] = id
		r.mu.Unlock()
	}
	return err
}

func (r *MemoryAccountRepository) UpdateOTP(_ context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.OtpCodeHash = otpHash
		u.OtpExpiresAt = &otpExpiresAt
	})
}

func (r *MemoryAccountRepository) VerifyEmail(_ context.Context, id string, verifiedAt time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.EmailVerifiedAt = &verifiedAt
		u.OtpCodeHash = ""
		u.OtpExpiresAt = nil
	})
}

func (r *MemoryAccountRepository) SetPreferencesSaved(_ context.Context, id string) error {
	return r.mutate(id, func(u *domain.User) {
		u.PreferencesSaved = true
	})
}

func (r *MemoryAccountRepository) SetName(_ context.Context, id, name string) error {
	return r.mutate(id, func(u *domain.User) {
		u.Name = name
	})
}

func (r *MemoryAccountRepository) SetPlan(_ context.Context, id string, plan domain.Plan, active bool, end *time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.Plan = plan
		u.PlanActive = active
		u.PlanEnd = end
		if plan == domain.PlanTier3 {
			u.HasCreatorAccess = true
		}
	})
}

func (r *MemoryAccountRepository) SetPremium(_ context.Context, id string, status domain.PremiumStatus, app *domain.PremiumApplication) error {
	return r.mutate(id, func(u *domain.User) {
		u.PremiumStatus = status
		if app != nil {
			u.PremiumApplication = app
		}
	})
}
