package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/email"
	"truematch-funnel/internal/repository"
)

// AccountService coordina reglas de negocio de cuentas y verificación.
type AccountService struct {
	logger      *zap.Logger
	accounts    repository.AccountRepository
	emailSender email.Sender
	otpLimiter  OTPRateLimiter
	planDays    int
}

func NewAccountService(logger *zap.Logger, accounts repository.AccountRepository, emailSender email.Sender, otpLimiter OTPRateLimiter, planDays int) *AccountService {
	if otpLimiter == nil {
		otpLimiter = NewOTPRateLimiter(otpTTL, 3)
	}
	if planDays <= 0 {
		planDays = 30
	}
	return &AccountService{
		logger:      logger,
		accounts:    accounts,
		emailSender: emailSender,
		otpLimiter:  otpLimiter,
		planDays:    planDays,
	}
}

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrOTPNotRequested    = errors.New("verification not requested")
	ErrOTPExpired         = errors.New("verification code expired")
	ErrOTPInvalid         = errors.New("invalid verification code")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
)

const otpTTL = 10 * time.Minute

// Register crea la cuenta con password hasheado; el correo nace sin verificar.
func (s *AccountService) Register(ctx context.Context, name, emailAddr, password string) (domain.User, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return domain.User{}, ErrInvalidEmail
	}
	if _, err := s.accounts.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	password = strings.TrimSpace(password)
	if password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:            uuid.NewString(),
		Email:         emailAddr,
		Name:          strings.TrimSpace(name),
		PasswordHash:  string(hashBytes),
		Plan:          domain.PlanFree,
		PremiumStatus: domain.PremiumNone,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Authenticate valida credenciales sin filtrar cuál parte falló.
func (s *AccountService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpsertOAuthMock resuelve el login de proveedor simulado: reusa la
// cuenta ligada, liga por correo, o crea una nueva ya verificada.
func (s *AccountService) UpsertOAuthMock(ctx context.Context, provider string) (domain.User, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "google"
	}
	subject := provider + "-mock"
	emailAddr := provider + "@demo.local"

	user, err := s.accounts.GetByAuth(ctx, provider, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	existing, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err == nil {
		if err := s.accounts.LinkOAuth(ctx, existing.ID, provider, subject); err != nil {
			return domain.User{}, err
		}
		verifiedAt := time.Now().UTC()
		if err := s.accounts.VerifyEmail(ctx, existing.ID, verifiedAt); err != nil {
			return domain.User{}, err
		}
		existing.AuthProvider = provider
		existing.AuthSubject = subject
		existing.EmailVerifiedAt = &verifiedAt
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	verifiedAt := time.Now().UTC()
	user = domain.User{
		ID:              uuid.NewString(),
		Email:           emailAddr,
		Name:            capitalize(provider) + " User",
		AuthProvider:    provider,
		AuthSubject:     subject,
		Plan:            domain.PlanFree,
		PremiumStatus:   domain.PremiumNone,
		EmailVerifiedAt: &verifiedAt,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// RequestVerificationCode genera y envía el código OTP de 6 dígitos.
func (s *AccountService) RequestVerificationCode(ctx context.Context, emailAddr string) error {
	emailAddr = domain.NormalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	if s.otpLimiter != nil && !s.otpLimiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	code, hash, expiresAt, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateOTP(ctx, user.ID, hash, expiresAt); err != nil {
		return err
	}

	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	if err := s.emailSender.SendVerificationCode(ctx, emailAddr, code, expiresAt); err != nil {
		if s.logger != nil {
			s.logger.Warn("send verification code failed", zap.Error(err), zap.String("email", emailAddr))
		}
		return ErrEmailSendFailure
	}
	return nil
}

// VerifyEmailCode confirma el código y marca el correo como verificado.
func (s *AccountService) VerifyEmailCode(ctx context.Context, emailAddr, code string) (domain.User, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if !isValidOTPCode(code) {
		return domain.User{}, ErrOTPInvalid
	}

	user, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrAccountNotFound
		}
		return domain.User{}, err
	}
	if user.OtpCodeHash == "" || user.OtpExpiresAt == nil {
		return domain.User{}, ErrOTPNotRequested
	}
	if time.Now().UTC().After(*user.OtpExpiresAt) {
		return domain.User{}, ErrOTPExpired
	}
	if !verifyOTP(code, user.OtpCodeHash) {
		return domain.User{}, ErrOTPInvalid
	}

	verifiedAt := time.Now().UTC()
	if err := s.accounts.VerifyEmail(ctx, user.ID, verifiedAt); err != nil {
		return domain.User{}, err
	}
	user.EmailVerifiedAt = &verifiedAt
	user.OtpCodeHash = ""
	user.OtpExpiresAt = nil
	return user, nil
}

// SavePreferences marca las preferencias como guardadas.
func (s *AccountService) SavePreferences(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrAccountNotFound
		}
		return domain.User{}, err
	}
	if err := s.accounts.SetPreferencesSaved(ctx, user.ID); err != nil {
		return domain.User{}, err
	}
	user.PreferencesSaved = true
	return user, nil
}

// UpdateProfile cambia el nombre visible.
func (s *AccountService) UpdateProfile(ctx context.Context, emailAddr, name string) error {
	user, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return s.accounts.SetName(ctx, user.ID, strings.TrimSpace(name))
}

// ChoosePlan activa el plan elegido con vencimiento fijo.
func (s *AccountService) ChoosePlan(ctx context.Context, emailAddr, planCode string) (domain.User, error) {
	user, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrAccountNotFound
		}
		return domain.User{}, err
	}
	plan := domain.NormalizePlan(planCode)
	end := time.Now().UTC().Add(time.Duration(s.planDays) * 24 * time.Hour)
	if err := s.accounts.SetPlan(ctx, user.ID, plan, true, &end); err != nil {
		return domain.User{}, err
	}
	user.Plan = plan
	user.PlanActive = true
	user.PlanEnd = &end
	if plan == domain.PlanTier3 {
		user.HasCreatorAccess = true
	}
	return user, nil
}

// ApplyPremium registra la solicitud y deja el estado en pending.
func (s *AccountService) ApplyPremium(ctx context.Context, emailAddr string, app domain.PremiumApplication) error {
	user, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if strings.TrimSpace(app.FullName) == "" || app.Age <= 0 {
		return fmt.Errorf("incomplete application")
	}
	app.AppliedAt = time.Now().UTC()
	return s.accounts.SetPremium(ctx, user.ID, domain.PremiumPending, &app)
}

func generateOTP() (string, string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", time.Time{}, err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", time.Time{}, err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])

	expiresAt := time.Now().UTC().Add(otpTTL)
	return code, saltStr + ":" + hash, expiresAt, nil
}

func verifyOTP(code, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	hashBytes := sha256.Sum256([]byte(parts[0] + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(parts[1])) == 1
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// OTPRateLimiter limita la frecuencia de envíos de código por correo.
type OTPRateLimiter interface {
	Allow(key string) bool
}

type otpRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

// NewOTPRateLimiter crea un rate limiter en memoria.
func NewOTPRateLimiter(window time.Duration, max int) OTPRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &otpRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *otpRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}
