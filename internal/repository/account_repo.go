package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"truematch-funnel/internal/domain"
)

// AccountRepository define el contrato de persistencia para cuentas.
type AccountRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByAuth(ctx context.Context, provider, subject string) (domain.User, error)
	LinkOAuth(ctx context.Context, id, provider, subject string) error
	UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error
	VerifyEmail(ctx context.Context, id string, verifiedAt time.Time) error
	SetPreferencesSaved(ctx context.Context, id string) error
	SetName(ctx context.Context, id, name string) error
	SetPlan(ctx context.Context, id string, plan domain.Plan, active bool, end *time.Time) error
	SetPremium(ctx context.Context, id string, status domain.PremiumStatus, app *domain.PremiumApplication) error
}

// ErrNotFound unifica el "no existe" de ambas implementaciones.
var ErrNotFound = pgx.ErrNoRows

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `
	id, email, name, auth_provider, auth_subject, password_hash,
	plan, plan_active, plan_end, preferences_saved, premium_status,
	has_creator_access, email_verified_at, otp_code_hash, otp_expires_at, created_at
`

func (r *PgAccountRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.AuthProvider, user.AuthSubject, user.PasswordHash,
		user.Plan, user.PlanActive, user.PlanEnd, user.PreferencesSaved, user.PremiumStatus,
		user.HasCreatorAccess, user.EmailVerifiedAt, user.OtpCodeHash, user.OtpExpiresAt, user.CreatedAt,
	)
	return err
}

const accountSelect = `
	SELECT ` + accountColumns + `,
	premium_full_name, premium_age, premium_occupation, premium_finance, premium_applied_at
	FROM accounts
`

func (r *PgAccountRepository) scanOne(ctx context.Context, query string, args ...any) (domain.User, error) {
	var (
		u           domain.User
		premName    *string
		premAge     *int
		premOcc     *string
		premFin     *string
		premApplied *time.Time
	)
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.Name, &u.AuthProvider, &u.AuthSubject, &u.PasswordHash,
		&u.Plan, &u.PlanActive, &u.PlanEnd, &u.PreferencesSaved, &u.PremiumStatus,
		&u.HasCreatorAccess, &u.EmailVerifiedAt, &u.OtpCodeHash, &u.OtpExpiresAt, &u.CreatedAt,
		&premName, &premAge, &premOcc, &premFin, &premApplied,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	if err == nil && premApplied != nil {
		app := domain.PremiumApplication{AppliedAt: *premApplied}
		if premName != nil {
			app.FullName = *premName
		}
		if premAge != nil {
			app.Age = *premAge
		}
		if premOcc != nil {
			app.Occupation = *premOcc
		}
		if premFin != nil {
			app.Finance = *premFin
		}
		u.PremiumApplication = &app
	}
	return u, err
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.scanOne(ctx, accountSelect+` WHERE email = $1`, email)
}

func (r *PgAccountRepository) GetByAuth(ctx context.Context, provider, subject string) (domain.User, error) {
	return r.scanOne(ctx, accountSelect+` WHERE auth_provider = $1 AND auth_subject = $2`, provider, subject)
}

func (r *PgAccountRepository) LinkOAuth(ctx context.Context, id, provider, subject string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET auth_provider = $2, auth_subject = $3 WHERE id = $1`,
		id, provider, subject,
	)
	return err
}

func (r *PgAccountRepository) UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET otp_code_hash = $2, otp_expires_at = $3 WHERE id = $1`,
		id, otpHash, otpExpiresAt,
	)
	return err
}

func (r *PgAccountRepository) VerifyEmail(ctx context.Context, id string, verifiedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET email_verified_at = $2, otp_code_hash = '', otp_expires_at = NULL WHERE id = $1`,
		id, verifiedAt,
	)
	return err
}

func (r *PgAccountRepository) SetPreferencesSaved(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET preferences_saved = TRUE WHERE id = $1`, id)
	return err
}

func (r *PgAccountRepository) SetName(ctx context.Context, id, name string) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET name = $2 WHERE id = $1`, id, name)
	return err
}

func (r *PgAccountRepository) SetPlan(ctx context.Context, id string, plan domain.Plan, active bool, end *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET plan = $2, plan_active = $3, plan_end = $4,
		 has_creator_access = has_creator_access OR $2 = 'tier3'
		 WHERE id = $1`,
		id, plan, active, end,
	)
	return err
}

func (r *PgAccountRepository) SetPremium(ctx context.Context, id string, status domain.PremiumStatus, app *domain.PremiumApplication) error {
	if app == nil {
		_, err := r.pool.Exec(ctx, `UPDATE accounts SET premium_status = $2 WHERE id = $1`, id, status)
		return err
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET premium_status = $2, premium_full_name = $3, premium_age = $4,
		 premium_occupation = $5, premium_finance = $6, premium_applied_at = $7
		 WHERE id = $1`,
		id, status, app.FullName, app.Age, app.Occupation, app.Finance, app.AppliedAt,
	)
	return err
}
