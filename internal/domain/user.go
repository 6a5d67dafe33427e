package domain

import "time"

// User representa la cuenta persistida en el backend de identidad.
type User struct {
	ID                 string              `json:"id"`
	Email              string              `json:"email"`
	Name               string              `json:"name,omitempty"`
	AuthProvider       string              `json:"auth_provider,omitempty"`
	AuthSubject        string              `json:"-"`
	PasswordHash       string              `json:"-"`
	Plan               Plan                `json:"plan"`
	PlanActive         bool                `json:"planActive"`
	PlanEnd            *time.Time          `json:"planEnd,omitempty"`
	PreferencesSaved   bool                `json:"preferencesSaved"`
	PremiumStatus      PremiumStatus       `json:"premiumStatus"`
	PremiumApplication *PremiumApplication `json:"premiumApplication,omitempty"`
	HasCreatorAccess   bool                `json:"hasCreatorAccess"`
	EmailVerifiedAt    *time.Time          `json:"email_verified_at,omitempty"`
	OtpCodeHash        string              `json:"-"`
	OtpExpiresAt       *time.Time          `json:"-"`
	CreatedAt          time.Time           `json:"created_at"`
}

// PremiumApplication guarda la solicitud de acceso premium.
type PremiumApplication struct {
	FullName   string    `json:"fullName"`
	Age        int       `json:"age"`
	Occupation string    `json:"occupation"`
	Finance    string    `json:"finance"`
	AppliedAt  time.Time `json:"appliedAt"`
}

// EmailVerified indica si el correo ya fue confirmado.
func (u User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// PublicUser es la forma que expone GET /api/me.
type PublicUser struct {
	Email              string              `json:"email"`
	Name               string              `json:"name,omitempty"`
	EmailVerified      bool                `json:"emailVerified"`
	Plan               Plan                `json:"plan"`
	PlanActive         bool                `json:"planActive"`
	PlanEnd            *time.Time          `json:"planEnd"`
	PreferencesSaved   bool                `json:"preferencesSaved"`
	PremiumStatus      PremiumStatus       `json:"premiumStatus"`
	PremiumApplication *PremiumApplication `json:"premiumApplication,omitempty"`
	HasCreatorAccess   bool                `json:"hasCreatorAccess"`
}

// Public proyecta la cuenta a su forma visible por el cliente.
func (u User) Public() PublicUser {
	return PublicUser{
		Email:              u.Email,
		Name:               u.Name,
		EmailVerified:      u.EmailVerified(),
		Plan:               u.Plan,
		PlanActive:         u.PlanActive,
		PlanEnd:            u.PlanEnd,
		PreferencesSaved:   u.PreferencesSaved,
		PremiumStatus:      u.PremiumStatus,
		PremiumApplication: u.PremiumApplication,
		HasCreatorAccess:   u.HasCreatorAccess,
	}
}
