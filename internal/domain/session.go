package domain

import (
	"strings"
	"time"
)

// Identity es la vista canónica que entrega GET /api/me.
type Identity struct {
	Email            string
	EmailVerified    bool
	Plan             Plan
	PlanActive       bool
	PlanEnd          *time.Time
	PreferencesSaved bool
	PremiumStatus    PremiumStatus
	HasCreatorAccess bool
}

// ActiveAt aplica la regla de vigencia del plan: flag explícito, o
// fecha de expiración estrictamente futura. Sin flag y sin fecha futura
// el plan nunca está activo.
func (i Identity) ActiveAt(now time.Time) bool {
	if i.PlanActive {
		return true
	}
	if i.PlanEnd == nil {
		return false
	}
	return now.UTC().Before(i.PlanEnd.UTC())
}

// LocalUserRecord es el registro mínimo cacheado entre cargas de página.
type LocalUserRecord struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Plan          Plan   `json:"plan,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}

// CanonicalSnapshot es la vista reconciliada usada para una decisión de ruteo.
type CanonicalSnapshot struct {
	Authenticated  bool
	Email          string
	EmailVerified  bool
	HasPreferences bool
	Plan           Plan
	PlanActive     bool
	PremiumStatus  PremiumStatus
	IsDemo         bool
}

// DemoDomainSuffix marca los correos reservados para cuentas demo.
const DemoDomainSuffix = ".demo@truematch.app"

// DemoAccount define una credencial demo con plan preasignado.
type DemoAccount struct {
	Password string
	Name     string
	Plan     Plan
}

var demoAccounts = map[string]DemoAccount{
	"tier1.demo@truematch.app": {Password: "111111", Name: "Demo Tier 1", Plan: PlanTier1},
	"tier2.demo@truematch.app": {Password: "222222", Name: "Demo Tier 2", Plan: PlanTier2},
	"tier3.demo@truematch.app": {Password: "333333", Name: "Demo Tier 3", Plan: PlanTier3},
}

// LookupDemo devuelve la cuenta demo para un correo reservado.
func LookupDemo(email string) (DemoAccount, bool) {
	acc, ok := demoAccounts[NormalizeEmail(email)]
	return acc, ok
}

// IsDemoEmail reconoce correos del dominio demo reservado.
func IsDemoEmail(email string) bool {
	return strings.HasSuffix(NormalizeEmail(email), DemoDomainSuffix)
}

// NormalizeEmail baja a minúsculas y recorta; todos los módulos comparan
// correos con esta forma.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
