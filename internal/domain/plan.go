package domain

import "strings"

// Plan identifica el nivel de suscripción.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanTier1 Plan = "tier1"
	PlanTier2 Plan = "tier2"
	PlanTier3 Plan = "tier3"
)

// NormalizePlan mapea sinónimos y etiquetas comerciales al plan canónico.
func NormalizePlan(code string) Plan {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "free", "basic":
		return PlanFree
	case "plus", "starter", "tier1", "1":
		return PlanTier1
	case "elite", "pro", "tier2", "2":
		return PlanTier2
	case "concierge", "vip", "tier3", "3":
		return PlanTier3
	}
	return PlanTier1
}

// Rank ordena los planes para la vista de upgrade.
func (p Plan) Rank() int {
	switch p {
	case PlanTier1:
		return 1
	case PlanTier2:
		return 2
	case PlanTier3:
		return 3
	}
	return 0
}

// PremiumStatus es el estado de la solicitud premium.
type PremiumStatus string

const (
	PremiumNone     PremiumStatus = "none"
	PremiumPending  PremiumStatus = "pending"
	PremiumApproved PremiumStatus = "approved"
)

// PremiumState resume el acceso a Premium Society.
type PremiumState struct {
	Approved bool
	Pending  bool
}

// ComputePremiumState deriva el estado premium de los campos del usuario.
// Aprobado si el plan tier3 está activo o la solicitud fue aprobada.
func ComputePremiumState(plan Plan, planActive bool, status PremiumStatus) PremiumState {
	return PremiumState{
		Approved: (plan == PlanTier3 && planActive) || status == PremiumApproved,
		Pending:  status == PremiumPending,
	}
}
