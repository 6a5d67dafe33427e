package domain

// Stage es una pantalla destino dentro del funnel.
type Stage string

const (
	StageNeedsAuth         Stage = "NEEDS_AUTH"
	StageNeedsVerification Stage = "NEEDS_VERIFICATION"
	StageNeedsPreferences  Stage = "NEEDS_PREFERENCES"
	StageNeedsPlan         Stage = "NEEDS_PLAN"
	StageDashboard         Stage = "DASHBOARD"
	StageUpgradeView       Stage = "UPGRADE_VIEW"
)

// FunnelMode distingue onboarding del flujo secundario de upgrade.
type FunnelMode string

const (
	ModeOnboarding FunnelMode = "onboarding"
	ModeUpgrade    FunnelMode = "upgrade"
)

// MatchProfile es un candidato del shortlist diario.
type MatchProfile struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Age      int     `json:"age"`
	Bio      string  `json:"bio,omitempty"`
	Distance float64 `json:"distance"`
}
