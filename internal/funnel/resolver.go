package funnel

import (
	"truematch-funnel/internal/domain"
)

// Intent es el resultado efímero de una resolución: etapa destino y
// parámetros arrastrados. Nunca se persiste; se recalcula en cada carga
// de página y después de cada acción que cambia estado.
type Intent struct {
	Stage     domain.Stage
	TargetURL string // destino directo cuando aplica el bypass de return
	Carry     CarryParams
}

// CarryParams son los únicos parámetros que se propagan entre etapas.
// mode/return/verify se consumen al actuar sobre ellos.
type CarryParams struct {
	Demo      bool
	PrePlan   domain.Plan
	Cancelled bool
}

// Resolve es la función de transición del funnel. Las reglas se evalúan
// en este orden estricto y gana la primera que aplique; el orden es la
// regla de negocio y no debe reordenarse.
func Resolve(snap domain.CanonicalSnapshot, flags QueryFlags) Intent {
	carry := CarryParams{
		Demo:      snap.IsDemo || flags.Demo,
		PrePlan:   flags.PrePlan,
		Cancelled: flags.Cancelled,
	}
	needsVerification := !snap.EmailVerified && !snap.IsDemo

	// 1. Bypass de return: sólo autenticado y nunca mientras la
	// verificación siga pendiente.
	if flags.Return != "" && snap.Authenticated && !needsVerification && !flags.Upgrade {
		return Intent{Stage: resolveGated(snap, flags), TargetURL: flags.Return, Carry: carry}
	}

	// 2. Sin sesión y sin demo no hay funnel que recorrer.
	if !snap.Authenticated && !snap.IsDemo {
		return Intent{Stage: domain.StageNeedsAuth, Carry: carry}
	}

	// 3. En modo upgrade no se vuelve a gatear a un usuario que paga.
	if flags.Upgrade {
		return Intent{Stage: domain.StageUpgradeView, Carry: carry}
	}

	// 4–6. Onboarding: verificación, preferencias, dashboard.
	if needsVerification {
		return Intent{Stage: domain.StageNeedsVerification, Carry: carry}
	}
	if !snap.HasPreferences {
		return Intent{Stage: domain.StageNeedsPreferences, Carry: carry}
	}
	// El plan pago es opcional: con preferencias se llega al dashboard
	// aunque el usuario siga en free.
	return Intent{Stage: domain.StageDashboard, Carry: carry}
}

// resolveGated calcula la etapa que tocaría sin el bypass, para que el
// Navigator sepa a dónde volver si el destino directo no navega.
func resolveGated(snap domain.CanonicalSnapshot, flags QueryFlags) domain.Stage {
	stripped := flags
	stripped.Return = ""
	return Resolve(snap, stripped).Stage
}

// UpgradeCardState clasifica una tarjeta de plan en la vista de upgrade.
type UpgradeCardState string

const (
	CardCurrent  UpgradeCardState = "current"
	CardIncluded UpgradeCardState = "included"
	CardUpgrade  UpgradeCardState = "upgrade"
)

// UpgradeCard compara el plan de la tarjeta contra el plan vigente.
func UpgradeCard(current, card domain.Plan) UpgradeCardState {
	if card == current {
		return CardCurrent
	}
	if card.Rank() < current.Rank() {
		return CardIncluded
	}
	return CardUpgrade
}
