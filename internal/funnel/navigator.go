package funnel

import (
	"net/url"

	"go.uber.org/zap"

	"truematch-funnel/internal/domain"
)

// History abstrae el historial del navegador. Las transiciones siempre
// reemplazan la entrada actual, nunca hacen push: volver atrás no debe
// resucitar una etapa ya saltada.
type History interface {
	Replace(dest string)
	Current() string
}

// LandingPath es el único destino fuera del funnel (post-logout).
const LandingPath = "/index.html"

var stagePaths = map[domain.Stage]string{
	domain.StageNeedsAuth:         "/auth.html",
	domain.StageNeedsVerification: "/auth.html",
	domain.StageNeedsPreferences:  "/preferences.html",
	domain.StageNeedsPlan:         "/tier.html",
	domain.StageDashboard:         "/dashboard.html",
	domain.StageUpgradeView:       "/tier.html",
}

// Navigator materializa un Intent como navegación de página completa.
type Navigator struct {
	history History
	logger  *zap.Logger
}

func NewNavigator(history History, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{history: history, logger: logger}
}

// Go navega a la etapa resuelta. Es idempotente: el mismo Intent produce
// la misma URL final y no duplica entradas de historial.
func (n *Navigator) Go(intent Intent) string {
	dest := intent.TargetURL
	if dest == "" {
		dest = BuildStageURL(intent.Stage, intent.Carry)
	}
	if n.history.Current() != dest {
		n.history.Replace(dest)
		n.logger.Info("navigate",
			zap.String("stage", string(intent.Stage)),
			zap.String("dest", dest),
		)
	}
	return dest
}

// ReplaceTo navega a un destino fuera de la tabla de etapas (landing).
func (n *Navigator) ReplaceTo(dest string) {
	if n.history.Current() != dest {
		n.history.Replace(dest)
	}
}

// BuildStageURL arma la URL destino con claves explícitas; no hay
// passthrough ciego de parámetros entre páginas.
func BuildStageURL(stage domain.Stage, carry CarryParams) string {
	path, ok := stagePaths[stage]
	if !ok {
		path = LandingPath
	}

	q := url.Values{}
	if carry.Demo {
		q.Set("demo", "1")
	}
	if carry.PrePlan != "" {
		q.Set("prePlan", string(carry.PrePlan))
	}
	switch stage {
	case domain.StageNeedsAuth:
		q.Set("mode", "signin")
	case domain.StageNeedsVerification:
		q.Set("mode", "signin")
		q.Set("verify", "1")
	case domain.StageNeedsPreferences:
		q.Set("onboarding", "1")
	case domain.StageNeedsPlan:
		q.Set("onboarding", "1")
		if carry.Cancelled {
			q.Set("cancelled", "1")
		}
	case domain.StageUpgradeView:
		q.Set("upgrade", "1")
		if carry.Cancelled {
			q.Set("cancelled", "1")
		}
	}
	if encoded := q.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}
