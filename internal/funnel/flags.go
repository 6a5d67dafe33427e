package funnel

import (
	"net/url"

	"truematch-funnel/internal/domain"
)

// QueryFlags es el contrato de parámetros que viaja entre páginas.
type QueryFlags struct {
	Mode       string
	Demo       bool
	Onboarding bool
	PrePlan    domain.Plan
	Upgrade    bool
	Return     string
	Verify     bool
	Cancelled  bool
}

// ParseQueryFlags interpreta el query string de la página actual.
func ParseQueryFlags(rawQuery string) QueryFlags {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return QueryFlags{}
	}
	flags := QueryFlags{
		Mode:       q.Get("mode"),
		Demo:       q.Get("demo") == "1",
		Onboarding: q.Get("onboarding") == "1",
		Upgrade:    q.Get("upgrade") == "1",
		Return:     q.Get("return"),
		Verify:     q.Get("verify") == "1",
		Cancelled:  q.Get("cancelled") == "1",
	}
	if v := q.Get("prePlan"); v != "" {
		flags.PrePlan = domain.NormalizePlan(v)
	}
	return flags
}

// FunnelMode deriva el funnel activo a partir de los flags.
func (f QueryFlags) FunnelMode() domain.FunnelMode {
	if f.Upgrade {
		return domain.ModeUpgrade
	}
	return domain.ModeOnboarding
}
