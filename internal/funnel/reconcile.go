package funnel

import (
	"time"

	"truematch-funnel/internal/api"
	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/store"
)

// Reconciler funde la identidad remota con la caché local en un snapshot
// canónico. La identidad remota gana en todo campo salvo emailVerified y
// hasPreferences, donde un true de cualquiera de las dos fuentes es
// pegajoso: lo local puede subir un false remoto desactualizado, nunca
// bajar un true.
type Reconciler struct {
	store store.SessionStore
}

func NewReconciler(s store.SessionStore) *Reconciler {
	return &Reconciler{store: s}
}

// Reconcile produce el snapshot para una evaluación del funnel.
func (r *Reconciler) Reconcile(res api.IdentityResult, flags QueryFlags, now time.Time) domain.CanonicalSnapshot {
	local, hasLocal := r.store.ReadUser()

	isDemo := flags.Demo
	if hasLocal && domain.IsDemoEmail(local.Email) {
		isDemo = true
	}
	if res.Authenticated && domain.IsDemoEmail(res.Identity.Email) {
		isDemo = true
	}

	if !res.Reachable || !res.Authenticated {
		// Sin backend (o sin sesión remota): sólo demo cuenta como
		// autenticado; todo lo demás sale de la caché local.
		snap := domain.CanonicalSnapshot{
			Authenticated: isDemo,
			IsDemo:        isDemo,
			Plan:          domain.PlanFree,
		}
		if hasLocal {
			snap.Email = local.Email
			snap.EmailVerified = local.EmailVerified
			snap.HasPreferences = r.store.HasPreferencesFor(local.Email)
			if local.Plan != "" {
				snap.Plan = local.Plan
			}
		}
		if isDemo {
			if override, ok := r.store.PlanOverride(); ok {
				snap.Plan = override
				snap.PlanActive = true
			} else if hasLocal && local.Plan != "" {
				snap.PlanActive = true
			}
		}
		snap.PremiumStatus = domain.PremiumNone
		return snap
	}

	id := res.Identity
	snap := domain.CanonicalSnapshot{
		Authenticated:  true,
		Email:          id.Email,
		EmailVerified:  id.EmailVerified,
		HasPreferences: id.PreferencesSaved || r.store.HasPreferencesFor(id.Email),
		Plan:           id.Plan,
		PlanActive:     id.ActiveAt(now),
		PremiumStatus:  id.PremiumStatus,
		IsDemo:         isDemo,
	}
	if hasLocal && local.Email == id.Email && local.EmailVerified {
		snap.EmailVerified = true
	}
	if isDemo && !snap.PlanActive {
		if override, ok := r.store.PlanOverride(); ok {
			snap.Plan = override
			snap.PlanActive = true
		}
	}
	return snap
}
