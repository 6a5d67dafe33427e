package funnel

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"truematch-funnel/internal/api"
	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/store"
)

var (
	// ErrInvalidCredentials se muestra tal cual al usuario, sin cambio de estado.
	ErrInvalidCredentials = errors.New("Login failed. Please check your credentials.")
	// ErrDemoPassword se detecta localmente, sin round trip de red.
	ErrDemoPassword = errors.New("Demo password mismatch. (Tier1=111111, Tier2=222222, Tier3=333333)")
	// ErrSignupRejected envuelve el mensaje del backend en registro.
	ErrSignupRejected = errors.New("Signup failed. Please try again.")
)

// Flow encadena acción de auth → snapshot → etapa → navegación. Es el
// único camino por el que una página decide a dónde sigue el usuario.
type Flow struct {
	api        api.SessionClient
	store      store.SessionStore
	reconciler *Reconciler
	nav        *Navigator
	logger     *zap.Logger
	now        func() time.Time
}

func NewFlow(client api.SessionClient, s store.SessionStore, nav *Navigator, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		api:        client,
		store:      s,
		reconciler: NewReconciler(s),
		nav:        nav,
		logger:     logger,
		now:        time.Now,
	}
}

// Evaluate recalcula el Intent para la carga de página actual.
func (f *Flow) Evaluate(ctx context.Context, flags QueryFlags) Intent {
	if flags.Demo {
		// Las sesiones demo no dependen de que el backend responda.
		return Resolve(f.reconciler.Reconcile(api.IdentityResult{}, flags, f.now()), flags)
	}
	res := f.api.FetchIdentity(ctx)
	return Resolve(f.reconciler.Reconcile(res, flags, f.now()), flags)
}

// Navigate materializa el intent; devuelve la URL final.
func (f *Flow) Navigate(intent Intent) string {
	return f.nav.Go(intent)
}

// Login autentica con credenciales. Las cuentas demo reservadas cortan
// antes de la red: password equivocada se reporta localmente y la
// correcta cachea sesión local y sigue en modo demo.
func (f *Flow) Login(ctx context.Context, email, password string, flags QueryFlags) (Intent, error) {
	email = domain.NormalizeEmail(email)

	if acc, ok := domain.LookupDemo(email); ok {
		if strings.TrimSpace(password) != acc.Password {
			return Intent{}, ErrDemoPassword
		}
		f.store.SaveUser(domain.LocalUserRecord{
			ID:    uuid.NewString(),
			Email: email,
			Name:  acc.Name,
			Plan:  acc.Plan,
		})
		f.store.SetPlanOverride(acc.Plan)
		// Intento opcional contra el backend; el resultado no bloquea.
		f.api.PerformAction(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})

		demoFlags := flags
		demoFlags.Demo = true
		demoFlags.PrePlan = acc.Plan
		return f.finish(ctx, demoFlags), nil
	}

	res := f.api.PerformAction(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
	offline := res.Offline || res.Status == 0
	if !res.OK && !offline {
		if res.Message != "" {
			return Intent{}, errors.New(res.Message)
		}
		return Intent{}, ErrInvalidCredentials
	}

	rec := domain.LocalUserRecord{ID: uuid.NewString(), Email: email, Name: nameFromEmail(email)}
	if res.User != nil {
		rec.Email = domain.NormalizeEmail(res.User.Email)
		rec.Name = res.User.Name
		rec.Plan = res.User.Plan
		rec.EmailVerified = res.User.EmailVerified
	}
	f.store.SaveUser(rec)

	next := flags
	if offline {
		next.Demo = true
	}
	return f.finish(ctx, next), nil
}

// SignupOutcome describe el post-registro: la UI cambia al tab de login
// con el correo prellenado, sin navegar.
type SignupOutcome struct {
	PrefillEmail string
}

// Signup registra la cuenta. Un fallo de red cuenta como creado (se
// falla abierto igual que el resto de acciones).
func (f *Flow) Signup(ctx context.Context, name, email, password string, flags QueryFlags) (SignupOutcome, error) {
	email = domain.NormalizeEmail(email)
	res := f.api.PerformAction(ctx, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
	ok := res.OK || res.Status == 201 || res.Offline
	if !ok {
		if res.Message != "" {
			return SignupOutcome{}, errors.New(res.Message)
		}
		return SignupOutcome{}, ErrSignupRejected
	}
	return SignupOutcome{PrefillEmail: email}, nil
}

// OAuthMock simula el login con proveedor externo.
func (f *Flow) OAuthMock(ctx context.Context, provider string, flags QueryFlags) (Intent, error) {
	res := f.api.PerformAction(ctx, "/api/auth/oauth/mock", map[string]string{"provider": provider})
	rec := domain.LocalUserRecord{ID: uuid.NewString(), Email: provider + "@demo.local", Name: "OAuth User"}
	if res.User != nil {
		rec.Email = domain.NormalizeEmail(res.User.Email)
		rec.Name = res.User.Name
		rec.Plan = res.User.Plan
		rec.EmailVerified = res.User.EmailVerified
	}
	f.store.SaveUser(rec)

	next := flags
	if res.Offline || res.Status == 0 {
		next.Demo = true
	}
	return f.finish(ctx, next), nil
}

// CompletePreferences guarda el cuestionario. El índice local se marca
// siempre, incluso offline: la presencia de preferencias es monotónica
// por correo y no depende de que el backend confirme.
func (f *Flow) CompletePreferences(ctx context.Context, answers map[string]string, flags QueryFlags) (Intent, error) {
	res := f.api.PerformAction(ctx, "/api/me/preferences", map[string]any{"answers": answers})
	if !res.OK && !res.Offline && res.Status != 0 {
		if res.Message != "" {
			return Intent{}, errors.New(res.Message)
		}
		return Intent{}, errors.New("Could not save preferences. Try again.")
	}

	email := ""
	if rec, ok := f.store.ReadUser(); ok {
		email = rec.Email
	}
	if res.User != nil && res.User.Email != "" {
		email = domain.NormalizeEmail(res.User.Email)
	}
	f.store.MarkPreferencesSaved(email)
	return f.finish(ctx, flags), nil
}

// ConfirmPlanActive es el fallback de confirmación de pago sin id de
// sesión de checkout: relee la identidad y reporta si el plan quedó
// activo (flag o planEnd futuro).
func (f *Flow) ConfirmPlanActive(ctx context.Context) bool {
	res := f.api.FetchIdentity(ctx)
	if !res.Reachable || !res.Authenticated {
		return false
	}
	return res.Identity.ActiveAt(f.now())
}

// Logout revoca sesión remota best-effort, limpia toda clave local y
// reemplaza hacia la landing. Es la única vuelta a la página inicial.
func (f *Flow) Logout(ctx context.Context) string {
	f.api.Logout(ctx)
	f.store.ClearAll()
	f.nav.ReplaceTo(LandingPath)
	return LandingPath
}

// finish es la resolución post-acción: un fetch fresco, un snapshot,
// una etapa. mode/return ya consumidos no se reenvían.
func (f *Flow) finish(ctx context.Context, flags QueryFlags) Intent {
	flags.Mode = ""
	intent := f.Evaluate(ctx, flags)
	if intent.Stage != domain.StageNeedsVerification {
		f.nav.Go(intent)
	}
	return intent
}

func nameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return "User"
}
