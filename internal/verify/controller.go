package verify

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"truematch-funnel/internal/api"
	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/funnel"
	"truematch-funnel/internal/store"
)

// Phase enumera los estados del diálogo de verificación.
type Phase string

const (
	PhaseClosed    Phase = "closed"
	PhaseIdle      Phase = "idle"
	PhaseSending   Phase = "sending"
	PhaseVerifying Phase = "verifying"
)

// State es lo que la capa de presentación renderiza en cada cambio.
type State struct {
	Phase   Phase
	Email   string
	Message string
}

const messageClearDelay = 1500 * time.Millisecond

// Controller es la máquina de estados interactiva del sub-flujo de
// verificación. Emite cambios de estado a suscriptores; no renderiza.
// El callback del timer de limpieza corre en su propia goroutine, así
// que mu protege state, listeners y el timer.
type Controller struct {
	api    api.SessionClient
	store  store.SessionStore
	nav    *funnel.Navigator
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	flags     funnel.QueryFlags
	listeners []func(State)
	clearTmr  *time.Timer
	clearSeq  int

	afterFn func(time.Duration, func()) *time.Timer
}

func NewController(client api.SessionClient, s store.SessionStore, nav *funnel.Navigator, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		api:     client,
		store:   s,
		nav:     nav,
		logger:  logger,
		state:   State{Phase: PhaseClosed},
		afterFn: time.AfterFunc,
	}
}

// Subscribe registra un listener de cambios de estado.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// State devuelve el estado actual del diálogo.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open abre el diálogo determinando el correo objetivo: primero el valor
// ya mostrado, luego el del formulario activo, luego el registro local;
// sin ninguno queda abierto vacío hasta que se tipee un correo. Al abrir
// con correo se envía el código inicial.
func (c *Controller) Open(ctx context.Context, formEmail string, flags funnel.QueryFlags) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags = flags

	email := c.state.Email
	if email == "" {
		email = domain.NormalizeEmail(formEmail)
	}
	if email == "" {
		if rec, ok := c.store.ReadUser(); ok {
			email = rec.Email
		}
	}

	c.setState(State{Phase: PhaseIdle, Email: email})
	if email != "" {
		c.resend(ctx)
	}
}

// SetEmail fija el correo tipeado en un diálogo abierto vacío.
func (c *Controller) SetEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == PhaseClosed {
		return
	}
	c.state.Email = domain.NormalizeEmail(email)
	c.emit()
}

// Resend pide un código nuevo. Un fallo muestra un error transitorio que
// se limpia solo tras el delay fijo, sin cerrar el diálogo.
func (c *Controller) Resend(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resend(ctx)
}

func (c *Controller) resend(ctx context.Context) {
	if c.state.Phase == PhaseClosed {
		return
	}
	if c.state.Email == "" {
		c.transientMessage("Failed to send. Try again.")
		return
	}
	c.setState(State{Phase: PhaseSending, Email: c.state.Email, Message: "Sending…"})

	res := c.api.PerformAction(ctx, "/api/auth/send-verification-code", map[string]string{"email": c.state.Email})
	c.state.Phase = PhaseIdle
	if res.OK {
		c.transientMessage("Sent. Check your inbox.")
		return
	}
	c.transientMessage("Failed to send. Try again.")
}

// Submit valida localmente, verifica contra el backend y, en éxito,
// marca la caché como verificada antes de cerrar, para que la siguiente
// evaluación del resolver no reabra este diálogo aunque el backend aún
// no refleje el flag. Devuelve true cuando avanzó de etapa.
func (c *Controller) Submit(ctx context.Context, code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == PhaseClosed {
		return false
	}
	code = strings.TrimSpace(code)
	email := c.state.Email

	if email == "" {
		c.inlineMessage("Email missing. Please reopen and try again.")
		return false
	}
	if code == "" {
		c.inlineMessage("Enter the code.")
		return false
	}

	c.setState(State{Phase: PhaseVerifying, Email: email, Message: "Verifying…"})
	res := c.api.PerformAction(ctx, "/api/auth/verify-email-code", map[string]string{"email": email, "code": code})

	ok := res.OK || res.Verified
	if !ok {
		msg := res.Message
		if msg == "" {
			msg = "Invalid code."
		}
		c.state.Phase = PhaseIdle
		c.inlineMessage(msg)
		return false
	}

	c.store.MarkEmailVerified()
	c.close()

	// Avance directo a preferencias, con verify consumido: sin segunda
	// pasada completa del resolver, sin parpadeo.
	next := c.flags
	next.Verify = false
	next.Return = ""
	c.nav.Go(funnel.Intent{
		Stage: domain.StageNeedsPreferences,
		Carry: funnel.CarryParams{Demo: next.Demo, PrePlan: next.PrePlan},
	})
	return true
}

// Close cierra el diálogo y descarta mensajes pendientes.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
}

func (c *Controller) close() {
	if c.clearTmr != nil {
		c.clearTmr.Stop()
		c.clearTmr = nil
	}
	c.clearSeq++
	c.setState(State{Phase: PhaseClosed})
}

func (c *Controller) inlineMessage(msg string) {
	c.state.Message = msg
	c.emit()
}

func (c *Controller) transientMessage(msg string) {
	c.inlineMessage(msg)
	if c.clearTmr != nil {
		c.clearTmr.Stop()
	}
	// clearSeq invalida limpiezas ya disparadas pero aún no ejecutadas.
	c.clearSeq++
	seq := c.clearSeq
	c.clearTmr = c.afterFn(messageClearDelay, func() { c.clearTransient(seq) })
}

func (c *Controller) clearTransient(seq int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.clearSeq || c.state.Phase == PhaseClosed {
		return
	}
	c.state.Message = ""
	c.emit()
}

func (c *Controller) setState(s State) {
	c.state = s
	c.emit()
}

func (c *Controller) emit() {
	for _, fn := range c.listeners {
		fn(c.state)
	}
}
