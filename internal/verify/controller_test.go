package verify

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"truematch-funnel/internal/api"
	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/funnel"
)

type mockStore struct {
	user     *domain.LocalUserRecord
	prefs    map[string]bool
	verified bool
}

func newMockStore() *mockStore {
	return &mockStore{prefs: make(map[string]bool)}
}

func (m *mockStore) SaveUser(rec domain.LocalUserRecord) { m.user = &rec }

func (m *mockStore) ReadUser() (domain.LocalUserRecord, bool) {
	if m.user == nil {
		return domain.LocalUserRecord{}, false
	}
	return *m.user, true
}

func (m *mockStore) MarkEmailVerified() {
	m.verified = true
	if m.user != nil {
		m.user.EmailVerified = true
	}
}

func (m *mockStore) MarkPreferencesSaved(email string) { m.prefs[email] = true }
func (m *mockStore) HasPreferencesFor(email string) bool {
	return m.prefs[email]
}
func (m *mockStore) SetPlanOverride(domain.Plan)       {}
func (m *mockStore) PlanOverride() (domain.Plan, bool) { return "", false }
func (m *mockStore) SaveConciergeDraft(string)         {}
func (m *mockStore) ConciergeDraft() (string, bool)    { return "", false }
func (m *mockStore) ClearAll()                         { m.user = nil }

type mockClient struct {
	results map[string]api.ActionResult
	calls   []string
}

func newMockClient() *mockClient {
	return &mockClient{results: make(map[string]api.ActionResult)}
}

func (m *mockClient) FetchIdentity(context.Context) api.IdentityResult { return api.IdentityResult{} }

func (m *mockClient) PerformAction(_ context.Context, path string, _ any) api.ActionResult {
	m.calls = append(m.calls, path)
	return m.results[path]
}

func (m *mockClient) Logout(context.Context) {}

type recordingHistory struct {
	current string
}

func (h *recordingHistory) Replace(dest string) { h.current = dest }
func (h *recordingHistory) Current() string     { return h.current }

func newTestController() (*Controller, *mockClient, *mockStore, *recordingHistory, func()) {
	client := newMockClient()
	s := newMockStore()
	hist := &recordingHistory{}
	nav := funnel.NewNavigator(hist, zap.NewNop())
	c := NewController(client, s, nav, zap.NewNop())
	// El timer real dispara desde otra goroutine; acá se capturan los
	// callbacks para dispararlos a mano con fire().
	var pending []func()
	c.afterFn = func(_ time.Duration, fn func()) *time.Timer {
		pending = append(pending, fn)
		return time.NewTimer(time.Hour)
	}
	fire := func() {
		for _, fn := range pending {
			fn()
		}
		pending = nil
	}
	return c, client, s, hist, fire
}

func TestControllerOpenEmailPrecedence(t *testing.T) {
	t.Run("form email", func(t *testing.T) {
		c, client, _, _, _ := newTestController()
		client.results["/api/auth/send-verification-code"] = api.ActionResult{OK: true}

		c.Open(context.Background(), "Typed@X.com", funnel.QueryFlags{})
		if c.State().Email != "typed@x.com" {
			t.Fatalf("expected form email, got %q", c.State().Email)
		}
		if len(client.calls) != 1 {
			t.Fatalf("expected initial send, got %v", client.calls)
		}
	})

	t.Run("cached record fallback", func(t *testing.T) {
		c, client, s, _, _ := newTestController()
		client.results["/api/auth/send-verification-code"] = api.ActionResult{OK: true}
		s.SaveUser(domain.LocalUserRecord{Email: "cached@x.com"})

		c.Open(context.Background(), "", funnel.QueryFlags{})
		if c.State().Email != "cached@x.com" {
			t.Fatalf("expected cached email, got %q", c.State().Email)
		}
	})

	t.Run("no email stays open without sending", func(t *testing.T) {
		c, client, _, _, _ := newTestController()

		c.Open(context.Background(), "", funnel.QueryFlags{})
		if c.State().Phase != PhaseIdle || c.State().Email != "" {
			t.Fatalf("expected open empty dialog, got %+v", c.State())
		}
		if len(client.calls) != 0 {
			t.Fatalf("expected no send without email")
		}
	})
}

func TestControllerSubmitValidatesLocally(t *testing.T) {
	c, client, _, _, _ := newTestController()
	c.Open(context.Background(), "", funnel.QueryFlags{})

	if c.Submit(context.Background(), "123456") {
		t.Fatalf("expected submit rejected without email")
	}
	if c.State().Message != "Email missing. Please reopen and try again." {
		t.Fatalf("unexpected message %q", c.State().Message)
	}

	c.SetEmail("user@x.com")
	if c.Submit(context.Background(), "   ") {
		t.Fatalf("expected submit rejected without code")
	}
	if c.State().Message != "Enter the code." {
		t.Fatalf("unexpected message %q", c.State().Message)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no network calls for local validation, got %v", client.calls)
	}
}

func TestControllerSubmitSuccessAdvances(t *testing.T) {
	c, client, s, hist, _ := newTestController()
	client.results["/api/auth/send-verification-code"] = api.ActionResult{OK: true}
	client.results["/api/auth/verify-email-code"] = api.ActionResult{OK: true, Verified: true}
	s.SaveUser(domain.LocalUserRecord{Email: "user@x.com"})

	c.Open(context.Background(), "", funnel.QueryFlags{Demo: true, PrePlan: domain.PlanTier1, Verify: true})
	if !c.Submit(context.Background(), "123456") {
		t.Fatalf("expected submit to advance")
	}
	if !s.verified {
		t.Fatalf("expected local cache marked verified before navigation")
	}
	if c.State().Phase != PhaseClosed {
		t.Fatalf("expected dialog closed")
	}
	if hist.current != "/preferences.html?demo=1&onboarding=1&prePlan=tier1" {
		t.Fatalf("unexpected destination %q", hist.current)
	}
}

func TestControllerSubmitFailureShowsServerMessage(t *testing.T) {
	c, client, s, hist, _ := newTestController()
	client.results["/api/auth/send-verification-code"] = api.ActionResult{OK: true}
	client.results["/api/auth/verify-email-code"] = api.ActionResult{Status: 400, Message: "Code expired. Resend and try again."}
	s.SaveUser(domain.LocalUserRecord{Email: "user@x.com"})

	c.Open(context.Background(), "", funnel.QueryFlags{})
	if c.Submit(context.Background(), "000000") {
		t.Fatalf("expected submit failure")
	}
	if c.State().Phase != PhaseIdle {
		t.Fatalf("expected dialog still open")
	}
	if c.State().Message != "Code expired. Resend and try again." {
		t.Fatalf("unexpected message %q", c.State().Message)
	}
	if s.verified {
		t.Fatalf("expected cache untouched on failure")
	}
	if hist.current != "" {
		t.Fatalf("expected no navigation on failure")
	}
}

func TestControllerResendTransientMessages(t *testing.T) {
	c, client, s, _, fire := newTestController()
	s.SaveUser(domain.LocalUserRecord{Email: "user@x.com"})
	client.results["/api/auth/send-verification-code"] = api.ActionResult{Status: 429, Message: "Too many codes requested. Wait a few minutes."}

	var seen []string
	c.Subscribe(func(st State) { seen = append(seen, st.Message) })

	c.Open(context.Background(), "", funnel.QueryFlags{})
	if c.State().Message != "Failed to send. Try again." {
		t.Fatalf("expected failure message visible, got %q", c.State().Message)
	}
	// fire() dispara la limpieza diferida del timer capturado.
	fire()
	found := false
	for _, msg := range seen {
		if msg == "Failed to send. Try again." {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected failure message emitted, got %v", seen)
	}
	if c.State().Message != "" {
		t.Fatalf("expected transient message cleared, got %q", c.State().Message)
	}
}

func TestControllerCloseDiscardsState(t *testing.T) {
	c, client, _, _, _ := newTestController()
	client.results["/api/auth/send-verification-code"] = api.ActionResult{OK: true}

	c.Open(context.Background(), "user@x.com", funnel.QueryFlags{})
	c.Close()
	if c.State().Phase != PhaseClosed {
		t.Fatalf("expected closed phase")
	}
	// Operar sobre un diálogo cerrado es un no-op.
	c.Resend(context.Background())
	if len(client.calls) != 1 {
		t.Fatalf("expected no send after close, got %v", client.calls)
	}
}

func TestControllerClearTimerConcurrentAccess(t *testing.T) {
	client := newMockClient()
	s := newMockStore()
	hist := &recordingHistory{}
	nav := funnel.NewNavigator(hist, zap.NewNop())
	c := NewController(client, s, nav, zap.NewNop())
	// Timer real con delay corto: el callback de limpieza corre en su
	// propia goroutine mientras el test sigue mutando el estado.
	c.afterFn = func(_ time.Duration, fn func()) *time.Timer {
		return time.AfterFunc(time.Millisecond, fn)
	}
	s.SaveUser(domain.LocalUserRecord{Email: "user@x.com"})
	c.Subscribe(func(State) {})

	// El envío falla y deja armado el timer de limpieza.
	c.Open(context.Background(), "", funnel.QueryFlags{})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			c.SetEmail("user@x.com")
			_ = c.State()
		}
		close(done)
	}()
	<-done

	deadline := time.Now().Add(2 * time.Second)
	for c.State().Message != "" {
		if time.Now().After(deadline) {
			t.Fatalf("expected transient message cleared, got %q", c.State().Message)
		}
		time.Sleep(time.Millisecond)
	}
	if c.State().Phase != PhaseIdle || c.State().Email != "user@x.com" {
		t.Fatalf("unexpected final state %+v", c.State())
	}
}
