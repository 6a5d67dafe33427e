package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestSavePreferencesMarksAccount(t *testing.T) {
	env := setupRouter(allowAllLimiter{})
	cookie := registerAndLogin(t, env, "ana@example.com")

	rec := performRequest(env.router, http.MethodPost, "/api/me/preferences", map[string]any{
		"answers": map[string]string{"looking_for": "serious", "city": "madrid"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		OK   bool `json:"ok"`
		User struct {
			PreferencesSaved bool `json:"preferencesSaved"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if !body.OK || !body.User.PreferencesSaved {
		t.Fatalf("expected preferences marked, got %+v", body)
	}
}

func TestChoosePlanAndConfirmPayment(t *testing.T) {
	env := setupRouter(allowAllLimiter{})
	cookie := registerAndLogin(t, env, "ana@example.com")

	for _, path := range []string{"/api/plan/choose", "/api/payment/confirm"} {
		rec := performRequest(env.router, http.MethodPost, path, map[string]string{
			"plan": "elite",
		}, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200 at %s, got %d", path, rec.Code)
		}
		var body struct {
			OK   bool `json:"ok"`
			User struct {
				Plan       string `json:"plan"`
				PlanActive bool   `json:"planActive"`
			} `json:"user"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if !body.OK || body.User.Plan != "tier2" || !body.User.PlanActive {
			t.Fatalf("expected active tier2 at %s, got %+v", path, body)
		}
	}

	rec := performRequest(env.router, http.MethodPost, "/api/plan/choose", map[string]string{}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without plan, got %d", rec.Code)
	}
}

func TestCreateCharge(t *testing.T) {
	env := setupRouter(allowAllLimiter{})
	cookie := registerAndLogin(t, env, "ana@example.com")

	rec := performRequest(env.router, http.MethodPost, "/api/coinbase/create-charge", map[string]string{
		"plan": "plus",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		OK   bool   `json:"ok"`
		URL  string `json:"url"`
		Code string `json:"code"`
		Plan string `json:"plan"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if !body.OK || body.Plan != "tier1" {
		t.Fatalf("expected plan normalized to tier1, got %+v", body)
	}
	if body.Code == "" || body.URL != "https://pay.example.com/charges/"+body.Code {
		t.Fatalf("unexpected checkout url %q for code %q", body.URL, body.Code)
	}

	// planKey creator_access pasa sin normalizar.
	rec = performRequest(env.router, http.MethodPost, "/api/coinbase/create-charge", map[string]string{
		"planKey": "creator_access",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if body.Plan != "creator_access" {
		t.Fatalf("expected creator_access untouched, got %q", body.Plan)
	}

	rec = performRequest(env.router, http.MethodPost, "/api/coinbase/create-charge", map[string]string{}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without plan, got %d", rec.Code)
	}
}

func TestApplyPremiumEndpoint(t *testing.T) {
	env := setupRouter(allowAllLimiter{})
	cookie := registerAndLogin(t, env, "ana@example.com")

	rec := performRequest(env.router, http.MethodPost, "/api/me/premium/apply", map[string]any{
		"fullName": "Ana García", "age": 29, "occupation": "Architect",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		OK     bool   `json:"ok"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if !body.OK || body.Status != "pending" {
		t.Fatalf("expected pending application, got %+v", body)
	}

	rec = performRequest(env.router, http.MethodPost, "/api/me/premium/apply", map[string]any{
		"occupation": "Architect",
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without name and age, got %d", rec.Code)
	}
}

func TestShortlistFallbackAndDecision(t *testing.T) {
	env := setupRouter(allowAllLimiter{})
	cookie := registerAndLogin(t, env, "ana@example.com")

	rec := performRequest(env.router, http.MethodGet, "/api/shortlist", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		OK       bool `json:"ok"`
		Profiles []struct {
			ID string `json:"id"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected body: %v", err)
	}
	if !body.OK || len(body.Profiles) != 5 {
		t.Fatalf("expected 5 fallback profiles, got %d", len(body.Profiles))
	}
	for _, p := range body.Profiles {
		if !strings.HasPrefix(p.ID, "p-") {
			t.Fatalf("unexpected profile id %q", p.ID)
		}
	}

	rec = performRequest(env.router, http.MethodPost, "/api/shortlist/decision", map[string]string{
		"profileId": body.Profiles[0].ID, "action": "like",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodPost, "/api/shortlist/decision", map[string]string{
		"action": "like",
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without profile, got %d", rec.Code)
	}
}

func TestAccountEndpointsRequireSession(t *testing.T) {
	env := setupRouter(allowAllLimiter{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/me/preferences"},
		{http.MethodPost, "/api/plan/choose"},
		{http.MethodPost, "/api/coinbase/create-charge"},
		{http.MethodGet, "/api/shortlist"},
	}
	for _, tc := range paths {
		rec := performRequest(env.router, tc.method, tc.path, map[string]string{"plan": "tier1"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401 at %s, got %d", tc.path, rec.Code)
		}
	}
}
