package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"truematch-funnel/internal/domain"
)

// SessionClient define las lecturas y acciones contra el backend de identidad.
type SessionClient interface {
	FetchIdentity(ctx context.Context) IdentityResult
	PerformAction(ctx context.Context, path string, payload any) ActionResult
	Logout(ctx context.Context)
}

// IdentityResult distingue backend inalcanzable de sesión ausente.
type IdentityResult struct {
	Reachable     bool
	Authenticated bool
	Identity      domain.Identity
}

// ActionResult normaliza las respuestas heterogéneas de los endpoints POST.
type ActionResult struct {
	OK       bool
	Status   int
	Offline  bool
	Message  string
	Verified bool
	URL      string
	Code     string
	User     *domain.PublicUser
}

// Client habla JSON con el backend adjuntando la cookie de sesión.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient construye el cliente apuntando al origen resuelto.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	jar := newCookieJar()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Jar: jar},
		logger:  logger,
	}
}

type meResponse struct {
	OK   bool `json:"ok"`
	User *struct {
		Email              string                     `json:"email"`
		EmailVerified      bool                       `json:"emailVerified"`
		Plan               string                     `json:"plan"`
		PlanActive         bool                       `json:"planActive"`
		PlanEnd            *time.Time                 `json:"planEnd"`
		PreferencesSaved   bool                       `json:"preferencesSaved"`
		PrefsSaved         bool                       `json:"prefsSaved"`
		Prefs              map[string]json.RawMessage `json:"prefs"`
		Preferences        map[string]json.RawMessage `json:"preferences"`
		PremiumStatus      string                     `json:"premiumStatus"`
		HasCreatorAccess   bool                       `json:"hasCreatorAccess"`
	} `json:"user"`
}

// FetchIdentity hace una sola lectura de GET /api/me. Fallas de red o
// cuerpos no-JSON se reportan como inalcanzable, nunca como error.
func (c *Client) FetchIdentity(ctx context.Context) IdentityResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return IdentityResult{}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("identity fetch unreachable", zap.Error(err))
		return IdentityResult{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		c.logger.Warn("identity fetch empty body", zap.Int("status", resp.StatusCode))
		return IdentityResult{}
	}
	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		c.logger.Warn("identity fetch non-json body", zap.Int("status", resp.StatusCode))
		return IdentityResult{}
	}
	if !me.OK || me.User == nil || me.User.Email == "" {
		return IdentityResult{Reachable: true}
	}

	u := me.User
	prefs := u.PreferencesSaved || u.PrefsSaved || len(u.Prefs) > 0 || len(u.Preferences) > 0
	status := domain.PremiumStatus(strings.ToLower(strings.TrimSpace(u.PremiumStatus)))
	if status == "" {
		status = domain.PremiumNone
	}
	return IdentityResult{
		Reachable:     true,
		Authenticated: true,
		Identity: domain.Identity{
			Email:            domain.NormalizeEmail(u.Email),
			EmailVerified:    u.EmailVerified,
			Plan:             domain.NormalizePlan(u.Plan),
			PlanActive:       u.PlanActive,
			PlanEnd:          u.PlanEnd,
			PreferencesSaved: prefs,
			PremiumStatus:    status,
			HasCreatorAccess: u.HasCreatorAccess,
		},
	}
}

// PerformAction hace POST JSON a un endpoint de acción. Si la red falla
// resuelve {ok:true, offline:true, status:0}: el producto sigue usable
// sin backend (modo demo) y la política es fallar abierto.
func (c *Client) PerformAction(ctx context.Context, path string, payload any) ActionResult {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return ActionResult{Status: 0, Message: fmt.Sprintf("encode payload: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return ActionResult{Status: 0, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("action fail-open", zap.String("path", path), zap.Error(err))
		return ActionResult{OK: true, Offline: true, Status: 0}
	}
	defer resp.Body.Close()

	out := ActionResult{OK: resp.StatusCode >= 200 && resp.StatusCode < 300, Status: resp.StatusCode}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil || len(respBody) == 0 {
		return out
	}
	var wire struct {
		OK       *bool              `json:"ok"`
		Message  string             `json:"message"`
		Verified bool               `json:"verified"`
		URL      string             `json:"url"`
		Code     string             `json:"code"`
		User     *domain.PublicUser `json:"user"`
	}
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return out
	}
	if wire.OK != nil {
		out.OK = *wire.OK
	}
	out.Message = wire.Message
	out.Verified = wire.Verified
	out.URL = wire.URL
	out.Code = wire.Code
	out.User = wire.User
	return out
}

// Logout intenta las rutas actual y legadas; gana el primer 2xx.
func (c *Client) Logout(ctx context.Context) {
	for _, path := range []string{"/api/auth/logout", "/api/logout", "/logout"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
		if err != nil {
			continue
		}
		resp, err := c.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return
		}
	}
	c.logger.Warn("logout best-effort exhausted all paths")
}
