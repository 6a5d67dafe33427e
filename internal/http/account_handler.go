package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/service"
)

// AccountHandler atiende los endpoints de cuenta una vez autenticado.
type AccountHandler struct {
	logger        *zap.Logger
	accountServ   *service.AccountService
	shortlistServ *service.ShortlistService
	checkoutBase  string
}

func NewAccountHandler(logger *zap.Logger, accountServ *service.AccountService, shortlistServ *service.ShortlistService, checkoutBase string) *AccountHandler {
	return &AccountHandler{
		logger:        logger,
		accountServ:   accountServ,
		shortlistServ: shortlistServ,
		checkoutBase:  strings.TrimRight(checkoutBase, "/"),
	}
}

// Me maneja GET /api/me.
func (h *AccountHandler) Me(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user.Public()})
}

// SavePreferences maneja POST /api/me/preferences.
func (h *AccountHandler) SavePreferences(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid preferences request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}

	updated, err := h.accountServ.SavePreferences(c.Request.Context(), user.Email)
	if err != nil {
		h.logger.Error("save preferences failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not save preferences"})
		return
	}
	if h.shortlistServ != nil && len(req.Answers) > 0 {
		// Indexado best-effort: las preferencias ya quedaron guardadas.
		_ = h.shortlistServ.IndexPreferences(c.Request.Context(), user.Email, req.Answers)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": updated.Public()})
}

// UpdateProfile maneja POST /api/me/profile.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}
	if err := h.accountServ.UpdateProfile(c.Request.Context(), user.Email, req.Name); err != nil {
		h.logger.Error("update profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ChoosePlan maneja POST /api/plan/choose.
func (h *AccountHandler) ChoosePlan(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	var req struct {
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}
	updated, err := h.accountServ.ChoosePlan(c.Request.Context(), user.Email, req.Plan)
	if err != nil {
		h.logger.Error("choose plan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not activate plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": updated.Public()})
}

// ConfirmPayment maneja POST /api/payment/confirm, el camino sin checkout
// externo: activa el plan directamente.
func (h *AccountHandler) ConfirmPayment(c *gin.Context) {
	h.ChoosePlan(c)
}

// CreateCharge maneja POST /api/coinbase/create-charge. Genera la URL de
// checkout alojado; el plan se activa al confirmar el pago. Además de
// planes acepta planKey "creator_access".
func (h *AccountHandler) CreateCharge(c *gin.Context) {
	if _, ok := sessionUser(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	var req struct {
		Plan    string `json:"plan"`
		PlanKey string `json:"planKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}
	key := strings.TrimSpace(req.PlanKey)
	if key == "" {
		key = strings.TrimSpace(req.Plan)
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}
	if key != "creator_access" {
		key = string(domain.NormalizePlan(key))
	}
	code := strings.Split(uuid.NewString(), "-")[0]
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"url":  h.checkoutBase + "/" + code,
		"code": code,
		"plan": key,
	})
}

// ApplyPremium maneja POST /api/me/premium/apply.
func (h *AccountHandler) ApplyPremium(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	var req struct {
		FullName   string `json:"fullName" binding:"required"`
		Age        int    `json:"age" binding:"required"`
		Occupation string `json:"occupation"`
		Finance    string `json:"finance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}
	app := domain.PremiumApplication{
		FullName:   req.FullName,
		Age:        req.Age,
		Occupation: req.Occupation,
		Finance:    req.Finance,
	}
	if err := h.accountServ.ApplyPremium(c.Request.Context(), user.Email, app); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "Account not found."})
			return
		}
		h.logger.Error("premium apply failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not submit application"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": string(domain.PremiumPending)})
}

// Shortlist maneja GET /api/shortlist.
func (h *AccountHandler) Shortlist(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	profiles, err := h.shortlistServ.TopMatches(c.Request.Context(), user.Email, 5)
	if err != nil {
		h.logger.Error("shortlist failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not load shortlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profiles": profiles})
}

// DecideShortlist maneja POST /api/shortlist/decision.
func (h *AccountHandler) DecideShortlist(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}
	var req struct {
		ProfileID string `json:"profileId" binding:"required"`
		Action    string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}
	if err := h.shortlistServ.Decide(c.Request.Context(), user.Email, req.ProfileID, req.Action); err != nil {
		h.logger.Error("shortlist decide failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not record decision"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
