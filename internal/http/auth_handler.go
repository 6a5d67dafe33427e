package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticación.
type AuthHandler struct {
	logger      *zap.Logger
	accountServ *service.AccountService
	sessionServ *service.SessionService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, accountServ *service.AccountService, sessionServ *service.SessionService) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		accountServ: accountServ,
		sessionServ: sessionServ,
	}
}

// Register maneja POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}

	user, err := h.accountServ.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"ok": false, "message": "Email already registered."})
			return
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
			return
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not register"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": user.Public()})
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}

	user, err := h.accountServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "Invalid email or password."})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not login"})
		return
	}

	if !h.setSessionCookie(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user.Public()})
}

// OAuthMock maneja POST /api/auth/oauth/mock.
func (h *AuthHandler) OAuthMock(c *gin.Context) {
	var req struct {
		Provider string `json:"provider"`
	}
	_ = c.ShouldBindJSON(&req)

	user, err := h.accountServ.UpsertOAuthMock(c.Request.Context(), req.Provider)
	if err != nil {
		h.logger.Error("oauth mock failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not complete oauth"})
		return
	}

	if !h.setSessionCookie(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user.Public()})
}

// SendVerificationCode maneja POST /api/auth/send-verification-code.
func (h *AuthHandler) SendVerificationCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send code request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}

	err := h.accountServ.RequestVerificationCode(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "message": "Too many codes requested. Wait a few minutes."})
			return
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "Account not found."})
			return
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "message": "email delivery unavailable"})
			return
		default:
			h.logger.Error("send verification code failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not send code"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// VerifyEmailCode maneja POST /api/auth/verify-email-code.
func (h *AuthHandler) VerifyEmailCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify code request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid request"})
		return
	}

	user, err := h.accountServ.VerifyEmailCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "Account not found."})
			return
		case errors.Is(err, service.ErrOTPNotRequested):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "No code was requested. Resend and try again."})
			return
		case errors.Is(err, service.ErrOTPExpired):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Code expired. Resend and try again."})
			return
		case errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid code."})
			return
		default:
			h.logger.Error("verify email code failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not verify code"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "verified": true, "user": user.Public()})
}

// Logout maneja POST en las tres rutas históricas de logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookieName); err == nil && token != "" {
		_ = h.sessionServ.Revoke(token)
	}
	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, user domain.User) bool {
	token, err := h.sessionServ.Issue(user)
	if err != nil {
		h.logger.Error("session issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not start session"})
		return false
	}
	c.SetCookie(SessionCookieName, token, int(h.sessionServ.TTL().Seconds()), "/", "", false, true)
	return true
}
