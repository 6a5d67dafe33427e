package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"truematch-funnel/internal/repository"
	"truematch-funnel/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	sessions *service.SessionService,
	authH *AuthHandler,
	accountH *AccountHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	requireSession := SessionMiddleware(sessions, accounts, true)

	auth := r.Group("/api/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/oauth/mock", authH.OAuthMock)
	auth.POST("/send-verification-code", authH.SendVerificationCode)
	auth.POST("/verify-email-code", authH.VerifyEmailCode)

	// Clientes viejos golpean cualquiera de las tres rutas de logout.
	r.POST("/api/auth/logout", authH.Logout)
	r.POST("/api/logout", authH.Logout)
	r.POST("/logout", authH.Logout)

	api := r.Group("/api", requireSession)
	api.GET("/me", accountH.Me)
	api.POST("/me/preferences", accountH.SavePreferences)
	api.POST("/me/profile", accountH.UpdateProfile)
	api.POST("/me/premium/apply", accountH.ApplyPremium)
	api.POST("/plan/choose", accountH.ChoosePlan)
	api.POST("/payment/confirm", accountH.ConfirmPayment)
	api.POST("/coinbase/create-charge", accountH.CreateCharge)
	api.GET("/shortlist", accountH.Shortlist)
	api.POST("/shortlist/decision", accountH.DecideShortlist)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
