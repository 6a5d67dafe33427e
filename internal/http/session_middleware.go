package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/repository"
	"truematch-funnel/internal/service"
)

// SessionCookieName es la cookie HttpOnly que transporta el token de sesión.
const SessionCookieName = "tm_session"

const contextUserKey = "session_user"

// SessionMiddleware resuelve la cookie de sesión y carga la cuenta.
// Con required=false deja pasar sin usuario en contexto.
func SessionMiddleware(sessions *service.SessionService, accounts repository.AccountRepository, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "not authenticated"})
				return
			}
			c.Next()
			return
		}
		claims, err := sessions.Parse(token)
		if err != nil {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "session expired"})
				return
			}
			c.Next()
			return
		}
		user, err := accounts.GetByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			if required {
				if errors.Is(err, repository.ErrNotFound) {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "not authenticated"})
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "could not load account"})
				return
			}
			c.Next()
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

func sessionUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
