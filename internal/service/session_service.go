package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"truematch-funnel/internal/domain"
)

// SessionService emite y valida el token de sesión que viaja en la
// cookie tm_session.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  SessionTokenStore
}

type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var (
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
)

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "truematch-funnel",
		store:  NewMemorySessionTokenStore(),
	}
}

func NewSessionServiceWithStore(secret string, ttl time.Duration, store SessionTokenStore) *SessionService {
	svc := NewSessionService(secret, ttl)
	if store != nil {
		svc.store = store
	}
	return svc
}

// TTL expone la duración para configurar la cookie con el mismo plazo.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue firma un token de sesión y registra su jti para poder revocarlo.
func (s *SessionService) Issue(user domain.User) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSessionInvalid
	}
	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := SessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if s.store != nil {
		if err := s.store.Store(jti, user.ID, s.ttl); err != nil {
			return "", err
		}
	}
	return signed, nil
}

// Parse valida firma, expiración, issuer y que la sesión no haya sido
// revocada.
func (s *SessionService) Parse(tokenString string) (SessionClaims, error) {
	if len(s.secret) == 0 {
		return SessionClaims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return SessionClaims{}, ErrSessionInvalid
	}
	var claims SessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrSessionInvalid
	}
	if !s.isValidClaims(claims) {
		return SessionClaims{}, ErrSessionInvalid
	}
	if s.store != nil {
		ok, err := s.store.Exists(claims.ID)
		if err != nil || !ok {
			return SessionClaims{}, ErrSessionInvalid
		}
	}
	return claims, nil
}

// Revoke invalida el token; tolera tokens ya inválidos porque el logout
// nunca debe fallar hacia el cliente.
func (s *SessionService) Revoke(tokenString string) error {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return nil
	}
	var claims SessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil
	}
	if claims.ID == "" || s.store == nil {
		return nil
	}
	return s.store.Revoke(claims.ID)
}

func (s *SessionService) isValidClaims(claims SessionClaims) bool {
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if strings.TrimSpace(claims.Email) == "" {
		return false
	}
	if claims.ID == "" {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
