package service

import (
	"errors"
	"testing"
	"time"

	"truematch-funnel/internal/domain"
)

func TestSessionIssueAndParse(t *testing.T) {
	svc := NewSessionService("test-secret", time.Hour)
	user := domain.User{ID: "u1", Email: "user@example.com"}

	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "user@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSessionParseRejectsGarbage(t *testing.T) {
	svc := NewSessionService("test-secret", time.Hour)

	if _, err := svc.Parse(""); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for empty token, got %v", err)
	}
	if _, err := svc.Parse("not.a.token"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for garbage, got %v", err)
	}
}

func TestSessionParseRejectsWrongSecret(t *testing.T) {
	issuer := NewSessionService("secret-a", time.Hour)
	verifier := NewSessionService("secret-b", time.Hour)

	token, err := issuer.Issue(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := verifier.Parse(token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	svc := NewSessionService("test-secret", time.Nanosecond)

	token, err := svc.Issue(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := svc.Parse(token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionRevoke(t *testing.T) {
	svc := NewSessionService("test-secret", time.Hour)

	token, err := svc.Issue(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Revoke(token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Parse(token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected revoked token rejected, got %v", err)
	}

	// Revocar basura no falla: el logout nunca rebota hacia el cliente.
	if err := svc.Revoke("garbage"); err != nil {
		t.Fatalf("expected nil for garbage revoke, got %v", err)
	}
}

func TestMemorySessionTokenStoreExpiry(t *testing.T) {
	store := NewMemorySessionTokenStore()
	if err := store.Store("jti-1", "u1", time.Nanosecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	ok, err := store.Exists("jti-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected expired jti evicted")
	}
}
