package store

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"truematch-funnel/internal/domain"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "tm_local.json"), zap.NewNop())
}

func TestFileStoreSaveAndReadUser(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.ReadUser(); ok {
		t.Fatalf("expected empty store")
	}

	s.SaveUser(domain.LocalUserRecord{Email: "  User@Example.com ", Plan: domain.PlanTier1})
	rec, ok := s.ReadUser()
	if !ok {
		t.Fatalf("expected record after save")
	}
	if rec.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", rec.Email)
	}
	if rec.ID != "local-demo" || rec.Name != "User" {
		t.Fatalf("expected defaults applied, got %+v", rec)
	}
}

func TestFileStoreCorruptFileDegradesToAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tm_local.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, zap.NewNop())

	if _, ok := s.ReadUser(); ok {
		t.Fatalf("expected absent user from corrupt file")
	}
	if s.HasPreferencesFor("user@example.com") {
		t.Fatalf("expected absent preferences from corrupt file")
	}
	if _, ok := s.PlanOverride(); ok {
		t.Fatalf("expected absent override from corrupt file")
	}

	// Escribir sobre un archivo corrupto lo reemplaza sin error.
	s.SaveUser(domain.LocalUserRecord{Email: "user@example.com"})
	if _, ok := s.ReadUser(); !ok {
		t.Fatalf("expected record after overwriting corrupt file")
	}
}

func TestFileStoreMarkEmailVerified(t *testing.T) {
	s := newTestStore(t)

	// Sin registro no hay nada que marcar.
	s.MarkEmailVerified()

	s.SaveUser(domain.LocalUserRecord{ID: "u1", Email: "user@example.com", Name: "User"})
	s.MarkEmailVerified()
	rec, _ := s.ReadUser()
	if !rec.EmailVerified {
		t.Fatalf("expected verified flag set in place")
	}
}

func TestFileStorePreferencesMonotonic(t *testing.T) {
	s := newTestStore(t)

	if s.HasPreferencesFor("a@x.com") {
		t.Fatalf("expected no preferences initially")
	}
	s.MarkPreferencesSaved("A@X.com")
	if !s.HasPreferencesFor("a@x.com") {
		t.Fatalf("expected preferences after mark, case-insensitive")
	}
	// Re-marcar no cambia nada y otros correos no se ven afectados.
	s.MarkPreferencesSaved("a@x.com")
	if !s.HasPreferencesFor("a@x.com") || s.HasPreferencesFor("b@x.com") {
		t.Fatalf("expected per-email flag")
	}
}

func TestFileStorePlanOverrideAndDraft(t *testing.T) {
	s := newTestStore(t)

	s.SetPlanOverride(domain.PlanTier2)
	if plan, ok := s.PlanOverride(); !ok || plan != domain.PlanTier2 {
		t.Fatalf("expected tier2 override, got %v %v", plan, ok)
	}

	s.SaveConciergeDraft("meet at eight")
	if draft, ok := s.ConciergeDraft(); !ok || draft != "meet at eight" {
		t.Fatalf("expected draft, got %q %v", draft, ok)
	}
}

func TestFileStoreClearAll(t *testing.T) {
	s := newTestStore(t)
	s.SaveUser(domain.LocalUserRecord{Email: "user@example.com"})
	s.MarkPreferencesSaved("user@example.com")
	s.SetPlanOverride(domain.PlanTier1)
	s.SaveConciergeDraft("draft")

	s.ClearAll()
	if _, ok := s.ReadUser(); ok {
		t.Fatalf("expected user cleared")
	}
	if s.HasPreferencesFor("user@example.com") {
		t.Fatalf("expected preferences cleared")
	}
	if _, ok := s.PlanOverride(); ok {
		t.Fatalf("expected override cleared")
	}
	if _, ok := s.ConciergeDraft(); ok {
		t.Fatalf("expected draft cleared")
	}

	// Limpiar dos veces no falla.
	s.ClearAll()
}
