package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"truematch-funnel/internal/domain"
)

// Claves locales con namespace, una entrada JSON por clave.
const (
	keyUser           = "tm_user"
	keyPrefsByUser    = "tm_prefs_by_user"
	keyPlanOverride   = "tm_plan_override"
	keyConciergeDraft = "tm_concierge_draft"
)

// SessionStore es el contrato estrecho de lectura/escritura de sesión local.
// Toda operación es best-effort: almacenamiento ausente o corrupto se
// degrada al valor "ausente" y las escrituras fallidas se tragan.
type SessionStore interface {
	SaveUser(rec domain.LocalUserRecord)
	ReadUser() (domain.LocalUserRecord, bool)
	MarkEmailVerified()
	MarkPreferencesSaved(email string)
	HasPreferencesFor(email string) bool
	SetPlanOverride(plan domain.Plan)
	PlanOverride() (domain.Plan, bool)
	SaveConciergeDraft(text string)
	ConciergeDraft() (string, bool)
	ClearAll()
}

// FileStore persiste las claves en un único archivo JSON local.
type FileStore struct {
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) load() map[string]json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]json.RawMessage{}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		s.logger.Warn("local store unparseable, treating as empty", zap.String("path", s.path))
		return map[string]json.RawMessage{}
	}
	return m
}

func (s *FileStore) save(m map[string]json.RawMessage) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if dir := filepath.Dir(s.path); dir != "." {
		_ = os.MkdirAll(dir, 0o700)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.Warn("local store write failed", zap.Error(err))
	}
}

func (s *FileStore) set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	m := s.load()
	m[key] = raw
	s.save(m)
}

func (s *FileStore) get(key string, out any) bool {
	raw, ok := s.load()[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// SaveUser sobreescribe el registro local tras cada auth exitosa.
func (s *FileStore) SaveUser(rec domain.LocalUserRecord) {
	rec.Email = domain.NormalizeEmail(rec.Email)
	if rec.ID == "" {
		rec.ID = "local-demo"
	}
	if rec.Name == "" {
		rec.Name = "User"
	}
	s.set(keyUser, rec)
}

func (s *FileStore) ReadUser() (domain.LocalUserRecord, bool) {
	var rec domain.LocalUserRecord
	if !s.get(keyUser, &rec) || rec.Email == "" {
		return domain.LocalUserRecord{}, false
	}
	rec.Email = domain.NormalizeEmail(rec.Email)
	return rec, true
}

// MarkEmailVerified muta el registro cacheado en el acto para cortar el
// loop de redirección mientras el backend propaga el flag.
func (s *FileStore) MarkEmailVerified() {
	rec, ok := s.ReadUser()
	if !ok {
		return
	}
	rec.EmailVerified = true
	s.set(keyUser, rec)
}

// MarkPreferencesSaved es monotónico por correo: nunca vuelve a false.
func (s *FileStore) MarkPreferencesSaved(email string) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return
	}
	prefs := map[string]bool{}
	s.get(keyPrefsByUser, &prefs)
	prefs[email] = true
	s.set(keyPrefsByUser, prefs)
}

func (s *FileStore) HasPreferencesFor(email string) bool {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return false
	}
	prefs := map[string]bool{}
	if !s.get(keyPrefsByUser, &prefs) {
		return false
	}
	return prefs[email]
}

func (s *FileStore) SetPlanOverride(plan domain.Plan) {
	s.set(keyPlanOverride, plan)
}

func (s *FileStore) PlanOverride() (domain.Plan, bool) {
	var plan domain.Plan
	if !s.get(keyPlanOverride, &plan) || plan == "" {
		return "", false
	}
	return plan, true
}

func (s *FileStore) SaveConciergeDraft(text string) {
	if text == "" {
		return
	}
	s.set(keyConciergeDraft, text)
}

func (s *FileStore) ConciergeDraft() (string, bool) {
	var text string
	if !s.get(keyConciergeDraft, &text) || text == "" {
		return "", false
	}
	return text, true
}

// ClearAll borra todas las claves; se invoca sólo en logout explícito.
func (s *FileStore) ClearAll() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("local store clear failed", zap.Error(err))
	}
}
