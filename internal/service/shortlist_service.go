package service

import (
	"context"
	"crypto/sha256"
	"sort"

	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"truematch-funnel/internal/domain"
	"truematch-funnel/internal/repository"
)

const embeddingDim = 16

// ShortlistService arma la lista diaria de candidatos a partir del
// vector de preferencias. Sin base vectorial sirve una lista fija.
type ShortlistService struct {
	logger    *zap.Logger
	shortlist repository.ShortlistRepository
}

func NewShortlistService(logger *zap.Logger, shortlist repository.ShortlistRepository) *ShortlistService {
	return &ShortlistService{logger: logger, shortlist: shortlist}
}

// IndexPreferences convierte las respuestas del cuestionario en un
// embedding estable y lo persiste para el ranking por distancia coseno.
func (s *ShortlistService) IndexPreferences(ctx context.Context, email string, answers map[string]string) error {
	if s.shortlist == nil {
		return nil
	}
	vec := embedAnswers(answers)
	if err := s.shortlist.SavePreferenceVector(ctx, email, vec); err != nil {
		if s.logger != nil {
			s.logger.Warn("save preference vector failed", zap.Error(err), zap.String("email", email))
		}
		return err
	}
	return nil
}

// TopMatches devuelve hasta k candidatos sin decisión previa.
func (s *ShortlistService) TopMatches(ctx context.Context, email string, k int) ([]domain.MatchProfile, error) {
	if k <= 0 {
		k = 5
	}
	if s.shortlist == nil {
		return fallbackProfiles(k), nil
	}
	matches, err := s.shortlist.TopMatches(ctx, email, k)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("shortlist query failed", zap.Error(err), zap.String("email", email))
		}
		return fallbackProfiles(k), nil
	}
	if len(matches) == 0 {
		return fallbackProfiles(k), nil
	}
	return matches, nil
}

// Decide registra like o pass para no repetir el perfil.
func (s *ShortlistService) Decide(ctx context.Context, email, profileID, action string) error {
	if action != "like" && action != "pass" {
		action = "pass"
	}
	if s.shortlist == nil {
		return nil
	}
	return s.shortlist.RecordDecision(ctx, email, profileID, action)
}

// embedAnswers proyecta cada par pregunta/respuesta a coordenadas fijas
// del vector. Determinista: mismas respuestas, mismo embedding.
func embedAnswers(answers map[string]string) pgvector.Vector {
	coords := make([]float32, embeddingDim)
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sum := sha256.Sum256([]byte(k + "=" + answers[k]))
		for i := 0; i < embeddingDim; i++ {
			coords[i] += float32(int8(sum[i])) / 128
		}
	}
	return pgvector.NewVector(coords)
}

var fallbackShortlist = []domain.MatchProfile{
	{ID: "p-ana", Name: "Ana", Age: 29, Bio: "Architect, weekend climber."},
	{ID: "p-lucas", Name: "Lucas", Age: 33, Bio: "Chef who reads too much sci-fi."},
	{ID: "p-maria", Name: "María", Age: 27, Bio: "Violinist, early riser."},
	{ID: "p-diego", Name: "Diego", Age: 31, Bio: "Product designer, amateur barista."},
	{ID: "p-sofia", Name: "Sofía", Age: 30, Bio: "Marine biologist between expeditions."},
}

func fallbackProfiles(k int) []domain.MatchProfile {
	if k > len(fallbackShortlist) {
		k = len(fallbackShortlist)
	}
	out := make([]domain.MatchProfile, k)
	copy(out, fallbackShortlist[:k])
	return out
}
