package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestTopMatchesFallbackWithoutRepository(t *testing.T) {
	svc := NewShortlistService(zap.NewNop(), nil)

	profiles, err := svc.TopMatches(context.Background(), "ana@example.com", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 5 {
		t.Fatalf("expected 5 fallback profiles, got %d", len(profiles))
	}

	profiles, err = svc.TopMatches(context.Background(), "ana@example.com", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 || profiles[0].ID != "p-ana" {
		t.Fatalf("unexpected truncated fallback %+v", profiles)
	}
}

func TestEmbedAnswersDeterministic(t *testing.T) {
	a := map[string]string{"city": "madrid", "looking_for": "serious"}
	b := map[string]string{"looking_for": "serious", "city": "madrid"}

	va := embedAnswers(a).Slice()
	vb := embedAnswers(b).Slice()
	if len(va) != embeddingDim {
		t.Fatalf("expected %d coordinates, got %d", embeddingDim, len(va))
	}
	for i := range va {
		if va[i] != vb[i] {
			t.Fatalf("expected order-independent embedding, diverged at %d", i)
		}
	}

	vc := embedAnswers(map[string]string{"city": "bilbao", "looking_for": "serious"}).Slice()
	same := true
	for i := range va {
		if va[i] != vc[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected distinct answers to produce a distinct embedding")
	}
}

func TestDecideWithoutRepositoryIsNoop(t *testing.T) {
	svc := NewShortlistService(zap.NewNop(), nil)
	if err := svc.Decide(context.Background(), "ana@example.com", "p-ana", "superlike"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
