package memory

import (
	"context"
	"fmt"
	"testing"

	"offline-quiz-service/internal/domain"
)

func TestRandomSampleWithoutReplacement(t *testing.T) {
	ctx := context.Background()
	cache := NewQuestionCache()
	if err := cache.ReplaceQuestions(ctx, 2, sampleQuestions(12)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	picked, err := cache.RandomSample(ctx, 5)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(picked) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(picked))
	}
	seen := make(map[string]bool)
	for _, q := range picked {
		if seen[q.ID] {
			t.Fatalf("question %s sampled twice", q.ID)
		}
		seen[q.ID] = true
	}

	all, _ := cache.RandomSample(ctx, 50)
	if len(all) != 12 {
		t.Fatalf("expected all 12 questions when asking for more, got %d", len(all))
	}
}

func TestRandomSampleByCategoryFilters(t *testing.T) {
	ctx := context.Background()
	cache := NewQuestionCache()
	_ = cache.ReplaceQuestions(ctx, 1, sampleQuestions(9))

	picked, err := cache.RandomSampleByCategory(ctx, "science", 10)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(picked) != 3 {
		t.Fatalf("expected 3 science questions, got %d", len(picked))
	}
	for _, q := range picked {
		if q.Category != "science" {
			t.Fatalf("unexpected category %q", q.Category)
		}
	}

	none, _ := cache.RandomSampleByCategory(ctx, "sports", 10)
	if len(none) != 0 {
		t.Fatalf("expected no questions, got %d", len(none))
	}
}

func TestReplaceDropsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	cache := NewQuestionCache()
	_ = cache.ReplaceQuestions(ctx, 1, sampleQuestions(10))
	_ = cache.ReplaceQuestions(ctx, 4, sampleQuestions(3))

	count, _ := cache.Count(ctx)
	if count != 3 {
		t.Fatalf("expected 3 questions after replace, got %d", count)
	}
	version, _ := cache.LocalVersion(ctx)
	if version != 4 {
		t.Fatalf("expected version 4, got %d", version)
	}
}

func TestEmptyCacheReportsVersionZero(t *testing.T) {
	version, err := NewQuestionCache().LocalVersion(context.Background())
	if err != nil || version != 0 {
		t.Fatalf("expected version 0, got %d (%v)", version, err)
	}
}

func TestCategoriesSubscriptionSeesReplace(t *testing.T) {
	ctx := context.Background()
	cache := NewQuestionCache()

	ch, cancel, err := cache.SubscribeCategories(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if initial := <-ch; len(initial) != 0 {
		t.Fatalf("expected no categories initially, got %v", initial)
	}

	_ = cache.ReplaceQuestions(ctx, 1, sampleQuestions(6))
	update := <-ch
	if len(update) != 3 || update[0] != "geography" || update[1] != "history" || update[2] != "science" {
		t.Fatalf("unexpected categories %v", update)
	}
}

func sampleQuestions(n int) []domain.Question {
	categories := []string{"science", "history", "geography"}
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Category:      categories[i%len(categories)],
			Text:          fmt.Sprintf("Question %d?", i+1),
			OptionA:       "A1",
			OptionB:       "B1",
			OptionC:       "C1",
			OptionD:       "D1",
			CorrectAnswer: "A",
			Difficulty:    "medium",
		})
	}
	return questions
}
