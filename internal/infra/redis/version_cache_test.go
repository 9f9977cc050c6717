package redis

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"offline-quiz-service/internal/app"
	"offline-quiz-service/internal/domain"
	"offline-quiz-service/internal/infra/memory"
)

func TestVersionCacheServesFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	source := &countingSource{StaticQuestionSource: memory.NewStaticQuestionSource(4, sampleQuestions())}
	cache := NewVersionCache(newClient(mr), source, time.Minute)

	version, err := cache.FetchCollectionVersion(ctx)
	if err != nil || version != 4 {
		t.Fatalf("expected version 4, got %d (%v)", version, err)
	}
	if source.calls.Load() != 1 {
		t.Fatalf("expected source called once, got %d", source.calls.Load())
	}

	// Second call should hit cache, source not incremented.
	source.Publish(5, sampleQuestions())
	version, _ = cache.FetchCollectionVersion(ctx)
	if version != 4 || source.calls.Load() != 1 {
		t.Fatalf("expected cached version 4, got %d after %d calls", version, source.calls.Load())
	}

	mr.FastForward(2 * time.Minute)
	version, _ = cache.FetchCollectionVersion(ctx)
	if version != 5 || source.calls.Load() != 2 {
		t.Fatalf("expected refreshed version 5, got %d after %d calls", version, source.calls.Load())
	}
}

func TestVersionCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	source := &countingSource{StaticQuestionSource: memory.NewStaticQuestionSource(1, sampleQuestions())}
	cache := NewVersionCache(newClient(mr), source, time.Hour)
	_, _ = cache.FetchCollectionVersion(ctx)

	source.Publish(2, sampleQuestions())
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if version, _ := cache.FetchCollectionVersion(ctx); version != 2 {
		t.Fatalf("expected version 2 after invalidate, got %d", version)
	}

	questions, err := cache.FetchAllQuestions(ctx)
	if err != nil || len(questions) != 2 {
		t.Fatalf("expected pass-through questions, got %d (%v)", len(questions), err)
	}
}

func TestVersionCacheFallsBackWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	source := &countingSource{StaticQuestionSource: memory.NewStaticQuestionSource(3, sampleQuestions())}
	cache := NewVersionCache(client, source, time.Minute)

	version, err := cache.FetchCollectionVersion(context.Background())
	if err != nil || version != 3 {
		t.Fatalf("expected source version 3, got %d (%v)", version, err)
	}
}

func TestVersionCacheZeroTTLDisablesCaching(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{StaticQuestionSource: memory.NewStaticQuestionSource(3, sampleQuestions())}
	cache := NewVersionCache(newClient(mr), source, 0)
	_, _ = cache.FetchCollectionVersion(context.Background())

	if mr.Exists(versionKey) {
		t.Fatalf("version cached with zero ttl")
	}
}

func TestExplicitResyncSeesVersionBump(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	bank := memory.NewStaticQuestionSource(3, sampleQuestions())
	cache := memory.NewQuestionCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := app.NewSyncCoordinator(cache, NewVersionCache(newClient(mr), bank, 30*time.Second), logger)

	if updated, _ := syncer.Sync(ctx); !updated {
		t.Fatalf("expected first sync to fill the cache")
	}
	bank.Publish(4, append(sampleQuestions(), domain.Question{
		ID: "q3", Category: "science", Text: "Closest star?", OptionA: "Sun", OptionB: "Vega", OptionC: "Sirius", OptionD: "Rigel", CorrectAnswer: "A",
	}))

	// A plain sync keeps using the cached version until it expires.
	if updated, _ := syncer.Sync(ctx); updated {
		t.Fatalf("expected cached version to hold for a plain sync")
	}
	if updated, _ := syncer.Refresh(ctx); !updated {
		t.Fatalf("expected explicit re-sync to pick up version 4")
	}
	if version, _ := cache.LocalVersion(ctx); version != 4 {
		t.Fatalf("expected local version 4, got %d", version)
	}
	if got, _ := mr.Get(versionKey); got != "4" {
		t.Fatalf("expected refreshed version cached, got %q", got)
	}
}

type countingSource struct {
	*memory.StaticQuestionSource
	calls atomic.Int32
}

func (s *countingSource) FetchCollectionVersion(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.StaticQuestionSource.FetchCollectionVersion(ctx)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Category: "science", Text: "What is H2O?", OptionA: "Water", OptionB: "Salt", OptionC: "Iron", OptionD: "Gold", CorrectAnswer: "A"},
		{ID: "q2", Category: "history", Text: "Who built the pyramids?", OptionA: "Romans", OptionB: "Egyptians", OptionC: "Vikings", OptionD: "Incas", CorrectAnswer: "B"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
