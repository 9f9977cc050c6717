package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"offline-quiz-service/internal/domain"
	"offline-quiz-service/internal/pubsub"
)

// QuestionCache is an in-memory implementation of app.QuestionCache.
// Replacing swaps the whole slice, so readers always see one complete version.
type QuestionCache struct {
	mu        sync.RWMutex
	questions []domain.Question

	rndMu sync.Mutex
	rnd   *rand.Rand

	categories *pubsub.Hub[[]string]
}

func NewQuestionCache() *QuestionCache {
	return &QuestionCache{
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		categories: pubsub.NewHub[[]string](4),
	}
}

func (c *QuestionCache) LocalVersion(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var version int64
	for _, q := range c.questions {
		version = max(version, q.Version)
	}
	return version, nil
}

func (c *QuestionCache) ReplaceQuestions(_ context.Context, version int64, questions []domain.Question) error {
	// Keyed by id so a repeated id replaces the earlier record.
	byID := make(map[string]int, len(questions))
	next := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		q.Version = version
		if idx, ok := byID[q.ID]; ok {
			next[idx] = q
			continue
		}
		byID[q.ID] = len(next)
		next = append(next, q)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions = next
	c.categories.Publish(distinctCategories(next))
	return nil
}

func (c *QuestionCache) RandomSample(_ context.Context, n int) ([]domain.Question, error) {
	c.mu.RLock()
	snapshot := c.questions
	c.mu.RUnlock()
	return c.sample(snapshot, n), nil
}

func (c *QuestionCache) RandomSampleByCategory(_ context.Context, category string, n int) ([]domain.Question, error) {
	c.mu.RLock()
	filtered := make([]domain.Question, 0)
	for _, q := range c.questions {
		if q.Category == category {
			filtered = append(filtered, q)
		}
	}
	c.mu.RUnlock()
	return c.sample(filtered, n), nil
}

func (c *QuestionCache) Categories(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return distinctCategories(c.questions), nil
}

func (c *QuestionCache) SubscribeCategories(_ context.Context) (<-chan []string, func(), error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, cancel := c.categories.Subscribe(distinctCategories(c.questions))
	return ch, cancel, nil
}

func (c *QuestionCache) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.questions), nil
}

// sample picks min(n, len(pool)) distinct questions in random order.
func (c *QuestionCache) sample(pool []domain.Question, n int) []domain.Question {
	if n <= 0 || n > len(pool) {
		n = len(pool)
	}
	c.rndMu.Lock()
	order := c.rnd.Perm(len(pool))
	c.rndMu.Unlock()

	picked := make([]domain.Question, 0, n)
	for _, idx := range order[:n] {
		picked = append(picked, pool[idx])
	}
	return picked
}

func distinctCategories(questions []domain.Question) []string {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, q := range questions {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}
	sort.Strings(categories)
	return categories
}
