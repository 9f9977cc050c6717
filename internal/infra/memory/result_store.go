package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"offline-quiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	nextID  int64
	results []domain.QuizResult
	stats   map[string]domain.UserStats
}

func NewResultStore() *ResultStore {
	return &ResultStore{stats: make(map[string]domain.UserStats)}
}

func (s *ResultStore) RecordResult(_ context.Context, result domain.QuizResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	result.ID = s.nextID
	s.results = append(s.results, result)
	s.stats[result.UserID] = s.stats[result.UserID].Apply(domain.DeltaFor(result))
	return result.ID, nil
}

func (s *ResultStore) AttachRemoteID(_ context.Context, localID int64, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.results {
		if s.results[i].ID == localID {
			s.results[i].RemoteID = remoteID
			return nil
		}
	}
	return fmt.Errorf("result %d not found", localID)
}

func (s *ResultStore) UserStats(_ context.Context, userID string) (domain.StatsSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.StatsSummary{UserStats: s.stats[userID]}
	var (
		count      int
		percentSum float64
	)
	for _, r := range s.results {
		if r.UserID != userID {
			continue
		}
		count++
		percentSum += r.Percentage
		summary.TotalAnswered += r.TotalQuestions
	}
	if count > 0 {
		summary.AveragePercentage = percentSum / float64(count)
	}
	return summary, nil
}

func (s *ResultStore) RecentResults(_ context.Context, userID string, limit int) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.QuizResult, 0)
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *ResultStore) Ranking(_ context.Context, limit int) ([]domain.RankingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.RankingEntry, 0, len(s.stats))
	for userID, stats := range s.stats {
		entries = append(entries, domain.RankingEntry{
			UserID:       userID,
			BestScore:    stats.BestScore,
			TotalQuizzes: stats.TotalQuizzes,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BestScore != entries[j].BestScore {
			return entries[i].BestScore > entries[j].BestScore
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries, nil
}
