package memory

import (
	"context"
	"sync"

	"offline-quiz-service/internal/domain"
)

// StaticQuestionSource is a question bank backed by an in-memory slice (useful for tests/demos).
type StaticQuestionSource struct {
	mu         sync.RWMutex
	version    int64
	questions  []domain.Question
	versionErr error
	fetchErr   error
	fetches    int
}

func NewStaticQuestionSource(version int64, questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{version: version, questions: questions}
}

// Publish replaces the bank content and its version.
func (s *StaticQuestionSource) Publish(version int64, questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
	s.questions = questions
}

// SetFailures makes the next reads fail with the given errors; nil clears them.
func (s *StaticQuestionSource) SetFailures(versionErr, fetchErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionErr = versionErr
	s.fetchErr = fetchErr
}

// Fetches reports how many full-collection reads were served.
func (s *StaticQuestionSource) Fetches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches
}

func (s *StaticQuestionSource) FetchCollectionVersion(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.versionErr != nil {
		return 0, s.versionErr
	}
	return s.version, nil
}

func (s *StaticQuestionSource) FetchAllQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	s.fetches++
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}
