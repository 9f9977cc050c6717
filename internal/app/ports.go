package app

import (
	"context"

	"offline-quiz-service/internal/domain"
)

// QuestionSource is the authoritative remote question bank.
type QuestionSource interface {
	FetchCollectionVersion(ctx context.Context) (int64, error)
	FetchAllQuestions(ctx context.Context) ([]domain.Question, error)
}

// VersionInvalidator is implemented by sources that cache the remote version.
// Invalidate drops the cached value so the next version read hits the bank.
type VersionInvalidator interface {
	Invalidate(ctx context.Context) error
}

// QuestionCache is the local, versioned copy of the question bank.
// ReplaceQuestions must swap the whole table atomically: readers see either the
// previous set or the new one.
type QuestionCache interface {
	LocalVersion(ctx context.Context) (int64, error)
	ReplaceQuestions(ctx context.Context, version int64, questions []domain.Question) error
	RandomSample(ctx context.Context, n int) ([]domain.Question, error)
	RandomSampleByCategory(ctx context.Context, category string, n int) ([]domain.Question, error)
	Categories(ctx context.Context) ([]string, error)
	SubscribeCategories(ctx context.Context) (<-chan []string, func(), error)
	Count(ctx context.Context) (int, error)
}

// ResultStore persists results and the per-user aggregate on the device.
// RecordResult inserts the result and applies its stats delta in one transaction.
type ResultStore interface {
	RecordResult(ctx context.Context, result domain.QuizResult) (int64, error)
	AttachRemoteID(ctx context.Context, localID int64, remoteID string) error
	UserStats(ctx context.Context, userID string) (domain.StatsSummary, error)
	RecentResults(ctx context.Context, userID string, limit int) ([]domain.QuizResult, error)
	Ranking(ctx context.Context, limit int) ([]domain.RankingEntry, error)
}

// ResultMirror is the remote destination for results and aggregates.
type ResultMirror interface {
	AppendResult(ctx context.Context, userID string, result domain.QuizResult) (string, error)
	IncrementStats(ctx context.Context, userID string, delta domain.StatsDelta) error
	Ranking(ctx context.Context, limit int) ([]domain.RankingEntry, error)
}

// Identity exposes the signed-in user.
type Identity interface {
	CurrentUserID() (string, bool)
	IsLoggedIn() bool
}
