package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"offline-quiz-service/internal/domain"
)

const maxStatsAttempts = 5

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results"`

	ID               string    `bun:"id,pk,type:uuid"`
	UserID           string    `bun:"user_id,notnull"`
	Category         string    `bun:"category,notnull"`
	Score            int       `bun:"score"`
	TotalQuestions   int       `bun:"total_questions"`
	CorrectAnswers   int       `bun:"correct_answers"`
	TimeTakenSeconds int64     `bun:"time_taken_seconds"`
	Percentage       float64   `bun:"percentage"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

type statsRow struct {
	bun.BaseModel `bun:"table:user_stats"`

	UserID       string `bun:"user_id,pk"`
	TotalQuizzes int    `bun:"total_quizzes"`
	TotalCorrect int    `bun:"total_correct"`
	BestScore    int    `bun:"best_score"`
	Revision     int64  `bun:"revision"`
}

// ResultMirror stores results and per-user aggregates in postgres. Aggregates
// are updated with a revision check so concurrent writers never lose a delta.
type ResultMirror struct {
	db *bun.DB
}

func NewResultMirror(db *bun.DB) *ResultMirror {
	return &ResultMirror{db: db}
}

func (m *ResultMirror) AppendResult(ctx context.Context, userID string, result domain.QuizResult) (string, error) {
	row := resultRow{
		ID:               uuid.NewString(),
		UserID:           userID,
		Category:         result.Category,
		Score:            result.Score,
		TotalQuestions:   result.TotalQuestions,
		CorrectAnswers:   result.CorrectAnswers,
		TimeTakenSeconds: result.TimeTakenSeconds,
		Percentage:       result.Percentage,
		CreatedAt:        result.Timestamp.UTC(),
	}
	if _, err := m.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert remote result: %w", err)
	}
	return row.ID, nil
}

// IncrementStats folds delta into the user's aggregate with read-modify-write
// retries, returning domain.ErrStatsConflict when every attempt lost the race.
func (m *ResultMirror) IncrementStats(ctx context.Context, userID string, delta domain.StatsDelta) error {
	for attempt := 0; attempt < maxStatsAttempts; attempt++ {
		var current statsRow
		err := m.db.NewSelect().Model(&current).Where("user_id = ?", userID).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			applied, err := m.insertStats(ctx, userID, delta)
			if err != nil {
				return err
			}
			if applied {
				return nil
			}
		case err != nil:
			return fmt.Errorf("load remote stats: %w", err)
		default:
			applied, err := m.updateStats(ctx, current, delta)
			if err != nil {
				return err
			}
			if applied {
				return nil
			}
		}
	}
	return domain.ErrStatsConflict
}

func (m *ResultMirror) insertStats(ctx context.Context, userID string, delta domain.StatsDelta) (bool, error) {
	next := domain.UserStats{}.Apply(delta)
	row := statsRow{
		UserID:       userID,
		TotalQuizzes: next.TotalQuizzes,
		TotalCorrect: next.TotalCorrect,
		BestScore:    next.BestScore,
		Revision:     1,
	}
	res, err := m.db.NewInsert().Model(&row).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert remote stats: %w", err)
	}
	return rowsAffected(res) == 1, nil
}

func (m *ResultMirror) updateStats(ctx context.Context, current statsRow, delta domain.StatsDelta) (bool, error) {
	next := domain.UserStats{
		TotalQuizzes: current.TotalQuizzes,
		TotalCorrect: current.TotalCorrect,
		BestScore:    current.BestScore,
	}.Apply(delta)

	res, err := m.db.NewUpdate().
		Model((*statsRow)(nil)).
		Set("total_quizzes = ?", next.TotalQuizzes).
		Set("total_correct = ?", next.TotalCorrect).
		Set("best_score = ?", next.BestScore).
		Set("revision = revision + 1").
		Where("user_id = ?", current.UserID).
		Where("revision = ?", current.Revision).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update remote stats: %w", err)
	}
	return rowsAffected(res) == 1, nil
}

// UserStats reads the remote aggregate; a user without results has zero stats.
func (m *ResultMirror) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	var row statsRow
	err := m.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStats{}, nil
	}
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.UserStats{
		TotalQuizzes: row.TotalQuizzes,
		TotalCorrect: row.TotalCorrect,
		BestScore:    row.BestScore,
	}, nil
}

func (m *ResultMirror) Ranking(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	var rows []statsRow
	q := m.db.NewSelect().Model(&rows).OrderExpr("best_score DESC, user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("load ranking: %w", err)
	}

	entries := make([]domain.RankingEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, domain.RankingEntry{
			Position:     i + 1,
			UserID:       row.UserID,
			BestScore:    row.BestScore,
			TotalQuizzes: row.TotalQuizzes,
		})
	}
	return entries, nil
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
