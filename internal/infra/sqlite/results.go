package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"offline-quiz-service/internal/domain"
)

const resultColumns = `id, remote_id, user_id, category, score, total_questions, correct_answers, time_taken_seconds, percentage, timestamp_unix`

// RecordResult inserts the result and folds its delta into user_stats in one
// transaction, returning the local row id.
func (s *Store) RecordResult(ctx context.Context, result domain.QuizResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO quiz_results
		(remote_id, user_id, category, score, total_questions, correct_answers, time_taken_seconds, percentage, timestamp_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RemoteID, result.UserID, result.Category, result.Score,
		result.TotalQuestions, result.CorrectAnswers, result.TimeTakenSeconds,
		result.Percentage, result.Timestamp.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	delta := domain.DeltaFor(result)
	_, err = tx.ExecContext(ctx, `INSERT INTO user_stats (user_id, total_quizzes, total_correct, best_score)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_quizzes = total_quizzes + excluded.total_quizzes,
			total_correct = total_correct + excluded.total_correct,
			best_score = MAX(best_score, excluded.best_score)`,
		result.UserID, delta.Quizzes, delta.Correct, delta.CandidateBest,
	)
	if err != nil {
		return 0, fmt.Errorf("update stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) AttachRemoteID(ctx context.Context, localID int64, remoteID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quiz_results SET remote_id = ? WHERE id = ?`, remoteID, localID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("result %d not found", localID)
	}
	return nil
}

func (s *Store) UserStats(ctx context.Context, userID string) (domain.StatsSummary, error) {
	var summary domain.StatsSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT total_quizzes, total_correct, best_score FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&summary.TotalQuizzes, &summary.TotalCorrect, &summary.BestScore)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.StatsSummary{}, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_questions), 0), COALESCE(AVG(percentage), 0) FROM quiz_results WHERE user_id = ?`, userID,
	).Scan(&summary.TotalAnswered, &summary.AveragePercentage)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	return summary, nil
}

func (s *Store) RecentResults(ctx context.Context, userID string, limit int) ([]domain.QuizResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM quiz_results WHERE user_id = ?
		ORDER BY timestamp_unix DESC, id DESC LIMIT ?`,
		userID, limitOrAll(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.QuizResult, 0)
	for rows.Next() {
		var (
			r        domain.QuizResult
			unixNano int64
		)
		err := rows.Scan(
			&r.ID, &r.RemoteID, &r.UserID, &r.Category, &r.Score,
			&r.TotalQuestions, &r.CorrectAnswers, &r.TimeTakenSeconds,
			&r.Percentage, &unixNano,
		)
		if err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, unixNano).UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) Ranking(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, best_score, total_quizzes FROM user_stats
		ORDER BY best_score DESC, user_id ASC LIMIT ?`,
		limitOrAll(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.RankingEntry, 0)
	for rows.Next() {
		entry := domain.RankingEntry{Position: len(entries) + 1}
		if err := rows.Scan(&entry.UserID, &entry.BestScore, &entry.TotalQuizzes); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
