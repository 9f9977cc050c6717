package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"offline-quiz-service/internal/domain"
)

const questionColumns = `id, category, question_text, option_a, option_b, option_c, option_d, correct_answer, difficulty, version`

func (s *Store) LocalVersion(ctx context.Context) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM questions`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read local version: %w", err)
	}
	return version, nil
}

// ReplaceQuestions drops every cached question and inserts the new set in a
// single transaction, stamping each row with version.
func (s *Store) ReplaceQuestions(ctx context.Context, version int64, questions []domain.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range questions {
		_, err := stmt.ExecContext(ctx,
			q.ID, q.Category, q.Text,
			q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			q.CorrectAnswer, q.Difficulty, version,
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}

	s.catMu.Lock()
	defer s.catMu.Unlock()
	if err := tx.Commit(); err != nil {
		return err
	}

	categories, err := s.Categories(ctx)
	if err != nil {
		// Committed; subscribers catch up on the next write.
		return nil
	}
	s.categories.Publish(categories)
	return nil
}

func (s *Store) RandomSample(ctx context.Context, n int) ([]domain.Question, error) {
	return s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY RANDOM() LIMIT ?`,
		limitOrAll(n),
	)
}

func (s *Store) RandomSampleByCategory(ctx context.Context, category string, n int) ([]domain.Question, error) {
	return s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE category = ? ORDER BY RANDOM() LIMIT ?`,
		category, limitOrAll(n),
	)
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM questions ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (s *Store) SubscribeCategories(ctx context.Context) (<-chan []string, func(), error) {
	s.catMu.Lock()
	defer s.catMu.Unlock()

	initial, err := s.Categories(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.categories.Subscribe(initial)
	return ch, cancel, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) queryQuestions(ctx context.Context, query string, args ...any) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuestion(rows *sql.Rows) (domain.Question, error) {
	var q domain.Question
	err := rows.Scan(
		&q.ID, &q.Category, &q.Text,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectAnswer, &q.Difficulty, &q.Version,
	)
	return q, err
}

// limitOrAll maps "no limit" to SQLite's LIMIT -1.
func limitOrAll(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
