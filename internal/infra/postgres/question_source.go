package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"offline-quiz-service/internal/domain"
)

const questionsCollection = "questions"

// questionDocument is the JSONB shape of a question in the remote bank.
type questionDocument struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	QuestionText  string `json:"questionText"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectAnswer string `json:"correctAnswer"`
	Difficulty    string `json:"difficulty"`
}

func (d questionDocument) toDomain() domain.Question {
	difficulty := d.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	return domain.Question{
		ID:            d.ID,
		Category:      d.Category,
		Text:          d.QuestionText,
		OptionA:       d.OptionA,
		OptionB:       d.OptionB,
		OptionC:       d.OptionC,
		OptionD:       d.OptionD,
		CorrectAnswer: d.CorrectAnswer,
		Difficulty:    difficulty,
	}
}

func documentFor(q domain.Question) questionDocument {
	return questionDocument{
		ID:            q.ID,
		Category:      q.Category,
		QuestionText:  q.Text,
		OptionA:       q.OptionA,
		OptionB:       q.OptionB,
		OptionC:       q.OptionC,
		OptionD:       q.OptionD,
		CorrectAnswer: q.CorrectAnswer,
		Difficulty:    q.Difficulty,
	}
}

// QuestionSource reads the remote question bank: JSONB documents plus a
// collection version row.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

// FetchCollectionVersion returns the bank version. A bank without a version row
// is treated as version 1.
func (s *QuestionSource) FetchCollectionVersion(ctx context.Context) (int64, error) {
	var version int64
	err := s.pool.QueryRow(ctx, `SELECT version FROM collection_meta WHERE name=$1`, questionsCollection).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load collection version: %w", err)
	}
	return version, nil
}

func (s *QuestionSource) FetchAllQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc questionDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal question %s: %w", id, err)
		}
		// The row key wins over an id embedded in the document.
		doc.ID = id
		questions = append(questions, doc.toDomain())
	}
	return questions, rows.Err()
}

// PublishQuestions replaces the bank content and bumps its version in one
// transaction. It is the write side used by operators and tests.
func (s *QuestionSource) PublishQuestions(ctx context.Context, version int64, questions []domain.Question) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
			return err
		}
		for _, q := range questions {
			raw, err := json.Marshal(documentFor(q))
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `INSERT INTO questions (id, data) VALUES ($1, $2)`, q.ID, raw); err != nil {
				return fmt.Errorf("insert question %s: %w", q.ID, err)
			}
		}
		_, err := tx.Exec(ctx, `INSERT INTO collection_meta (name, version, total_questions)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET version = EXCLUDED.version, total_questions = EXCLUDED.total_questions`,
			questionsCollection, version, len(questions),
		)
		return err
	})
}
