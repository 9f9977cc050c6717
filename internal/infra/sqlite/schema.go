package sqlite

import "context"

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			question_text TEXT NOT NULL,
			option_a TEXT NOT NULL,
			option_b TEXT NOT NULL,
			option_c TEXT NOT NULL,
			option_d TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT 'medium',
			version INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quiz_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			score INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			correct_answers INTEGER NOT NULL,
			time_taken_seconds INTEGER NOT NULL,
			percentage REAL NOT NULL,
			timestamp_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT PRIMARY KEY,
			total_quizzes INTEGER NOT NULL DEFAULT 0,
			total_correct INTEGER NOT NULL DEFAULT 0,
			best_score INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_results_user_time ON quiz_results(user_id, timestamp_unix DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_user_stats_best ON user_stats(best_score DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
