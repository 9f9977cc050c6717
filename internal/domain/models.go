package domain

import (
	"fmt"
	"time"
)

// Question is a multiple-choice record synced from the remote question bank.
// Version is the collection-wide stamp of the sync that wrote it.
type Question struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectAnswer string `json:"correctAnswer"`
	Difficulty    string `json:"difficulty"`
	Version       int64  `json:"version"`
}

// Options returns the four answer options in A..D order.
func (q Question) Options() []string {
	return []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// Validate checks the fields a playable question needs.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if q.Text == "" {
		return fmt.Errorf("%w: question %s has no text", ErrInvalidQuestion, q.ID)
	}
	if q.CorrectAnswer == "" {
		return fmt.Errorf("%w: question %s has no correct answer", ErrInvalidQuestion, q.ID)
	}
	return nil
}

// QuizResult is the immutable outcome of one finished session.
type QuizResult struct {
	ID               int64     `json:"id"`
	RemoteID         string    `json:"remoteId,omitempty"`
	UserID           string    `json:"userId"`
	Category         string    `json:"category"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"totalQuestions"`
	CorrectAnswers   int       `json:"correctAnswers"`
	TimeTakenSeconds int64     `json:"timeTakenSeconds"`
	Percentage       float64   `json:"percentage"`
	Timestamp        time.Time `json:"timestamp"`
}

// UserStats is the per-user aggregate kept next to the results.
type UserStats struct {
	TotalQuizzes int `json:"totalQuizzes"`
	TotalCorrect int `json:"totalCorrect"`
	BestScore    int `json:"bestScore"`
}

// StatsDelta is what one result contributes to a UserStats aggregate.
type StatsDelta struct {
	Quizzes       int
	Correct       int
	CandidateBest int
}

// DeltaFor derives the aggregate increment for a result.
func DeltaFor(r QuizResult) StatsDelta {
	return StatsDelta{Quizzes: 1, Correct: r.CorrectAnswers, CandidateBest: r.Score}
}

// Apply returns the aggregate after adding d. BestScore is a running maximum.
func (s UserStats) Apply(d StatsDelta) UserStats {
	return UserStats{
		TotalQuizzes: s.TotalQuizzes + d.Quizzes,
		TotalCorrect: s.TotalCorrect + d.Correct,
		BestScore:    max(s.BestScore, d.CandidateBest),
	}
}

// StatsSummary extends the aggregate with values derived from the result history.
type StatsSummary struct {
	UserStats
	TotalAnswered     int     `json:"totalAnswered"`
	AveragePercentage float64 `json:"averagePercentage"`
}

// OverallPercentage is the share of correctly answered questions, 0 when nothing was answered.
func (s StatsSummary) OverallPercentage() float64 {
	if s.TotalAnswered == 0 {
		return 0
	}
	return float64(s.TotalCorrect) / float64(s.TotalAnswered) * 100
}

// RankingEntry is one row of the global ranking, ordered by best score.
type RankingEntry struct {
	Position     int    `json:"position"`
	UserID       string `json:"userId"`
	BestScore    int    `json:"bestScore"`
	TotalQuizzes int    `json:"totalQuizzes"`
}

// FormatElapsed renders seconds as MM:SS.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
