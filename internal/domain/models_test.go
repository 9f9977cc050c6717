package domain

import (
	"errors"
	"testing"
)

func TestStatsApplyKeepsRunningMaximum(t *testing.T) {
	stats := UserStats{TotalQuizzes: 2, TotalCorrect: 7, BestScore: 500}

	next := stats.Apply(StatsDelta{Quizzes: 1, Correct: 3, CandidateBest: 320})
	if next.TotalQuizzes != 3 || next.TotalCorrect != 10 || next.BestScore != 500 {
		t.Fatalf("unexpected aggregate: %+v", next)
	}

	next = next.Apply(DeltaFor(QuizResult{CorrectAnswers: 4, Score: 610}))
	if next.TotalQuizzes != 4 || next.TotalCorrect != 14 || next.BestScore != 610 {
		t.Fatalf("unexpected aggregate after new best: %+v", next)
	}
}

func TestSessionStateDerivedValues(t *testing.T) {
	var empty SessionState
	if empty.Progress() != 0 || empty.Percentage() != 0 {
		t.Fatalf("expected zero derived values for empty session")
	}
	if empty.Phase() != PhaseLoading {
		t.Fatalf("expected loading phase, got %s", empty.Phase())
	}

	state := SessionState{
		Questions:    []Question{{ID: "q1"}, {ID: "q2"}, {ID: "q3"}, {ID: "q4"}},
		CurrentIndex: 1,
		CorrectCount: 1,
		IsConfirmed:  true,
	}
	if state.Progress() != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", state.Progress())
	}
	if state.Percentage() != 25 {
		t.Fatalf("expected 25%%, got %v", state.Percentage())
	}
	if state.Phase() != PhaseConfirmed {
		t.Fatalf("expected confirmed phase, got %s", state.Phase())
	}
}

func TestStatsSummaryOverallPercentage(t *testing.T) {
	if (StatsSummary{}).OverallPercentage() != 0 {
		t.Fatalf("expected 0 with nothing answered")
	}
	s := StatsSummary{UserStats: UserStats{TotalCorrect: 3}, TotalAnswered: 12}
	if s.OverallPercentage() != 25 {
		t.Fatalf("expected 25, got %v", s.OverallPercentage())
	}
}

func TestQuestionValidate(t *testing.T) {
	if err := (Question{ID: "q1", Text: "?", CorrectAnswer: "A"}).Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
	if err := (Question{ID: "q1", Text: "?"}).Validate(); !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("expected invalid question error, got %v", err)
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := FormatElapsed(125); got != "02:05" {
		t.Fatalf("expected 02:05, got %s", got)
	}
	if got := FormatElapsed(-3); got != "00:00" {
		t.Fatalf("expected 00:00, got %s", got)
	}
}
