package app

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"offline-quiz-service/internal/domain"
)

type manualClock struct {
	ticks chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{ticks: make(chan time.Time)}
}

func (c *manualClock) ticker(time.Duration) (<-chan time.Time, func()) {
	return c.ticks, func() {}
}

// advance delivers n ticks and waits until the session has counted them.
func (c *manualClock) advance(t *testing.T, s *Session, n int) {
	t.Helper()
	want := s.State().ElapsedSeconds + int64(n)
	for i := 0; i < n; i++ {
		c.ticks <- time.Now()
	}
	deadline := time.Now().Add(time.Second)
	for s.State().ElapsedSeconds != want {
		if time.Now().After(deadline) {
			t.Fatalf("clock stuck at %d, want %d", s.State().ElapsedSeconds, want)
		}
		time.Sleep(time.Millisecond)
	}
}

// tryTick offers one tick and gives up if the clock goroutine is gone.
func (c *manualClock) tryTick() {
	select {
	case c.ticks <- time.Now():
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestSession(t *testing.T, n int) (*Session, *manualClock) {
	t.Helper()
	clock := newManualClock()
	s := NewSession("science", testQuestions(n), WithTicker(clock.ticker))
	t.Cleanup(s.Close)
	return s, clock
}

func TestScoreAnswer(t *testing.T) {
	cases := []struct {
		correct bool
		elapsed int64
		want    int
	}{
		{true, 0, 160},
		{true, 10, 140},
		{true, 29, 102},
		{true, 30, 100},
		{true, 95, 100},
		{false, 5, 0},
	}
	for _, tc := range cases {
		if got := scoreAnswer(tc.correct, tc.elapsed); got != tc.want {
			t.Fatalf("scoreAnswer(%v, %d) = %d, want %d", tc.correct, tc.elapsed, got, tc.want)
		}
	}
}

func TestConfirmUsesElapsedBonus(t *testing.T) {
	s, clock := newTestSession(t, 3)
	clock.advance(t, s, 10)

	if !s.SelectAnswer("A") {
		t.Fatalf("expected selection to be accepted")
	}
	correct, points, applied := s.ConfirmAnswer()
	if !applied || !correct || points != 140 {
		t.Fatalf("expected correct answer worth 140, got correct=%v points=%d applied=%v", correct, points, applied)
	}
	state := s.State()
	if state.Score != 140 || state.CorrectCount != 1 || !state.IsConfirmed {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Phase() != domain.PhaseConfirmed {
		t.Fatalf("expected confirmed phase, got %s", state.Phase())
	}
}

func TestWrongAnswerScoresZero(t *testing.T) {
	s, _ := newTestSession(t, 2)
	s.SelectAnswer("C")
	correct, points, applied := s.ConfirmAnswer()
	if !applied || correct || points != 0 {
		t.Fatalf("expected applied wrong answer, got correct=%v points=%d applied=%v", correct, points, applied)
	}
	if s.State().CorrectCount != 0 {
		t.Fatalf("wrong answer must not count as correct")
	}
}

func TestSessionGuards(t *testing.T) {
	s, _ := newTestSession(t, 2)

	if _, _, applied := s.ConfirmAnswer(); applied {
		t.Fatalf("confirm without a selection must be a no-op")
	}
	if s.NextQuestion() {
		t.Fatalf("next before confirm must not finish")
	}
	if s.State().CurrentIndex != 0 {
		t.Fatalf("next before confirm must not advance")
	}

	s.SelectAnswer("B")
	s.SelectAnswer("A")
	if s.State().SelectedAnswer != "A" {
		t.Fatalf("re-selecting should overwrite the choice")
	}
	s.ConfirmAnswer()
	if s.SelectAnswer("B") {
		t.Fatalf("selection after confirm must be rejected")
	}
	if _, _, applied := s.ConfirmAnswer(); applied {
		t.Fatalf("second confirm must be a no-op")
	}
	if s.State().Score != 160 {
		t.Fatalf("score applied twice: %d", s.State().Score)
	}

	s.NextQuestion()
	state := s.State()
	if state.CurrentIndex != 1 || state.SelectedAnswer != "" || state.IsConfirmed {
		t.Fatalf("expected fresh second question, got %+v", state)
	}
}

func TestSessionFinishesExactlyOnce(t *testing.T) {
	s, clock := newTestSession(t, 3)

	if _, err := s.Result("u1", time.Now()); !errors.Is(err, domain.ErrSessionNotFinished) {
		t.Fatalf("expected not finished, got %v", err)
	}

	finishes := 0
	for i := 0; i < 3; i++ {
		clock.advance(t, s, 5)
		s.SelectAnswer("A")
		s.ConfirmAnswer()
		if s.NextQuestion() {
			finishes++
		}
	}
	if s.NextQuestion() {
		finishes++
	}
	if finishes != 1 {
		t.Fatalf("expected exactly one finish, got %d", finishes)
	}

	state := s.State()
	if !state.IsFinished || state.Phase() != domain.PhaseFinished {
		t.Fatalf("expected finished session, got %+v", state)
	}
	// 5s, 10s, 15s elapsed at each confirm: 150 + 140 + 130.
	if state.Score != 420 || state.ElapsedSeconds != 15 {
		t.Fatalf("unexpected final state %+v", state)
	}

	clock.tryTick()
	if s.State().ElapsedSeconds != 15 {
		t.Fatalf("clock kept running after finish")
	}

	at := time.Unix(1700000000, 0)
	result, err := s.Result("u1", at)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Score != 420 || result.CorrectAnswers != 3 || result.TotalQuestions != 3 ||
		result.TimeTakenSeconds != 15 || result.Percentage != 100 || !result.Timestamp.Equal(at) {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCloseStopsClockAndSubscribers(t *testing.T) {
	clock := newManualClock()
	s := NewSession("all", testQuestions(2), WithTicker(clock.ticker))
	updates, cancel := s.Subscribe()
	defer cancel()

	<-updates
	clock.advance(t, s, 1)
	s.Close()
	s.Close()

	clock.tryTick()
	if s.State().ElapsedSeconds != 1 {
		t.Fatalf("clock ticked after close: %d", s.State().ElapsedSeconds)
	}
	if s.SelectAnswer("A") {
		t.Fatalf("closed session accepted a selection")
	}

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("subscription not closed")
		}
	}
}

func TestSubscribeStreamsTicks(t *testing.T) {
	s, clock := newTestSession(t, 1)
	updates, cancel := s.Subscribe()
	defer cancel()

	if initial := <-updates; initial.ElapsedSeconds != 0 || initial.Phase() != domain.PhaseActive {
		t.Fatalf("unexpected initial state %+v", initial)
	}
	clock.advance(t, s, 1)

	select {
	case state := <-updates:
		if state.ElapsedSeconds != 1 {
			t.Fatalf("expected tick update, got %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update after tick")
	}
}

func testQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Category:      "science",
			Text:          fmt.Sprintf("Question %d?", i+1),
			OptionA:       "A1",
			OptionB:       "B1",
			OptionC:       "C1",
			OptionD:       "D1",
			CorrectAnswer: "A",
		})
	}
	return questions
}
