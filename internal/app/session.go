package app

import (
	"sync"
	"time"

	"offline-quiz-service/internal/domain"
	"offline-quiz-service/internal/pubsub"
)

const (
	basePoints     = 100
	bonusWindow    = 30
	bonusPerSecond = 2
	tickInterval   = time.Second
)

// TickerFunc starts a periodic tick and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithTicker replaces the wall-clock ticker (tests drive the clock by hand).
func WithTicker(f TickerFunc) SessionOption {
	return func(s *Session) { s.newTicker = f }
}

// Session drives one quiz attempt: sequencing, confirmation, scoring and the
// elapsed-time clock. All mutation goes through its methods.
type Session struct {
	newTicker TickerFunc

	mu      sync.Mutex
	state   domain.SessionState
	closed  bool
	updates *pubsub.Hub[domain.SessionState]

	quit      chan struct{}
	clockDone chan struct{}
	stopOnce  sync.Once
}

// NewSession starts an active session over questions and starts its clock.
// Callers must not pass an empty question set.
func NewSession(category string, questions []domain.Question, opts ...SessionOption) *Session {
	s := &Session{
		newTicker: realTicker,
		state: domain.SessionState{
			Category:  category,
			Questions: questions,
		},
		updates:   pubsub.NewHub[domain.SessionState](8),
		quit:      make(chan struct{}),
		clockDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	ticks, stop := s.newTicker(tickInterval)
	go s.runClock(ticks, stop)
	return s
}

// State returns a snapshot of the session.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe streams a snapshot after every change, clock ticks included.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates.Subscribe(s.state)
}

// SelectAnswer records a choice for the current question. Re-selecting overwrites.
// It reports false when the question is already confirmed or the session is over.
func (s *Session) SelectAnswer(choice string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsConfirmed || s.state.IsFinished || s.closed {
		return false
	}
	s.state.SelectedAnswer = choice
	s.updates.Publish(s.state)
	return true
}

// ConfirmAnswer scores the selected answer once per question.
// It is a no-op without a selection or when already confirmed.
func (s *Session) ConfirmAnswer() (correct bool, points int, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.SelectedAnswer == "" || s.state.IsConfirmed || s.state.IsFinished || s.closed {
		return false, 0, false
	}
	question, ok := s.state.CurrentQuestion()
	if !ok {
		return false, 0, false
	}

	correct = s.state.SelectedAnswer == question.CorrectAnswer
	points = scoreAnswer(correct, s.state.ElapsedSeconds)
	s.state.IsConfirmed = true
	s.state.Score += points
	if correct {
		s.state.CorrectCount++
	}
	s.updates.Publish(s.state)
	return correct, points, true
}

// NextQuestion advances after a confirmed answer. On the last question it
// finishes the session and stops the clock; finished is true only on that call.
func (s *Session) NextQuestion() (finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsConfirmed || s.state.IsFinished || s.closed {
		return false
	}

	if s.state.CurrentIndex+1 >= len(s.state.Questions) {
		s.state.IsFinished = true
		s.stopClock()
		s.updates.Publish(s.state)
		return true
	}

	s.state.CurrentIndex++
	s.state.SelectedAnswer = ""
	s.state.IsConfirmed = false
	s.updates.Publish(s.state)
	return false
}

// Result builds the terminal result for userID.
func (s *Session) Result(userID string, at time.Time) (domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsFinished {
		return domain.QuizResult{}, domain.ErrSessionNotFinished
	}
	return domain.QuizResult{
		UserID:           userID,
		Category:         s.state.Category,
		Score:            s.state.Score,
		TotalQuestions:   s.state.TotalQuestions(),
		CorrectAnswers:   s.state.CorrectCount,
		TimeTakenSeconds: s.state.ElapsedSeconds,
		Percentage:       s.state.Percentage(),
		Timestamp:        at,
	}, nil
}

// Close tears the session down: the clock is stopped and subscribers are released.
// It is safe to call more than once and after the session finished.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopClock()
	s.mu.Unlock()

	<-s.clockDone
	s.updates.Close()
}

func (s *Session) stopClock() {
	s.stopOnce.Do(func() { close(s.quit) })
}

func (s *Session) runClock(ticks <-chan time.Time, stop func()) {
	defer close(s.clockDone)
	defer stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticks:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// quit and a tick can be ready together; a finished or closed session never counts it.
	if s.state.IsFinished || s.closed {
		return
	}
	s.state.ElapsedSeconds++
	s.updates.Publish(s.state)
}

// scoreAnswer awards the base points plus a bonus for answering inside the window.
func scoreAnswer(correct bool, elapsedSeconds int64) int {
	if !correct {
		return 0
	}
	bonus := max(0, bonusWindow-int(elapsedSeconds)) * bonusPerSecond
	return basePoints + bonus
}
