package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"offline-quiz-service/internal/domain"
)

const defaultQuestionCount = 10

// ServiceOption customizes a QuizService.
type ServiceOption func(*QuizService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *QuizService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultCount sets the question count used when startQuiz gets none.
func WithDefaultCount(n int) ServiceOption {
	return func(s *QuizService) {
		if n > 0 {
			s.defaultCount = n
		}
	}
}

// WithSessionOptions forwards options to every session the service starts.
func WithSessionOptions(opts ...SessionOption) ServiceOption {
	return func(s *QuizService) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithRemoteRanking reads the global ranking from mirror before falling back to local stats.
func WithRemoteRanking(mirror ResultMirror) ServiceOption {
	return func(s *QuizService) { s.ranking = mirror }
}

// WithClock is test-only for deterministic result timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.clock = now }
}

// Advance is the outcome of moving past a confirmed question.
type Advance struct {
	State    domain.SessionState `json:"state"`
	Finished bool                `json:"finished"`
	Result   *domain.QuizResult  `json:"result,omitempty"`
}

// QuizService contains the quiz use cases of one device: loading categories,
// running the single live session and persisting its result.
type QuizService struct {
	cache        QuestionCache
	syncer       *SyncCoordinator
	writer       *ResultWriter
	history      ResultStore
	identity     Identity
	ranking      ResultMirror
	logger       *slog.Logger
	clock        func() time.Time
	defaultCount int
	sessionOpts  []SessionOption

	mu      sync.Mutex
	current *Session
}

func NewQuizService(cache QuestionCache, syncer *SyncCoordinator, writer *ResultWriter, history ResultStore, identity Identity, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		cache:        cache,
		syncer:       syncer,
		writer:       writer,
		history:      history,
		identity:     identity,
		logger:       slog.Default(),
		clock:        time.Now,
		defaultCount: defaultQuestionCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "quiz")
	return s
}

// LoadCategories syncs the question bank and returns the playable categories.
// A failed sync still returns whatever the cache holds.
func (s *QuizService) LoadCategories(ctx context.Context) ([]string, error) {
	if _, err := s.syncer.Sync(ctx); err != nil {
		s.logger.Warn("sync before listing categories failed", "err", err)
	}
	return s.cache.Categories(ctx)
}

// Sync runs a sync on demand, bypassing any cached remote version.
func (s *QuizService) Sync(ctx context.Context) (bool, SyncStatus) {
	updated, _ := s.syncer.Refresh(ctx)
	return updated, s.syncer.Status()
}

// SubscribeCategories streams the category list after every cache write.
func (s *QuizService) SubscribeCategories(ctx context.Context) (<-chan []string, func(), error) {
	return s.cache.SubscribeCategories(ctx)
}

// StartQuiz builds a question set from the local cache and makes it the live
// session, abandoning any previous one.
func (s *QuizService) StartQuiz(ctx context.Context, category string, count int) (*Session, error) {
	if count <= 0 {
		count = s.defaultCount
	}
	if category == "" {
		category = domain.AllCategories
	}

	var (
		questions []domain.Question
		err       error
	)
	if category == domain.AllCategories {
		questions, err = s.cache.RandomSample(ctx, count)
	} else {
		questions, err = s.cache.RandomSampleByCategory(ctx, category, count)
	}
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	session := NewSession(category, questions, s.sessionOpts...)

	s.mu.Lock()
	previous := s.current
	s.current = session
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	s.logger.Info("quiz started", "category", category, "questions", len(questions))
	return session, nil
}

// Current returns the live session.
func (s *QuizService) Current() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, domain.ErrNoActiveSession
	}
	return s.current, nil
}

// SelectAnswer forwards to the live session.
func (s *QuizService) SelectAnswer(choice string) (domain.SessionState, error) {
	session, err := s.Current()
	if err != nil {
		return domain.SessionState{}, err
	}
	session.SelectAnswer(choice)
	return session.State(), nil
}

// ConfirmAnswer forwards to the live session.
func (s *QuizService) ConfirmAnswer() (domain.SessionState, error) {
	session, err := s.Current()
	if err != nil {
		return domain.SessionState{}, err
	}
	session.ConfirmAnswer()
	return session.State(), nil
}

// NextQuestion advances the live session. When the session finishes, its result
// is handed to the ResultWriter; a local persistence failure is returned together
// with the finished Advance so callers can report it.
func (s *QuizService) NextQuestion(ctx context.Context) (Advance, error) {
	session, err := s.Current()
	if err != nil {
		return Advance{}, err
	}
	if !session.NextQuestion() {
		return Advance{State: session.State()}, nil
	}

	s.release(session)
	advance := Advance{State: session.State(), Finished: true}

	result, err := s.persist(ctx, session)
	if err != nil {
		s.logger.Error("quiz result not saved", "err", err)
		return advance, err
	}
	advance.Result = &result
	return advance, nil
}

// Abandon discards the live session without persisting anything.
func (s *QuizService) Abandon() {
	s.mu.Lock()
	session := s.current
	s.current = nil
	s.mu.Unlock()

	if session != nil {
		session.Close()
		s.logger.Info("quiz abandoned")
	}
}

// AbandonSession discards session if it is still the live one. A session that
// already finished or was replaced is left alone.
func (s *QuizService) AbandonSession(session *Session) {
	s.mu.Lock()
	live := session != nil && s.current == session
	if live {
		s.current = nil
	}
	s.mu.Unlock()

	if live {
		session.Close()
		s.logger.Info("quiz abandoned")
	}
}

// Stats returns the signed-in user's local aggregate.
func (s *QuizService) Stats(ctx context.Context) (domain.StatsSummary, error) {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return domain.StatsSummary{}, domain.ErrNotAuthenticated
	}
	return s.history.UserStats(ctx, userID)
}

// History returns the signed-in user's most recent results, newest first.
func (s *QuizService) History(ctx context.Context, limit int) ([]domain.QuizResult, error) {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}
	return s.history.RecentResults(ctx, userID, limit)
}

// Ranking prefers the remote ranking and falls back to the device's own stats.
func (s *QuizService) Ranking(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	if s.ranking != nil {
		entries, err := s.ranking.Ranking(ctx, limit)
		if err == nil {
			return entries, nil
		}
		s.logger.Warn("remote ranking unavailable, using local stats", "err", err)
	}
	return s.history.Ranking(ctx, limit)
}

func (s *QuizService) release(session *Session) {
	s.mu.Lock()
	if s.current == session {
		s.current = nil
	}
	s.mu.Unlock()
	session.Close()
}

func (s *QuizService) persist(ctx context.Context, session *Session) (domain.QuizResult, error) {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return domain.QuizResult{}, domain.ErrNotAuthenticated
	}
	result, err := session.Result(userID, s.clock())
	if err != nil {
		return domain.QuizResult{}, err
	}
	localID, err := s.writer.SaveResult(ctx, result)
	if err != nil {
		return result, err
	}
	result.ID = localID
	return result, nil
}

// IsNotFound reports errors that mean "nothing to act on" rather than a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNoActiveSession) || errors.Is(err, domain.ErrNoQuestions)
}
