package domain

import "errors"

var (
	// ErrNoQuestions is returned when the local cache has nothing to play for a category.
	ErrNoQuestions = errors.New("no questions available for this category")
	// ErrNoActiveSession is returned when a session operation arrives before startQuiz.
	ErrNoActiveSession = errors.New("no active quiz session")
	// ErrSessionNotFinished indicates a result was requested for a session still in play.
	ErrSessionNotFinished = errors.New("quiz session not finished")
	// ErrInvalidQuestion marks a remote record that cannot be played.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrNotAuthenticated is returned when a result is finished without a signed-in user.
	ErrNotAuthenticated = errors.New("no user signed in")
	// ErrStatsConflict is returned when an optimistic stats update kept losing its race.
	ErrStatsConflict = errors.New("stats update conflict")

	// Identity provider error categories.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too weak")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrRateLimited        = errors.New("too many attempts, try again later")
)
