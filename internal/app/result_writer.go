package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"offline-quiz-service/internal/domain"
)

const defaultMirrorTimeout = 15 * time.Second

// ResultWriter persists finished results locally and mirrors them remotely on a
// best-effort basis. The remote mirror never affects the caller's outcome.
type ResultWriter struct {
	local   ResultStore
	remote  ResultMirror
	logger  *slog.Logger
	timeout time.Duration

	// mu orders pending.Add against Close so no mirror starts once draining began.
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewResultWriter builds a writer. remote may be nil for local-only operation.
func NewResultWriter(local ResultStore, remote ResultMirror, logger *slog.Logger) *ResultWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultWriter{
		local:   local,
		remote:  remote,
		logger:  logger.With("component", "results"),
		timeout: defaultMirrorTimeout,
	}
}

// SetMirrorTimeout bounds one remote mirror attempt. Zero or negative restores the default.
func (w *ResultWriter) SetMirrorTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultMirrorTimeout
	}
	w.timeout = d
}

// SaveResult stores the result and updates the local aggregate in one local
// transaction, then starts the remote mirror without waiting for it.
func (w *ResultWriter) SaveResult(ctx context.Context, result domain.QuizResult) (int64, error) {
	localID, err := w.local.RecordResult(ctx, result)
	if err != nil {
		return 0, fmt.Errorf("save result locally: %w", err)
	}
	result.ID = localID

	if w.remote != nil && w.track(result) {
		go func() {
			defer w.pending.Done()
			w.mirror(result)
		}()
	}
	return localID, nil
}

func (w *ResultWriter) track(result domain.QuizResult) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Warn("shutting down, result kept local only", "userId", result.UserID, "localId", result.ID)
		return false
	}
	w.pending.Add(1)
	return true
}

// Close stops starting new mirrors and drains the ones in flight. Results saved
// afterwards are still stored locally.
func (w *ResultWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.Wait(ctx)
}

// Wait blocks until every started mirror attempt has returned or ctx is done.
func (w *ResultWriter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *ResultWriter) mirror(result domain.QuizResult) {
	logger := w.logger.With("userId", result.UserID, "localId", result.ID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("remote mirror panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	remoteID, err := w.remote.AppendResult(ctx, result.UserID, result)
	if err != nil {
		logger.Warn("append remote result failed", "err", err)
		return
	}
	if err := w.local.AttachRemoteID(ctx, result.ID, remoteID); err != nil {
		logger.Warn("record remote id failed", "remoteId", remoteID, "err", err)
	}

	if err := w.remote.IncrementStats(ctx, result.UserID, domain.DeltaFor(result)); err != nil {
		logger.Warn("update remote stats failed", "err", err)
		return
	}
	logger.Debug("result mirrored", "remoteId", remoteID)
}
