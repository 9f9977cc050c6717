package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"offline-quiz-service/internal/app"
	"offline-quiz-service/internal/domain"
	"offline-quiz-service/internal/infra/memory"
)

type testEnv struct {
	service *app.QuizService
	source  *memory.StaticQuestionSource
	results *memory.ResultStore
	router  *Router
	server  *httptest.Server
	// tickers receives the clock channel of every session started.
	tickers chan chan time.Time
}

func newTestEnv(t *testing.T, identity app.Identity, accounts Accounts) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		source:  memory.NewStaticQuestionSource(1, sampleQuestions(9)),
		results: memory.NewResultStore(),
		tickers: make(chan chan time.Time, 8),
	}
	cache := memory.NewQuestionCache()
	syncer := app.NewSyncCoordinator(cache, env.source, logger)
	writer := app.NewResultWriter(env.results, nil, logger)
	env.service = app.NewQuizService(cache, syncer, writer, env.results, identity,
		app.WithLogger(logger),
		app.WithSessionOptions(app.WithTicker(func(time.Duration) (<-chan time.Time, func()) {
			ticks := make(chan time.Time)
			select {
			case env.tickers <- ticks:
			default:
			}
			return ticks, func() {}
		})),
	)
	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	env.router = NewRouter(env.service, accounts, logger)
	env.server = httptest.NewServer(env.router)
	t.Cleanup(func() {
		env.server.Close()
		env.service.Abandon()
	})
	return env
}

func (e *testEnv) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketQuizFlow(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticIdentity("u1"), nil)
	conn := env.dial(t, "/ws")

	send(t, conn, "start", map[string]any{"category": "science", "count": 2})
	state := readUntil(t, conn, "state")
	if state["phase"] != "active" || state["totalQuestions"] != float64(2) {
		t.Fatalf("unexpected initial state %v", state)
	}
	question, _ := state["question"].(map[string]any)
	if question == nil || question["correctAnswer"] != nil {
		t.Fatalf("question must be present without its answer: %v", state["question"])
	}

	for i := 0; i < 2; i++ {
		send(t, conn, "select", map[string]any{"choice": "A"})
		send(t, conn, "confirm", nil)
		send(t, conn, "next", nil)
	}

	finished := readUntil(t, conn, "finished")
	if finished["saved"] != true {
		t.Fatalf("expected saved result, got %v", finished)
	}
	result, _ := finished["result"].(map[string]any)
	if result == nil || result["score"] != float64(320) || result["correctAnswers"] != float64(2) {
		t.Fatalf("unexpected result %v", finished["result"])
	}

	summary, _ := env.results.UserStats(context.Background(), "u1")
	if summary.TotalQuizzes != 1 || summary.BestScore != 320 {
		t.Fatalf("result not persisted: %+v", summary)
	}
}

func TestWebSocketReportsErrors(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticIdentity("u1"), nil)
	conn := env.dial(t, "/ws")

	send(t, conn, "confirm", nil)
	if msg := readUntil(t, conn, "error"); !strings.Contains(fmt.Sprint(msg["message"]), "no active") {
		t.Fatalf("unexpected error %v", msg)
	}

	send(t, conn, "start", map[string]any{"category": "sports"})
	if msg := readUntil(t, conn, "error"); msg["message"] != domain.ErrNoQuestions.Error() {
		t.Fatalf("unexpected error %v", msg)
	}

	send(t, conn, "dance", nil)
	if msg := readUntil(t, conn, "error"); msg["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", msg)
	}
}

func TestCategoriesStream(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticIdentity("u1"), nil)
	conn := env.dial(t, "/ws/categories")

	first := readCategories(t, conn)
	if fmt.Sprint(first) != "[geography history science]" {
		t.Fatalf("unexpected categories %v", first)
	}

	env.source.Publish(2, []domain.Question{
		{ID: "m1", Category: "music", Text: "Who wrote Fur Elise?", OptionA: "Beethoven", OptionB: "Bach", OptionC: "Mozart", OptionD: "Chopin", CorrectAnswer: "A"},
	})
	if updated, _ := env.service.Sync(context.Background()); !updated {
		t.Fatalf("expected sync to replace questions")
	}
	if next := readCategories(t, conn); fmt.Sprint(next) != "[music]" {
		t.Fatalf("unexpected categories %v", next)
	}
}

func TestClosingSocketAbandonsSession(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticIdentity("u1"), nil)
	conn := env.dial(t, "/ws")

	send(t, conn, "start", map[string]any{"category": "science", "count": 2})
	readUntil(t, conn, "state")
	session, err := env.service.Current()
	if err != nil {
		t.Fatalf("expected live session: %v", err)
	}
	ticks := <-env.tickers
	updates, cancel := session.Subscribe()
	defer cancel()

	conn.Close()
	waitNoSession(t, env.service)
	// Subscriptions end only after the clock goroutine has exited.
	timeout := time.After(2 * time.Second)
	for open := true; open; {
		select {
		case _, open = <-updates:
		case <-timeout:
			t.Fatalf("session not torn down")
		}
	}

	select {
	case ticks <- time.Now():
		t.Fatalf("clock still running after the socket closed")
	case <-time.After(50 * time.Millisecond):
	}
	if elapsed := session.State().ElapsedSeconds; elapsed != 0 {
		t.Fatalf("expected no elapsed time, got %d", elapsed)
	}
}

func TestRouterShutdownClosesSockets(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticIdentity("u1"), nil)
	conn := env.dial(t, "/ws")
	categories := env.dial(t, "/ws/categories")
	readCategories(t, categories)

	send(t, conn, "start", map[string]any{"category": "history", "count": 2})
	readUntil(t, conn, "state")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := env.router.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := env.service.Current(); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected session abandoned by shutdown, got %v", err)
	}
	expectClosed(t, conn)
	expectClosed(t, categories)

	late := env.dial(t, "/ws")
	expectClosed(t, late)
}

func waitNoSession(t *testing.T, service *app.QuizService) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := service.Current(); errors.Is(err, domain.ErrNoActiveSession) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session still live after the socket closed")
}

// expectClosed drains buffered messages and fails unless the server hung up.
func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	for i := 0; i < 50; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatalf("connection still open")
			}
			return
		}
	}
	t.Fatalf("connection still open")
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages until one of type expect arrives and returns its payload.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == expect {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message received", expect)
	return nil
}

func readCategories(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	var msg struct {
		Type    string   `json:"type"`
		Payload []string `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "categories" {
		t.Fatalf("expected categories, got %s", msg.Type)
	}
	return msg.Payload
}

func sampleQuestions(n int) []domain.Question {
	categories := []string{"science", "history", "geography"}
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Category:      categories[i%len(categories)],
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
