package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"offline-quiz-service/internal/app"
	"offline-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	logger   *slog.Logger
	upgrader websocket.Upgrader

	// http.Server.Shutdown does not track hijacked connections, so the handler does.
	mu      sync.Mutex
	closing bool
	conns   map[*websocket.Conn]struct{}
	active  sync.WaitGroup
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// upgrade opens a tracked websocket. The caller must defer release.
func (h *WSHandler) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		_ = conn.Close()
		return nil, false
	}
	h.conns[conn] = struct{}{}
	h.active.Add(1)
	return conn, true
}

func (h *WSHandler) release(conn *websocket.Conn) {
	_ = conn.Close()
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.active.Done()
}

// Shutdown closes every open websocket and waits for their handlers to return.
// New upgrades are refused afterwards.
func (h *WSHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	for conn := range h.conns {
		_ = conn.Close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type selectPayload struct {
	Choice string `json:"choice"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type finishedPayload struct {
	State  stateView          `json:"state"`
	Result *domain.QuizResult `json:"result,omitempty"`
	Saved  bool               `json:"saved"`
	Error  string             `json:"error,omitempty"`
}

type questionView struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	Difficulty    string   `json:"difficulty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

type stateView struct {
	Phase          domain.Phase  `json:"phase"`
	Category       string        `json:"category"`
	Question       *questionView `json:"question,omitempty"`
	CurrentIndex   int           `json:"currentIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	SelectedAnswer string        `json:"selectedAnswer"`
	IsConfirmed    bool          `json:"isConfirmed"`
	CorrectCount   int           `json:"correctCount"`
	Score          int           `json:"score"`
	ElapsedSeconds int64         `json:"elapsedSeconds"`
	Elapsed        string        `json:"elapsed"`
	Progress       float64       `json:"progress"`
	Percentage     float64       `json:"percentage"`
	IsFinished     bool          `json:"isFinished"`
}

// viewOf renders a snapshot for clients. The correct answer is only revealed
// once the current question is confirmed.
func viewOf(s domain.SessionState) stateView {
	view := stateView{
		Phase:          s.Phase(),
		Category:       s.Category,
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: s.TotalQuestions(),
		SelectedAnswer: s.SelectedAnswer,
		IsConfirmed:    s.IsConfirmed,
		CorrectCount:   s.CorrectCount,
		Score:          s.Score,
		ElapsedSeconds: s.ElapsedSeconds,
		Elapsed:        domain.FormatElapsed(s.ElapsedSeconds),
		Progress:       s.Progress(),
		Percentage:     s.Percentage(),
		IsFinished:     s.IsFinished,
	}
	if q, ok := s.CurrentQuestion(); ok {
		qv := &questionView{
			ID:         q.ID,
			Category:   q.Category,
			Text:       q.Text,
			Options:    q.Options(),
			Difficulty: q.Difficulty,
		}
		if s.IsConfirmed {
			qv.CorrectAnswer = q.CorrectAnswer
		}
		view.Question = qv
	}
	return view
}

// ServeWS upgrades HTTP requests to websockets and drives the live quiz session.
// Every session change, clock ticks included, is pushed as a "state" message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.upgrade(w, r)
	if !ok {
		return
	}
	defer h.release(conn)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "err", err)
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	emitError := func(err error) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	var (
		forwarders  sync.WaitGroup
		stopForward func()
		owned       *app.Session
	)
	follow := func(session *app.Session) {
		if stopForward != nil {
			stopForward()
		}
		owned = session
		updates, cancel := session.Subscribe()
		stopForward = cancel
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			for {
				select {
				case state, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: "state", Payload: viewOf(state)}:
					case <-closeSignals:
						return
					case <-writerDone:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
	}

	if session, err := h.service.Current(); err == nil {
		follow(session)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid start payload"}})
					continue
				}
			}
			session, err := h.service.StartQuiz(r.Context(), payload.Category, payload.Count)
			if err != nil {
				emitError(err)
				continue
			}
			follow(session)
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Choice == "" {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}})
				continue
			}
			if _, err := h.service.SelectAnswer(payload.Choice); err != nil {
				emitError(err)
			}
		case "confirm":
			if _, err := h.service.ConfirmAnswer(); err != nil {
				emitError(err)
			}
		case "next":
			advance, err := h.service.NextQuestion(r.Context())
			if !advance.Finished {
				if err != nil {
					emitError(err)
				}
				continue
			}
			finished := finishedPayload{State: viewOf(advance.State), Result: advance.Result, Saved: err == nil}
			if err != nil {
				finished.Error = err.Error()
			}
			emit(outboundMessage[any]{Type: "finished", Payload: finished})
		case "abandon":
			h.service.Abandon()
		default:
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	if stopForward != nil {
		stopForward()
	}
	forwarders.Wait()
	// The view is gone; its session must not keep ticking.
	h.service.AbandonSession(owned)
	close(send)
	<-writerDone
}

// ServeCategories streams the category list on connect and after every cache write.
func (h *WSHandler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.upgrade(w, r)
	if !ok {
		return
	}
	defer h.release(conn)

	categories, cancel, err := h.service.SubscribeCategories(r.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	// Reads only detect the peer going away.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case list, ok := <-categories:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[[]string]{Type: "categories", Payload: list}); err != nil {
				return
			}
		case <-peerGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
