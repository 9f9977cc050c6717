package http

import (
	"context"
	"log/slog"
	"net/http"

	"offline-quiz-service/internal/app"
)

// Router serves every endpoint and owns the websockets it upgraded.
type Router struct {
	http.Handler
	ws *WSHandler
}

// Shutdown closes open websockets and waits for their handlers. Call it after
// http.Server.Shutdown, which does not wait for hijacked connections.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.ws.Shutdown(ctx)
}

// NewRouter mounts every endpoint. Auth routes exist only when accounts is set.
func NewRouter(service *app.QuizService, accounts Accounts, logger *slog.Logger) *Router {
	ws := NewWSHandler(service, logger)
	api := NewAPIHandler(service, accounts, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("/ws/categories", ws.ServeCategories)
	mux.HandleFunc("POST /sync", api.Sync)
	mux.HandleFunc("GET /categories", api.Categories)
	mux.HandleFunc("GET /stats", api.Stats)
	mux.HandleFunc("GET /history", api.History)
	mux.HandleFunc("GET /ranking", api.Ranking)
	if accounts != nil {
		mux.HandleFunc("POST /auth/signup", api.SignUp)
		mux.HandleFunc("POST /auth/signin", api.SignIn)
		mux.HandleFunc("POST /auth/signout", api.SignOut)
	}
	return &Router{Handler: mux, ws: ws}
}
