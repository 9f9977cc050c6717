package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"offline-quiz-service/internal/app"
	"offline-quiz-service/internal/domain"
)

const defaultListLimit = 10

// Accounts is the sign-up/sign-in surface exposed over HTTP.
type Accounts interface {
	SignUp(ctx context.Context, name, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut()
}

// APIHandler serves the JSON endpoints next to the websockets.
type APIHandler struct {
	service  *app.QuizService
	accounts Accounts
	logger   *slog.Logger
}

// NewAPIHandler builds the handler; accounts may be nil when identity is static.
func NewAPIHandler(service *app.QuizService, accounts Accounts, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{service: service, accounts: accounts, logger: logger.With("component", "api")}
}

type syncResponse struct {
	Updated bool           `json:"updated"`
	Status  app.SyncStatus `json:"status"`
}

type statsResponse struct {
	domain.StatsSummary
	OverallPercentage float64 `json:"overallPercentage"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID string `json:"userId"`
}

func (h *APIHandler) Sync(w http.ResponseWriter, r *http.Request) {
	updated, status := h.service.Sync(r.Context())
	writeJSON(w, http.StatusOK, syncResponse{Updated: updated, Status: status})
}

func (h *APIHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.LoadCategories(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{StatsSummary: summary, OverallPercentage: summary.OverallPercentage()})
}

func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.History(r.Context(), limitParam(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *APIHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Ranking(r.Context(), limitParam(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	userID, err := h.accounts.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{UserID: userID})
}

func (h *APIHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	userID, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{UserID: userID})
}

func (h *APIHandler) SignOut(w http.ResponseWriter, _ *http.Request) {
	h.accounts.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case app.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
