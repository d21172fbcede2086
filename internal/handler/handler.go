package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"integrations-api/internal/integration"
	"integrations-api/internal/middleware"
	"integrations-api/internal/model"
)

type Integrations interface {
	List(ctx context.Context, userID string) ([]string, error)
	Remove(ctx context.Context, userID string, req integration.RemoveRequest) error
}

type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	integrations Integrations
	users        Users
	secret       string
	log          *zap.Logger
}

func New(in Integrations, users Users, secret string, log *zap.Logger) *Handler {
	return &Handler{integrations: in, users: users, secret: secret, log: log}
}

// Routes builds the router. Unsupported methods get 405 from the router
// itself, before any session handling runs.
func (h *Handler) Routes(rl *middleware.RateLimiter) *httprouter.Router {
	r := httprouter.New()
	r.HandleMethodNotAllowed = true
	r.HandleOPTIONS = false
	r.MethodNotAllowed = http.HandlerFunc(methodNotAllowed)
	r.PanicHandler = h.panicked

	session := middleware.Session(h.secret)
	r.GET("/api/integrations", session(h.wrap(h.ListIntegrations)))
	r.DELETE("/api/integrations", session(h.wrap(h.RemoveIntegration)))

	r.POST("/auth/register", rl.Limit(h.wrap(h.Register)))
	r.POST("/auth/login", rl.Limit(h.wrap(h.Login)))

	r.GET("/healthz", h.Health)
	return r
}

type message struct {
	Message string `json:"message"`
}

var errInternal = message{"Internal server error"}

func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}

type handle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error

// wrap turns errors a handler did not translate itself into a logged 500.
func (h *Handler) wrap(fn handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := fn(w, r, ps); err != nil {
			h.log.Error("unhandled error",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			respondJSON(w, http.StatusInternalServerError, errInternal)
		}
	}
}

func (h *Handler) panicked(w http.ResponseWriter, r *http.Request, v any) {
	h.log.Error("panic", zap.String("path", r.URL.Path), zap.Any("value", v), zap.Stack("stack"))
	respondJSON(w, http.StatusInternalServerError, errInternal)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

var errBadBody = errors.New("malformed request body")

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.users.Ping(r.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
