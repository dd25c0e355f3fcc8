package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/cleanyhq/cleany/internal/account"
	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/krypto"
)

// AccountService provides the credential lifecycle operations exposed
// over HTTP.
type AccountService interface {
	Register(ctx context.Context, d account.Draft) error
	Activate(ctx context.Context, req account.ActivateRequest) (account.ActivateResult, error)
	Login(ctx context.Context, c account.Credentials, remember bool) (account.LoginResult, error)
	ResumeSession(ctx context.Context, id uuid.UUID, token krypto.Token) (account.Account, error)
	Logout(ctx context.Context, id uuid.UUID) error
	RequestPasswordReset(ctx context.Context, kind account.Kind, addr email.Address)
	ValidateResetToken(ctx context.Context, req account.ResetRequest) error
	CompleteReset(ctx context.Context, req account.ResetRequest, newPassword account.Password) error
}

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger  *slog.Logger
	Service AccountService
}

// Server exposes the account service as a JSON API.
//
// Responses to unauthenticated callers are deliberately uniform: the
// different failure reasons behind a rejected login, activation or reset
// are only visible in the logs, never in the response body or timing.
type Server struct {
	deps   *ServerDeps
	router chi.Router
}

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		deps:   deps,
		router: chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)

	s.router.Get("/health", s.health)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/activations", s.activate)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Post("/sessions", s.resumeSession)
		r.Post("/password-resets", s.requestPasswordReset)
		r.Post("/password-resets/validations", s.validateResetToken)
		r.Post("/password-resets/completions", s.completeReset)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	render(w, messageResponse{Message: "ok"}, http.StatusOK)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.deps.Logger.Info("request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// logError records the actual failure for operators. The response the
// caller gets is written separately and is intentionally less specific.
func (s *Server) logError(r *http.Request, err error) {
	s.deps.Logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
