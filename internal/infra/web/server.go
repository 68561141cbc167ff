package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/usecase"
)

// RateLimiter is what the handlers need from the Redis limiter. A nil limiter
// disables throttling, which the tests rely on.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type AdminCredentials struct {
	Username string
	Password string
}

type Server struct {
	paymentUC usecase.PaymentUseCase
	accessUC  usecase.AccessUseCase
	catalogUC usecase.CatalogUseCase
	statsUC   usecase.StatsUseCase

	auth     *AuthManager
	admin    AdminCredentials
	limiter  RateLimiter
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	accessUC usecase.AccessUseCase,
	catalogUC usecase.CatalogUseCase,
	statsUC usecase.StatsUseCase,
	auth *AuthManager,
	admin AdminCredentials,
	limiter RateLimiter,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		paymentUC: paymentUC,
		accessUC:  accessUC,
		catalogUC: catalogUC,
		statsUC:   statsUC,
		auth:      auth,
		admin:     admin,
		limiter:   limiter,
		validate:  validator.New(),
		log:       logger,
	}
}

// Router builds the full route tree for the storefront and admin APIs.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", s.handleCheckout)
		r.Get("/payments/status", s.handlePaymentStatus)
		r.Post("/payments/retry", s.handlePaymentRetry)
		r.Post("/phone/validate", s.handlePhoneValidate)

		r.Get("/videos", s.handleVideosList)
		r.Get("/videos/{id}", s.handleVideoGet)
		r.Get("/videos/{id}/access", s.handleVideoAccess)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleAdminLogin)
			r.Post("/logout", s.handleAdminLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/stats", s.handleAdminStats)
				r.Get("/payments", s.handleAdminPayments)
				r.Get("/payments/{id}", s.handleAdminPaymentDetail)
				r.Post("/payments/{id}/refund", s.handleAdminPaymentRefund)
				r.Get("/users", s.handleAdminUsers)
				r.Get("/users/{phone}", s.handleAdminUserDetail)
				r.Get("/videos", s.handleAdminVideosList)
				r.Post("/videos", s.handleAdminVideoCreate)
				r.Put("/videos/{id}", s.handleAdminVideoUpdate)
				r.Delete("/videos/{id}", s.handleAdminVideoDelete)
				r.Get("/videos/{id}/stats", s.handleAdminVideoStats)
			})
		})
	})

	return r
}

// requireAdmin gates a subtree behind a valid admin session.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil || claims.Role != "admin" {
			respondStatus(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
