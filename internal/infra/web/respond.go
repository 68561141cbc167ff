package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/metrics"
)

// envelope is the uniform response shape of the storefront API. Business
// rejections (bad phone, expired video, checkout race) travel as HTTP 200
// with success=false so the storefront widget can show the message verbatim.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	msgInvalidPhone       = "Invalid phone number. Enter a valid M-PESA number, e.g. 0712 345 678."
	msgVideoUnavailable   = "This video is no longer available for purchase."
	msgCheckoutInProgress = "A payment request for this video is already in progress. Check your phone."
	msgTooManyRequests    = "Too many requests. Please wait a moment and try again."
	msgInternal           = "Something went wrong. Please try again."
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, envelope{Success: success, Message: message})
}

func respondStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// respondRejection answers a business rule refusal: HTTP 200, success=false.
func respondRejection(w http.ResponseWriter, message string) {
	respondMessage(w, http.StatusOK, false, message)
}

// respondDomainErr maps domain sentinels onto the wire. Storefront handlers
// special-case the errors their flows expect before falling through here.
func respondDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPhone):
		respondRejection(w, msgInvalidPhone)
	case errors.Is(err, domain.ErrVideoExpired):
		respondRejection(w, msgVideoUnavailable)
	case errors.Is(err, domain.ErrCheckoutInProgress):
		respondRejection(w, msgCheckoutInProgress)
	case errors.Is(err, domain.ErrNotFound):
		respondStatus(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		respondStatus(w, http.StatusBadRequest, "Invalid request")
	default:
		respondStatus(w, http.StatusInternalServerError, msgInternal)
	}
}

// recoverer keeps a handler panic from tearing the connection down without a
// JSON body.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				respondStatus(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// observe records per-route request counts and latency.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(route, r.Method, ww.Status(), time.Since(start))
	})
}
