package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/metrics"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/redis"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/phone"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/usecase"
)

const (
	checkoutLimit  = 5
	checkoutWindow = time.Minute
)

type checkoutRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Phone   string `json:"phone" validate:"required"`
	VideoID string `json:"video_id" validate:"required,uuid4"`
}

type checkoutResponse struct {
	AlreadyPaid   bool   `json:"already_paid"`
	PaymentID     string `json:"payment_id"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	Retry         bool   `json:"retry"`
	VideoID       string `json:"video_id"`
}

func toCheckoutResponse(res *usecase.CheckoutResult) checkoutResponse {
	return checkoutResponse{
		AlreadyPaid:   res.AlreadyPaid,
		PaymentID:     res.PaymentID,
		Reference:     res.Reference,
		TransactionID: res.TransactionID,
		Status:        string(res.Status),
		Message:       res.Message,
		Retry:         res.Retry,
		VideoID:       res.VideoID,
	}
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondRejection(w, "Please fill in your name, phone number and the video.")
		return
	}
	num, err := phone.Normalize(req.Phone)
	if err != nil {
		metrics.IncCheckout("rejected")
		respondRejection(w, msgInvalidPhone)
		return
	}
	if !s.allow(r, redis.PhoneOpKey(num.Display, "checkout"), checkoutLimit, checkoutWindow) {
		respondRejection(w, msgTooManyRequests)
		return
	}

	res, err := s.paymentUC.Checkout(r.Context(), req.Name, req.Phone, req.VideoID)
	if err != nil {
		metrics.IncCheckout(checkoutErrOutcome(err))
		respondDomainErr(w, err)
		return
	}

	switch {
	case res.AlreadyPaid:
		metrics.IncCheckout("already_paid")
	case res.Accepted:
		metrics.IncCheckout("initiated")
	default:
		metrics.IncCheckout("rejected")
	}
	writeJSON(w, http.StatusOK, envelope{Success: res.Accepted, Message: res.Message, Data: toCheckoutResponse(res)})
}

type pollResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Paid      bool   `json:"paid"`
	Retry     bool   `json:"retry"`
	PaymentID string `json:"payment_id"`
	Reference string `json:"reference"`
	VideoID   string `json:"video_id"`
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("payment_id")
	reference := r.URL.Query().Get("reference")
	if paymentID == "" && reference == "" {
		respondStatus(w, http.StatusBadRequest, "payment_id or reference is required")
		return
	}

	res, err := s.paymentUC.Poll(r.Context(), paymentID, reference)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	metrics.IncPoll(string(res.Status))
	respondData(w, http.StatusOK, pollResponse{
		Status:    string(res.Status),
		Message:   res.Message,
		Paid:      res.Status == usecase.PollSuccess,
		Retry:     res.Retry,
		PaymentID: res.PaymentID,
		Reference: res.Reference,
		VideoID:   res.VideoID,
	})
}

type retryRequest struct {
	PaymentID string `json:"payment_id"`
	Reference string `json:"reference"`
}

func (s *Server) handlePaymentRetry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PaymentID == "" && req.Reference == "" {
		respondStatus(w, http.StatusBadRequest, "payment_id or reference is required")
		return
	}

	res, err := s.paymentUC.Retry(r.Context(), req.PaymentID, req.Reference)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: res.Accepted, Message: res.Message, Data: toCheckoutResponse(res)})
}

type phoneValidateRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) handlePhoneValidate(w http.ResponseWriter, r *http.Request) {
	var req phoneValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !s.allow(r, redis.ClientOpKey(r.RemoteAddr, "phone_validate"), 30, time.Minute) {
		respondRejection(w, msgTooManyRequests)
		return
	}

	num, err := phone.Normalize(req.Phone)
	if err != nil {
		respondRejection(w, msgInvalidPhone)
		return
	}
	respondData(w, http.StatusOK, map[string]string{
		"phone":     num.Display,
		"formatted": phone.FormatDisplay(num.Display),
	})
}

type videoResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	TrailerPath   string   `json:"trailer_path"`
	ThumbnailPath string   `json:"thumbnail_path"`
	YearPublished int      `json:"year_published"`
	Introduction  string   `json:"introduction"`
	IntroLines    []string `json:"intro_lines"`
	CastMembers   string   `json:"cast_members"`
	Theme         string   `json:"theme"`
	Length        string   `json:"length"`
	MovieType     string   `json:"movie_type"`
	DateUploaded  string   `json:"date_uploaded"`
	ExpireDate    string   `json:"expire_date"`
}

func toVideoResponse(v *model.VideoAsset) videoResponse {
	return videoResponse{
		ID:            v.ID,
		Title:         v.Title,
		TrailerPath:   v.TrailerPath,
		ThumbnailPath: v.ThumbnailPath,
		YearPublished: v.YearPublished,
		Introduction:  v.Introduction,
		IntroLines:    v.IntroChunks(),
		CastMembers:   v.CastMembers,
		Theme:         v.Theme,
		Length:        v.Length,
		MovieType:     v.MovieType,
		DateUploaded:  v.DateUploaded.Format(time.RFC3339),
		ExpireDate:    v.ExpireDate.Format(time.RFC3339),
	}
}

func (s *Server) handleVideosList(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalogUC.ListActive(r.Context())
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	out := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v))
	}
	respondData(w, http.StatusOK, out)
}

func (s *Server) handleVideoGet(w http.ResponseWriter, r *http.Request) {
	v, err := s.catalogUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondData(w, http.StatusOK, toVideoResponse(v))
}

func (s *Server) handleVideoAccess(w http.ResponseWriter, r *http.Request) {
	rawPhone := r.URL.Query().Get("phone")
	if rawPhone == "" {
		respondStatus(w, http.StatusBadRequest, "phone is required")
		return
	}
	ok, err := s.accessUC.HasAccess(r.Context(), rawPhone, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"access": ok})
}

// allow consults the rate limiter, failing open when Redis is unreachable so
// throttling never takes the storefront down with it.
func (s *Server) allow(r *http.Request, key string, limit int, window time.Duration) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(r.Context(), key, limit, window)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

func checkoutErrOutcome(err error) string {
	if errors.Is(err, domain.ErrCheckoutInProgress) {
		return "locked"
	}
	return "rejected"
}
