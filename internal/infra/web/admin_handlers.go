package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/metrics"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/phone"
)

type adminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondStatus(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.admin.Password)) == 1
	if !userOK || !passOK {
		s.log.Warn().Str("username", req.Username).Msg("failed admin login")
		respondStatus(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mint admin session")
		respondStatus(w, http.StatusInternalServerError, msgInternal)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	respondMessage(w, http.StatusOK, true, "Logged out")
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.statsUC.Totals(r.Context())
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"payers":              totals.Payers,
		"videos":              totals.Videos,
		"active_videos":       totals.ActiveVideos,
		"revenue_cents":       totals.RevenueCents,
		"today_revenue_cents": totals.TodayRevenueCents,
	})
}

type adminPaymentResponse struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	Phone         string  `json:"phone"`
	Name          string  `json:"name"`
	VideoID       *string `json:"video_id"`
	AmountCents   int64   `json:"amount_cents"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	Paid          bool    `json:"paid"`
	TransactionID string  `json:"transaction_id,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	PaidAt        string  `json:"paid_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toAdminPayment(p *model.PaymentRecord) adminPaymentResponse {
	out := adminPaymentResponse{
		ID:            p.ID,
		Reference:     p.Reference,
		Phone:         phone.FormatDisplay(p.Phone),
		Name:          p.Name,
		VideoID:       p.VideoID,
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		Status:        string(p.Status),
		Paid:          p.Paid,
		TransactionID: p.TransactionID,
		ErrorMessage:  p.ErrorMessage,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		out.PaidAt = p.PaidAt.Format(time.RFC3339)
	}
	return out
}

// handleAdminPayments lists recent payments, or a phone's full history when
// the phone query parameter is set.
func (s *Server) handleAdminPayments(w http.ResponseWriter, r *http.Request) {
	var (
		payments []*model.PaymentRecord
		err      error
	)
	if ph := r.URL.Query().Get("phone"); ph != "" {
		num, perr := phone.Normalize(ph)
		if perr != nil {
			respondStatus(w, http.StatusBadRequest, msgInvalidPhone)
			return
		}
		payments, err = s.statsUC.PaymentsByPhone(r.Context(), num.Display)
	} else {
		limit, _ := atoiQuery(r, "limit")
		payments, err = s.statsUC.RecentPayments(r.Context(), limit)
	}
	if err != nil {
		respondDomainErr(w, err)
		return
	}

	out := make([]adminPaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toAdminPayment(p))
	}
	respondData(w, http.StatusOK, out)
}

func (s *Server) handleAdminPaymentDetail(w http.ResponseWriter, r *http.Request) {
	p, err := s.statsUC.PaymentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondData(w, http.StatusOK, toAdminPayment(p))
}

// handleAdminPaymentRefund records a manual M-PESA reversal; the actual money
// movement happens outside the system.
func (s *Server) handleAdminPaymentRefund(w http.ResponseWriter, r *http.Request) {
	if err := s.paymentUC.Refund(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			respondStatus(w, http.StatusBadRequest, "Only successful payments can be refunded")
			return
		}
		respondDomainErr(w, err)
		return
	}
	metrics.IncPayment("refunded")
	respondMessage(w, http.StatusOK, true, "Payment marked refunded")
}

type adminPayerResponse struct {
	Phone         string `json:"phone"`
	Name          string `json:"name"`
	Purchases     int    `json:"purchases"`
	SpentCents    int64  `json:"spent_cents"`
	LastPaymentAt string `json:"last_payment_at"`
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := atoiQuery(r, "limit")
	payers, err := s.statsUC.Payers(r.Context(), limit)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	out := make([]adminPayerResponse, 0, len(payers))
	for _, p := range payers {
		out = append(out, adminPayerResponse{
			Phone:         phone.FormatDisplay(p.Phone),
			Name:          p.Name,
			Purchases:     p.Purchases,
			SpentCents:    p.SpentCents,
			LastPaymentAt: p.LastPaymentAt.Format(time.RFC3339),
		})
	}
	respondData(w, http.StatusOK, out)
}

// handleAdminUserDetail returns one customer's full payment history.
func (s *Server) handleAdminUserDetail(w http.ResponseWriter, r *http.Request) {
	num, err := phone.Normalize(chi.URLParam(r, "phone"))
	if err != nil {
		respondStatus(w, http.StatusBadRequest, msgInvalidPhone)
		return
	}
	payments, err := s.statsUC.PaymentsByPhone(r.Context(), num.Display)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	if len(payments) == 0 {
		respondStatus(w, http.StatusNotFound, "No payments for this phone")
		return
	}

	history := make([]adminPaymentResponse, 0, len(payments))
	var purchases int
	var spent int64
	name := payments[0].Name
	for _, p := range payments {
		if p.Status == model.PaymentStatusSuccess {
			purchases++
			spent += p.AmountCents
		}
		history = append(history, toAdminPayment(p))
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"phone":       phone.FormatDisplay(num.Display),
		"name":        name,
		"purchases":   purchases,
		"spent_cents": spent,
		"payments":    history,
	})
}

type adminVideoRequest struct {
	Title         string `json:"title" validate:"required"`
	VideoPath     string `json:"video_path"`
	TrailerPath   string `json:"trailer_path"`
	ThumbnailPath string `json:"thumbnail_path"`
	YearPublished int    `json:"year_published"`
	Introduction  string `json:"introduction"`
	CastMembers   string `json:"cast_members"`
	Theme         string `json:"theme"`
	Length        string `json:"length"`
	MovieType     string `json:"movie_type"`
	ExpireDate    string `json:"expire_date" validate:"required"`
}

func (req *adminVideoRequest) toModel() (*model.VideoAsset, error) {
	expire, err := time.Parse(time.RFC3339, req.ExpireDate)
	if err != nil {
		return nil, err
	}
	return &model.VideoAsset{
		Title:         req.Title,
		VideoPath:     req.VideoPath,
		TrailerPath:   req.TrailerPath,
		ThumbnailPath: req.ThumbnailPath,
		YearPublished: req.YearPublished,
		Introduction:  req.Introduction,
		CastMembers:   req.CastMembers,
		Theme:         req.Theme,
		Length:        req.Length,
		MovieType:     req.MovieType,
		ExpireDate:    expire,
	}, nil
}

func (s *Server) handleAdminVideosList(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalogUC.ListAll(r.Context())
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

func (s *Server) handleAdminVideoCreate(w http.ResponseWriter, r *http.Request) {
	var req adminVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondStatus(w, http.StatusBadRequest, "title and expire_date are required")
		return
	}
	v, err := req.toModel()
	if err != nil {
		respondStatus(w, http.StatusBadRequest, "expire_date must be RFC 3339")
		return
	}

	created, err := s.catalogUC.Create(r.Context(), v)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondData(w, http.StatusCreated, toVideoResponse(created))
}

func (s *Server) handleAdminVideoUpdate(w http.ResponseWriter, r *http.Request) {
	var req adminVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondStatus(w, http.StatusBadRequest, "title and expire_date are required")
		return
	}
	v, err := req.toModel()
	if err != nil {
		respondStatus(w, http.StatusBadRequest, "expire_date must be RFC 3339")
		return
	}
	v.ID = chi.URLParam(r, "id")

	if err := s.catalogUC.Update(r.Context(), v); err != nil {
		respondDomainErr(w, err)
		return
	}
	respondData(w, http.StatusOK, toVideoResponse(v))
}

func (s *Server) handleAdminVideoDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalogUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainErr(w, err)
		return
	}
	respondMessage(w, http.StatusOK, true, "Video deleted")
}

func (s *Server) handleAdminVideoStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.catalogUC.Get(r.Context(), id); err != nil {
		respondDomainErr(w, err)
		return
	}
	stats, err := s.catalogUC.Stats(r.Context(), id)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"purchases":     stats.Purchases,
		"revenue_cents": stats.RevenueCents,
	})
}

func atoiQuery(r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0, false
	}
	return n, true
}
