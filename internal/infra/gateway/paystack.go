package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/adapter"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*PaystackGateway)(nil)

type Config struct {
	BaseURL       string
	SecretKey     string
	Provider      string // mobile money provider code, e.g. "mpesa"
	EmailDomain   string // synthetic customer emails: <phone>@<domain>
	Currency      string
	ChargeTimeout time.Duration
	QueryTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.paystack.co"
	}
	if c.Provider == "" {
		c.Provider = "mpesa"
	}
	if c.Currency == "" {
		c.Currency = "KES"
	}
	if c.ChargeTimeout <= 0 {
		c.ChargeTimeout = 30 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// PaystackGateway drives M-PESA STK push charges through Paystack's charge
// API. The secret key never leaves the Authorization header and response
// bodies are passed back raw for the payment trail.
type PaystackGateway struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

func NewPaystackGateway(cfg Config, logger zerolog.Logger) *PaystackGateway {
	cfg.applyDefaults()
	return &PaystackGateway{
		cfg:    cfg,
		client: &http.Client{},
		log:    logger.With().Str("component", "paystack").Logger(),
	}
}

func (g *PaystackGateway) Name() string { return "paystack" }

type chargeRequest struct {
	Email       string      `json:"email"`
	Amount      int64       `json:"amount"`
	Reference   string      `json:"reference"`
	Currency    string      `json:"currency"`
	MobileMoney mobileMoney `json:"mobile_money"`
}

type mobileMoney struct {
	Phone    string `json:"phone"`
	Provider string `json:"provider"`
}

type chargeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID          json.Number `json:"id"`
		Status      string      `json:"status"`
		Reference   string      `json:"reference"`
		DisplayText string      `json:"display_text"`
		Message     string      `json:"message"`
		GatewayResp string      `json:"gateway_response"`
	} `json:"data"`
}

func (g *PaystackGateway) InitiateCharge(ctx context.Context, reference, phone string, amountCents int64) (adapter.ChargeResult, error) {
	start := time.Now()
	res, err := g.initiateCharge(ctx, reference, phone, amountCents)
	switch {
	case err != nil:
		metrics.ObserveGatewayRequest("charge", "error", time.Since(start))
	case res.Accepted:
		metrics.ObserveGatewayRequest("charge", "ok", time.Since(start))
	default:
		metrics.ObserveGatewayRequest("charge", "rejected", time.Since(start))
	}
	return res, err
}

func (g *PaystackGateway) initiateCharge(ctx context.Context, reference, phone string, amountCents int64) (adapter.ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ChargeTimeout)
	defer cancel()

	payload := chargeRequest{
		Email:     phone + "@" + g.cfg.EmailDomain,
		Amount:    amountCents,
		Reference: reference,
		Currency:  g.cfg.Currency,
		MobileMoney: mobileMoney{
			Phone:    "+" + phone,
			Provider: g.cfg.Provider,
		},
	}
	raw, err := g.post(ctx, "/charge", payload)
	if err != nil {
		g.log.Warn().Err(err).Str("reference", reference).Msg("charge request failed")
		return adapter.ChargeResult{}, err
	}

	var resp chargeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return adapter.ChargeResult{}, fmt.Errorf("failed to unmarshal charge response: %w", err)
	}

	if !resp.Status || strings.EqualFold(resp.Data.Status, "failed") {
		reason := firstNonEmpty(resp.Data.GatewayResp, resp.Data.Message, resp.Message)
		return adapter.ChargeResult{
			Accepted: false,
			Message:  classifyRejection(reason),
			Raw:      raw,
		}, nil
	}

	prompt := firstNonEmpty(resp.Data.DisplayText, resp.Data.Message, resp.Message)
	return adapter.ChargeResult{
		Accepted:      true,
		TransactionID: resp.Data.ID.String(),
		Message:       prompt,
		Raw:           raw,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID          json.Number `json:"id"`
		Status      string      `json:"status"`
		Reference   string      `json:"reference"`
		GatewayResp string      `json:"gateway_response"`
	} `json:"data"`
}

func (g *PaystackGateway) QueryTransaction(ctx context.Context, transactionID, reference string) (adapter.TxStatus, error) {
	start := time.Now()
	res, err := g.queryTransaction(ctx, transactionID, reference)
	if err != nil {
		metrics.ObserveGatewayRequest("query", "error", time.Since(start))
	} else {
		metrics.ObserveGatewayRequest("query", "ok", time.Since(start))
	}
	return res, err
}

func (g *PaystackGateway) queryTransaction(ctx context.Context, transactionID, reference string) (adapter.TxStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()

	path := "/transaction/verify/" + reference
	if transactionID != "" {
		path = "/transaction/" + transactionID
	}
	raw, err := g.get(ctx, path)
	if err != nil {
		return adapter.TxStatus{}, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return adapter.TxStatus{}, fmt.Errorf("failed to unmarshal transaction response: %w", err)
	}

	// An API-level refusal (e.g. "transaction not found" right after a charge
	// was queued) is not evidence of failure. Report pending and let the next
	// poll try again.
	if !resp.Status {
		return adapter.TxStatus{State: adapter.TxPending, Reason: resp.Message, Raw: raw}, nil
	}

	reason := firstNonEmpty(resp.Data.GatewayResp, resp.Message)
	switch strings.ToLower(resp.Data.Status) {
	case "success":
		return adapter.TxStatus{State: adapter.TxSuccess, Raw: raw}, nil
	case "failed", "reversed":
		if strings.Contains(strings.ToLower(reason), "cancel") {
			return adapter.TxStatus{State: adapter.TxCancelled, Reason: reason, Raw: raw}, nil
		}
		return adapter.TxStatus{State: adapter.TxFailed, Reason: reason, Raw: raw}, nil
	default:
		// pending, ongoing, send_otp, pay_offline, abandoned, or anything new.
		return adapter.TxStatus{State: adapter.TxPending, Reason: reason, Raw: raw}, nil
	}
}

func (g *PaystackGateway) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req)
}

func (g *PaystackGateway) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return g.do(req)
}

func (g *PaystackGateway) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paystack returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// classifyRejection turns Paystack's rejection text into guidance a customer
// can act on. Unrecognized reasons pass through verbatim.
func classifyRejection(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "insufficient"):
		return "Insufficient M-PESA balance. Top up and try again."
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return "The payment prompt timed out. Please try again."
	case strings.Contains(lower, "cancel"):
		return "Payment was cancelled by user."
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "not registered"):
		return "This number is not registered for M-PESA. Check the number and try again."
	case reason == "":
		return "Payment could not be started. Please try again."
	default:
		return reason
	}
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
