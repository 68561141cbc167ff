package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway accepts every charge and confirms it on the second status
// query. It exists so the storefront can run end to end in development
// without a Paystack key or a real phone.
type NoopGateway struct {
	log zerolog.Logger

	mu      sync.Mutex
	queried map[string]int
}

func NewNoopGateway(logger zerolog.Logger) *NoopGateway {
	return &NoopGateway{
		log:     logger.With().Str("component", "noop-gateway").Logger(),
		queried: make(map[string]int),
	}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) InitiateCharge(ctx context.Context, reference, phone string, amountCents int64) (adapter.ChargeResult, error) {
	g.log.Info().Str("reference", reference).Int64("amount_cents", amountCents).Msg("simulated charge accepted")
	return adapter.ChargeResult{
		Accepted:      true,
		TransactionID: "noop-" + reference,
		Message:       "Check your phone and enter your M-PESA PIN to complete payment.",
	}, nil
}

func (g *NoopGateway) QueryTransaction(ctx context.Context, transactionID, reference string) (adapter.TxStatus, error) {
	g.mu.Lock()
	g.queried[reference]++
	n := g.queried[reference]
	g.mu.Unlock()

	if n < 2 {
		return adapter.TxStatus{State: adapter.TxPending}, nil
	}
	return adapter.TxStatus{State: adapter.TxSuccess}, nil
}
