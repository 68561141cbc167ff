package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/repository"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/metrics"
)

// ExpirySweeper periodically fails pending payments that outlived the expiry
// window without anyone polling them (closed tab, dead phone). It consults
// only the clock, never the gateway: a payment that actually went through is
// caught by the success-absorbing poll when the customer comes back.
type ExpirySweeper struct {
	payments repository.PaymentRepository
	interval time.Duration
	expiry   time.Duration
	log      *zerolog.Logger
}

func NewExpirySweeper(payments repository.PaymentRepository, interval, expiry time.Duration, logger *zerolog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if expiry <= 0 {
		expiry = 3 * time.Minute
	}
	compLog := logger.With().Str("component", "ExpirySweeper").Logger()
	return &ExpirySweeper{
		payments: payments,
		interval: interval,
		expiry:   expiry,
		log:      &compLog,
	}
}

func (w *ExpirySweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry sweeper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.sweep(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep failed")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired stale payment attempts")
			}
		}
	}
}

func (w *ExpirySweeper) sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-w.expiry)
	stale, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		return 0, err
	}

	expired := 0
	msg := model.FailureExpired
	for _, p := range stale {
		// The compare-and-set loses quietly against a concurrent poll that
		// resolved the record first.
		ok, err := w.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, &msg, nil)
		if err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to expire payment")
			continue
		}
		if ok {
			metrics.IncPayment("expired")
			expired++
		}
	}
	return expired, nil
}
