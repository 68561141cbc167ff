//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
)

func seedVideo(t *testing.T) *model.VideoAsset {
	t.Helper()
	v := &model.VideoAsset{
		ID:           uuid.NewString(),
		Title:        "Integration Movie",
		DateUploaded: time.Now(),
		ExpireDate:   time.Now().Add(24 * time.Hour),
	}
	if err := NewVideoRepo(testPool).Save(context.Background(), nil, v); err != nil {
		t.Fatalf("failed to seed video: %v", err)
	}
	return v
}

func newRecord(videoID string, phone string) *model.PaymentRecord {
	now := time.Now()
	return model.NewPaymentRecord(uuid.NewString(), "LUMEN_"+uuid.NewString()[:8], phone, phone, "Jane", phone+"@lumendeo.tv", videoID, 1000, "KES", now)
}

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewPaymentRepo(testPool)

	t.Run("should save and find a payment by id and reference", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		p := newRecord(video.ID, "0712345678")

		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("Failed to save new payment: %v", err)
		}

		byID, err := repo.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if byID.Reference != p.Reference || byID.Status != model.PaymentStatusPending {
			t.Errorf("unexpected record: %+v", byID)
		}
		byRef, err := repo.FindByReference(ctx, nil, p.Reference)
		if err != nil {
			t.Fatalf("FindByReference failed: %v", err)
		}
		if byRef.ID != p.ID {
			t.Errorf("expected id %s, got %s", p.ID, byRef.ID)
		}
	})

	t.Run("should return ErrNotFound for a missing record", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, nil, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateStatusIfPending should fire once and keep the paid mirror", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		p := newRecord(video.ID, "0712345678")
		p.ErrorMessage = "Insufficient M-PESA balance. Top up and try again."
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		now := time.Now()
		empty := ""
		ok, err := repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusSuccess, &empty, &now)
		if err != nil {
			t.Fatalf("first CAS failed: %v", err)
		}
		if !ok {
			t.Fatal("expected the first CAS to win")
		}

		ok, err = repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusFailed, nil, nil)
		if err != nil {
			t.Fatalf("second CAS errored: %v", err)
		}
		if ok {
			t.Error("expected the second CAS to lose against a resolved record")
		}

		got, err := repo.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Status != model.PaymentStatusSuccess || !got.Paid || got.PaidAt == nil {
			t.Errorf("expected success with paid mirror, got %+v", got)
		}
		if got.ErrorMessage != "" {
			t.Errorf("expected the transient rejection text cleared, got %q", got.ErrorMessage)
		}
	})

	t.Run("should enforce one open attempt per phone and video", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		first := newRecord(video.ID, "0712345678")
		if err := repo.Save(ctx, nil, first); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		second := newRecord(video.ID, "0712345678")
		if err := repo.Save(ctx, nil, second); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists from the partial unique index, got %v", err)
		}
	})

	t.Run("dedup lookups should match on phone, video and status", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		p := newRecord(video.ID, "0712345678")
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		open, err := repo.FindPendingByPhoneAndVideo(ctx, nil, "0712345678", video.ID, time.Now().Add(-5*time.Minute))
		if err != nil {
			t.Fatalf("FindPendingByPhoneAndVideo failed: %v", err)
		}
		if open.ID != p.ID {
			t.Errorf("expected open attempt %s, got %s", p.ID, open.ID)
		}

		// Outside the reuse window the lookup must miss.
		if _, err := repo.FindPendingByPhoneAndVideo(ctx, nil, "0712345678", video.ID, time.Now().Add(time.Minute)); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound outside the window, got %v", err)
		}

		now := time.Now()
		if _, err := repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusSuccess, nil, &now); err != nil {
			t.Fatalf("CAS failed: %v", err)
		}
		paid, err := repo.FindSuccessByPhoneAndVideo(ctx, nil, "0712345678", video.ID)
		if err != nil {
			t.Fatalf("FindSuccessByPhoneAndVideo failed: %v", err)
		}
		if paid.ID != p.ID {
			t.Errorf("expected success record %s, got %s", p.ID, paid.ID)
		}
	})

	t.Run("DetachVideo should null references and keep the trail", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		p := newRecord(video.ID, "0712345678")
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if err := repo.DetachVideo(ctx, nil, video.ID); err != nil {
			t.Fatalf("DetachVideo failed: %v", err)
		}
		got, err := repo.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.VideoID != nil {
			t.Errorf("expected nulled video reference, got %v", *got.VideoID)
		}
	})

	t.Run("stats queries should aggregate success records", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		now := time.Now()

		paid := newRecord(video.ID, "0712345678")
		if err := repo.Save(ctx, nil, paid); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if _, err := repo.UpdateStatusIfPending(ctx, nil, paid.ID, model.PaymentStatusSuccess, nil, &now); err != nil {
			t.Fatalf("CAS failed: %v", err)
		}
		open := newRecord(video.ID, "0722000000")
		if err := repo.Save(ctx, nil, open); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if n, err := repo.CountDistinctPayers(ctx, nil); err != nil || n != 2 {
			t.Errorf("expected 2 distinct payers, got %d (%v)", n, err)
		}
		if sum, err := repo.SumRevenue(ctx, nil); err != nil || sum != 1000 {
			t.Errorf("expected revenue 1000, got %d (%v)", sum, err)
		}
		if sum, err := repo.SumRevenueByVideo(ctx, nil, video.ID); err != nil || sum != 1000 {
			t.Errorf("expected video revenue 1000, got %d (%v)", sum, err)
		}
		if n, err := repo.CountByVideo(ctx, nil, video.ID); err != nil || n != 1 {
			t.Errorf("expected 1 purchase, got %d (%v)", n, err)
		}
	})

	t.Run("ListPendingOlderThan should only return stale pending rows", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		stale := newRecord(video.ID, "0712345678")
		stale.CreatedAt = time.Now().Add(-10 * time.Minute)
		if err := repo.Save(ctx, nil, stale); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		fresh := newRecord(video.ID, "0722000000")
		if err := repo.Save(ctx, nil, fresh); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		out, err := repo.ListPendingOlderThan(ctx, nil, time.Now().Add(-3*time.Minute), 10)
		if err != nil {
			t.Fatalf("ListPendingOlderThan failed: %v", err)
		}
		if len(out) != 1 || out[0].ID != stale.ID {
			t.Errorf("expected only the stale record, got %d rows", len(out))
		}
	})

	t.Run("MarkRefunded should only reverse a success record, once", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)
		p := newRecord(video.ID, "0712345678")
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		// still pending: nothing to refund
		ok, err := repo.MarkRefunded(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("MarkRefunded failed: %v", err)
		}
		if ok {
			t.Fatal("expected no refund of a pending record")
		}

		now := time.Now()
		if _, err := repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusSuccess, nil, &now); err != nil {
			t.Fatalf("UpdateStatusIfPending failed: %v", err)
		}

		ok, err = repo.MarkRefunded(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("MarkRefunded failed: %v", err)
		}
		if !ok {
			t.Fatal("expected the refund to fire")
		}
		got, err := repo.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Status != model.PaymentStatusRefunded || got.Paid {
			t.Errorf("expected refunded/unpaid, got %s paid=%v", got.Status, got.Paid)
		}

		// second refund is a no-op
		ok, err = repo.MarkRefunded(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("MarkRefunded failed: %v", err)
		}
		if ok {
			t.Error("expected the second refund to be a no-op")
		}
	})

	t.Run("ListPayers should fold the trail into one row per phone", func(t *testing.T) {
		cleanup(t)
		video := seedVideo(t)

		now := time.Now()
		paid := newRecord(video.ID, "0712345678")
		paid.CreatedAt = now.Add(-2 * time.Hour)
		if err := repo.Save(ctx, nil, paid); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if _, err := repo.UpdateStatusIfPending(ctx, nil, paid.ID, model.PaymentStatusSuccess, nil, &now); err != nil {
			t.Fatalf("UpdateStatusIfPending failed: %v", err)
		}

		open := newRecord(video.ID, "0722000000")
		open.Name = "Mo"
		if err := repo.Save(ctx, nil, open); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		payers, err := repo.ListPayers(ctx, nil, 10)
		if err != nil {
			t.Fatalf("ListPayers failed: %v", err)
		}
		if len(payers) != 2 {
			t.Fatalf("expected 2 payers, got %d", len(payers))
		}
		if payers[0].Phone != "0722000000" {
			t.Errorf("expected the most recently active payer first, got %s", payers[0].Phone)
		}
		var jane *model.PayerSummary
		for _, p := range payers {
			if p.Phone == "0712345678" {
				jane = p
			}
		}
		if jane == nil || jane.Purchases != 1 || jane.SpentCents != 1000 {
			t.Errorf("unexpected aggregate for the paying phone: %+v", jane)
		}
	})
}
