package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	creditDomain "microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/errs"
	"microcredit-backend/pkg/id"
)

func makeCredit(userID string, status creditDomain.Status, remaining float64, due time.Time) *creditDomain.DisbursedCredit {
	now := time.Now().UTC()
	return &creditDomain.DisbursedCredit{
		CreditID:          id.NewID32(),
		UserID:            userID,
		Type:              creditDomain.TypeConsumption,
		Principal:         200_000,
		TotalAmount:       210_000,
		RemainingAmount:   remaining,
		InterestRate:      0.05,
		Status:            status,
		ApprovedDate:      now,
		DueDate:           due,
		NextPaymentDate:   &due,
		NextPaymentAmount: remaining,
	}
}

func TestCreditCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()

	userID := id.NewID32()
	due := time.Now().UTC().AddDate(0, 0, 45)
	c := makeCredit(userID, creditDomain.StatusActive, 210_000, due)
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == 0 {
		t.Fatalf("Create did not set auto-increment ID")
	}

	got, err := repo.GetByCreditID(ctx, c.CreditID)
	if err != nil {
		t.Fatalf("GetByCreditID: %v", err)
	}
	if got.UserID != userID || got.TotalAmount != 210_000 {
		t.Errorf("unexpected credit: %+v", got)
	}
}

func TestCreditGetNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewCreditRepository(db)

	_, err := repo.GetByCreditID(context.Background(), id.NewID32())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected errs.ErrNotFound, got %v", err)
	}
}

func TestCreditActiveAggregates(t *testing.T) {
	db := openTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()

	userID := id.NewID32()
	now := time.Now().UTC()

	// Overdue counts as open; paid does not.
	seeds := []*creditDomain.DisbursedCredit{
		makeCredit(userID, creditDomain.StatusActive, 100_000, now.AddDate(0, 0, 30)),
		makeCredit(userID, creditDomain.StatusOverdue, 50_000, now.AddDate(0, 0, -5)),
		makeCredit(userID, creditDomain.StatusPaid, 0, now.AddDate(0, 0, 10)),
	}
	for _, c := range seeds {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	n, err := repo.CountActiveByUser(ctx, userID)
	if err != nil {
		t.Fatalf("CountActiveByUser: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	total, err := repo.SumActiveRemainingByUser(ctx, userID)
	if err != nil {
		t.Fatalf("SumActiveRemainingByUser: %v", err)
	}
	if total != 150_000 {
		t.Fatalf("sum = %v, want 150000", total)
	}

	open, err := repo.ListActiveByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("got %d open credits, want 2", len(open))
	}
	// Earliest due date first.
	if open[0].Status != creditDomain.StatusOverdue {
		t.Errorf("expected the overdue credit first, got %+v", open[0])
	}
}

func TestCreditAggregatesEmpty(t *testing.T) {
	db := openTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()

	n, err := repo.CountActiveByUser(ctx, id.NewID32())
	if err != nil || n != 0 {
		t.Fatalf("count = %d, err = %v", n, err)
	}
	total, err := repo.SumActiveRemainingByUser(ctx, id.NewID32())
	if err != nil || total != 0 {
		t.Fatalf("sum = %v, err = %v", total, err)
	}
}

func TestCreditListActiveDueBefore(t *testing.T) {
	db := openTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()

	userID := id.NewID32()
	now := time.Now().UTC()

	past := makeCredit(userID, creditDomain.StatusActive, 100_000, now.AddDate(0, 0, -2))
	future := makeCredit(userID, creditDomain.StatusActive, 100_000, now.AddDate(0, 0, 2))
	alreadyOverdue := makeCredit(userID, creditDomain.StatusOverdue, 100_000, now.AddDate(0, 0, -10))
	for _, c := range []*creditDomain.DisbursedCredit{past, future, alreadyOverdue} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	due, err := repo.ListActiveDueBefore(ctx, now)
	if err != nil {
		t.Fatalf("ListActiveDueBefore: %v", err)
	}
	// Only active credits past their due date; already-overdue rows are not
	// picked up again.
	if len(due) != 1 || due[0].CreditID != past.CreditID {
		t.Fatalf("unexpected due set: %+v", due)
	}
}

func TestPaymentAppendAndList(t *testing.T) {
	db := openTestDB(t)
	credits := NewCreditRepository(db)
	payments := NewPaymentRepository(db)
	ctx := context.Background()

	userID := id.NewID32()
	due := time.Now().UTC().AddDate(0, 0, 45)
	c := makeCredit(userID, creditDomain.StatusActive, 210_000, due)
	if err := credits.Create(ctx, c); err != nil {
		t.Fatalf("Create credit: %v", err)
	}

	base := time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC)
	for i, amount := range []float64{50_000, 70_000} {
		p := &creditDomain.PaymentRecord{
			CreditRef:    c.ID,
			UserID:       userID,
			Amount:       amount,
			PaidAt:       base.AddDate(0, 0, i),
			ScheduledFor: due,
		}
		if err := payments.Append(ctx, p); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := payments.ListByCredit(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListByCredit: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d payments, want 2", len(got))
	}
	if got[0].Amount != 50_000 || got[1].Amount != 70_000 {
		t.Errorf("unexpected order: %v, %v", got[0].Amount, got[1].Amount)
	}

	last, err := payments.LastPaymentAt(ctx, userID)
	if err != nil {
		t.Fatalf("LastPaymentAt: %v", err)
	}
	if last == nil || !last.Equal(base.AddDate(0, 0, 1)) {
		t.Fatalf("last payment at = %v", last)
	}
}

func TestLastPaymentAtNone(t *testing.T) {
	db := openTestDB(t)
	payments := NewPaymentRepository(db)

	last, err := payments.LastPaymentAt(context.Background(), id.NewID32())
	if err != nil {
		t.Fatalf("LastPaymentAt: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil, got %v", last)
	}
}
