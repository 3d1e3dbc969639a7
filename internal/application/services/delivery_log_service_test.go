package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	impl "github.com/updateme/engine/internal/application/services"
	"github.com/updateme/engine/internal/core/domain/delivery"
	tmocks "github.com/updateme/engine/test/mocks"
)

func TestRecord_FillsIDAndTimestamp(t *testing.T) {
	var stored *delivery.Delivery
	repo := &tmocks.DeliveryRepositoryMock{CreateFn: func(ctx context.Context, d *delivery.Delivery) error {
		stored = d
		return nil
	}}
	svc := impl.NewDeliveryLogService(repo, nil)

	svc.Record(context.Background(), &delivery.Delivery{Email: "a@example.com", Kind: delivery.KindWeekly, Status: delivery.StatusSent})
	if stored == nil {
		t.Fatal("expected delivery to be stored")
	}
	if stored.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestRecord_SwallowsRepoError(t *testing.T) {
	repo := &tmocks.DeliveryRepositoryMock{CreateFn: func(ctx context.Context, d *delivery.Delivery) error {
		return errors.New("boom")
	}}
	svc := impl.NewDeliveryLogService(repo, nil)
	svc.Record(context.Background(), &delivery.Delivery{Email: "a@example.com"})
}

func TestListDeliveries_ReturnsListAndCount(t *testing.T) {
	sample := &delivery.Delivery{ID: uuid.New(), Email: "a@example.com"}
	repo := &tmocks.DeliveryRepositoryMock{
		ListFn: func(ctx context.Context, f *delivery.Filter) ([]*delivery.Delivery, error) {
			return []*delivery.Delivery{sample}, nil
		},
		CountFn: func(ctx context.Context, f *delivery.Filter) (int, error) { return 7, nil },
	}
	svc := impl.NewDeliveryLogService(repo, nil)

	logs, total, err := svc.List(context.Background(), &delivery.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 7 {
		t.Fatalf("expected total 7, got %d", total)
	}
	if len(logs) != 1 || logs[0].ID != sample.ID {
		t.Fatalf("unexpected logs returned")
	}
}

func TestListDeliveries_RepoError(t *testing.T) {
	repo := &tmocks.DeliveryRepositoryMock{ListFn: func(ctx context.Context, f *delivery.Filter) ([]*delivery.Delivery, error) {
		return nil, errors.New("boom")
	}}
	svc := impl.NewDeliveryLogService(repo, nil)
	if _, _, err := svc.List(context.Background(), &delivery.Filter{}); err == nil {
		t.Fatalf("expected error")
	}
}
