package ports

import (
	"context"

	"github.com/updateme/engine/internal/core/domain/delivery"
)

// DeliveryRepository defines the interface for delivery log data operations
type DeliveryRepository interface {
	Create(ctx context.Context, d *delivery.Delivery) error
	List(ctx context.Context, filter *delivery.Filter) ([]*delivery.Delivery, error)
	Count(ctx context.Context, filter *delivery.Filter) (int, error)
}

// DeliveryLogService records and lists summary deliveries
type DeliveryLogService interface {
	Record(ctx context.Context, d *delivery.Delivery)
	List(ctx context.Context, filter *delivery.Filter) ([]*delivery.Delivery, int, error)
}
