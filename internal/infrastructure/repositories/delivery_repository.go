package repositories

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/delivery"
	"github.com/updateme/engine/internal/core/ports"
	"github.com/updateme/engine/internal/infrastructure/db"
)

type deliveryRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewDeliveryRepository creates a new instance of DeliveryRepository
func NewDeliveryRepository(database *db.Database, logger *logrus.Logger) ports.DeliveryRepository {
	return &deliveryRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a new delivery record into the database
func (r *deliveryRepository) Create(ctx context.Context, d *delivery.Delivery) error {
	// Generate ID if not provided
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	// Set timestamp if not provided
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO deliveries (
			id, subscriber_id, email, kind, provider, source, status, error, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.db.DB.ExecContext(ctx, query,
		d.ID,
		d.SubscriberID,
		d.Email,
		d.Kind,
		d.Provider,
		d.Source,
		d.Status,
		d.Error,
		d.CreatedAt,
	)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email": d.Email, "kind": d.Kind, "status": d.Status}).WithError(err).Error("db: failed to insert delivery")
		}
		return err
	}
	return nil
}

// List retrieves deliveries based on the provided filter
func (r *deliveryRepository) List(ctx context.Context, filter *delivery.Filter) ([]*delivery.Delivery, error) {
	query, args := r.buildListQuery(filter, false)
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"query": query, "args": args}).Debug("db: executing delivery list query")
	}
	var out []*delivery.Delivery
	if err := r.db.DB.SelectContext(ctx, &out, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute delivery list query")
		}
		return nil, err
	}
	return out, nil
}

// Count returns the total number of deliveries matching the filter
func (r *deliveryRepository) Count(ctx context.Context, filter *delivery.Filter) (int, error) {
	query, args := r.buildListQuery(filter, true)

	var count int
	err := r.db.DB.GetContext(ctx, &count, query, args...)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute delivery count query")
		}
		return 0, err
	}
	return count, nil
}

// buildListQuery constructs the SQL query and arguments for listing/counting deliveries
func (r *deliveryRepository) buildListQuery(filter *delivery.Filter, isCount bool) (string, []interface{}) {
	selectClause := "SELECT id, subscriber_id, email, kind, provider, source, status, error, created_at"
	if isCount {
		selectClause = "SELECT COUNT(*)"
	}

	query := selectClause + " FROM deliveries"
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter != nil {
		if filter.Email != nil {
			conditions = append(conditions, "lower(email) = lower($"+strconv.Itoa(argIndex)+")")
			args = append(args, *filter.Email)
			argIndex++
		}

		if filter.Status != nil {
			conditions = append(conditions, "status = $"+strconv.Itoa(argIndex))
			args = append(args, string(*filter.Status))
			argIndex++
		}

		if filter.Since != nil {
			conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIndex))
			args = append(args, *filter.Since)
			argIndex++
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if !isCount {
		query += " ORDER BY created_at DESC"

		if filter != nil {
			if filter.Limit > 0 {
				query += " LIMIT $" + strconv.Itoa(argIndex)
				args = append(args, filter.Limit)
				argIndex++
			}

			if filter.Offset > 0 {
				query += " OFFSET $" + strconv.Itoa(argIndex)
				args = append(args, filter.Offset)
			}
		}
	}

	return query, args
}
