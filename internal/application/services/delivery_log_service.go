package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/delivery"
	"github.com/updateme/engine/internal/core/ports"
)

type DeliveryLogService struct {
	repo   ports.DeliveryRepository
	logger *logrus.Logger
}

func NewDeliveryLogService(repo ports.DeliveryRepository, logger *logrus.Logger) ports.DeliveryLogService {
	return &DeliveryLogService{
		repo:   repo,
		logger: logger,
	}
}

// Record persists d. Failures are logged only; a lost log line never fails a send.
func (s *DeliveryLogService) Record(ctx context.Context, d *delivery.Delivery) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	fields := logrus.Fields{"email": d.Email, "kind": d.Kind, "provider": d.Provider, "source": d.Source, "status": d.Status}
	if err := s.repo.Create(ctx, d); err != nil {
		if s.logger != nil {
			s.logger.WithFields(fields).WithError(err).Error("failed to persist delivery log")
		}
		return
	}
	if s.logger != nil {
		s.logger.WithFields(fields).Debug("delivery log persisted")
	}
}

func (s *DeliveryLogService) List(ctx context.Context, filter *delivery.Filter) ([]*delivery.Delivery, int, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
