package catalog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SyncService applies one-way car sync events pushed by the external Core.
type SyncService struct {
	storage Storage
	logger  *zap.Logger
	now     func() time.Time
}

// NewSyncService creates a new SyncService.
func NewSyncService(storage Storage, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Upsert inserts or fully overwrites the car record. The sold flag is always
// reset to false and updatedAt is stamped locally, regardless of the payload's
// own values, so replaying the same event is a no-op in effect.
func (s *SyncService) Upsert(ctx context.Context, car Car) (*Car, error) {
	car.Sold = false
	car.UpdatedAt = s.now()

	if err := s.storage.Upsert(ctx, &car); err != nil {
		s.logger.Error("failed to upsert car", zap.Int64("car_id", car.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to upsert car: %w", err)
	}

	s.logger.Info("car synced",
		zap.Int64("car_id", car.ID),
		zap.String("brand", car.Brand),
		zap.String("model", car.Model),
		zap.String("price", car.Price.String()),
	)
	return &car, nil
}
