package service

import (
	"context"
	"errors"

	"talad/internal/notify"
	"talad/internal/notify/events"
	rentalerrors "talad/internal/rental/errors"
	"talad/internal/rental/repository"
	"talad/pkg/config"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"
)

// QueuePosition is a user's place in one lock's queue.
type QueuePosition struct {
	LockID     string `json:"lock_id"`
	LockNumber string `json:"lock_number,omitempty"`
	Position   int    `json:"position"`
	Notified   bool   `json:"notified"`
}

type QueueService interface {
	Join(ctx context.Context, userID string, lockID string) (*QueuePosition, error)
	Leave(ctx context.Context, userID string, lockID string) error
	PositionsForUser(ctx context.Context, userID string) ([]*QueuePosition, error)
	EntriesForLock(ctx context.Context, lockID string) ([]*model.QueueEntry, error)
}

type queueService struct {
	queueRepo  repository.QueueRepository
	lockRepo   repository.LockRepository
	dispatcher notify.Dispatcher
	cfg        *config.Config
}

func NewQueueService(
	queueRepo repository.QueueRepository,
	lockRepo repository.LockRepository,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) QueueService {
	return &queueService{
		queueRepo:  queueRepo,
		lockRepo:   lockRepo,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

func (s *queueService) Join(ctx context.Context, userID string, lockID string) (*QueuePosition, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("User identity is required")
	}

	lock, err := s.lockRepo.FindByID(ctx, lockID)
	if err != nil {
		if errors.Is(err, rentalerrors.ErrLockNotFound) {
			return nil, apperrors.NotFoundWithID("Lock", lockID)
		}
		if errors.Is(err, rentalerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid lock ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve lock", err)
	}
	if !lock.IsActive {
		return nil, apperrors.Conflict("Lock is not active")
	}
	if lock.Status == model.LockAvailable {
		return nil, apperrors.Conflict("Lock is available; book it directly instead of queueing")
	}

	inserted, err := s.queueRepo.Join(ctx, lockID, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to join queue", err)
	}

	position, err := s.queueRepo.Position(ctx, lockID, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to read queue position", err)
	}

	if inserted {
		s.cfg.Log.Info("User joined queue", "lock_id", lockID, "user_id", userID, "position", position)
		if err := s.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.BookingQueued,
			UserID:     userID,
			LockID:     lockID,
			LockNumber: lock.LockNumber,
		}); err != nil {
			s.cfg.Log.Warn("Queue join notification dispatch failed", "lock_id", lockID, "user_id", userID)
		}
	}

	return &QueuePosition{
		LockID:     lockID,
		LockNumber: lock.LockNumber,
		Position:   position,
	}, nil
}

func (s *queueService) Leave(ctx context.Context, userID string, lockID string) error {
	if userID == "" {
		return apperrors.Unauthorized("User identity is required")
	}

	err := s.queueRepo.Leave(ctx, lockID, userID)
	if err != nil {
		if errors.Is(err, rentalerrors.ErrQueueNotFound) {
			return apperrors.NotFound("Queue entry")
		}
		return apperrors.Internal("Failed to leave queue", err)
	}

	s.cfg.Log.Info("User left queue", "lock_id", lockID, "user_id", userID)
	return nil
}

func (s *queueService) PositionsForUser(ctx context.Context, userID string) ([]*QueuePosition, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("User identity is required")
	}

	entries, err := s.queueRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve queue entries", err)
	}

	positions := make([]*QueuePosition, 0, len(entries))
	for _, entry := range entries {
		position, err := s.queueRepo.Position(ctx, entry.LockID, userID)
		if err != nil {
			return nil, apperrors.Internal("Failed to read queue position", err)
		}
		positions = append(positions, &QueuePosition{
			LockID:   entry.LockID,
			Position: position,
			Notified: entry.Notified,
		})
	}

	return positions, nil
}

func (s *queueService) EntriesForLock(ctx context.Context, lockID string) ([]*model.QueueEntry, error) {
	entries, err := s.queueRepo.FindByLock(ctx, lockID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve queue entries", err)
	}
	return entries, nil
}
