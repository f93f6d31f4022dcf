package service

import (
	"context"
	"errors"

	rentalerrors "talad/internal/rental/errors"
	"talad/internal/rental/repository"
	"talad/internal/rental/validator"
	"talad/pkg/config"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"
)

type LockService interface {
	Create(ctx context.Context, adminID string, lock *model.Lock) error
	GetByID(ctx context.Context, id string) (*model.Lock, error)
	GetAll(ctx context.Context, filter repository.LockFilter, limit int, offset int64) ([]*model.Lock, int64, error)
	Update(ctx context.Context, adminID string, id string, lock *model.Lock) error
	Deactivate(ctx context.Context, adminID string, id string) error
}

type lockService struct {
	repo      repository.LockRepository
	auditRepo repository.AuditRepository
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewLockService(
	repo repository.LockRepository,
	auditRepo repository.AuditRepository,
	v *validator.BookingValidator,
	cfg *config.Config,
) LockService {
	return &lockService{
		repo:      repo,
		auditRepo: auditRepo,
		validator: v,
		cfg:       cfg,
	}
}

func (s *lockService) Create(ctx context.Context, adminID string, lock *model.Lock) error {
	lock.Status = model.LockAvailable
	lock.IsActive = true

	if err := s.validator.ValidateLock(lock); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Invalid lock", map[string]any{"fields": verrs})
		}
		return apperrors.Validation("Invalid lock", map[string]any{"error": err.Error()})
	}

	if _, err := s.repo.FindByNumber(ctx, lock.LockNumber); err == nil {
		return apperrors.Conflict("Lock number already exists")
	} else if !errors.Is(err, rentalerrors.ErrLockNotFound) {
		return apperrors.Internal("Failed to check lock number", err)
	}

	if err := s.repo.Create(ctx, lock); err != nil {
		return apperrors.Internal("Failed to create lock", err)
	}

	if err := s.auditRepo.Record(ctx, &model.AuditLog{
		Action:  model.AuditLockCreated,
		ActorID: adminID,
		LockID:  lock.ID,
		Detail:  map[string]any{"lock_number": lock.LockNumber},
	}); err != nil {
		s.cfg.Log.Warn("Failed to record lock creation audit entry", "lock_id", lock.ID, "error", err)
	}

	s.cfg.Log.Info("Lock created", "lock_id", lock.ID, "lock_number", lock.LockNumber, "admin_id", adminID)
	return nil
}

func (s *lockService) GetByID(ctx context.Context, id string) (*model.Lock, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Lock ID cannot be empty")
	}

	lock, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, rentalerrors.ErrLockNotFound) {
			return nil, apperrors.NotFoundWithID("Lock", id)
		}
		if errors.Is(err, rentalerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid lock ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve lock", err)
	}

	return lock, nil
}

func (s *lockService) GetAll(ctx context.Context, filter repository.LockFilter, limit int, offset int64) ([]*model.Lock, int64, error) {
	locks, err := s.repo.FindAll(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve locks", err)
	}

	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count locks", err)
	}

	return locks, count, nil
}

func (s *lockService) Update(ctx context.Context, adminID string, id string, lock *model.Lock) error {
	if err := s.repo.Update(ctx, id, lock); err != nil {
		if errors.Is(err, rentalerrors.ErrLockNotFound) {
			return apperrors.NotFoundWithID("Lock", id)
		}
		if errors.Is(err, rentalerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid lock ID format")
		}
		return apperrors.Internal("Failed to update lock", err)
	}

	if err := s.auditRepo.Record(ctx, &model.AuditLog{
		Action:  model.AuditLockUpdated,
		ActorID: adminID,
		LockID:  id,
	}); err != nil {
		s.cfg.Log.Warn("Failed to record lock update audit entry", "lock_id", id, "error", err)
	}

	s.cfg.Log.Info("Lock updated", "lock_id", id, "admin_id", adminID)
	return nil
}

func (s *lockService) Deactivate(ctx context.Context, adminID string, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, rentalerrors.ErrLockNotFound) {
			return apperrors.NotFoundWithID("Lock", id)
		}
		if errors.Is(err, rentalerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid lock ID format")
		}
		return apperrors.Internal("Failed to deactivate lock", err)
	}

	if err := s.auditRepo.Record(ctx, &model.AuditLog{
		Action:  model.AuditLockDeactivated,
		ActorID: adminID,
		LockID:  id,
	}); err != nil {
		s.cfg.Log.Warn("Failed to record lock deactivation audit entry", "lock_id", id, "error", err)
	}

	s.cfg.Log.Info("Lock deactivated", "lock_id", id, "admin_id", adminID)
	return nil
}
