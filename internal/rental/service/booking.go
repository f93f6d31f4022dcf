package service

import (
	"context"
	"errors"
	"time"

	"talad/internal/notify"
	"talad/internal/notify/events"
	rentalerrors "talad/internal/rental/errors"
	"talad/internal/rental/repository"
	"talad/internal/rental/validator"
	"talad/pkg/config"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// CreateResult is the outcome of a booking request. Losing the claim
// race is not an error: the caller lands in the queue instead, and
// Position reports where.
type CreateResult struct {
	Booking  *model.Booking `json:"booking,omitempty"`
	Queued   bool           `json:"queued"`
	Position int            `json:"position,omitempty"`
}

type BookingService interface {
	Create(ctx context.Context, userID string, req *validator.BookingRequest) (*CreateResult, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAllByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	GetAllByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, userID string, bookingID string) error
}

type bookingService struct {
	repo       repository.BookingRepository
	lockRepo   repository.LockRepository
	queueRepo  repository.QueueRepository
	auditRepo  repository.AuditRepository
	validator  *validator.BookingValidator
	processor  QueueProcessor
	dispatcher notify.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.LockRepository,
	queueRepo repository.QueueRepository,
	auditRepo repository.AuditRepository,
	v *validator.BookingValidator,
	processor QueueProcessor,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:       repo,
		lockRepo:   lockRepo,
		queueRepo:  queueRepo,
		auditRepo:  auditRepo,
		validator:  v,
		processor:  processor,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// periodEnd returns the inclusive end date and the price for the period.
func periodEnd(start time.Time, periodType string, pricing model.LockPricing) (time.Time, float64) {
	switch periodType {
	case model.PeriodWeekly:
		return start.AddDate(0, 0, 6), pricing.WeeklyAmount()
	case model.PeriodMonthly:
		return start.AddDate(0, 0, 29), pricing.MonthlyAmount()
	default:
		return start, pricing.Daily
	}
}

func (s *bookingService) Create(ctx context.Context, userID string, req *validator.BookingRequest) (*CreateResult, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("User identity is required")
	}

	now := s.now()
	start, err := s.validator.Validate(req, now)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Invalid booking request", map[string]any{"fields": verrs})
		}
		return nil, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}

	lock, err := s.lockRepo.FindByID(ctx, req.LockID)
	if err != nil {
		if errors.Is(err, rentalerrors.ErrLockNotFound) {
			return nil, apperrors.NotFoundWithID("Lock", req.LockID)
		}
		if errors.Is(err, rentalerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid lock ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve lock", err)
	}
	if !lock.IsActive || lock.Status == model.LockMaintenance {
		return nil, apperrors.Conflict("Lock is not available for booking")
	}
	if lock.Status == model.LockReserved {
		if lock.ReservedTo != userID {
			return nil, apperrors.Forbidden("Lock is reserved for another user")
		}
		if lock.ReservationExpiresAt == nil || !lock.ReservationExpiresAt.After(now) {
			return nil, apperrors.Forbidden("Your reservation window has expired")
		}
	}

	if start.Equal(now.Truncate(24*time.Hour)) && (lock.Status == model.LockBooked || lock.Status == model.LockRented) {
		return nil, apperrors.Conflict("Lock is occupied today")
	}

	end, amount := periodEnd(start, req.PeriodType, lock.Pricing)

	overlap, err := s.repo.HasOverlap(ctx, lock.ID, start, end)
	if err != nil {
		return nil, apperrors.Internal("Failed to check booking overlap", err)
	}
	if overlap {
		return nil, apperrors.Conflict("Requested dates conflict with an existing booking")
	}

	booking := &model.Booking{
		LockID:          lock.ID,
		LockNumber:      lock.LockNumber,
		UserID:          userID,
		PeriodType:      req.PeriodType,
		StartDate:       start,
		EndDate:         end,
		Amount:          amount,
		Status:          model.BookingPendingPayment,
		PaymentDeadline: now.Add(s.cfg.PaymentGraceWindow),
	}

	// The conditional claim is the only serialization point. It runs
	// inside the transaction so a failed commit also rolls the lock
	// back; no reader ever sees a booked lock without its booking row.
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.lockRepo.ClaimForBooking(sessCtx, lock.ID, userID, now); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		// A queued user claiming their reservation gives up the queue
		// row in the same transaction.
		if err := s.queueRepo.Delete(sessCtx, lock.ID, userID); err != nil {
			return apperrors.Internal("Failed to remove queue entry", err)
		}
		if err := s.auditRepo.Record(sessCtx, &model.AuditLog{
			Action:    model.AuditBookingCreated,
			ActorID:   userID,
			LockID:    lock.ID,
			BookingID: booking.ID,
			Detail:    map[string]any{"period_type": req.PeriodType, "amount": amount},
		}); err != nil {
			return apperrors.Internal("Failed to record booking audit entry", err)
		}
		return nil
	})
	if err != nil {
		// Losing the claim means someone else holds the lock; fall back
		// to the queue.
		if errors.Is(err, rentalerrors.ErrClaimConflict) {
			return s.enqueue(ctx, lock, userID)
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"lock_id", lock.ID,
		"user_id", userID,
		"period_type", req.PeriodType,
		"amount", amount,
	)

	if err := s.dispatcher.Dispatch(ctx, events.Event{
		Type:       events.BookingCreated,
		UserID:     userID,
		LockID:     lock.ID,
		LockNumber: lock.LockNumber,
		BookingID:  booking.ID,
		Amount:     amount,
		Deadline:   booking.PaymentDeadline,
	}); err != nil {
		s.cfg.Log.Warn("Booking created but notification dispatch failed", "booking_id", booking.ID)
	}

	return &CreateResult{Booking: booking}, nil
}

func (s *bookingService) enqueue(ctx context.Context, lock *model.Lock, userID string) (*CreateResult, error) {
	// A user who already holds a live booking on the lock cannot also
	// wait in line for it.
	live, err := s.repo.HasLiveForUser(ctx, lock.ID, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing bookings", err)
	}
	if live {
		return nil, apperrors.Conflict("You already hold a booking on this lock")
	}

	inserted, err := s.queueRepo.Join(ctx, lock.ID, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to join queue", err)
	}

	position, err := s.queueRepo.Position(ctx, lock.ID, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to read queue position", err)
	}

	if inserted {
		s.cfg.Log.Info("Claim race lost, user queued",
			"lock_id", lock.ID,
			"user_id", userID,
			"position", position,
		)
		if err := s.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.BookingQueued,
			UserID:     userID,
			LockID:     lock.ID,
			LockNumber: lock.LockNumber,
		}); err != nil {
			s.cfg.Log.Warn("Queue join notification dispatch failed", "lock_id", lock.ID, "user_id", userID)
		}
	}

	return &CreateResult{Queued: true, Position: position}, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, rentalerrors.ErrBookingNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, rentalerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAllByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("User identity is required")
	}

	bookings, err := s.repo.FindByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	return bookings, count, nil
}

func (s *bookingService) GetAllByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	bookings, err := s.repo.FindByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	count, err := s.repo.CountByStatus(ctx, status)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	return bookings, count, nil
}

func (s *bookingService) Cancel(ctx context.Context, userID string, bookingID string) error {
	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return apperrors.Forbidden("Booking belongs to another user")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		changed, err := s.repo.UpdateStatusIf(sessCtx, bookingID,
			[]string{model.BookingPendingPayment, model.BookingPendingVerification},
			model.BookingCancelled, nil)
		if err != nil {
			return apperrors.Internal("Failed to cancel booking", err)
		}
		if !changed {
			return apperrors.Conflict("Booking can no longer be cancelled")
		}
		if err := s.auditRepo.Record(sessCtx, &model.AuditLog{
			Action:    model.AuditBookingCancelled,
			ActorID:   userID,
			LockID:    booking.LockID,
			BookingID: bookingID,
		}); err != nil {
			return apperrors.Internal("Failed to record cancellation audit entry", err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Internal("Failed to cancel booking", err)
	}

	if err := s.processor.Advance(ctx, booking.LockID); err != nil {
		s.cfg.Log.Error("Failed to advance queue after cancellation", "lock_id", booking.LockID, "error", err)
	}

	if err := s.dispatcher.Dispatch(ctx, events.Event{
		Type:       events.BookingCancelled,
		UserID:     userID,
		LockID:     booking.LockID,
		LockNumber: booking.LockNumber,
		BookingID:  bookingID,
	}); err != nil {
		s.cfg.Log.Warn("Cancellation notification dispatch failed", "booking_id", bookingID)
	}

	s.cfg.Log.Info("Booking cancelled", "booking_id", bookingID, "user_id", userID)
	return nil
}
