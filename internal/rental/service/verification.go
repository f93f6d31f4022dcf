package service

import (
	"context"
	"time"

	"talad/internal/notify"
	"talad/internal/notify/events"
	"talad/internal/rental/repository"
	"talad/pkg/config"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// VerificationService covers the payment leg of a booking: the renter
// uploads a transfer slip (pending_payment -> pending_verification),
// an admin approves (-> active, lock rented) or rejects
// (-> pending_payment again).
//
// Approval is terminal for the queue: the lock is taken for the whole
// rental period, so every waiting entry is purged and each purged user
// is told their spot is void. Rejection keeps the original deadline so
// the renter can upload a corrected slip before the sweeper cancels
// the booking.
type VerificationService interface {
	UploadSlip(ctx context.Context, userID string, bookingID string, slipURL string) error
	Approve(ctx context.Context, adminID string, bookingID string) error
	Reject(ctx context.Context, adminID string, bookingID string, reason string) error
}

type verificationService struct {
	repo       repository.BookingRepository
	lockRepo   repository.LockRepository
	queueRepo  repository.QueueRepository
	auditRepo  repository.AuditRepository
	dispatcher notify.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewVerificationService(
	repo repository.BookingRepository,
	lockRepo repository.LockRepository,
	queueRepo repository.QueueRepository,
	auditRepo repository.AuditRepository,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) VerificationService {
	return &verificationService{
		repo:       repo,
		lockRepo:   lockRepo,
		queueRepo:  queueRepo,
		auditRepo:  auditRepo,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *verificationService) UploadSlip(ctx context.Context, userID string, bookingID string, slipURL string) error {
	if slipURL == "" {
		return apperrors.InvalidInput("Slip URL cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return apperrors.NotFoundWithID("Booking", bookingID)
	}
	if booking.UserID != userID {
		return apperrors.Forbidden("Booking belongs to another user")
	}
	if booking.Status != model.BookingPendingPayment {
		return apperrors.Conflict("Booking is not awaiting payment")
	}
	if s.now().After(booking.PaymentDeadline) {
		return apperrors.Conflict("Payment deadline has passed")
	}

	changed, err := s.repo.UpdateStatusIf(ctx, bookingID,
		[]string{model.BookingPendingPayment},
		model.BookingPendingVerification,
		bson.M{"payment_slip_url": slipURL, "slip_uploaded_at": s.now()})
	if err != nil {
		return apperrors.Internal("Failed to store payment slip", err)
	}
	if !changed {
		return apperrors.Conflict("Booking is not awaiting payment")
	}

	s.cfg.Log.Info("Payment slip uploaded", "booking_id", bookingID, "user_id", userID)
	return nil
}

func (s *verificationService) Approve(ctx context.Context, adminID string, bookingID string) error {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return apperrors.NotFoundWithID("Booking", bookingID)
	}
	if booking.Status != model.BookingPendingVerification {
		return apperrors.Conflict("Booking is not awaiting verification")
	}

	now := s.now()
	var purgedUsers []string

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		changed, err := s.repo.UpdateStatusIf(sessCtx, bookingID,
			[]string{model.BookingPendingVerification},
			model.BookingActive,
			bson.M{"verified_by": adminID, "verified_at": now})
		if err != nil {
			return apperrors.Internal("Failed to activate booking", err)
		}
		if !changed {
			return apperrors.Conflict("Booking is not awaiting verification")
		}

		if _, err := s.lockRepo.MarkRented(sessCtx, booking.LockID); err != nil {
			return apperrors.Internal("Failed to mark lock rented", err)
		}

		// Collect the waiters before the purge so each one can be told
		// their spot is void.
		entries, err := s.queueRepo.FindByLock(sessCtx, booking.LockID)
		if err != nil {
			return apperrors.Internal("Failed to read queue before purge", err)
		}
		for _, entry := range entries {
			purgedUsers = append(purgedUsers, entry.UserID)
		}

		if _, err := s.queueRepo.PurgeByLock(sessCtx, booking.LockID); err != nil {
			return apperrors.Internal("Failed to purge queue", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := s.auditRepo.Record(ctx, &model.AuditLog{
		Action:    model.AuditPaymentApproved,
		ActorID:   adminID,
		LockID:    booking.LockID,
		BookingID: bookingID,
		Detail:    map[string]any{"purged_queue_entries": len(purgedUsers)},
	}); err != nil {
		s.cfg.Log.Warn("Failed to record approval audit entry", "booking_id", bookingID, "error", err)
	}

	s.cfg.Log.Info("Payment approved",
		"booking_id", bookingID,
		"admin_id", adminID,
		"purged_queue_entries", len(purgedUsers),
	)

	if err := s.dispatcher.Dispatch(ctx, events.Event{
		Type:       events.PaymentApproved,
		UserID:     booking.UserID,
		LockID:     booking.LockID,
		LockNumber: booking.LockNumber,
		BookingID:  bookingID,
		Amount:     booking.Amount,
	}); err != nil {
		s.cfg.Log.Warn("Approval notification dispatch failed", "booking_id", bookingID)
	}
	for _, userID := range purgedUsers {
		if err := s.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.QueuePurged,
			UserID:     userID,
			LockID:     booking.LockID,
			LockNumber: booking.LockNumber,
		}); err != nil {
			s.cfg.Log.Warn("Queue purge notification dispatch failed", "lock_id", booking.LockID, "user_id", userID)
		}
	}

	return nil
}

func (s *verificationService) Reject(ctx context.Context, adminID string, bookingID string, reason string) error {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return apperrors.NotFoundWithID("Booking", bookingID)
	}
	if booking.Status != model.BookingPendingVerification {
		return apperrors.Conflict("Booking is not awaiting verification")
	}

	// The deadline is deliberately untouched: rejection does not buy
	// the renter more time.
	changed, err := s.repo.UpdateStatusIf(ctx, bookingID,
		[]string{model.BookingPendingVerification},
		model.BookingPendingPayment,
		bson.M{
			"reject_reason":    reason,
			"payment_slip_url": "",
			"verified_by":      adminID,
			"verified_at":      s.now(),
		})
	if err != nil {
		return apperrors.Internal("Failed to reject payment", err)
	}
	if !changed {
		return apperrors.Conflict("Booking is not awaiting verification")
	}

	if err := s.auditRepo.Record(ctx, &model.AuditLog{
		Action:    model.AuditPaymentRejected,
		ActorID:   adminID,
		LockID:    booking.LockID,
		BookingID: bookingID,
		Detail:    map[string]any{"reason": reason},
	}); err != nil {
		s.cfg.Log.Warn("Failed to record rejection audit entry", "booking_id", bookingID, "error", err)
	}

	s.cfg.Log.Info("Payment rejected", "booking_id", bookingID, "admin_id", adminID, "reason", reason)

	if err := s.dispatcher.Dispatch(ctx, events.Event{
		Type:       events.PaymentRejected,
		UserID:     booking.UserID,
		LockID:     booking.LockID,
		LockNumber: booking.LockNumber,
		BookingID:  bookingID,
		Reason:     reason,
		Deadline:   booking.PaymentDeadline,
	}); err != nil {
		s.cfg.Log.Warn("Rejection notification dispatch failed", "booking_id", bookingID)
	}

	return nil
}
