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
)

const sweepBatchSize = 100

// SweepReport summarizes one sweeper run.
type SweepReport struct {
	Examined int `json:"examined"`
	Swept    int `json:"swept"`
}

// SweeperService hosts the deadline-driven background passes. Every
// pass is idempotent: each candidate is settled with a conditional
// update, so overlapping runs or a crash-and-retry cannot double-apply
// an expiry.
type SweeperService interface {
	SweepExpiredPayments(ctx context.Context) (*SweepReport, error)
	SweepLapsedReservations(ctx context.Context) (*SweepReport, error)
	SweepEndedRentals(ctx context.Context) (*SweepReport, error)
	SweepRenewalNotices(ctx context.Context) (*SweepReport, error)
}

type sweeperService struct {
	repo       repository.BookingRepository
	lockRepo   repository.LockRepository
	queueRepo  repository.QueueRepository
	auditRepo  repository.AuditRepository
	processor  QueueProcessor
	dispatcher notify.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewSweeperService(
	repo repository.BookingRepository,
	lockRepo repository.LockRepository,
	queueRepo repository.QueueRepository,
	auditRepo repository.AuditRepository,
	processor QueueProcessor,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) SweeperService {
	return &sweeperService{
		repo:       repo,
		lockRepo:   lockRepo,
		queueRepo:  queueRepo,
		auditRepo:  auditRepo,
		processor:  processor,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SweepExpiredPayments cancels pending bookings whose payment deadline
// has passed and hands each freed lock to the queue processor. A
// booking already under verification keeps its claim.
func (s *sweeperService) SweepExpiredPayments(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	candidates, err := s.repo.FindExpiredPending(ctx, now, sweepBatchSize)
	if err != nil {
		return nil, apperrors.Internal("Failed to find expired pending bookings", err)
	}

	report := &SweepReport{Examined: len(candidates)}
	for _, booking := range candidates {
		changed, err := s.repo.UpdateStatusIf(ctx, booking.ID,
			[]string{model.BookingPendingPayment},
			model.BookingCancelled, nil)
		if err != nil {
			s.cfg.Log.Error("Failed to cancel expired booking", "booking_id", booking.ID, "error", err)
			continue
		}
		if !changed {
			// Slip uploaded, cancelled, or swept by a concurrent run.
			continue
		}
		report.Swept++

		if err := s.auditRepo.Record(ctx, &model.AuditLog{
			Action:    model.AuditBookingExpired,
			LockID:    booking.LockID,
			BookingID: booking.ID,
		}); err != nil {
			s.cfg.Log.Warn("Failed to record expiry audit entry", "booking_id", booking.ID, "error", err)
		}

		if err := s.processor.Advance(ctx, booking.LockID); err != nil {
			s.cfg.Log.Error("Failed to advance queue after payment expiry", "lock_id", booking.LockID, "error", err)
		}

		if err := s.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.BookingExpired,
			UserID:     booking.UserID,
			LockID:     booking.LockID,
			LockNumber: booking.LockNumber,
			BookingID:  booking.ID,
		}); err != nil {
			s.cfg.Log.Warn("Expiry notification dispatch failed", "booking_id", booking.ID)
		}
	}

	s.cfg.Log.Info("Expired payment sweep finished", "examined", report.Examined, "swept", report.Swept)
	return report, nil
}

// SweepLapsedReservations drops queue heads that let their reservation
// window pass without claiming, then advances the queue.
func (s *sweeperService) SweepLapsedReservations(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	locks, err := s.lockRepo.FindLapsedReservations(ctx, now, sweepBatchSize)
	if err != nil {
		return nil, apperrors.Internal("Failed to find lapsed reservations", err)
	}

	report := &SweepReport{Examined: len(locks)}
	for _, lock := range locks {
		// A lapsed reservation is the only other path that removes a
		// queue row besides a successful claim.
		if err := s.queueRepo.Delete(ctx, lock.ID, lock.ReservedTo); err != nil {
			s.cfg.Log.Error("Failed to drop lapsed queue entry", "lock_id", lock.ID, "user_id", lock.ReservedTo, "error", err)
			continue
		}
		report.Swept++

		if err := s.auditRepo.Record(ctx, &model.AuditLog{
			Action: model.AuditReservationLapse,
			LockID: lock.ID,
			Detail: map[string]any{"user_id": lock.ReservedTo},
		}); err != nil {
			s.cfg.Log.Warn("Failed to record lapse audit entry", "lock_id", lock.ID, "error", err)
		}

		if err := s.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.ReservationLapsed,
			UserID:     lock.ReservedTo,
			LockID:     lock.ID,
			LockNumber: lock.LockNumber,
		}); err != nil {
			s.cfg.Log.Warn("Lapse notification dispatch failed", "lock_id", lock.ID)
		}

		// Reserve for the next waiter or release to available.
		if err := s.processor.Advance(ctx, lock.ID); err != nil {
			s.cfg.Log.Error("Failed to advance queue after lapse", "lock_id", lock.ID, "error", err)
		}
	}

	s.cfg.Log.Info("Lapsed reservation sweep finished", "examined", report.Examined, "swept", report.Swept)
	return report, nil
}

// SweepEndedRentals closes rentals whose end date has passed and frees
// their locks for the interest list.
func (s *sweeperService) SweepEndedRentals(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	candidates, err := s.repo.FindEndedActive(ctx, now, sweepBatchSize)
	if err != nil {
		return nil, apperrors.Internal("Failed to find ended rentals", err)
	}

	report := &SweepReport{Examined: len(candidates)}
	for _, booking := range candidates {
		changed, err := s.repo.UpdateStatusIf(ctx, booking.ID,
			[]string{model.BookingActive},
			model.BookingExpired, nil)
		if err != nil {
			s.cfg.Log.Error("Failed to close ended rental", "booking_id", booking.ID, "error", err)
			continue
		}
		if !changed {
			continue
		}
		report.Swept++

		if err := s.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.RentalEnded,
			UserID:     booking.UserID,
			LockID:     booking.LockID,
			LockNumber: booking.LockNumber,
			BookingID:  booking.ID,
		}); err != nil {
			s.cfg.Log.Warn("Rental-end notification dispatch failed", "booking_id", booking.ID)
		}

		// Reserve for the next waiter or release to the interest list.
		if err := s.processor.Advance(ctx, booking.LockID); err != nil {
			s.cfg.Log.Error("Failed to advance queue after rental end", "lock_id", booking.LockID, "error", err)
		}
	}

	s.cfg.Log.Info("Ended rental sweep finished", "examined", report.Examined, "swept", report.Swept)
	return report, nil
}

// SweepRenewalNotices reminds renters whose rental ends within the
// renewal notice window. Each booking is notified at most once.
func (s *sweeperService) SweepRenewalNotices(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	candidates, err := s.repo.FindEndingSoon(ctx, now, now.Add(s.cfg.RenewalNoticeWindow), sweepBatchSize)
	if err != nil {
		return nil, apperrors.Internal("Failed to find rentals ending soon", err)
	}

	report := &SweepReport{Examined: len(candidates)}
	for _, booking := range candidates {
		if err := s.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.RenewalNotice,
			UserID:     booking.UserID,
			LockID:     booking.LockID,
			LockNumber: booking.LockNumber,
			BookingID:  booking.ID,
			Deadline:   booking.EndDate,
		}); err != nil {
			s.cfg.Log.Warn("Renewal notice dispatch failed", "booking_id", booking.ID)
			continue
		}

		if err := s.repo.MarkRenewalNotified(ctx, booking.ID); err != nil {
			s.cfg.Log.Error("Failed to mark renewal notified", "booking_id", booking.ID, "error", err)
			continue
		}
		report.Swept++
	}

	s.cfg.Log.Info("Renewal notice sweep finished", "examined", report.Examined, "swept", report.Swept)
	return report, nil
}
