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

// QueueProcessor advances a lock's queue whenever the current holder
// lets go: cancellation, payment expiry, a lapsed reservation, or a
// rental running out its term.
//
// The head of the queue gets a reservation window during which only
// they can claim the lock. An empty queue returns the lock to
// available. Every write is conditional on the current status, so
// running the processor twice for the same release is a no-op.
type QueueProcessor interface {
	Advance(ctx context.Context, lockID string) error
}

type queueProcessor struct {
	lockRepo   repository.LockRepository
	queueRepo  repository.QueueRepository
	auditRepo  repository.AuditRepository
	dispatcher notify.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewQueueProcessor(
	lockRepo repository.LockRepository,
	queueRepo repository.QueueRepository,
	auditRepo repository.AuditRepository,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
) QueueProcessor {
	return &queueProcessor{
		lockRepo:   lockRepo,
		queueRepo:  queueRepo,
		auditRepo:  auditRepo,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *queueProcessor) Advance(ctx context.Context, lockID string) error {
	head, err := p.queueRepo.FindHead(ctx, lockID)
	if err != nil {
		return apperrors.Internal("Failed to read queue head", err)
	}

	if head == nil {
		released, err := p.lockRepo.Release(ctx, lockID)
		if err != nil {
			return apperrors.Internal("Failed to release lock", err)
		}
		if !released {
			// Someone already claimed or released it. Nothing to do.
			return nil
		}

		p.cfg.Log.Info("Lock released, queue empty", "lock_id", lockID)

		lock, err := p.lockRepo.FindByID(ctx, lockID)
		if err != nil {
			p.cfg.Log.Warn("Released lock but could not load it for fan-out", "lock_id", lockID, "error", err)
			return nil
		}
		if err := p.dispatcher.Dispatch(ctx, events.Event{
			Type:       events.LockBecameFree,
			LockID:     lockID,
			LockNumber: lock.LockNumber,
			ZoneID:     lock.ZoneID,
		}); err != nil {
			p.cfg.Log.Warn("Lock-free notification dispatch failed", "lock_id", lockID)
		}
		return nil
	}

	expiresAt := p.now().Add(p.cfg.ReservationWindow)
	reserved, err := p.lockRepo.Reserve(ctx, lockID, head.UserID, expiresAt)
	if err != nil {
		return apperrors.Internal("Failed to reserve lock for queue head", err)
	}
	if !reserved {
		// Lock is not in a hand-over state; a concurrent claim or an
		// earlier processor run already settled it.
		return nil
	}

	if err := p.queueRepo.MarkNotified(ctx, lockID, head.UserID); err != nil {
		p.cfg.Log.Warn("Failed to mark queue head notified", "lock_id", lockID, "user_id", head.UserID, "error", err)
	}

	if err := p.auditRepo.Record(ctx, &model.AuditLog{
		Action: model.AuditQueueReserved,
		LockID: lockID,
		Detail: map[string]any{"user_id": head.UserID, "expires_at": expiresAt},
	}); err != nil {
		p.cfg.Log.Warn("Failed to record reservation audit entry", "lock_id", lockID, "error", err)
	}

	p.cfg.Log.Info("Lock reserved for queue head",
		"lock_id", lockID,
		"user_id", head.UserID,
		"expires_at", expiresAt,
	)

	lock, err := p.lockRepo.FindByID(ctx, lockID)
	lockNumber := ""
	if err == nil {
		lockNumber = lock.LockNumber
	}
	if err := p.dispatcher.Dispatch(ctx, events.Event{
		Type:       events.QueueOffer,
		UserID:     head.UserID,
		LockID:     lockID,
		LockNumber: lockNumber,
		Deadline:   expiresAt,
	}); err != nil {
		p.cfg.Log.Warn("Queue offer notification dispatch failed", "lock_id", lockID, "user_id", head.UserID)
	}

	return nil
}
