package service

import (
	"context"
	"errors"
	"testing"

	"talad/internal/rental/validator"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"
)

func newLockService(t *testing.T) (LockService, *fakeLockRepo, *fakeAuditRepo) {
	t.Helper()
	cfg := testConfig()
	locks := newFakeLockRepo()
	audit := newFakeAuditRepo()
	svc := NewLockService(locks, audit, validator.NewBookingValidator(cfg.Log), cfg)
	return svc, locks, audit
}

func TestLockCreateForcesAvailableState(t *testing.T) {
	svc, locks, audit := newLockService(t)

	lock := testLock("", model.LockRented)
	lock.IsActive = false
	if err := svc.Create(context.Background(), "admin-1", lock); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	created := locks.get(lock.ID)
	if created.Status != model.LockAvailable {
		t.Errorf("status = %q, a new lock always starts available", created.Status)
	}
	if !created.IsActive {
		t.Error("a new lock must start active")
	}

	actions := audit.actions()
	if len(actions) != 1 || actions[0] != model.AuditLockCreated {
		t.Errorf("audit actions = %v, want [%s]", actions, model.AuditLockCreated)
	}
}

func TestLockCreateRejectsDuplicateNumber(t *testing.T) {
	svc, _, _ := newLockService(t)

	if err := svc.Create(context.Background(), "admin-1", testLock("", model.LockAvailable)); err != nil {
		t.Fatal(err)
	}

	err := svc.Create(context.Background(), "admin-1", testLock("", model.LockAvailable))
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate lock number, got %v", err)
	}
}

func TestLockCreateRejectsInvalidLock(t *testing.T) {
	svc, _, _ := newLockService(t)

	lock := testLock("", model.LockAvailable)
	lock.Pricing = model.LockPricing{}

	err := svc.Create(context.Background(), "admin-1", lock)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLockDeactivate(t *testing.T) {
	svc, locks, audit := newLockService(t)
	locks.put(testLock(testLockID, model.LockAvailable))

	if err := svc.Deactivate(context.Background(), "admin-1", testLockID); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}
	if locks.get(testLockID).IsActive {
		t.Error("lock should be inactive")
	}
	actions := audit.actions()
	if len(actions) != 1 || actions[0] != model.AuditLockDeactivated {
		t.Errorf("audit actions = %v", actions)
	}

	err := svc.Deactivate(context.Background(), "admin-1", "64b0c1d2e3f4a5b6c7d8e9ff")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
