package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"talad/internal/notify/events"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"
)

type verificationFixture struct {
	svc        VerificationService
	locks      *fakeLockRepo
	bookings   *fakeBookingRepo
	queue      *fakeQueueRepo
	audit      *fakeAuditRepo
	dispatcher *recordingDispatcher
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	cfg := testConfig()
	locks := newFakeLockRepo()
	bookings := newFakeBookingRepo()
	queue := newFakeQueueRepo()
	audit := newFakeAuditRepo()
	dispatcher := newRecordingDispatcher()
	return &verificationFixture{
		svc:        NewVerificationService(bookings, locks, queue, audit, dispatcher, cfg),
		locks:      locks,
		bookings:   bookings,
		queue:      queue,
		audit:      audit,
		dispatcher: dispatcher,
	}
}

func (f *verificationFixture) seedBooking(t *testing.T, status string, deadline time.Time) *model.Booking {
	t.Helper()
	f.locks.put(testLock(testLockID, model.LockBooked))
	booking := &model.Booking{
		LockID:          testLockID,
		LockNumber:      "A-01",
		UserID:          "user-1",
		Status:          status,
		Amount:          100,
		PaymentDeadline: deadline,
	}
	if err := f.bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}
	return booking
}

func TestUploadSlipMovesBookingToVerification(t *testing.T) {
	f := newVerificationFixture(t)
	booking := f.seedBooking(t, model.BookingPendingPayment, time.Now().UTC().Add(time.Hour))

	if err := f.svc.UploadSlip(context.Background(), "user-1", booking.ID, "https://cdn.example/slip.jpg"); err != nil {
		t.Fatalf("UploadSlip returned error: %v", err)
	}

	got := f.bookings.get(booking.ID)
	if got.Status != model.BookingPendingVerification {
		t.Errorf("status = %q, want %q", got.Status, model.BookingPendingVerification)
	}
	if got.PaymentSlipURL != "https://cdn.example/slip.jpg" {
		t.Errorf("slip url = %q", got.PaymentSlipURL)
	}
	if got.SlipUploadedAt == nil {
		t.Error("slip upload time not recorded")
	}
}

func TestUploadSlipGuards(t *testing.T) {
	t.Run("foreign booking", func(t *testing.T) {
		f := newVerificationFixture(t)
		booking := f.seedBooking(t, model.BookingPendingPayment, time.Now().UTC().Add(time.Hour))
		err := f.svc.UploadSlip(context.Background(), "user-2", booking.ID, "https://cdn.example/slip.jpg")
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("deadline passed", func(t *testing.T) {
		f := newVerificationFixture(t)
		booking := f.seedBooking(t, model.BookingPendingPayment, time.Now().UTC().Add(-time.Minute))
		err := f.svc.UploadSlip(context.Background(), "user-1", booking.ID, "https://cdn.example/slip.jpg")
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("already under verification", func(t *testing.T) {
		f := newVerificationFixture(t)
		booking := f.seedBooking(t, model.BookingPendingVerification, time.Now().UTC().Add(time.Hour))
		err := f.svc.UploadSlip(context.Background(), "user-1", booking.ID, "https://cdn.example/slip.jpg")
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("empty url", func(t *testing.T) {
		f := newVerificationFixture(t)
		booking := f.seedBooking(t, model.BookingPendingPayment, time.Now().UTC().Add(time.Hour))
		err := f.svc.UploadSlip(context.Background(), "user-1", booking.ID, "")
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeInvalidInput {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestApprovePurgesQueueAndRentsLock(t *testing.T) {
	f := newVerificationFixture(t)
	booking := f.seedBooking(t, model.BookingPendingVerification, time.Now().UTC().Add(time.Hour))
	for _, userID := range []string{"user-2", "user-3"} {
		if _, err := f.queue.Join(context.Background(), testLockID, userID); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.svc.Approve(context.Background(), "admin-1", booking.ID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	got := f.bookings.get(booking.ID)
	if got.Status != model.BookingActive {
		t.Errorf("booking status = %q, want %q", got.Status, model.BookingActive)
	}
	if got.VerifiedBy != "admin-1" || got.VerifiedAt == nil {
		t.Error("verification stamp missing")
	}
	if lockStatus := f.locks.get(testLockID).Status; lockStatus != model.LockRented {
		t.Errorf("lock status = %q, want %q", lockStatus, model.LockRented)
	}
	if size := f.queue.size(testLockID); size != 0 {
		t.Errorf("queue size = %d, approval must purge every waiter", size)
	}
	if got := len(f.dispatcher.ofType(events.PaymentApproved)); got != 1 {
		t.Errorf("payment.approved events = %d, want 1", got)
	}

	purged := f.dispatcher.ofType(events.QueuePurged)
	if len(purged) != 2 {
		t.Fatalf("queue.purged events = %d, want one per purged waiter", len(purged))
	}
	notified := map[string]bool{}
	for _, event := range purged {
		notified[event.UserID] = true
	}
	if !notified["user-2"] || !notified["user-3"] {
		t.Errorf("purge notices went to %v, want user-2 and user-3", notified)
	}

	// Approving twice is a conflict, not a double-apply.
	err := f.svc.Approve(context.Background(), "admin-1", booking.ID)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict on re-approval, got %v", err)
	}
}

func TestApproveRejectsBookingWithoutSlip(t *testing.T) {
	f := newVerificationFixture(t)
	booking := f.seedBooking(t, model.BookingPendingPayment, time.Now().UTC().Add(time.Hour))

	err := f.svc.Approve(context.Background(), "admin-1", booking.ID)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRejectRevertsToPendingAndKeepsDeadline(t *testing.T) {
	f := newVerificationFixture(t)
	deadline := time.Now().UTC().Add(time.Hour)
	booking := f.seedBooking(t, model.BookingPendingPayment, deadline)
	if err := f.svc.UploadSlip(context.Background(), "user-1", booking.ID, "https://cdn.example/slip.jpg"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Reject(context.Background(), "admin-1", booking.ID, "amount mismatch"); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}

	got := f.bookings.get(booking.ID)
	if got.Status != model.BookingPendingPayment {
		t.Errorf("booking status = %q, rejection reverts to pending payment", got.Status)
	}
	if !got.PaymentDeadline.Equal(deadline) {
		t.Errorf("deadline = %v, rejection must not extend it", got.PaymentDeadline)
	}
	if got.PaymentSlipURL != "" {
		t.Error("rejected slip url should be cleared")
	}
	if got.RejectReason != "amount mismatch" {
		t.Errorf("reject reason = %q", got.RejectReason)
	}
	if lockStatus := f.locks.get(testLockID).Status; lockStatus != model.LockBooked {
		t.Errorf("lock status = %q, rejection keeps the lock booked", lockStatus)
	}

	rejected := f.dispatcher.ofType(events.PaymentRejected)
	if len(rejected) != 1 {
		t.Fatalf("payment.rejected events = %d, want 1", len(rejected))
	}
	if rejected[0].Reason != "amount mismatch" {
		t.Errorf("event reason = %q", rejected[0].Reason)
	}

	// The renter can upload a corrected slip while the deadline holds.
	if err := f.svc.UploadSlip(context.Background(), "user-1", booking.ID, "https://cdn.example/slip2.jpg"); err != nil {
		t.Fatalf("re-upload after rejection failed: %v", err)
	}
}

func TestRejectRequiresVerificationState(t *testing.T) {
	f := newVerificationFixture(t)
	booking := f.seedBooking(t, model.BookingPendingPayment, time.Now().UTC().Add(time.Hour))

	err := f.svc.Reject(context.Background(), "admin-1", booking.ID, "late")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
