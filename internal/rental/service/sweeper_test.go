package service

import (
	"context"
	"testing"
	"time"

	"talad/internal/notify/events"
	"talad/pkg/model"
)

type sweeperFixture struct {
	svc        SweeperService
	locks      *fakeLockRepo
	bookings   *fakeBookingRepo
	queue      *fakeQueueRepo
	audit      *fakeAuditRepo
	dispatcher *recordingDispatcher
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	cfg := testConfig()
	locks := newFakeLockRepo()
	bookings := newFakeBookingRepo()
	queue := newFakeQueueRepo()
	audit := newFakeAuditRepo()
	dispatcher := newRecordingDispatcher()
	processor := NewQueueProcessor(locks, queue, audit, dispatcher, cfg)
	return &sweeperFixture{
		svc:        NewSweeperService(bookings, locks, queue, audit, processor, dispatcher, cfg),
		locks:      locks,
		bookings:   bookings,
		queue:      queue,
		audit:      audit,
		dispatcher: dispatcher,
	}
}

func TestSweepExpiredPayments(t *testing.T) {
	f := newSweeperFixture(t)
	f.locks.put(testLock(testLockID, model.LockBooked))
	booking := &model.Booking{
		LockID:          testLockID,
		UserID:          "user-1",
		Status:          model.BookingPendingPayment,
		PaymentDeadline: time.Now().UTC().Add(-time.Minute),
	}
	if err := f.bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}
	if _, err := f.queue.Join(context.Background(), testLockID, "user-2"); err != nil {
		t.Fatal(err)
	}

	report, err := f.svc.SweepExpiredPayments(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if report.Swept != 1 {
		t.Fatalf("swept = %d, want 1", report.Swept)
	}

	if got := f.bookings.get(booking.ID).Status; got != model.BookingCancelled {
		t.Errorf("booking status = %q, want %q", got, model.BookingCancelled)
	}

	lock := f.locks.get(testLockID)
	if lock.Status != model.LockReserved || lock.ReservedTo != "user-2" {
		t.Errorf("lock should be reserved for the queue head, got status=%q reserved_to=%q",
			lock.Status, lock.ReservedTo)
	}
	if got := len(f.dispatcher.ofType(events.BookingExpired)); got != 1 {
		t.Errorf("booking.expired events = %d, want 1", got)
	}

	// A second run finds nothing left to expire.
	report, err = f.svc.SweepExpiredPayments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Swept != 0 {
		t.Errorf("second run swept = %d, want 0", report.Swept)
	}
}

func TestSweepExpiredPaymentsSkipsFutureDeadlines(t *testing.T) {
	f := newSweeperFixture(t)
	f.locks.put(testLock(testLockID, model.LockBooked))
	booking := &model.Booking{
		LockID:          testLockID,
		UserID:          "user-1",
		Status:          model.BookingPendingPayment,
		PaymentDeadline: time.Now().UTC().Add(time.Hour),
	}
	if err := f.bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}

	report, err := f.svc.SweepExpiredPayments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Examined != 0 || report.Swept != 0 {
		t.Errorf("report = %+v, want nothing examined", report)
	}
}

func TestSweepLapsedReservationsAdvancesToNextWaiter(t *testing.T) {
	f := newSweeperFixture(t)
	lock := testLock(testLockID, model.LockReserved)
	expired := time.Now().UTC().Add(-time.Minute)
	lock.ReservedTo = "user-1"
	lock.ReservationExpiresAt = &expired
	f.locks.put(lock)
	for _, userID := range []string{"user-1", "user-2"} {
		if _, err := f.queue.Join(context.Background(), testLockID, userID); err != nil {
			t.Fatal(err)
		}
	}

	report, err := f.svc.SweepLapsedReservations(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if report.Swept != 1 {
		t.Fatalf("swept = %d, want 1", report.Swept)
	}

	got := f.locks.get(testLockID)
	if got.Status != model.LockReserved || got.ReservedTo != "user-2" {
		t.Errorf("lock should pass to user-2, got status=%q reserved_to=%q", got.Status, got.ReservedTo)
	}
	if size := f.queue.size(testLockID); size != 1 {
		t.Errorf("queue size = %d, want 1 after dropping the lapsed holder", size)
	}
	if got := len(f.dispatcher.ofType(events.ReservationLapsed)); got != 1 {
		t.Errorf("reservation.lapsed events = %d, want 1", got)
	}
}

func TestSweepLapsedReservationsReleasesWhenQueueEmpties(t *testing.T) {
	f := newSweeperFixture(t)
	lock := testLock(testLockID, model.LockReserved)
	expired := time.Now().UTC().Add(-time.Minute)
	lock.ReservedTo = "user-1"
	lock.ReservationExpiresAt = &expired
	f.locks.put(lock)
	if _, err := f.queue.Join(context.Background(), testLockID, "user-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SweepLapsedReservations(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := f.locks.get(testLockID).Status; got != model.LockAvailable {
		t.Errorf("lock status = %q, want %q", got, model.LockAvailable)
	}
	if got := len(f.dispatcher.ofType(events.LockBecameFree)); got != 1 {
		t.Errorf("lock.became_free events = %d, want 1", got)
	}
}

func TestSweepEndedRentals(t *testing.T) {
	f := newSweeperFixture(t)
	f.locks.put(testLock(testLockID, model.LockRented))
	booking := &model.Booking{
		LockID:    testLockID,
		UserID:    "user-1",
		Status:    model.BookingActive,
		StartDate: time.Now().UTC().AddDate(0, 0, -7),
		EndDate:   time.Now().UTC().AddDate(0, 0, -1),
	}
	if err := f.bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}

	report, err := f.svc.SweepEndedRentals(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if report.Swept != 1 {
		t.Fatalf("swept = %d, want 1", report.Swept)
	}

	if got := f.bookings.get(booking.ID).Status; got != model.BookingExpired {
		t.Errorf("booking status = %q, want %q", got, model.BookingExpired)
	}
	if got := f.locks.get(testLockID).Status; got != model.LockAvailable {
		t.Errorf("lock status = %q, want %q", got, model.LockAvailable)
	}
	if got := len(f.dispatcher.ofType(events.RentalEnded)); got != 1 {
		t.Errorf("rental.ended events = %d, want 1", got)
	}
	if got := len(f.dispatcher.ofType(events.LockBecameFree)); got != 1 {
		t.Errorf("lock.became_free events = %d, want 1", got)
	}

	// Re-running changes nothing.
	report, err = f.svc.SweepEndedRentals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Swept != 0 {
		t.Errorf("second run swept = %d, want 0", report.Swept)
	}
}

func TestSweepEndedRentalsReservesForWaiter(t *testing.T) {
	f := newSweeperFixture(t)
	f.locks.put(testLock(testLockID, model.LockRented))
	booking := &model.Booking{
		LockID:    testLockID,
		UserID:    "user-1",
		Status:    model.BookingActive,
		StartDate: time.Now().UTC().AddDate(0, 0, -7),
		EndDate:   time.Now().UTC().AddDate(0, 0, -1),
	}
	if err := f.bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}
	if _, err := f.queue.Join(context.Background(), testLockID, "user-2"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SweepEndedRentals(context.Background()); err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}

	lock := f.locks.get(testLockID)
	if lock.Status != model.LockReserved || lock.ReservedTo != "user-2" {
		t.Errorf("lock should be reserved for the waiter, got status=%q reserved_to=%q",
			lock.Status, lock.ReservedTo)
	}
	if got := len(f.dispatcher.ofType(events.QueueOffer)); got != 1 {
		t.Errorf("queue.offer events = %d, want 1", got)
	}
	if got := len(f.dispatcher.ofType(events.LockBecameFree)); got != 0 {
		t.Errorf("lock.became_free events = %d, a waiting queue must get the offer first", got)
	}
}

func TestSweepRenewalNoticesNotifiesOnce(t *testing.T) {
	f := newSweeperFixture(t)
	f.locks.put(testLock(testLockID, model.LockRented))
	booking := &model.Booking{
		LockID:  testLockID,
		UserID:  "user-1",
		Status:  model.BookingActive,
		EndDate: time.Now().UTC().Add(48 * time.Hour),
	}
	if err := f.bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}

	report, err := f.svc.SweepRenewalNotices(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if report.Swept != 1 {
		t.Fatalf("swept = %d, want 1", report.Swept)
	}
	if !f.bookings.get(booking.ID).RenewalNotified {
		t.Error("booking should be marked renewal-notified")
	}
	if got := len(f.dispatcher.ofType(events.RenewalNotice)); got != 1 {
		t.Errorf("renewal.notice events = %d, want 1", got)
	}

	report, err = f.svc.SweepRenewalNotices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Examined != 0 {
		t.Errorf("second run examined = %d, notified bookings must not reappear", report.Examined)
	}
}

func TestSweepRenewalNoticesSkipsDistantEndDates(t *testing.T) {
	f := newSweeperFixture(t)
	booking := &model.Booking{
		LockID:  testLockID,
		UserID:  "user-1",
		Status:  model.BookingActive,
		EndDate: time.Now().UTC().AddDate(0, 0, 20),
	}
	if err := f.bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}

	report, err := f.svc.SweepRenewalNotices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Examined != 0 {
		t.Errorf("examined = %d, want 0 for an end date outside the notice window", report.Examined)
	}
}
