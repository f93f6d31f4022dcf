package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"talad/internal/notify/events"
	rentalerrors "talad/internal/rental/errors"
	"talad/internal/rental/repository"
	"talad/pkg/config"
	mongotx "talad/pkg/db/mongo"
	"talad/pkg/logger"
	"talad/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func testConfig() *config.Config {
	return &config.Config{
		PaymentGraceWindow:  24 * time.Hour,
		ReservationWindow:   24 * time.Hour,
		RenewalNoticeWindow: 72 * time.Hour,
		Log: logger.New(logger.Config{
			Level:  logger.ERROR,
			Format: logger.TEXT,
			Output: io.Discard,
		}),
	}
}

func testLock(id string, status string) *model.Lock {
	return &model.Lock{
		ID:         id,
		LockNumber: "A-01",
		ZoneID:     "64b0c1d2e3f4a5b6c7d8e901",
		Size:       model.LockSize{Width: 2, Length: 3, Unit: "m"},
		Pricing:    model.LockPricing{Daily: 100},
		Status:     status,
		IsActive:   true,
	}
}

// In-memory repositories that keep the same conditional-update
// semantics as the Mongo implementations, so race tests exercise the
// real claim protocol.

type fakeLockRepo struct {
	mu    sync.Mutex
	locks map[string]*model.Lock
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{locks: make(map[string]*model.Lock)}
}

func (r *fakeLockRepo) put(lock *model.Lock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks[lock.ID] = lock
}

func (r *fakeLockRepo) get(id string) model.Lock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.locks[id]
}

func (r *fakeLockRepo) Create(ctx context.Context, lock *model.Lock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lock.ID == "" {
		lock.ID = fmt.Sprintf("lock-%d", len(r.locks)+1)
	}
	r.locks[lock.ID] = lock
	return nil
}

func (r *fakeLockRepo) FindByID(ctx context.Context, id string) (*model.Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		return nil, rentalerrors.ErrLockNotFound
	}
	copied := *lock
	return &copied, nil
}

func (r *fakeLockRepo) FindByNumber(ctx context.Context, lockNumber string) (*model.Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lock := range r.locks {
		if lock.LockNumber == lockNumber {
			copied := *lock
			return &copied, nil
		}
	}
	return nil, rentalerrors.ErrLockNotFound
}

func (r *fakeLockRepo) FindAll(ctx context.Context, filter repository.LockFilter, limit int, offset int64) ([]*model.Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Lock
	for _, lock := range r.locks {
		copied := *lock
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeLockRepo) Count(ctx context.Context, filter repository.LockFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.locks)), nil
}

func (r *fakeLockRepo) Update(ctx context.Context, id string, lock *model.Lock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.locks[id]
	if !ok {
		return rentalerrors.ErrLockNotFound
	}
	existing.LockNumber = lock.LockNumber
	existing.Pricing = lock.Pricing
	existing.Description = lock.Description
	return nil
}

func (r *fakeLockRepo) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		return rentalerrors.ErrLockNotFound
	}
	lock.IsActive = false
	return nil
}

func (r *fakeLockRepo) ClaimForBooking(ctx context.Context, lockID string, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[lockID]
	if !ok || !lock.IsActive {
		return rentalerrors.ErrClaimConflict
	}

	claimable := lock.Status == model.LockAvailable ||
		(lock.Status == model.LockReserved &&
			lock.ReservedTo == userID &&
			lock.ReservationExpiresAt != nil &&
			lock.ReservationExpiresAt.After(now))
	if !claimable {
		return rentalerrors.ErrClaimConflict
	}

	lock.Status = model.LockBooked
	lock.ReservedTo = ""
	lock.ReservationExpiresAt = nil
	return nil
}

func (r *fakeLockRepo) Reserve(ctx context.Context, lockID string, userID string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[lockID]
	if !ok {
		return false, nil
	}
	switch lock.Status {
	case model.LockBooked, model.LockReserved, model.LockRented:
	default:
		return false, nil
	}

	lock.Status = model.LockReserved
	lock.ReservedTo = userID
	lock.ReservationExpiresAt = &expiresAt
	return true, nil
}

func (r *fakeLockRepo) Release(ctx context.Context, lockID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[lockID]
	if !ok {
		return false, nil
	}
	switch lock.Status {
	case model.LockBooked, model.LockReserved, model.LockRented:
		lock.Status = model.LockAvailable
		lock.ReservedTo = ""
		lock.ReservationExpiresAt = nil
		return true, nil
	}
	return false, nil
}

func (r *fakeLockRepo) MarkRented(ctx context.Context, lockID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[lockID]
	if !ok || lock.Status != model.LockBooked {
		return false, nil
	}
	lock.Status = model.LockRented
	return true, nil
}

func (r *fakeLockRepo) FindLapsedReservations(ctx context.Context, now time.Time, limit int) ([]*model.Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Lock
	for _, lock := range r.locks {
		if lock.Status == model.LockReserved &&
			lock.ReservationExpiresAt != nil &&
			!lock.ReservationExpiresAt.After(now) {
			copied := *lock
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLockRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	seq      int

	createErr error
	tx        func(fn mongotx.TransactionFunc) error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]*model.Booking)}
}

func (r *fakeBookingRepo) get(id string) model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.bookings[id]
}

func (r *fakeBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	booking.ID = fmt.Sprintf("booking-%d", r.seq)
	booking.CreatedAt = time.Now().UTC()
	copied := *booking
	r.bookings[booking.ID] = &copied
	return nil
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, rentalerrors.ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (r *fakeBookingRepo) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, booking := range r.bookings {
		if booking.UserID == userID {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	bookings, _ := r.FindByUser(ctx, userID, 0, 0)
	return int64(len(bookings)), nil
}

func (r *fakeBookingRepo) FindByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, booking := range r.bookings {
		if booking.Status == status {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	bookings, _ := r.FindByStatus(ctx, status, 0, 0)
	return int64(len(bookings)), nil
}

func (r *fakeBookingRepo) HasOverlap(ctx context.Context, lockID string, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, booking := range r.bookings {
		if booking.LockID == lockID && booking.Occupying() && booking.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookingRepo) HasLiveForUser(ctx context.Context, lockID string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, booking := range r.bookings {
		if booking.LockID == lockID && booking.UserID == userID && booking.Occupying() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookingRepo) UpdateStatusIf(ctx context.Context, id string, from []string, to string, set bson.M) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return false, nil
	}

	matched := false
	for _, status := range from {
		if booking.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	booking.Status = to
	for key, value := range set {
		switch key {
		case "verified_by":
			booking.VerifiedBy = value.(string)
		case "verified_at":
			t := value.(time.Time)
			booking.VerifiedAt = &t
		case "reject_reason":
			booking.RejectReason = value.(string)
		case "payment_slip_url":
			booking.PaymentSlipURL = value.(string)
		case "slip_uploaded_at":
			t := value.(time.Time)
			booking.SlipUploadedAt = &t
		}
	}
	return true, nil
}

func (r *fakeBookingRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, booking := range r.bookings {
		if booking.Status == model.BookingPendingPayment && !booking.PaymentDeadline.After(now) {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindEndedActive(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, booking := range r.bookings {
		if booking.Status == model.BookingActive &&
			booking.EndDate.Before(now) {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindEndingSoon(ctx context.Context, from, to time.Time, limit int) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, booking := range r.bookings {
		if booking.Status == model.BookingActive &&
			!booking.RenewalNotified &&
			!booking.EndDate.Before(from) && !booking.EndDate.After(to) {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) MarkRenewalNotified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if booking, ok := r.bookings[id]; ok {
		booking.RenewalNotified = true
	}
	return nil
}

func (r *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if r.tx != nil {
		return r.tx(fn)
	}
	return fn(nil)
}

type fakeQueueEntry struct {
	lockID   string
	userID   string
	notified bool
	joinedAt time.Time
	seq      int
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries []*fakeQueueEntry
	seq     int
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{}
}

func (r *fakeQueueRepo) find(lockID, userID string) *fakeQueueEntry {
	for _, entry := range r.entries {
		if entry.lockID == lockID && entry.userID == userID {
			return entry
		}
	}
	return nil
}

func (r *fakeQueueRepo) Join(ctx context.Context, lockID string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(lockID, userID) != nil {
		return false, nil
	}
	r.seq++
	r.entries = append(r.entries, &fakeQueueEntry{
		lockID:   lockID,
		userID:   userID,
		joinedAt: time.Now().UTC(),
		seq:      r.seq,
	})
	return true, nil
}

func (r *fakeQueueRepo) Leave(ctx context.Context, lockID string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.entries {
		if entry.lockID == lockID && entry.userID == userID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return rentalerrors.ErrQueueNotFound
}

func (r *fakeQueueRepo) FindHead(ctx context.Context, lockID string) (*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var head *fakeQueueEntry
	for _, entry := range r.entries {
		if entry.lockID != lockID {
			continue
		}
		if head == nil || entry.seq < head.seq {
			head = entry
		}
	}
	if head == nil {
		return nil, nil
	}
	return &model.QueueEntry{
		LockID:   head.lockID,
		UserID:   head.userID,
		Notified: head.notified,
		JoinedAt: head.joinedAt,
	}, nil
}

func (r *fakeQueueRepo) FindByLock(ctx context.Context, lockID string) ([]*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.QueueEntry
	for _, entry := range r.entries {
		if entry.lockID == lockID {
			out = append(out, &model.QueueEntry{
				LockID:   entry.lockID,
				UserID:   entry.userID,
				Notified: entry.notified,
				JoinedAt: entry.joinedAt,
			})
		}
	}
	return out, nil
}

func (r *fakeQueueRepo) FindByUser(ctx context.Context, userID string) ([]*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.QueueEntry
	for _, entry := range r.entries {
		if entry.userID == userID {
			out = append(out, &model.QueueEntry{
				LockID:   entry.lockID,
				UserID:   entry.userID,
				Notified: entry.notified,
				JoinedAt: entry.joinedAt,
			})
		}
	}
	return out, nil
}

func (r *fakeQueueRepo) Position(ctx context.Context, lockID string, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	me := r.find(lockID, userID)
	if me == nil {
		return 0, nil
	}
	position := 1
	for _, entry := range r.entries {
		if entry.lockID == lockID && entry.seq < me.seq {
			position++
		}
	}
	return position, nil
}

func (r *fakeQueueRepo) Delete(ctx context.Context, lockID string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.entries {
		if entry.lockID == lockID && entry.userID == userID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeQueueRepo) PurgeByLock(ctx context.Context, lockID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*fakeQueueEntry
	var purged int64
	for _, entry := range r.entries {
		if entry.lockID == lockID {
			purged++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return purged, nil
}

func (r *fakeQueueRepo) MarkNotified(ctx context.Context, lockID string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry := r.find(lockID, userID); entry != nil {
		entry.notified = true
	}
	return nil
}

func (r *fakeQueueRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func (r *fakeQueueRepo) size(lockID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.entries {
		if entry.lockID == lockID {
			n++
		}
	}
	return n
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []*model.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Record(ctx context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, entry)
	return nil
}

func (r *fakeAuditRepo) FindByBooking(ctx context.Context, bookingID string, limit int, offset int64) ([]*model.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) FindRecent(ctx context.Context, limit int, offset int64) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.AuditLog(nil), r.records...), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, record := range r.records {
		out = append(out, record.Action)
	}
	return out
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{}
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) ofType(eventType string) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
