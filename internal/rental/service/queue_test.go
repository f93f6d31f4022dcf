package service

import (
	"context"
	"errors"
	"testing"

	"talad/internal/notify/events"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"
)

type queueFixture struct {
	svc        QueueService
	locks      *fakeLockRepo
	queue      *fakeQueueRepo
	dispatcher *recordingDispatcher
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	cfg := testConfig()
	locks := newFakeLockRepo()
	queue := newFakeQueueRepo()
	dispatcher := newRecordingDispatcher()
	return &queueFixture{
		svc:        NewQueueService(queue, locks, dispatcher, cfg),
		locks:      locks,
		queue:      queue,
		dispatcher: dispatcher,
	}
}

func TestQueueJoinOrdersByArrival(t *testing.T) {
	f := newQueueFixture(t)
	f.locks.put(testLock(testLockID, model.LockRented))

	for i, userID := range []string{"user-1", "user-2", "user-3"} {
		position, err := f.svc.Join(context.Background(), userID, testLockID)
		if err != nil {
			t.Fatalf("Join(%s) returned error: %v", userID, err)
		}
		if position.Position != i+1 {
			t.Errorf("Join(%s) position = %d, want %d", userID, position.Position, i+1)
		}
	}

	if got := len(f.dispatcher.ofType(events.BookingQueued)); got != 3 {
		t.Errorf("booking.queued events = %d, want 3", got)
	}
}

func TestQueueJoinIsIdempotent(t *testing.T) {
	f := newQueueFixture(t)
	f.locks.put(testLock(testLockID, model.LockRented))

	for i := 0; i < 3; i++ {
		position, err := f.svc.Join(context.Background(), "user-1", testLockID)
		if err != nil {
			t.Fatalf("Join run %d returned error: %v", i, err)
		}
		if position.Position != 1 {
			t.Errorf("position = %d, want 1 on every join", position.Position)
		}
	}

	if got := f.queue.size(testLockID); got != 1 {
		t.Errorf("queue size = %d, re-joining must not add rows", got)
	}
	if got := len(f.dispatcher.ofType(events.BookingQueued)); got != 1 {
		t.Errorf("booking.queued events = %d, only the first join notifies", got)
	}
}

func TestQueueJoinRejectsAvailableLock(t *testing.T) {
	f := newQueueFixture(t)
	f.locks.put(testLock(testLockID, model.LockAvailable))

	_, err := f.svc.Join(context.Background(), "user-1", testLockID)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestQueueJoinRejectsInactiveLock(t *testing.T) {
	f := newQueueFixture(t)
	lock := testLock(testLockID, model.LockRented)
	lock.IsActive = false
	f.locks.put(lock)

	_, err := f.svc.Join(context.Background(), "user-1", testLockID)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestQueueLeave(t *testing.T) {
	f := newQueueFixture(t)
	f.locks.put(testLock(testLockID, model.LockRented))
	for _, userID := range []string{"user-1", "user-2"} {
		if _, err := f.svc.Join(context.Background(), userID, testLockID); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.svc.Leave(context.Background(), "user-1", testLockID); err != nil {
		t.Fatalf("Leave returned error: %v", err)
	}

	position, err := f.queue.Position(context.Background(), testLockID, "user-2")
	if err != nil {
		t.Fatal(err)
	}
	if position != 1 {
		t.Errorf("user-2 position = %d, want 1 after the head left", position)
	}

	err = f.svc.Leave(context.Background(), "user-1", testLockID)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found on double leave, got %v", err)
	}
}

func TestQueuePositionsForUser(t *testing.T) {
	f := newQueueFixture(t)
	secondLockID := "64b0c1d2e3f4a5b6c7d8e9f1"
	f.locks.put(testLock(testLockID, model.LockRented))
	second := testLock(secondLockID, model.LockRented)
	second.LockNumber = "A-02"
	f.locks.put(second)

	if _, err := f.svc.Join(context.Background(), "user-1", testLockID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Join(context.Background(), "user-2", secondLockID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Join(context.Background(), "user-1", secondLockID); err != nil {
		t.Fatal(err)
	}

	positions, err := f.svc.PositionsForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PositionsForUser returned error: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(positions))
	}
	byLock := map[string]int{}
	for _, p := range positions {
		byLock[p.LockID] = p.Position
	}
	if byLock[testLockID] != 1 {
		t.Errorf("position on first lock = %d, want 1", byLock[testLockID])
	}
	if byLock[secondLockID] != 2 {
		t.Errorf("position on second lock = %d, want 2", byLock[secondLockID])
	}
}
