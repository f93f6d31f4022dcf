package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	rentalerrors "talad/internal/rental/errors"
	"talad/pkg/config"
	mongotx "talad/pkg/db/mongo"
	"talad/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LockCollectionName = "Locks"
)

// LockFilter narrows lock listings. Zero values mean "any".
type LockFilter struct {
	ZoneID   string
	Status   string
	OnlyFree bool
}

type LockRepository interface {
	Create(ctx context.Context, lock *model.Lock) error
	FindByID(ctx context.Context, id string) (*model.Lock, error)
	FindByNumber(ctx context.Context, lockNumber string) (*model.Lock, error)
	FindAll(ctx context.Context, filter LockFilter, limit int, offset int64) ([]*model.Lock, error)
	Count(ctx context.Context, filter LockFilter) (int64, error)
	Update(ctx context.Context, id string, lock *model.Lock) error
	Deactivate(ctx context.Context, id string) error

	// ClaimForBooking is the single serialization point for handing a
	// lock to a user. It conditionally flips the lock to booked when it
	// is available, or when it is reserved for this user with a live
	// reservation window. Returns ErrClaimConflict when no document
	// matched.
	ClaimForBooking(ctx context.Context, lockID string, userID string, now time.Time) error

	// Reserve flips a vacated lock to reserved for the queue head.
	// Conditional on the current status so repeated sweeps are no-ops.
	Reserve(ctx context.Context, lockID string, userID string, expiresAt time.Time) (bool, error)

	// Release returns a booked, reserved, or rented lock to available.
	Release(ctx context.Context, lockID string) (bool, error)

	MarkRented(ctx context.Context, lockID string) (bool, error)

	FindLapsedReservations(ctx context.Context, now time.Time, limit int) ([]*model.Lock, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoLockRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(LockCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics.
func (r *mongoLockRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoLockRepository) Create(ctx context.Context, lock *model.Lock) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	lock.CreatedAt = now
	lock.UpdatedAt = now
	if lock.Status == "" {
		lock.Status = model.LockAvailable
	}

	result, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("lock number %s already exists: %w", lock.LockNumber, err)
		}
		return fmt.Errorf("failed to create lock: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		lock.ID = oid.Hex()
	}
	return nil
}

func (r *mongoLockRepository) FindByID(ctx context.Context, id string) (*model.Lock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, id)
	}

	var lock model.Lock
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&lock)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rentalerrors.ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to find lock: %w", err)
	}

	return &lock, nil
}

func (r *mongoLockRepository) FindByNumber(ctx context.Context, lockNumber string) (*model.Lock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var lock model.Lock
	err := r.collection.FindOne(ctx, bson.M{"lock_number": lockNumber}).Decode(&lock)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rentalerrors.ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to find lock by number: %w", err)
	}

	return &lock, nil
}

func (r *mongoLockRepository) buildListFilter(f LockFilter) bson.M {
	filter := bson.M{"is_active": true}
	if f.ZoneID != "" {
		filter["zone_id"] = f.ZoneID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.OnlyFree {
		filter["status"] = model.LockAvailable
	}
	return filter
}

func (r *mongoLockRepository) FindAll(ctx context.Context, f LockFilter, limit int, offset int64) ([]*model.Lock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "lock_number", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, r.buildListFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find locks: %w", err)
	}
	defer cursor.Close(ctx)

	var locks []*model.Lock
	if err = cursor.All(ctx, &locks); err != nil {
		return nil, fmt.Errorf("failed to decode locks: %w", err)
	}

	return locks, nil
}

func (r *mongoLockRepository) Count(ctx context.Context, f LockFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildListFilter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count locks: %w", err)
	}
	return count, nil
}

func (r *mongoLockRepository) Update(ctx context.Context, id string, lock *model.Lock) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"lock_number": lock.LockNumber,
			"zone_id":     lock.ZoneID,
			"size":        lock.Size,
			"pricing":     lock.Pricing,
			"description": lock.Description,
			"features":    lock.Features,
			"updated_at":  time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return rentalerrors.ErrLockNotFound
	}
	return nil
}

func (r *mongoLockRepository) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"is_active":  false,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to deactivate lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return rentalerrors.ErrLockNotFound
	}
	return nil
}

func (r *mongoLockRepository) ClaimForBooking(ctx context.Context, lockID string, userID string, now time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(lockID)
	if err != nil {
		return fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, lockID)
	}

	filter := bson.M{
		"_id":       objectID,
		"is_active": true,
		"$or": []bson.M{
			{"status": model.LockAvailable},
			{
				"status":                 model.LockReserved,
				"reserved_to":            userID,
				"reservation_expires_at": bson.M{"$gt": now},
			},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     model.LockBooked,
			"updated_at": now,
		},
		"$unset": bson.M{
			"reserved_to":            "",
			"reservation_expires_at": "",
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to claim lock: %w", err)
	}
	if result.ModifiedCount == 0 {
		return rentalerrors.ErrClaimConflict
	}
	return nil
}

func (r *mongoLockRepository) Reserve(ctx context.Context, lockID string, userID string, expiresAt time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(lockID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, lockID)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []string{model.LockBooked, model.LockReserved, model.LockRented}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":                 model.LockReserved,
			"reserved_to":            userID,
			"reservation_expires_at": expiresAt,
			"updated_at":             time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to reserve lock: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *mongoLockRepository) Release(ctx context.Context, lockID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(lockID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, lockID)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []string{model.LockBooked, model.LockReserved, model.LockRented}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     model.LockAvailable,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
		"$unset": bson.M{
			"reserved_to":            "",
			"reservation_expires_at": "",
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to release lock: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *mongoLockRepository) MarkRented(ctx context.Context, lockID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(lockID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, lockID)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": model.LockBooked,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     model.LockRented,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark lock rented: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *mongoLockRepository) FindLapsedReservations(ctx context.Context, now time.Time, limit int) ([]*model.Lock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":                 model.LockReserved,
		"reservation_expires_at": bson.M{"$lte": now},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "reservation_expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find lapsed reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var locks []*model.Lock
	if err = cursor.All(ctx, &locks); err != nil {
		return nil, fmt.Errorf("failed to decode lapsed reservations: %w", err)
	}

	return locks, nil
}

func (r *mongoLockRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
