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
	QueueCollectionName = "LockQueues"
)

type QueueRepository interface {
	// Join upserts the (lock, user) entry. Returns true when the entry
	// was newly inserted; a repeat join keeps the original JoinedAt.
	Join(ctx context.Context, lockID string, userID string) (bool, error)

	Leave(ctx context.Context, lockID string, userID string) error

	// FindHead returns the oldest entry for the lock, or nil when the
	// queue is empty.
	FindHead(ctx context.Context, lockID string) (*model.QueueEntry, error)

	FindByLock(ctx context.Context, lockID string) ([]*model.QueueEntry, error)
	FindByUser(ctx context.Context, userID string) ([]*model.QueueEntry, error)

	// Position returns the 1-based queue position for the user, or 0
	// when the user is not queued.
	Position(ctx context.Context, lockID string, userID string) (int, error)

	// Delete removes a specific (lock, user) entry. Only a successful
	// claim by that user or a lapsed reservation may call this.
	Delete(ctx context.Context, lockID string, userID string) error

	// PurgeByLock drops every entry for the lock. Used on payment
	// approval, when the rental horizon closes for all waiters.
	PurgeByLock(ctx context.Context, lockID string) (int64, error)

	MarkNotified(ctx context.Context, lockID string, userID string) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoQueueRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoQueueRepository(cfg *config.Config) QueueRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoQueueRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(QueueCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoQueueRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoQueueRepository) Join(ctx context.Context, lockID string, userID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"lock_id": lockID, "user_id": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"lock_id":   lockID,
			"user_id":   userID,
			"notified":  false,
			"joined_at": now,
		},
		"$set": bson.M{"updated_at": now},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// The unique (lock_id, user_id) index can race two upserts.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to join queue: %w", err)
	}
	return result.UpsertedCount > 0, nil
}

func (r *mongoQueueRepository) Leave(ctx context.Context, lockID string, userID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"lock_id": lockID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to leave queue: %w", err)
	}
	if result.DeletedCount == 0 {
		return rentalerrors.ErrQueueNotFound
	}
	return nil
}

func (r *mongoQueueRepository) FindHead(ctx context.Context, lockID string) (*model.QueueEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}})

	var entry model.QueueEntry
	err := r.collection.FindOne(ctx, bson.M{"lock_id": lockID}, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find queue head: %w", err)
	}
	return &entry, nil
}

func (r *mongoQueueRepository) FindByLock(ctx context.Context, lockID string) ([]*model.QueueEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"lock_id": lockID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find queue entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.QueueEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode queue entries: %w", err)
	}
	return entries, nil
}

func (r *mongoQueueRepository) FindByUser(ctx context.Context, userID string) ([]*model.QueueEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find queue entries for user: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.QueueEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode queue entries: %w", err)
	}
	return entries, nil
}

func (r *mongoQueueRepository) Position(ctx context.Context, lockID string, userID string) (int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var entry model.QueueEntry
	err := r.collection.FindOne(ctx, bson.M{"lock_id": lockID, "user_id": userID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to find queue entry: %w", err)
	}

	objectID, err := primitive.ObjectIDFromHex(entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", rentalerrors.ErrInvalidID, entry.ID)
	}

	// Same tie-break as FindHead: joined_at first, then _id.
	ahead, err := r.collection.CountDocuments(ctx, bson.M{
		"lock_id": lockID,
		"$or": []bson.M{
			{"joined_at": bson.M{"$lt": entry.JoinedAt}},
			{"joined_at": entry.JoinedAt, "_id": bson.M{"$lt": objectID}},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count queue entries ahead: %w", err)
	}
	return int(ahead) + 1, nil
}

func (r *mongoQueueRepository) Delete(ctx context.Context, lockID string, userID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"lock_id": lockID, "user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return nil
}

func (r *mongoQueueRepository) PurgeByLock(ctx context.Context, lockID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"lock_id": lockID})
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoQueueRepository) MarkNotified(ctx context.Context, lockID string, userID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"notified":   true,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"lock_id": lockID, "user_id": userID}, update); err != nil {
		return fmt.Errorf("failed to mark queue entry notified: %w", err)
	}
	return nil
}

func (r *mongoQueueRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
