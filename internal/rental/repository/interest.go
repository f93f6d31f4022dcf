package repository

import (
	"context"
	"fmt"
	"time"

	"talad/pkg/config"
	"talad/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	InterestCollectionName = "InterestList"
)

type InterestRepository interface {
	// Register upserts the (user, zone) interest. A zone of "" means
	// the whole market.
	Register(ctx context.Context, userID string, zoneID string) error
	Remove(ctx context.Context, userID string, zoneID string) error

	// FindByZone returns everyone interested in the zone plus the
	// market-wide registrations.
	FindByZone(ctx context.Context, zoneID string) ([]*model.InterestEntry, error)
	FindByUser(ctx context.Context, userID string) ([]*model.InterestEntry, error)
}

type mongoInterestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoInterestRepository(cfg *config.Config) InterestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoInterestRepository{
		cfg:        cfg,
		collection: db.Collection(InterestCollectionName),
	}
}

func (r *mongoInterestRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoInterestRepository) Register(ctx context.Context, userID string, zoneID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID, "zone_id": zoneID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"zone_id":    zoneID,
			"created_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to register interest: %w", err)
	}
	return nil
}

func (r *mongoInterestRepository) Remove(ctx context.Context, userID string, zoneID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID, "zone_id": zoneID}); err != nil {
		return fmt.Errorf("failed to remove interest: %w", err)
	}
	return nil
}

func (r *mongoInterestRepository) FindByZone(ctx context.Context, zoneID string) ([]*model.InterestEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"zone_id": bson.M{"$in": []string{zoneID, ""}}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find interest entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.InterestEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode interest entries: %w", err)
	}
	return entries, nil
}

func (r *mongoInterestRepository) FindByUser(ctx context.Context, userID string) ([]*model.InterestEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find interest entries for user: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.InterestEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode interest entries: %w", err)
	}
	return entries, nil
}
