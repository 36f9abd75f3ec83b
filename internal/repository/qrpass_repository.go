package repository

import (
	"context"
	"time"

	"payskill/internal/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoQRPassRepository stores passed task-2 QR checks, one per user.
type MongoQRPassRepository struct {
	col *mongo.Collection
}

// NewQRPassRepository creates a new QRPassRepository
func NewQRPassRepository(col *mongo.Collection) *MongoQRPassRepository {
	return &MongoQRPassRepository{col: col}
}

// Record upserts the pass; an existing pass keeps its original time.
func (r *MongoQRPassRepository) Record(ctx context.Context, userID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$setOnInsert": bson.M{"userId": userID, "passedAt": at}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return apperr.Storage("error recording QR pass", err)
	}
	return nil
}

// Passed reports whether userID has a recorded pass.
func (r *MongoQRPassRepository) Passed(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"userId": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.Storage("error checking QR pass", err)
	}
	return n > 0, nil
}
