package repository

import (
	"context"

	"payskill/internal/apperr"
	"payskill/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoAttemptRepository appends login attempts to the attempts collection.
type MongoAttemptRepository struct {
	col *mongo.Collection
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(col *mongo.Collection) *MongoAttemptRepository {
	return &MongoAttemptRepository{col: col}
}

// Insert appends attempt. Attempts are never updated or deleted.
func (r *MongoAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if attempt.ID.IsZero() {
		attempt.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, attempt); err != nil {
		return primitive.NilObjectID, apperr.Storage("error inserting login attempt", err)
	}
	return attempt.ID, nil
}
