package repository

import (
	"context"
	"errors"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCompletionRepository is a MongoDB implementation of CompletionRepository
type MongoCompletionRepository struct {
	col *mongo.Collection
}

// NewCompletionRepository creates a new CompletionRepository
func NewCompletionRepository(col *mongo.Collection) *MongoCompletionRepository {
	return &MongoCompletionRepository{col: col}
}

// Insert relies on the unique (userId, taskId) index; there is no read
// before the write.
func (r *MongoCompletionRepository) Insert(ctx context.Context, c *models.TaskCompletion) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return apperr.Storage("error inserting task completion", err)
	}
	return nil
}

// FindByUser lists userID's completions sorted by createdAt, newest first.
func (r *MongoCompletionRepository) FindByUser(ctx context.Context, userID string) ([]models.TaskCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, apperr.Storage("error listing task completions", err)
	}
	completions := []models.TaskCompletion{}
	if err := cursor.All(ctx, &completions); err != nil {
		return nil, apperr.Storage("error decoding task completions", err)
	}
	return completions, nil
}

// FindOne returns the completion for (userID, taskID), or nil when none exists.
func (r *MongoCompletionRepository) FindOne(ctx context.Context, userID, taskID string) (*models.TaskCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c models.TaskCompletion
	err := r.col.FindOne(ctx, bson.M{"userId": userID, "taskId": taskID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperr.Storage("error retrieving task completion", err)
	}
	return &c, nil
}

// FindByID returns the completion with id or ErrNotFound.
func (r *MongoCompletionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.TaskCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c models.TaskCompletion
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, apperr.Storage("error retrieving task completion", err)
	}
	return &c, nil
}

// Evaluate filters on status so that approved and rejected records are
// never rewritten, even by concurrent evaluators.
func (r *MongoCompletionRepository) Evaluate(ctx context.Context, id primitive.ObjectID, status models.CompletionStatus, feedback string, at time.Time) (*models.TaskCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	at = at.UTC()
	filter := bson.M{"_id": id, "status": models.StatusUnderEvaluation}
	update := bson.M{
		"$set": bson.M{
			"status":      status,
			"feedback":    feedback,
			"evaluatedAt": at,
			"updatedAt":   at,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var c models.TaskCompletion
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, apperr.Storage("error updating task completion", err)
	}
	return &c, nil
}
