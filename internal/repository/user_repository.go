package repository

import (
	"context"
	"errors"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/models"
	"payskill/internal/phone"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository is a MongoDB implementation of UserRepository
type MongoUserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col, now: time.Now}
}

// FindOrCreateAndAddLoginTime upserts the user keyed by phone and pushes the
// current time onto loginTimes in a single atomic update. When two first
// logins race, the loser hits the unique phone index and is retried as a
// plain append.
func (r *MongoUserRepository) FindOrCreateAndAddLoginTime(ctx context.Context, p string) (*models.User, error) {
	if !phone.Valid(p) {
		return nil, phone.ErrInvalid
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now().UTC()
	update := bson.M{
		"$push":        bson.M{"loginTimes": now},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"phone": p}, update, opts).Decode(&user)
	if mongo.IsDuplicateKeyError(err) {
		return r.AddLoginTime(ctx, p)
	}
	if err != nil {
		return nil, apperr.Storage("error upserting user", err)
	}
	return &user, nil
}

// AddLoginTime appends the current time to an existing user's history.
func (r *MongoUserRepository) AddLoginTime(ctx context.Context, p string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now().UTC()
	update := bson.M{
		"$push": bson.M{"loginTimes": now},
		"$set":  bson.M{"updatedAt": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"phone": p}, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Storage("error appending login time", err)
	}
	return &user, nil
}

// FindByPhone returns the user for a normalized phone.
func (r *MongoUserRepository) FindByPhone(ctx context.Context, p string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	err := r.col.FindOne(ctx, bson.M{"phone": p}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Storage("error retrieving user", err)
	}
	return &user, nil
}

// Count returns the number of users.
func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, apperr.Storage("error counting users", err)
	}
	return n, nil
}

// Sample returns up to limit users, newest first.
func (r *MongoUserRepository) Sample(ctx context.Context, limit int64) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, apperr.Storage("error listing users", err)
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperr.Storage("error decoding users", err)
	}
	return users, nil
}
