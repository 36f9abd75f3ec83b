package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection       = "users"
	AttemptsCollection    = "attempts"
	CompletionsCollection = "task_completions"
	QRPassesCollection    = "qr_passes"
)

// Store owns the MongoDB client for the life of the process. It is created
// once at startup and handed to the repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore wraps an already connected client.
func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

// Connect establishes a connection to MongoDB and verifies it with a ping.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetServerSelectionTimeout(5 * time.Second).
		SetSocketTimeout(45 * time.Second)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	store := NewStore(client, dbName)
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	slog.Info("Connected to MongoDB", "database", dbName)
	return store, nil
}

// Ping verifies the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctxPing, nil)
}

// Disconnect closes the underlying client.
func (s *Store) Disconnect(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Database returns the application database handle.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Users returns the users collection.
func (s *Store) Users() *mongo.Collection {
	return s.db.Collection(UsersCollection)
}

// Attempts returns the login attempts collection.
func (s *Store) Attempts() *mongo.Collection {
	return s.db.Collection(AttemptsCollection)
}

// Completions returns the task completions collection.
func (s *Store) Completions() *mongo.Collection {
	return s.db.Collection(CompletionsCollection)
}

// QRPasses returns the passed QR checks collection.
func (s *Store) QRPasses() *mongo.Collection {
	return s.db.Collection(QRPassesCollection)
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// indexes are what enforce one user per phone and one completion per
// (userId, taskId) under concurrent writers.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	if _, err := s.Attempts().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "phone", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create attempts indexes: %w", err)
	}

	if _, err := s.Completions().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "taskId", Value: 1}}},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "taskId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create task completion indexes: %w", err)
	}

	if _, err := s.QRPasses().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create QR pass indexes: %w", err)
	}
	return nil
}

// CollectionNames lists the collections in the application database.
func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.D{})
}
