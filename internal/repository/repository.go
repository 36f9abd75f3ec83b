package repository

import (
	"context"
	"errors"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// opTimeout bounds every single storage call.
const opTimeout = 5 * time.Second

var (
	// ErrDuplicateKey is returned when an insert violates a unique index.
	ErrDuplicateKey = errors.New("repository: duplicate key")
	// ErrNotFound is returned when a lookup by id matches nothing.
	ErrNotFound = errors.New("repository: document not found")
	// ErrUserNotFound is returned when a login is appended to a phone with no user.
	ErrUserNotFound = apperr.New(apperr.KindNotFound, apperr.CodeNotFound, "user not found")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// FindOrCreateAndAddLoginTime creates the user on first login and
	// appends the current time to its login history.
	FindOrCreateAndAddLoginTime(ctx context.Context, phone string) (*models.User, error)

	// AddLoginTime appends a login to an existing user.
	AddLoginTime(ctx context.Context, phone string) (*models.User, error)

	// FindByPhone returns the user or ErrUserNotFound.
	FindByPhone(ctx context.Context, phone string) (*models.User, error)

	// Count returns the number of users.
	Count(ctx context.Context) (int64, error)

	// Sample returns up to limit users, newest first.
	Sample(ctx context.Context, limit int64) ([]models.User, error)
}

// AttemptRepository defines the interface for the login attempt log
type AttemptRepository interface {
	// Insert appends an attempt and returns its id.
	Insert(ctx context.Context, attempt *models.LoginAttempt) (primitive.ObjectID, error)
}

// CompletionRepository defines the interface for task completion data access
type CompletionRepository interface {
	// Insert stores a new completion and sets its ID. It returns
	// ErrDuplicateKey when one already exists for (UserID, TaskID).
	Insert(ctx context.Context, completion *models.TaskCompletion) error

	// FindByUser lists a user's completions, newest first.
	FindByUser(ctx context.Context, userID string) ([]models.TaskCompletion, error)

	// FindOne returns the completion for (userID, taskID) or nil.
	FindOne(ctx context.Context, userID, taskID string) (*models.TaskCompletion, error)

	// FindByID returns the completion or ErrNotFound.
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.TaskCompletion, error)

	// Evaluate moves a completion that is still under evaluation to status,
	// in one conditional update. It returns ErrNotFound when no completion
	// with that id is under evaluation.
	Evaluate(ctx context.Context, id primitive.ObjectID, status models.CompletionStatus, feedback string, at time.Time) (*models.TaskCompletion, error)
}

// QRPassRepository defines the interface for passed task-2 QR checks
type QRPassRepository interface {
	// Record marks userID as having passed. Repeats are no-ops.
	Record(ctx context.Context, userID string, at time.Time) error

	// Passed reports whether userID has passed.
	Passed(ctx context.Context, userID string) (bool, error)
}

var (
	_ UserRepository       = (*MongoUserRepository)(nil)
	_ AttemptRepository    = (*MongoAttemptRepository)(nil)
	_ CompletionRepository = (*MongoCompletionRepository)(nil)
	_ QRPassRepository     = (*MongoQRPassRepository)(nil)
)
