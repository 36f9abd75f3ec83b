// Package repotest provides in-memory repositories for service and handler
// tests. They honour the same unique keys and conditional updates as the
// MongoDB implementations.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"payskill/internal/models"
	"payskill/internal/phone"
	"payskill/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock returns strictly increasing times starting at base, one second apart.
func Clock(base time.Time) func() time.Time {
	var mu sync.Mutex
	next := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

// Users is an in-memory UserRepository keyed by phone.
type Users struct {
	mu      sync.Mutex
	byPhone map[string]*models.User
	Now     func() time.Time
	// Err, when set, is returned by every call.
	Err error
}

// NewUsers creates an empty user directory.
func NewUsers() *Users {
	return &Users{
		byPhone: make(map[string]*models.User),
		Now:     Clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func (u *Users) FindOrCreateAndAddLoginTime(_ context.Context, p string) (*models.User, error) {
	if !phone.Valid(p) {
		return nil, phone.ErrInvalid
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	now := u.Now()
	user, ok := u.byPhone[p]
	if !ok {
		user = &models.User{ID: primitive.NewObjectID(), Phone: p, CreatedAt: now}
		u.byPhone[p] = user
	}
	user.LoginTimes = append(user.LoginTimes, now)
	user.UpdatedAt = now
	return clone(user), nil
}

func (u *Users) AddLoginTime(_ context.Context, p string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	user, ok := u.byPhone[p]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	now := u.Now()
	user.LoginTimes = append(user.LoginTimes, now)
	user.UpdatedAt = now
	return clone(user), nil
}

func (u *Users) FindByPhone(_ context.Context, p string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	user, ok := u.byPhone[p]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return clone(user), nil
}

func (u *Users) Count(context.Context) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return 0, u.Err
	}
	return int64(len(u.byPhone)), nil
}

func (u *Users) Sample(_ context.Context, limit int64) ([]models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	out := make([]models.User, 0, len(u.byPhone))
	for _, user := range u.byPhone {
		out = append(out, *clone(user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(u *models.User) *models.User {
	c := *u
	c.LoginTimes = append([]time.Time(nil), u.LoginTimes...)
	return &c
}

// Attempts is an append-only in-memory AttemptRepository.
type Attempts struct {
	mu    sync.Mutex
	items []models.LoginAttempt
	// Err, when set, is returned by Insert.
	Err error
}

// NewAttempts creates an empty attempt log.
func NewAttempts() *Attempts {
	return &Attempts{}
}

func (a *Attempts) Insert(_ context.Context, attempt *models.LoginAttempt) (primitive.ObjectID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return primitive.NilObjectID, a.Err
	}
	if attempt.ID.IsZero() {
		attempt.ID = primitive.NewObjectID()
	}
	a.items = append(a.items, *attempt)
	return attempt.ID, nil
}

// All returns the recorded attempts in insertion order.
func (a *Attempts) All() []models.LoginAttempt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.LoginAttempt(nil), a.items...)
}

// Completions is an in-memory CompletionRepository with a unique
// (UserID, TaskID) key.
type Completions struct {
	mu    sync.Mutex
	items []*models.TaskCompletion
	// Err, when set, is returned by every call.
	Err error
}

// NewCompletions creates an empty ledger store.
func NewCompletions() *Completions {
	return &Completions{}
}

func (c *Completions) Insert(_ context.Context, completion *models.TaskCompletion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	for _, existing := range c.items {
		if existing.UserID == completion.UserID && existing.TaskID == completion.TaskID {
			return repository.ErrDuplicateKey
		}
	}
	completion.ID = primitive.NewObjectID()
	stored := *completion
	c.items = append(c.items, &stored)
	return nil
}

func (c *Completions) FindByUser(_ context.Context, userID string) ([]models.TaskCompletion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := []models.TaskCompletion{}
	for i := len(c.items) - 1; i >= 0; i-- {
		if c.items[i].UserID == userID {
			out = append(out, *c.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *Completions) FindOne(_ context.Context, userID, taskID string) (*models.TaskCompletion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, existing := range c.items {
		if existing.UserID == userID && existing.TaskID == taskID {
			found := *existing
			return &found, nil
		}
	}
	return nil, nil
}

func (c *Completions) FindByID(_ context.Context, id primitive.ObjectID) (*models.TaskCompletion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, existing := range c.items {
		if existing.ID == id {
			found := *existing
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *Completions) Evaluate(_ context.Context, id primitive.ObjectID, status models.CompletionStatus, feedback string, at time.Time) (*models.TaskCompletion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, existing := range c.items {
		if existing.ID == id && existing.Status == models.StatusUnderEvaluation {
			existing.Status = status
			existing.Feedback = feedback
			evaluated := at
			existing.EvaluatedAt = &evaluated
			existing.UpdatedAt = at
			found := *existing
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// QRPasses is an in-memory QRPassRepository.
type QRPasses struct {
	mu     sync.Mutex
	passed map[string]time.Time
	Err    error
}

// NewQRPasses creates an empty pass store.
func NewQRPasses() *QRPasses {
	return &QRPasses{passed: make(map[string]time.Time)}
}

func (q *QRPasses) Record(_ context.Context, userID string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	if _, ok := q.passed[userID]; !ok {
		q.passed[userID] = at
	}
	return nil
}

func (q *QRPasses) Passed(_ context.Context, userID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return false, q.Err
	}
	_, ok := q.passed[userID]
	return ok, nil
}

// PassedAt returns the recorded time of userID's pass.
func (q *QRPasses) PassedAt(userID string) (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	at, ok := q.passed[userID]
	return at, ok
}

var (
	_ repository.UserRepository       = (*Users)(nil)
	_ repository.AttemptRepository    = (*Attempts)(nil)
	_ repository.CompletionRepository = (*Completions)(nil)
	_ repository.QRPassRepository     = (*QRPasses)(nil)
)
