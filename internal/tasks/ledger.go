package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/models"
	"payskill/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors returned by the ledger.
var (
	ErrMissingFields        = apperr.Validation(apperr.CodeMissingField, "User ID, task ID, and task title are required")
	ErrMissingUserID        = apperr.Validation(apperr.CodeMissingField, "User ID is required")
	ErrInvalidStatus        = apperr.Validation(apperr.CodeInvalidInput, "Status must be one of under_evaluation, approved, rejected")
	ErrInvalidPaymentStatus = apperr.Validation(apperr.CodeInvalidInput, "Payment status must be one of pending, allotted, paid")
	ErrInvalidEvaluation    = apperr.Validation(apperr.CodeInvalidInput, "Evaluation status must be approved or rejected")
	ErrInvalidCompletionID  = apperr.Validation(apperr.CodeInvalidInput, "Invalid task completion ID")
	ErrCompletionExists     = apperr.New(apperr.KindConflict, apperr.CodeConflict, "Task already completed by this user")
	ErrCompletionNotFound   = apperr.New(apperr.KindNotFound, apperr.CodeNotFound, "Task completion not found")
	ErrTerminalState        = apperr.New(apperr.KindConflict, apperr.CodeInvalidState, "Task completion has already been evaluated")
)

// CreateInput carries the fields a client may set when registering a
// completion. Empty optional fields are left unset.
type CreateInput struct {
	UserID        string
	TaskID        string
	TaskTitle     string
	VideoFileName string
	VideoPath     string
	Status        models.CompletionStatus
	PaymentStatus models.PaymentStatus
}

// Ledger owns task completions: at most one per (user, task), created under
// evaluation and moved once to approved or rejected.
type Ledger struct {
	repo        repository.CompletionRepository
	catalog     *Catalog
	firstTaskID string
	passes      repository.QRPassRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewLedger creates a ledger. firstTaskID names the task that is granted
// approved on arrival at the task list.
func NewLedger(repo repository.CompletionRepository, catalog *Catalog, firstTaskID string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		repo:        repo,
		catalog:     catalog,
		firstTaskID: firstTaskID,
		logger:      logger,
		now:         time.Now,
	}
}

// WithQRPasses sets where passed task-2 QR checks are kept. Without it,
// RecordQRPass is a no-op and Progress opens the second task only once it
// has a completion.
func (l *Ledger) WithQRPasses(passes repository.QRPassRepository) *Ledger {
	l.passes = passes
	return l
}

// RecordQRPass marks the task-2 QR check as passed for userID.
func (l *Ledger) RecordQRPass(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrMissingUserID
	}
	if l.passes == nil {
		return nil
	}
	if err := l.passes.Record(ctx, userID, l.now().UTC()); err != nil {
		return err
	}
	l.logger.Info("QR check passed", "user_id", userID)
	return nil
}

// Catalog returns the task catalog the ledger orders against.
func (l *Ledger) Catalog() *Catalog {
	return l.catalog
}

// FirstTaskID returns the id of the auto-approved task.
func (l *Ledger) FirstTaskID() string {
	return l.firstTaskID
}

// GetByUser lists a user's completions, newest first.
func (l *Ledger) GetByUser(ctx context.Context, userID string) ([]models.TaskCompletion, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return l.repo.FindByUser(ctx, userID)
}

// GetOne returns the completion for (userID, taskID), or nil.
func (l *Ledger) GetOne(ctx context.Context, userID, taskID string) (*models.TaskCompletion, error) {
	return l.repo.FindOne(ctx, userID, taskID)
}

// Create registers a completion. Without an explicit status the first task
// is approved with payment allotted and every other task starts under
// evaluation. A second completion for the same (user, task) fails with
// ErrCompletionExists, however many times it is attempted.
func (l *Ledger) Create(ctx context.Context, in CreateInput) (*models.TaskCompletion, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.TaskID = strings.TrimSpace(in.TaskID)
	in.TaskTitle = strings.TrimSpace(in.TaskTitle)
	if in.UserID == "" || in.TaskID == "" || in.TaskTitle == "" {
		return nil, ErrMissingFields
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.PaymentStatus != "" && !in.PaymentStatus.Valid() {
		return nil, ErrInvalidPaymentStatus
	}
	if in.Status == "" {
		in.Status = models.StatusUnderEvaluation
		if in.TaskID == l.firstTaskID {
			in.Status = models.StatusApproved
			if in.PaymentStatus == "" {
				in.PaymentStatus = models.PaymentAllotted
			}
		}
	}

	now := l.now().UTC()
	c := &models.TaskCompletion{
		UserID:        in.UserID,
		TaskID:        in.TaskID,
		TaskTitle:     in.TaskTitle,
		VideoFileName: in.VideoFileName,
		VideoPath:     in.VideoPath,
		Status:        in.Status,
		PaymentStatus: in.PaymentStatus,
		UploadedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.repo.Insert(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCompletionExists
		}
		return nil, err
	}
	l.logger.Info("task completion created",
		"user_id", c.UserID,
		"task_id", c.TaskID,
		"status", c.Status)
	return c, nil
}

// GrantFirstTask records the first task as approved for userID. It is
// idempotent: when the grant already exists it is returned with created
// set to false.
func (l *Ledger) GrantFirstTask(ctx context.Context, userID string) (c *models.TaskCompletion, created bool, err error) {
	task, ok := l.catalog.Get(l.firstTaskID)
	if !ok {
		return nil, false, apperr.New(apperr.KindInternal, apperr.CodeInternalError, "first task "+l.firstTaskID+" is not in the catalog")
	}
	c, err = l.Create(ctx, CreateInput{
		UserID:        userID,
		TaskID:        task.ID,
		TaskTitle:     task.Title,
		Status:        models.StatusApproved,
		PaymentStatus: models.PaymentAllotted,
	})
	if errors.Is(err, ErrCompletionExists) {
		existing, err := l.repo.FindOne(ctx, strings.TrimSpace(userID), task.ID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, ErrCompletionNotFound
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// UpdateStatus applies an evaluator decision. Only completions still under
// evaluation can move; approved and rejected are terminal and a second
// decision fails with ErrTerminalState.
func (l *Ledger) UpdateStatus(ctx context.Context, completionID string, status models.CompletionStatus, feedback string) (*models.TaskCompletion, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(completionID))
	if err != nil {
		return nil, ErrInvalidCompletionID
	}
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, ErrInvalidEvaluation
	}

	c, err := l.repo.Evaluate(ctx, id, status, feedback, l.now())
	if err == nil {
		l.logger.Info("task completion evaluated",
			"completion_id", completionID,
			"user_id", c.UserID,
			"task_id", c.TaskID,
			"status", c.Status)
		return c, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	existing, err := l.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCompletionNotFound
	}
	if err != nil {
		return nil, err
	}
	if existing.Status.Terminal() {
		return nil, ErrTerminalState
	}
	return nil, apperr.Storage("evaluation was not applied", errors.New("completion changed concurrently"))
}
