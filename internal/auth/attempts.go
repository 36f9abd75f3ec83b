package auth

import (
	"context"
	"strings"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/models"
	"payskill/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimestampLayout is the civil time format of attempt timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// AttemptZone is the fixed zone attempt timestamps are recorded in (IST).
var AttemptZone = time.FixedZone("IST", 5*60*60+30*60)

// Validation errors returned by Record.
var (
	ErrMissingAttemptFields = apperr.Validation(apperr.CodeMissingField, "Phone and referer are required")
	ErrInvalidAttemptResult = apperr.Validation(apperr.CodeInvalidInput, "Result must be one of pending, success, failed")
	ErrInvalidAttemptReason = apperr.Validation(apperr.CodeInvalidInput, "Reason must be one of invalid_referer, unauthorized_phone, network_error, invalid_phone")
)

// AttemptLog is the append-only audit trail of login submissions.
type AttemptLog struct {
	repo repository.AttemptRepository
	now  func() time.Time
}

// NewAttemptLog creates an attempt log over repo.
func NewAttemptLog(repo repository.AttemptRepository) *AttemptLog {
	return &AttemptLog{repo: repo, now: time.Now}
}

// FormatTimestamp renders t in the attempt log's zone and layout.
func FormatTimestamp(t time.Time) string {
	return t.In(AttemptZone).Format(TimestampLayout)
}

// Record validates and appends one attempt reported by a client. result
// defaults to pending and an empty reason is stored as null.
func (l *AttemptLog) Record(ctx context.Context, p, referer string, result models.AttemptResult, reason models.AttemptReason) (primitive.ObjectID, error) {
	p = strings.TrimSpace(p)
	referer = strings.TrimSpace(referer)
	if p == "" || referer == "" {
		return primitive.NilObjectID, ErrMissingAttemptFields
	}
	if result == "" {
		result = models.AttemptPending
	}
	if !result.Valid() {
		return primitive.NilObjectID, ErrInvalidAttemptResult
	}
	if reason != "" && !reason.Valid() {
		return primitive.NilObjectID, ErrInvalidAttemptReason
	}
	return l.append(ctx, p, referer, result, reason)
}

func (l *AttemptLog) append(ctx context.Context, p, referer string, result models.AttemptResult, reason models.AttemptReason) (primitive.ObjectID, error) {
	attempt := &models.LoginAttempt{
		Phone:     p,
		Referer:   referer,
		Result:    result,
		Timestamp: FormatTimestamp(l.now()),
	}
	if reason != "" {
		attempt.Reason = &reason
	}
	return l.repo.Insert(ctx, attempt)
}
