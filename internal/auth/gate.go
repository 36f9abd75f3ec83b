// Package auth implements the phone and referral code login gate and the
// login attempt log.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"payskill/internal/apperr"
	"payskill/internal/config"
	"payskill/internal/models"
	"payskill/internal/phone"
	"payskill/internal/repository"
)

// Outcome is the caller-facing result of an authentication.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	// OutcomePending is reported instead of OutcomeFailed for allow-list and
	// referral failures when the gate is configured to stall.
	OutcomePending Outcome = "pending"
)

// Errors returned by Authenticate. Allow-list and referral failures are
// authorization errors; the rest are validation errors.
var (
	ErrInvalidPhone    = phone.ErrInvalid
	ErrMissingReferral = apperr.Validation(apperr.CodeMissingField, "Referral code is required")
	ErrUnauthorized    = apperr.New(apperr.KindAuthorization, apperr.CodeUnauthorized, "This phone number is not authorized")
	ErrInvalidReferral = apperr.New(apperr.KindAuthorization, apperr.CodeUnauthorized, "Invalid referral code")
)

// Result describes one authentication. User is set on success; Reason is
// set on every other outcome.
type Result struct {
	Outcome Outcome
	User    *models.User
	Reason  models.AttemptReason
}

// Gate validates a phone number and referral code, records the login and
// appends exactly one attempt to the attempt log per call.
type Gate struct {
	users    repository.UserRepository
	attempts *AttemptLog
	rules    config.AuthRules
	allowed  map[string]struct{}
	logger   *slog.Logger
}

// NewGate creates a gate enforcing rules.
func NewGate(users repository.UserRepository, attempts *AttemptLog, rules config.AuthRules, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(rules.AllowList))
	for _, p := range rules.AllowList {
		allowed[strings.TrimSpace(p)] = struct{}{}
	}
	return &Gate{
		users:    users,
		attempts: attempts,
		rules:    rules,
		allowed:  allowed,
		logger:   logger,
	}
}

// Authenticate runs the login rules in order: phone format, allow-list,
// referral code, then the user upsert.
//
// A pending Result is returned with a nil error. Failed results are returned
// together with the matching sentinel error.
func (g *Gate) Authenticate(ctx context.Context, rawPhone, referralCode string) (Result, error) {
	referralCode = strings.TrimSpace(referralCode)

	p, err := phone.Normalize(rawPhone)
	if err != nil {
		g.record(ctx, strings.TrimSpace(rawPhone), referralCode, models.AttemptFailed, models.ReasonInvalidPhone)
		return Result{Outcome: OutcomeFailed, Reason: models.ReasonInvalidPhone}, ErrInvalidPhone
	}

	if !g.Allowed(p) {
		return g.reject(ctx, p, referralCode, models.ReasonUnauthorizedPhone, ErrUnauthorized)
	}

	if referralCode == "" {
		g.record(ctx, p, referralCode, models.AttemptFailed, models.ReasonInvalidReferer)
		return Result{Outcome: OutcomeFailed, Reason: models.ReasonInvalidReferer}, ErrMissingReferral
	}
	if !strings.EqualFold(referralCode, g.expectedCode(p)) {
		return g.reject(ctx, p, referralCode, models.ReasonInvalidReferer, ErrInvalidReferral)
	}

	user, err := g.users.FindOrCreateAndAddLoginTime(ctx, p)
	if err != nil {
		g.logger.Error("failed to record login", "phone", p, "error", err)
		g.record(ctx, p, referralCode, models.AttemptFailed, models.ReasonNetworkError)
		return Result{Outcome: OutcomeFailed, Reason: models.ReasonNetworkError}, err
	}

	g.record(ctx, p, referralCode, models.AttemptSuccess, "")
	g.logger.Info("user logged in", "phone", p, "login_count", user.LoginCount())
	return Result{Outcome: OutcomeSuccess, User: user}, nil
}

// Allowed reports whether a normalized phone is on the allow-list.
func (g *Gate) Allowed(p string) bool {
	_, ok := g.allowed[p]
	return ok
}

func (g *Gate) expectedCode(p string) string {
	if p == g.rules.DesignatedPhone {
		return strings.TrimSpace(g.rules.DesignatedCode)
	}
	return strings.TrimSpace(g.rules.CommonCode)
}

func (g *Gate) reject(ctx context.Context, p, code string, reason models.AttemptReason, err error) (Result, error) {
	if g.rules.FailureMode == config.FailureModePending {
		g.record(ctx, p, code, models.AttemptPending, reason)
		return Result{Outcome: OutcomePending, Reason: reason}, nil
	}
	g.record(ctx, p, code, models.AttemptFailed, reason)
	return Result{Outcome: OutcomeFailed, Reason: reason}, err
}

// record appends the attempt. A failed insert is logged and never changes
// the authentication outcome.
func (g *Gate) record(ctx context.Context, p, code string, result models.AttemptResult, reason models.AttemptReason) {
	if _, err := g.attempts.append(ctx, p, code, result, reason); err != nil {
		g.logger.Warn("failed to log login attempt",
			"phone", p,
			"result", result,
			"error", err)
	}
}
