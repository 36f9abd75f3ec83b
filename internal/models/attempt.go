package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttemptResult is the outcome recorded for a login attempt.
type AttemptResult string

const (
	AttemptPending AttemptResult = "pending"
	AttemptSuccess AttemptResult = "success"
	AttemptFailed  AttemptResult = "failed"
)

// Valid reports whether r is a known result.
func (r AttemptResult) Valid() bool {
	switch r {
	case AttemptPending, AttemptSuccess, AttemptFailed:
		return true
	}
	return false
}

// AttemptReason explains a non-successful attempt.
type AttemptReason string

const (
	ReasonInvalidReferer    AttemptReason = "invalid_referer"
	ReasonUnauthorizedPhone AttemptReason = "unauthorized_phone"
	ReasonNetworkError      AttemptReason = "network_error"
	ReasonInvalidPhone      AttemptReason = "invalid_phone"
)

// Valid reports whether r is a known reason.
func (r AttemptReason) Valid() bool {
	switch r {
	case ReasonInvalidReferer, ReasonUnauthorizedPhone, ReasonNetworkError, ReasonInvalidPhone:
		return true
	}
	return false
}

// LoginAttempt is an immutable audit record of one login submission.
// Timestamp is a civil time string in the attempt log's fixed timezone.
type LoginAttempt struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone     string             `bson:"phone" json:"phone"`
	Referer   string             `bson:"referer" json:"referer"`
	Result    AttemptResult      `bson:"result" json:"result"`
	Reason    *AttemptReason     `bson:"reason" json:"reason"`
	Timestamp string             `bson:"timestamp" json:"timestamp"`
}
