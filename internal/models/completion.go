package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletionStatus is the review state of a task completion.
type CompletionStatus string

const (
	StatusUnderEvaluation CompletionStatus = "under_evaluation"
	StatusApproved        CompletionStatus = "approved"
	StatusRejected        CompletionStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s CompletionStatus) Valid() bool {
	switch s {
	case StatusUnderEvaluation, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further review transition is allowed out of s.
func (s CompletionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PaymentStatus tracks the reward for a completion.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentAllotted PaymentStatus = "allotted"
	PaymentPaid     PaymentStatus = "paid"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentAllotted, PaymentPaid:
		return true
	}
	return false
}

// TaskCompletion records one user's attempt at one catalog task. There is at
// most one per (UserID, TaskID).
type TaskCompletion struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID        string             `bson:"userId" json:"userId"`
	TaskID        string             `bson:"taskId" json:"taskId"`
	TaskTitle     string             `bson:"taskTitle" json:"taskTitle"`
	VideoFileName string             `bson:"videoFileName,omitempty" json:"videoFileName,omitempty"`
	VideoPath     string             `bson:"videoPath,omitempty" json:"videoPath,omitempty"`
	Status        CompletionStatus   `bson:"status" json:"status"`
	PaymentStatus PaymentStatus      `bson:"paymentStatus,omitempty" json:"paymentStatus,omitempty"`
	UploadedAt    time.Time          `bson:"uploadedAt" json:"uploadedAt"`
	EvaluatedAt   *time.Time         `bson:"evaluatedAt,omitempty" json:"evaluatedAt,omitempty"`
	Feedback      string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
