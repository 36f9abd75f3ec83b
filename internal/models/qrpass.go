package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QRPass records that a user verified the task-2 link. Only the first pass
// per user is kept.
type QRPass struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID   string             `bson:"userId" json:"userId"`
	PassedAt time.Time          `bson:"passedAt" json:"passedAt"`
}
