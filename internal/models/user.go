package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an authenticated phone number and its login history.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone      string             `bson:"phone" json:"phone"`
	LoginTimes []time.Time        `bson:"loginTimes" json:"loginTimes"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// LoginCount returns the number of recorded logins.
func (u *User) LoginCount() int {
	return len(u.LoginTimes)
}

// LastLogin returns the most recent login time, or the zero time when the
// history is empty.
func (u *User) LastLogin() time.Time {
	if len(u.LoginTimes) == 0 {
		return time.Time{}
	}
	return u.LoginTimes[len(u.LoginTimes)-1]
}
