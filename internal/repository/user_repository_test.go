package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/phone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func userDoc(id primitive.ObjectID, p string, logins ...time.Time) bson.D {
	times := bson.A{}
	for _, l := range logins {
		times = append(times, l)
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "phone", Value: p},
		{Key: "loginTimes", Value: times},
		{Key: "createdAt", Value: logins[0]},
		{Key: "updatedAt", Value: logins[len(logins)-1]},
	}
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	first := time.Date(2025, 9, 11, 5, 13, 59, 0, time.UTC)
	second := first.Add(time.Hour)

	mt.Run("first login creates user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: userDoc(id, "9842470497", first)},
		))

		user, err := repo.FindOrCreateAndAddLoginTime(context.Background(), "9842470497")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "9842470497", user.Phone)
		assert.Equal(t, 1, user.LoginCount())
		assert.True(t, first.Equal(user.LastLogin()))
	})

	mt.Run("repeat login keeps history order", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: userDoc(primitive.NewObjectID(), "9842470497", first, second)},
		))

		user, err := repo.FindOrCreateAndAddLoginTime(context.Background(), "9842470497")
		require.NoError(t, err)
		require.Len(t, user.LoginTimes, 2)
		assert.True(t, first.Equal(user.LoginTimes[0]))
		assert.True(t, second.Equal(user.LoginTimes[1]))
	})

	mt.Run("concurrent first login retries as update", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11000,
				Message: "E11000 duplicate key error collection: payskill.users index: phone_1",
				Name:    "DuplicateKey",
			}),
			mtest.CreateSuccessResponse(
				bson.E{Key: "value", Value: userDoc(primitive.NewObjectID(), "9842470497", first, second)},
			),
		)

		user, err := repo.FindOrCreateAndAddLoginTime(context.Background(), "9842470497")
		require.NoError(t, err)
		assert.Equal(t, 2, user.LoginCount())
	})

	mt.Run("rejects malformed phone without a round trip", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		_, err := repo.FindOrCreateAndAddLoginTime(context.Background(), "98424")
		assert.True(t, errors.Is(err, phone.ErrInvalid))
	})

	mt.Run("storage failure is classified", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    8000,
			Message: "atlas error",
			Name:    "AtlasError",
		}))

		_, err := repo.FindOrCreateAndAddLoginTime(context.Background(), "9842470497")
		require.Error(t, err)
		assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	})

	mt.Run("append without user is not found", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.AddLoginTime(context.Background(), "9998887776")
		assert.True(t, errors.Is(err, ErrUserNotFound))
	})

	mt.Run("find by phone", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			userDoc(primitive.NewObjectID(), "1234567890", first),
		))

		user, err := repo.FindByPhone(context.Background(), "1234567890")
		require.NoError(t, err)
		assert.Equal(t, "1234567890", user.Phone)
	})

	mt.Run("find by phone missing", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.FindByPhone(context.Background(), "1234567890")
		assert.True(t, errors.Is(err, ErrUserNotFound))
	})

	mt.Run("sample", func(mt *mtest.T) {
		repo := NewUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			userDoc(primitive.NewObjectID(), "9998887776", second),
			userDoc(primitive.NewObjectID(), "1234567890", first),
		))

		users, err := repo.Sample(context.Background(), 3)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "9998887776", users[0].Phone)
	})
}
