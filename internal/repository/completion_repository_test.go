package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"payskill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func completionDoc(id primitive.ObjectID, userID, taskID string, status models.CompletionStatus, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "userId", Value: userID},
		{Key: "taskId", Value: taskID},
		{Key: "taskTitle", Value: "Write Basic Code"},
		{Key: "videoFileName", Value: userID + "_" + taskID + "_1757567639000.mp4"},
		{Key: "videoPath", Value: "/uploads/videos/" + userID + "_" + taskID + "_1757567639000.mp4"},
		{Key: "status", Value: string(status)},
		{Key: "uploadedAt", Value: created},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: created},
	}
}

func TestCompletionRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	created := time.Date(2025, 9, 11, 5, 13, 59, 0, time.UTC)

	mt.Run("insert assigns id", func(mt *mtest.T) {
		repo := NewCompletionRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		c := &models.TaskCompletion{
			UserID:    "9842470497",
			TaskID:    "basic-coding",
			TaskTitle: "Write Basic Code",
			Status:    models.StatusUnderEvaluation,
			CreatedAt: created,
		}
		require.NoError(t, repo.Insert(context.Background(), c))
		assert.False(t, c.ID.IsZero())
	})

	mt.Run("insert duplicate maps to ErrDuplicateKey every time", func(mt *mtest.T) {
		repo := NewCompletionRepository(mt.Coll)
		dup := mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: payskill.task_completions index: userId_1_taskId_1",
		})
		mt.AddMockResponses(dup, dup, dup)

		for i := 0; i < 3; i++ {
			err := repo.Insert(context.Background(), &models.TaskCompletion{UserID: "9842470497", TaskID: "basic-coding"})
			assert.True(t, errors.Is(err, ErrDuplicateKey), "attempt %d", i)
		}
	})

	mt.Run("find by user", func(mt *mtest.T) {
		repo := NewCompletionRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			completionDoc(primitive.NewObjectID(), "9842470497", "basic-coding", models.StatusUnderEvaluation, created.Add(time.Hour)),
			completionDoc(primitive.NewObjectID(), "9842470497", "cooking-basic-meal", models.StatusApproved, created),
		))

		got, err := repo.FindByUser(context.Background(), "9842470497")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "basic-coding", got[0].TaskID)
		assert.Equal(t, models.StatusApproved, got[1].Status)
	})

	mt.Run("find by user empty", func(mt *mtest.T) {
		repo := NewCompletionRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		got, err := repo.FindByUser(context.Background(), "9842470497")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	mt.Run("find one missing is nil", func(mt *mtest.T) {
		repo := NewCompletionRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		got, err := repo.FindOne(context.Background(), "9842470497", "basic-coding")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	mt.Run("evaluate pending completion", func(mt *mtest.T) {
		repo := NewCompletionRepository(mt.Coll)
		id := primitive.NewObjectID()
		doc := completionDoc(id, "9842470497", "basic-coding", models.StatusApproved, created)
		doc = append(doc,
			bson.E{Key: "feedback", Value: "clear demo"},
			bson.E{Key: "evaluatedAt", Value: created.Add(time.Hour)},
		)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		got, err := repo.Evaluate(context.Background(), id, models.StatusApproved, "clear demo", created.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status)
		assert.Equal(t, "clear demo", got.Feedback)
		require.NotNil(t, got.EvaluatedAt)
	})

	mt.Run("evaluate without pending match", func(mt *mtest.T) {
		repo := NewCompletionRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.Evaluate(context.Background(), primitive.NewObjectID(), models.StatusRejected, "", created)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestAttemptRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewAttemptRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		reason := models.ReasonInvalidReferer
		id, err := repo.Insert(context.Background(), &models.LoginAttempt{
			Phone:     "9842470497",
			Referer:   "far55",
			Result:    models.AttemptFailed,
			Reason:    &reason,
			Timestamp: "2025-09-11 10:43:59",
		})
		require.NoError(t, err)
		assert.False(t, id.IsZero())
	})
}
