package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feedline/feedline/internal/model"
)

func TestExecutionStore_Create(t *testing.T) {
	db := &mockDB{}
	s := NewExecutionStore(db)
	ctx := context.Background()

	exec := &model.JobExecution{
		ID:         "run-1",
		ScheduleID: "sch-1",
		Status:     model.ExecutionPending,
		StartedAt:  time.Now(),
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag(), nil)

	require.NoError(t, s.Create(ctx, exec))
	db.AssertExpectations(t)
}

func TestExecutionStore_UpdateStatus(t *testing.T) {
	db := &mockDB{}
	s := NewExecutionStore(db)
	ctx := context.Background()

	msg := "extracting 2 endpoints"
	db.On("Exec", ctx, mock.AnythingOfType("string"),
		[]any{model.ExecutionExtracting, &msg, "run-1"}).Return(cmdTag(), nil)

	require.NoError(t, s.UpdateStatus(ctx, "run-1", model.ExecutionExtracting, &msg))
	db.AssertExpectations(t)
}

func TestExecutionStore_Complete(t *testing.T) {
	db := &mockDB{}
	s := NewExecutionStore(db)
	ctx := context.Background()

	msg := "validation failed: 3 violations"
	detail := "orders[2].total: required field missing"
	done := time.Now()

	db.On("Exec", ctx, mock.AnythingOfType("string"),
		[]any{model.ExecutionFailed, &msg, &detail, done, "run-1"}).Return(cmdTag(), nil)

	require.NoError(t, s.Complete(ctx, "run-1", model.ExecutionFailed, &msg, &detail, done))
	db.AssertExpectations(t)
}

func TestJobExecution_Terminal(t *testing.T) {
	assert.True(t, (&model.JobExecution{Status: model.ExecutionCompleted}).Terminal())
	assert.True(t, (&model.JobExecution{Status: model.ExecutionFailed}).Terminal())
	assert.False(t, (&model.JobExecution{Status: model.ExecutionUploading}).Terminal())
	assert.False(t, (&model.JobExecution{Status: model.ExecutionPending}).Terminal())
}
