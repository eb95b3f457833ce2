package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictClassification(t *testing.T) {
	assert.False(t, IsSQLiteConflictError(nil))
	assert.True(t, IsSQLiteConflictError(errors.New("sqlite: step: SQLITE_BUSY")))
	assert.True(t, IsSQLiteConflictError(errors.New("database is locked (5)")))
	assert.False(t, IsSQLiteConflictError(errors.New("no such table: agents")))
}

func TestRetryOnConflictRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("SQLITE_BUSY")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflictStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("constraint failed")
	err := RetryOnConflict(context.Background(), RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, "test", func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryOnConflictGivesUp(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}, "test", func() error {
		calls++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryOnConflictHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryOnConflict(ctx, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}, "test", func() error {
		return errors.New("SQLITE_BUSY")
	})
	require.ErrorIs(t, err, context.Canceled)
}
