package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"database is locked", errors.New("database is locked"), true},
		{"table locked", errors.New("database table is locked"), true},
		{"SQLITE_BUSY", errors.New("SQLITE_BUSY"), true},
		{"SQLITE_LOCKED", errors.New("SQLITE_LOCKED"), true},
		{"numeric busy code", errors.New("sqlite error (5): busy"), true},
		{"numeric locked code", errors.New("sqlite error (6): locked"), true},
		{"unique violation", errors.New("UNIQUE constraint failed: loans.copy_id"), false},
		{"connection refused", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isBusyError(tt.err))
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	busy := errors.New("database is locked")

	t.Run("returns after first success", func(t *testing.T) {
		attempts := 0
		err := retryWithBackoff(context.Background(), 5, func() error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries busy errors until success", func(t *testing.T) {
		attempts := 0
		err := retryWithBackoff(context.Background(), 5, func() error {
			attempts++
			if attempts < 3 {
				return busy
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		attempts := 0
		err := retryWithBackoff(context.Background(), 5, func() error {
			attempts++
			return errors.New("UNIQUE constraint failed")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := retryWithBackoff(context.Background(), 2, func() error {
			attempts++
			return busy
		})
		require.ErrorIs(t, err, busy)
		assert.Equal(t, 3, attempts)
	})

	t.Run("zero retries means a single attempt", func(t *testing.T) {
		attempts := 0
		err := retryWithBackoff(context.Background(), 0, func() error {
			attempts++
			return busy
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		attempts := 0
		err := retryWithBackoff(ctx, 10, func() error {
			attempts++
			return busy
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, attempts, 10)
	})
}
