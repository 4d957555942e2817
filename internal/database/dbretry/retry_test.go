package dbretry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "broken pipe", err: errors.New("write tcp: broken pipe"), want: true},
		{name: "io timeout", err: errors.New("read tcp: i/o timeout"), want: true},
		{name: "logic error", err: errors.New("column does not exist"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestOperationDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	permanent := errors.New("syntax error")

	_, err := Operation(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestOperationRetriesTransientErrors(t *testing.T) {
	calls := 0

	result, err := Operation(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("dial tcp: connection refused")
		}

		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, calls)
}

func TestNoResultRetriesTransientErrors(t *testing.T) {
	calls := 0

	err := NoResult(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("write tcp: broken pipe")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestOperationStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Operation(ctx, func(context.Context) (int, error) {
		return 0, errors.New("dial tcp: connection refused")
	})

	assert.Error(t, err)
}
