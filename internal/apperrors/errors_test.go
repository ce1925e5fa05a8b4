package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStorageError("failed to find latest rate", cause)

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNotFoundIsDistinctFromStorageFailure(t *testing.T) {
	notFound := fmt.Errorf("lookup: %w", NewNotFoundError("no USD rates"))
	failure := fmt.Errorf("lookup: %w", NewAppError(500, "query failed", errors.New("boom")))

	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.NotErrorIs(t, notFound, ErrStorageUnavailable)
	assert.ErrorIs(t, failure, ErrStorageUnavailable)
	assert.NotErrorIs(t, failure, ErrNotFound)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "source unavailable", err: fmt.Errorf("%w: timeout", ErrSourceUnavailable), want: true},
		{name: "malformed document", err: fmt.Errorf("%w: no date", ErrMalformedDocument), want: false},
		{name: "currency not found", err: fmt.Errorf("%w: USD", ErrCurrencyNotFound), want: false},
		{name: "malformed rate", err: fmt.Errorf("%w: abc", ErrMalformedRate), want: false},
		{name: "storage", err: NewStorageError("insert", errors.New("x")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
