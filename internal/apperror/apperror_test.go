package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{name: "NotFound wraps ErrNotFound", err: NotFound("target", 42), target: ErrNotFound, wantMatch: true},
		{name: "ValidationFailed wraps ErrValidation", err: ValidationFailed("limit", "bad"), target: ErrValidation, wantMatch: true},
		{name: "Policy wraps ErrPolicy", err: Policy("no"), target: ErrPolicy, wantMatch: true},
		{name: "Forbidden wraps ErrForbidden", err: Forbidden("admins only"), target: ErrForbidden, wantMatch: true},
		{name: "Policy is not NotFound", err: Policy("no"), target: ErrNotFound, wantMatch: false},
		{name: "wrapped twice", err: fmt.Errorf("outer: %w", NotFound("user", 1)), target: ErrNotFound, wantMatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

func TestUserMessage(t *testing.T) {
	msg, ok := UserMessage(fmt.Errorf("ctx: %w", ValidationFailed("n", "n must be positive")))
	assert.True(t, ok)
	assert.Equal(t, "n must be positive", msg)

	_, ok = UserMessage(errors.New("disk full"))
	assert.False(t, ok)
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "user not found: 7", NotFound("user", 7).Error())
}
