package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("Product", 7), KindNotFound},
		{"validation", Validation("name", "Category name already exists"), KindValidation},
		{"invalid argument", InvalidArgument("bad id %q", "x"), KindInvalidArgument},
		{"unauthorized", Unauthorized("login required"), KindUnauthorized},
		{"wrapped", fmt.Errorf("service: %w", NotFound("Blog", 1)), KindNotFound},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Product with id 7 not found", NotFound("Product", uint(7)).Error())
}

func TestValidationFields(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("name", "Category name already exists"))

	assert.True(t, Is(err, KindValidation))
	assert.Equal(t, map[string]string{"name": "Category name already exists"}, FieldErrors(err))
	assert.Nil(t, FieldErrors(errors.New("plain")))
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause, "failed to store image")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to store image: disk full", err.Error())
}
