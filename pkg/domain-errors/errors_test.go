package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndHasCode(t *testing.T) {
	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("wrapped cause stays reachable", func(t *testing.T) {
		err := Wrap(context.Canceled, CodeTimeout, "screening cancelled")
		assert.True(t, errors.Is(err, context.Canceled))
		assert.True(t, HasCode(err, CodeTimeout))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("nested codes are all visible", func(t *testing.T) {
		inner := New(CodeFilingNotAllowed, "SAR must be approved before filing")
		outer := Wrap(inner, CodeInvalidState, "file SAR")
		assert.True(t, HasCode(outer, CodeInvalidState))
		assert.True(t, HasCode(outer, CodeFilingNotAllowed))
		assert.Equal(t, CodeInvalidState, CodeOf(outer))
	})

	t.Run("uncoded errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.Empty(t, MessageOf(errors.New("boom")))
		assert.False(t, Is(errors.New("boom"), CodeNotFound))
	})

	t.Run("error string includes cause", func(t *testing.T) {
		err := Wrap(errors.New("connection refused"), CodeInternal, "save profile")
		assert.Equal(t, "save profile: connection refused", err.Error())
		assert.Equal(t, "save profile", MessageOf(err))
	})
}
