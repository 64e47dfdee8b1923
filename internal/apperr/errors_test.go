package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("create post: %w", Invalid("title", "is required"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "title", ve.Field)
	assert.Equal(t, "title: is required", ve.Error())
}

func TestUpstreamKeepsCause(t *testing.T) {
	err := Upstream("posts.get", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "posts.get")
}

func TestUpstreamPassesClassifiedErrors(t *testing.T) {
	nf := NotFoundf("post %s", "p1")

	assert.Same(t, nf, Upstream("posts.get", nf))
	assert.NotErrorIs(t, Upstream("posts.get", nf), ErrUpstream)
	assert.Nil(t, Upstream("noop", nil))
}

func TestConflictf(t *testing.T) {
	err := Conflictf("username %q taken", "alice")
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, Classified(err))
	assert.False(t, Classified(errors.New("boom")))
}
