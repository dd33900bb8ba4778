package apperr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := NotFound("Order not found")

	assert.Equal(t, KindNotFound, KindOf(base))
	assert.Equal(t, KindNotFound, KindOf(errors.Wrap(base, "load order")))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection reset")))
	assert.Equal(t, "Order not found", MessageOf(errors.Wrap(base, "load order")))
	assert.True(t, Is(base, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(cause, KindConflict, "order number taken")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "order number taken: duplicate key", err.Error())
}
