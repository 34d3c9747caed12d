package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindAndFromContext(t *testing.T) {
	ctx := Bind(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", FromContext(ctx))
}

func TestFromContextEmpty(t *testing.T) {
	assert.Equal(t, "", FromContext(context.Background()))
}

func TestFromContextOrNewGeneratesOnce(t *testing.T) {
	id, ctx := FromContextOrNew(context.Background())
	assert.NotEmpty(t, id)

	id2, _ := FromContextOrNew(ctx)
	assert.Equal(t, id, id2)
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
