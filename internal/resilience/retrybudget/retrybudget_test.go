package retrybudget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsThenRecovers(t *testing.T) {
	b := New(50*time.Millisecond, 2)

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, b.Allow())
}

func TestRemaining(t *testing.T) {
	b := New(time.Second, 3)
	assert.Equal(t, 3, b.Remaining())
	b.Allow()
	assert.Equal(t, 2, b.Remaining())
}
