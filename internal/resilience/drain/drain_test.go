package drain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/rcerrors"
)

func TestEnterRejectedWhileDraining(t *testing.T) {
	g := New()
	g.StartDraining()

	_, err := g.Enter()
	assert.ErrorIs(t, err, rcerrors.ErrDraining)
}

func TestWaitForDrainBlocksUntilEmpty(t *testing.T) {
	g := New()
	leave, err := g.Enter()
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		leave()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, g.WaitForDrain(ctx))
	assert.Equal(t, 0, g.InFlight())
}

func TestWaitForDrainTimesOut(t *testing.T) {
	g := New()
	_, err := g.Enter()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, g.WaitForDrain(ctx))
}
