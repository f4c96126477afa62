package goroutine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DetachedFromCaller(t *testing.T) {
	t.Parallel()

	m := goroutine.NewManager(4)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	var ran atomic.Bool
	m.Go(ctx, "detached", func(ctx context.Context) error {
		<-started
		if ctx.Err() == nil {
			ran.Store(true)
		}
		return nil
	})

	cancel()
	close(started)

	require.NoError(t, m.Wait(context.Background()))
	assert.True(t, ran.Load())
}

func TestManager_CollectsErrorsAndPanics(t *testing.T) {
	t.Parallel()

	m := goroutine.NewManager(4)
	boom := errors.New("boom")

	m.Go(context.Background(), "fails", func(context.Context) error { return boom })
	m.Go(context.Background(), "panics", func(context.Context) error { panic("oops") })

	err := m.Wait(context.Background())
	assert.ErrorIs(t, err, boom)

	var ran atomic.Bool
	m.Go(context.Background(), "after close", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.False(t, ran.Load())
}

func TestManager_WaitDeadline(t *testing.T) {
	t.Parallel()

	m := goroutine.NewManager(1)
	release := make(chan struct{})
	m.Go(context.Background(), "slow", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)
	close(release)
}
