package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls int32
	err   error
}

func (c *countingSweeper) Sweep(context.Context) (int, error) {
	atomic.AddInt32(&c.calls, 1)
	return 2, c.err
}

func TestScheduler_Spec(t *testing.T) {
	assert.Equal(t, "@every 1h0m0s", NewScheduler(&countingSweeper{}, 0).Spec())
	assert.Equal(t, "@every 30m0s", NewScheduler(&countingSweeper{}, 30*time.Minute).Spec())
}

func TestScheduler_RunOnce(t *testing.T) {
	sw := &countingSweeper{err: errors.New("redis down")}

	NewScheduler(sw, time.Hour).RunOnce()

	assert.Equal(t, int32(1), atomic.LoadInt32(&sw.calls))
}

func TestScheduler_StartRunsPeriodically(t *testing.T) {
	sw := &countingSweeper{}
	s := NewScheduler(sw, time.Second)

	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&sw.calls) >= 1
	}, 5*time.Second, 50*time.Millisecond)
}
