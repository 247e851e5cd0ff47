package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Exclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "CheckIns")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocal_KeysIndependent(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()
	r1, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	defer r1()

	r2, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	r2()
}

func TestLocal_ContextCancel(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call must not unblock anyone else's slot

	r2, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	r2()
}

func TestNoop(t *testing.T) {
	var n Noop
	r1, err := n.Acquire(context.Background(), "k")
	require.NoError(t, err)
	r2, err := n.Acquire(context.Background(), "k")
	require.NoError(t, err)
	r1()
	r2()
}

func TestNew(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, l)

	l, err = New(Config{Mode: ModeNone})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, l)

	_, err = New(Config{Mode: "zookeeper"})
	assert.Error(t, err)
}
