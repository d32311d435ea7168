package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func assertMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				release, err := l.Acquire(context.Background(), "user-1", time.Second)
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxSeen)
					if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
						break
					}
				}
				atomic.AddInt32(&inside, -1)
				release()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	assertMutualExclusion(t, NewLocalLocker())
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	release2, err := l.Acquire(context.Background(), "k", 0)
	require.NoError(t, err)
	release2()
	require.Empty(t, l.keys)
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(client, zap.NewNop().Sugar())
	l.retry = time.Millisecond
	return l, mr
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	l, _ := newRedisLocker(t)
	assertMutualExclusion(t, l)
}

func TestRedisLocker_ReleaseOnlyOwnToken(t *testing.T) {
	l, mr := newRedisLocker(t)
	release, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	require.True(t, mr.Exists("resumely:lock:k"))

	// the key expired and someone else took it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("resumely:lock:k", "other"))

	release()
	v, err := mr.Get("resumely:lock:k")
	require.NoError(t, err)
	require.Equal(t, "other", v)
}

func TestRedisLocker_RequiresTTL(t *testing.T) {
	l, _ := newRedisLocker(t)
	_, err := l.Acquire(context.Background(), "k", 0)
	require.Error(t, err)
}
