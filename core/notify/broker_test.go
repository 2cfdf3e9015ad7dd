package notify_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyfeed/core/notify"
)

// drain reads n values from sub or fails after timeout.
func drain(t *testing.T, sub *notify.Subscription, n int) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make([]string, 0, n)
	for range n {
		v, err := sub.Next(ctx)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestBroker_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("registers subscription", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)

		assert.Equal(t, "k", sub.Key())
		assert.NotEmpty(t, sub.ID())
		assert.False(t, sub.CreatedAt().IsZero())
		assert.Equal(t, 1, b.Subscribers("k"))
	})

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("")
		assert.ErrorIs(t, err, notify.ErrEmptyKey)
		assert.Nil(t, sub)
	})

	t.Run("unique ids", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		s1, err := b.Subscribe("k")
		require.NoError(t, err)
		s2, err := b.Subscribe("k")
		require.NoError(t, err)

		assert.NotEqual(t, s1.ID(), s2.ID())
	})

	t.Run("custom id generator", func(t *testing.T) {
		t.Parallel()

		var n atomic.Int64
		b := notify.NewBroker(notify.WithIDGenerator(func() string {
			return fmt.Sprintf("sub-%d", n.Add(1))
		}))
		sub, err := b.Subscribe("k")
		require.NoError(t, err)
		assert.Equal(t, "sub-1", sub.ID())
	})
}

func TestBroker_PublishOrdering(t *testing.T) {
	t.Parallel()

	b := notify.NewBroker()
	sub, err := b.Subscribe("k")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	b.Publish("k", "v1")
	b.Publish("k", "v2")
	b.Publish("k", "v3")

	assert.Equal(t, []string{"v1", "v2", "v3"}, drain(t, sub, 3))
}

func TestBroker_PublishFiltersByKey(t *testing.T) {
	t.Parallel()

	b := notify.NewBroker()
	sub, err := b.Subscribe("k")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Equal(t, 0, b.Publish("k2", "v"))
	assert.Equal(t, 0, b.Publish("K", "v"))
	assert.Equal(t, 0, sub.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBroker_PublishWithoutSubscribers(t *testing.T) {
	t.Parallel()

	b := notify.NewBroker()
	assert.Equal(t, 0, b.Publish("nobody", "v"))

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(0), stats.Delivered)
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)

		sub.Unsubscribe()
		sub.Unsubscribe()

		assert.True(t, sub.Closed())
		assert.Equal(t, 0, b.Subscribers("k"))
		assert.Equal(t, 0, b.Stats().Subscriptions)
	})

	t.Run("concurrent calls remove once", func(t *testing.T) {
		t.Parallel()

		m := &countingMetrics{}
		b := notify.NewBroker(notify.WithMetrics(m))
		sub, err := b.Subscribe("k")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sub.Unsubscribe()
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), m.opened.Load())
		assert.Equal(t, int64(1), m.closed.Load())
	})

	t.Run("no delivery after teardown", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)

		sub.Unsubscribe()
		assert.Equal(t, 0, b.Publish("k", "v"))

		v, err := sub.Next(context.Background())
		assert.ErrorIs(t, err, notify.ErrSubscriptionClosed)
		assert.Empty(t, v)
	})

	t.Run("drops queued values", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)

		b.Publish("k", "v1")
		require.Equal(t, 1, sub.Len())

		sub.Unsubscribe()
		assert.Equal(t, 0, sub.Len())

		_, err = sub.Next(context.Background())
		assert.ErrorIs(t, err, notify.ErrSubscriptionClosed)
	})

	t.Run("wakes pending next", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)

		errCh := make(chan error, 1)
		go func() {
			_, err := sub.Next(context.Background())
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		sub.Unsubscribe()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, notify.ErrSubscriptionClosed)
		case <-time.After(time.Second):
			t.Fatal("Next did not return after Unsubscribe")
		}

		select {
		case <-sub.Done():
		default:
			t.Fatal("Done channel not closed")
		}
	})

	t.Run("leaves other subscriptions intact", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		s1, err := b.Subscribe("k")
		require.NoError(t, err)
		s2, err := b.Subscribe("k")
		require.NoError(t, err)
		defer s2.Unsubscribe()

		s1.Unsubscribe()
		assert.Equal(t, 1, b.Publish("k", "v"))
		assert.Equal(t, []string{"v"}, drain(t, s2, 1))
	})
}

func TestSubscription_NextCancellation(t *testing.T) {
	t.Parallel()

	t.Run("returns promptly on cancel", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)
		defer sub.Unsubscribe()

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			_, err := sub.Next(ctx)
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			assert.True(t, errors.Is(err, context.Canceled))
		case <-time.After(time.Second):
			t.Fatal("Next did not return after cancel")
		}
	})

	t.Run("cancelled context wins over queued value", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)
		defer sub.Unsubscribe()

		b.Publish("k", "v")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = sub.Next(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, sub.Len())
	})

	t.Run("waits for value", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)
		defer sub.Unsubscribe()

		go func() {
			time.Sleep(20 * time.Millisecond)
			b.Publish("k", "late")
		}()

		assert.Equal(t, []string{"late"}, drain(t, sub, 1))
	})
}

func TestBroker_QueueLimit(t *testing.T) {
	t.Parallel()

	t.Run("drop oldest", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker(notify.WithQueueLimit(2), notify.WithOverflow(notify.DropOldest))
		sub, err := b.Subscribe("k")
		require.NoError(t, err)
		defer sub.Unsubscribe()

		assert.Equal(t, 1, b.Publish("k", "v1"))
		assert.Equal(t, 1, b.Publish("k", "v2"))
		assert.Equal(t, 1, b.Publish("k", "v3"))

		assert.Equal(t, uint64(1), sub.Dropped())
		assert.Equal(t, uint64(1), b.Stats().Dropped)
		assert.Equal(t, []string{"v2", "v3"}, drain(t, sub, 2))
	})

	t.Run("drop newest", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker(notify.WithQueueLimit(2), notify.WithOverflow(notify.DropNewest))
		sub, err := b.Subscribe("k")
		require.NoError(t, err)
		defer sub.Unsubscribe()

		b.Publish("k", "v1")
		b.Publish("k", "v2")
		assert.Equal(t, 0, b.Publish("k", "v3"))

		assert.Equal(t, uint64(1), sub.Dropped())
		assert.Equal(t, []string{"v1", "v2"}, drain(t, sub, 2))
	})

	t.Run("unbounded by default", func(t *testing.T) {
		t.Parallel()

		b := notify.NewBroker()
		sub, err := b.Subscribe("k")
		require.NoError(t, err)
		defer sub.Unsubscribe()

		for i := range 10_000 {
			b.Publish("k", fmt.Sprint(i))
		}
		assert.Equal(t, 10_000, sub.Len())
		assert.Equal(t, uint64(0), sub.Dropped())
	})
}

func TestBroker_ConcurrentSubscribers(t *testing.T) {
	t.Parallel()

	const (
		subscribers = 8
		values      = 500
	)

	b := notify.NewBroker()

	subs := make([]*notify.Subscription, subscribers)
	for i := range subs {
		s, err := b.Subscribe("k")
		require.NoError(t, err)
		subs[i] = s
	}

	results := make([][]string, subscribers)
	var wg sync.WaitGroup
	for i, s := range subs {
		wg.Add(1)
		go func(i int, s *notify.Subscription) {
			defer wg.Done()
			defer s.Unsubscribe()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			for range values {
				v, err := s.Next(ctx)
				if err != nil {
					return
				}
				results[i] = append(results[i], v)
				// Odd subscribers drain slowly.
				if i%2 == 1 {
					time.Sleep(10 * time.Microsecond)
				}
			}
		}(i, s)
	}

	expected := make([]string, values)
	for i := range values {
		expected[i] = fmt.Sprint(i)
		assert.Equal(t, subscribers, b.Publish("k", expected[i]))
	}

	wg.Wait()

	for i := range subs {
		assert.Equal(t, expected, results[i], "subscriber %d", i)
	}
	assert.Equal(t, 0, b.Subscribers("k"))
}

func TestBroker_ConcurrentSubscribeUnsubscribePublish(t *testing.T) {
	t.Parallel()

	b := notify.NewBroker(notify.WithShards(4))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%2)
			for {
				select {
				case <-ctx.Done():
					return
				default:
					b.Publish(key, "v")
				}
			}
		}(i)
	}

	for i := range 200 {
		sub, err := b.Subscribe(fmt.Sprintf("key-%d", i%2))
		require.NoError(t, err)
		if i%3 == 0 {
			go sub.Unsubscribe()
		}
		sub.Unsubscribe()
	}

	cancel()
	wg.Wait()

	stats := b.Stats()
	assert.Equal(t, 0, stats.Subscriptions)
	assert.Equal(t, 0, stats.Keys)
}

func TestBroker_Close(t *testing.T) {
	t.Parallel()

	b := notify.NewBroker()
	s1, err := b.Subscribe("a")
	require.NoError(t, err)
	s2, err := b.Subscribe("b")
	require.NoError(t, err)
	require.NoError(t, b.Healthcheck(context.Background()))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Healthcheck(context.Background()), notify.ErrBrokerClosed)

	assert.True(t, s1.Closed())
	assert.True(t, s2.Closed())
	assert.Equal(t, 0, b.Stats().Subscriptions)

	_, err = b.Subscribe("a")
	assert.ErrorIs(t, err, notify.ErrBrokerClosed)

	assert.Equal(t, 0, b.Publish("a", "v"))
}

func TestBroker_Stats(t *testing.T) {
	t.Parallel()

	b := notify.NewBroker()
	a1, err := b.Subscribe("a")
	require.NoError(t, err)
	defer a1.Unsubscribe()
	a2, err := b.Subscribe("a")
	require.NoError(t, err)
	defer a2.Unsubscribe()
	c, err := b.Subscribe("c")
	require.NoError(t, err)
	defer c.Unsubscribe()

	b.Publish("a", "1")
	b.Publish("c", "2")
	b.Publish("z", "3")

	stats := b.Stats()
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, 3, stats.Subscriptions)
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(3), stats.Delivered)
}

func TestParseOverflowPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    notify.OverflowPolicy
		wantErr bool
	}{
		{in: "drop_oldest", want: notify.DropOldest},
		{in: "DROP_NEWEST", want: notify.DropNewest},
		{in: " newest ", want: notify.DropNewest},
		{in: "block", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := notify.ParseOverflowPolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, notify.ErrInvalidOverflowPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) notify.OverflowPolicy {
	t.Helper()
	p, err := notify.ParseOverflowPolicy(s)
	require.NoError(t, err)
	return p
}

type countingMetrics struct {
	opened    atomic.Int64
	closed    atomic.Int64
	published atomic.Int64
	dropped   atomic.Int64
}

func (m *countingMetrics) SubscriptionOpened() { m.opened.Add(1) }
func (m *countingMetrics) SubscriptionClosed() { m.closed.Add(1) }
func (m *countingMetrics) Published(int)       { m.published.Add(1) }
func (m *countingMetrics) Dropped()            { m.dropped.Add(1) }
