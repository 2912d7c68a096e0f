package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"buyScope/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestGuard(t *testing.T, capacity int, ttl time.Duration) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	guard, err := NewMemory(capacity, ttl, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	return guard, clock
}

func TestMarkSeenUntilExpiry(t *testing.T) {
	ctx := context.Background()
	guard, clock := newTestGuard(t, 10, time.Minute)
	key := model.EventKey{TxHash: "0xaaa", LogIndex: 2}

	if dup, _ := guard.IsDuplicate(ctx, key); dup {
		t.Fatalf("fresh key reported as duplicate")
	}
	if err := guard.MarkSeen(ctx, key); err != nil {
		t.Fatalf("mark: %v", err)
	}
	clock.Advance(59 * time.Second)
	if dup, _ := guard.IsDuplicate(ctx, key); !dup {
		t.Fatalf("key should be a duplicate before ttl")
	}
	clock.Advance(time.Second)
	if dup, _ := guard.IsDuplicate(ctx, key); dup {
		t.Fatalf("key should expire at ttl")
	}
	if guard.Len() != 0 {
		t.Fatalf("expired key should be dropped, len=%d", guard.Len())
	}
}

func TestHandleReorgForgets(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestGuard(t, 10, time.Hour)
	key := model.EventKey{TxHash: "0xaaa", LogIndex: 2}

	_ = guard.MarkSeen(ctx, key)
	if err := guard.HandleReorg(ctx, key); err != nil {
		t.Fatalf("reorg: %v", err)
	}
	if dup, _ := guard.IsDuplicate(ctx, key); dup {
		t.Fatalf("reorged key still duplicate")
	}
	// Forgetting an unknown key is a no-op.
	if err := guard.HandleReorg(ctx, model.EventKey{TxHash: "0xbbb"}); err != nil {
		t.Fatalf("reorg unknown: %v", err)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestGuard(t, 2, time.Hour)
	a := model.EventKey{TxHash: "0xa"}
	b := model.EventKey{TxHash: "0xb"}
	c := model.EventKey{TxHash: "0xc"}

	_ = guard.MarkSeen(ctx, a)
	_ = guard.MarkSeen(ctx, b)
	_ = guard.MarkSeen(ctx, c)

	if dup, _ := guard.IsDuplicate(ctx, a); dup {
		t.Fatalf("oldest key should have been evicted")
	}
	for _, key := range []model.EventKey{b, c} {
		if dup, _ := guard.IsDuplicate(ctx, key); !dup {
			t.Fatalf("key %s should be retained", key)
		}
	}
}

func TestSameTxDifferentLogIndex(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestGuard(t, 10, time.Hour)

	_ = guard.MarkSeen(ctx, model.EventKey{TxHash: "0xaaa", LogIndex: 1})
	if dup, _ := guard.IsDuplicate(ctx, model.EventKey{TxHash: "0xaaa", LogIndex: 2}); dup {
		t.Fatalf("distinct log index must not collide")
	}
}

func TestCheckAndMarkConcurrent(t *testing.T) {
	ctx := context.Background()
	guard, _ := newTestGuard(t, 10, time.Hour)
	key := model.EventKey{TxHash: "0xaaa", LogIndex: 7}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fresh, _ := guard.CheckAndMark(ctx, key); fresh {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestDefaults(t *testing.T) {
	guard, err := NewMemory(0, 0)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if guard.ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", guard.ttl)
	}
}
