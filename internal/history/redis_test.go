package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, window int, ttl time.Duration) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, window, ttl), mr
}

func TestRedisStore_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 10, time.Hour)

	err := store.Append(ctx, "393331234567",
		Turn{Role: RoleUser, Text: "Ciao"},
		Turn{Role: RoleAssistant, Text: "Ciao! Come posso aiutarti?"},
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	turns, err := store.Load(ctx, "393331234567")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("Load() = %d turns, want 2", len(turns))
	}
	if turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Errorf("roles = %s, %s", turns[0].Role, turns[1].Role)
	}
	if turns[0].Timestamp.IsZero() {
		t.Errorf("timestamp should be filled on append")
	}

	other, err := store.Load(ctx, "393330000000")
	if err != nil || len(other) != 0 {
		t.Errorf("other phone history = %v, %v", other, err)
	}
}

func TestRedisStore_WindowEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 4, time.Hour)

	for i := 1; i <= 6; i++ {
		if err := store.Append(ctx, "39333", Turn{Role: RoleUser, Text: fmt.Sprintf("msg %d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	turns, _ := store.Load(ctx, "39333")
	if len(turns) != 4 {
		t.Fatalf("window = %d, want 4", len(turns))
	}
	if turns[0].Text != "msg 3" || turns[3].Text != "msg 6" {
		t.Errorf("window = %s..%s, want msg 3..msg 6", turns[0].Text, turns[3].Text)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, 10, 24*time.Hour)

	if err := store.Append(ctx, "39333", Turn{Role: RoleUser, Text: "hello"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ttl := mr.TTL("history:39333"); ttl != 24*time.Hour {
		t.Errorf("TTL = %s, want 24h", ttl)
	}

	mr.FastForward(25 * time.Hour)

	turns, err := store.Load(ctx, "39333")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expired history returned %d turns", len(turns))
	}
}

func TestRedisStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, 10, time.Hour)

	_ = store.Append(ctx, "39333", Turn{Role: RoleUser, Text: "hello"})
	if err := store.Clear(ctx, "39333"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if mr.Exists("history:39333") {
		t.Errorf("key should be deleted")
	}
}

func TestRedisStore_LoadFailure(t *testing.T) {
	store, mr := newTestStore(t, 10, time.Hour)
	mr.Close()

	if _, err := store.Load(context.Background(), "39333"); err == nil {
		t.Errorf("Load() should fail when redis is down")
	}
}
