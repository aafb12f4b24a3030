package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"wellness-check-service/internal/infra/memory"
)

func TestDelegateDirectoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		DelegateLoader: memory.NewStaticDelegateLoader(map[string][]string{
			"u1": {"sam@example.com", "alex@example.com"},
		}),
	}
	dir := NewDelegateDirectory(client, loader, time.Minute)

	emails, err := dir.VerifiedDelegateEmails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(emails) != 2 || emails[0] != "sam@example.com" || emails[1] != "alex@example.com" {
		t.Fatalf("unexpected emails %v", emails)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := dir.VerifiedDelegateEmails(context.Background(), "u1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached) != 2 || cached[0] != "sam@example.com" {
		t.Fatalf("cache must keep order, got %v", cached)
	}
	if ttl := mr.TTL("wellness:delegates:u1"); ttl <= 0 {
		t.Fatalf("expected a ttl on the cached list, got %v", ttl)
	}

	if err := dir.Invalidate(context.Background(), "u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = dir.VerifiedDelegateEmails(context.Background(), "u1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestDelegateDirectoryDoesNotCacheEmptyLists(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		DelegateLoader: memory.NewStaticDelegateLoader(map[string][]string{"u1": {}}),
	}
	dir := NewDelegateDirectory(newClient(mr), loader, time.Minute)

	for i := 0; i < 2; i++ {
		emails, err := dir.VerifiedDelegateEmails(context.Background(), "u1")
		if err != nil || len(emails) != 0 {
			t.Fatalf("expected empty list, got %v (%v)", emails, err)
		}
	}
	if loader.calls != 2 || mr.Exists("wellness:delegates:u1") {
		t.Fatalf("empty lists must not be cached")
	}
}

type countingLoader struct {
	memory.DelegateLoader
	calls int
}

func (l *countingLoader) LoadVerifiedDelegates(ctx context.Context, userID string) ([]string, error) {
	l.calls++
	return l.DelegateLoader.LoadVerifiedDelegates(ctx, userID)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
