package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DelegateLoader is consulted on a cache miss; Postgres implements it in production.
type DelegateLoader interface {
	LoadVerifiedDelegates(ctx context.Context, userID string) ([]string, error)
}

// DelegateDirectory caches delegate lists in Redis and falls back to a loader on cache miss.
// Addresses are stored in order as: RPUSH wellness:delegates:{userID} {email...}
// Empty lists are not cached.
type DelegateDirectory struct {
	client *redis.Client
	loader DelegateLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewDelegateDirectory(client *redis.Client, loader DelegateLoader, ttl time.Duration) *DelegateDirectory {
	return &DelegateDirectory{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *DelegateDirectory) VerifiedDelegateEmails(ctx context.Context, userID string) ([]string, error) {
	key := d.key(userID)

	emails, err := d.client.LRange(ctx, key, 0, -1).Result()
	if err == nil && len(emails) > 0 {
		return emails, nil
	}

	result, err, _ := d.sf.Do(userID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		emails, err := d.client.LRange(ctx, key, 0, -1).Result()
		if err == nil && len(emails) > 0 {
			return emails, nil
		}

		emails, err = d.loader.LoadVerifiedDelegates(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(emails) == 0 {
			return emails, nil
		}

		values := make([]interface{}, len(emails))
		for i, e := range emails {
			values[i] = e
		}
		pipe := d.client.TxPipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		if ttl := d.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return emails, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

// Invalidate drops the cached list for a user.
func (d *DelegateDirectory) Invalidate(ctx context.Context, userID string) error {
	return d.client.Del(ctx, d.key(userID)).Err()
}

func (d *DelegateDirectory) key(userID string) string {
	return "wellness:delegates:" + userID
}

func (d *DelegateDirectory) ttlWithJitter() time.Duration {
	if d.ttl <= 0 {
		return 0
	}
	jitterMax := int64(d.ttl) / 10
	d.rndMu.Lock()
	defer d.rndMu.Unlock()
	return d.ttl + time.Duration(d.rnd.Int63n(jitterMax+1))
}
