package memory

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wellness-check-service/internal/domain"
)

// DelegateLoader returns the verified delegate addresses of a user. Postgres implements it in
// production.
type DelegateLoader interface {
	LoadVerifiedDelegates(ctx context.Context, userID string) ([]string, error)
}

// DelegateDirectory serves delegate lists for escalations from a process-local cache.
// Concurrent escalations for the same user share one loader call.
type DelegateDirectory struct {
	loader DelegateLoader
	ttl    time.Duration
	now    func() time.Time
	loads  singleflight.Group

	mu      sync.RWMutex
	entries map[string]delegateEntry
}

type delegateEntry struct {
	emails    []string
	expiresAt time.Time
}

func NewDelegateDirectory(loader DelegateLoader, ttl time.Duration) *DelegateDirectory {
	return &DelegateDirectory{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]delegateEntry),
	}
}

// VerifiedDelegateEmails returns a copy of the user's verified delegate addresses.
func (d *DelegateDirectory) VerifiedDelegateEmails(ctx context.Context, userID string) ([]string, error) {
	if emails, ok := d.lookup(userID); ok {
		return emails, nil
	}

	result, err, _ := d.loads.Do(userID, func() (interface{}, error) {
		if emails, ok := d.lookup(userID); ok {
			return emails, nil
		}
		emails, err := d.loader.LoadVerifiedDelegates(ctx, userID)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.entries[userID] = delegateEntry{emails: emails, expiresAt: d.now().Add(d.expiry())}
		d.mu.Unlock()
		return emails, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

// Invalidate forgets the cached delegates of a user, e.g. after a delegate confirms their address.
func (d *DelegateDirectory) Invalidate(userID string) {
	d.mu.Lock()
	delete(d.entries, userID)
	d.mu.Unlock()
}

func (d *DelegateDirectory) lookup(userID string) ([]string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.entries[userID]
	if !ok || !entry.expiresAt.After(d.now()) {
		return nil, false
	}
	return append([]string(nil), entry.emails...), true
}

// expiry is the ttl plus up to a tenth of it, so lists loaded together do not all reload together.
func (d *DelegateDirectory) expiry() time.Duration {
	if d.ttl <= 0 {
		return 0
	}
	return d.ttl + rand.N(d.ttl/10+1)
}

// StaticDelegateLoader serves delegates from a fixed map. Used when Postgres is not configured.
type StaticDelegateLoader struct {
	delegates map[string][]string
}

func NewStaticDelegateLoader(delegates map[string][]string) *StaticDelegateLoader {
	return &StaticDelegateLoader{delegates: delegates}
}

func (l *StaticDelegateLoader) LoadVerifiedDelegates(_ context.Context, userID string) ([]string, error) {
	if emails, ok := l.delegates[userID]; ok {
		return append([]string(nil), emails...), nil
	}
	return nil, domain.ErrDelegatesNotFound
}
