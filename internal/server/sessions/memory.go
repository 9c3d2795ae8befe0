package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type memoryEntry struct {
	account   *models.Account
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a Store backed by sync.Map. A zero ttl keeps bindings until
// they are removed. Expired bindings are dropped on access and by Sweep.
type MemoryStore struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Account, error) {
	v, ok := s.entries.Load(id)
	if !ok {
		return nil, common.ErrorNotFound
	}

	e := v.(*memoryEntry)
	if e.expired(s.now()) {
		s.entries.CompareAndDelete(id, e)
		return nil, common.ErrorNotFound
	}

	c := *e.account
	return &c, nil
}

func (s *MemoryStore) Put(ctx context.Context, id string, account *models.Account) error {
	e := &memoryEntry{account: account.Snapshot()}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries.Store(id, e)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) (bool, error) {
	v, ok := s.entries.LoadAndDelete(id)
	if !ok {
		return false, nil
	}
	return !v.(*memoryEntry).expired(s.now()), nil
}

// Sweep drops every binding that has expired and returns how many were
// removed. Bindings replaced concurrently are left alone.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	s.entries.Range(func(k, v any) bool {
		if v.(*memoryEntry).expired(now) && s.entries.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
