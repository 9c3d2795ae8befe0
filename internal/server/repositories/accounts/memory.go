package accounts

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// MemoryRepository keeps accounts in process memory. It is used when no
// database DSN is configured and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[int64]*models.Account
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[int64]*models.Account),
		now:      time.Now,
	}
}

func clone(a *models.Account) *models.Account {
	c := *a
	c.CredentialDigest = slices.Clone(a.CredentialDigest)
	return &c
}

func matches(a *models.Account, f models.AccountFilter) bool {
	if a.SoftDeleted {
		return false
	}
	if f.ID != 0 && a.ID != f.ID {
		return false
	}
	if f.Handle != "" && a.Handle != f.Handle {
		return false
	}
	if f.CredentialDigest != nil && !bytes.Equal(a.CredentialDigest, f.CredentialDigest) {
		return false
	}
	if f.DisplayName != "" && !strings.Contains(strings.ToLower(a.DisplayName), strings.ToLower(f.DisplayName)) {
		return false
	}
	if f.ProfileText != "" && !strings.Contains(strings.ToLower(a.ProfileText), strings.ToLower(f.ProfileText)) {
		return false
	}
	if f.Role != "" && a.Role != f.Role {
		return false
	}
	return true
}

// sorted returns live matches ordered like the Postgres store.
func (r *MemoryRepository) sorted(f models.AccountFilter) []*models.Account {
	out := make([]*models.Account, 0)
	for _, a := range r.accounts {
		if matches(a, f) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y *models.Account) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		switch {
		case x.ID < y.ID:
			return -1
		case x.ID > y.ID:
			return 1
		}
		return 0
	})
	return out
}

func (r *MemoryRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; ok {
		return fmt.Errorf("%w: duplicate id %d", common.ErrorConflict, account.ID)
	}
	if !account.SoftDeleted {
		for _, a := range r.accounts {
			if !a.SoftDeleted && a.Handle == account.Handle {
				return fmt.Errorf("%w: handle %q", common.ErrorConflict, account.Handle)
			}
		}
	}

	now := r.now()
	account.CreatedAt, account.UpdatedAt, account.EditedAt = now, now, now
	r.accounts[account.ID] = clone(account)

	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.FindOne(ctx, models.AccountFilter{ID: id})
}

func (r *MemoryRepository) FindOne(ctx context.Context, filter models.AccountFilter) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := r.sorted(filter)
	if len(found) == 0 {
		return nil, common.ErrorNotFound
	}
	return clone(found[0]), nil
}

func (r *MemoryRepository) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.sorted(filter))), nil
}

func (r *MemoryRepository) ListPage(ctx context.Context, filter models.AccountFilter, offset, limit int) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := r.sorted(filter)
	if offset >= len(found) || limit <= 0 {
		return []*models.Account{}, nil
	}
	end := min(offset+limit, len(found))

	page := make([]*models.Account, 0, end-offset)
	for _, a := range found[offset:end] {
		page = append(page, clone(a))
	}
	return page, nil
}

func (r *MemoryRepository) Update(ctx context.Context, patch *models.AccountPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[patch.ID]
	if !ok {
		return fmt.Errorf("%w: account %d", common.ErrorNotFound, patch.ID)
	}

	next := clone(a)
	if patch.Handle != nil {
		next.Handle = *patch.Handle
	}
	if patch.CredentialDigest != nil {
		next.CredentialDigest = slices.Clone(patch.CredentialDigest)
	}
	if patch.DisplayName != nil {
		next.DisplayName = *patch.DisplayName
	}
	if patch.AvatarRef != nil {
		next.AvatarRef = *patch.AvatarRef
	}
	if patch.ProfileText != nil {
		next.ProfileText = *patch.ProfileText
	}
	if patch.Role != nil {
		next.Role = *patch.Role
	}
	if patch.SoftDeleted != nil {
		next.SoftDeleted = *patch.SoftDeleted
	}
	if patch.EditedAt != nil {
		next.EditedAt = *patch.EditedAt
	}

	if !next.SoftDeleted {
		for id, other := range r.accounts {
			if id != next.ID && !other.SoftDeleted && other.Handle == next.Handle {
				return fmt.Errorf("%w: handle %q", common.ErrorConflict, next.Handle)
			}
		}
	}

	next.UpdatedAt = r.now()
	r.accounts[next.ID] = next

	return nil
}
