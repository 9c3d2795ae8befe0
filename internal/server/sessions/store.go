// Package sessions binds session ids to account snapshots.
//
// Two backends are provided: MemoryStore keeps bindings in process memory and
// RedisStore keeps them in Redis so they survive a restart of one instance.
// Both store snapshots without the credential digest.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Store is the session state consumed by the identity service. Operations on
// one session id are atomic with respect to each other; different ids never
// contend on a shared lock.
type Store interface {
	// Get returns the account bound to id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Account, error)
	// Put binds account to id, replacing any previous binding.
	Put(ctx context.Context, id string, account *models.Account) error
	// Remove deletes the binding and reports whether one existed.
	Remove(ctx context.Context, id string) (bool, error)
}
