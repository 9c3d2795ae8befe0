// Package accounts is the account store: create, find, count, update and
// page through account records. Soft-deleted accounts are invisible to every
// read; Update matches by id regardless of the soft-delete flag.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A live account with the same handle
	// yields common.ErrorConflict.
	Create(ctx context.Context, account *models.Account) error
	// FindByID returns common.ErrorNotFound when no live account has id.
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	// FindOne returns the first live account matching filter, or
	// common.ErrorNotFound.
	FindOne(ctx context.Context, filter models.AccountFilter) (*models.Account, error)
	Count(ctx context.Context, filter models.AccountFilter) (int64, error)
	// Update applies the non-nil fields of patch. common.ErrorNotFound is
	// returned when no row has patch.ID.
	Update(ctx context.Context, patch *models.AccountPatch) error
	ListPage(ctx context.Context, filter models.AccountFilter, offset, limit int) ([]*models.Account, error)
}
