package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const accountColumns = `id, handle, credential_digest, display_name, avatar_ref, profile_text,
		role, soft_deleted, created_at, updated_at, edited_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var role string
	err := row.Scan(&a.ID, &a.Handle, &a.CredentialDigest, &a.DisplayName, &a.AvatarRef, &a.ProfileText,
		&role, &a.SoftDeleted, &a.CreatedAt, &a.UpdatedAt, &a.EditedAt)
	if err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	return a, nil
}

// whereClause renders filter as a WHERE clause with numbered placeholders.
func whereClause(filter models.AccountFilter) (string, []any) {
	conds := []string{"NOT soft_deleted"}
	args := []any{}

	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(expr, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.ID != 0 {
		add("id = ?", filter.ID)
	}
	if filter.Handle != "" {
		add("handle = ?", filter.Handle)
	}
	if filter.CredentialDigest != nil {
		add("credential_digest = ?", filter.CredentialDigest)
	}
	if filter.DisplayName != "" {
		add("display_name ILIKE ?", "%"+filter.DisplayName+"%")
	}
	if filter.ProfileText != "" {
		add("profile_text ILIKE ?", "%"+filter.ProfileText+"%")
	}
	if filter.Role != "" {
		add("role = ?", string(filter.Role))
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

func writeError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.Message)
	}
	return storageError(err)
}

func storageError(err error) error {
	return fmt.Errorf("%w: db error: %w", common.ErrorStorage, err)
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) error {

	query :=
		`INSERT INTO accounts (id, handle, credential_digest, display_name, avatar_ref, profile_text, role, soft_deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at, edited_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Handle, account.CredentialDigest, account.DisplayName, account.AvatarRef,
		account.ProfileText, string(account.Role), account.SoftDeleted,
	).Scan(&account.CreatedAt, &account.UpdatedAt, &account.EditedAt)

	if err != nil {
		return writeError(err)
	}

	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.FindOne(ctx, models.AccountFilter{ID: id})
}

func (r *PostgresRepository) FindOne(ctx context.Context, filter models.AccountFilter) (*models.Account, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + accountColumns + ` FROM accounts ` + where + ` ORDER BY id LIMIT 1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, storageError(err)
	}

	return a, nil
}

func (r *PostgresRepository) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	where, args := whereClause(filter)
	query := `SELECT COUNT(*) FROM accounts ` + where

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, storageError(err)
	}

	return n, nil
}

func (r *PostgresRepository) ListPage(ctx context.Context, filter models.AccountFilter, offset, limit int) ([]*models.Account, error) {
	where, args := whereClause(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM accounts %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		accountColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(err)
	}
	defer rows.Close()

	result := make([]*models.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, storageError(err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, patch *models.AccountPatch) error {
	sets := []string{"updated_at = now()"}
	args := []any{}

	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Handle != nil {
		set("handle", *patch.Handle)
	}
	if patch.CredentialDigest != nil {
		set("credential_digest", patch.CredentialDigest)
	}
	if patch.DisplayName != nil {
		set("display_name", *patch.DisplayName)
	}
	if patch.AvatarRef != nil {
		set("avatar_ref", *patch.AvatarRef)
	}
	if patch.ProfileText != nil {
		set("profile_text", *patch.ProfileText)
	}
	if patch.Role != nil {
		set("role", string(*patch.Role))
	}
	if patch.SoftDeleted != nil {
		set("soft_deleted", *patch.SoftDeleted)
	}
	if patch.EditedAt != nil {
		set("edited_at", *patch.EditedAt)
	}

	args = append(args, patch.ID)
	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return writeError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return writeError(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %d", common.ErrorNotFound, patch.ID)
	}

	return nil
}
