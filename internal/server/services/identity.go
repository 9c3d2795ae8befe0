// Package services contains server-side business logic. This file implements
// IdentityService: registration, login and logout on server-side sessions,
// current identity resolution, role checks and account administration.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
)

const (
	minHandleLength     = 4
	minCredentialLength = 8

	DefaultPageSize = 10
	MaxPageSize     = 100
)

// IDAllocator hands out account ids.
type IDAllocator interface {
	Next() (int64, error)
}

// Recorder receives identity events. *metrics.Metrics implements it.
type Recorder interface {
	IDAllocated()
	ClockRegression()
	AuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) IDAllocated()             {}
func (nopRecorder) ClockRegression()         {}
func (nopRecorder) AuthEvent(string, string) {}

type IdentityService struct {
	accounts          accounts.Repository
	sessions          sessions.Store
	ids               IDAllocator
	salt              []byte
	defaultCredential string
	metrics           Recorder
	now               func() time.Time
}

// NewIdentityService wires the service. rec may be nil.
func NewIdentityService(repo accounts.Repository, store sessions.Store, ids IDAllocator, cfg *config.Config, rec Recorder) *IdentityService {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &IdentityService{
		accounts:          repo,
		sessions:          store,
		ids:               ids,
		salt:              []byte(cfg.CredentialSalt),
		defaultCredential: cfg.DefaultCredential,
		metrics:           rec,
		now:               time.Now,
	}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorInvalidArgument, msg)
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func tooShort(s string, n int) bool {
	return utf8.RuneCountInString(s) < n
}

// outcome is the metrics label of err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, common.ErrorConflict):
		return "conflict"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrorNotLoggedIn):
		return "not_logged_in"
	case errors.Is(err, common.ErrorForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrorClockRegression):
		return "clock_regression"
	case errors.Is(err, common.ErrorStorage):
		return "storage"
	default:
		return "error"
	}
}

func (s *IdentityService) digest(credential string) []byte {
	return cryptox.DigestCredential(credential, s.salt)
}

func (s *IdentityService) nextID() (int64, error) {
	id, err := s.ids.Next()
	if err != nil {
		if errors.Is(err, common.ErrorClockRegression) {
			s.metrics.ClockRegression()
		}
		return 0, err
	}
	s.metrics.IDAllocated()
	return id, nil
}

// ensureHandleFree fails with common.ErrorConflict when a live account holds handle.
func (s *IdentityService) ensureHandleFree(ctx context.Context, handle string) error {
	n, err := s.accounts.Count(ctx, models.AccountFilter{Handle: handle})
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", common.ErrorConflict, handle)
	}
	return nil
}

func (s *IdentityService) create(ctx context.Context, a *models.Account, credential string) (int64, error) {
	if err := s.ensureHandleFree(ctx, a.Handle); err != nil {
		return 0, err
	}

	a.CredentialDigest = s.digest(credential)

	id, err := s.nextID()
	if err != nil {
		return 0, err
	}
	a.ID = id

	if err := s.accounts.Create(ctx, a); err != nil {
		return 0, err
	}
	return a.ID, nil
}

// Register creates a user account and returns its id.
func (s *IdentityService) Register(ctx context.Context, handle, credential, confirm string) (id int64, err error) {
	defer func() { s.metrics.AuthEvent("register", outcome(err)) }()

	if blank(handle, credential, confirm) {
		return 0, invalid("handle and credentials are required")
	}
	if tooShort(handle, minHandleLength) {
		return 0, invalid("handle is too short")
	}
	if tooShort(credential, minCredentialLength) || tooShort(confirm, minCredentialLength) {
		return 0, invalid("credential is too short")
	}
	if credential != confirm {
		return 0, invalid("credentials do not match")
	}

	return s.create(ctx, &models.Account{Handle: handle, Role: models.RoleUser}, credential)
}

// Login binds the account matching handle and credential to sessionID. An
// unknown handle and a wrong credential both yield common.ErrorNotFound.
func (s *IdentityService) Login(ctx context.Context, handle, credential, sessionID string) (view *models.AccountView, err error) {
	defer func() { s.metrics.AuthEvent("login", outcome(err)) }()

	if blank(handle, credential) {
		return nil, invalid("handle and credential are required")
	}
	if tooShort(handle, minHandleLength) {
		return nil, invalid("handle is too short")
	}
	if tooShort(credential, minCredentialLength) {
		return nil, invalid("credential is too short")
	}
	if sessionID == "" {
		return nil, invalid("session is required")
	}

	d := s.digest(credential)

	a, err := s.accounts.FindOne(ctx, models.AccountFilter{Handle: handle, CredentialDigest: d})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: account does not exist", common.ErrorNotFound)
		}
		return nil, err
	}
	if !cryptox.EqualDigest(a.CredentialDigest, d) {
		return nil, fmt.Errorf("%w: account does not exist", common.ErrorNotFound)
	}

	if err := s.sessions.Put(ctx, sessionID, a); err != nil {
		return nil, err
	}

	return a.View(), nil
}

// Logout removes the binding of sessionID. It fails with
// common.ErrorNotLoggedIn when there is none.
func (s *IdentityService) Logout(ctx context.Context, sessionID string) (ok bool, err error) {
	defer func() { s.metrics.AuthEvent("logout", outcome(err)) }()

	if sessionID == "" {
		return false, common.ErrorNotLoggedIn
	}

	existed, err := s.sessions.Remove(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, common.ErrorNotLoggedIn
	}
	return true, nil
}

// CurrentIdentity returns a fresh copy of the account bound to sessionID.
func (s *IdentityService) CurrentIdentity(ctx context.Context, sessionID string) (*models.Account, error) {
	if sessionID == "" {
		return nil, common.ErrorNotLoggedIn
	}

	bound, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotLoggedIn
		}
		return nil, err
	}
	if bound == nil || bound.ID == 0 {
		return nil, common.ErrorNotLoggedIn
	}

	fresh, err := s.accounts.FindByID(ctx, bound.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotLoggedIn
		}
		return nil, err
	}
	if fresh == nil || fresh.ID == 0 {
		return nil, common.ErrorNotLoggedIn
	}

	return fresh, nil
}

// Authorize resolves the current identity and requires its role to equal
// required. Roles do not nest.
func (s *IdentityService) Authorize(ctx context.Context, sessionID string, required models.Role) (a *models.Account, err error) {
	defer func() {
		if err != nil {
			s.metrics.AuthEvent("authorize", outcome(err))
		}
	}()

	a, err = s.CurrentIdentity(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if a.Role != required {
		return nil, fmt.Errorf("%w: %s role required", common.ErrorForbidden, required)
	}
	return a, nil
}

// Delete soft-deletes the account. Deleting an already deleted account
// succeeds.
func (s *IdentityService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("id is required")
	}
	deleted := true
	return s.accounts.Update(ctx, &models.AccountPatch{ID: id, SoftDeleted: &deleted})
}

// UpdateProfile changes the descriptive fields of the current identity.
func (s *IdentityService) UpdateProfile(ctx context.Context, sessionID string, upd models.ProfileUpdate) error {
	cur, err := s.CurrentIdentity(ctx, sessionID)
	if err != nil {
		return err
	}
	if upd.DisplayName == nil && upd.AvatarRef == nil && upd.ProfileText == nil {
		return invalid("nothing to update")
	}

	edited := s.now()
	return s.accounts.Update(ctx, &models.AccountPatch{
		ID:          cur.ID,
		DisplayName: upd.DisplayName,
		AvatarRef:   upd.AvatarRef,
		ProfileText: upd.ProfileText,
		EditedAt:    &edited,
	})
}

// UpdateAccount is the administrative update of an account by id.
func (s *IdentityService) UpdateAccount(ctx context.Context, upd models.AccountUpdate) error {
	if upd.ID <= 0 {
		return invalid("id is required")
	}
	if upd.Role != nil {
		if _, err := models.ParseRole(string(*upd.Role)); err != nil {
			return invalid(err.Error())
		}
	}

	return s.accounts.Update(ctx, &models.AccountPatch{
		ID:          upd.ID,
		DisplayName: upd.DisplayName,
		AvatarRef:   upd.AvatarRef,
		ProfileText: upd.ProfileText,
		Role:        upd.Role,
	})
}

// AdminCreate creates a live account holding the configured default
// credential.
func (s *IdentityService) AdminCreate(ctx context.Context, n models.NewAccount) (id int64, err error) {
	defer func() { s.metrics.AuthEvent("admin_create", outcome(err)) }()

	if blank(n.Handle) || tooShort(n.Handle, minHandleLength) {
		return 0, invalid("handle is too short")
	}
	role := n.Role
	if role == "" {
		role = models.RoleUser
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return 0, invalid(err.Error())
	}

	return s.create(ctx, &models.Account{
		Handle:      n.Handle,
		DisplayName: n.DisplayName,
		AvatarRef:   n.AvatarRef,
		ProfileText: n.ProfileText,
		Role:        role,
	}, s.defaultCredential)
}

// Save writes every non-empty field of a to the account with a.ID. The
// credential digest and the soft-delete flag are not touched.
func (s *IdentityService) Save(ctx context.Context, a *models.Account) error {
	if a == nil || a.ID <= 0 {
		return invalid("id is required")
	}

	patch := &models.AccountPatch{ID: a.ID}
	if a.Handle != "" {
		if tooShort(a.Handle, minHandleLength) {
			return invalid("handle is too short")
		}
		patch.Handle = &a.Handle
	}
	if a.DisplayName != "" {
		patch.DisplayName = &a.DisplayName
	}
	if a.AvatarRef != "" {
		patch.AvatarRef = &a.AvatarRef
	}
	if a.ProfileText != "" {
		patch.ProfileText = &a.ProfileText
	}
	if a.Role != "" {
		if _, err := models.ParseRole(string(a.Role)); err != nil {
			return invalid(err.Error())
		}
		patch.Role = &a.Role
	}
	if !a.EditedAt.IsZero() {
		patch.EditedAt = &a.EditedAt
	}

	return s.accounts.Update(ctx, patch)
}

// GetAccount returns the live account with id.
func (s *IdentityService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	if id <= 0 {
		return nil, invalid("id is required")
	}
	return s.accounts.FindByID(ctx, id)
}

// ListAccounts returns one page of live accounts matching filter, oldest
// first.
func (s *IdentityService) ListAccounts(ctx context.Context, filter models.AccountFilter, pageNo, pageSize int) (*models.Page, error) {
	if pageNo <= 0 {
		pageNo = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)

	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return models.NewPage(pageNo, pageSize, 0, nil), nil
	}

	records, err := s.accounts.ListPage(ctx, filter, (pageNo-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	views := make([]*models.AccountView, 0, len(records))
	for _, a := range records {
		views = append(views, a.View())
	}
	return models.NewPage(pageNo, pageSize, total, views), nil
}

// EnsureAdmin creates an admin account with handle and credential unless a
// live account already holds handle. It reports whether one was created.
func (s *IdentityService) EnsureAdmin(ctx context.Context, handle, credential string) (int64, bool, error) {
	if blank(handle, credential) || tooShort(handle, minHandleLength) || tooShort(credential, minCredentialLength) {
		return 0, false, invalid("admin handle or credential is too short")
	}

	existing, err := s.accounts.FindOne(ctx, models.AccountFilter{Handle: handle})
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return 0, false, err
	}

	id, err := s.create(ctx, &models.Account{Handle: handle, Role: models.RoleAdmin}, credential)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
