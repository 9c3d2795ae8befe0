package models

import "time"

// AccountFilter is the predicate accepted by the account store. Zero-valued
// fields are ignored. Soft-deleted accounts never match.
type AccountFilter struct {
	ID               int64
	Handle           string
	CredentialDigest []byte
	// DisplayName and ProfileText match as substrings.
	DisplayName string
	ProfileText string
	Role        Role
}

// AccountPatch updates the account with the given ID. Nil fields are left
// unchanged.
type AccountPatch struct {
	ID               int64
	Handle           *string
	CredentialDigest []byte
	DisplayName      *string
	AvatarRef        *string
	ProfileText      *string
	Role             *Role
	SoftDeleted      *bool
	EditedAt         *time.Time
}

// ProfileUpdate carries the self-service profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	DisplayName *string
	AvatarRef   *string
	ProfileText *string
}

// AccountUpdate is the admin update of an existing account.
type AccountUpdate struct {
	ID          int64
	DisplayName *string
	AvatarRef   *string
	ProfileText *string
	Role        *Role
}

// NewAccount is an account created by an administrator.
type NewAccount struct {
	Handle      string
	DisplayName string
	AvatarRef   string
	ProfileText string
	Role        Role
}

// Page is one page of a listing.
type Page struct {
	PageNo     int
	PageSize   int
	Total      int64
	TotalPages int
	Records    []*AccountView
}

// NewPage builds a page and derives TotalPages from total and pageSize.
func NewPage(pageNo, pageSize int, total int64, records []*AccountView) *Page {
	p := &Page{PageNo: pageNo, PageSize: pageSize, Total: total, Records: records}
	if pageSize > 0 {
		p.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	if p.Records == nil {
		p.Records = []*AccountView{}
	}
	return p
}
