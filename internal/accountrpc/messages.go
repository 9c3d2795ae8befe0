package accountrpc

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Handle     string `json:"handle"`
	Credential string `json:"credential"`
	Confirm    string `json:"confirm"`
}

type LoginRequest struct {
	Handle     string `json:"handle"`
	Credential string `json:"credential"`
}

type LoginResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

type IDRequest struct {
	ID int64 `json:"id"`
}

type IDResponse struct {
	ID int64 `json:"id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// Account is the public view of an account. The admin-only fields are only
// filled by GetAccount.
type Account struct {
	ID          int64     `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarRef   string    `json:"avatar_ref,omitempty"`
	ProfileText string    `json:"profile_text,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`

	SoftDeleted bool       `json:"soft_deleted,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
}

type ProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarRef   *string `json:"avatar_ref,omitempty"`
	ProfileText *string `json:"profile_text,omitempty"`
}

type AvatarUploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type URLResponse struct {
	URL string `json:"url"`
}

type NewAccountRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	ProfileText string `json:"profile_text,omitempty"`
	Role        string `json:"role,omitempty"`
}

type UpdateAccountRequest struct {
	ID          int64   `json:"id"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarRef   *string `json:"avatar_ref,omitempty"`
	ProfileText *string `json:"profile_text,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// SaveRequest writes every non-empty field to the account with ID.
type SaveRequest struct {
	ID          int64  `json:"id"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	ProfileText string `json:"profile_text,omitempty"`
	Role        string `json:"role,omitempty"`
}

type ListRequest struct {
	PageNo      int    `json:"page_no,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
	ID          int64  `json:"id,omitempty"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	ProfileText string `json:"profile_text,omitempty"`
	Role        string `json:"role,omitempty"`
}

type Page struct {
	PageNo     int        `json:"page_no"`
	PageSize   int        `json:"page_size"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
	Records    []*Account `json:"records"`
}

// Encode converts a message into a Struct through its JSON form. Ids fit
// in a float64 without loss.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from s. A nil s leaves v untouched.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
