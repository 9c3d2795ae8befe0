package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gatekeeper:session:"

// record is the JSON layout of a binding in Redis.
type record struct {
	ID          int64       `json:"id"`
	Handle      string      `json:"handle"`
	DisplayName string      `json:"display_name,omitempty"`
	AvatarRef   string      `json:"avatar_ref,omitempty"`
	ProfileText string      `json:"profile_text,omitempty"`
	Role        models.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	EditedAt    time.Time   `json:"edited_at"`
}

func toRecord(a *models.Account) record {
	return record{
		ID:          a.ID,
		Handle:      a.Handle,
		DisplayName: a.DisplayName,
		AvatarRef:   a.AvatarRef,
		ProfileText: a.ProfileText,
		Role:        a.Role,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		EditedAt:    a.EditedAt,
	}
}

func (r record) account() *models.Account {
	return &models.Account{
		ID:          r.ID,
		Handle:      r.Handle,
		DisplayName: r.DisplayName,
		AvatarRef:   r.AvatarRef,
		ProfileText: r.ProfileText,
		Role:        r.Role,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		EditedAt:    r.EditedAt,
	}
}

// RedisStore is a Store backed by Redis string keys with a TTL.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Account, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: redis get: %w", common.ErrorStorage, err)
	}

	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: corrupt session %s: %w", common.ErrorStorage, id, err)
	}
	return r.account(), nil
}

func (s *RedisStore) Put(ctx context.Context, id string, account *models.Account) error {
	raw, err := json.Marshal(toRecord(account))
	if err != nil {
		return fmt.Errorf("%w: encode session: %w", common.ErrorInternal, err)
	}
	if err := s.rdb.Set(ctx, key(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", common.ErrorStorage, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Del(ctx, key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis del: %w", common.ErrorStorage, err)
	}
	return n > 0, nil
}
