package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SchoolScope is the static ownership view of a school that authorization
// predicates compare against. It describes the target record's tenant, never
// the acting principal, so reading it cannot recurse into a policy check.
type SchoolScope struct {
	SchoolID        uuid.UUID `json:"school_id"`
	MunicipalityKey string    `json:"municipality_key"`
	ProvinceKey     string    `json:"province_key"`
	Active          bool      `json:"active"`
	Blocked         bool      `json:"blocked"`
}

// ScopeCache keeps school scope rows in Redis with write-through
// invalidation. School mutations delete the key after commit, so the hot
// path sees the new keys on the next read. Nil receiver or client degrades
// to direct loads.
type ScopeCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewScopeCache instantiates the cache helper.
func NewScopeCache(client *redis.Client, ttl time.Duration) *ScopeCache {
	return &ScopeCache{client: client, ttl: ttl}
}

func scopeKey(schoolID uuid.UUID) string {
	return fmt.Sprintf("directory:school_scope:%s", schoolID)
}

// Fetch loads a cached scope or populates it using the loader.
func (c *ScopeCache) Fetch(ctx context.Context, schoolID uuid.UUID, loader func(context.Context) (SchoolScope, error)) (SchoolScope, error) {
	if loader == nil {
		return SchoolScope{}, errors.New("directory: scope loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key := scopeKey(schoolID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var scope SchoolScope
		if err := json.Unmarshal(raw, &scope); err == nil {
			return scope, nil
		}
		// Corrupt payload: drop it and fall through to the loader.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return SchoolScope{}, fmt.Errorf("directory: scope cache get: %w", err)
	}
	// Collapse concurrent misses for the same school into one load.
	v, err, _ := c.group.Do(key, func() (any, error) {
		scope, err := loader(ctx)
		if err != nil {
			return SchoolScope{}, err
		}
		encoded, err := json.Marshal(scope)
		if err != nil {
			return SchoolScope{}, fmt.Errorf("directory: scope cache encode: %w", err)
		}
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			return SchoolScope{}, fmt.Errorf("directory: scope cache set: %w", err)
		}
		return scope, nil
	})
	if err != nil {
		return SchoolScope{}, err
	}
	return v.(SchoolScope), nil
}

// Invalidate removes the cached scope for a school.
func (c *ScopeCache) Invalidate(ctx context.Context, schoolID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, scopeKey(schoolID)).Err()
}
