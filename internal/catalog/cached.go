package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Cached decorates a Resolver with a Redis read-through cache. Catalog rows
// change rarely but are resolved on every container save, so a short TTL is
// enough. Cache failures fall through to the underlying resolver; a miss in
// the underlying resolver is never cached.
type Cached struct {
	next Resolver
	rdb  redis.Cmdable
	ttl  time.Duration
}

// NewCached wraps next with a Redis cache.
func NewCached(next Resolver, rdb redis.Cmdable, ttl time.Duration) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl}
}

func (c *Cached) ResolveIncidentType(ctx context.Context, code string) (IncidentType, error) {
	key := "catalog:incident-type:" + code
	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var t IncidentType
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			return t, nil
		}
	}

	t, err := c.next.ResolveIncidentType(ctx, code)
	if err != nil {
		return IncidentType{}, err
	}
	if raw, err := json.Marshal(t); err == nil {
		c.rdb.Set(ctx, key, raw, c.ttl)
	}
	return t, nil
}

func (c *Cached) ResolveDenomination(ctx context.Context, id int64) (decimal.Decimal, error) {
	key := fmt.Sprintf("catalog:denomination:%d", id)
	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if v, err := decimal.NewFromString(raw); err == nil {
			return v, nil
		}
	}

	v, err := c.next.ResolveDenomination(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	c.rdb.Set(ctx, key, v.String(), c.ttl)
	return v, nil
}

func (c *Cached) ResolveQuality(ctx context.Context, id int64) (string, error) {
	key := fmt.Sprintf("catalog:quality:%d", id)
	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		return raw, nil
	}

	label, err := c.next.ResolveQuality(ctx, id)
	if err != nil {
		return "", err
	}
	c.rdb.Set(ctx, key, label, c.ttl)
	return label, nil
}
