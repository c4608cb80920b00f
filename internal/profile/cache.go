package profile

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"castfeed/internal/identity"
	"castfeed/pkg/logx"
)

const (
	// DefaultTTL bounds how long a fetched snapshot is trusted.
	DefaultTTL = 10 * time.Minute
	// DefaultSize bounds the entry count.
	DefaultSize = 4096
)

// Fetcher is the identity-lookup collaborator. Partial results are normal.
type Fetcher interface {
	LookupUsers(ctx context.Context, fids []int64) ([]identity.Profile, error)
}

// Cache is a time-bounded snapshot cache in front of the batched identity
// lookup. Entries expire a fixed TTL after they were fetched.
//
// Safe for concurrent use.
type Cache struct {
	entries *expirable.LRU[int64, identity.Profile]
	fetch   Fetcher
	log     logx.Logger
}

func NewCache(fetch Fetcher, ttl time.Duration, size int, log logx.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if size <= 0 {
		size = DefaultSize
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Cache{
		entries: expirable.NewLRU[int64, identity.Profile](size, nil, ttl),
		fetch:   fetch,
		log:     log,
	}
}

// Resolve returns a snapshot for every requested fid. Fresh entries are
// served from the cache; everything else goes into a single batched lookup
// call, no matter how many ids were requested. Lookup failure is absorbed:
// unresolved ids get a placeholder snapshot, never an error.
func (c *Cache) Resolve(ctx context.Context, fids []int64) map[int64]identity.Profile {
	out := make(map[int64]identity.Profile, len(fids))

	var missing []int64
	for _, fid := range fids {
		if fid <= 0 {
			continue
		}
		if _, dup := out[fid]; dup {
			continue
		}
		if p, ok := c.entries.Get(fid); ok {
			out[fid] = p
			continue
		}
		out[fid] = identity.Profile{} // reserve the slot to dedupe requests
		missing = append(missing, fid)
	}

	if len(missing) > 0 {
		profiles, err := c.fetch.LookupUsers(ctx, missing)
		if err != nil {
			c.log.Warn("profile lookup failed", logx.Err(err), logx.Int("fids", len(missing)))
		} else {
			for _, p := range profiles {
				c.entries.Add(p.FID, p)
				if _, wanted := out[p.FID]; wanted {
					out[p.FID] = p
				}
			}
		}
	}

	for fid, p := range out {
		if p.IsZero() {
			out[fid] = identity.Placeholder(fid)
		}
	}
	return out
}

// ResolveOne is a convenience wrapper for single-id resolution.
func (c *Cache) ResolveOne(ctx context.Context, fid int64) identity.Profile {
	if fid <= 0 {
		return identity.Profile{}
	}
	return c.Resolve(ctx, []int64{fid})[fid]
}

// Len returns the current entry count (expired entries may be included
// until their next sweep).
func (c *Cache) Len() int { return c.entries.Len() }
