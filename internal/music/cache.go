package music

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	redislib "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	metadataKeyPrefix  = "music:meta:"
	defaultMetadataTTL = 10 * time.Minute

	// sharedFetchTimeout bounds a collapsed lookup independently of the
	// caller that started it.
	sharedFetchTimeout = 30 * time.Second
)

// CachedResolver wraps a Resolver with a Redis-backed metadata cache and
// collapses concurrent lookups of the same locator. Streams are never cached.
// A nil client disables the cache but keeps the lookup collapsing.
type CachedResolver struct {
	next   Resolver
	client *redislib.Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewCachedResolver(next Resolver, client *redislib.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = defaultMetadataTTL
	}
	return &CachedResolver{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

func (c *CachedResolver) Validate(locator string) bool {
	return c.next.Validate(locator)
}

func (c *CachedResolver) FetchMetadata(ctx context.Context, locator string) (Track, error) {
	if track, ok := c.lookup(ctx, locator); ok {
		return track, nil
	}

	// followers must not inherit the first caller's deadline or cancellation
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(locator, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(shared, sharedFetchTimeout)
		defer cancel()

		track, err := c.next.FetchMetadata(fetchCtx, locator)
		if err != nil {
			return Track{}, err
		}
		c.store(fetchCtx, locator, track)
		return track, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Track{}, res.Err
		}
		return res.Val.(Track), nil
	case <-ctx.Done():
		return Track{}, ctx.Err()
	}
}

func (c *CachedResolver) OpenStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	return c.next.OpenStream(ctx, locator)
}

func (c *CachedResolver) lookup(ctx context.Context, locator string) (Track, bool) {
	if c.client == nil {
		return Track{}, false
	}

	raw, err := c.client.Get(ctx, metadataKey(locator)).Bytes()
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			zlog.Warn().Err(err).Str("locator", locator).Msg("metadata cache read failed")
		}
		return Track{}, false
	}

	var track Track
	if err := json.Unmarshal(raw, &track); err != nil {
		zlog.Warn().Err(err).Str("locator", locator).Msg("metadata cache entry is corrupt")
		return Track{}, false
	}
	return track, true
}

func (c *CachedResolver) store(ctx context.Context, locator string, track Track) {
	if c.client == nil {
		return
	}

	track.RequestedBy = ""
	payload, err := json.Marshal(track)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, metadataKey(locator), payload, c.ttl).Err(); err != nil {
		zlog.Warn().Err(err).Str("locator", locator).Msg("metadata cache write failed")
	}
}

func metadataKey(locator string) string {
	return metadataKeyPrefix + locator
}
