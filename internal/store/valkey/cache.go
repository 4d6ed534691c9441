package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/tablescan/internal/scanner"
)

// MatchCache stores raw scan matches keyed by content hash.
type MatchCache struct {
	client valkey.Client
	ttl    time.Duration
}

func NewMatchCache(client valkey.Client, ttl time.Duration) *MatchCache {
	return &MatchCache{client: client, ttl: ttl}
}

// Get returns the cached matches for key. A miss is not an error.
func (c *MatchCache) Get(ctx context.Context, key string) ([]scanner.RawMatch, bool, error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	data, err := resp.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	var matches []scanner.RawMatch
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, false, fmt.Errorf("decode cached matches: %w", err)
	}
	return matches, true, nil
}

// Set stores matches under key with the cache TTL.
func (c *MatchCache) Set(ctx context.Context, key string, matches []scanner.RawMatch) error {
	if matches == nil {
		matches = []scanner.RawMatch{}
	}
	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}

	cmd := c.client.B().Set().Key(key).Value(string(data))
	if c.ttl > 0 {
		return c.client.Do(ctx, cmd.Ex(c.ttl).Build()).Error()
	}
	return c.client.Do(ctx, cmd.Build()).Error()
}
