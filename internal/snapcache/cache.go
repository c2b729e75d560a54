// Package snapcache keeps built snapshots in Redis so repeated reads of an
// unchanged workspace skip the tree walk. Entries expire after a TTL and are
// deleted whenever a mutation touches their workspace.
//
// Each snapshot key has a version counter next to it, bumped on every
// invalidation. A build reads the counter (a Stamp) before it starts, and the
// entry is only written if the counter has not moved, so a build that raced a
// commit in any process is never cached.
//
// The cache never fails a read: Redis errors degrade to a miss and write
// errors are logged. A nil *Cache is a valid, disabled cache.
package snapcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/clara/internal/snapshot"
)

const (
	// AllKey holds the list of every live workspace snapshot
	AllKey = "ws:all:snap"
	// AllVersionKey counts invalidations of AllKey
	AllVersionKey = "ws:all:ver"
)

const payloadVersion = 1

// DefaultTTL applies when New is given a non-positive ttl
const DefaultTTL = 5 * time.Minute

// WorkspaceKey is the key of one workspace's snapshot
func WorkspaceKey(id int64) string {
	return fmt.Sprintf("ws:%d:snap", id)
}

// WorkspaceVersionKey counts invalidations of WorkspaceKey(id)
func WorkspaceVersionKey(id int64) string {
	return fmt.Sprintf("ws:%d:ver", id)
}

var errStale = errors.New("snapshot invalidated during build")

// Stamp is the version of a cache key observed before a build
type Stamp struct {
	key   string
	value int64
	ok    bool
}

// Cache is a read-through store for snapshots
type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger log.FieldLogger
	now    func() time.Time
}

type cachedSnapshot struct {
	Version  int             `json:"version"`
	CachedAt time.Time       `json:"cachedAt"`
	Rev      string          `json:"rev"`
	Payload  json.RawMessage `json:"payload"`
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger used for Redis errors
func WithLogger(logger log.FieldLogger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New wraps client. A nil client yields a nil (disabled) cache.
func New(client *redis.Client, ttl time.Duration, opts ...Option) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{redis: client, ttl: ttl, logger: log.StandardLogger(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects to the Redis server at url (redis://...). An empty url
// returns a nil cache.
func Open(url string, ttl time.Duration, opts ...Option) (*Cache, error) {
	if url == "" {
		return nil, nil
	}
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return New(redis.NewClient(options), ttl, opts...), nil
}

// Close releases the Redis connection pool
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.redis.Close()
}

// Workspace returns the cached snapshot of workspace id
func (c *Cache) Workspace(ctx context.Context, id int64) (*snapshot.WorkspaceSnapshot, bool) {
	var snap snapshot.WorkspaceSnapshot
	if !c.get(ctx, WorkspaceKey(id), &snap) {
		return nil, false
	}
	return &snap, true
}

// WorkspaceStamp reads the version of workspace id. Take it before building.
func (c *Cache) WorkspaceStamp(ctx context.Context, id int64) Stamp {
	return c.stamp(ctx, WorkspaceVersionKey(id))
}

// PutWorkspace stores the snapshot of one workspace unless it was
// invalidated after stamp was taken
func (c *Cache) PutWorkspace(ctx context.Context, snap *snapshot.WorkspaceSnapshot, stamp Stamp) {
	c.put(ctx, WorkspaceKey(snap.ID), snap, stamp)
}

// AllWorkspaces returns the cached list of every live workspace
func (c *Cache) AllWorkspaces(ctx context.Context) ([]snapshot.WorkspaceSnapshot, bool) {
	var all []snapshot.WorkspaceSnapshot
	if !c.get(ctx, AllKey, &all) {
		return nil, false
	}
	if all == nil {
		all = []snapshot.WorkspaceSnapshot{}
	}
	return all, true
}

// AllStamp reads the version of the all-workspaces list
func (c *Cache) AllStamp(ctx context.Context) Stamp {
	return c.stamp(ctx, AllVersionKey)
}

// PutAllWorkspaces stores the list of every live workspace unless it was
// invalidated after stamp was taken
func (c *Cache) PutAllWorkspaces(ctx context.Context, all []snapshot.WorkspaceSnapshot, stamp Stamp) {
	c.put(ctx, AllKey, all, stamp)
}

// InvalidateWorkspace drops the snapshot of wsID and the all-workspaces list
// and bumps both versions, so builds already in flight are not stored.
func (c *Cache) InvalidateWorkspace(ctx context.Context, wsID int64) {
	if c == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, WorkspaceVersionKey(wsID))
		pipe.Incr(ctx, AllVersionKey)
		pipe.Del(ctx, WorkspaceKey(wsID), AllKey)
		return nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("workspace_id", wsID).Error("failed to invalidate snapshot cache entry")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("failed to read snapshot cache entry")
		return false
	}

	var entry cachedSnapshot
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Version != payloadVersion {
		c.logger.WithField("key", key).Warn("discarding unreadable snapshot cache entry")
		return false
	}
	if err := json.Unmarshal(entry.Payload, dest); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("discarding unreadable snapshot cache entry")
		return false
	}
	return true
}

func (c *Cache) stamp(ctx context.Context, verKey string) Stamp {
	if c == nil {
		return Stamp{}
	}
	n, err := c.redis.Get(ctx, verKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.WithError(err).WithField("key", verKey).Error("failed to read snapshot cache version")
		return Stamp{}
	}
	return Stamp{key: verKey, value: n, ok: true}
}

func (c *Cache) put(ctx context.Context, key string, v any, stamp Stamp) {
	if c == nil || !stamp.ok {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("failed to marshal snapshot cache payload")
		return
	}
	rev, err := snapshot.Rev(v)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("failed to compute snapshot rev")
		return
	}
	data, err := json.Marshal(cachedSnapshot{
		Version:  payloadVersion,
		CachedAt: c.now().UTC(),
		Rev:      rev,
		Payload:  payload,
	})
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("failed to marshal snapshot cache entry")
		return
	}

	// WATCH aborts the SET if an invalidation lands between the check and EXEC
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Get(ctx, stamp.key).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if n != stamp.value {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, stamp.key)
	switch {
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.logger.WithField("key", key).Debug("skipping snapshot built before an invalidation")
	case err != nil:
		c.logger.WithError(err).WithField("key", key).Error("failed to store snapshot cache entry")
	}
}
