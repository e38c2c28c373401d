package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huykn/mutation-cache/cache"
	"github.com/huykn/mutation-cache/key"
	"github.com/huykn/mutation-cache/types"
)

// Hash fields of one stored entry.
const (
	fieldKey       = "key"
	fieldValue     = "value"
	fieldState     = "state"
	fieldUpdatedAt = "updated_at"
	fieldVersion   = "version"
)

// versionKey is the counter that hands out entry versions. It sits under the
// prefix but never parses as a cache key, so scans skip it.
const versionKey = "~version"

// DefaultKeyPrefix namespaces entry hashes in Redis.
const DefaultKeyPrefix = "mutationcache:entry:"

// writeEntry stores a fresh entry under a new version. With a non-empty
// ARGV[5] it only writes while the entry is at that version, where "0" stands
// for an absent entry.
var writeEntry = redis.NewScript(`
if ARGV[5] ~= '' then
	local current = redis.call('HGET', KEYS[1], 'version')
	if not current then
		current = '0'
	end
	if current ~= ARGV[5] then
		return 0
	end
end
local version = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], 'key', ARGV[1], 'value', ARGV[2], 'state', ARGV[3], 'updated_at', ARGV[4], 'version', version)
return version
`)

// markStale only touches entries that still exist, so an invalidation racing a
// removal cannot resurrect a half-written hash.
var markStale = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	local version = redis.call('INCR', KEYS[2])
	redis.call('HSET', KEYS[1], 'state', ARGV[1], 'version', version)
	return 1
end
return 0
`)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces entry hashes. Defaults to DefaultKeyPrefix.
	KeyPrefix string

	// Serializer encodes cached values. Defaults to JSON.
	Serializer Serializer

	// ScanCount is the COUNT hint for SCAN. Defaults to 100.
	ScanCount int64
}

// RedisStore implements cache.Store with one Redis hash per entry.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	serializer Serializer
	scanCount  int64
	now        func() time.Time
}

// NewRedisStore creates a new Redis-based store and checks the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return NewRedisStoreWithClient(client, opts), nil
}

// NewRedisStoreWithClient creates a store over an existing client. Addr,
// Password and DB in opts are ignored.
func NewRedisStoreWithClient(client *redis.Client, opts RedisOptions) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.Serializer == nil {
		opts.Serializer = NewJSONSerializer()
	}
	if opts.ScanCount <= 0 {
		opts.ScanCount = 100
	}
	return &RedisStore{
		client:     client,
		prefix:     opts.KeyPrefix,
		serializer: opts.Serializer,
		scanCount:  opts.ScanCount,
		now:        time.Now,
	}
}

func (rs *RedisStore) redisKey(canon string) string {
	return rs.prefix + canon
}

// Get retrieves the entry stored at the exact key k.
func (rs *RedisStore) Get(ctx context.Context, k key.Key) (cache.Entry, bool, error) {
	fields, err := rs.client.HGetAll(ctx, rs.redisKey(k.String())).Result()
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("redis get %s: %w", k, err)
	}
	if len(fields) == 0 {
		return cache.Entry{}, false, nil
	}

	var value any
	if raw, ok := fields[fieldValue]; ok {
		if err := rs.serializer.Unmarshal([]byte(raw), &value); err != nil {
			return cache.Entry{}, false, fmt.Errorf("%w: %s: %v", ErrDeserialization, k, err)
		}
	}

	entry := cache.Entry{
		Key:   k,
		Value: value,
		State: types.State(fields[fieldState]),
	}
	if entry.State != types.Stale {
		entry.State = types.Fresh
	}
	if ns, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64); err == nil {
		entry.UpdatedAt = time.Unix(0, ns)
	}
	if v, err := strconv.ParseUint(fields[fieldVersion], 10, 64); err == nil {
		entry.Version = v
	}
	return entry, true, nil
}

// Set stores value at the exact key k and marks it fresh.
func (rs *RedisStore) Set(ctx context.Context, k key.Key, value any) error {
	_, err := rs.write(ctx, k, value, "")
	return err
}

// CompareAndSet stores value at k only if the entry is still at version.
func (rs *RedisStore) CompareAndSet(ctx context.Context, k key.Key, value any, version uint64) (bool, error) {
	return rs.write(ctx, k, value, strconv.FormatUint(version, 10))
}

func (rs *RedisStore) write(ctx context.Context, k key.Key, value any, expected string) (bool, error) {
	data, err := rs.serializer.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrSerialization, k, err)
	}

	canon := k.String()
	n, err := writeEntry.Run(ctx, rs.client,
		[]string{rs.redisKey(canon), rs.redisKey(versionKey)},
		canon, data, string(types.Fresh), rs.now().UnixNano(), expected,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis set %s: %w", k, err)
	}
	return n != 0, nil
}

// InvalidateWhere marks every entry whose key satisfies pred stale.
func (rs *RedisStore) InvalidateWhere(ctx context.Context, pred func(key.Key) bool) (int, error) {
	targets, err := rs.selectKeys(ctx, pred)
	if err != nil || len(targets) == 0 {
		return 0, err
	}

	pipe := rs.client.Pipeline()
	cmds := make([]*redis.Cmd, len(targets))
	for i, rkey := range targets {
		cmds[i] = markStale.Eval(ctx, pipe, []string{rkey, rs.redisKey(versionKey)}, string(types.Stale))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis invalidate: %w", err)
	}

	n := 0
	for _, cmd := range cmds {
		if v, err := cmd.Int(); err == nil && v == 1 {
			n++
		}
	}
	return n, nil
}

// RemoveWhere deletes every entry whose key satisfies pred.
func (rs *RedisStore) RemoveWhere(ctx context.Context, pred func(key.Key) bool) (int, error) {
	targets, err := rs.selectKeys(ctx, pred)
	if err != nil || len(targets) == 0 {
		return 0, err
	}

	pipe := rs.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(targets))
	for i, rkey := range targets {
		cmds[i] = pipe.Del(ctx, rkey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis remove: %w", err)
	}

	n := 0
	for _, cmd := range cmds {
		n += int(cmd.Val())
	}
	return n, nil
}

// Keys returns a snapshot of every key currently held.
func (rs *RedisStore) Keys(ctx context.Context) ([]key.Key, error) {
	var keys []key.Key
	err := rs.scan(ctx, func(_ string, k key.Key) {
		keys = append(keys, k)
	})
	return keys, err
}

func (rs *RedisStore) selectKeys(ctx context.Context, pred func(key.Key) bool) ([]string, error) {
	var targets []string
	err := rs.scan(ctx, func(rkey string, k key.Key) {
		if pred(k) {
			targets = append(targets, rkey)
		}
	})
	return targets, err
}

// scan walks every entry hash under the prefix. SCAN may report a key more
// than once; duplicates are dropped.
func (rs *RedisStore) scan(ctx context.Context, visit func(rkey string, k key.Key)) error {
	seen := make(map[string]struct{})
	iter := rs.client.Scan(ctx, 0, escapeGlob(rs.prefix)+"*", rs.scanCount).Iterator()
	for iter.Next(ctx) {
		rkey := iter.Val()
		if _, dup := seen[rkey]; dup {
			continue
		}
		seen[rkey] = struct{}{}

		k, err := key.Parse(strings.TrimPrefix(rkey, rs.prefix))
		if err != nil {
			// Not one of ours.
			continue
		}
		visit(rkey, k)
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Clear removes every entry under the prefix.
func (rs *RedisStore) Clear(ctx context.Context) error {
	_, err := rs.RemoveWhere(ctx, func(key.Key) bool { return true })
	return err
}

// Close closes the Redis connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	// ErrConnection is returned when Redis cannot be reached.
	ErrConnection = errors.New("redis connection failed")

	// ErrSerialization is returned when a value cannot be encoded.
	ErrSerialization = errors.New("serialization failed")

	// ErrDeserialization is returned when a stored value cannot be decoded.
	ErrDeserialization = errors.New("deserialization failed")
)
