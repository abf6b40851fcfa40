package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/lattice/pkg/domain"
)

// DefaultPrefix namespaces every hash written by the store.
const DefaultPrefix = "lattice:state:"

// maxUpdateRetries bounds optimistic retries of Update under contention.
const maxUpdateRetries = 100

// setScript stores a field unless that would create a key beyond the quota.
// ARGV: field, value, maxEntries, ttl in ms. Returns 1 when stored, -1 when over quota.
var setScript = backend.NewScript(`
local max = tonumber(ARGV[3])
if max > 0 and redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 and redis.call('HLEN', KEYS[1]) >= max then
	return -1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// getOrCreateScript returns {1, current} when the field exists, otherwise stores ARGV[2] and returns {0, value}.
// It returns {-1, ''} when creating the field would exceed the quota.
var getOrCreateScript = backend.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur then
	return {1, cur}
end
local max = tonumber(ARGV[3])
if max > 0 and redis.call('HLEN', KEYS[1]) >= max then
	return {-1, ''}
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return {0, ARGV[2]}
`)

// Store implements ports.StateStore using Redis. Each script is one hash; values are JSON encoded,
// so Bot handles cannot be stored.
type Store struct {
	client     backend.UniversalClient
	prefix     string
	ttl        time.Duration
	maxEntries int
}

type Option func(*Store)

// WithTTL sets the expiration of a script's state, refreshed on every write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithMaxEntries limits the number of keys per script. Zero means unlimited.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		s.maxEntries = n
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(scriptID string) string {
	return s.prefix + scriptID
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, scriptID, key string) (domain.Value, error) {
	raw, err := s.client.HGet(ctx, s.key(scriptID), key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(raw)
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, scriptID, key string, value domain.Value) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	res, err := setScript.Run(ctx, s.client, []string{s.key(scriptID)}, key, data, s.maxEntries, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if res < 0 {
		return fmt.Errorf("set %q: %w", key, domain.ErrStateQuotaExceeded)
	}
	return nil
}

// GetOrCreate returns the stored value or atomically stores create().
// create is only called when the key looked absent; if another writer wins the race its value is returned.
func (s *Store) GetOrCreate(ctx context.Context, scriptID, key string, create func() domain.Value) (domain.Value, error) {
	if v, err := s.Get(ctx, scriptID, key); err == nil || !errors.Is(err, domain.ErrStateNotFound) {
		return v, err
	}

	data, err := encode(create())
	if err != nil {
		return nil, err
	}
	res, err := getOrCreateScript.Run(ctx, s.client, []string{s.key(scriptID)}, key, data, s.maxEntries, s.ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to save to redis: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected redis reply %v", res)
	}
	if status, _ := res[0].(int64); status < 0 {
		return nil, fmt.Errorf("create %q: %w", key, domain.ErrStateQuotaExceeded)
	}
	raw, _ := res[1].(string)
	return decode(raw)
}

// Update replaces the value with fn(current) using optimistic locking.
// fn may be called more than once when other writers touch the same script concurrently.
func (s *Store) Update(ctx context.Context, scriptID, key string, fn func(domain.Value) (domain.Value, error)) (domain.Value, error) {
	hash := s.key(scriptID)
	var result domain.Value

	txf := func(tx *backend.Tx) error {
		var current domain.Value
		raw, err := tx.HGet(ctx, hash, key).Result()
		switch {
		case err == nil:
			if current, err = decode(raw); err != nil {
				return err
			}
		case errors.Is(err, backend.Nil):
			if s.maxEntries > 0 {
				n, err := tx.HLen(ctx, hash).Result()
				if err != nil {
					return err
				}
				if n >= int64(s.maxEntries) {
					return fmt.Errorf("update %q: %w", key, domain.ErrStateQuotaExceeded)
				}
			}
		default:
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		data, err := encode(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HSet(ctx, hash, key, data)
			if s.ttl > 0 {
				pipe.PExpire(ctx, hash, s.ttl)
			}
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, hash)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("update %q: too much contention", key)
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, scriptID, key string) error {
	return s.client.HDel(ctx, s.key(scriptID), key).Err()
}

// Keys lists the keys of a script, sorted.
func (s *Store) Keys(ctx context.Context, scriptID string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.key(scriptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every key of a script.
func (s *Store) Clear(ctx context.Context, scriptID string) error {
	return s.client.Del(ctx, s.key(scriptID)).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func encode(v domain.Value) (string, error) {
	if v == nil {
		v = domain.Null()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	return string(data), nil
}

func decode(raw string) (domain.Value, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return domain.FromAny(v)
}
