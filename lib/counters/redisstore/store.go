// Package redisstore is the production backend for the counter store (C1),
// backed by Redis hashes for atomic field increments and SCAN for
// prefix-bounded key enumeration.
package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/weightgate/weightgate/lib/counters"
)

const (
	fieldExposures   = "exposures"
	fieldConversions = "conversions"
	fieldWeight      = "weight"
	fieldLastUpdated = "last_updated"

	scanBatchSize = 256
)

// Store is a counters.Store and lockmgr.KV implementation backed by a
// single Redis connection pool.
type Store struct {
	client *redis.Client
	// ttl is applied to a counter hash on every write when non-zero,
	// bounding the lifetime of orphaned experiment keys (SPEC_FULL §9).
	ttl time.Duration
}

// Config is the subset of connection parameters exposed in the external
// interface contract (REDIS_HOST/REDIS_PORT/REDIS_DB/REDIS_PASSWORD).
type Config struct {
	Host     string
	Port     int
	DB       int
	Password string
	// CounterTTL, if non-zero, is applied to each counter hash on every
	// write. Zero disables expiry, matching "keys persist indefinitely".
	CounterTTL time.Duration
}

// New constructs a Store and verifies connectivity with a PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr(cfg.Host, cfg.Port),
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, counters.NewError(counters.RetCStoreUnavailable, "failed to connect to redis", err)
	}

	return &Store{client: client, ttl: cfg.CounterTTL}, nil
}

func addr(host string, port int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 6379
	}
	return host + ":" + strconv.Itoa(port)
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func (s *Store) key(df, feature, variant string) string {
	return counters.Key{Datafile: df, Feature: feature, Variant: variant}.String()
}

func (s *Store) touchTTL(ctx context.Context, key string) {
	if s.ttl > 0 {
		s.client.Expire(ctx, key, s.ttl)
	}
}

func (s *Store) IncrExposure(ctx context.Context, df, feature, variant string) error {
	return s.incr(ctx, df, feature, variant, fieldExposures)
}

func (s *Store) IncrConversion(ctx context.Context, df, feature, variant string) error {
	return s.incr(ctx, df, feature, variant, fieldConversions)
}

func (s *Store) incr(ctx context.Context, df, feature, variant, field string) error {
	key := s.key(df, feature, variant)
	if err := s.client.HIncrBy(ctx, key, field, 1).Err(); err != nil {
		return counters.NewError(counters.RetCStoreUnavailable, "increment failed", err)
	}
	s.touchTTL(ctx, key)
	return nil
}

func (s *Store) GetCounters(ctx context.Context, df, feature, variant string) (counters.Record, bool, error) {
	key := s.key(df, feature, variant)
	res, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return counters.Record{}, false, counters.NewError(counters.RetCStoreUnavailable, "get counters failed", err)
	}
	if len(res) == 0 {
		return counters.Record{}, false, nil
	}

	rec := counters.Record{
		Exposures:   parseUint(res[fieldExposures]),
		Conversions: parseUint(res[fieldConversions]),
		LastUpdated: parseInt(res[fieldLastUpdated]),
	}
	if w, ok := res[fieldWeight]; ok {
		rec.Weight = parseFloat(w)
		rec.HasWeight = true
	}
	return rec, true, nil
}

func (s *Store) SetWeight(ctx context.Context, df, feature, variant string, weight float64, updatedAtUnix int64) error {
	key := s.key(df, feature, variant)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldWeight, weight, fieldLastUpdated, updatedAtUnix)
	if _, err := pipe.Exec(ctx); err != nil {
		return counters.NewError(counters.RetCStoreUnavailable, "set weight failed", err)
	}
	s.touchTTL(ctx, key)
	return nil
}

func (s *Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, counters.NewError(counters.RetCStoreUnavailable, "scan failed", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// --------------------------------------------------------------------------
// lockmgr.KV
// --------------------------------------------------------------------------

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, counters.NewError(counters.RetCStoreUnavailable, "get failed", err)
	}
	return val, true, nil
}

func (s *Store) SetIfUnset(ctx context.Context, key string, value []byte, ttlSeconds uint64) error {
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	if err := s.client.SetNX(ctx, key, value, ttl).Err(); err != nil {
		return counters.NewError(counters.RetCStoreUnavailable, "setnx failed", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return counters.NewError(counters.RetCStoreUnavailable, "delete failed", err)
	}
	return nil
}
