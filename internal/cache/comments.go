package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quitpath/internal/model"
)

const (
	// ForestKeyPrefix is the key prefix for per-post comment forests
	ForestKeyPrefix = "comments:post:"

	// GenerationKeyPrefix is the key prefix for per-post mutation counters
	GenerationKeyPrefix = "comments:gen:"

	// DefaultForestTTL is how long a forest stays cached without writes
	DefaultForestTTL = 10 * time.Minute

	// maxApplyAttempts bounds optimistic-transaction retries under contention
	maxApplyAttempts = 8

	// generationTTL outlives any load, so a counter never resets mid-load
	generationTTL = 24 * time.Hour
)

var (
	// ErrCacheMiss is returned by Apply when the post's forest is not cached.
	ErrCacheMiss = errors.New("comment forest not cached")

	// ErrContention is returned when Apply keeps losing the WATCH race.
	ErrContention = errors.New("comment forest update contended")
)

// ApplyFunc transforms a forest. It must be pure: Apply may call it several
// times when a concurrent writer wins the race.
type ApplyFunc func(forest []model.Comment) ([]model.Comment, bool)

// ForestStore holds one comment forest per post.
//
// Each post also has a generation counter that every mutation bumps, cached or
// not. A load reads the generation before fetching and fills the cache only if
// it has not moved, so a forest fetched before a confirmed mutation is never
// cached after it.
type ForestStore interface {
	// Get returns the cached forest. found=false on a miss.
	Get(ctx context.Context, postID string) (forest []model.Comment, found bool, err error)

	// Generation returns the post's current generation, 0 if never mutated.
	Generation(ctx context.Context, postID string) (int64, error)

	// Fill caches a freshly loaded forest if the generation is still gen.
	// stored=false means a mutation landed since gen was read.
	Fill(ctx context.Context, postID string, forest []model.Comment, gen int64) (stored bool, err error)

	// Apply bumps the generation, then runs fn against the current forest
	// inside an optimistic transaction and stores the result when fn reports
	// a change. Returns ErrCacheMiss when nothing is cached for the post.
	Apply(ctx context.Context, postID string, fn ApplyFunc) (forest []model.Comment, applied bool, err error)

	// Invalidate drops the cached forest and bumps the generation so the next
	// read refetches it.
	Invalidate(ctx context.Context, postID string) error
}

// RedisForestStore implements ForestStore with one JSON string per post.
type RedisForestStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewForestStore creates a new ForestStore backed by Redis.
func NewForestStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisForestStore {
	if ttl <= 0 {
		ttl = DefaultForestTTL
	}
	return &RedisForestStore{client: client, ttl: ttl, log: log.Named("forest_cache")}
}

// forestKey returns the Redis key for a post's comment forest.
func forestKey(postID string) string {
	return ForestKeyPrefix + postID
}

func generationKey(postID string) string {
	return GenerationKeyPrefix + postID
}

func (s *RedisForestStore) Get(ctx context.Context, postID string) ([]model.Comment, bool, error) {
	raw, err := s.client.Get(ctx, forestKey(postID)).Bytes()
	if err == redis.Nil {
		s.log.Debug("get: miss", zap.String("post", postID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get forest: %w", err)
	}

	forest, err := decodeForest(raw)
	if err != nil {
		return nil, false, err
	}
	return forest, true, nil
}

func (s *RedisForestStore) Generation(ctx context.Context, postID string) (int64, error) {
	gen, err := readGeneration(ctx, s.client, generationKey(postID))
	if err != nil {
		return 0, fmt.Errorf("get forest generation: %w", err)
	}
	return gen, nil
}

func (s *RedisForestStore) Fill(ctx context.Context, postID string, forest []model.Comment, gen int64) (bool, error) {
	raw, err := encodeForest(forest)
	if err != nil {
		return false, err
	}
	key, genKey := forestKey(postID), generationKey(postID)

	stored := false
	txf := func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		stored = err == nil
		return err
	}

	err = s.client.Watch(ctx, txf, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		stored = false
		err = nil
	}
	if err != nil {
		return false, fmt.Errorf("fill forest: %w", err)
	}
	s.log.Debug("fill",
		zap.String("post", postID),
		zap.Int64("generation", gen),
		zap.Bool("stored", stored),
		zap.Int("bytes", len(raw)),
	)
	return stored, nil
}

func (s *RedisForestStore) Apply(ctx context.Context, postID string, fn ApplyFunc) ([]model.Comment, bool, error) {
	key := forestKey(postID)
	start := time.Now()

	if err := s.bump(ctx, postID); err != nil {
		return nil, false, err
	}

	var (
		result  []model.Comment
		applied bool
	)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}

		current, err := decodeForest(raw)
		if err != nil {
			return err
		}

		result, applied = fn(current)
		if !applied {
			return nil
		}

		encoded, err := encodeForest(result)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			s.log.Debug("apply ok",
				zap.String("post", postID),
				zap.Bool("applied", applied),
				zap.Int("attempt", attempt),
				zap.Duration("duration", time.Since(start)),
			)
			return result, applied, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, ErrCacheMiss
		}
		return nil, false, fmt.Errorf("apply forest update: %w", err)
	}

	s.log.Warn("apply contended", zap.String("post", postID), zap.Int("attempts", maxApplyAttempts))
	return nil, false, ErrContention
}

func (s *RedisForestStore) Invalidate(ctx context.Context, postID string) error {
	genKey := generationKey(postID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, forestKey(postID))
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate forest: %w", err)
	}
	s.log.Debug("invalidate", zap.String("post", postID))
	return nil
}

func (s *RedisForestStore) bump(ctx context.Context, postID string) error {
	genKey := generationKey(postID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("bump forest generation: %w", err)
	}
	return nil
}

func readGeneration(ctx context.Context, c redis.Cmdable, key string) (int64, error) {
	gen, err := c.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func encodeForest(forest []model.Comment) ([]byte, error) {
	if forest == nil {
		forest = []model.Comment{}
	}
	raw, err := json.Marshal(forest)
	if err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}
	return raw, nil
}

func decodeForest(raw []byte) ([]model.Comment, error) {
	var forest []model.Comment
	if err := json.Unmarshal(raw, &forest); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	return forest, nil
}
