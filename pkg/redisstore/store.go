// Package redisstore provides a ready-made Store implementation persisting
// the ordered item collection in a single Redis list, one JSON document per
// item. It lets several processes share one loaded collection while the
// loader drives pagination.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loadwise/pageloader/pkg/paging"
)

// Prometheus metrics for store operations.
var storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pageloader_redisstore_errors_total",
	Help: "Redis store errors by operation",
}, []string{"operation"})

// List is a loader Store backed by a Redis list.
type List[T any] struct {
	redis  *redis.Client
	key    string
	logger zerolog.Logger
}

// NewList creates a store over the given Redis list key.
func NewList[T any](client *redis.Client, key string) (*List[T], error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("list key is required")
	}
	return &List[T]{
		redis:  client,
		key:    key,
		logger: log.With().Str("component", "redisstore").Str("key", key).Logger(),
	}, nil
}

// Put implements loader.Store. A nil range appends; otherwise items are
// written positionally starting at the range's lower bound, overwriting
// existing entries and extending the list past its end. A range starting
// beyond the list end is rejected, so stored positions always match the
// requested window.
func (s *List[T]) Put(ctx context.Context, items []T, at *paging.Range) error {
	encoded := make([]interface{}, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			storeErrors.WithLabelValues("put").Inc()
			return fmt.Errorf("marshal item %d: %w", i, err)
		}
		encoded[i] = data
	}

	if len(encoded) == 0 {
		return nil
	}

	if at == nil {
		if err := s.redis.RPush(ctx, s.key, encoded...).Err(); err != nil {
			storeErrors.WithLabelValues("put").Inc()
			return fmt.Errorf("redis rpush: %w", err)
		}
		return nil
	}

	length, err := s.redis.LLen(ctx, s.key).Result()
	if err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis llen: %w", err)
	}
	// A write starting past the list end would land at the wrong indexes;
	// the list never carries gaps.
	if int64(at.From) > length {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("range start %d is beyond the list end %d", at.From, length)
	}

	pipe := s.redis.Pipeline()
	for i, data := range encoded {
		pos := int64(at.From + i)
		if pos < length {
			pipe.LSet(ctx, s.key, pos, data)
		} else {
			pipe.RPush(ctx, s.key, data)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis pipeline: %w", err)
	}

	s.logger.Debug().
		Int("items", len(items)).
		Int("from", at.From).
		Msg("Stored window")
	return nil
}

// Items implements loader.Store. Entries that fail to decode are skipped
// with a warning; a Redis failure yields an empty slice.
func (s *List[T]) Items() []T {
	ctx := context.Background()

	raw, err := s.redis.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		storeErrors.WithLabelValues("items").Inc()
		s.logger.Warn().Err(err).Msg("Failed to read list")
		return nil
	}

	items := make([]T, 0, len(raw))
	for i, data := range raw {
		var item T
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			storeErrors.WithLabelValues("items").Inc()
			s.logger.Warn().Err(err).Int("index", i).Msg("Skipping undecodable entry")
			continue
		}
		items = append(items, item)
	}
	return items
}

// Len implements loader.Store. A Redis failure reads as empty.
func (s *List[T]) Len() int {
	length, err := s.redis.LLen(context.Background(), s.key).Result()
	if err != nil {
		storeErrors.WithLabelValues("len").Inc()
		s.logger.Warn().Err(err).Msg("Failed to read list length")
		return 0
	}
	return int(length)
}

// Clear drops the backing list.
func (s *List[T]) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		storeErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
