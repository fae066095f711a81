// pagewatch mirrors a paged HTTP JSON API into a local collection and keeps
// it fresh on an interval. The remote endpoint must accept skip/take query
// parameters and answer with a JSON array.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/loadwise/pageloader/pkg/loader"
	"github.com/loadwise/pageloader/pkg/logging"
	"github.com/loadwise/pageloader/pkg/paging"
	"github.com/loadwise/pageloader/pkg/redisstore"
	"github.com/loadwise/pageloader/pkg/refresh"
)

func main() {
	sourceURL := getEnv("SOURCE_URL", "")
	port := getEnv("PORT", "8080")
	pageSize := getEnvInt("PAGE_SIZE", 100)
	chunkLimit := getEnvInt("CHUNK_LIMIT", 0)
	rate := getEnvDuration("REFRESH_RATE", 30*time.Second)
	redisURL := getEnv("REDIS_URL", "")
	redisKey := getEnv("REDIS_KEY", "pagewatch:items")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") != "",
	})

	if sourceURL == "" {
		logger.Fatal().Msg("SOURCE_URL is required")
	}

	store, err := buildStore(logger, redisURL, redisKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build store")
	}

	cfg := loader.DefaultConfig(pageSize)
	cfg.Name = "pagewatch"
	cfg.CallTimeout = 30 * time.Second

	l, err := loader.New[json.RawMessage](&pagedSource{base: sourceURL, client: http.DefaultClient}, store, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create loader")
	}
	defer l.Close()

	refresher := refresh.New(l, refresh.Config{Rate: rate, ChunkLimit: chunkLimit})

	// Initial fill: walk forward until the source runs out.
	ctx := context.Background()
	if _, err := l.Load(ctx, paging.First); err != nil {
		logger.Fatal().Err(err).Msg("Initial load failed")
	}
	for l.CanAdvance() {
		if _, err := l.Load(ctx, paging.Next); err != nil {
			logger.Warn().Err(err).Msg("Fill stopped early")
			break
		}
	}
	logger.Info().Int("items", l.Held()).Str("source", sourceURL).Msg("Initial fill complete")

	go func() {
		for range time.Tick(rate) {
			if err := refresher.Start(refresh.Outdated, nil); err != nil {
				logger.Debug().Err(err).Msg("Refresh skipped")
			}
		}
	}()

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/items", itemsHandler(l))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	logger.Info().Str("addr", addr).Msg("Starting pagewatch server")
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// buildStore picks the Redis-backed store when configured, otherwise memory.
func buildStore(logger zerolog.Logger, redisURL, redisKey string) (loader.Store[json.RawMessage], error) {
	if redisURL == "" {
		return loader.NewSliceStore[json.RawMessage](), nil
	}

	client := redis.NewClient(&redis.Options{Addr: redisURL})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info().Str("redis", redisURL).Str("key", redisKey).Msg("Using Redis store")
	return redisstore.NewList[json.RawMessage](client, redisKey)
}

// pagedSource fetches one window from the remote endpoint.
type pagedSource struct {
	base   string
	client *http.Client
}

// Fetch implements loader.Source.
func (s *pagedSource) Fetch(ctx context.Context, w paging.Window) ([]json.RawMessage, error) {
	if !w.Valid() {
		return nil, nil
	}

	u, err := url.Parse(s.base)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	q := u.Query()
	q.Set("skip", strconv.Itoa(w.Skip))
	q.Set("take", strconv.Itoa(w.Take))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", w, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", w, resp.StatusCode)
	}

	var page []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode page %s: %w", w, err)
	}
	return page, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func itemsHandler(l *loader.Loader[json.RawMessage]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(l.Items()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
