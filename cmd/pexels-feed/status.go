package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/pexels-feed/pkg/feed"
	"github.com/Sternrassler/pexels-feed/pkg/logging"
	"github.com/Sternrassler/pexels-feed/pkg/metrics"
	"github.com/Sternrassler/pexels-feed/pkg/ratelimit"
)

const (
	statusReadTimeout     = 5 * time.Second
	statusWriteTimeout    = 10 * time.Second
	statusShutdownTimeout = 5 * time.Second
)

type snapshotter interface {
	Snapshot() feed.Snapshot
}

type quotaSource interface {
	GetState(ctx context.Context) (*ratelimit.RateLimitState, error)
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	Feed  feed.Snapshot             `json:"feed"`
	Quota *ratelimit.RateLimitState `json:"quota,omitempty"`
}

// newStatusRouter builds the status server routes. redisClient may be nil.
func newStatusRouter(ctrl snapshotter, quota quotaSource, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(statusWriteTimeout))

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(redisClient))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/status", statusHandler(ctrl, quota))

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// readyHandler reports 503 while the configured Redis is unreachable.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// statusHandler serves the feed snapshot. The photo list is omitted unless
// ?photos=true is given.
func statusHandler(ctrl snapshotter, quota quotaSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Feed: ctrl.Snapshot()}
		if withPhotos, _ := strconv.ParseBool(r.URL.Query().Get("photos")); !withPhotos {
			resp.Feed.Photos = nil
		}
		if quota != nil {
			state, err := quota.GetState(r.Context())
			if err == nil {
				resp.Quota = state
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// serveStatus runs the status server until ctx is done.
func serveStatus(ctx context.Context, addr string, handler http.Handler) error {
	logger := logging.NewLogger("status")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: statusReadTimeout,
		ReadTimeout:       statusReadTimeout,
		WriteTimeout:      statusWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Status server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), statusShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("Status server stopped")
	return nil
}
