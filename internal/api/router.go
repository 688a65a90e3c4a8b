package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/YuvrajArora777/Finsight-Clean/internal/api/handlers"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/redis"
)

// apiRateLimit bounds requests per client IP across the /api surface.
var apiRateLimit = redis.RateLimitConfig{
	Key:    "api",
	Limit:  120,
	Window: time.Minute,
}

// NewRouter creates and configures the HTTP router. limiter may be nil
// when redis is disabled.
// ⭐ SSOT: routing configuration happens in this function only
func NewRouter(viewHandler *handlers.ViewHandler, pipelineHandler *handlers.PipelineHandler, limiter *redis.RateLimiter, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Read surface
	api.HandleFunc("/symbols", viewHandler.GetSymbols).Methods("GET")
	api.HandleFunc("/view", viewHandler.GetAllViews).Methods("GET")
	api.HandleFunc("/view/{symbol}", viewHandler.GetView).Methods("GET")
	api.HandleFunc("/view/{symbol}/stream", viewHandler.StreamView).Methods("GET")

	// Pipeline control and observability
	api.HandleFunc("/pipeline/run", pipelineHandler.TriggerRun).Methods("POST")
	api.HandleFunc("/runs/latest", pipelineHandler.GetLatestRun).Methods("GET")

	if limiter != nil {
		api.Use(rateLimitMiddleware(limiter, log))
	}
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// rateLimitMiddleware enforces the per-IP sliding window on /api routes
func rateLimitMiddleware(limiter *redis.RateLimiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := apiRateLimit
			cfg.Key = "api:" + clientIP(r)

			allowed, remaining, err := limiter.Allow(r.Context(), cfg)
			if err != nil {
				// Redis trouble must not take the read surface down
				log.WithError(err).Warn("Rate limit check failed, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "finsight-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
