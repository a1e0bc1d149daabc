package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/laggard/backend/internal/api/handlers"
	"github.com/wonny/laggard/backend/pkg/logger"
	"github.com/wonny/laggard/backend/pkg/metrics"
)

// RouterOptions configures middleware around the routes
type RouterOptions struct {
	Metrics        *metrics.Registry // nil = /metrics not mounted
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(screeningHandler *handlers.ScreeningHandler, opts RouterOptions, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Screening endpoints
	api.HandleFunc("/screening/latest", screeningHandler.GetLatest).Methods("GET")
	api.HandleFunc("/screening/{date}", screeningHandler.GetByDate).Methods("GET")
	api.HandleFunc("/screening/{date}/audit", screeningHandler.GetAudit).Methods("GET")
	api.HandleFunc("/screening/{date}/report", screeningHandler.GetReport).Methods("GET")

	if opts.RateLimitRPS > 0 {
		api.Use(rateLimitMiddleware(newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst)))
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "laggard-api",
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
