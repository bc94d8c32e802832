package server

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// HTTPMetrics instruments routes and serves the metrics exposition
type HTTPMetrics interface {
	WrapHandler(route string, next http.Handler) http.Handler
	Handler() http.Handler
}

// RouterConfig holds the pieces the router is assembled from
type RouterConfig struct {
	API            *APIHandler
	Stream         *StreamHandler
	Metrics        HTTPMetrics // nil disables instrumentation and /metrics
	MetricsPath    string
	AllowedOrigins []string
	Archive        bool
}

// NewRouter builds the HTTP handler tree
func NewRouter(config RouterConfig, logger zerolog.Logger) http.Handler {
	router := mux.NewRouter()

	route := func(name, path string, h http.HandlerFunc, methods ...string) {
		var handler http.Handler = h
		if config.Metrics != nil {
			handler = config.Metrics.WrapHandler(name, handler)
		}
		router.Handle(path, handler).Methods(methods...)
	}

	api := config.API
	route("settings_put", "/settings", api.HandlePutSettings, http.MethodPut)
	route("settings_get", "/settings", api.HandleGetSettings, http.MethodGet)
	route("sensors_data", "/sensors_data", api.HandleSensorsData, http.MethodPost)
	route("graph", "/graph", api.HandleGraph, http.MethodGet)
	route("health", "/health", api.HandleHealth, http.MethodGet)
	route("stats", "/stats", api.HandleStats, http.MethodGet)

	if config.Archive {
		route("archive_stats", "/api/archive/stats", api.HandleArchiveStats, http.MethodGet)
		route("archive_daily", "/api/archive/daily", api.HandleArchiveDaily, http.MethodGet)
		route("archive_records", "/api/archive/records", api.HandleArchiveRecords, http.MethodGet)
		route("archive_latest", "/api/archive/latest", api.HandleArchiveLatest, http.MethodGet)
	}

	if config.Stream != nil {
		route("stream", "/sensor-stream", config.Stream.ServeHTTP, http.MethodGet)
		route("hubs", "/hubs", config.Stream.HandleHubs, http.MethodGet)
	}

	if config.Metrics != nil {
		path := config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, config.Metrics.Handler()).Methods(http.MethodGet)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrKindInvalidRequest, Message: "no such endpoint"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: ErrKindInvalidRequest, Message: "method not allowed"})
	})

	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Accept"}),
	)

	return handlers.LoggingHandler(accessLogWriter{logger}, cors(router))
}

// accessLogWriter feeds combined-format access log lines into zerolog
type accessLogWriter struct {
	logger zerolog.Logger
}

func (a accessLogWriter) Write(p []byte) (int, error) {
	line := string(p)
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	a.logger.Info().Str("component", "http").Msg(line)
	return len(p), nil
}
