package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/afroash/comfort-hub/internal/control"
	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/schedule"
	"github.com/rs/zerolog"
)

// Error kinds returned in API error bodies
const (
	ErrKindInvalidLightTime    = "invalid_light_time"
	ErrKindInvalidDuration     = "invalid_duration"
	ErrKindSettingsMissing     = "settings_missing"
	ErrKindInvalidRequest      = "invalid_request"
	ErrKindNoDataAvailable     = "no_data_available"
	ErrKindUpstreamUnavailable = "upstream_unavailable"
	ErrKindInternal            = "internal_error"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIHandler handles the HTTP API
type APIHandler struct {
	controller *control.Controller
	stats      StatsSource
	archive    ArchiveStore
	version    string
	logger     zerolog.Logger
}

// NewAPIHandler creates a new API handler. archive may be nil.
func NewAPIHandler(controller *control.Controller, stats StatsSource, archive ArchiveStore, version string, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		controller: controller,
		stats:      stats,
		archive:    archive,
		version:    version,
		logger:     logger,
	}
}

// HandlePutSettings accepts new settings
func (api *APIHandler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var msg models.SettingsMessage
	if err := decodeBody(w, r, &msg); err != nil {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, err.Error())
		return
	}
	settings, err := msg.ToSettings()
	if err != nil {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, err.Error())
		return
	}

	result, err := api.controller.SubmitSettings(r.Context(), *settings)
	if err != nil {
		api.writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGetSettings returns the current settings
func (api *APIHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := api.controller.CurrentSettings()
	if err != nil {
		api.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleSensorsData accepts a reading and returns the actuator decision
func (api *APIHandler) HandleSensorsData(w http.ResponseWriter, r *http.Request) {
	var msg models.ReadingMessage
	if err := decodeBody(w, r, &msg); err != nil {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, err.Error())
		return
	}
	reading, err := msg.ToReading(api.controller.Location())
	if err != nil {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, err.Error())
		return
	}

	decision, err := api.controller.SubmitReading(r.Context(), *reading)
	if err != nil {
		api.writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// HandleGraph returns up to size readings in insertion order
func (api *APIHandler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("size")
	if raw == "" {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, "size is required")
		return
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, "size must be an integer")
		return
	}

	readings, err := api.controller.QueryReadings(size)
	if err != nil {
		api.writeControlError(w, err)
		return
	}

	loc := api.controller.Location()
	points := make([]models.GraphPoint, len(readings))
	for i, reading := range readings {
		points[i] = reading.ToGraphPoint(loc)
	}
	writeJSON(w, http.StatusOK, points)
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// HandleHealth reports liveness
func (api *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: api.version,
		Time:    time.Now().In(api.controller.Location()),
	})
}

// HandleStats returns store statistics
func (api *APIHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.stats.Stats())
}

// HandleArchiveStats returns archive database statistics
func (api *APIHandler) HandleArchiveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := api.archive.GetStorageStats()
	if err != nil {
		api.logger.Error().Err(err).Msg("Failed to read archive stats")
		api.writeError(w, http.StatusInternalServerError, ErrKindInternal, "failed to read archive stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleArchiveDaily returns daily aggregates. start and end are YYYY-MM-DD
// dates and default to the last seven days.
func (api *APIHandler) HandleArchiveDaily(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	end := now
	start := now.AddDate(0, 0, -7)

	if raw := r.URL.Query().Get("start"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, "start must be YYYY-MM-DD")
			return
		}
		start = day
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, "end must be YYYY-MM-DD")
			return
		}
		end = day.Add(24*time.Hour - time.Second)
	}
	if end.Before(start) {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, "end is before start")
		return
	}

	stats, err := api.archive.GetDailyStats(start, end)
	if err != nil {
		api.logger.Error().Err(err).Msg("Failed to read daily stats")
		api.writeError(w, http.StatusInternalServerError, ErrKindInternal, "failed to read daily stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

const (
	defaultRecordLimit = 500
	maxRecordLimit     = 5000
)

// HandleArchiveRecords returns archived readings with their decisions,
// oldest first. start and end are RFC 3339 and default to the last day.
func (api *APIHandler) HandleArchiveRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	limit := defaultRecordLimit

	for name, dst := range map[string]*time.Time{"start": &start, "end": &end} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, name+" must be an RFC 3339 timestamp")
			return
		}
		*dst = t
	}
	if end.Before(start) {
		api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, "end is before start")
		return
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecordLimit {
			api.writeError(w, http.StatusBadRequest, ErrKindInvalidRequest, fmt.Sprintf("limit must be between 1 and %d", maxRecordLimit))
			return
		}
		limit = n
	}

	records, err := api.archive.GetRecordsInRange(start, end, limit)
	if err != nil {
		api.logger.Error().Err(err).Msg("Failed to read archive records")
		api.writeError(w, http.StatusInternalServerError, ErrKindInternal, "failed to read archive records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleArchiveLatest returns the most recent archived record
func (api *APIHandler) HandleArchiveLatest(w http.ResponseWriter, r *http.Request) {
	record, err := api.archive.GetLatestRecord()
	if err != nil {
		api.logger.Error().Err(err).Msg("Failed to read latest archive record")
		api.writeError(w, http.StatusInternalServerError, ErrKindInternal, "failed to read archive")
		return
	}
	if record == nil {
		api.writeError(w, http.StatusNotFound, ErrKindNoDataAvailable, "archive is empty")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// classifyError maps a domain error to an HTTP status and error kind
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, schedule.ErrInvalidLightTime):
		return http.StatusBadRequest, ErrKindInvalidLightTime
	case errors.Is(err, schedule.ErrInvalidDuration):
		return http.StatusBadRequest, ErrKindInvalidDuration
	case errors.Is(err, control.ErrSettingsMissing):
		return http.StatusBadRequest, ErrKindSettingsMissing
	case errors.Is(err, control.ErrInvalidCount):
		return http.StatusBadRequest, ErrKindInvalidRequest
	case errors.Is(err, control.ErrNoDataAvailable):
		return http.StatusNotFound, ErrKindNoDataAvailable
	case errors.Is(err, schedule.ErrUpstreamUnavailable):
		return http.StatusBadGateway, ErrKindUpstreamUnavailable
	default:
		return http.StatusInternalServerError, ErrKindInternal
	}
}

func (api *APIHandler) writeControlError(w http.ResponseWriter, err error) {
	status, kind := classifyError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		api.logger.Error().Err(err).Msg("Request failed")
		message = "internal error"
	}
	api.writeError(w, status, kind, message)
}

func (api *APIHandler) writeError(w http.ResponseWriter, status int, kind, message string) {
	api.logger.Debug().Int("status", status).Str("error", kind).Msg(message)
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("malformed JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
