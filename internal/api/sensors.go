package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
	"github.com/nerrad567/econet-bridge/internal/entity"
)

// SensorListResponse is the body of GET /api/v1/sensors.
type SensorListResponse struct {
	Sensors []entity.Sensor `json:"sensors"`
	Count   int             `json:"count"`
}

// handleListSensors lists registered sensors, optionally filtered by ?kind=.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	var sensors []entity.Sensor

	switch kind := econet.Kind(r.URL.Query().Get("kind")); kind {
	case "":
		sensors = s.registry.List()
	case econet.KindController, econet.KindMixer, econet.KindLambda:
		sensors = s.registry.ListByKind(kind)
	default:
		writeBadRequest(w, "kind must be one of controller, mixer, lambda")
		return
	}

	if sensors == nil {
		sensors = []entity.Sensor{}
	}
	writeJSON(w, http.StatusOK, SensorListResponse{Sensors: sensors, Count: len(sensors)})
}

// handleGetSensor returns one sensor by unique id.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sensor, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("sensor lookup failed", "unique_id", id, "error", err)
		writeInternalError(w, "failed to load sensor")
		return
	}

	writeJSON(w, http.StatusOK, sensor)
}

// handleSensorStats returns registry statistics.
func (s *Server) handleSensorStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GetStats())
}
