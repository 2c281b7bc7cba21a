package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jimfhahn/qa-server/monitor/rollup"
	"github.com/jimfhahn/qa-server/monitor/types"
)

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePerformance serves the rollup snapshot, optionally projected to the
// graphs or datatables subset.
func (s *server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	kind, err := rollup.ParseViewKind(r.URL.Query().Get("view"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.PerformanceData(r.Context(), kind)
	if err != nil {
		s.log.WithError(err).Error("Failed to produce performance data")
		s.writeError(w, http.StatusInternalServerError, "failed to produce performance data")
		return
	}

	if data == nil {
		s.writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

// handleRefresh forces a full recomputation of the rollup snapshot.
func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Refresh(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to refresh performance data")
		s.writeError(w, http.StatusInternalServerError, "failed to refresh performance data")
		return
	}

	if s.hub != nil {
		s.hub.RollupRefreshed(data.GeneratedAt)
	}
	s.writeJSON(w, http.StatusOK, data)
}

// handleInvalidate drops the cached snapshot.
func (s *server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.service.Invalidate()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *server) handleAuthorities(w http.ResponseWriter, r *http.Request) {
	names, err := s.lister.Authorities(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list authorities")
		s.writeError(w, http.StatusInternalServerError, "failed to list authorities")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"authorities": names})
}

// handleSamples lists raw samples filtered by authority and time range.
func (s *server) handleSamples(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := types.SampleFilter{
		Authority: query.Get("authority"),
	}

	if since := query.Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since timestamp, want RFC3339")
			return
		}
		filter.Since = ts
	}

	if until := query.Get("until"); until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid until timestamp, want RFC3339")
			return
		}
		filter.Until = ts
	}

	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	samples, err := s.samples.ListSamples(r.Context(), filter)
	if err != nil {
		s.log.WithError(err).Error("Failed to list samples")
		s.writeError(w, http.StatusInternalServerError, "failed to list samples")
		return
	}

	if samples == nil {
		samples = []types.Sample{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(samples),
		"samples": samples,
	})
}

// handleSystem serves the latest process/host resource snapshot.
func (s *server) handleSystem(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.collector.Snapshot())
}
