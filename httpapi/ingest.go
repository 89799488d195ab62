package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/weightgate/weightgate/internal/metrics"
	"github.com/weightgate/weightgate/lib/counters"
)

// eventRequest is the wire shape of both /expose and /convert: a datafile
// path and a map of featureKey -> variantValue touched together by one
// event.
type eventRequest struct {
	Datafile string            `json:"datafile"`
	Features map[string]string `json:"features"`
}

func (s *Server) handleExpose(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, s.store.IncrExposure, metrics.ExposuresIngested)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, s.store.IncrConversion, metrics.ConversionsIngested)
}

// handleEvent decodes a request body shared by /expose and /convert and
// applies incr to every (featureKey, variantValue) pair it names. Unknown
// feature/variant names are not validated against the datafile catalogue —
// they still increment, per the ingest surface's tolerance for retired
// experiments.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, incr func(ctx context.Context, df, feature, variant string) error, counter *vmetrics.Counter) {
	var req eventRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Datafile == "" || len(req.Features) == 0 {
		http.Error(w, "datafile and features are required", http.StatusBadRequest)
		return
	}

	for featureKey, variantValue := range req.Features {
		if err := incr(r.Context(), req.Datafile, featureKey, variantValue); err != nil {
			log.Errorf("increment failed for %s/%s/%s: %v", req.Datafile, featureKey, variantValue, err)
			if counters.IsUnavailable(err) {
				http.Error(w, "counter store unavailable", http.StatusServiceUnavailable)
			} else {
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		counter.Inc()
	}

	w.WriteHeader(http.StatusNoContent)
}
