package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/weightgate/weightgate/lib/counters"
	"github.com/weightgate/weightgate/lib/datafiles"
	"github.com/weightgate/weightgate/lib/overlay"
)

func (s *Server) handleGetDatafile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")

	tree, err := s.datafiles.Get(path)
	if err != nil {
		http.Error(w, "datafile not found", http.StatusNotFound)
		return
	}

	result := overlay.Apply(tree, s.variantsKey, s.overlayLookup(r.Context(), path))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Errorf("encode overlay for %s: %v", path, err)
	}
}

// variantStats is one variant's row in the /stats response, matching the
// original service's get_all_features_stats shape (a flat list per
// feature, not a map keyed by variant, to preserve that its "variant"
// field was the map key there).
type variantStats struct {
	Variant        string  `json:"variant"`
	Exposures      uint64  `json:"exposures"`
	Conversions    uint64  `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	Weight         float64 `json:"weight"`
	LastUpdated    int64   `json:"last_updated"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	dfFilter := r.URL.Query().Get("datafile")
	featFilter := r.URL.Query().Get("feature")

	var paths []string
	if dfFilter != "" {
		paths = []string{dfFilter}
	} else {
		paths = s.datafiles.Paths()
	}

	result := make(map[string]map[string][]variantStats, len(paths))
	seen := make(map[counters.Key]struct{})
	ctx := r.Context()

	for _, df := range paths {
		tree, err := s.datafiles.Get(df)
		if err != nil {
			continue
		}
		featureKeys := datafiles.FeatureKeys(tree)
		if featFilter != "" {
			featureKeys = filterFeatureKeys(featureKeys, featFilter)
		}

		featureResult := make(map[string][]variantStats, len(featureKeys))
		for _, feature := range featureKeys {
			variants, ok := datafiles.GroupVariants(tree, s.variantsKey, feature)
			if !ok {
				continue
			}
			variantResult := make([]variantStats, 0, len(variants))
			for _, v := range variants {
				seen[counters.Key{Datafile: df, Feature: feature, Variant: v.Value}] = struct{}{}
				rec, found, err := s.store.GetCounters(ctx, df, feature, v.Value)
				if err != nil {
					log.Warnf("stats lookup failed for %s/%s/%s: %v", df, feature, v.Value, err)
					continue
				}
				weight := v.Weight
				if found && rec.HasWeight {
					weight = rec.Weight
				}
				stat := variantStats{Variant: v.Value, Weight: weight}
				if found {
					stat.Exposures = rec.Exposures
					stat.Conversions = rec.Conversions
					stat.ConversionRate = rec.ConversionRate()
					stat.LastUpdated = rec.LastUpdated
				}
				variantResult = append(variantResult, stat)
			}
			featureResult[feature] = variantResult
		}
		result[df] = featureResult
	}

	s.mergeOrphanedCounterStats(ctx, result, seen, dfFilter, featFilter)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Errorf("encode stats: %v", err)
	}
}

// mergeOrphanedCounterStats adds rows for stored counters that have no
// backing variant in a currently loaded datafile — a retired experiment or
// a variant dropped from a datafile since its last exposure — by scanning
// the store directly, mirroring discoverGroups' approach in the scheduler.
func (s *Server) mergeOrphanedCounterStats(ctx context.Context, result map[string]map[string][]variantStats, seen map[counters.Key]struct{}, dfFilter, featFilter string) {
	keys, err := s.store.ListKeys(ctx, counters.StatsPrefix)
	if err != nil {
		log.Warnf("stats orphan scan failed: %v", err)
		return
	}

	for _, raw := range keys {
		k, ok := counters.ParseKey(raw)
		if !ok {
			continue
		}
		if _, already := seen[k]; already {
			continue
		}
		if dfFilter != "" && k.Datafile != dfFilter {
			continue
		}
		if featFilter != "" && k.Feature != featFilter {
			continue
		}
		seen[k] = struct{}{}

		rec, found, err := s.store.GetCounters(ctx, k.Datafile, k.Feature, k.Variant)
		if err != nil || !found {
			continue
		}

		featureResult, ok := result[k.Datafile]
		if !ok {
			featureResult = make(map[string][]variantStats)
			result[k.Datafile] = featureResult
		}
		featureResult[k.Feature] = append(featureResult[k.Feature], variantStats{
			Variant:        k.Variant,
			Exposures:      rec.Exposures,
			Conversions:    rec.Conversions,
			ConversionRate: rec.ConversionRate(),
			Weight:         rec.Weight,
			LastUpdated:    rec.LastUpdated,
		})
	}
}

func filterFeatureKeys(keys []string, want string) []string {
	for _, k := range keys {
		if k == want {
			return []string{k}
		}
	}
	return nil
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		http.Error(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	summary, err := s.scheduler.RunCycle(r.Context())
	if err != nil {
		if counters.IsUnavailable(err) {
			http.Error(w, "counter store unavailable", http.StatusServiceUnavailable)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		log.Errorf("encode recalculate summary: %v", err)
	}
}
