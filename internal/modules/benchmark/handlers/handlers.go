// Package handlers provides HTTP handlers for inspecting the benchmark
// segment space.
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/portfolio"
	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
)

// Handler handles benchmark HTTP requests
type Handler struct {
	space    *benchmark.Space
	resolver *regions.Resolver
	log      zerolog.Logger
}

// NewHandler creates a new benchmark handler
func NewHandler(space *benchmark.Space, resolver *regions.Resolver, log zerolog.Logger) *Handler {
	return &Handler{
		space:    space,
		resolver: resolver,
		log:      log.With().Str("handler", "benchmark").Logger(),
	}
}

// segmentView is one segment with its canonical weight in percent.
type segmentView struct {
	Country   string  `json:"country"`
	Cap       string  `json:"cap"`
	WeightPct float64 `json:"weight_pct"`
}

// HandleSegments returns every segment of the benchmark with its weight.
func (h *Handler) HandleSegments(w http.ResponseWriter, r *http.Request) {
	segments := h.space.AllSegments()
	views := make([]segmentView, 0, len(segments))
	for _, segment := range segments {
		weight, err := h.space.SegmentWeight(segment.Country, segment.Cap)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		views = append(views, segmentView{
			Country:   segment.Country,
			Cap:       segment.Cap,
			WeightPct: portfolio.Round2(weight * 100),
		})
	}

	h.writeJSON(w, map[string]interface{}{
		"bands":    h.space.Bands(),
		"segments": views,
	})
}

// regionWeightView is one region's aggregate benchmark weight in percent.
type regionWeightView struct {
	Region    string  `json:"region"`
	WeightPct float64 `json:"weight_pct"`
}

// HandleRegionWeights returns aggregate benchmark weight per region group,
// sorted by weight descending.
func (h *Handler) HandleRegionWeights(w http.ResponseWriter, r *http.Request) {
	views := make([]regionWeightView, 0)
	for _, region := range h.resolver.RegionNames() {
		countries, err := h.resolver.Resolve(region)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var total float64
		for _, country := range countries {
			// Countries outside the fetched weights contribute nothing.
			if !h.space.HasCountry(country) {
				continue
			}
			weight, err := h.space.CountryWeight(country)
			if err != nil {
				h.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			total += weight
		}
		views = append(views, regionWeightView{
			Region:    region,
			WeightPct: portfolio.Round2(total * 100),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].WeightPct > views[j].WeightPct
	})

	h.writeJSON(w, map[string]interface{}{"regions": views})
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
