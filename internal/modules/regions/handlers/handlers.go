// Package handlers provides HTTP handlers for region group lookups.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
)

// Handler handles region HTTP requests
type Handler struct {
	resolver *regions.Resolver
	log      zerolog.Logger
}

// NewHandler creates a new regions handler
func NewHandler(resolver *regions.Resolver, log zerolog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		log:      log.With().Str("handler", "regions").Logger(),
	}
}

// HandleList returns all region group names plus the known country universe.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"regions":   h.resolver.RegionNames(),
		"countries": h.resolver.AllCountries(),
	})
}

// HandleResolve expands one region or country name into its country set.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	countries, err := h.resolver.Resolve(name)
	if err != nil {
		if errors.Is(err, regions.ErrUnknownRegionOrCountry) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"name":      name,
		"countries": countries,
	})
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
