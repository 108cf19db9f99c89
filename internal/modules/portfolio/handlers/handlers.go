// Package handlers provides HTTP handlers for portfolio evaluation.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alex-golts/portfolio-diversity/internal/config"
	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/coverage"
	"github.com/alex-golts/portfolio-diversity/internal/modules/portfolio"
	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
)

// maxBodySize bounds portfolio definition uploads.
const maxBodySize = 1 << 20

// Handler handles portfolio evaluation HTTP requests
type Handler struct {
	space    *benchmark.Space
	resolver *regions.Resolver
	policy   coverage.OverlapPolicy
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(space *benchmark.Space, resolver *regions.Resolver, policy coverage.OverlapPolicy, log zerolog.Logger) *Handler {
	return &Handler{
		space:    space,
		resolver: resolver,
		policy:   policy,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleEvaluate evaluates a portfolio definition posted as JSON or YAML.
// JSON bodies use the structured sleeves form; any other content type is
// parsed as YAML (structured or compact). Pass ?format=text for the plain
// text report.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		h.writeError(w, http.StatusBadRequest, "empty portfolio definition")
		return
	}

	var p portfolio.Portfolio
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(body, &p); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid portfolio JSON: %v", err))
			return
		}
	} else {
		p, err = config.ParsePortfolio(body)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	eval, err := portfolio.Evaluate(p, h.space, h.resolver, h.policy)
	if err != nil {
		// Every evaluation failure is a definition error: unknown names,
		// empty sleeves, duplicates. The caller fixes the input.
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Debug().Int("sleeves", len(p.Sleeves)).Bool("perfect", eval.Perfect).Msg("Portfolio evaluated")

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(renderText(eval, h.space.Bands())))
		return
	}

	h.writeJSON(w, roundForDisplay(eval))
}

// roundForDisplay copies an evaluation with percentages rounded to two
// decimals. The engine's full-precision values stay untouched.
func roundForDisplay(eval *portfolio.Evaluation) *portfolio.Evaluation {
	out := &portfolio.Evaluation{
		Weights:  make([]portfolio.SleeveWeight, len(eval.Weights)),
		Coverage: eval.Coverage,
		Perfect:  eval.Perfect,
	}
	for i, sw := range eval.Weights {
		sw.Percent = portfolio.Round2(sw.Percent)
		out.Weights[i] = sw
	}
	out.Coverage.TotalCoveragePercent = portfolio.Round2(eval.Coverage.TotalCoveragePercent)
	out.Coverage.MissedCoveragePercent = portfolio.Round2(eval.Coverage.MissedCoveragePercent)
	out.Coverage.OverlapCoveragePercent = portfolio.Round2(eval.Coverage.OverlapCoveragePercent)
	return out
}

// renderText renders the evaluation as a plain text report. Band lists
// follow canonical band order, countries sort alphabetically.
func renderText(eval *portfolio.Evaluation, bandOrder []string) string {
	var b strings.Builder

	b.WriteString("Portfolio Weights:\n")
	for _, sw := range eval.Weights {
		fmt.Fprintf(&b, "  %-30s %-28s %6.2f%%\n", sw.Name, "["+strings.Join(sw.Caps, ", ")+"]", sw.Percent)
	}
	b.WriteString("\n")

	cov := eval.Coverage
	if len(cov.Missing) == 0 && len(cov.Overlapping) == 0 {
		fmt.Fprintf(&b, "Total market coverage=%.2f%%. No overlaps or missing segments.\n", cov.TotalCoveragePercent)
		return b.String()
	}

	if len(cov.Missing) > 0 {
		b.WriteString("Missing segments:\n")
		for _, country := range sortedKeys(cov.Missing) {
			fmt.Fprintf(&b, "  %s: [%s]\n", country, strings.Join(cov.Missing[country], ", "))
		}
		fmt.Fprintf(&b, "Total market coverage=%.2f%%, Total missed coverage: %.2f%%\n",
			cov.TotalCoveragePercent, cov.MissedCoveragePercent)
	}

	if len(cov.Overlapping) > 0 {
		b.WriteString("Overlapping segments:\n")
		for _, country := range sortedOverlapKeys(cov.Overlapping) {
			for _, band := range canonicalBands(cov.Overlapping[country], bandOrder) {
				fmt.Fprintf(&b, "  %s/%s claimed by %d sleeves\n", country, band, cov.Overlapping[country][band])
			}
		}
		fmt.Fprintf(&b, "Total market coverage=%.2f%%, Total overlapping coverage: %.2f%%\n",
			cov.TotalCoveragePercent, cov.OverlapCoveragePercent)
	}

	return b.String()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedOverlapKeys(m map[string]map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func canonicalBands(m map[string]int, bandOrder []string) []string {
	bands := make([]string, 0, len(m))
	for _, band := range bandOrder {
		if _, ok := m[band]; ok {
			bands = append(bands, band)
		}
	}
	return bands
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
