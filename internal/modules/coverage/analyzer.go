// Package coverage checks how a set of expanded portfolio sleeves tiles the
// full benchmark segment space: which segments are missing, which are claimed
// by more than one sleeve, and how much benchmark weight is covered overall.
package coverage

import (
	"fmt"
	"math"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
)

// PercentTolerance is the tolerance used when comparing report percentages
// (the engine-level WeightTolerance scaled to percent).
const PercentTolerance = benchmark.WeightTolerance * 100

// OverlapPolicy controls how segments claimed by more than one sleeve count
// toward total coverage. Double-counted capital is not really "covered"
// twice, so the default counts an overlapping segment's weight once.
type OverlapPolicy int

const (
	// CountOnce counts an overlapping segment's weight once toward total
	// coverage, regardless of multiplicity.
	CountOnce OverlapPolicy = iota
	// CountProportional counts weight x multiplicity toward total coverage,
	// so over-tiled portfolios report totals above 100.
	CountProportional
)

// ParsePolicy maps a configuration string to an OverlapPolicy. The empty
// string means "not configured" and gets the default; anything else must
// name a policy exactly, so a typo fails loudly instead of silently
// changing coverage arithmetic.
func ParsePolicy(s string) (OverlapPolicy, error) {
	switch s {
	case "", "count-once":
		return CountOnce, nil
	case "proportional":
		return CountProportional, nil
	default:
		return CountOnce, fmt.Errorf("unknown overlap policy %q (want count-once or proportional)", s)
	}
}

// Report is the result of a coverage analysis. It is recomputed on demand and
// never persisted. Missing and Overlapping are keyed by country; band lists
// follow canonical band order for reproducible output.
type Report struct {
	TotalCoveragePercent   float64 `json:"total_coverage_pct"`
	MissedCoveragePercent  float64 `json:"missed_coverage_pct"`
	OverlapCoveragePercent float64 `json:"overlap_coverage_pct"`
	// Missing maps country -> bands with no covering sleeve
	Missing map[string][]string `json:"missing_segments"`
	// Overlapping maps country -> band -> number of sleeves claiming it
	Overlapping map[string]map[string]int `json:"overlapping_segments"`
}

// Perfect reports whether the portfolio tiles the benchmark exactly once:
// nothing missing, nothing overlapping, total coverage at 100%.
func (r Report) Perfect() bool {
	return len(r.Missing) == 0 &&
		len(r.Overlapping) == 0 &&
		math.Abs(r.TotalCoveragePercent-100.0) <= PercentTolerance
}

// Analyze builds a coverage report for the given per-sleeve segment sets.
// Only membership matters here; weights come from the segment space. The
// walk over the full segment space is deterministic (space enumeration
// order), and accumulation keeps full precision - rounding for display is
// the caller's concern.
func Analyze(sleeves map[string]benchmark.SegmentSet, space *benchmark.Space, policy OverlapPolicy) (Report, error) {
	counts := make(map[benchmark.Segment]int)
	for _, set := range sleeves {
		for segment := range set {
			counts[segment]++
		}
	}

	report := Report{
		Missing:     make(map[string][]string),
		Overlapping: make(map[string]map[string]int),
	}

	var covered, missed, overlapped float64
	for _, segment := range space.AllSegments() {
		weight, err := space.SegmentWeight(segment.Country, segment.Cap)
		if err != nil {
			return Report{}, fmt.Errorf("segment %s/%s: %w", segment.Country, segment.Cap, err)
		}

		switch n := counts[segment]; {
		case n == 0:
			report.Missing[segment.Country] = append(report.Missing[segment.Country], segment.Cap)
			missed += weight
		case n == 1:
			covered += weight
		default:
			if report.Overlapping[segment.Country] == nil {
				report.Overlapping[segment.Country] = make(map[string]int)
			}
			report.Overlapping[segment.Country][segment.Cap] = n
			overlapped += weight
			if policy == CountProportional {
				covered += weight * float64(n)
			} else {
				covered += weight
			}
		}
	}

	report.TotalCoveragePercent = covered * 100
	report.MissedCoveragePercent = missed * 100
	report.OverlapCoveragePercent = overlapped * 100
	return report, nil
}
