// Package portfolio expands user portfolio definitions into benchmark
// segments and computes the benchmark-tracking weight of each sleeve.
package portfolio

import (
	"errors"
	"fmt"
	"math"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
)

var (
	// ErrEmptySleeve indicates a sleeve resolving to zero countries or zero bands
	ErrEmptySleeve = errors.New("empty sleeve")
	// ErrDuplicateSleeveName indicates two sleeves sharing a name
	ErrDuplicateSleeveName = errors.New("duplicate sleeve name")
)

// Sleeve is one fund position in the user's portfolio: a set of region or
// country names crossed with a set of cap bands.
type Sleeve struct {
	Name    string   `json:"name" yaml:"name"`
	Include []string `json:"include" yaml:"include"`
	Caps    []string `json:"caps" yaml:"caps"`
}

// Portfolio is an ordered sequence of sleeves. Order is preserved through
// expansion and weight output.
type Portfolio struct {
	Sleeves []Sleeve `json:"sleeves" yaml:"sleeves"`
}

// Expanded holds each sleeve's resolved segment set, in declaration order.
type Expanded struct {
	sleeves []Sleeve
	sets    map[string]benchmark.SegmentSet
}

// Sleeves returns the sleeve definitions in declaration order.
func (e *Expanded) Sleeves() []Sleeve {
	return e.sleeves
}

// Segments returns the segment set for a sleeve name (nil if unknown).
func (e *Expanded) Segments(name string) benchmark.SegmentSet {
	return e.sets[name]
}

// Sets returns the per-sleeve segment sets keyed by sleeve name.
func (e *Expanded) Sets() map[string]benchmark.SegmentSet {
	return e.sets
}

// Expand resolves every sleeve into its segment set: the cartesian product of
// the countries resolved from its include list and its cap bands. Pure
// function of the inputs; fails on the first malformed sleeve since coverage
// accounting downstream needs all sleeves to be well-formed.
func Expand(p Portfolio, space *benchmark.Space, resolver *regions.Resolver) (*Expanded, error) {
	expanded := &Expanded{
		sleeves: append([]Sleeve(nil), p.Sleeves...),
		sets:    make(map[string]benchmark.SegmentSet, len(p.Sleeves)),
	}

	for _, sleeve := range p.Sleeves {
		if _, exists := expanded.sets[sleeve.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSleeveName, sleeve.Name)
		}
		if len(sleeve.Caps) == 0 {
			return nil, fmt.Errorf("%w: sleeve %q lists no cap bands", ErrEmptySleeve, sleeve.Name)
		}

		countries := make(map[string]struct{})
		for _, name := range sleeve.Include {
			resolved, err := resolver.Resolve(name)
			if err != nil {
				return nil, fmt.Errorf("sleeve %q: %w", sleeve.Name, err)
			}
			for _, c := range resolved {
				countries[c] = struct{}{}
			}
		}
		if len(countries) == 0 {
			return nil, fmt.Errorf("%w: sleeve %q resolves to no countries", ErrEmptySleeve, sleeve.Name)
		}

		for _, cap := range sleeve.Caps {
			if !space.HasBand(cap) {
				return nil, fmt.Errorf("sleeve %q: %w: %q", sleeve.Name, benchmark.ErrUnknownCapBand, cap)
			}
		}

		set := make(benchmark.SegmentSet, len(countries)*len(sleeve.Caps))
		for country := range countries {
			for _, cap := range sleeve.Caps {
				set[benchmark.Segment{Country: country, Cap: cap}] = struct{}{}
			}
		}
		expanded.sets[sleeve.Name] = set
	}

	return expanded, nil
}

// SleeveWeight is one sleeve's benchmark-tracking capital weight, as a
// percentage of total benchmark coverage. Percent carries full precision;
// round for display with Round2.
type SleeveWeight struct {
	Name    string   `json:"name"`
	Caps    []string `json:"caps"`
	Percent float64  `json:"percent"`
}

// ComputeWeights sums each sleeve's segment weights. Output follows sleeve
// declaration order; no normalization is applied across sleeves, so an over-
// or under-covering portfolio is reported as-is.
func ComputeWeights(expanded *Expanded, space *benchmark.Space) ([]SleeveWeight, error) {
	weights := make([]SleeveWeight, 0, len(expanded.sleeves))
	for _, sleeve := range expanded.sleeves {
		var total float64
		for segment := range expanded.sets[sleeve.Name] {
			w, err := space.SegmentWeight(segment.Country, segment.Cap)
			if err != nil {
				return nil, fmt.Errorf("sleeve %q: %w", sleeve.Name, err)
			}
			total += w
		}
		weights = append(weights, SleeveWeight{
			Name:    sleeve.Name,
			Caps:    append([]string(nil), sleeve.Caps...),
			Percent: total * 100,
		})
	}
	return weights, nil
}

// Round2 rounds a percentage to two decimal places. Display-only: the engine
// accumulates at full precision so repeated aggregation does not compound
// rounding error.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
