// Package benchmark models the atomic segment space of the global equity
// benchmark: every (country, cap band) pair with its canonical market weight.
package benchmark

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// WeightTolerance is the maximum deviation from 1.0 accepted when validating
// that country weights or cap band fractions sum to the whole benchmark.
const WeightTolerance = 1e-6

var (
	// ErrInvalidWeights indicates country weights that do not sum to 1.0
	ErrInvalidWeights = errors.New("invalid country weights")
	// ErrInvalidBandSplit indicates cap band fractions that do not sum to 1.0
	ErrInvalidBandSplit = errors.New("invalid cap band split")
	// ErrUnknownCountry indicates a country with no fetched weight
	ErrUnknownCountry = errors.New("unknown country")
	// ErrUnknownCapBand indicates a cap band missing from the band split
	ErrUnknownCapBand = errors.New("unknown cap band")
)

// CountryWeight is one country's share of total benchmark market value.
// The Weight field is a fraction (0.0 - 1.0) once inside the engine; use
// FromPercent to convert fetched percent values.
type CountryWeight struct {
	Country string  `json:"country"`
	Weight  float64 `json:"weight"`
}

// CapBand is one market-cap band and its fraction of a country's market value.
type CapBand struct {
	Name     string  `json:"name"`
	Fraction float64 `json:"fraction"`
}

// Segment is the atomic benchmark unit: one country crossed with one cap band.
type Segment struct {
	Country string `json:"country"`
	Cap     string `json:"cap"`
}

// SegmentSet is a membership set of segments. Used by the portfolio expander
// and the coverage analyzer, which only care about membership, not weights.
type SegmentSet map[Segment]struct{}

// Space is the full benchmark segment space. It is immutable after
// construction and safe for concurrent use.
type Space struct {
	countries []string // insertion order
	weights   map[string]float64
	bands     []CapBand // declaration order (canonical band order)
	fractions map[string]float64
}

// NewSpace builds the segment space from ordered country weights and ordered
// cap bands. Both lists use fractions of 1.0. Validation happens here, once:
// country weights must sum to 1.0 and band fractions must sum to 1.0, each
// within WeightTolerance. Duplicate country or band names are rejected.
func NewSpace(countryWeights []CountryWeight, bands []CapBand) (*Space, error) {
	if len(countryWeights) == 0 {
		return nil, fmt.Errorf("%w: no countries provided", ErrInvalidWeights)
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no cap bands provided", ErrInvalidBandSplit)
	}

	s := &Space{
		countries: make([]string, 0, len(countryWeights)),
		weights:   make(map[string]float64, len(countryWeights)),
		bands:     make([]CapBand, 0, len(bands)),
		fractions: make(map[string]float64, len(bands)),
	}

	countrySums := make([]float64, 0, len(countryWeights))
	for _, cw := range countryWeights {
		if _, exists := s.weights[cw.Country]; exists {
			return nil, fmt.Errorf("%w: duplicate country %q", ErrInvalidWeights, cw.Country)
		}
		if cw.Weight < 0 {
			return nil, fmt.Errorf("%w: negative weight %f for %q", ErrInvalidWeights, cw.Weight, cw.Country)
		}
		s.countries = append(s.countries, cw.Country)
		s.weights[cw.Country] = cw.Weight
		countrySums = append(countrySums, cw.Weight)
	}
	if total := floats.Sum(countrySums); math.Abs(total-1.0) > WeightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %f, expected 1.0", ErrInvalidWeights, total)
	}

	bandSums := make([]float64, 0, len(bands))
	for _, b := range bands {
		if _, exists := s.fractions[b.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate band %q", ErrInvalidBandSplit, b.Name)
		}
		if b.Fraction < 0 {
			return nil, fmt.Errorf("%w: negative fraction %f for %q", ErrInvalidBandSplit, b.Fraction, b.Name)
		}
		s.bands = append(s.bands, b)
		s.fractions[b.Name] = b.Fraction
		bandSums = append(bandSums, b.Fraction)
	}
	if total := floats.Sum(bandSums); math.Abs(total-1.0) > WeightTolerance {
		return nil, fmt.Errorf("%w: fractions sum to %f, expected 1.0", ErrInvalidBandSplit, total)
	}

	return s, nil
}

// SegmentWeight returns the canonical weight of one segment:
// CountryWeight(country) x CapBandSplit[band].
func (s *Space) SegmentWeight(country, band string) (float64, error) {
	cw, ok := s.weights[country]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}
	bf, ok := s.fractions[band]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCapBand, band)
	}
	return cw * bf, nil
}

// CountryWeight returns one country's total benchmark fraction.
func (s *Space) CountryWeight(country string) (float64, error) {
	cw, ok := s.weights[country]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}
	return cw, nil
}

// AllSegments enumerates every (country, band) pair in deterministic order:
// country insertion order crossed with band declaration order. The weights of
// the returned segments sum to 1.0 by construction.
func (s *Space) AllSegments() []Segment {
	segments := make([]Segment, 0, len(s.countries)*len(s.bands))
	for _, country := range s.countries {
		for _, band := range s.bands {
			segments = append(segments, Segment{Country: country, Cap: band.Name})
		}
	}
	return segments
}

// Countries returns country names in insertion order.
func (s *Space) Countries() []string {
	out := make([]string, len(s.countries))
	copy(out, s.countries)
	return out
}

// Bands returns cap band names in canonical (declaration) order.
func (s *Space) Bands() []string {
	out := make([]string, len(s.bands))
	for i, b := range s.bands {
		out[i] = b.Name
	}
	return out
}

// HasCountry reports whether a country has a fetched weight.
func (s *Space) HasCountry(name string) bool {
	_, ok := s.weights[name]
	return ok
}

// HasBand reports whether a cap band is configured.
func (s *Space) HasBand(name string) bool {
	_, ok := s.fractions[name]
	return ok
}
