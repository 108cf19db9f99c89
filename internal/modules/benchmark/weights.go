package benchmark

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// NormalizeBand is how far a fetched weight total may deviate from 1.0 and
// still be rescaled. Source pages publish each country rounded to two
// decimals, so the total drifts off 100 by accumulated rounding; a total
// outside this band means broken source data, not rounding.
const NormalizeBand = 0.05

// Normalize rescales fractions so they sum to exactly 1.0, absorbing the
// per-country rounding in published data before the strict construction
// checks see it. Totals outside NormalizeBand return ErrInvalidWeights.
func Normalize(weights []CountryWeight) ([]CountryWeight, error) {
	sums := make([]float64, len(weights))
	for i, cw := range weights {
		sums[i] = cw.Weight
	}
	total := floats.Sum(sums)
	if math.Abs(total-1.0) > NormalizeBand {
		return nil, fmt.Errorf("%w: weights sum to %f, too far from 1.0 to renormalize", ErrInvalidWeights, total)
	}

	out := make([]CountryWeight, len(weights))
	for i, cw := range weights {
		out[i] = CountryWeight{Country: cw.Country, Weight: cw.Weight / total}
	}
	return out, nil
}

// FromPercent converts fetched country weights expressed in percent
// (e.g. 62.94 for the United States) to fractions of 1.0. The source page
// publishes percent values; the engine works in fractions throughout.
func FromPercent(weights []CountryWeight) []CountryWeight {
	out := make([]CountryWeight, len(weights))
	for i, cw := range weights {
		out[i] = CountryWeight{Country: cw.Country, Weight: cw.Weight / 100.0}
	}
	return out
}

// EnsureCountries appends a zero-weight entry for every listed country that
// is absent from the fetched weights. Countries known to the region tables
// but missing from the source snapshot still need to exist in the segment
// space so coverage accounting can see them.
func EnsureCountries(weights []CountryWeight, countries []string) []CountryWeight {
	present := make(map[string]struct{}, len(weights))
	for _, cw := range weights {
		present[cw.Country] = struct{}{}
	}

	out := make([]CountryWeight, len(weights), len(weights)+len(countries))
	copy(out, weights)
	for _, country := range countries {
		if _, ok := present[country]; !ok {
			out = append(out, CountryWeight{Country: country, Weight: 0})
			present[country] = struct{}{}
		}
	}
	return out
}
