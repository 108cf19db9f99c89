package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/coverage"
	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
)

func testSpace(t *testing.T) *benchmark.Space {
	t.Helper()
	space, err := benchmark.NewSpace(
		[]benchmark.CountryWeight{
			{Country: "United States", Weight: 0.60},
			{Country: "Japan", Weight: 0.10},
			{Country: "Germany", Weight: 0.20},
			{Country: "France", Weight: 0.10},
		},
		[]benchmark.CapBand{
			{Name: "Large", Fraction: 0.70},
			{Name: "Medium", Fraction: 0.15},
			{Name: "Small", Fraction: 0.15},
		},
	)
	require.NoError(t, err)
	return space
}

func testResolver(t *testing.T, space *benchmark.Space) *regions.Resolver {
	t.Helper()
	r, err := regions.New(map[string][]string{
		"Developed Europe": {"Germany", "France"},
	}, space.Countries())
	require.NoError(t, err)
	return r
}

func TestExpand_CartesianProduct(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	p := Portfolio{Sleeves: []Sleeve{
		{Name: "Europe Large+Mid", Include: []string{"Developed Europe"}, Caps: []string{"Large", "Medium"}},
	}}

	expanded, err := Expand(p, space, resolver)
	require.NoError(t, err)

	set := expanded.Segments("Europe Large+Mid")
	require.Len(t, set, 4)
	assert.Contains(t, set, benchmark.Segment{Country: "Germany", Cap: "Large"})
	assert.Contains(t, set, benchmark.Segment{Country: "Germany", Cap: "Medium"})
	assert.Contains(t, set, benchmark.Segment{Country: "France", Cap: "Large"})
	assert.Contains(t, set, benchmark.Segment{Country: "France", Cap: "Medium"})
}

func TestExpand_UnionOfIncludes(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	// Germany appears via the region and directly; the union deduplicates.
	p := Portfolio{Sleeves: []Sleeve{
		{Name: "Mix", Include: []string{"Developed Europe", "Germany", "Japan"}, Caps: []string{"Small"}},
	}}

	expanded, err := Expand(p, space, resolver)
	require.NoError(t, err)
	assert.Len(t, expanded.Segments("Mix"), 3)
}

func TestExpand_Errors(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	tests := []struct {
		name    string
		sleeves []Sleeve
		wantErr error
	}{
		{
			name: "duplicate sleeve name",
			sleeves: []Sleeve{
				{Name: "US", Include: []string{"United States"}, Caps: []string{"Large"}},
				{Name: "US", Include: []string{"Japan"}, Caps: []string{"Large"}},
			},
			wantErr: ErrDuplicateSleeveName,
		},
		{
			name: "no cap bands",
			sleeves: []Sleeve{
				{Name: "US", Include: []string{"United States"}, Caps: nil},
			},
			wantErr: ErrEmptySleeve,
		},
		{
			name: "no countries",
			sleeves: []Sleeve{
				{Name: "Nothing", Include: nil, Caps: []string{"Large"}},
			},
			wantErr: ErrEmptySleeve,
		},
		{
			name: "unknown cap band",
			sleeves: []Sleeve{
				{Name: "US", Include: []string{"United States"}, Caps: []string{"Mega"}},
			},
			wantErr: benchmark.ErrUnknownCapBand,
		},
		{
			name: "unknown region",
			sleeves: []Sleeve{
				{Name: "Lost", Include: []string{"Atlantis"}, Caps: []string{"Large"}},
			},
			wantErr: regions.ErrUnknownRegionOrCountry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(Portfolio{Sleeves: tt.sleeves}, space, resolver)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComputeWeights_DeclarationOrder(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	p := Portfolio{Sleeves: []Sleeve{
		{Name: "Japan All", Include: []string{"Japan"}, Caps: []string{"Large", "Medium", "Small"}},
		{Name: "US Large", Include: []string{"United States"}, Caps: []string{"Large"}},
	}}

	expanded, err := Expand(p, space, resolver)
	require.NoError(t, err)
	weights, err := ComputeWeights(expanded, space)
	require.NoError(t, err)

	require.Len(t, weights, 2)
	// Declaration order, not sorted by weight.
	assert.Equal(t, "Japan All", weights[0].Name)
	assert.Equal(t, "US Large", weights[1].Name)
	assert.InDelta(t, 10.0, weights[0].Percent, 1e-9)
	assert.InDelta(t, 42.0, weights[1].Percent, 1e-9)
}

func TestComputeWeights_NoNormalization(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	// Under-covering portfolio: weights reported as-is, not scaled to 100.
	p := Portfolio{Sleeves: []Sleeve{
		{Name: "US Large", Include: []string{"United States"}, Caps: []string{"Large"}},
	}}

	expanded, err := Expand(p, space, resolver)
	require.NoError(t, err)
	weights, err := ComputeWeights(expanded, space)
	require.NoError(t, err)

	var total float64
	for _, w := range weights {
		total += w.Percent
	}
	assert.InDelta(t, 42.0, total, 1e-9)
}

func TestEvaluate_AllWorldBaseline(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	// Single "buy the whole index" sleeve: weight 100, perfect coverage.
	p := Portfolio{Sleeves: []Sleeve{
		{Name: "IMID", Include: []string{regions.AllWorld}, Caps: []string{"Large", "Medium", "Small"}},
	}}

	eval, err := Evaluate(p, space, resolver, coverage.CountOnce)
	require.NoError(t, err)

	require.Len(t, eval.Weights, 1)
	assert.InDelta(t, 100.0, eval.Weights[0].Percent, 1e-6)
	assert.True(t, eval.Perfect)
	assert.Empty(t, eval.Coverage.Missing)
	assert.Empty(t, eval.Coverage.Overlapping)
}

func TestEvaluate_MissingJapan(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	p := Portfolio{Sleeves: []Sleeve{
		{Name: "US Large+Mid", Include: []string{"United States"}, Caps: []string{"Medium", "Large"}},
		{Name: "US Small", Include: []string{"United States"}, Caps: []string{"Small"}},
		{Name: "Europe", Include: []string{"Developed Europe"}, Caps: []string{"Large", "Medium", "Small"}},
	}}

	eval, err := Evaluate(p, space, resolver, coverage.CountOnce)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"Japan": {"Large", "Medium", "Small"},
	}, eval.Coverage.Missing)
	// Japan's full canonical weight: 10%.
	assert.InDelta(t, 10.0, eval.Coverage.MissedCoveragePercent, 1e-6)
	assert.False(t, eval.Perfect)
}

func TestEvaluate_OverlappingUSLarge(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	p := Portfolio{Sleeves: []Sleeve{
		{Name: "S&P 500", Include: []string{"United States"}, Caps: []string{"Large"}},
		{Name: "US Total", Include: []string{"United States"}, Caps: []string{"Large", "Medium", "Small"}},
		{Name: "Japan", Include: []string{"Japan"}, Caps: []string{"Large", "Medium", "Small"}},
		{Name: "Europe", Include: []string{"Developed Europe"}, Caps: []string{"Large", "Medium", "Small"}},
	}}

	eval, err := Evaluate(p, space, resolver, coverage.CountOnce)
	require.NoError(t, err)

	assert.Equal(t, map[string]map[string]int{
		"United States": {"Large": 2},
	}, eval.Coverage.Overlapping)
	// Overlapping segment still counts once toward total coverage.
	assert.InDelta(t, 100.0, eval.Coverage.TotalCoveragePercent, 1e-6)
	assert.False(t, eval.Perfect)
}

func TestEvaluate_FailsWholeCallOnBadSleeve(t *testing.T) {
	space := testSpace(t)
	resolver := testResolver(t, space)

	p := Portfolio{Sleeves: []Sleeve{
		{Name: "Good", Include: []string{"United States"}, Caps: []string{"Large"}},
		{Name: "Bad", Include: []string{"Atlantis"}, Caps: []string{"Large"}},
	}}

	eval, err := Evaluate(p, space, resolver, coverage.CountOnce)
	assert.Nil(t, eval)
	assert.ErrorIs(t, err, regions.ErrUnknownRegionOrCountry)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 42.35, Round2(42.3456))
	assert.Equal(t, 42.34, Round2(42.344))
	assert.Equal(t, 0.0, Round2(0.0))
	assert.Equal(t, 100.0, Round2(99.9999))
}
