package portfolio

import (
	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/coverage"
	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
)

// Evaluation is the combined result of weight calculation and coverage
// analysis for one portfolio.
type Evaluation struct {
	Weights  []SleeveWeight  `json:"weights"`
	Coverage coverage.Report `json:"coverage"`
	Perfect  bool            `json:"perfect"`
}

// Evaluate is the composed entry point: expand the portfolio, compute sleeve
// weights, and analyze coverage against the full segment space. Any sleeve
// error fails the whole call - there is no partial-success mode.
func Evaluate(p Portfolio, space *benchmark.Space, resolver *regions.Resolver, policy coverage.OverlapPolicy) (*Evaluation, error) {
	expanded, err := Expand(p, space, resolver)
	if err != nil {
		return nil, err
	}

	weights, err := ComputeWeights(expanded, space)
	if err != nil {
		return nil, err
	}

	report, err := coverage.Analyze(expanded.Sets(), space, policy)
	if err != nil {
		return nil, err
	}

	return &Evaluation{
		Weights:  weights,
		Coverage: report,
		Perfect:  report.Perfect(),
	}, nil
}
