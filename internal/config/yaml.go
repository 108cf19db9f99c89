package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/portfolio"
)

// BandsDocument is the parsed cap-band configuration file.
type BandsDocument struct {
	Bands     []benchmark.CapBand
	SourceURL string
}

// LoadBands reads a cap-band configuration file:
//
//	market_caps:
//	  Large: 70
//	  Medium: 15
//	  Small: 15
//	data_sources:
//	  url: https://...
//
// Mapping order is preserved - it defines the canonical band order. Values
// summing to ~100 are treated as percent and converted to fractions.
func LoadBands(path string) (*BandsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bands config: %w", err)
	}
	return ParseBands(data)
}

// ParseBands parses cap-band configuration from YAML bytes.
func ParseBands(data []byte) (*BandsDocument, error) {
	var doc struct {
		MarketCaps  yaml.Node `yaml:"market_caps"`
		DataSources struct {
			URL string `yaml:"url"`
		} `yaml:"data_sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse bands config: %w", err)
	}
	if doc.MarketCaps.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("bands config: market_caps must be a mapping")
	}

	bands, err := decodeOrderedBands(&doc.MarketCaps)
	if err != nil {
		return nil, err
	}

	// The original configuration convention uses percent (70/15/15); accept
	// fractional values too.
	var sum float64
	for _, b := range bands {
		sum += b.Fraction
	}
	if sum > 1.5 {
		for i := range bands {
			bands[i].Fraction /= 100.0
		}
	}

	return &BandsDocument{Bands: bands, SourceURL: doc.DataSources.URL}, nil
}

// decodeOrderedBands walks a YAML mapping node, preserving key order.
func decodeOrderedBands(node *yaml.Node) ([]benchmark.CapBand, error) {
	bands := make([]benchmark.CapBand, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		value := node.Content[i+1]
		fraction, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("bands config: invalid value %q for band %q", value.Value, key.Value)
		}
		bands = append(bands, benchmark.CapBand{Name: key.Value, Fraction: fraction})
	}
	return bands, nil
}

// LoadRegions reads a region groupings file: a mapping of region name to a
// list of member names (countries or other regions).
func LoadRegions(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}

	var groups map[string][]string
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse regions file: %w", err)
	}
	return groups, nil
}

// LoadPortfolio reads a portfolio definition file.
func LoadPortfolio(path string) (portfolio.Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return portfolio.Portfolio{}, fmt.Errorf("failed to read portfolio file: %w", err)
	}
	return ParsePortfolio(data)
}

// ParsePortfolio parses a portfolio definition from YAML bytes. Two forms are
// accepted. The structured form names sleeves explicitly:
//
//	sleeves:
//	  - name: US Large+Mid
//	    include: [United States]
//	    caps: [Large, Medium]
//
// The compact form maps a single region/country per sleeve to its cap bands,
// with the name doubling as the include list:
//
//	United States: [Large, Medium]
//	Developed Europe: [Large, Medium, Small]
//
// Sleeve order follows document order in both forms.
func ParsePortfolio(data []byte) (portfolio.Portfolio, error) {
	var structured struct {
		Sleeves []portfolio.Sleeve `yaml:"sleeves"`
	}
	if err := yaml.Unmarshal(data, &structured); err == nil && len(structured.Sleeves) > 0 {
		return portfolio.Portfolio{Sleeves: structured.Sleeves}, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return portfolio.Portfolio{}, fmt.Errorf("failed to parse portfolio: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return portfolio.Portfolio{}, fmt.Errorf("portfolio must be a mapping of sector to cap bands, or a sleeves list")
	}

	mapping := root.Content[0]
	var p portfolio.Portfolio
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		value := mapping.Content[i+1]

		var caps []string
		if err := value.Decode(&caps); err != nil {
			return portfolio.Portfolio{}, fmt.Errorf("portfolio sector %q: expected a list of cap bands: %w", key.Value, err)
		}
		p.Sleeves = append(p.Sleeves, portfolio.Sleeve{
			Name:    key.Value,
			Include: []string{key.Value},
			Caps:    caps,
		})
	}
	return p, nil
}
