package config

import "github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"

// DefaultCapBands returns the MSCI ACWI IMI market-cap split used when no
// bands file is configured: Large 70%, Medium 15%, Small 15%.
func DefaultCapBands() []benchmark.CapBand {
	return []benchmark.CapBand{
		{Name: "Large", Fraction: 0.70},
		{Name: "Medium", Fraction: 0.15},
		{Name: "Small", Fraction: 0.15},
	}
}

// DefaultRegionGroups returns the built-in region groupings used when no
// regions file is configured. Groupings follow the MSCI country
// classification; "World" nests the two market groups.
func DefaultRegionGroups() map[string][]string {
	return map[string][]string{
		"Developed": {
			"Australia", "Austria", "Belgium", "Canada", "Denmark", "Finland",
			"France", "Germany", "Hong Kong", "Ireland", "Israel", "Italy",
			"Japan", "Netherlands", "New Zealand", "Norway", "Portugal",
			"Singapore", "Spain", "Sweden", "Switzerland", "United Kingdom",
			"United States",
		},
		"Emerging": {
			"Brazil", "Chile", "China", "Colombia", "Czech Republic", "Egypt",
			"Greece", "Hungary", "India", "Indonesia", "South Korea", "Kuwait",
			"Malaysia", "Mexico", "Peru", "Philippines", "Poland", "Qatar",
			"Saudi Arabia", "South Africa", "Taiwan", "Thailand", "Turkey",
			"UAE",
		},
		"Developed Europe": {
			"Austria", "Belgium", "Denmark", "Finland", "France", "Germany",
			"Ireland", "Italy", "Netherlands", "Norway", "Portugal", "Spain",
			"Sweden", "Switzerland", "United Kingdom",
		},
		"Developed Pacific ex Japan": {
			"Australia", "Hong Kong", "New Zealand", "Singapore",
		},
		"North America": {
			"Canada", "United States",
		},
		"World": {
			"Developed", "Emerging",
		},
	}
}
