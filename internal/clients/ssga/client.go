// Package ssga fetches country weights from the SSGA fund page for the
// SPDR MSCI ACWI IMI UCITS ETF. The page embeds the geographical breakdown
// as a JSON document inside a hidden input element.
package ssga

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
)

// breakdownElementID is the id of the input element carrying the JSON payload.
const breakdownElementID = "fund-geographical-breakdown"

// Client scrapes country weights from the fund page.
type Client struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new SSGA fund page client.
func NewClient(url string, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("client", "ssga").Logger(),
	}
}

// breakdownDocument mirrors the JSON embedded in the page.
type breakdownDocument struct {
	AttrArray []struct {
		Name struct {
			Value string `json:"value"`
		} `json:"name"`
		Weight struct {
			Value string `json:"value"`
		} `json:"weight"`
	} `json:"attrArray"`
}

// FetchCountryWeights downloads the fund page and extracts the country
// weights in source order. Weights are percent values (e.g. 62.94).
func (c *Client) FetchCountryWeights(ctx context.Context) ([]benchmark.CountryWeight, error) {
	c.log.Debug().Str("url", c.url).Msg("Fetching country weights")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "portfolio-diversity/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fund page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fund page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fund page: %w", err)
	}

	raw, ok := doc.Find("input#" + breakdownElementID).Attr("value")
	if !ok {
		return nil, fmt.Errorf("element %q not found on the fund page; the page structure may have changed", breakdownElementID)
	}

	var breakdown breakdownDocument
	if err := json.Unmarshal([]byte(raw), &breakdown); err != nil {
		return nil, fmt.Errorf("failed to parse geographical breakdown JSON: %w", err)
	}
	if len(breakdown.AttrArray) == 0 {
		return nil, fmt.Errorf("no country data in geographical breakdown")
	}

	weights := make([]benchmark.CountryWeight, 0, len(breakdown.AttrArray))
	for _, item := range breakdown.AttrArray {
		value := strings.TrimSuffix(strings.TrimSpace(item.Weight.Value), "%")
		weight, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q for country %q: %w", item.Weight.Value, item.Name.Value, err)
		}
		weights = append(weights, benchmark.CountryWeight{
			Country: item.Name.Value,
			Weight:  weight,
		})
	}

	c.log.Info().Int("countries", len(weights)).Msg("Fetched country weights")
	return weights, nil
}
