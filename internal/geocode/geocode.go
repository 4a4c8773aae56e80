// Package geocode backfills coordinates for incidents that carry a usable
// street address but no latitude/longitude.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

// Geocoder resolves a free-form address to coordinates. A miss returns
// (0, 0) with a nil error; errors are reserved for transport failures.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lon float64, err error)
}

const defaultGoogleBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleGeocoder resolves addresses through the Google Maps geocoding API.
type GoogleGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// GoogleOption adjusts a GoogleGeocoder.
type GoogleOption func(*GoogleGeocoder)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) GoogleOption {
	return func(g *GoogleGeocoder) { g.baseURL = url }
}

// NewGoogleGeocoder creates a geocoder using the given API key.
func NewGoogleGeocoder(apiKey string, opts ...GoogleOption) *GoogleGeocoder {
	g := &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: defaultGoogleBaseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves one address. No results is a miss, not an error.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Results) == 0 {
		return 0, 0, nil
	}
	loc := result.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}

// FormatAddress builds the lookup string for an incident. The city suffix
// anchors ambiguous street names.
func FormatAddress(incident *models.Incident) string {
	parts := []string{strings.TrimSpace(incident.Logradouro)}

	numero := strings.TrimSpace(incident.NumeroLogradouro)
	if numero != "" && numero != "0" {
		parts = append(parts, numero)
	}

	return strings.Join(parts, ", ") + ", Rio de Janeiro, RJ, Brasil"
}

// Backfill geocodes every incident flagged geocodable, updating coordinates
// in place. Misses and lookup errors leave the incident at (0, 0).
func Backfill(ctx context.Context, g Geocoder, incidents []*models.Incident) {
	var pending []*models.Incident
	for _, incident := range incidents {
		incident.SetQualityFlags()
		if incident.Geocodable {
			pending = append(pending, incident)
		}
	}

	log.Printf("geocode: %d of %d incidents need coordinate backfill", len(pending), len(incidents))

	for _, incident := range pending {
		address := FormatAddress(incident)
		lat, lon, err := g.Geocode(ctx, address)
		if err != nil {
			log.Printf("geocode: error for %q: %v", address, err)
			metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
			continue
		}
		if lat == 0 && lon == 0 {
			log.Printf("geocode: no results for %q", address)
			metrics.GeocodeRequestsTotal.WithLabelValues("miss").Inc()
			continue
		}

		incident.Latitude = lat
		incident.Longitude = lon
		incident.SetQualityFlags()
		metrics.GeocodeRequestsTotal.WithLabelValues("ok").Inc()
	}
}
