package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-parkspot/types"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimProvider queries an OpenStreetMap Nominatim instance. It needs no
// key and is the fallback when Google is not configured or fails.
type NominatimProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatimProvider(baseURL string) *NominatimProvider {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "go-parkspot",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NominatimProvider) Name() string { return "nominatim" }

type nominatimHit struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (n *NominatimProvider) Search(ctx context.Context, query string) ([]types.Place, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(MaxPlaces))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create nominatim request: %w", err)
	}
	// Nominatim's usage policy requires an identifying agent
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Op: "nominatim search", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.TransportError{Op: "nominatim search", Err: fmt.Errorf("status %s", resp.Status)}
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	places := make([]types.Place, 0, len(hits))
	for _, h := range hits {
		lat, latErr := strconv.ParseFloat(h.Lat, 64)
		lon, lonErr := strconv.ParseFloat(h.Lon, 64)
		c := types.Coordinate{Latitude: lat, Longitude: lon}
		if latErr != nil || lonErr != nil || !c.Valid() {
			continue
		}
		places = append(places, types.Place{Name: h.DisplayName, Address: h.DisplayName, Coordinate: c})
		if len(places) == MaxPlaces {
			break
		}
	}
	return places, nil
}
