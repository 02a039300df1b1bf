// Package osm fetches points of interest from the Overpass API.
package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/config"
	"github.com/mwidera/cityguide/internal/models"
)

// Client queries an Overpass API endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for Overpass requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates an Overpass client for the given endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 90 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// buildQuery renders the Overpass QL query for the bounding box.
func buildQuery(bbox config.BBox) string {
	box := fmt.Sprintf("(%f,%f,%f,%f)", bbox.South, bbox.West, bbox.North, bbox.East)
	var sb strings.Builder
	sb.WriteString("[out:json][timeout:60];\n(\n")
	for _, selector := range []string{
		`["amenity"~"restaurant|cafe|bar|pub|nightclub|fast_food|place_of_worship"]`,
		`["tourism"~"museum|hotel|attraction|viewpoint|gallery|guest_house"]`,
		`["leisure"="park"]`,
		`["historic"]`,
		`["shop"~"clothes|mall|department_store|gift|books"]`,
	} {
		fmt.Fprintf(&sb, "  node%s%s;\n", selector, box)
		fmt.Fprintf(&sb, "  way%s%s;\n", selector, box)
	}
	sb.WriteString(");\nout center;")
	return sb.String()
}

// FetchPOIs queries Overpass for POIs inside bbox. Unnamed elements are dropped.
func (c *Client) FetchPOIs(ctx context.Context, bbox config.BBox) ([]*models.POI, error) {
	query := buildQuery(bbox)
	form := url.Values{"data": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}

	pois := make([]*models.POI, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		poi := elementToPOI(el)
		if poi == nil {
			continue
		}
		pois = append(pois, poi)
	}
	c.logger.Info("fetched pois from overpass",
		zap.Int("elements", len(parsed.Elements)),
		zap.Int("kept", len(pois)))
	return pois, nil
}

// elementToPOI converts one Overpass element, or returns nil if it is unusable.
func elementToPOI(el overpassElement) *models.POI {
	name := el.Tags["name"]
	if name == "" {
		return nil
	}

	lat, lon := el.Lat, el.Lon
	if el.Center != nil {
		lat, lon = el.Center.Lat, el.Center.Lon
	}

	return &models.POI{
		ID:          fmt.Sprintf("%s/%d", el.Type, el.ID),
		Name:        name,
		NameEN:      el.Tags["name:en"],
		Category:    DetermineCategory(el.Tags),
		Description: el.Tags["description"],
		Address: models.Address{
			Street:      el.Tags["addr:street"],
			HouseNumber: el.Tags["addr:housenumber"],
			City:        el.Tags["addr:city"],
			Postcode:    el.Tags["addr:postcode"],
		},
		Lat:          lat,
		Lon:          lon,
		Cuisine:      el.Tags["cuisine"],
		OpeningHours: el.Tags["opening_hours"],
	}
}

// DetermineCategory maps OSM tags to a guide category.
func DetermineCategory(tags map[string]string) string {
	switch tags["amenity"] {
	case "restaurant", "fast_food":
		return models.CategoryRestaurant
	case "cafe":
		return models.CategoryCafe
	case "bar", "pub":
		return models.CategoryBar
	case "nightclub":
		return models.CategoryNightclub
	case "place_of_worship":
		return models.CategoryReligiousSite
	}
	switch tags["tourism"] {
	case "museum", "gallery":
		return models.CategoryMuseum
	case "hotel", "guest_house":
		return models.CategoryHotel
	case "attraction", "viewpoint":
		return models.CategoryAttraction
	}
	if tags["leisure"] == "park" {
		return models.CategoryPark
	}
	if tags["historic"] != "" {
		return models.CategoryHistoricSite
	}
	switch tags["shop"] {
	case "clothes":
		return models.CategoryClothingStore
	case "mall", "department_store":
		return models.CategoryShoppingMall
	case "":
	default:
		return models.CategoryShop
	}
	return models.CategoryOther
}
