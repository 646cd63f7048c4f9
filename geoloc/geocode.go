package geoloc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bcampbell/arts/util"
	"golang.org/x/time/rate"
)

// ErrGeocodeUnavailable signals the lookup itself failed (as opposed to
// succeeding with no match).
var ErrGeocodeUnavailable = errors.New("geocoder unavailable")

// Point is a resolved latitude/longitude pair. A nil *Point means "no
// location" - there's no half-populated state.
type Point struct {
	Lat float64
	Lon float64
}

// Geocoder resolves free-text place names via a nominatim-style endpoint.
type Geocoder struct {
	Client *http.Client
	// eg "https://nominatim.openstreetmap.org/search"
	BaseURL string
	// nominatim requires an identifying user-agent
	UserAgent string
	// limiter paces lookups (nominatim asks for max 1/sec)
	limiter *rate.Limiter
}

func NewGeocoder(baseURL, userAgent string, limiter *rate.Limiter) *Geocoder {
	return &Geocoder{
		Client:    &http.Client{Transport: util.NewPoliteTripper()},
		BaseURL:   baseURL,
		UserAgent: userAgent,
		limiter:   limiter,
	}
}

// nominatim returns lat/lon as strings
type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode looks up a place name. Returns (nil,nil) when the geocoder has
// no match - that's a perfectly normal outcome, not an error.
func (g *Geocoder) Geocode(ctx context.Context, place string) (*Point, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("q", place)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", g.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGeocodeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%w: HTTP %s", ErrGeocodeUnavailable, resp.Status)
	}

	var results []geocodeResult
	err = json.NewDecoder(resp.Body).Decode(&results)
	if err != nil {
		return nil, fmt.Errorf("%w: bad response (%s)", ErrGeocodeUnavailable, err)
	}

	if len(results) == 0 {
		return nil, nil // no match
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", ErrGeocodeUnavailable, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", ErrGeocodeUnavailable, results[0].Lon)
	}

	return &Point{Lat: lat, Lon: lon}, nil
}
