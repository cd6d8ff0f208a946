package security

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/exstem-player/internal/model"
)

// Locator answers a single position query.
type Locator interface {
	Locate(ctx context.Context) (model.Location, error)
}

// StaticLocator always reports the same position. Useful for kiosks with a
// fixed site and for tests.
type StaticLocator struct {
	Location model.Location
}

func (s StaticLocator) Locate(context.Context) (model.Location, error) {
	return s.Location, nil
}

// DeniedLocator behaves like a device whose user refused location access.
// Selected with GEOLOCATION_STATIC=deny on kiosks where location is disabled.
type DeniedLocator struct{}

func (DeniedLocator) Locate(context.Context) (model.Location, error) {
	return model.Location{}, ErrPermissionDenied
}

// HTTPLocator asks a geolocation endpoint once. The endpoint answers
// {"latitude":..,"longitude":..,"accuracy":..}.
type HTTPLocator struct {
	URL    string
	Client *http.Client
}

// NewHTTPLocator returns nil when url is empty so callers can fall back to
// manual entry.
func NewHTTPLocator(url string, timeout time.Duration) *HTTPLocator {
	if url == "" {
		return nil
	}
	return &HTTPLocator{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (l *HTTPLocator) Locate(ctx context.Context) (model.Location, error) {
	if l == nil || l.URL == "" {
		return model.Location{}, ErrLocationUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return model.Location{}, ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		return model.Location{}, fmt.Errorf("%w: status %d", ErrLocationUnavailable, resp.StatusCode)
	}

	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Accuracy  float64  `json:"accuracy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Location{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return model.Location{}, fmt.Errorf("%w: response has no coordinates", ErrLocationUnavailable)
	}
	return model.Location{Latitude: *body.Latitude, Longitude: *body.Longitude, Accuracy: body.Accuracy}, nil
}

// NewLocator picks the locator for this device. static is either "deny" or a
// "lat,lon" pair and wins over url. With neither set it returns nil: location
// is unavailable and the center must be typed in.
func NewLocator(url, static string, timeout time.Duration) (Locator, error) {
	switch {
	case strings.EqualFold(static, "deny"):
		return DeniedLocator{}, nil
	case static != "":
		loc, err := parseLatLon(static)
		if err != nil {
			return nil, err
		}
		return StaticLocator{Location: loc}, nil
	case url != "":
		return NewHTTPLocator(url, timeout), nil
	}
	return nil, nil
}

func parseLatLon(raw string) (model.Location, error) {
	latRaw, lonRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return model.Location{}, fmt.Errorf("static location %q: want lat,lon", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil || lat < -90 || lat > 90 {
		return model.Location{}, fmt.Errorf("static location %q: bad latitude", raw)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil || lon < -180 || lon > 180 {
		return model.Location{}, fmt.Errorf("static location %q: bad longitude", raw)
	}
	return model.Location{Latitude: lat, Longitude: lon}, nil
}
