package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

type Weather struct {
	Client      *http.Client
	GeocodeURL  string
	ForecastURL string
}

type Conditions struct {
	Place       string
	Temperature float64
	WindSpeed   float64
	Code        int
}

func (c Conditions) String() string {
	return fmt.Sprintf("Weather in %s: %.1f°C, %s, wind %.1f km/h.", c.Place, c.Temperature, describeCode(c.Code), c.WindSpeed)
}

// Current geocodes city and returns the current conditions there.
func (w Weather) Current(ctx context.Context, city string) (Conditions, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Conditions{}, fmt.Errorf("weather: empty city")
	}
	gu, err := withQuery(w.GeocodeURL, url.Values{"name": {city}, "count": {"1"}})
	if err != nil {
		return Conditions{}, err
	}
	body, err := get(ctx, w.Client, gu, "application/json")
	if err != nil {
		return Conditions{}, fmt.Errorf("weather geocode: %w", err)
	}
	place := gjson.GetBytes(body, "results.0")
	if !place.Exists() {
		return Conditions{}, fmt.Errorf("weather %q: %w", city, ErrNotFound)
	}
	name := place.Get("name").String()
	if country := place.Get("country").String(); country != "" {
		name += ", " + country
	}

	fu, err := withQuery(w.ForecastURL, url.Values{
		"latitude":  {strconv.FormatFloat(place.Get("latitude").Float(), 'f', 4, 64)},
		"longitude": {strconv.FormatFloat(place.Get("longitude").Float(), 'f', 4, 64)},
		"current":   {"temperature_2m,wind_speed_10m,weather_code"},
	})
	if err != nil {
		return Conditions{}, err
	}
	body, err = get(ctx, w.Client, fu, "application/json")
	if err != nil {
		return Conditions{}, fmt.Errorf("weather forecast: %w", err)
	}
	cur := gjson.GetBytes(body, "current")
	if !cur.Exists() {
		return Conditions{}, fmt.Errorf("weather forecast: missing current block")
	}
	return Conditions{
		Place:       name,
		Temperature: cur.Get("temperature_2m").Float(),
		WindSpeed:   cur.Get("wind_speed_10m").Float(),
		Code:        int(cur.Get("weather_code").Int()),
	}, nil
}

func withQuery(base string, v url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range v {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// WMO weather interpretation codes.
func describeCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return "rain"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "snow"
	case code >= 95:
		return "thunderstorm"
	}
	return "mixed conditions"
}
