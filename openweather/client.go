package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"weather-dashboard-backend/config"

	"go.uber.org/zap"
)

var (
	// ErrNotFound means the provider reports no matching city.
	ErrNotFound = errors.New("openweather: city not found")
	// ErrUnavailable covers timeouts, transport errors and non-2xx
	// responses other than 404.
	ErrUnavailable = errors.New("openweather: provider unavailable")
)

// Client issues HTTP calls to the OpenWeatherMap API: current conditions,
// forecasts, geocoding search and reverse lookup by coordinates. All
// responses use metric units.
type Client struct {
	cfg config.WeatherConfig
	log *zap.Logger

	// weather/forecast lookups carry a short timeout; geocoding uses the
	// default client timeout.
	data *http.Client
	geo  *http.Client
}

func NewClient(cfg config.WeatherConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		log:  logger,
		data: &http.Client{Timeout: cfg.RequestTimeout},
		geo:  &http.Client{},
	}
}

// Observation is one current-conditions payload: the typed fields that get
// persisted plus the raw body returned to API clients.
type Observation struct {
	CityID  int
	Name    string
	Country string
	Lat     float64
	Lon     float64

	Temperature   float64
	FeelsLike     float64
	Humidity      int
	Pressure      int
	WindSpeed     float64
	WindDirection int
	Condition     string
	Description   string
	Icon          string
	Clouds        int
	Visibility    int

	Sunrise    time.Time
	Sunset     time.Time
	MeasuredAt time.Time

	Raw json.RawMessage
}

// SearchResult is one geocoding hit resolved to a provider city id.
type SearchResult struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type currentPayload struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Dt    int64  `json:"dt"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility int `json:"visibility"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

// CurrentByID fetches current weather for a provider city id.
func (c *Client) CurrentByID(ctx context.Context, id int, lang string) (*Observation, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	return c.current(ctx, params, lang)
}

// CurrentByCoords fetches current weather for a coordinate pair.
func (c *Client) CurrentByCoords(ctx context.Context, lat, lon float64, lang string) (*Observation, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	return c.current(ctx, params, lang)
}

// CurrentByName fetches current weather for a free-text city query.
func (c *Client) CurrentByName(ctx context.Context, query, lang string) (*Observation, error) {
	params := url.Values{}
	params.Set("q", query)
	return c.current(ctx, params, lang)
}

func (c *Client) current(ctx context.Context, params url.Values, lang string) (*Observation, error) {
	body, err := c.get(ctx, c.data, c.cfg.BaseURL+"weather", params, lang)
	if err != nil {
		return nil, err
	}

	var payload currentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	obs := &Observation{
		CityID:        payload.ID,
		Name:          payload.Name,
		Country:       payload.Sys.Country,
		Lat:           payload.Coord.Lat,
		Lon:           payload.Coord.Lon,
		Temperature:   payload.Main.Temp,
		FeelsLike:     payload.Main.FeelsLike,
		Humidity:      payload.Main.Humidity,
		Pressure:      payload.Main.Pressure,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Clouds:        payload.Clouds.All,
		Visibility:    payload.Visibility,
		Sunrise:       time.Unix(payload.Sys.Sunrise, 0),
		Sunset:        time.Unix(payload.Sys.Sunset, 0),
		MeasuredAt:    time.Unix(payload.Dt, 0),
		Raw:           body,
	}
	if len(payload.Weather) > 0 {
		obs.Condition = payload.Weather[0].Main
		obs.Description = payload.Weather[0].Description
		obs.Icon = payload.Weather[0].Icon
	}
	return obs, nil
}

// ForecastByID fetches the forecast payload for a provider city id. The
// body is returned verbatim; forecasts are cached, never persisted.
func (c *Client) ForecastByID(ctx context.Context, id int, lang string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	return c.get(ctx, c.data, c.cfg.BaseURL+"forecast", params, lang)
}

// ForecastByCoords fetches the forecast payload for a coordinate pair.
func (c *Client) ForecastByCoords(ctx context.Context, lat, lon float64, lang string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	return c.get(ctx, c.data, c.cfg.BaseURL+"forecast", params, lang)
}

// ForecastByName fetches the forecast payload for a free-text city query.
func (c *Client) ForecastByName(ctx context.Context, query, lang string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)
	return c.get(ctx, c.data, c.cfg.BaseURL+"forecast", params, lang)
}

// Search runs a geocoding lookup and resolves every hit to a provider city
// id via a reverse lookup by coordinates. Hits whose id cannot be resolved
// are dropped so clients never see partial identifiers.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, c.geo, c.cfg.GeoURL+"direct", params, "")
	if err != nil {
		return nil, err
	}

	var hits []struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		State   string  `json:"state"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		id, err := c.cityIDByCoords(ctx, hit.Lat, hit.Lon)
		if err != nil {
			c.log.Warn("dropping search hit without resolvable id",
				zap.String("name", hit.Name), zap.Error(err))
			continue
		}
		results = append(results, SearchResult{
			ID:      id,
			Name:    hit.Name,
			Country: hit.Country,
			State:   hit.State,
			Lat:     hit.Lat,
			Lon:     hit.Lon,
		})
	}
	return results, nil
}

func (c *Client) cityIDByCoords(ctx context.Context, lat, lon float64) (int, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))

	body, err := c.get(ctx, c.geo, c.cfg.BaseURL+"weather", params, "")
	if err != nil {
		return 0, err
	}
	var payload struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if payload.ID == 0 {
		return 0, ErrNotFound
	}
	return payload.ID, nil
}

func (c *Client) get(ctx context.Context, client *http.Client, endpoint string, params url.Values, lang string) ([]byte, error) {
	params.Set("appid", c.cfg.APIKey)
	params.Set("units", "metric")
	if lang != "" {
		params.Set("lang", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.log.Error("openweather API error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
