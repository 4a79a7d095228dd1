package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"weather-dashboard-backend/cache"
	"weather-dashboard-backend/config"
	"weather-dashboard-backend/openweather"
	"weather-dashboard-backend/tasks"
	"weather-dashboard-backend/weatherdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WeatherProvider is the slice of the OpenWeatherMap client the handlers
// use; tests substitute a fake.
type WeatherProvider interface {
	CurrentByID(ctx context.Context, id int, lang string) (*openweather.Observation, error)
	CurrentByCoords(ctx context.Context, lat, lon float64, lang string) (*openweather.Observation, error)
	CurrentByName(ctx context.Context, query, lang string) (*openweather.Observation, error)
	ForecastByID(ctx context.Context, id int, lang string) (json.RawMessage, error)
	ForecastByCoords(ctx context.Context, lat, lon float64, lang string) (json.RawMessage, error)
	ForecastByName(ctx context.Context, query, lang string) (json.RawMessage, error)
	Search(ctx context.Context, query string, limit int) ([]openweather.SearchResult, error)
}

// WeatherController serves the synchronous read paths: cache first, then
// (for the by-id path) the freshness of the last stored sample, then the
// provider, writing through to the cache and scheduling a best-effort
// history append.
type WeatherController struct {
	DB        *gorm.DB
	Cache     cache.Cache
	Client    WeatherProvider
	Directory *weatherdata.Directory
	Store     *weatherdata.Store
	Tasks     *tasks.Queue
	Cfg       config.WeatherConfig
	Log       *zap.Logger
}

func (ct *WeatherController) CurrentByID(c *fiber.Ctx) error {
	cityID, err := c.ParamsInt("cityId")
	if err != nil || cityID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city id")
	}

	city, err := ct.Directory.ResolveOrCreate(c.Context(), cityID)
	if errors.Is(err, weatherdata.ErrCityNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("city resolution failed", zap.Int("openweather_id", cityID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch weather data")
	}

	key := cache.WeatherKey(cityID)
	if raw, ok := ct.Cache.Get(key); ok {
		return sendRaw(c, raw)
	}

	// A stored sample newer than the update interval is current enough to
	// skip a live provider call.
	sample, fresh, err := ct.Store.LatestFresh(city.Id, ct.Cfg.UpdateInterval)
	if err != nil {
		ct.Log.Error("freshness check failed", zap.String("city", city.Name), zap.Error(err))
	} else if fresh && len(sample.Payload) > 0 {
		ct.Cache.Set(key, sample.Payload, ct.Cfg.ByIDTTL)
		return sendRaw(c, sample.Payload)
	}

	obs, err := ct.Client.CurrentByID(c.Context(), cityID, ct.Cfg.DefaultLang)
	if errors.Is(err, openweather.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("weather fetch failed", zap.Int("openweather_id", cityID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch weather data")
	}

	ct.scheduleAppend(city.Id, obs)
	ct.Cache.Set(key, obs.Raw, ct.Cfg.ByIDTTL)

	return sendRaw(c, obs.Raw)
}

func (ct *WeatherController) CurrentByCoords(c *fiber.Ctx) error {
	lat, lon, err := parseCoords(c)
	if err != nil {
		return err
	}
	lang := c.Query("lang", ct.Cfg.DefaultLang)

	key := cache.WeatherCoordsKey(lat, lon)
	if raw, ok := ct.Cache.Get(key); ok {
		return sendRaw(c, raw)
	}

	obs, err := ct.Client.CurrentByCoords(c.Context(), lat, lon, lang)
	if errors.Is(err, openweather.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("weather fetch failed",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch weather data")
	}

	city, err := ct.Directory.ResolveObservation(obs)
	if err != nil {
		ct.Log.Error("city resolution failed", zap.Int("openweather_id", obs.CityID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch weather data")
	}

	ct.scheduleAppend(city.Id, obs)
	ct.Cache.Set(key, obs.Raw, ct.Cfg.WeatherTTL)

	return sendRaw(c, obs.Raw)
}

func (ct *WeatherController) CurrentByName(c *fiber.Ctx) error {
	query := c.Query("q")
	if len(query) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "query must be at least 2 characters")
	}
	lang := c.Query("lang", ct.Cfg.DefaultLang)

	key := cache.WeatherQueryKey(query)
	if raw, ok := ct.Cache.Get(key); ok {
		return sendRaw(c, raw)
	}

	obs, err := ct.Client.CurrentByName(c.Context(), query, lang)
	if errors.Is(err, openweather.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("weather fetch failed", zap.String("query", query), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch weather data")
	}

	city, err := ct.Directory.ResolveObservation(obs)
	if err != nil {
		ct.Log.Error("city resolution failed", zap.Int("openweather_id", obs.CityID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch weather data")
	}

	ct.scheduleAppend(city.Id, obs)
	ct.Cache.Set(key, obs.Raw, ct.Cfg.WeatherTTL)

	return sendRaw(c, obs.Raw)
}

func (ct *WeatherController) ForecastByID(c *fiber.Ctx) error {
	cityID, err := c.ParamsInt("cityId")
	if err != nil || cityID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city id")
	}

	// Forecasts are only served for cities already known locally.
	var count int64
	if err := ct.DB.Table("cities").Where("open_weather_id = ?", cityID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}

	key := cache.ForecastKey(cityID)
	if raw, ok := ct.Cache.Get(key); ok {
		return sendRaw(c, raw)
	}

	raw, err := ct.Client.ForecastByID(c.Context(), cityID, ct.Cfg.DefaultLang)
	if errors.Is(err, openweather.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("forecast fetch failed", zap.Int("openweather_id", cityID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch forecast data")
	}

	ct.Cache.Set(key, raw, ct.Cfg.ForecastTTL)
	return sendRaw(c, raw)
}

func (ct *WeatherController) ForecastByCoords(c *fiber.Ctx) error {
	lat, lon, err := parseCoords(c)
	if err != nil {
		return err
	}
	lang := c.Query("lang", ct.Cfg.DefaultLang)

	key := cache.ForecastCoordsKey(lat, lon)
	if raw, ok := ct.Cache.Get(key); ok {
		return sendRaw(c, raw)
	}

	raw, err := ct.Client.ForecastByCoords(c.Context(), lat, lon, lang)
	if errors.Is(err, openweather.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("forecast fetch failed",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch forecast data")
	}

	ct.Cache.Set(key, raw, ct.Cfg.ForecastTTL)
	return sendRaw(c, raw)
}

func (ct *WeatherController) ForecastByName(c *fiber.Ctx) error {
	query := c.Query("q")
	if len(query) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "query must be at least 2 characters")
	}
	lang := c.Query("lang", ct.Cfg.DefaultLang)

	key := cache.ForecastQueryKey(query)
	if raw, ok := ct.Cache.Get(key); ok {
		return sendRaw(c, raw)
	}

	raw, err := ct.Client.ForecastByName(c.Context(), query, lang)
	if errors.Is(err, openweather.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("forecast fetch failed", zap.String("query", query), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch forecast data")
	}

	ct.Cache.Set(key, raw, ct.Cfg.ForecastTTL)
	return sendRaw(c, raw)
}

// scheduleAppend persists the observation to the historical store without
// blocking the response. A failed or dropped append never affects the
// response already sent.
func (ct *WeatherController) scheduleAppend(cityID uint, obs *openweather.Observation) {
	ct.Tasks.Submit("append weather sample", func() error {
		return ct.Store.Append(cityID, obs)
	})
}

func parseCoords(c *fiber.Ctx) (lat, lon float64, err error) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lat and lon query parameters are required")
	}
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lat must be numeric")
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lon must be numeric")
	}
	return lat, lon, nil
}

func sendRaw(c *fiber.Ctx, raw []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}
