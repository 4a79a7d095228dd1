package weatherdata

import (
	"context"
	"errors"
	"time"

	"weather-dashboard-backend/config"
	"weather-dashboard-backend/models"
	"weather-dashboard-backend/openweather"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCityNotFound means the provider reports no city for the given id.
var ErrCityNotFound = errors.New("weatherdata: city not found")

// CurrentFetcher is the slice of the provider client the directory needs.
type CurrentFetcher interface {
	CurrentByID(ctx context.Context, id int, lang string) (*openweather.Observation, error)
}

// Directory maps provider city ids to locally stored City rows, creating
// them lazily on first reference. Concurrent first references are settled
// by the unique index on open_weather_id plus an ON CONFLICT DO NOTHING
// insert and a re-read.
type Directory struct {
	db     *gorm.DB
	client CurrentFetcher
	cfg    config.WeatherConfig
	log    *zap.Logger
}

func NewDirectory(db *gorm.DB, client CurrentFetcher, cfg config.WeatherConfig, logger *zap.Logger) *Directory {
	return &Directory{db: db, client: client, cfg: cfg, log: logger}
}

// ResolveOrCreate returns the local City for a provider id, fetching its
// metadata from the provider and inserting a row if it is not yet known.
func (d *Directory) ResolveOrCreate(ctx context.Context, providerID int) (*models.City, error) {
	var city models.City
	err := d.db.Where("open_weather_id = ?", providerID).First(&city).Error
	if err == nil {
		return &city, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	obs, err := d.client.CurrentByID(ctx, providerID, "")
	if err != nil {
		if errors.Is(err, openweather.ErrNotFound) {
			return nil, ErrCityNotFound
		}
		return nil, err
	}
	return d.insert(obs)
}

// ResolveObservation returns the local City for an already-fetched
// observation, inserting a row if needed. Used by the coordinate and
// free-text lookup paths, which carry the metadata in the response.
func (d *Directory) ResolveObservation(obs *openweather.Observation) (*models.City, error) {
	var city models.City
	err := d.db.Where("open_weather_id = ?", obs.CityID).First(&city).Error
	if err == nil {
		return &city, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return d.insert(obs)
}

func (d *Directory) insert(obs *openweather.Observation) (*models.City, error) {
	city := models.City{
		OpenWeatherId: obs.CityID,
		Name:          obs.Name,
		Country:       obs.Country,
		Latitude:      obs.Lat,
		Longitude:     obs.Lon,
	}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "open_weather_id"}},
		DoNothing: true,
	}).Create(&city).Error
	if err != nil {
		return nil, err
	}
	if city.Id == 0 {
		// Lost the insert race; another request created the row.
		if err := d.db.Where("open_weather_id = ?", obs.CityID).First(&city).Error; err != nil {
			return nil, err
		}
	}
	d.log.Info("added city", zap.String("name", city.Name), zap.Int("openweather_id", city.OpenWeatherId))
	return &city, nil
}

// SeedDefaults creates City rows for every configured default city id not
// yet present, pausing between provider calls. Failures are logged and
// skipped; existing rows are left alone.
func (d *Directory) SeedDefaults(ctx context.Context) {
	for _, providerID := range d.cfg.DefaultCityIDs {
		var count int64
		if err := d.db.Model(&models.City{}).Where("open_weather_id = ?", providerID).Count(&count).Error; err != nil {
			d.log.Error("default city lookup failed", zap.Int("openweather_id", providerID), zap.Error(err))
			continue
		}
		if count > 0 {
			continue
		}

		obs, err := d.client.CurrentByID(ctx, providerID, "")
		if err != nil {
			d.log.Error("could not add default city", zap.Int("openweather_id", providerID), zap.Error(err))
		} else if _, err := d.insert(obs); err != nil {
			d.log.Error("could not add default city", zap.Int("openweather_id", providerID), zap.Error(err))
		}

		pause(ctx, d.cfg.PauseBetweenCities)
	}
}

// pause sleeps for d unless the context ends first.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
