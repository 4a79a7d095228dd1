package jobs

import (
	"context"
	"time"

	"weather-dashboard-backend/config"
	"weather-dashboard-backend/models"
	"weather-dashboard-backend/weatherdata"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Refresher re-fetches current weather for every city held in any user's
// favorites and appends a historical sample per city. Cities are processed
// strictly sequentially with a courtesy pause between provider calls; a
// failed city is counted and skipped until the next run.
type Refresher struct {
	db     *gorm.DB
	dir    *weatherdata.Directory
	store  *weatherdata.Store
	client weatherdata.CurrentFetcher
	cfg    config.WeatherConfig
	log    *zap.Logger
}

func NewRefresher(db *gorm.DB, dir *weatherdata.Directory, store *weatherdata.Store, client weatherdata.CurrentFetcher, cfg config.WeatherConfig, logger *zap.Logger) *Refresher {
	return &Refresher{db: db, dir: dir, store: store, client: client, cfg: cfg, log: logger}
}

// Run executes one refresh pass and returns the per-city success and
// failure tallies. It bypasses the cache entirely. When no user holds any
// favorite, the configured default cities are seeded and refreshed
// instead.
func (r *Refresher) Run(ctx context.Context) (successes, failures int) {
	cities, err := r.favoritedCities()
	if err != nil {
		r.log.Error("could not collect favorited cities", zap.Error(err))
		return
	}

	if len(cities) == 0 {
		r.log.Info("no favorited cities; seeding defaults")
		r.dir.SeedDefaults(ctx)

		cities, err = r.favoritedCities()
		if err != nil {
			r.log.Error("could not collect favorited cities", zap.Error(err))
			return
		}
		if len(cities) == 0 {
			// Nobody holds a favorite yet; keep the default pool warm so
			// history starts accumulating before the first user signs up.
			cities, err = r.defaultCities()
			if err != nil {
				r.log.Error("could not collect default cities", zap.Error(err))
				return
			}
		}
	}

	if len(cities) == 0 {
		r.log.Info("no cities to refresh")
		return
	}

	r.log.Info("refreshing weather data", zap.Int("cities", len(cities)))

	for _, city := range cities {
		if err := r.refreshCity(ctx, city); err != nil {
			failures++
			r.log.Error("weather refresh failed",
				zap.String("city", city.Name),
				zap.Int("openweather_id", city.OpenWeatherId),
				zap.Error(err))
		} else {
			successes++
			r.log.Info("weather refreshed", zap.String("city", city.Name))
		}

		pause(ctx, r.cfg.PauseBetweenCities)
	}

	r.log.Info("weather refresh finished",
		zap.Int("successes", successes),
		zap.Int("failures", failures))
	return
}

func (r *Refresher) refreshCity(ctx context.Context, city models.City) error {
	obs, err := r.client.CurrentByID(ctx, city.OpenWeatherId, r.cfg.DefaultLang)
	if err != nil {
		return err
	}
	return r.store.Append(city.Id, obs)
}

func (r *Refresher) favoritedCities() ([]models.City, error) {
	var cities []models.City
	sub := r.db.Model(&models.UserCity{}).Distinct().Select("city_id")
	err := r.db.Where("id IN (?)", sub).Find(&cities).Error
	return cities, err
}

func (r *Refresher) defaultCities() ([]models.City, error) {
	var cities []models.City
	err := r.db.Where("open_weather_id IN ?", r.cfg.DefaultCityIDs).Find(&cities).Error
	return cities, err
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
