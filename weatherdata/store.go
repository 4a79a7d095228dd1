package weatherdata

import (
	"errors"
	"time"

	"weather-dashboard-backend/models"
	"weather-dashboard-backend/openweather"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the append-only time series of weather samples per city.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Append inserts one sample mapped from a provider observation. There is
// no deduplication against existing samples with the same measured_at.
func (s *Store) Append(cityID uint, obs *openweather.Observation) error {
	sample := models.WeatherSample{
		CityId:        cityID,
		Temperature:   obs.Temperature,
		FeelsLike:     obs.FeelsLike,
		Humidity:      obs.Humidity,
		Pressure:      obs.Pressure,
		WindSpeed:     obs.WindSpeed,
		WindDirection: obs.WindDirection,
		Condition:     obs.Condition,
		Description:   obs.Description,
		Icon:          obs.Icon,
		Clouds:        obs.Clouds,
		Visibility:    obs.Visibility,
		Sunrise:       obs.Sunrise,
		Sunset:        obs.Sunset,
		MeasuredAt:    obs.MeasuredAt,
		Payload:       datatypes.JSON(obs.Raw),
	}
	return s.db.Create(&sample).Error
}

// LatestFresh returns the newest sample for a city when its creation time
// is within maxAge of now, else reports no sample.
func (s *Store) LatestFresh(cityID uint, maxAge time.Duration) (*models.WeatherSample, bool, error) {
	var sample models.WeatherSample
	err := s.db.Where("city_id = ?", cityID).Order("created_at DESC").First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Since(sample.CreatedAt) >= maxAge {
		return nil, false, nil
	}
	return &sample, true, nil
}

// Latest returns the newest sample for a city regardless of age.
func (s *Store) Latest(cityID uint) (*models.WeatherSample, bool, error) {
	var sample models.WeatherSample
	err := s.db.Where("city_id = ?", cityID).Order("created_at DESC").First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &sample, true, nil
}

// HistoryPoint is one sample projected for charting: timestamp in
// milliseconds for JavaScript dates plus a formatted date string.
type HistoryPoint struct {
	Timestamp   int64   `json:"timestamp"`
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	Condition   string  `json:"weather_condition"`
	Icon        string  `json:"weather_icon"`
}

// History returns all samples for a city ordered by measured_at ascending.
func (s *Store) History(cityID uint) ([]HistoryPoint, error) {
	var samples []models.WeatherSample
	err := s.db.Where("city_id = ?", cityID).Order("measured_at ASC").Find(&samples).Error
	if err != nil {
		return nil, err
	}

	points := make([]HistoryPoint, 0, len(samples))
	for _, sample := range samples {
		points = append(points, HistoryPoint{
			Timestamp:   sample.MeasuredAt.UnixMilli(),
			Date:        sample.MeasuredAt.Format("2006-01-02 15:04:05"),
			Temperature: sample.Temperature,
			Humidity:    sample.Humidity,
			Pressure:    sample.Pressure,
			WindSpeed:   sample.WindSpeed,
			Condition:   sample.Condition,
			Icon:        sample.Icon,
		})
	}
	return points, nil
}

// DeleteForCity removes every sample belonging to a city. Called when an
// unfavorited non-default city is deleted.
func (s *Store) DeleteForCity(cityID uint) error {
	return s.db.Where("city_id = ?", cityID).Delete(&models.WeatherSample{}).Error
}
