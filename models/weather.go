package models

import (
	"time"

	"gorm.io/datatypes"
)

// WeatherSample is one fetched snapshot of current conditions for a city.
// Samples are immutable once created and are deleted in bulk when their
// city is deleted. Payload keeps the raw provider response for round-trip
// retrieval; no queryability beyond that is assumed.
type WeatherSample struct {
	Id     uint `json:"id" gorm:"primaryKey"`
	CityId uint `json:"-" gorm:"index;not null"`

	Temperature   float64 `json:"temperature" gorm:"type:numeric(5,2)"`
	FeelsLike     float64 `json:"feels_like" gorm:"type:numeric(5,2)"`
	Humidity      int     `json:"humidity"`
	Pressure      int     `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed" gorm:"type:numeric(5,2)"`
	WindDirection int     `json:"wind_direction"`
	Condition     string  `json:"weather_condition" gorm:"column:weather_condition"`
	Description   string  `json:"weather_description" gorm:"column:weather_description"`
	Icon          string  `json:"weather_icon" gorm:"column:weather_icon;size:10"`
	Clouds        int     `json:"clouds"`
	Visibility    int     `json:"visibility"`

	Sunrise    time.Time `json:"sunrise"`
	Sunset     time.Time `json:"sunset"`
	MeasuredAt time.Time `json:"measured_at" gorm:"index"`

	Payload datatypes.JSON `json:"data_json" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}
