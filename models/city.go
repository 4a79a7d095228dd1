package models

import "time"

// City maps an OpenWeatherMap city id to locally stored metadata. Rows are
// created lazily on first reference (search, add-to-favorites, weather
// lookup) and never mutated afterwards. The unique index on
// open_weather_id keeps concurrent first references from inserting twice.
type City struct {
	Id            uint    `json:"id" gorm:"primaryKey"`
	OpenWeatherId int     `json:"openweather_id" gorm:"uniqueIndex;not null"`
	Name          string  `json:"name" gorm:"not null"`
	Country       string  `json:"country" gorm:"size:2;not null"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`

	Samples []WeatherSample `json:"-" gorm:"foreignKey:CityId;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserCity is the favorites join row. A user holds at most ten of these;
// the cap is enforced by the favorites handlers, the pair uniqueness by
// the composite index.
type UserCity struct {
	Id        uint      `json:"id" gorm:"primaryKey"`
	UserId    string    `json:"user_id" gorm:"index:idx_user_cities_user_city,unique,priority:1;not null"`
	CityId    uint      `json:"city_id" gorm:"index:idx_user_cities_user_city,unique,priority:2;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserCity) TableName() string { return "user_cities" }

// MaxFavoritesPerUser caps how many cities one user may track.
const MaxFavoritesPerUser = 10
