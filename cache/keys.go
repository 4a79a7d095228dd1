package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Keys are namespaced by request kind plus either a city id, a coordinate
// pair or a hashed free-text query. A refresh-job write and a user-facing
// write to the same key are independent; the most recent one wins.

func WeatherKey(cityID int) string {
	return "weather_" + strconv.Itoa(cityID)
}

func WeatherCoordsKey(lat, lon float64) string {
	return fmt.Sprintf("weather_coords_%s_%s", coord(lat), coord(lon))
}

func WeatherQueryKey(query string) string {
	return "weather_query_" + hashQuery(query)
}

func ForecastKey(cityID int) string {
	return "forecast_" + strconv.Itoa(cityID)
}

func ForecastCoordsKey(lat, lon float64) string {
	return fmt.Sprintf("forecast_coords_%s_%s", coord(lat), coord(lon))
}

func ForecastQueryKey(query string) string {
	return "forecast_query_" + hashQuery(query)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func hashQuery(query string) string {
	sum := md5.Sum([]byte(query))
	return hex.EncodeToString(sum[:])
}
