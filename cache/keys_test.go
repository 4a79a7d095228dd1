package cache

import (
	"strings"
	"testing"
)

func TestKeys_Namespacing(t *testing.T) {
	if got := WeatherKey(756135); got != "weather_756135" {
		t.Errorf("WeatherKey = %q", got)
	}
	if got := ForecastKey(756135); got != "forecast_756135" {
		t.Errorf("ForecastKey = %q", got)
	}
	if got := WeatherCoordsKey(52.23, 21.01); got != "weather_coords_52.23_21.01" {
		t.Errorf("WeatherCoordsKey = %q", got)
	}
	if got := ForecastCoordsKey(52.23, 21.01); got != "forecast_coords_52.23_21.01" {
		t.Errorf("ForecastCoordsKey = %q", got)
	}
}

// Query keys hash the free text, so equal queries collide and different
// queries do not.
func TestKeys_QueryHashing(t *testing.T) {
	a := WeatherQueryKey("Warszawa")
	b := WeatherQueryKey("Warszawa")
	other := WeatherQueryKey("Kraków")

	if a != b {
		t.Errorf("same query produced different keys: %q vs %q", a, b)
	}
	if a == other {
		t.Error("different queries produced the same key")
	}
	if !strings.HasPrefix(a, "weather_query_") {
		t.Errorf("missing namespace prefix: %q", a)
	}
	if WeatherQueryKey("Warszawa") == ForecastQueryKey("Warszawa") {
		t.Error("weather and forecast query keys must not collide")
	}
}
