package controllers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"weather-dashboard-backend/cache"
	"weather-dashboard-backend/models"
)

func TestCurrentByID_ServesProviderAndCaches(t *testing.T) {
	env := newTestEnv(t, providerWithCities(756135))

	resp := env.request(t, http.MethodGet, "/weather/756135", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var payload struct {
		ID int `json:"id"`
	}
	decodeBody(t, resp, &payload)
	if payload.ID != 756135 {
		t.Errorf("payload id = %d", payload.ID)
	}

	if _, ok := env.cache.Get(cache.WeatherKey(756135)); !ok {
		t.Error("response not cached")
	}

	// ResolveOrCreate and the weather fetch each hit the provider once.
	calls := env.provider.currentCalls
	resp = env.request(t, http.MethodGet, "/weather/756135", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.provider.currentCalls != calls {
		t.Errorf("cached request hit the provider: %d -> %d calls", calls, env.provider.currentCalls)
	}
}

func TestCurrentByID_AppendsHistoricalSample(t *testing.T) {
	env := newTestEnv(t, providerWithCities(756135))

	resp := env.request(t, http.MethodGet, "/weather/756135", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// Drain the background queue before checking the store.
	env.queue.Close()

	var city models.City
	if err := env.db.Where("open_weather_id = ?", 756135).First(&city).Error; err != nil {
		t.Fatalf("city row missing: %v", err)
	}
	if _, ok, _ := env.store.Latest(city.Id); !ok {
		t.Error("no historical sample appended")
	}
}

func TestCurrentByID_ServesFreshStoredSample(t *testing.T) {
	env := newTestEnv(t, providerWithCities(756135))
	token := env.registerUser(t, "jan@example.com")
	env.addFavorite(t, token, 756135)

	var city models.City
	if err := env.db.Where("open_weather_id = ?", 756135).First(&city).Error; err != nil {
		t.Fatalf("city row missing: %v", err)
	}
	obs := fakeObs(756135, "City 756135", 50, 20)
	if err := env.store.Append(city.Id, obs); err != nil {
		t.Fatalf("seeding sample: %v", err)
	}

	calls := env.provider.currentCalls
	resp := env.request(t, http.MethodGet, "/weather/756135", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.provider.currentCalls != calls {
		t.Error("fresh stored sample must be served without a provider call")
	}
	if _, ok := env.cache.Get(cache.WeatherKey(756135)); !ok {
		t.Error("stored sample not written back to the cache")
	}
}

func TestCurrentByID_UnknownCity(t *testing.T) {
	env := newTestEnv(t, providerWithCities())

	resp := env.request(t, http.MethodGet, "/weather/42", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCurrentByCoords_ValidatesParams(t *testing.T) {
	env := newTestEnv(t, providerWithCities(756135))

	for _, target := range []string{
		"/weather/coordinates",
		"/weather/coordinates?lat=52.2",
		"/weather/coordinates?lat=abc&lon=21.0",
	} {
		resp := env.request(t, http.MethodGet, target, "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, resp.StatusCode)
		}
	}
	if env.provider.currentCalls != 0 {
		t.Errorf("provider calls = %d, want 0", env.provider.currentCalls)
	}
}

func TestCurrentByCoords_CreatesCityRow(t *testing.T) {
	env := newTestEnv(t, providerWithCities(756135))

	resp := env.request(t, http.MethodGet, "/weather/coordinates?lat=50&lon=20", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var count int64
	env.db.Model(&models.City{}).Where("open_weather_id = ?", 756135).Count(&count)
	if count != 1 {
		t.Error("city row not created from the observation")
	}
	if _, ok := env.cache.Get(cache.WeatherCoordsKey(50, 20)); !ok {
		t.Error("response not cached under the coordinate key")
	}
}

func TestCurrentByName_ShortQuery(t *testing.T) {
	env := newTestEnv(t, providerWithCities(756135))

	resp := env.request(t, http.MethodGet, "/weather/city?q=a", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestForecastByID_RequiresLocalCity(t *testing.T) {
	provider := providerWithCities(756135)
	provider.forecasts[756135] = json.RawMessage(`{"list":[{"dt":1}]}`)
	env := newTestEnv(t, provider)

	// Not yet known locally.
	resp := env.request(t, http.MethodGet, "/weather/forecast/756135", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before the city is known", resp.StatusCode)
	}

	// A current-weather request creates the row; the forecast then serves.
	env.request(t, http.MethodGet, "/weather/756135", "", nil)
	resp = env.request(t, http.MethodGet, "/weather/forecast/756135", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if string(readBody(t, resp)) != `{"list":[{"dt":1}]}` {
		t.Error("forecast body not passed through verbatim")
	}
	if _, ok := env.cache.Get(cache.ForecastKey(756135)); !ok {
		t.Error("forecast not cached")
	}
}

func TestForecastByCoords_Caches(t *testing.T) {
	provider := providerWithCities(756135)
	provider.forecasts[756135] = json.RawMessage(`{"list":[]}`)
	env := newTestEnv(t, provider)

	resp := env.request(t, http.MethodGet, "/weather/forecast/coordinates?lat=50&lon=20", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	calls := env.provider.forecastCalls
	resp = env.request(t, http.MethodGet, "/weather/forecast/coordinates?lat=50&lon=20", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.provider.forecastCalls != calls {
		t.Error("cached forecast request hit the provider")
	}
}

func TestCacheExpiry_FallsThroughToProvider(t *testing.T) {
	env := newTestEnv(t, providerWithCities(756135))

	// Plant an expired entry; the handler must ignore it and refetch.
	env.cache.Set(cache.WeatherQueryKey("City 756135"), []byte(`{"stale":true}`), -time.Second)

	resp := env.request(t, http.MethodGet, "/weather/city?q=City+756135", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload struct {
		Stale bool   `json:"stale"`
		Name  string `json:"name"`
	}
	decodeBody(t, resp, &payload)
	if payload.Stale {
		t.Error("expired cache entry was served")
	}
	if env.provider.currentCalls == 0 {
		t.Error("provider was not consulted after cache expiry")
	}
}
