package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weather-dashboard-backend/cache"
	"weather-dashboard-backend/config"
	"weather-dashboard-backend/controllers"
	"weather-dashboard-backend/middlewares"
	"weather-dashboard-backend/openweather"
	"weather-dashboard-backend/routes"
	"weather-dashboard-backend/tasks"
	"weather-dashboard-backend/testutil"
	"weather-dashboard-backend/weatherdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testJWTSecret = []byte("test-secret")

// fakeProvider serves canned observations and forecasts by provider city
// id and records how often each path was hit.
type fakeProvider struct {
	observations map[int]*openweather.Observation
	forecasts    map[int]json.RawMessage
	searchHits   []openweather.SearchResult

	currentCalls  int
	forecastCalls int
	searchCalls   int
}

func (f *fakeProvider) CurrentByID(ctx context.Context, id int, lang string) (*openweather.Observation, error) {
	f.currentCalls++
	obs, ok := f.observations[id]
	if !ok {
		return nil, openweather.ErrNotFound
	}
	return obs, nil
}

func (f *fakeProvider) CurrentByCoords(ctx context.Context, lat, lon float64, lang string) (*openweather.Observation, error) {
	f.currentCalls++
	for _, obs := range f.observations {
		if obs.Lat == lat && obs.Lon == lon {
			return obs, nil
		}
	}
	return nil, openweather.ErrNotFound
}

func (f *fakeProvider) CurrentByName(ctx context.Context, query, lang string) (*openweather.Observation, error) {
	f.currentCalls++
	for _, obs := range f.observations {
		if obs.Name == query {
			return obs, nil
		}
	}
	return nil, openweather.ErrNotFound
}

func (f *fakeProvider) ForecastByID(ctx context.Context, id int, lang string) (json.RawMessage, error) {
	f.forecastCalls++
	raw, ok := f.forecasts[id]
	if !ok {
		return nil, openweather.ErrNotFound
	}
	return raw, nil
}

func (f *fakeProvider) ForecastByCoords(ctx context.Context, lat, lon float64, lang string) (json.RawMessage, error) {
	f.forecastCalls++
	for id, obs := range f.observations {
		if obs.Lat == lat && obs.Lon == lon {
			if raw, ok := f.forecasts[id]; ok {
				return raw, nil
			}
		}
	}
	return nil, openweather.ErrNotFound
}

func (f *fakeProvider) ForecastByName(ctx context.Context, query, lang string) (json.RawMessage, error) {
	f.forecastCalls++
	for id, obs := range f.observations {
		if obs.Name == query {
			if raw, ok := f.forecasts[id]; ok {
				return raw, nil
			}
		}
	}
	return nil, openweather.ErrNotFound
}

func (f *fakeProvider) Search(ctx context.Context, query string, limit int) ([]openweather.SearchResult, error) {
	f.searchCalls++
	return f.searchHits, nil
}

func fakeObs(id int, name string, lat, lon float64) *openweather.Observation {
	raw, _ := json.Marshal(map[string]any{"id": id, "name": name})
	return &openweather.Observation{
		CityID:      id,
		Name:        name,
		Country:     "PL",
		Lat:         lat,
		Lon:         lon,
		Temperature: 12.5,
		Humidity:    60,
		Pressure:    1015,
		Condition:   "Clear",
		Icon:        "01d",
		MeasuredAt:  time.Now(),
		Raw:         raw,
	}
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	cache    cache.Cache
	provider *fakeProvider
	queue    *tasks.Queue
	store    *weatherdata.Store
	cfg      config.WeatherConfig
}

func newTestEnv(t *testing.T, provider *fakeProvider) *testEnv {
	t.Helper()
	if provider == nil {
		provider = &fakeProvider{
			observations: map[int]*openweather.Observation{},
			forecasts:    map[int]json.RawMessage{},
		}
	}

	db := testutil.OpenDB(t)
	log := zap.NewNop()
	mem := cache.NewMemory()
	cfg := config.WeatherConfig{
		UpdateInterval: 15 * time.Minute,
		DefaultCityIDs: []int{756135, 3094802},
		DefaultLang:    "pl",
		WeatherTTL:     15 * time.Minute,
		ForecastTTL:    30 * time.Minute,
		ByIDTTL:        5 * time.Minute,
	}

	dir := weatherdata.NewDirectory(db, provider, cfg, log)
	store := weatherdata.NewStore(db)
	queue := tasks.NewQueue(16, log)
	t.Cleanup(queue.Close)

	authCfg := config.AuthConfig{JWTSecret: testJWTSecret, TokenTTL: time.Hour}

	app := fiber.New(fiber.Config{ErrorHandler: middlewares.NewErrorHandler(log)})
	routes.Register(app, db, testJWTSecret, routes.Controllers{
		Auth: &controllers.AuthController{DB: db, Cfg: authCfg, Log: log},
		Weather: &controllers.WeatherController{
			DB: db, Cache: mem, Client: provider, Directory: dir,
			Store: store, Tasks: queue, Cfg: cfg, Log: log,
		},
		City: &controllers.CityController{
			DB: db, Client: provider, Directory: dir,
			Store: store, Cfg: cfg, Log: log,
		},
	})

	return &testEnv{app: app, db: db, cache: mem, provider: provider, queue: queue, store: store, cfg: cfg}
}

func (e *testEnv) request(t *testing.T, method, target, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return buf
}

// registerUser creates an account through the API and returns its token.
func (e *testEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/register", "", fiber.Map{
		"name":             "Test User",
		"email":            email,
		"password":         "secret123",
		"password_confirm": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	if body.Token == "" {
		t.Fatal("register returned no token")
	}
	return body.Token
}
