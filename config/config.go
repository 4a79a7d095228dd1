package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is the full application configuration. It is loaded once at
// startup and injected into components; nothing reads the environment
// after Load returns.
type AppConfig struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Weather  WeatherConfig
	Cache    CacheConfig
}

type HTTPConfig struct {
	Port            string
	AllowedOrigins  string
	BodyLimitBytes  int
	RateLimitMax    int
	RateLimitWindow time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone)
}

type AuthConfig struct {
	JWTSecret []byte
	TokenTTL  time.Duration
}

// WeatherConfig covers the OpenWeatherMap client, the cache TTLs and the
// refresh job.
type WeatherConfig struct {
	APIKey  string
	BaseURL string // data API, e.g. https://api.openweathermap.org/data/2.5/
	GeoURL  string // geocoding API, e.g. https://api.openweathermap.org/geo/1.0/

	// UpdateInterval is both the refresh job period and the freshness
	// window for serving stored samples on the by-id path.
	UpdateInterval time.Duration

	// DefaultCityIDs seed the discovery pool and the refresh job when no
	// user holds any favorite yet.
	DefaultCityIDs []int

	DefaultLang string

	WeatherTTL  time.Duration // coordinate/query current-weather cache entries
	ForecastTTL time.Duration // forecast cache entries
	ByIDTTL     time.Duration // current-weather-by-id cache entries

	RequestTimeout     time.Duration // per-call timeout on weather/forecast lookups
	PauseBetweenCities time.Duration // courtesy pause between sequential provider calls
}

// IsDefaultCity reports whether the provider id is one of the configured
// default cities. Default cities are never deleted on unfavorite.
func (c WeatherConfig) IsDefaultCity(providerID int) bool {
	for _, id := range c.DefaultCityIDs {
		if id == providerID {
			return true
		}
	}
	return false
}

type CacheConfig struct {
	// MemcachedAddrs is a comma-separated server list. Empty selects the
	// in-process cache.
	MemcachedAddrs string
}

// Ten Polish cities by OpenWeatherMap id, seeded when nobody has
// favorites yet.
var defaultCityIDs = []int{
	756135,  // Warszawa
	3094802, // Kraków
	3081368, // Wrocław
	3088171, // Poznań
	3099434, // Gdańsk
	3093133, // Łódź
	3096472, // Katowice
	765876,  // Lublin
	3085128, // Szczecin
	759734,  // Rzeszów
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: no .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		HTTP: HTTPConfig{
			Port:            getenvDefault("PORT", "8080"),
			AllowedOrigins:  getenvDefault("ALLOWED_ORIGINS", "*"),
			RateLimitMax:    getenvInt("RATE_LIMIT_MAX", 60),
			RateLimitWindow: time.Duration(getenvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getenvDefault("DB_HOST", "db"),
			Port:     getenvDefault("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
			TimeZone: getenvDefault("DB_TIMEZONE", "Europe/Warsaw"),
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Weather: WeatherConfig{
			APIKey:             os.Getenv("OPENWEATHER_API_KEY"),
			BaseURL:            getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/"),
			GeoURL:             getenvDefault("OPENWEATHER_GEO_URL", "https://api.openweathermap.org/geo/1.0/"),
			UpdateInterval:     time.Duration(getenvInt("WEATHER_UPDATE_INTERVAL", 30)) * time.Minute,
			DefaultCityIDs:     getenvIntList("WEATHER_DEFAULT_CITIES", defaultCityIDs),
			DefaultLang:        getenvDefault("WEATHER_LANG", "pl"),
			WeatherTTL:         15 * time.Minute,
			ForecastTTL:        30 * time.Minute,
			ByIDTTL:            5 * time.Minute,
			RequestTimeout:     time.Second,
			PauseBetweenCities: time.Second,
		},
		Cache: CacheConfig{
			MemcachedAddrs: os.Getenv("MEMCACHED_ADDRS"),
		},
	}

	// Fiber default BodyLimit is 4 MiB if unset; allow overriding with
	// BODY_LIMIT_BYTES or BODY_LIMIT_MB.
	cfg.HTTP.BodyLimitBytes = getenvInt("BODY_LIMIT_BYTES", 0)
	if cfg.HTTP.BodyLimitBytes <= 0 {
		cfg.HTTP.BodyLimitBytes = getenvInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	secret := os.Getenv("JWT_SECRET_KEY")
	if strings.TrimSpace(secret) == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	cfg.Auth.JWTSecret = []byte(secret)

	if cfg.Weather.APIKey == "" {
		log.Printf("WARN: OPENWEATHER_API_KEY is empty; provider calls will fail")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvIntList(key string, def []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			log.Printf("WARN: ignoring invalid entry %q in %s", part, key)
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
