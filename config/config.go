package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains application configuration.
type Config struct {
	Port string

	FirebaseCredentials string
	FirebaseProjectID   string
	EventsCollection    string
	EventQueryLimit     int
	BBoxMarginDegrees   float64

	MLServiceURL      string
	PredictionTimeout time.Duration

	MapsCredentials string
	NominatimURL    string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	GeocodeCacheTTL time.Duration

	LocationPermission bool
	RefreshSchedule    string
	ToastDuration      time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables and .env. A missing
// .env file is fine; malformed values are not.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                env("PORT", "8080"),
		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS"),
		FirebaseProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
		EventsCollection:    env("EVENTS_COLLECTION", "parking_events"),
		MLServiceURL:        os.Getenv("ML_SERVICE_URL"),
		MapsCredentials:     os.Getenv("MAPS_CREDENTIALS"),
		NominatimURL:        env("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RefreshSchedule:     env("REFRESH_SCHEDULE", "@every 1m"),
		LogLevel:            env("LOG_LEVEL", "info"),
		LogFormat:           env("LOG_FORMAT", "text"),
	}
	if _, set := os.LookupEnv("REFRESH_SCHEDULE"); set {
		cfg.RefreshSchedule = os.Getenv("REFRESH_SCHEDULE")
	}

	var err error
	if cfg.EventQueryLimit, err = intEnv("EVENT_QUERY_LIMIT", 500); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.BBoxMarginDegrees, err = floatEnv("BBOX_MARGIN_DEGREES", 0.02); err != nil {
		return Config{}, err
	}
	if cfg.PredictionTimeout, err = durationEnv("PREDICTION_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GeocodeCacheTTL, err = durationEnv("GEOCODE_CACHE_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ToastDuration, err = durationEnv("TOAST_DURATION", 3*time.Second); err != nil {
		return Config{}, err
	}

	switch p := strings.ToLower(env("LOCATION_PERMISSION", "granted")); p {
	case "granted":
		cfg.LocationPermission = true
	case "denied":
		cfg.LocationPermission = false
	default:
		return Config{}, fmt.Errorf("LOCATION_PERMISSION must be granted or denied, got %q", p)
	}

	return cfg, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 5s, got %q", key, v)
	}
	return d, nil
}
