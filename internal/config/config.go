package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

var ErrInvalid = errors.New("invalid setting")

// Dashboard holds the DASHBOARD_* settings.
type Dashboard struct {
	FeedURL      string
	SnapshotURL  string
	Title        string
	Sink         string // "web" | "term"
	Addr         string
	FetchTimeout time.Duration
	Debounce     time.Duration
	PaletteFile  string
	NATSURL      string // when set, the feed is read from NATS instead of the websocket
	NATSSubject  string
	LogMode      string
}

// ScoreFeed holds the SCOREFEED_* settings of the dev feed server.
type ScoreFeed struct {
	Addr        string
	NATSURL     string
	NATSSubject string
	LogMode     string
}

// LoadDotEnv reads .env into the environment if the file exists. Variables that
// are already set win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// DashboardFromEnv reads the dashboard settings. Unset keys take their
// defaults; set but unusable values are reported together.
func DashboardFromEnv() (Dashboard, error) {
	fetchTimeout, errFetch := getEnvAsDuration("DASHBOARD_FETCH_TIMEOUT", 5*time.Second)
	debounce, errDebounce := getEnvAsDuration("DASHBOARD_DEBOUNCE", 0)

	cfg := Dashboard{
		FeedURL:      getEnv("DASHBOARD_FEED_URL", "ws://localhost:8000/ws/results"),
		SnapshotURL:  getEnv("DASHBOARD_SNAPSHOT_URL", "http://localhost:8000/team_scores_by_team"),
		Title:        getEnv("DASHBOARD_TITLE", "Puntos"),
		Sink:         strings.ToLower(getEnv("DASHBOARD_SINK", "web")),
		Addr:         getEnv("DASHBOARD_ADDR", ":8080"),
		FetchTimeout: fetchTimeout,
		Debounce:     debounce,
		PaletteFile:  getEnv("DASHBOARD_PALETTE_FILE", ""),
		NATSURL:      getEnv("DASHBOARD_NATS_URL", ""),
		NATSSubject:  getEnv("DASHBOARD_NATS_SUBJECT", "scores.results"),
		LogMode:      getEnv("LOG_MODE", "development"),
	}

	err := multierr.Combine(errFetch, errDebounce)
	if cfg.Sink != "web" && cfg.Sink != "term" {
		err = multierr.Append(err, fmt.Errorf("%w: DASHBOARD_SINK=%q (want web or term)", ErrInvalid, cfg.Sink))
	}
	return cfg, err
}

func ScoreFeedFromEnv() ScoreFeed {
	return ScoreFeed{
		Addr:        getEnv("SCOREFEED_ADDR", ":8000"),
		NATSURL:     getEnv("SCOREFEED_NATS_URL", ""),
		NATSSubject: getEnv("SCOREFEED_NATS_SUBJECT", "scores.results"),
		LogMode:     getEnv("LOG_MODE", "development"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback, fmt.Errorf("%w: %s=%q (want a non-negative duration like 5s)", ErrInvalid, key, v)
	}
	return d, nil
}
