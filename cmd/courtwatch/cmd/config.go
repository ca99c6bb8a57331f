package cmd

import (
	"errors"
	"os"
	"time"

	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"
	"courtwatch/internal/monitor"
	"courtwatch/internal/scrapers/webtrac"
	"courtwatch/pkg/configutil"
)

type SiteConfig struct {
	BaseUrl           string  `json:"base_url"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	RetryBackoffMs    int     `json:"retry_backoff_ms"`
	BeginTime         string  `json:"begin_time"`
}

type PaginationConfig struct {
	DuplicateThreshold float64 `json:"duplicate_threshold"`
	MaxPages           int     `json:"max_pages"`
}

type ExtractConfig struct {
	StatusPolicy       string   `json:"status_policy"`
	MaintenanceMarkers []string `json:"maintenance_markers"`
}

type MonitorConfig struct {
	IntervalMinutes int      `json:"interval_minutes"`
	Schedule        string   `json:"schedule"`
	DaysAhead       int      `json:"days_ahead"`
	Sports          []string `json:"sports"`
	Location        string   `json:"location"`
}

type AnalyticsConfig struct {
	LookbackDays int `json:"lookback_days"`
}

type RetentionConfig struct {
	Days int `json:"days"`
}

type FacilityConfig struct {
	TimeZone string `json:"time_zone"`
}

type Config struct {
	Database   configutil.Database `json:"database"`
	Site       SiteConfig          `json:"site"`
	Pagination PaginationConfig    `json:"pagination"`
	Extract    ExtractConfig       `json:"extract"`
	Monitor    MonitorConfig       `json:"monitor"`
	Analytics  AnalyticsConfig     `json:"analytics"`
	Retention  RetentionConfig     `json:"retention"`
	Telemetry  telemetry.Config    `json:"telemetry"`
	Facility   FacilityConfig      `json:"facility"`
}

func defaultConfig() Config {
	session := webtrac.DefaultSessionConfig()
	pagination := webtrac.DefaultPaginationConfig()
	extract := webtrac.DefaultExtractOptions()
	monitorConfig := monitor.DefaultConfig()

	return Config{
		Database: configutil.Database{File: "data/courtwatch.db"},
		Site: SiteConfig{
			BaseUrl:           session.BaseURL,
			TimeoutSeconds:    int(session.Timeout / time.Second),
			RequestsPerSecond: session.RequestsPerSecond,
			RetryBackoffMs:    int(session.RetryBackoff / time.Millisecond),
			BeginTime:         session.BeginTime,
		},
		Pagination: PaginationConfig{
			DuplicateThreshold: pagination.DuplicateThreshold,
			MaxPages:           pagination.MaxPages,
		},
		Extract: ExtractConfig{
			StatusPolicy:       string(extract.Policy),
			MaintenanceMarkers: extract.MaintenanceMarkers,
		},
		Monitor: MonitorConfig{
			IntervalMinutes: int(monitorConfig.Interval / time.Minute),
			DaysAhead:       monitorConfig.DaysAhead,
		},
		Analytics: AnalyticsConfig{LookbackDays: 30},
		Retention: RetentionConfig{Days: 30},
		Facility:  FacilityConfig{TimeZone: "America/New_York"},
	}
}

// loadConfig reads the configuration from path, or searches for courtwatch.json5
// from the working directory upwards when path is empty. A missing file is not an
// error, the defaults are used.
func loadConfig(path string) (Config, string, error) {
	var config Config
	var err error
	if path != "" {
		config, err = configutil.ReadConfig[Config](path)
	} else {
		config, path, err = configutil.ReadRecursively[Config](".", "courtwatch.json5")
	}
	if errors.Is(err, os.ErrNotExist) {
		config, path, err = Config{}, "", nil
	}
	if err != nil {
		return Config{}, "", err
	}

	config, err = configutil.WithDefaults(config, defaultConfig())
	if err != nil {
		return Config{}, "", err
	}
	return config, path, nil
}

func (c Config) sessionConfig() webtrac.SessionConfig {
	return webtrac.SessionConfig{
		BaseURL:           c.Site.BaseUrl,
		Timeout:           time.Duration(c.Site.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Site.RequestsPerSecond,
		RetryBackoff:      time.Duration(c.Site.RetryBackoffMs) * time.Millisecond,
		BeginTime:         c.Site.BeginTime,
	}
}

func (c Config) extractOptions() (webtrac.ExtractOptions, error) {
	policy, err := webtrac.ParseStatusPolicy(c.Extract.StatusPolicy)
	if err != nil {
		return webtrac.ExtractOptions{}, err
	}
	return webtrac.ExtractOptions{
		Policy:             policy,
		MaintenanceMarkers: c.Extract.MaintenanceMarkers,
	}, nil
}

func (c Config) paginationConfig() webtrac.PaginationConfig {
	return webtrac.PaginationConfig{
		DuplicateThreshold: c.Pagination.DuplicateThreshold,
		MaxPages:           c.Pagination.MaxPages,
	}
}

func (c Config) monitorConfig() (monitor.Config, error) {
	sports, err := parseSports(c.Monitor.Sports...)
	if err != nil {
		return monitor.Config{}, err
	}
	return monitor.Config{
		Interval:  time.Duration(c.Monitor.IntervalMinutes) * time.Minute,
		Schedule:  c.Monitor.Schedule,
		DaysAhead: c.Monitor.DaysAhead,
		Sports:    sports,
		Location:  c.Monitor.Location,
	}, nil
}

func (c Config) lookback() time.Duration {
	return time.Duration(c.Analytics.LookbackDays) * 24 * time.Hour
}

// parseSports turns sport names into sports, "all" or nothing at all means every sport.
func parseSports(values ...string) ([]courts.Sport, error) {
	var out []courts.Sport
	for _, value := range values {
		if value == "" || value == "all" {
			return nil, nil
		}
		sport, err := courts.ParseSport(value)
		if err != nil {
			return nil, err
		}
		out = append(out, sport)
	}
	return out, nil
}
