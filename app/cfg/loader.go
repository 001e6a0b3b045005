package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./rss-sync.db" description:"SQLite database file"`
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared scheduler lease (optional)"`

	// HTTP server
	Port        string   `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	JWTSecret   string   `long:"jwt-secret" env:"JWT_SECRET" description:"HMAC secret used to verify bearer tokens (required)" required:"true"`
	CORSOrigins []string `long:"cors-origin" env:"CORS_ORIGINS" env-delim:"," description:"Allowed CORS origin, repeatable (default: any)"`
	IssueToken  string   `long:"issue-token" description:"Print a bearer token for the given user id and exit"`

	// Feed sync
	SchedulerInterval    int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Scheduler interval in seconds"`
	WorkerCount          int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of workers for eager feed syncs"`
	BatchSize            int    `long:"batch-size" env:"BATCH_SIZE" default:"10" description:"Feeds synced concurrently per scheduler batch"`
	MinFeedAge           int    `long:"min-feed-age" env:"MIN_FEED_AGE" default:"300" description:"Seconds since last sync before a feed is considered at all"`
	MinSyncAgeFailedFeed int    `long:"min-sync-age-failed-feed" env:"MIN_SYNC_AGE_FAILED_FEED" default:"900" description:"Extra cooldown in seconds after a failed sync"`
	MaxUpsertAge         int    `long:"max-upsert-age" env:"MAX_UPSERT_AGE" default:"300" description:"Items published this many seconds before the newest stored item are skipped"`
	FetchTimeout         int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`
	UserAgent            string `long:"user-agent" env:"USER_AGENT" default:"RSS Sync/1.0" description:"User agent string for HTTP requests"`

	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses the command line and environment. It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if isHelp(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.SchedulerInterval <= 0 || raw.BatchSize <= 0 || raw.WorkerCount <= 0 {
		return nil, fmt.Errorf("scheduler interval, batch size and worker count must be positive")
	}

	cfg := &Cfg{
		DBPath:               raw.DBPath,
		RedisAddr:            raw.RedisAddr,
		Port:                 raw.Port,
		JWTSecret:            raw.JWTSecret,
		CORSOrigins:          raw.CORSOrigins,
		IssueToken:           raw.IssueToken,
		SchedulerInterval:    seconds(raw.SchedulerInterval),
		WorkerCount:          raw.WorkerCount,
		BatchSize:            raw.BatchSize,
		MinFeedAge:           seconds(raw.MinFeedAge),
		MinSyncAgeFailedFeed: seconds(raw.MinSyncAgeFailedFeed),
		MaxUpsertAge:         seconds(raw.MaxUpsertAge),
		FetchTimeout:         seconds(raw.FetchTimeout),
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func isHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}

func milliseconds(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
