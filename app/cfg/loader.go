package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/digest.db" description:"SQLite database file"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source override files (<name>.yml)"`
	RedisURL   string `long:"redis-url" env:"REDIS_URL" description:"Redis URL for the last-updated watermarks (optional, defaults to SQLite)"`

	// Image object storage
	S3Bucket    string `long:"s3-bucket" env:"S3_BUCKET" description:"Bucket for scraped images (optional, defaults to SQLite)"`
	S3Endpoint  string `long:"s3-endpoint" env:"S3_ENDPOINT" description:"Custom S3 endpoint, e.g. Cloudflare R2"`
	S3Region    string `long:"s3-region" env:"S3_REGION" default:"auto" description:"S3 region"`
	S3AccessKey string `long:"s3-access-key" env:"S3_ACCESS_KEY" description:"S3 access key"`
	S3SecretKey string `long:"s3-secret-key" env:"S3_SECRET_KEY" description:"S3 secret key"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://digest.example.com)"`
	UpdateKey         string `long:"update-key" env:"HN_UPDATE_KEY" description:"Shared secret required by POST /update"`
	FeedAuthor        string `long:"feed-author" env:"FEED_AUTHOR" default:"News Digest" description:"Author attribution of generated Atom feeds"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background refresh workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"600" description:"Background refresh interval in seconds (0 disables)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"News Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		RedisURL:          raw.RedisURL,
		S3Bucket:          raw.S3Bucket,
		S3Endpoint:        raw.S3Endpoint,
		S3Region:          raw.S3Region,
		S3AccessKey:       raw.S3AccessKey,
		S3SecretKey:       raw.S3SecretKey,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		UpdateKey:         raw.UpdateKey,
		FeedAuthor:        raw.FeedAuthor,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

// Validate rejects combinations that would leave the service half configured.
func (c *Cfg) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	if c.SchedulerInterval < 0 {
		return fmt.Errorf("scheduler interval must be non-negative, got %d", c.SchedulerInterval)
	}
	if c.S3Bucket != "" && (c.S3AccessKey == "") != (c.S3SecretKey == "") {
		return fmt.Errorf("S3 access key and secret key must be set together")
	}
	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
