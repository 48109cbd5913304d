package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/rss-reader.db" description:"Path to the SQLite database file"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Fetching and extraction
	UserAgent      string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests (default: desktop Chrome)"`
	FetchTimeout   int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Timeout in seconds for feed and page requests"`
	HostInterval   int    `long:"host-interval" env:"HOST_INTERVAL" default:"0" description:"Minimum interval in milliseconds between page fetches to the same host (0 disables)"`
	ExtractWorkers int    `long:"extract-workers" env:"EXTRACT_WORKERS" default:"4" description:"Concurrent content extractions per feed"`

	// Background tasks
	WorkerCount int `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for feed ingestion"`
	TaskTimeout int `long:"task-timeout" env:"TASK_TIMEOUT" default:"300" description:"Timeout in seconds for a background ingestion task"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses command-line flags and environment variables. It returns
// (nil, nil) when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs is Load with explicit arguments; nil means os.Args[1:].
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	return &Cfg{
		DBPath:         raw.DBPath,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		UserAgent:      cmp.Or(raw.UserAgent, DefaultUserAgent),
		FetchTimeout:   time.Duration(raw.FetchTimeout) * time.Second,
		HostInterval:   time.Duration(raw.HostInterval) * time.Millisecond,
		ExtractWorkers: raw.ExtractWorkers,
		WorkerCount:    raw.WorkerCount,
		TaskTimeout:    time.Duration(raw.TaskTimeout) * time.Second,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}, nil
}

func validate(raw *rawCfg) error {
	if raw.DBPath == "" {
		return fmt.Errorf("db-path must not be empty")
	}
	if raw.FetchTimeout <= 0 {
		return fmt.Errorf("fetch-timeout must be positive, got %d", raw.FetchTimeout)
	}
	if raw.HostInterval < 0 {
		return fmt.Errorf("host-interval must not be negative, got %d", raw.HostInterval)
	}
	if raw.ExtractWorkers <= 0 {
		return fmt.Errorf("extract-workers must be positive, got %d", raw.ExtractWorkers)
	}
	if raw.WorkerCount <= 0 {
		return fmt.Errorf("worker-count must be positive, got %d", raw.WorkerCount)
	}
	if raw.TaskTimeout <= 0 {
		return fmt.Errorf("task-timeout must be positive, got %d", raw.TaskTimeout)
	}
	return nil
}
