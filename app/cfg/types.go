package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string

	// HTTP server
	Port         string
	APIAccessKey string

	// Fetching and extraction
	UserAgent      string
	FetchTimeout   time.Duration
	HostInterval   time.Duration
	ExtractWorkers int

	// Background tasks
	WorkerCount int
	TaskTimeout time.Duration

	// Application metadata
	Debug   bool
	Version string
}
