package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath    string
	RedisAddr string

	// HTTP server
	Port        string
	JWTSecret   string
	CORSOrigins []string
	IssueToken  string

	// Feed sync
	SchedulerInterval    time.Duration
	WorkerCount          int
	BatchSize            int
	MinFeedAge           time.Duration
	MinSyncAgeFailedFeed time.Duration
	MaxUpsertAge         time.Duration
	FetchTimeout         time.Duration
	UserAgent            string

	Timezone string
	Debug    bool
	Version  string
}

type ClientCfg struct {
	ServerURL    string
	Token        string
	StateFile    string
	PollInterval time.Duration
	Debounce     time.Duration
	FeedsDir     string
	Subscribe    []string
	Frequency    int64
	Debug        bool
}
