package cfg

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

type rawClientCfg struct {
	ServerURL    string   `long:"server" env:"RSS_SYNC_SERVER" default:"http://localhost:8080" description:"Sync server base URL"`
	Token        string   `long:"token" env:"RSS_SYNC_TOKEN" description:"Bearer token issued by the server (required)" required:"true"`
	StateFile    string   `long:"state-file" env:"RSS_SYNC_STATE_FILE" default:"./rss-sync-replica.yml" description:"Local replica file"`
	PollInterval int      `long:"poll-interval" env:"RSS_SYNC_POLL_INTERVAL" default:"60" description:"Pull interval in seconds"`
	Debounce     int      `long:"debounce" env:"RSS_SYNC_DEBOUNCE" default:"500" description:"Delay in milliseconds before pushing local changes"`
	FeedsDir     string   `long:"feeds-dir" env:"RSS_SYNC_FEEDS_DIR" description:"Directory of YAML subscription files applied on start"`
	Subscribe    []string `long:"subscribe" description:"Feed URL to subscribe to on start, repeatable"`
	Frequency    int64    `long:"frequency" default:"3600" description:"Requested refresh frequency in seconds for --subscribe"`
	Debug        bool     `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// LoadClient parses the client command line. It returns nil, nil when help was requested.
func LoadClient() (*ClientCfg, error) {
	return LoadClientArgs(os.Args[1:])
}

func LoadClientArgs(args []string) (*ClientCfg, error) {
	var raw rawClientCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if isHelp(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}

	return &ClientCfg{
		ServerURL:    raw.ServerURL,
		Token:        raw.Token,
		StateFile:    raw.StateFile,
		PollInterval: seconds(raw.PollInterval),
		Debounce:     milliseconds(raw.Debounce),
		FeedsDir:     raw.FeedsDir,
		Subscribe:    raw.Subscribe,
		Frequency:    raw.Frequency,
		Debug:        raw.Debug,
	}, nil
}
