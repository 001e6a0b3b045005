package config

import "time"

// FeedConfig declares one subscription the client keeps in its replica.
type FeedConfig struct {
	Feed     FeedInfo     `yaml:"feed"`
	Settings FeedSettings `yaml:"settings"`
}

type FeedInfo struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type FeedSettings struct {
	// Enabled defaults to true. A disabled feed is unsubscribed.
	Enabled         *bool `yaml:"enabled"`
	RefreshInterval int   `yaml:"refresh_interval"` // seconds
}

func (s *FeedSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

func (s *FeedSettings) GetRefreshInterval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(s.RefreshInterval) * time.Second
}

// RequestedFrequency is the refresh interval in the seconds the sync protocol uses.
func (s *FeedSettings) RequestedFrequency() int64 {
	return int64(s.GetRefreshInterval() / time.Second)
}
