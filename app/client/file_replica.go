package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/model"
)

type replicaFile struct {
	UserID        string                   `yaml:"userId"`
	Watermark     int64                    `yaml:"watermark"`
	Seq           uint64                   `yaml:"seq"`
	Feeds         []model.Feed             `yaml:"feeds"`
	Items         []model.FeedItem         `yaml:"items"`
	Subscriptions []model.UserSubscription `yaml:"subscriptions"`
	Reads         []model.UserFeedItemRead `yaml:"reads"`
	Pending       []pendingChange          `yaml:"pending"`
}

// FileReplica is a MemoryReplica saved to a YAML file after every change.
type FileReplica struct {
	*MemoryReplica
	path string
}

// OpenFileReplica loads the replica stored at path, or starts an empty one
// when the file does not exist yet.
func OpenFileReplica(path, userID string, c clock.Clock) (*FileReplica, error) {
	r := &FileReplica{
		MemoryReplica: NewMemoryReplica(userID, c),
		path:          path,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read replica file: %w", err)
	default:
		var file replicaFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse replica file %s: %w", path, err)
		}
		if file.UserID != "" && file.UserID != userID {
			return nil, fmt.Errorf("replica file %s belongs to user %s", path, file.UserID)
		}
		r.load(file)
	}

	r.persist = r.save
	return r, nil
}

func (r *FileReplica) load(file replicaFile) {
	m := r.MemoryReplica
	m.watermark = file.Watermark
	m.seq = file.Seq
	for _, feed := range file.Feeds {
		m.feeds[feed.FeedID] = feed
	}
	for _, item := range file.Items {
		m.items[item.Key()] = item
	}
	for _, sub := range file.Subscriptions {
		m.subscriptions[sub.URL] = sub
	}
	for _, read := range file.Reads {
		m.reads[read.GUID] = read
	}
	for _, change := range file.Pending {
		if change.Subscription == nil && change.Read == nil {
			continue
		}
		m.pending[change.key()] = change
	}
}

// save runs with the replica lock held.
func (r *FileReplica) save() error {
	m := r.MemoryReplica
	file := replicaFile{
		UserID:    m.userID,
		Watermark: m.watermark,
		Seq:       m.seq,
		Pending:   m.sortedPendingLocked(),
	}
	for _, feed := range m.feeds {
		file.Feeds = append(file.Feeds, feed)
	}
	for _, item := range m.items {
		file.Items = append(file.Items, item)
	}
	for _, sub := range m.subscriptions {
		file.Subscriptions = append(file.Subscriptions, sub)
	}
	for _, read := range m.reads {
		file.Reads = append(file.Reads, read)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to encode replica: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create replica directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write replica file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace replica file: %w", err)
	}
	return nil
}
