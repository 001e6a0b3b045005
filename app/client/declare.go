package client

import (
	"fmt"
	"log/slog"
)

// Declaration is a subscription the user wants present, or absent when Enabled is false.
type Declaration struct {
	URL       string
	Frequency int64
	Enabled   bool
}

// Reconcile queues the local changes needed for the replica to match decls.
// Subscriptions that already match are left alone, so restarting the client
// with the same declarations pushes nothing. It returns the number of changes queued.
func Reconcile(replica Replica, decls []Declaration) (int, error) {
	current := make(map[string]int64)
	for _, sub := range replica.Subscriptions() {
		current[sub.URL] = sub.RequestedFrequency
	}

	queued := 0
	for _, decl := range decls {
		frequency, subscribed := current[decl.URL]

		switch {
		case decl.Enabled && subscribed && frequency == decl.Frequency:
			continue
		case decl.Enabled:
			if _, err := replica.Subscribe(decl.URL, decl.Frequency); err != nil {
				return queued, fmt.Errorf("failed to subscribe to %s: %w", decl.URL, err)
			}
			slog.Info("Subscribed", "feed", decl.URL, "frequency", decl.Frequency)
		case subscribed:
			if err := replica.Unsubscribe(decl.URL); err != nil {
				return queued, fmt.Errorf("failed to unsubscribe from %s: %w", decl.URL, err)
			}
			slog.Info("Unsubscribed", "feed", decl.URL)
		default:
			continue
		}

		current[decl.URL] = decl.Frequency
		queued++
	}

	return queued, nil
}
