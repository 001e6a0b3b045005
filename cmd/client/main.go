package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lysyi3m/rss-sync/app/cfg"
	"github.com/lysyi3m/rss-sync/app/client"
	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/config"
)

func main() {
	clientCfg, err := cfg.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if clientCfg == nil {
		return
	}

	level := slog.LevelInfo
	if clientCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	userID, err := tokenSubject(clientCfg.Token)
	if err != nil {
		fatal("Invalid token", err)
	}

	replica, err := client.OpenFileReplica(clientCfg.StateFile, userID, clock.System{})
	if err != nil {
		fatal("Failed to open replica", err)
	}

	transport := client.NewHTTPTransport(&http.Client{Timeout: 60 * time.Second}, clientCfg.ServerURL, clientCfg.Token)
	engine := client.NewEngine(transport, replica, clock.System{}, client.Options{
		PollInterval: clientCfg.PollInterval,
		Debounce:     clientCfg.Debounce,
	})

	decls, err := declarations(clientCfg)
	if err != nil {
		fatal("Failed to load feed configurations", err)
	}
	if _, err := client.Reconcile(replica, decls); err != nil {
		fatal("Failed to apply subscriptions", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Connect(ctx); err != nil {
		slog.Warn("Initial sync failed, will retry on next poll", "error", err)
	}
	defer engine.Disconnect()

	slog.Info("RSS Sync client running",
		"server", clientCfg.ServerURL,
		"user", userID,
		"subscriptions", len(replica.Subscriptions()),
		"feeds", len(replica.Feeds()))

	<-ctx.Done()
	slog.Info("Shutting down client")
}

func declarations(clientCfg *cfg.ClientCfg) ([]client.Declaration, error) {
	var decls []client.Declaration

	if clientCfg.FeedsDir != "" {
		configs, err := config.NewLoader(clientCfg.FeedsDir).LoadAll()
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded feed configurations", "dir", clientCfg.FeedsDir, "count", len(configs))

		for _, feedCfg := range configs {
			decls = append(decls, client.Declaration{
				URL:       feedCfg.Feed.URL,
				Frequency: feedCfg.Settings.RequestedFrequency(),
				Enabled:   feedCfg.Settings.IsEnabled(),
			})
		}
	}

	for _, url := range clientCfg.Subscribe {
		decls = append(decls, client.Declaration{URL: url, Frequency: clientCfg.Frequency, Enabled: true})
	}

	return decls, nil
}

// tokenSubject reads the user id from the token. The server verifies the signature.
func tokenSubject(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.RegisteredClaims{})
	if err != nil {
		return "", err
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
