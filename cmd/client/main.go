package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ubohub-bot/whiteboard/internal/client"
	clientapi "github.com/ubohub-bot/whiteboard/internal/client/api"
	"github.com/ubohub-bot/whiteboard/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Board server URL")
	username := flag.String("name", "", "Display name to join as")
	cachePath := flag.String("cache", "whiteboard-cache.db", "Path to the local snapshot cache")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *username == "" {
		logger.Error("Missing required flag -name")
		os.Exit(1)
	}

	if err := run(logger, *serverURL, *username, *cachePath); err != nil {
		logger.Error("Client failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, serverURL, username, cachePath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, err := boltdb.New(ctx, cachePath)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Error("Failed to close cache", "error", err)
		}
	}()

	apiClient := clientapi.NewClient(serverURL)

	joinResp, err := apiClient.Join(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to join board: %w", err)
	}
	self := joinResp.Participant
	logger.Info("Joined board",
		"participant_id", self.ID,
		"username", self.Username,
		"color", self.Color)

	if err := cache.SaveParticipant(&self); err != nil {
		logger.Warn("Failed to cache participant", "error", err)
	}

	conn, err := apiClient.Connect(ctx, self.ID)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	sess := client.NewSession(logger, conn, self, cache)

	go reportLoop(ctx, logger, sess)

	err = sess.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("session ended: %w", err)
	}

	logger.Info("Disconnected")
	return nil
}

// reportLoop periodically logs what the session currently sees
func reportLoop(ctx context.Context, logger *slog.Logger, sess *client.Session) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			view := sess.View()
			logger.Info("Board state",
				"elements", len(view.Elements),
				"participants", len(view.Participants),
				"cursors", len(view.Cursors))
		}
	}
}

func printVersion() {
	fmt.Printf("Whiteboard Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
