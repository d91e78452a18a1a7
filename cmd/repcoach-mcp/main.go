package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/repcoach/internal/config"
	"github.com/meltforce/repcoach/internal/levels"
	"github.com/meltforce/repcoach/internal/mcp"
	"github.com/meltforce/repcoach/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local mode)")
	remoteURL := flag.String("url", "", "RepCoach server base URL (remote mode, e.g. http://repcoach)")
	userID := flag.Int("user", 1, "user ID to scope queries to (local mode)")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*configPath == "") == (*remoteURL == "") {
		fmt.Fprintf(os.Stderr, "Usage: repcoach-mcp -config config.yaml | -url http://repcoach\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()
	var (
		ds  mcp.DataSource
		cat levels.Catalogue
	)

	if *remoteURL != "" {
		client := mcp.NewHTTPClient(*remoteURL)
		remote, err := client.Levels(ctx)
		if err != nil {
			log.Error("failed to fetch levels", "url", *remoteURL, "error", err)
			os.Exit(1)
		}
		ds, cat = client, remote
		log.Info("remote mode", "url", *remoteURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		store, err := storage.Open(ctx, cfg.Database, log)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		ds, cat = store, cfg.Levels
		log.Info("local mode", "driver", cfg.Database.Driver, "user_id", *userID)
	}

	s := mcp.New(ds, cat, Version, log)
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithUserID(ctx, *userID)
	}))
	if err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
