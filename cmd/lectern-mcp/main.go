// Command lectern-mcp serves lesson search and task submission as MCP
// tools over stdio. Tasks it enqueues are executed by the worker process
// sharing the same database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/platform/postgres"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lectern-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("lectern-mcp", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML configuration file")
	envFile := flags.String("env", ".env", "dotenv file loaded before configuration")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries the protocol.
	log, err := logger.SetupWithWriter(cfg.Server, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tools, err := newTools(db, dialect, log)
	if err != nil {
		return err
	}

	s := server.NewMCPServer("lectern", version, server.WithToolCapabilities(false))
	tools.register(s)

	log.Info("serving MCP over stdio")
	return server.ServeStdio(s)
}
