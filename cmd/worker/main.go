// Command worker runs the lesson processing worker: it polls the task
// table, runs transcription, correction, edition and summary tasks, and
// serves a small operational HTTP API for submitting and inspecting them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/platform/postgres"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("worker", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML configuration file")
	envFile := flags.String("env", ".env", "dotenv file loaded before configuration")
	migrate := flags.String("migrate", "", "run a migration command (up, down, status, version, reset) and exit")
	issueFor := flags.String("issue-token", "", "print an ops API token for the given subject and exit")
	tokenTTL := flags.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -issue-token; 0 never expires")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	path := config.ResolvePath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("worker configuration loaded",
		slog.String("config_file", path),
		slog.Int("port", cfg.Server.Port),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("llm_provider", cfg.LLM.Provider))

	if *issueFor != "" {
		return issueToken(os.Stdout, cfg.Server, *issueFor, *tokenTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if *migrate != "" {
		return postgres.Migrate(ctx, db, dialect, *migrate, log)
	}

	engine, err := newEngine(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}

	app, err := newApplication(appDeps{
		cfg:        cfg,
		configPath: path,
		db:         db,
		dialect:    dialect,
		engine:     engine,
		logger:     log,
	})
	if err != nil {
		return err
	}
	defer app.cleanup()

	return app.run(ctx)
}

// issueToken writes a signed ops API token for subject to w.
func issueToken(w io.Writer, cfg config.ServerConfig, subject string, ttl time.Duration) error {
	tokens, err := newTokenService(cfg)
	if err != nil {
		return err
	}
	token, err := tokens.IssueToken(context.Background(), subject, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
