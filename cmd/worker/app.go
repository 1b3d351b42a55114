package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/lectern/internal/api"
	"github.com/phrazzld/lectern/internal/api/middleware"
	"github.com/phrazzld/lectern/internal/asr"
	"github.com/phrazzld/lectern/internal/batch"
	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/events"
	"github.com/phrazzld/lectern/internal/generation"
	"github.com/phrazzld/lectern/internal/platform/postgres"
	"github.com/phrazzld/lectern/internal/service"
	"github.com/phrazzld/lectern/internal/service/auth"
	"github.com/phrazzld/lectern/internal/task"
)

// appDeps are the externally constructed dependencies of the application.
type appDeps struct {
	cfg        *config.Config
	configPath string
	db         *sql.DB
	dialect    postgres.Dialect
	engine     generation.Engine
	// asrLoader defaults to the faster-whisper helper process.
	asrLoader asr.Loader
	logger    *slog.Logger
}

// application holds the wired components of the worker process.
type application struct {
	holder      *config.Holder
	configPath  string
	db          *sql.DB
	logger      *slog.Logger
	tasks       *postgres.TaskStore
	lessons     *service.LessonService
	emitter     *events.InMemoryEventEmitter
	models      *asr.ModelCache
	transcriber *asr.Transcriber
	worker      *task.Worker
	router      http.Handler
}

func newApplication(deps appDeps) (*application, error) {
	cfg, log := deps.cfg, deps.logger
	holder := config.NewHolder(cfg)

	tokens, err := newTokenService(cfg.Server)
	if err != nil {
		return nil, err
	}

	lessonStore := postgres.NewLessonStore(deps.db, deps.dialect, log)
	taskStore := postgres.NewTaskStore(deps.db, deps.dialect, log)

	lessons, err := service.NewLessonService(lessonStore, deps.db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create lesson service: %w", err)
	}

	loader := deps.asrLoader
	if loader == nil {
		loader = asr.FasterWhisperLoader(cfg.Whisper.Python, log)
	}
	models := asr.NewModelCache(loader, log)
	transcriber := asr.NewTranscriber(models, modelSpec(cfg.Whisper), log)

	retry := retryPolicy(cfg.Retry)
	handlers, err := newHandlers(lessons, transcriber, deps.engine, holder, retry, log)
	if err != nil {
		return nil, err
	}

	worker, err := task.NewWorker(taskStore, handlers, task.WorkerConfig{
		PollInterval: cfg.Worker.PollInterval,
		StaleTaskAge: cfg.Worker.StaleTaskAge,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	submitter, err := task.NewSubmitter(taskStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create task submitter: %w", err)
	}
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(submitter, log))

	router := api.NewRouter(api.RouterDeps{
		Tasks:   api.NewTaskHandler(emitter, taskStore, log),
		Lessons: api.NewLessonHandler(lessons, log),
		Auth:    middleware.NewAuthMiddleware(tokens),
		DB:      deps.db,
		Logger:  log,
	})

	return &application{
		holder:      holder,
		configPath:  deps.configPath,
		db:          deps.db,
		logger:      log,
		tasks:       taskStore,
		lessons:     lessons,
		emitter:     emitter,
		models:      models,
		transcriber: transcriber,
		worker:      worker,
		router:      router,
	}, nil
}

// newTokenService builds the ops API token service. The worker refuses to
// start without a signing secret.
func newTokenService(cfg config.ServerConfig) (*auth.TokenService, error) {
	if cfg.AuthSecret == "" {
		return nil, errors.New("server.auth_secret is required to serve the ops API")
	}
	tokens, err := auth.NewTokenService(cfg.AuthSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	return tokens, nil
}

func newHandlers(
	lessons task.LessonService,
	transcriber asr.Engine,
	engine generation.Engine,
	cfg config.Provider,
	retry batch.RetryPolicy,
	log *slog.Logger,
) ([]task.Handler, error) {
	transcription, err := task.NewTranscriptionHandler(lessons, transcriber, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription handler: %w", err)
	}
	correction, err := task.NewCorrectionHandler(lessons, engine, cfg, retry, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create correction handler: %w", err)
	}
	edition, err := task.NewEditionHandler(lessons, engine, cfg, retry, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create edition handler: %w", err)
	}
	summary, err := task.NewSummaryHandler(lessons, engine, cfg, retry, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary handler: %w", err)
	}
	return []task.Handler{transcription, correction, edition, summary}, nil
}

func modelSpec(cfg config.WhisperConfig) asr.ModelSpec {
	return asr.ModelSpec{Size: cfg.ModelSize, Device: cfg.Device, ComputeType: cfg.ComputeType}
}

func retryPolicy(cfg config.RetryConfig) batch.RetryPolicy {
	policy := batch.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	policy.InitialDelay = cfg.InitialDelay
	policy.MaxDelay = cfg.MaxDelay
	return policy
}

// applyConfig swaps in a reloaded configuration. Tasks already running
// keep the snapshot they started with; a changed speech model spec drops
// the cached models so the next transcription loads the new one.
func (app *application) applyConfig(cfg *config.Config) {
	app.holder.Set(cfg)
	app.transcriber.SetSpec(modelSpec(cfg.Whisper))
	app.logger.Info("configuration applied",
		slog.String("whisper_model", cfg.Whisper.ModelSize),
		slog.String("correction_model", cfg.Correction.Model),
		slog.String("summary_model", cfg.Summary.Model))
}

// run recovers stale tasks, then runs the worker loop, the ops HTTP
// server and the config watcher until ctx is cancelled.
func (app *application) run(ctx context.Context) error {
	recovered, err := app.worker.Recover(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover stale tasks: %w", err)
	}
	if recovered > 0 {
		app.logger.Warn("failed stale running tasks", slog.Int("count", recovered))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.worker.Run(ctx)
	})

	g.Go(func() error {
		server := app.holder.Current().Server
		return app.serveHTTP(ctx, server.Host, server.Port)
	})

	if app.configPath != "" {
		g.Go(func() error {
			return config.Watch(ctx, app.configPath, app.logger, app.applyConfig)
		})
	}

	err = g.Wait()
	app.logger.Info("shutdown complete")
	return err
}

// cleanup releases loaded speech models.
func (app *application) cleanup() {
	app.models.Invalidate()
}

const shutdownTimeout = 10 * time.Second
