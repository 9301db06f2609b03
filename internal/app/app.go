// Package app wires configuration, storage, external clients and the
// use-case layer into one runnable application.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"VideoCurator/internal/catalog"
	"VideoCurator/internal/config"
	"VideoCurator/internal/domain"
	"VideoCurator/internal/evaluate"
	"VideoCurator/internal/feedback"
	"VideoCurator/internal/infrastructure/liveness"
	"VideoCurator/internal/infrastructure/llm"
	"VideoCurator/internal/infrastructure/scheduler"
	"VideoCurator/internal/infrastructure/storage"
	"VideoCurator/internal/infrastructure/telegram"
	"VideoCurator/internal/infrastructure/youtube"
	"VideoCurator/internal/logging"
	"VideoCurator/internal/outcome"
	"VideoCurator/internal/quota"
	"VideoCurator/internal/taxonomy"
	"VideoCurator/internal/usecase"
)

// stopGrace bounds how long shutdown waits for in-flight jobs. A curation
// run cut off here is failed and released by the recovery sweep on the
// next start.
const stopGrace = 30 * time.Second

// Application holds the composed services and the handles the CLI drives.
type Application struct {
	cfg      config.Config
	db       *sql.DB
	logger   *slog.Logger
	curation *usecase.Curation
	sweep    *usecase.Sweep
	schedule *usecase.Schedule
	feedback *feedback.Loop
	outcomes *outcome.Evaluator
	library  *liveness.Checker
}

// New builds the full application: Postgres repositories, the quota-guarded
// catalog client, the LLM-backed evaluator, the feedback and outcome loops,
// and the scheduler that ties them together.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}
	if err := storage.EnsureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare storage: %w", err)
	}

	runs := storage.NewPostgresRunRepository(db)
	knowledge := storage.NewPostgresKnowledgeRepository(db)
	feedbackRepo := storage.NewPostgresFeedbackRepository(db)
	instructors := storage.NewPostgresInstructorRepository(db)
	profiles := storage.NewPostgresProfileRepository(db)
	outcomesRepo := storage.NewPostgresOutcomeRepository(db)
	experiments := storage.NewPostgresExperimentRepository(db)
	metrics := storage.NewPostgresMetricsRepository(db)
	locker := storage.NewPostgresRunLocker(db)
	tx := storage.NewTxManager(db)

	guard := quota.NewGuard(cfg.Catalog.DailyQuotaUnits, nil, nil)
	registry := catalog.NewRegistry()
	registry.Register(youtube.NewClient(cfg.Catalog, guard, baseLogger.With("component", "catalog.youtube")))

	notifier := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)

	evaluator := evaluate.NewEvaluator(evaluate.EvaluatorDeps{
		Inference:   llm.NewClient(cfg.Inference),
		Knowledge:   knowledge,
		Instructors: instructors,
		Feedback:    feedbackRepo,
		Taxonomy:    taxonomy.NewCatalog(extraTechniques(cfg.Taxonomy)),
		EliteTiers:  eliteTiers(cfg.Instructors),
		Logger:      baseLogger.With("component", "evaluator"),
	})

	loop := feedback.NewLoop(feedback.LoopDeps{
		Feedback:    feedbackRepo,
		Instructors: instructors,
		Profiles:    profiles,
		Metrics:     metrics,
		Tx:          tx,
		Notifier:    notifier,
		Logger:      baseLogger.With("component", "feedback"),
	})

	outcomes := outcome.NewEvaluator(outcome.EvaluatorDeps{
		Outcomes:    outcomesRepo,
		Experiments: experiments,
		Logger:      baseLogger.With("component", "outcome"),
	})

	library := liveness.NewChecker(knowledge, nil, baseLogger.With("component", "liveness"))

	curation := usecase.NewCuration(usecase.CurationDeps{
		Catalogs:  registry,
		Evaluator: evaluator,
		Knowledge: knowledge,
		Runs:      runs,
		Locker:    locker,
		Sources:   cfg.Curation.Sources,
		Pace:      cfg.Curation.Pace(),
		Logger:    baseLogger.With("component", "curation"),
	})

	sweep := usecase.NewSweep(usecase.SweepDeps{
		Runs:     runs,
		Locker:   locker,
		Notifier: notifier,
		Stuck:    cfg.Curation.StuckThreshold(),
		Logger:   baseLogger.With("component", "sweep"),
	})

	schedule := usecase.NewSchedule(usecase.ScheduleDeps{
		Driver:   scheduler.NewCronScheduler(cfg.Scheduler.Location()),
		Curation: curation,
		Sweep:    sweep,
		Metrics:  loop,
		Outcomes: outcomes,
		Liveness: library,
		Specs:    cfg.Scheduler,
		Logger:   baseLogger.With("component", "schedule"),
	})

	return &Application{
		cfg:      cfg,
		db:       db,
		logger:   baseLogger,
		curation: curation,
		sweep:    sweep,
		schedule: schedule,
		feedback: loop,
		outcomes: outcomes,
		library:  library,
	}, nil
}

// Serve runs the scheduler until ctx is cancelled, then drains in-flight
// jobs within the shutdown grace period.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.schedule.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler running",
		"curation", a.cfg.Scheduler.CurationSpec,
		"sweep", a.cfg.Scheduler.SweepSpec)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	return a.schedule.Stop(stopCtx)
}

// RunCuration executes one manually triggered discovery run.
func (a *Application) RunCuration(ctx context.Context) (domain.CurationRun, error) {
	return a.curation.Run(ctx, domain.TriggerManual)
}

// RecoverRun force-fails one stuck run by ID and frees its lock slot.
func (a *Application) RecoverRun(ctx context.Context, id uuid.UUID, note string) error {
	return a.sweep.RecoverRun(ctx, id, note)
}

// SweepStuckRuns performs one recovery pass over all running runs.
func (a *Application) SweepStuckRuns(ctx context.Context) {
	a.sweep.Run(ctx)
}

// RecordFeedback ingests one user reaction and updates the derived
// instructor and profile state.
func (a *Application) RecordFeedback(ctx context.Context, userID, instructor, videoID, technique string, action domain.FeedbackAction) error {
	return a.feedback.Record(ctx, userID, instructor, videoID, technique, action)
}

// AggregateMetrics computes and stores the daily quality metrics for day.
func (a *Application) AggregateMetrics(ctx context.Context, day time.Time) (domain.DailyMetrics, error) {
	return a.feedback.AggregateDaily(ctx, day)
}

// EvaluateOutcomes scores every recent delivery that has not been
// evaluated yet and returns how many were processed.
func (a *Application) EvaluateOutcomes(ctx context.Context) (int, error) {
	return a.outcomes.EvaluateRecent(ctx)
}

// StartExperiment registers a new A/B experiment comparing two variants.
func (a *Application) StartExperiment(ctx context.Context, name, control, treatment string) (domain.ABTestExperiment, error) {
	return a.outcomes.StartExperiment(ctx, name, control, treatment)
}

// CompareVariants settles the named A/B experiment.
func (a *Application) CompareVariants(ctx context.Context, name string) (domain.ABTestExperiment, error) {
	return a.outcomes.CompareVariants(ctx, name)
}

// AuditLibrary probes stored videos and retires the ones gone upstream.
func (a *Application) AuditLibrary(ctx context.Context) (int, error) {
	return a.library.CheckAll(ctx)
}

// Close releases the database pool.
func (a *Application) Close() error {
	return a.db.Close()
}

func eliteTiers(cfg config.InstructorsConfig) map[string]string {
	tiers := make(map[string]string, len(cfg.Elite))
	for _, e := range cfg.Elite {
		tiers[e.Name] = e.Tier
	}
	return tiers
}

func extraTechniques(cfgs []config.TechniqueConfig) []taxonomy.Technique {
	extras := make([]taxonomy.Technique, 0, len(cfgs))
	for _, t := range cfgs {
		extras = append(extras, taxonomy.Technique{
			Name:     t.Name,
			Aliases:  t.Aliases,
			Position: t.Position,
			Belt:     t.Belt,
		})
	}
	return extras
}
