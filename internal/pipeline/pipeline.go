// Package pipeline runs the batch stages for each configured game and publishes
// the per-game documents and the cross-game report.
//
// A game run is normalize, assign, aggregate, forecast/predict and write, all
// under that game's registry lock. Games share no state and run concurrently;
// the cross-game report is composed once every game has finished.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/vietoracle/internal/forecast"
	"github.com/rewired-gh/vietoracle/internal/frequency"
	"github.com/rewired-gh/vietoracle/internal/ingest"
	"github.com/rewired-gh/vietoracle/internal/logger"
	"github.com/rewired-gh/vietoracle/internal/metrics"
	"github.com/rewired-gh/vietoracle/internal/models"
	"github.com/rewired-gh/vietoracle/internal/pattern"
	"github.com/rewired-gh/vietoracle/internal/predictor"
	"github.com/rewired-gh/vietoracle/internal/report"
	"github.com/rewired-gh/vietoracle/internal/storage"
)

// Output document names.
const (
	FrequencyFile = "frequency-summary.json"
	ForecastFile  = "predictions.json"
	TemplateFile  = "template-predictions.json"
	DrawsFile     = "draws.json"
	ReportFile    = "prediction-report.json"
)

// Notifier delivers the cross-game report.
type Notifier interface {
	Send(ctx context.Context, report *models.CrossGameReport) error
}

// Config selects the games and parameters of a run.
type Config struct {
	Games           []models.Game
	Forecast        forecast.Config
	Predictor       predictor.Config
	Report          report.Config
	ActivityWindow  int    // recent activity kept per template, <= 0 for the default
	MetricsTextfile string // empty disables the export
}

// DrawsDocument is the published normalized history of one game.
type DrawsDocument struct {
	Game        models.Game           `json:"game"`
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	TotalDraws  int                   `json:"total_draws"`
	Rejected    int                   `json:"rejected_records"`
	Templates   int                   `json:"templates_registered"`
	Draws       []models.AssignedDraw `json:"draws"`
}

// Pipeline runs the configured games against a store.
type Pipeline struct {
	store     *storage.Store
	source    storage.DrawSource
	cfg       Config
	predictor *predictor.Predictor
	composer  *report.Composer
	notifier  Notifier

	now   func() time.Time
	newID func() string
}

// New validates cfg and returns a Pipeline. source defaults to store; notifier
// may be nil.
func New(store *storage.Store, source storage.DrawSource, cfg Config, notifier Notifier) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("pipeline requires a store")
	}
	if len(cfg.Games) == 0 {
		return nil, errors.New("pipeline requires at least one game")
	}
	for _, g := range cfg.Games {
		if !g.Valid() {
			return nil, fmt.Errorf("unknown game %q", g)
		}
	}
	if err := cfg.Forecast.Validate(); err != nil {
		return nil, err
	}
	pred, err := predictor.New(cfg.Predictor)
	if err != nil {
		return nil, err
	}
	composer, err := report.NewComposer(cfg.Report)
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = store
	}
	return &Pipeline{
		store:     store,
		source:    source,
		cfg:       cfg,
		predictor: pred,
		composer:  composer,
		notifier:  notifier,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// RunAll runs every configured game, writes the cross-game report and sends it to
// the notifier. Any game failure fails the run and no cross-game report is written.
func (p *Pipeline) RunAll(ctx context.Context) (*models.CrossGameReport, error) {
	runID := p.newID()
	now := p.now()
	start := time.Now()
	logger.Info("Starting run %s for %d games", runID, len(p.cfg.Games))

	results := make([]report.GameResult, len(p.cfg.Games))
	g, gctx := errgroup.WithContext(ctx)
	for i, game := range p.cfg.Games {
		g.Go(func() error {
			res, err := p.RunGame(gctx, game, runID, now)
			if err != nil {
				return fmt.Errorf("%s: %w", game, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.exportMetrics()
		return nil, err
	}

	rep := p.composer.Compose(runID, now, results)
	if err := p.store.WriteOutput("", ReportFile, rep); err != nil {
		p.exportMetrics()
		return nil, fmt.Errorf("failed to write cross-game report: %w", err)
	}
	logger.Info("Run %s completed in %v (%d recommendations)", runID, time.Since(start), len(rep.Recommendations))

	if p.notifier != nil {
		if err := p.notifier.Send(ctx, &rep); err != nil {
			logger.Error("Failed to send report notification: %v", err)
		} else {
			logger.Info("Sent report notification for run %s", runID)
		}
	}

	metrics.MarkSuccess(now)
	p.exportMetrics()
	return &rep, nil
}

func (p *Pipeline) exportMetrics() {
	if err := metrics.WriteTextfile(p.cfg.MetricsTextfile); err != nil {
		logger.Warn("Failed to export metrics: %v", err)
	}
}

// RunGame runs every stage for game under its registry lock and writes the
// per-game documents stamped with runID.
func (p *Pipeline) RunGame(ctx context.Context, game models.Game, runID string, now time.Time) (res *report.GameResult, err error) {
	start := time.Now()
	run := metrics.GameRun{Game: game}
	defer func() {
		run.Duration = time.Since(start)
		run.Err = err
		metrics.ObserveGameRun(run)
	}()

	lock, err := p.store.LockRegistry(ctx, game)
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			logger.Warn("Failed to release %s registry lock: %v", game, uerr)
		}
	}()

	raw, err := p.source.LoadDraws(ctx, game)
	if err != nil {
		return nil, err
	}
	draws, rejected := ingest.Normalize(game, raw)
	for _, r := range rejected {
		logger.Warn("Rejected %s record: %v", game, r)
	}
	run.Draws = len(draws)
	run.Rejected = len(rejected)

	snap, err := p.store.LoadRegistry(game)
	if err != nil {
		return nil, err
	}
	reg, err := pattern.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("invalid %s registry: %w", game, err)
	}
	replay, err := pattern.Run(draws, reg, p.cfg.ActivityWindow)
	if err != nil {
		return nil, err
	}
	run.Templates = reg.Len()
	run.Minted = replay.Minted
	logger.Debug("Assigned %d %s draws to %d templates (%d new)", len(draws), game, reg.Len(), replay.Minted)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary, err := frequency.Summarize(game, draws, now)
	if err != nil {
		return nil, err
	}

	engine, err := forecast.New(game, draws, p.cfg.Forecast)
	if err != nil {
		return nil, err
	}
	forecastReport := engine.Report(now)

	input := predictor.Input{
		Game:       game,
		Histories:  replay.Histories,
		TotalDraws: len(draws),
	}
	if len(draws) > 0 {
		input.Latest = draws[len(draws)-1].Date
	}
	templateReport, err := p.predictor.Report(input, now)
	if err != nil {
		return nil, err
	}
	if len(templateReport.TopPredictions) > 0 {
		run.TopProbability = templateReport.TopPredictions[0].OverallProbability
	}

	// Ids referenced by the outputs must be persisted before the outputs are.
	if replay.Minted > 0 {
		saved, err := p.store.SaveRegistry(game, reg.Snapshot(now))
		if err != nil {
			return nil, err
		}
		logger.Info("Registered %d new %s templates (registry version %d)", replay.Minted, game, saved.Version)
	}

	summary = summary.Rounded()
	summary.RunID = runID
	forecastReport.RunID = runID
	templateReport.RunID = runID

	docs := []struct {
		name string
		v    any
	}{
		{FrequencyFile, summary},
		{ForecastFile, forecastReport},
		{TemplateFile, templateReport},
		{DrawsFile, DrawsDocument{
			Game:        game,
			RunID:       runID,
			GeneratedAt: now,
			TotalDraws:  len(draws),
			Rejected:    len(rejected),
			Templates:   reg.Len(),
			Draws:       replay.Draws,
		}},
	}
	for _, d := range docs {
		if err := p.store.WriteOutput(game, d.name, d.v); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", d.name, err)
		}
	}

	logger.Info("%s: %d draws (%d rejected), %d templates scored, top %.1f%%",
		game, len(draws), len(rejected), templateReport.TotalTemplatesAnalyzed, run.TopProbability)

	return &report.GameResult{
		Game:          game,
		Draws:         replay.Draws,
		Forecast:      forecastReport,
		RankedNumbers: engine.RankPredictions(0),
		Templates:     templateReport,
	}, nil
}

// Import copies the raw history of every game from src into dst and returns the
// number of new records per game.
func Import(ctx context.Context, src storage.DrawSource, dst *storage.SQLiteStore, games []models.Game) (map[models.Game]int, error) {
	added := make(map[models.Game]int, len(games))
	for _, game := range games {
		records, err := src.LoadDraws(ctx, game)
		if err != nil {
			return nil, err
		}
		n, err := dst.ImportDraws(ctx, game, records)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s draws: %w", game, err)
		}
		added[game] = n
		logger.Info("Imported %d of %d %s records", n, len(records), game)
	}
	return added, nil
}
