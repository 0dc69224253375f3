// Package baseline fits per-machine regression baselines of energy consumption
// on operational driver variables.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/aggregate"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// DataSource provides the aggregates a model is trained on.
type DataSource interface {
	FetchAggregates(ctx context.Context, entityID, energySource string, interval aggregate.Interval, start, end time.Time) ([]domain.Aggregate, error)
}

// Clock provides time for the trainer.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// DriverSelection is either an explicit driver list or automatic selection.
type DriverSelection struct {
	Drivers []string `json:"drivers,omitempty"`
}

func Auto() DriverSelection { return DriverSelection{} }

func Manual(drivers ...string) DriverSelection { return DriverSelection{Drivers: drivers} }

func (s DriverSelection) IsAuto() bool { return len(s.Drivers) == 0 }

type Config struct {
	// MinSamples is the training floor; fewer usable aggregates is an error.
	MinSamples int
	// Interval is the aggregate granularity the baseline is fitted on.
	Interval aggregate.Interval
	// CandidateDrivers restricts automatic selection per energy source.
	CandidateDrivers map[string][]string
	Selection        SelectionConfig
}

func DefaultConfig() Config {
	return Config{
		MinSamples: 7,
		Interval:   aggregate.Daily,
		Selection:  DefaultSelectionConfig(),
	}
}

// Trainer fits and persists baseline models. Trainings for one
// (entity, energy source) are serialized; different pairs run in parallel.
type Trainer struct {
	source    DataSource
	store     ModelStore
	cfg       Config
	clock     Clock
	validator Validator
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Trainer)

func WithClock(c Clock) Option { return func(t *Trainer) { t.clock = c } }

func WithValidator(v Validator) Option { return func(t *Trainer) { t.validator = v } }

func WithLogger(l zerolog.Logger) Option { return func(t *Trainer) { t.log = l } }

func NewTrainer(source DataSource, store ModelStore, cfg Config, opts ...Option) (*Trainer, error) {
	if source == nil {
		return nil, errors.New("baseline: nil data source")
	}
	if store == nil {
		return nil, errors.New("baseline: nil model store")
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	if cfg.Interval == "" {
		cfg.Interval = aggregate.Daily
	}
	t := &Trainer{
		source: source,
		store:  store,
		cfg:    cfg,
		clock:  SystemClock{},
		log:    zerolog.Nop(),
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Trainer) lockFor(entityID, energySource string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := modelKey(entityID, energySource)
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

// Train fits a new baseline version over period and persists it. Prior
// versions are kept.
func (t *Trainer) Train(ctx context.Context, entityID, energySource string, period domain.Period, sel DriverSelection) (*domain.BaselineModel, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	l := t.lockFor(entityID, energySource)
	l.Lock()
	defer l.Unlock()

	aggs, err := t.source.FetchAggregates(ctx, entityID, energySource, t.cfg.Interval, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("fetch aggregates: %w", err)
	}

	model, ds, err := BuildModel(aggs, energySource, sel, t.cfg)
	if err != nil {
		return nil, err
	}
	for _, step := range model.SelectionSteps {
		t.log.Debug().Str("entity", entityID).Str("driver", step.Driver).Str("reason", step.Reason).
			Float64("r_squared_after", step.RSquaredAfter).Msg("driver eliminated")
	}

	if t.validator != nil {
		cv, err := t.validator.CrossValidate(ds, model.DriverNames)
		if err != nil {
			t.log.Warn().Err(err).Str("entity", entityID).Msg("cross-validation skipped")
		} else {
			model.CVRSquared = &cv
		}
	}

	model.ID = uuid.NewString()
	model.EntityID = entityID
	model.EnergySource = energySource
	model.TrainingStart = period.Start
	model.TrainingEnd = period.End
	model.TrainedAt = t.clock.Now()
	if err := model.Validate(t.cfg.MinSamples); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.store.SaveModel(ctx, model); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	t.log.Info().Str("entity", entityID).Str("energy_source", energySource).Int("version", model.Version).
		Float64("r_squared", model.RSquared).Strs("drivers", model.DriverNames).Msg("baseline trained")
	return model, nil
}

type Request struct {
	EntityID     string          `json:"entity_id"`
	EnergySource string          `json:"energy_source"`
	Period       domain.Period   `json:"period"`
	Selection    DriverSelection `json:"selection"`
}

type Result struct {
	Request Request
	Model   *domain.BaselineModel
	Err     error
}

// TrainAll trains every request concurrently. Failures are reported per
// request and do not stop the others.
func (t *Trainer) TrainAll(ctx context.Context, reqs []Request, parallelism int) []Result {
	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			m, err := t.Train(gctx, req.EntityID, req.EnergySource, req.Period, req.Selection)
			results[i] = Result{Request: req, Model: m, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// BuildModel fits a model on complete aggregates without persisting it. The
// returned dataset holds the rows the model was fitted on.
func BuildModel(aggs []domain.Aggregate, energySource string, sel DriverSelection, cfg Config) (*domain.BaselineModel, Dataset, error) {
	floor := cfg.MinSamples
	if floor <= 0 {
		floor = DefaultConfig().MinSamples
	}

	complete := make([]domain.Aggregate, 0, len(aggs))
	for _, a := range aggs {
		if a.IsComplete {
			complete = append(complete, a)
		}
	}

	var drivers []string
	if sel.IsAuto() {
		drivers = commonDrivers(complete, cfg.CandidateDrivers[energySource])
	} else {
		drivers = sel.Drivers
	}

	ds := buildDataset(complete, drivers)
	if ds.Len() < floor {
		return nil, ds, &domain.InsufficientDataError{Samples: ds.Len(), Floor: floor}
	}

	model := &domain.BaselineModel{SampleCount: ds.Len()}
	var fit Fit
	if sel.IsAuto() {
		kept, screened := screen(ds, drivers)
		if ds.Len() < len(kept)+2 {
			return nil, ds, &domain.InsufficientDataError{Samples: ds.Len(), Floor: len(kept) + 2}
		}
		f, steps, err := stepwise(ds, kept, cfg.Selection)
		if err != nil {
			return nil, ds, err
		}
		fit = f
		model.SelectionMode = domain.SelectionAuto
		model.SelectionSteps = append(screened, steps...)
	} else {
		if ds.Len() < len(drivers)+2 {
			return nil, ds, &domain.InsufficientDataError{Samples: ds.Len(), Floor: len(drivers) + 2}
		}
		if err := validateManual(ds, drivers); err != nil {
			return nil, ds, err
		}
		f, err := ds.OLS(drivers)
		if err != nil {
			return nil, ds, err
		}
		fit = f
		model.SelectionMode = domain.SelectionManual
	}

	model.DriverNames = fit.Drivers
	model.Coefficients = fit.Coefficients
	model.Intercept = fit.Intercept
	model.RSquared = fit.RSquared
	return model, ds, nil
}

// commonDrivers returns drivers present in every aggregate, sorted, optionally
// restricted to allowed.
func commonDrivers(aggs []domain.Aggregate, allowed []string) []string {
	if len(aggs) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, a := range aggs {
		for name := range a.DriverMeans {
			counts[name]++
		}
	}
	var allow map[string]bool
	if len(allowed) > 0 {
		allow = make(map[string]bool, len(allowed))
		for _, name := range allowed {
			allow[name] = true
		}
	}
	var out []string
	for name, c := range counts {
		if c != len(aggs) {
			continue
		}
		if allow != nil && !allow[name] {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// buildDataset keeps the aggregates carrying every driver, in input order.
func buildDataset(aggs []domain.Aggregate, drivers []string) Dataset {
	ds := Dataset{Columns: make(map[string][]float64, len(drivers))}
	for _, name := range drivers {
		ds.Columns[name] = nil
	}
rows:
	for _, a := range aggs {
		for _, name := range drivers {
			if _, ok := a.DriverMeans[name]; !ok {
				continue rows
			}
		}
		ds.Target = append(ds.Target, a.TotalEnergyKWh)
		for _, name := range drivers {
			ds.Columns[name] = append(ds.Columns[name], a.DriverMeans[name])
		}
	}
	return ds
}
