package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/baseline"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/config"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/deviation"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/events"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/opportunity"
)

// Store is the reading and machine persistence the services need.
type Store interface {
	ListMachines(ctx context.Context) ([]domain.Machine, error)
	GetMachine(ctx context.Context, id string) (*domain.Machine, error)
	UpsertMachine(ctx context.Context, m domain.Machine) error
	InsertReading(ctx context.Context, rd *domain.Reading) error
	ReadingsBetween(ctx context.Context, entityID, energySource string, start, end time.Time) ([]domain.Reading, error)
}

// PlanStore persists action plans and their status.
type PlanStore interface {
	SavePlan(ctx context.Context, p *domain.ActionPlan) error
	GetPlan(ctx context.Context, id string) (*domain.ActionPlan, error)
	AdvancePlan(ctx context.Context, id string, next domain.PlanStatus) (*domain.ActionPlan, error)
}

// Alerter notifies operators about severe deviations and scan results.
type Alerter interface {
	SendDeviationAlert(ctx context.Context, res domain.DeviationResult) error
	SendOpportunityDigest(ctx context.Context, opps []domain.Opportunity, top int) error
}

// Archive stores generated reports and returns a download URL.
type Archive interface {
	UploadReport(ctx context.Context, key string, data []byte, contentType string) (string, error)
	ListReports(ctx context.Context, prefix string) ([]string, error)
}

type Services struct {
	Store    Store
	Models   baseline.ModelStore
	Plans    PlanStore
	Data     *DataAccess
	Readings *ReadingService
	Engine   *EngineService

	publisher events.Publisher
}

type options struct {
	publisher events.Publisher
	alerter   Alerter
	archive   Archive
	dispatch  Dispatcher
	logger    zerolog.Logger
	clock     baseline.Clock
}

type Option func(*options)

func WithPublisher(p events.Publisher) Option { return func(o *options) { o.publisher = p } }

func WithAlerter(a Alerter) Option { return func(o *options) { o.alerter = a } }

func WithArchive(a Archive) Option { return func(o *options) { o.archive = a } }

func WithDispatcher(d Dispatcher) Option { return func(o *options) { o.dispatch = d } }

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

func WithClock(c baseline.Clock) Option { return func(o *options) { o.clock = c } }

func New(store Store, models baseline.ModelStore, plans PlanStore, eng config.Engine, opts ...Option) (*Services, error) {
	if store == nil || models == nil || plans == nil {
		return nil, errors.New("service: store, model store and plan store are required")
	}
	o := options{
		publisher: events.Nop{},
		logger:    log.Logger,
		clock:     baseline.SystemClock{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	data := &DataAccess{store: store, opts: eng.Aggregate}

	trainerOpts := []baseline.Option{
		baseline.WithClock(o.clock),
		baseline.WithLogger(o.logger.With().Str("component", "trainer").Logger()),
	}
	if folds := eng.CVFolds; folds > 1 {
		trainerOpts = append(trainerOpts, baseline.WithValidator(baseline.KFold{K: folds}))
	}
	trainer, err := baseline.NewTrainer(data, models, eng.Baseline, trainerOpts...)
	if err != nil {
		return nil, err
	}
	scanner, err := opportunity.NewScanner(data, eng.Opportunity, o.logger.With().Str("component", "scanner").Logger())
	if err != nil {
		return nil, err
	}

	return &Services{
		Store:    store,
		Models:   models,
		Plans:    plans,
		Data:     data,
		Readings: &ReadingService{store: store},
		Engine: &EngineService{
			store:      store,
			models:     models,
			plans:      plans,
			data:       data,
			trainer:    trainer,
			deviation:  deviation.NewEngine(eng.Deviation),
			scanner:    scanner,
			interval:   eng.Baseline.Interval,
			publisher:  o.publisher,
			alerter:    o.alerter,
			archive:    o.archive,
			dispatcher: o.dispatch,
			clock:      o.clock,
			log:        o.logger,
		},
		publisher: o.publisher,
	}, nil
}

// Close releases the event publisher.
func (s *Services) Close() error {
	return s.publisher.Close()
}
