// Package opportunity scans machine histories for energy-waste patterns and
// ranks them by estimated savings.
package opportunity

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/aggregate"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

type DataSource interface {
	FetchReadings(ctx context.Context, entityID, energySource string, start, end time.Time) ([]domain.Reading, error)
	FetchAggregates(ctx context.Context, entityID, energySource string, interval aggregate.Interval, start, end time.Time) ([]domain.Aggregate, error)
}

// History is one machine's data over a scan period: raw readings, starting
// one sample before the period so the first sample has an energy delta, and
// hourly aggregates inside the period.
type History struct {
	Readings []domain.Reading
	Hours    []domain.Aggregate
}

type Config struct {
	IdlePowerRatio          float64
	IdleShareThreshold      float64
	IdleRecoverableFraction float64

	OffHoursStart             int
	OffHoursEnd               int
	IncludeWeekends           bool
	OffHoursShareThreshold    float64
	NecessaryBaselineFraction float64
	Location                  *time.Location

	DriftThreshold float64

	// SampleInterval is the nominal meter sampling period, read as lead
	// before the scan period.
	SampleInterval time.Duration

	EnergyPriceUSD     decimal.Decimal
	ImplementationCost map[domain.EffortTier]decimal.Decimal

	// Parallelism bounds concurrent machine fetches.
	Parallelism int
}

func DefaultConfig() Config {
	return Config{
		IdlePowerRatio:            0.10,
		IdleShareThreshold:        0.30,
		IdleRecoverableFraction:   0.8,
		OffHoursStart:             20,
		OffHoursEnd:               6,
		IncludeWeekends:           true,
		OffHoursShareThreshold:    0.20,
		NecessaryBaselineFraction: 0.3,
		Location:                  time.UTC,
		DriftThreshold:            0.10,
		SampleInterval:            15 * time.Minute,
		EnergyPriceUSD:            decimal.RequireFromString("0.12"),
		ImplementationCost: map[domain.EffortTier]decimal.Decimal{
			domain.EffortLow:    decimal.NewFromInt(500),
			domain.EffortMedium: decimal.NewFromInt(2500),
			domain.EffortHigh:   decimal.NewFromInt(10000),
		},
		Parallelism: 4,
	}
}

type Scanner struct {
	source DataSource
	cfg    Config
	log    zerolog.Logger
}

func NewScanner(source DataSource, cfg Config, log zerolog.Logger) (*Scanner, error) {
	if source == nil {
		return nil, errors.New("opportunity: nil data source")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultConfig().SampleInterval
	}
	return &Scanner{source: source, cfg: cfg, log: log}, nil
}

// Scan runs every detector over each machine's hourly history and returns the
// ranked opportunities. A failing fetch or detector is logged and skipped for
// that machine only.
func (s *Scanner) Scan(ctx context.Context, machines []domain.Machine, period domain.Period) ([]domain.Opportunity, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	perMachine := make([][]domain.Opportunity, len(machines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, m := range machines {
		i, m := i, m
		g.Go(func() error {
			hist, err := s.history(gctx, m, period)
			if err != nil {
				s.log.Warn().Err(err).Str("entity", m.ID).Msg("scan fetch failed; machine skipped")
				return nil
			}
			opps, errs := Detect(m, hist, period, s.cfg)
			for _, err := range errs {
				s.log.Warn().Err(err).Str("entity", m.ID).Msg("detector failed; skipped")
			}
			perMachine[i] = opps
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []domain.Opportunity
	for _, opps := range perMachine {
		all = append(all, opps...)
	}
	return Rank(all), nil
}

func (s *Scanner) history(ctx context.Context, m domain.Machine, period domain.Period) (History, error) {
	readings, err := s.source.FetchReadings(ctx, m.ID, m.EnergySource, period.Start.Add(-s.cfg.SampleInterval), period.End)
	if err != nil {
		return History{}, err
	}
	hours, err := s.source.FetchAggregates(ctx, m.ID, m.EnergySource, aggregate.Hourly, period.Start, period.End)
	if err != nil {
		return History{}, err
	}
	return History{Readings: readings, Hours: hours}, nil
}

// Detect runs every detector for one machine over its in-memory history.
// Detector errors are returned alongside the findings of the detectors that
// succeeded.
func Detect(m domain.Machine, h History, period domain.Period, cfg Config) ([]domain.Opportunity, []error) {
	var (
		out  []domain.Opportunity
		errs []error
	)
	for _, detect := range detectors {
		f, err := detect(m, h, period, cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f == nil {
			continue
		}
		if opp, ok := price(m, *f, period, cfg); ok {
			out = append(out, opp)
		}
	}
	return out, errs
}

// price converts a finding to an Opportunity; findings worth nothing are dropped.
func price(m domain.Machine, f finding, period domain.Period, cfg Config) (domain.Opportunity, bool) {
	usd := decimal.NewFromFloat(f.savingsKWh).Mul(cfg.EnergyPriceUSD).Round(2)
	if !usd.IsPositive() {
		return domain.Opportunity{}, false
	}
	opp := domain.Opportunity{
		EntityID:            m.ID,
		EntityName:          m.Name,
		IssueType:           f.issue,
		Description:         f.description,
		RecommendedAction:   f.action,
		PotentialSavingsKWh: f.savingsKWh,
		PotentialSavingsUSD: usd,
		EffortTier:          f.effort,
		Evidence:            f.evidence,
		PeriodStart:         period.Start,
		PeriodEnd:           period.End,
	}
	if cost, ok := cfg.ImplementationCost[f.effort]; ok {
		days := decimal.NewFromFloat(period.Days())
		opp.ROIDays = int(cost.Mul(days).Div(usd).Ceil().IntPart())
	}
	return opp, true
}

// Rank sorts by savings (USD) descending, then entity name, issue type and
// entity id, and assigns ranks 1..N.
func Rank(opps []domain.Opportunity) []domain.Opportunity {
	out := append([]domain.Opportunity(nil), opps...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := a.PotentialSavingsUSD.Cmp(b.PotentialSavingsUSD); c != 0 {
			return c > 0
		}
		if a.EntityName != b.EntityName {
			return a.EntityName < b.EntityName
		}
		if a.IssueType != b.IssueType {
			return a.IssueType < b.IssueType
		}
		return a.EntityID < b.EntityID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
