package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/actionplan"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/aggregate"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/baseline"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/cloud"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/deviation"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/events"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/metrics"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/opportunity"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/report"
)

// digestSize is the number of opportunities included in an alert digest.
const digestSize = 5

// EngineService runs the analytic components against stored data and fans
// results out to events, alerts and the report archive.
type EngineService struct {
	store      Store
	models     baseline.ModelStore
	plans      PlanStore
	data       *DataAccess
	trainer    *baseline.Trainer
	deviation  *deviation.Engine
	scanner    *opportunity.Scanner
	interval   aggregate.Interval
	publisher  events.Publisher
	alerter    Alerter
	archive    Archive
	dispatcher Dispatcher
	clock      baseline.Clock
	log        zerolog.Logger
}

func (s *EngineService) Train(ctx context.Context, entityID, energySource string, period domain.Period, sel baseline.DriverSelection) (*domain.BaselineModel, error) {
	started := time.Now()
	m, err := s.trainer.Train(ctx, entityID, energySource, period, sel)
	metrics.ObserveTraining(m, time.Since(started), err)
	return m, err
}

func (s *EngineService) TrainAll(ctx context.Context, reqs []baseline.Request, parallelism int) []baseline.Result {
	started := time.Now()
	results := s.trainer.TrainAll(ctx, reqs, parallelism)
	elapsed := time.Since(started)
	for _, r := range results {
		metrics.ObserveTraining(r.Model, elapsed, r.Err)
	}
	return results
}

func (s *EngineService) LatestModel(ctx context.Context, entityID, energySource string) (*domain.BaselineModel, error) {
	return s.models.LoadLatestModel(ctx, entityID, energySource)
}

func (s *EngineService) ModelVersions(ctx context.Context, entityID, energySource string) ([]domain.BaselineModel, error) {
	return s.models.ListModelVersions(ctx, entityID, energySource)
}

// Evaluation is the deviation series of one entity over a period.
type Evaluation struct {
	Model   *domain.BaselineModel    `json:"model"`
	Results []domain.DeviationResult `json:"results"`
	Summary deviation.Summary        `json:"summary"`
}

// Evaluate scores every period in the window against the latest baseline.
// Severe periods are alerted; results are published as events. Alert and
// publish failures are logged only.
func (s *EngineService) Evaluate(ctx context.Context, entityID, energySource string, period domain.Period) (*Evaluation, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	model, err := s.models.LoadLatestModel(ctx, entityID, energySource)
	if err != nil {
		return nil, err
	}
	aggs, err := s.data.FetchAggregates(ctx, entityID, energySource, s.interval, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	results, summary, err := s.deviation.EvaluateSeries(model, aggs)
	if err != nil {
		metrics.ObserveEvaluation(nil, err)
		return nil, err
	}
	for i := range results {
		metrics.ObserveEvaluation(&results[i], nil)
	}

	if err := s.publisher.PublishDeviations(ctx, results); err != nil {
		s.log.Warn().Err(err).Str("entity", entityID).Msg("publish deviations failed")
	}
	if s.alerter != nil {
		for _, r := range results {
			if r.Compliance != domain.ComplianceSevere {
				continue
			}
			if err := s.alerter.SendDeviationAlert(ctx, r); err != nil {
				s.log.Warn().Err(err).Str("entity", entityID).Msg("deviation alert failed")
			}
		}
	}
	return &Evaluation{Model: model, Results: results, Summary: summary}, nil
}

// Scan runs the opportunity scanner over the given machines, or every known
// machine when ids is empty.
func (s *EngineService) Scan(ctx context.Context, ids []string, period domain.Period) ([]domain.Opportunity, error) {
	started := time.Now()
	opps, err := s.scan(ctx, ids, period)
	metrics.ObserveScan(opps, time.Since(started), err)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishOpportunities(ctx, opps); err != nil {
		s.log.Warn().Err(err).Msg("publish opportunities failed")
	}
	if s.alerter != nil {
		if err := s.alerter.SendOpportunityDigest(ctx, opps, digestSize); err != nil {
			s.log.Warn().Err(err).Msg("opportunity digest failed")
		}
	}
	return opps, nil
}

func (s *EngineService) scan(ctx context.Context, ids []string, period domain.Period) ([]domain.Opportunity, error) {
	var machines []domain.Machine
	if len(ids) == 0 {
		all, err := s.store.ListMachines(ctx)
		if err != nil {
			return nil, fmt.Errorf("list machines: %w", err)
		}
		machines = all
	} else {
		for _, id := range ids {
			m, err := s.store.GetMachine(ctx, id)
			if err != nil {
				s.log.Warn().Err(err).Str("entity", id).Msg("machine skipped")
				continue
			}
			machines = append(machines, *m)
		}
	}
	return s.scanner.Scan(ctx, machines, period)
}

// ArchiveScan renders opportunities as XLSX and uploads them. It returns the
// download URL, or "" when no archive is configured.
func (s *EngineService) ArchiveScan(ctx context.Context, period domain.Period, opps []domain.Opportunity) (string, error) {
	if s.archive == nil {
		return "", nil
	}
	data, err := report.BuildOpportunitiesXLSX(period, opps)
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	now := s.clock.Now()
	key := cloud.ReportKey("opportunities", now, report.FileName("scan", now), "xlsx")
	return s.archive.UploadReport(ctx, key, data, report.ContentTypeXLSX)
}

// ErrNoArchive is returned by Reports when no report archive is configured.
var ErrNoArchive = errors.New("service: no report archive configured")

// Reports lists archived report keys of one kind, optionally limited to a
// single UTC day.
func (s *EngineService) Reports(ctx context.Context, kind string, day time.Time) ([]string, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	return s.archive.ListReports(ctx, cloud.ReportPrefix(kind, day))
}

// GeneratePlan builds and stores the plan for an issue type given by name.
func (s *EngineService) GeneratePlan(ctx context.Context, entityName, issueType string) (*domain.ActionPlan, error) {
	plan, err := actionplan.GenerateByName(entityName, issueType, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.savePlan(ctx, plan)
}

// GeneratePlans builds and stores a quantified plan per opportunity.
func (s *EngineService) GeneratePlans(ctx context.Context, opps []domain.Opportunity) ([]*domain.ActionPlan, error) {
	now := s.clock.Now()
	out := make([]*domain.ActionPlan, 0, len(opps))
	for _, o := range opps {
		plan, err := actionplan.GenerateForOpportunity(o, now)
		if err != nil {
			return nil, err
		}
		saved, err := s.savePlan(ctx, plan)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// savePlan stores a fresh plan and returns the stored copy. A plan already
// generated under the same id keeps its first payload and current status.
func (s *EngineService) savePlan(ctx context.Context, plan *domain.ActionPlan) (*domain.ActionPlan, error) {
	if err := s.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return s.plans.GetPlan(ctx, plan.ID)
}

func (s *EngineService) Plan(ctx context.Context, id string) (*domain.ActionPlan, error) {
	return s.plans.GetPlan(ctx, id)
}

func (s *EngineService) AdvancePlan(ctx context.Context, id string, next domain.PlanStatus) (*domain.ActionPlan, error) {
	return s.plans.AdvancePlan(ctx, id, next)
}

// PlanPDF renders a stored plan.
func (s *EngineService) PlanPDF(ctx context.Context, id string) ([]byte, error) {
	plan, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return report.BuildActionPlanPDF(plan)
}
