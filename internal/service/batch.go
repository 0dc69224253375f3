package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/baseline"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// Dispatcher hands a batch to an asynchronous worker.
type Dispatcher interface {
	InvokeAsync(ctx context.Context, payload any) error
}

// BatchRequest describes one scan run. An empty period means the LookbackDays
// full UTC days before now. Retraining uses its own reference window of
// TrainingDays ending with the scan period.
type BatchRequest struct {
	Start        time.Time `json:"start,omitempty"`
	End          time.Time `json:"end,omitempty"`
	LookbackDays int       `json:"lookback_days,omitempty"`
	Train        bool      `json:"train,omitempty"`
	TrainingDays int       `json:"training_days,omitempty"`
	Parallelism  int       `json:"parallelism,omitempty"`
}

const (
	defaultLookbackDays = 30
	defaultTrainingDays = 365
)

// BatchResult summarises a finished run.
type BatchResult struct {
	Period           domain.Period        `json:"period"`
	TrainingPeriod   *domain.Period       `json:"training_period,omitempty"`
	Trained          int                  `json:"trained"`
	TrainingFailures map[string]string    `json:"training_failures,omitempty"`
	Opportunities    []domain.Opportunity `json:"opportunities"`
	PlanIDs          []string             `json:"plan_ids"`
	ReportURL        string               `json:"report_url,omitempty"`
}

func (s *EngineService) batchPeriod(req BatchRequest) domain.Period {
	if !req.Start.IsZero() || !req.End.IsZero() {
		return domain.Period{Start: req.Start, End: req.End}
	}
	days := req.LookbackDays
	if days <= 0 {
		days = defaultLookbackDays
	}
	end := s.clock.Now().UTC().Truncate(24 * time.Hour)
	return domain.Period{Start: end.AddDate(0, 0, -days), End: end}
}

func trainingPeriod(req BatchRequest, scan domain.Period) domain.Period {
	days := req.TrainingDays
	if days <= 0 {
		days = defaultTrainingDays
	}
	return domain.Period{Start: scan.End.AddDate(0, 0, -days), End: scan.End}
}

// RunBatch optionally retrains every machine's baseline over the training
// window, scans the period,
// stores a plan per opportunity and archives the report. Training and archive
// failures are reported in the result, not returned.
func (s *EngineService) RunBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	period := s.batchPeriod(req)
	if err := period.Validate(); err != nil {
		return nil, err
	}
	res := &BatchResult{Period: period}

	if req.Train {
		machines, err := s.store.ListMachines(ctx)
		if err != nil {
			return nil, fmt.Errorf("list machines: %w", err)
		}
		train := trainingPeriod(req, period)
		res.TrainingPeriod = &train
		reqs := make([]baseline.Request, 0, len(machines))
		for _, m := range machines {
			reqs = append(reqs, baseline.Request{EntityID: m.ID, EnergySource: m.EnergySource, Period: train, Selection: baseline.Auto()})
		}
		for _, r := range s.TrainAll(ctx, reqs, req.Parallelism) {
			if r.Err != nil {
				if res.TrainingFailures == nil {
					res.TrainingFailures = map[string]string{}
				}
				res.TrainingFailures[r.Request.EntityID] = r.Err.Error()
				s.log.Warn().Err(r.Err).Str("entity", r.Request.EntityID).Msg("training failed")
				continue
			}
			res.Trained++
		}
	}

	opps, err := s.Scan(ctx, nil, period)
	if err != nil {
		return nil, err
	}
	res.Opportunities = opps

	plans, err := s.GeneratePlans(ctx, opps)
	if err != nil {
		return nil, err
	}
	res.PlanIDs = make([]string, len(plans))
	for i, p := range plans {
		res.PlanIDs[i] = p.ID
	}

	url, err := s.ArchiveScan(ctx, period, opps)
	if err != nil {
		s.log.Error().Err(err).Msg("report archive failed")
	}
	res.ReportURL = url

	s.log.Info().Int("opportunities", len(opps)).Int("plans", len(plans)).Int("trained", res.Trained).
		Time("start", period.Start).Time("end", period.End).Msg("batch complete")
	return res, nil
}

// ErrNoDispatcher is returned by DispatchBatch when no worker is configured.
var ErrNoDispatcher = errors.New("service: no batch dispatcher configured")

// DispatchBatch queues req on the configured worker.
func (s *EngineService) DispatchBatch(ctx context.Context, req BatchRequest) error {
	if s.dispatcher == nil {
		return ErrNoDispatcher
	}
	if err := s.dispatcher.InvokeAsync(ctx, req); err != nil {
		return fmt.Errorf("dispatch batch: %w", err)
	}
	return nil
}
