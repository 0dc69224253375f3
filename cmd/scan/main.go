package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/app"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/config"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/service"
)

type batchRunner interface {
	RunBatch(ctx context.Context, req service.BatchRequest) (*service.BatchResult, error)
}

// scan is the nightly batch: optionally retrain every baseline, then scan the
// lookback window, store a plan per opportunity and archive the report.
// A failed batch exits non-zero so the scheduler sees it.
func main() {
	train := flag.Bool("train", false, "retrain baselines for every machine before scanning")
	days := flag.Int("days", 0, "lookback in days (default SCAN_LOOKBACK_DAYS)")
	flag.Parse()

	eng, err := app.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, svcs, err := app.Open(ctx, eng)
	if err != nil {
		log.Fatal().Err(err).Msg("service init failed")
	}

	req := service.BatchRequest{
		LookbackDays: config.ScanLookbackDays(),
		Train:        *train,
		TrainingDays: config.TrainingPeriodDays(),
		Parallelism:  config.TrainingParallelism(),
	}
	if *days > 0 {
		req.LookbackDays = *days
	}
	err = run(ctx, svcs.Engine, req, log.Logger)
	svcs.Close()
	db.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("batch failed")
	}
}

func run(ctx context.Context, engine batchRunner, req service.BatchRequest, logger zerolog.Logger) error {
	res, err := engine.RunBatch(ctx, req)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}
	for i, o := range res.Opportunities {
		logger.Info().Int("rank", o.Rank).Str("entity", o.EntityName).Stringer("issue", o.IssueType).
			Float64("kwh", o.PotentialSavingsKWh).Str("usd", o.PotentialSavingsUSD.StringFixed(2)).
			Str("plan", res.PlanIDs[i]).Msg("opportunity")
	}
	return nil
}
