package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/app"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/config"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/service"
)

var svcs *service.Services

// handler runs one batch. Scheduled events carry no batch fields and scan the
// configured lookback.
func handler(ctx context.Context, req service.BatchRequest) (*service.BatchResult, error) {
	if req.LookbackDays == 0 {
		req.LookbackDays = config.ScanLookbackDays()
	}
	if req.TrainingDays == 0 {
		req.TrainingDays = config.TrainingPeriodDays()
	}
	if req.Parallelism == 0 {
		req.Parallelism = config.TrainingParallelism()
	}
	return svcs.Engine.RunBatch(ctx, req)
}

func main() {
	eng, err := app.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	_, s, err := app.Open(context.Background(), eng)
	if err != nil {
		log.Fatal().Err(err).Msg("service init failed")
	}
	svcs = s
	lambda.Start(handler)
}
