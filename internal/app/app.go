// Package app wires configured stores and cloud integrations into services.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/baseline"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/cloud"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/config"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/database"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/events"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/service"
)

// Setup loads configuration and applies the log level.
func Setup() (config.Engine, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := config.Load(); err != nil {
		return config.Engine{}, fmt.Errorf("config load failed: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(config.LogLevel()); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return config.EngineSettings()
}

// Open connects the database and builds services with every integration the
// configuration enables. Close the returned services, then the database.
func Open(ctx context.Context, eng config.Engine) (*sqlx.DB, *service.Services, error) {
	db, err := database.Connect(config.DBDriver(), config.DBDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("db connect failed: %w", err)
	}
	svcs, err := build(ctx, db, eng)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, svcs, nil
}

func build(ctx context.Context, db *sqlx.DB, eng config.Engine) (*service.Services, error) {
	var models baseline.ModelStore = repository.NewModelRepo(db)
	if config.ModelStore() == "dynamodb" {
		store, err := cloud.NewDynamoModelStore(ctx, config.AWSRegion(), config.DynamoModelTable())
		if err != nil {
			return nil, fmt.Errorf("dynamodb model store: %w", err)
		}
		models = store
		log.Info().Str("table", config.DynamoModelTable()).Msg("baseline models stored in dynamodb")
	}

	opts := []service.Option{service.WithLogger(log.Logger)}
	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		pub, err := events.NewKafkaPublisher(brokers, config.DeviationsTopic(), config.OpportunitiesTopic())
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		opts = append(opts, service.WithPublisher(pub))
	}

	if config.UseCloudServices() {
		region := config.AWSRegion()
		if arn := config.SNSTopicArn(); arn != "" {
			sns, err := cloud.NewSNSClient(ctx, region, arn)
			if err != nil {
				return nil, fmt.Errorf("sns client: %w", err)
			}
			opts = append(opts, service.WithAlerter(sns))
		}
		s3, err := cloud.NewS3Client(ctx, region, config.S3Bucket())
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		opts = append(opts, service.WithArchive(s3))
		if fn := config.ScanFunction(); fn != "" {
			lc, err := cloud.NewLambdaClient(ctx, region, fn)
			if err != nil {
				return nil, fmt.Errorf("lambda client: %w", err)
			}
			opts = append(opts, service.WithDispatcher(lc))
		}
		log.Info().Str("region", region).Msg("cloud services enabled")
	}

	return service.New(repository.New(db), models, repository.NewPlanRepo(db), eng, opts...)
}
