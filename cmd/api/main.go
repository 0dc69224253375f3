package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/app"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/config"
	httpHandlers "github.com/ANIKETSHETTY47/energy-performance-engine/internal/http"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/metrics"
)

func main() {
	eng, err := app.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	db, svcs, err := app.Open(context.Background(), eng)
	if err != nil {
		log.Fatal().Err(err).Msg("service init failed")
	}
	defer db.Close()
	defer svcs.Close()

	metrics.Init()
	srv := fiber.New()
	httpHandlers.Register(srv, svcs)

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(srv.Listen(addr)).Msg("server exit")
}
