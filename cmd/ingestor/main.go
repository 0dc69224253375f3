package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/app"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/config"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/database"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/metrics"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/service"
)

func main() {
	eng, err := app.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	db, err := database.Connect(config.DBDriver(), config.DBDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	svcs, err := service.New(repository.New(db), repository.NewModelRepo(db), repository.NewPlanRepo(db), eng,
		service.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("service init failed")
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker()).SetClientID("energy-ingestor")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := svcs.Readings.FromMQTT(ctx, msg.Topic(), msg.Payload()); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}

	onMachine := func(_ mqtt.Client, msg mqtt.Message) {
		if err := svcs.Readings.MachineFromMQTT(ctx, msg.Topic(), msg.Payload()); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("machine registration failed")
		}
	}

	topic, machineTopic := config.MQTTTopic(), config.MQTTMachineTopic()
	machinePrefix := strings.TrimSuffix(machineTopic, "#")
	filters := map[string]byte{topic: 1, machineTopic: 1}
	router := func(c mqtt.Client, msg mqtt.Message) {
		if strings.HasPrefix(msg.Topic(), machinePrefix) {
			onMachine(c, msg)
			return
		}
		handler(c, msg)
	}
	if token := client.SubscribeMultiple(filters, router); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("ingestor stopping")
}
