package main

import (
	"encoding/json"
	"flag"
	"math"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/config"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/service"
)

type machine struct {
	id        string
	name      string
	ratedKW   float64
	idleKW    float64
	nightLoad float64 // share of rated power kept on outside shifts
	energyKWh float64
}

func (m *machine) sample(t time.Time, step time.Duration, rng *rand.Rand) service.ReadingMessage {
	hour := t.Hour()
	onShift := hour >= 6 && hour < 20 && t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
	var power, units float64
	if onShift {
		units = 40 + 20*math.Sin(float64(t.YearDay())) + rng.Float64()*5
		power = m.idleKW + units/60*m.ratedKW + rng.Float64()*2
	} else {
		power = m.nightLoad*m.ratedKW + rng.Float64()
	}
	if power > m.ratedKW {
		power = m.ratedKW
	}
	m.energyKWh += power * step.Hours()
	return service.ReadingMessage{
		EntityID:     m.id,
		EnergySource: "electricity",
		Timestamp:    t.UTC(),
		PowerKW:      power,
		EnergyKWh:    m.energyKWh,
		Drivers: map[string]float64{
			"production_count": units,
			"temperature":      18 + 8*math.Sin(2*math.Pi*float64(hour)/24) + rng.Float64(),
		},
	}
}

// The simulator replays days of 15-minute readings for a few machines so the
// engine has data to train and scan against.
func main() {
	days := flag.Int("days", 45, "days of history to publish")
	step := flag.Duration("step", 15*time.Minute, "sampling interval")
	flag.Parse()

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker()).SetClientID("energy-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	machines := []*machine{
		{id: "press-1", name: "Press 1", ratedKW: 80, idleKW: 6, nightLoad: 0.05},
		{id: "compressor-2", name: "Compressor 2", ratedKW: 45, idleKW: 3, nightLoad: 0.4},
		{id: "oven-3", name: "Oven 3", ratedKW: 120, idleKW: 4, nightLoad: 0.02},
	}

	// retained so an ingestor started later still learns the machines
	for _, m := range machines {
		payload, err := json.Marshal(domain.Machine{ID: m.id, Name: m.name, EnergySource: "electricity", RatedPowerKW: m.ratedKW})
		if err != nil {
			log.Fatal().Err(err).Msg("encode machine")
		}
		token := client.Publish("energy/machines/"+m.id, 1, true, payload)
		if token.Wait() && token.Error() != nil {
			log.Fatal().Err(token.Error()).Str("entity", m.id).Msg("announce machine")
		}
	}

	end := time.Now().UTC().Truncate(*step)
	start := end.AddDate(0, 0, -*days)
	var sent int
	for t := start; t.Before(end); t = t.Add(*step) {
		for _, m := range machines {
			payload, err := json.Marshal(m.sample(t, *step, rng))
			if err != nil {
				log.Fatal().Err(err).Msg("encode reading")
			}
			token := client.Publish("energy/readings/"+m.id, 1, false, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Error().Err(err).Str("entity", m.id).Msg("publish failed")
				continue
			}
			sent++
		}
	}
	log.Info().Int("readings", sent).Int("machines", len(machines)).Msg("simulation done")
}
