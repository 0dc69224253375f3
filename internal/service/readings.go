package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/metrics"
)

type ReadingService struct {
	store Store
}

// ReadingMessage is the JSON payload published by meters.
type ReadingMessage struct {
	EntityID     string             `json:"entity_id"`
	EnergySource string             `json:"energy_source"`
	Timestamp    time.Time          `json:"timestamp"`
	PowerKW      float64            `json:"power_kw"`
	EnergyKWh    float64            `json:"energy_kwh"`
	Drivers      map[string]float64 `json:"drivers,omitempty"`
}

// topicEntity returns the last segment of topic, or "".
func topicEntity(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 && i < len(topic)-1 {
		return topic[i+1:]
	}
	return ""
}

// FromMQTT stores one reading. The entity defaults to the last topic segment
// (energy/readings/<entity>) and the energy source to electricity.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) (err error) {
	defer func() { metrics.ObserveIngest(err) }()

	var msg ReadingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if msg.EntityID == "" {
		msg.EntityID = topicEntity(topic)
	}
	if msg.EntityID == "" {
		return errors.New("reading without entity id")
	}
	if msg.EnergySource == "" {
		msg.EnergySource = "electricity"
	}
	if msg.Timestamp.IsZero() {
		return errors.New("reading without timestamp")
	}
	return s.store.InsertReading(ctx, &domain.Reading{
		EntityID:     msg.EntityID,
		EnergySource: msg.EnergySource,
		Timestamp:    msg.Timestamp.UTC(),
		PowerKW:      msg.PowerKW,
		EnergyKWh:    msg.EnergyKWh,
		Drivers:      domain.DriverValues(msg.Drivers),
	})
}

// RegisterMachine creates or updates a machine. Rated power drives the idle
// detector, so it must be positive.
func (s *ReadingService) RegisterMachine(ctx context.Context, m domain.Machine) error {
	if m.ID == "" {
		return errors.New("machine without id")
	}
	if m.RatedPowerKW <= 0 {
		return fmt.Errorf("machine %s: rated_power_kw must be positive", m.ID)
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	if m.EnergySource == "" {
		m.EnergySource = "electricity"
	}
	return s.store.UpsertMachine(ctx, m)
}

// MachineFromMQTT registers the machine announced on energy/machines/<id>.
func (s *ReadingService) MachineFromMQTT(ctx context.Context, topic string, payload []byte) error {
	var m domain.Machine
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = topicEntity(topic)
	}
	return s.RegisterMachine(ctx, m)
}
