package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// ErrMachineNotFound is returned by GetMachine for unknown ids.
var ErrMachineNotFound = errors.New("repository: machine not found")

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) ListMachines(ctx context.Context) ([]domain.Machine, error) {
	var out []domain.Machine
	err := r.db.SelectContext(ctx, &out, `SELECT id, name, energy_source, rated_power_kw FROM machines ORDER BY id`)
	return out, err
}

func (r *Repos) GetMachine(ctx context.Context, id string) (*domain.Machine, error) {
	var m domain.Machine
	err := r.db.GetContext(ctx, &m, r.db.Rebind(`SELECT id, name, energy_source, rated_power_kw FROM machines WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repos) UpsertMachine(ctx context.Context, m domain.Machine) error {
	_, err := r.db.NamedExecContext(ctx, `
INSERT INTO machines (id, name, energy_source, rated_power_kw)
VALUES (:id, :name, :energy_source, :rated_power_kw)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    energy_source = excluded.energy_source,
    rated_power_kw = excluded.rated_power_kw`, m)
	return err
}

// InsertReading appends a reading; readings are never updated.
func (r *Repos) InsertReading(ctx context.Context, rd *domain.Reading) error {
	drivers := rd.Drivers
	if drivers == nil {
		drivers = domain.DriverValues{}
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO readings (entity_id, energy_source, timestamp, power_kw, energy_kwh, drivers)
VALUES (?, ?, ?, ?, ?, ?)`),
		rd.EntityID, rd.EnergySource, rd.Timestamp.UTC(), rd.PowerKW, rd.EnergyKWh, drivers)
	return err
}

// ReadingsBetween returns readings in [start, end) ordered by timestamp.
func (r *Repos) ReadingsBetween(ctx context.Context, entityID, energySource string, start, end time.Time) ([]domain.Reading, error) {
	var out []domain.Reading
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT id, entity_id, energy_source, timestamp, power_kw, energy_kwh, drivers
FROM readings
WHERE entity_id = ? AND energy_source = ? AND timestamp >= ? AND timestamp < ?
ORDER BY timestamp, id`),
		entityID, energySource, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}
