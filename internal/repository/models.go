package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// ModelRepo is the SQL baseline.ModelStore. Each model version is one row; the
// full record is kept as JSON next to the columns used for lookups.
type ModelRepo struct {
	db *sqlx.DB
}

func NewModelRepo(db *sqlx.DB) *ModelRepo { return &ModelRepo{db: db} }

type modelRow struct {
	Payload string `db:"payload"`
}

func (r *ModelRepo) SaveModel(ctx context.Context, m *domain.BaselineModel) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var latest int
	if err := tx.GetContext(ctx, &latest, tx.Rebind(`
SELECT COALESCE(MAX(version), 0) FROM baseline_models WHERE entity_id = ? AND energy_source = ?`),
		m.EntityID, m.EnergySource); err != nil {
		return fmt.Errorf("latest version: %w", err)
	}
	m.Version = latest + 1

	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO baseline_models (id, entity_id, energy_source, version, r_squared, sample_count, trained_at, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.EntityID, m.EnergySource, m.Version, m.RSquared, m.SampleCount, m.TrainedAt.UTC(), string(payload)); err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return tx.Commit()
}

func (r *ModelRepo) LoadLatestModel(ctx context.Context, entityID, energySource string) (*domain.BaselineModel, error) {
	var rows []modelRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
SELECT payload FROM baseline_models
WHERE entity_id = ? AND energy_source = ?
ORDER BY version DESC LIMIT 1`), entityID, energySource); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrModelNotFound
	}
	return decodeModel(rows[0].Payload)
}

func (r *ModelRepo) ListModelVersions(ctx context.Context, entityID, energySource string) ([]domain.BaselineModel, error) {
	var rows []modelRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
SELECT payload FROM baseline_models
WHERE entity_id = ? AND energy_source = ?
ORDER BY version`), entityID, energySource); err != nil {
		return nil, err
	}
	out := make([]domain.BaselineModel, 0, len(rows))
	for _, row := range rows {
		m, err := decodeModel(row.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

func decodeModel(payload string) (*domain.BaselineModel, error) {
	var m domain.BaselineModel
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
}
