package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

var ErrPlanNotFound = errors.New("repository: action plan not found")

// PlanRepo stores generated action plans and their status.
type PlanRepo struct {
	db *sqlx.DB
}

func NewPlanRepo(db *sqlx.DB) *PlanRepo { return &PlanRepo{db: db} }

// SavePlan inserts the plan. Regenerating a plan with the same id keeps the
// stored status.
func (r *PlanRepo) SavePlan(ctx context.Context, p *domain.ActionPlan) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO action_plans (id, entity_name, issue_type, status, generated_on, payload)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`),
		p.ID, p.EntityName, p.IssueType.String(), string(p.Status), p.GeneratedOn.UTC(), string(payload))
	return err
}

func (r *PlanRepo) GetPlan(ctx context.Context, id string) (*domain.ActionPlan, error) {
	var row struct {
		Status  string `db:"status"`
		Payload string `db:"payload"`
	}
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT status, payload FROM action_plans WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var p domain.ActionPlan
	if err := json.Unmarshal([]byte(row.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	p.Status = domain.PlanStatus(row.Status)
	return &p, nil
}

// AdvancePlan moves a stored plan one status forward.
func (r *PlanRepo) AdvancePlan(ctx context.Context, id string, next domain.PlanStatus) (*domain.ActionPlan, error) {
	p, err := r.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := p.Status
	if err := p.Advance(next); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
UPDATE action_plans SET status = ?, payload = ? WHERE id = ? AND status = ?`),
		string(p.Status), string(payload), id, string(prev))
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s changed concurrently", domain.ErrInvalidTransition, id)
	}
	return p, nil
}
