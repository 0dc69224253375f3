package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/database"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMachines(t *testing.T) {
	ctx := context.Background()
	r := New(openTestDB(t))

	require.NoError(t, r.UpsertMachine(ctx, domain.Machine{ID: "p1", Name: "Press 1", EnergySource: "electricity", RatedPowerKW: 75}))
	require.NoError(t, r.UpsertMachine(ctx, domain.Machine{ID: "p1", Name: "Press 1A", EnergySource: "electricity", RatedPowerKW: 80}))

	m, err := r.GetMachine(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Press 1A", m.Name)
	assert.Equal(t, 80.0, m.RatedPowerKW)

	_, err = r.GetMachine(ctx, "missing")
	assert.ErrorIs(t, err, ErrMachineNotFound)

	all, err := r.ListMachines(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReadingsRoundTripInOrder(t *testing.T) {
	ctx := context.Background()
	r := New(openTestDB(t))
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// inserted out of order on purpose
	for _, i := range []int{2, 0, 1, 3} {
		require.NoError(t, r.InsertReading(ctx, &domain.Reading{
			EntityID:     "p1",
			EnergySource: "electricity",
			Timestamp:    base.Add(time.Duration(i) * 15 * time.Minute),
			PowerKW:      40,
			EnergyKWh:    float64(i * 10),
			Drivers:      domain.DriverValues{"production_count": float64(i)},
		}))
	}

	got, err := r.ReadingsBetween(ctx, "p1", "electricity", base, base.Add(45*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, rd := range got {
		assert.True(t, base.Add(time.Duration(i)*15*time.Minute).Equal(rd.Timestamp))
		assert.Equal(t, float64(i), rd.Drivers["production_count"])
	}
}

func TestModelRepoVersions(t *testing.T) {
	ctx := context.Background()
	repo := NewModelRepo(openTestDB(t))

	_, err := repo.LoadLatestModel(ctx, "p1", "electricity")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)

	for i, id := range []string{"m1", "m2"} {
		m := &domain.BaselineModel{
			ID:           id,
			EntityID:     "p1",
			EnergySource: "electricity",
			DriverNames:  []string{"production_count"},
			Coefficients: []float64{0.5 + float64(i)},
			Intercept:    100,
			RSquared:     0.9,
			SampleCount:  30,
			TrainedAt:    time.Date(2025, 4, 1+i, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, repo.SaveModel(ctx, m))
		assert.Equal(t, i+1, m.Version)
	}

	latest, err := repo.LoadLatestModel(ctx, "p1", "electricity")
	require.NoError(t, err)
	assert.Equal(t, "m2", latest.ID)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, []float64{1.5}, latest.Coefficients)

	versions, err := repo.ListModelVersions(ctx, "p1", "electricity")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
}

func TestPlanRepoStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewPlanRepo(openTestDB(t))
	plan := &domain.ActionPlan{
		ID:          "plan-1",
		EntityName:  "Press 1",
		IssueType:   domain.IssueExcessiveIdle,
		Status:      domain.PlanDraft,
		GeneratedOn: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SavePlan(ctx, plan))

	_, err := repo.AdvancePlan(ctx, "plan-1", domain.PlanComplete)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	p, err := repo.AdvancePlan(ctx, "plan-1", domain.PlanInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanInProgress, p.Status)

	// regenerating keeps progress
	require.NoError(t, repo.SavePlan(ctx, plan))
	p, err = repo.GetPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanInProgress, p.Status)

	_, err = repo.GetPlan(ctx, "nope")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}
