package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOLSExactLine(t *testing.T) {
	ds := Dataset{Columns: map[string][]float64{"x": nil, "z": nil}}
	for i := 0; i < 50; i++ {
		x := float64(i)
		z := float64((i * 7) % 11)
		ds.Columns["x"] = append(ds.Columns["x"], x)
		ds.Columns["z"] = append(ds.Columns["z"], z)
		ds.Target = append(ds.Target, 3.432+23.333*x-1.5*z)
	}

	fit, err := ds.OLS([]string{"x", "z"})
	require.NoError(t, err)
	assert.InDelta(t, 3.432, fit.Intercept, 1e-6)
	assert.InDelta(t, 23.333, fit.Coefficients[0], 1e-6)
	assert.InDelta(t, -1.5, fit.Coefficients[1], 1e-6)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)

	c, ok := fit.Coefficient("z")
	assert.True(t, ok)
	assert.InDelta(t, -1.5, c, 1e-6)
}

func TestOLSInterceptOnly(t *testing.T) {
	ds := Dataset{Target: []float64{1, 2, 3, 4}, Columns: map[string][]float64{}}
	fit, err := ds.OLS(nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, fit.Intercept, 1e-9)
	assert.Empty(t, fit.Coefficients)
	assert.InDelta(t, 0.0, fit.RSquared, 1e-12)
}

func TestOLSTooFewRows(t *testing.T) {
	ds := Dataset{Target: []float64{1, 2}, Columns: map[string][]float64{"x": {1, 2}, "z": {3, 5}}}
	_, err := ds.OLS([]string{"x", "z"})
	assert.Error(t, err)
}

func TestRSquaredConstantTarget(t *testing.T) {
	assert.Equal(t, 0.0, rSquared([]float64{5, 5, 5}, []float64{5, 5, 5}))
}
