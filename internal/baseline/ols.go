package baseline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	varianceEpsilon  = 1e-12
	collinearRSquare = 0.9999
)

// Dataset is a training matrix held column-wise: one target vector and one
// column per driver, all of equal length.
type Dataset struct {
	Target  []float64
	Columns map[string][]float64
}

func (d Dataset) Len() int { return len(d.Target) }

// Subset returns the rows at idx, in order.
func (d Dataset) Subset(idx []int) Dataset {
	out := Dataset{
		Target:  make([]float64, len(idx)),
		Columns: make(map[string][]float64, len(d.Columns)),
	}
	for name := range d.Columns {
		out.Columns[name] = make([]float64, len(idx))
	}
	for i, row := range idx {
		out.Target[i] = d.Target[row]
		for name, col := range d.Columns {
			out.Columns[name][i] = col[row]
		}
	}
	return out
}

// Fit is the result of an ordinary least-squares regression.
type Fit struct {
	Drivers      []string
	Coefficients []float64
	Intercept    float64
	RSquared     float64
}

// Predict evaluates the fitted line for one row of driver values.
func (f Fit) Predict(values func(driver string) float64) float64 {
	y := f.Intercept
	for i, name := range f.Drivers {
		y += f.Coefficients[i] * values(name)
	}
	return y
}

// Coefficient returns the fitted coefficient of driver, if present.
func (f Fit) Coefficient(driver string) (float64, bool) {
	for i, name := range f.Drivers {
		if name == driver {
			return f.Coefficients[i], true
		}
	}
	return 0, false
}

// OLS regresses the target on drivers with an intercept column.
func (d Dataset) OLS(drivers []string) (Fit, error) {
	n := d.Len()
	p := len(drivers)
	if n <= p {
		return Fit{}, fmt.Errorf("baseline: %d rows cannot fit %d parameters", n, p+1)
	}

	x := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for j, name := range drivers {
		col, ok := d.Columns[name]
		if !ok {
			return Fit{}, fmt.Errorf("baseline: dataset has no driver %q", name)
		}
		for i := 0; i < n; i++ {
			x.Set(i, j+1, col[i])
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, mat.NewVecDense(n, append([]float64(nil), d.Target...))); err != nil {
		return Fit{}, fmt.Errorf("baseline: least squares: %w", err)
	}

	fit := Fit{
		Drivers:      append(make([]string, 0, p), drivers...),
		Coefficients: make([]float64, p),
		Intercept:    beta.AtVec(0),
	}
	for j := 0; j < p; j++ {
		fit.Coefficients[j] = beta.AtVec(j + 1)
	}

	var yhat mat.VecDense
	yhat.MulVec(x, &beta)
	fit.RSquared = rSquared(yhat.RawVector().Data, d.Target)
	return fit, nil
}

// rSquared is the coefficient of determination clamped to [0, 1]. A constant
// target has no variance to explain and scores 0.
func rSquared(estimates, values []float64) float64 {
	if stat.Variance(values, nil) <= varianceEpsilon {
		return 0
	}
	r2 := stat.RSquaredFrom(estimates, values, nil)
	if math.IsNaN(r2) || r2 < 0 {
		return 0
	}
	return math.Min(r2, 1)
}

// zeroVariance reports whether the driver column is constant.
func (d Dataset) zeroVariance(driver string) bool {
	col := d.Columns[driver]
	if len(col) < 2 {
		return true
	}
	return stat.Variance(col, nil) <= varianceEpsilon
}

// collinear reports whether driver is (almost) a linear combination of others.
func (d Dataset) collinear(driver string, others []string) bool {
	if len(others) == 0 {
		return false
	}
	probe := Dataset{Target: d.Columns[driver], Columns: d.Columns}
	fit, err := probe.OLS(others)
	if err != nil {
		return true
	}
	return fit.RSquared >= collinearRSquare
}
