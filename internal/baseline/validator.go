package baseline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Validator scores a driver set on data the model was not fitted on.
type Validator interface {
	CrossValidate(ds Dataset, drivers []string) (float64, error)
}

// KFold is contiguous k-fold cross-validation returning the out-of-sample R².
// Folds are chronological slices so neighbouring days stay together.
type KFold struct {
	K int
}

func (v KFold) CrossValidate(ds Dataset, drivers []string) (float64, error) {
	k := v.K
	if k < 2 {
		k = 5
	}
	n := ds.Len()
	if n < k*(len(drivers)+2) {
		return 0, fmt.Errorf("baseline: %d rows too few for %d-fold validation", n, k)
	}

	predicted := make([]float64, n)
	for fold := 0; fold < k; fold++ {
		lo, hi := fold*n/k, (fold+1)*n/k
		train := make([]int, 0, n-(hi-lo))
		for i := 0; i < n; i++ {
			if i < lo || i >= hi {
				train = append(train, i)
			}
		}
		fit, err := ds.Subset(train).OLS(drivers)
		if err != nil {
			return 0, fmt.Errorf("fold %d: %w", fold, err)
		}
		for i := lo; i < hi; i++ {
			row := i
			predicted[i] = fit.Predict(func(name string) float64 { return ds.Columns[name][row] })
		}
	}

	r2 := stat.RSquaredFrom(predicted, ds.Target, nil)
	if math.IsNaN(r2) {
		return 0, fmt.Errorf("baseline: cross-validated r_squared undefined")
	}
	return r2, nil
}
