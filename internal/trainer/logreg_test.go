package trainer

import (
	"math"
	"math/rand"
	"testing"
)

// synthetic draws labeled rows from a known logistic model so the fitter
// has a ground truth to recover.
func synthetic(n int, intercept float64, weights []float64, seed int64) (rows [][]float64, labels []float64) {
	rng := rand.New(rand.NewSource(seed))
	rows = make([][]float64, n)
	labels = make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(weights))
		z := intercept
		for j := range row {
			row[j] = rng.NormFloat64()
			z += weights[j] * row[j]
		}
		rows[i] = row
		if rng.Float64() < sigmoid(z) {
			labels[i] = 1.0
		}
	}
	return rows, labels
}

func TestFitLogisticRecoversSigns(t *testing.T) {
	truth := []float64{1.5, -0.8}
	rows, labels := synthetic(4000, 0.3, truth, 42)

	fit, err := fitLogistic(rows, labels, fitOptions{LearningRate: 0.1, MaxIterations: 2000, Tolerance: 1e-7})
	if err != nil {
		t.Fatalf("fitLogistic failed: %v", err)
	}
	if len(fit.Weights) != 2 {
		t.Fatalf("expected 2 weights, got %d", len(fit.Weights))
	}
	if fit.Weights[0] <= 0 {
		t.Errorf("weight 0 should be positive, got %f", fit.Weights[0])
	}
	if fit.Weights[1] >= 0 {
		t.Errorf("weight 1 should be negative, got %f", fit.Weights[1])
	}
	if math.Abs(fit.Weights[0]) <= math.Abs(fit.Weights[1]) {
		t.Errorf("weight magnitudes out of order: %v", fit.Weights)
	}
}

func TestFitLogisticBeatsNullModel(t *testing.T) {
	rows, labels := synthetic(1000, 0.0, []float64{2.0}, 7)

	fit, err := fitLogistic(rows, labels, fitOptions{LearningRate: 0.1, MaxIterations: 2000, Tolerance: 1e-7})
	if err != nil {
		t.Fatalf("fitLogistic failed: %v", err)
	}

	null := logLikelihood(rows, labels, []float64{0}, 0)
	if fit.LogLikelihood <= null {
		t.Errorf("fitted likelihood %f should beat the null model %f", fit.LogLikelihood, null)
	}
}

func TestFitLogisticCalibration(t *testing.T) {
	rows, labels := synthetic(4000, 0.0, []float64{1.0, 0.5}, 99)

	fit, err := fitLogistic(rows, labels, fitOptions{LearningRate: 0.1, MaxIterations: 2000, Tolerance: 1e-7})
	if err != nil {
		t.Fatalf("fitLogistic failed: %v", err)
	}

	// Mean predicted probability should track the empirical positive rate.
	sumP, sumY := 0.0, 0.0
	for i, row := range rows {
		sumP += sigmoid(dot(fit.Weights, row) + fit.Intercept)
		sumY += labels[i]
	}
	n := float64(len(rows))
	if math.Abs(sumP/n-sumY/n) > 0.02 {
		t.Errorf("mean prediction %f far from base rate %f", sumP/n, sumY/n)
	}
}

func TestFitLogisticRejectsEmptyInput(t *testing.T) {
	if _, err := fitLogistic(nil, nil, fitOptions{LearningRate: 0.1, MaxIterations: 10, Tolerance: 1e-7}); err == nil {
		t.Error("expected an error for an empty training set")
	}
	if _, err := fitLogistic([][]float64{{1}}, []float64{1, 0}, fitOptions{LearningRate: 0.1, MaxIterations: 10, Tolerance: 1e-7}); err == nil {
		t.Error("expected an error for mismatched rows and labels")
	}
}

func TestStandardizeConstantFeature(t *testing.T) {
	rows := [][]float64{{5, 1}, {5, 3}, {5, 5}}
	means, sds := standardize(rows, 2)

	if means[0] != 5 || means[1] != 3 {
		t.Errorf("means = %v", means)
	}
	if sds[0] != 1 {
		t.Errorf("constant feature deviation should fall back to 1, got %f", sds[0])
	}
	if math.Abs(sds[1]-math.Sqrt(8.0/3.0)) > 1e-9 {
		t.Errorf("sd = %f", sds[1])
	}
}
