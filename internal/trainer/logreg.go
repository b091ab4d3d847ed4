package trainer

import (
	"fmt"
	"math"
)

type fitOptions struct {
	LearningRate  float64
	MaxIterations int
	Tolerance     float64
}

type logisticFit struct {
	Intercept     float64
	Weights       []float64
	LogLikelihood float64
	Iterations    int
	Converged     bool
}

// fitLogistic fits a maximum-likelihood binary logistic regression by
// gradient ascent. Features are standardized internally for a stable step
// size; the returned weights are mapped back to the original units.
func fitLogistic(rows [][]float64, labels []float64, opts fitOptions) (*logisticFit, error) {
	n := len(rows)
	if n == 0 || n != len(labels) {
		return nil, fmt.Errorf("invalid training set: %d rows, %d labels", n, len(labels))
	}
	dims := len(rows[0])

	means, sds := standardize(rows, dims)
	scaled := make([][]float64, n)
	for i, row := range rows {
		s := make([]float64, dims)
		for j, v := range row {
			s[j] = (v - means[j]) / sds[j]
		}
		scaled[i] = s
	}

	weights := make([]float64, dims)
	intercept := 0.0
	prevLL := logLikelihood(scaled, labels, weights, intercept)

	fit := &logisticFit{}
	for iter := 0; iter < opts.MaxIterations; iter++ {
		grad := make([]float64, dims)
		gradIntercept := 0.0
		for i, row := range scaled {
			p := sigmoid(dot(weights, row) + intercept)
			residual := labels[i] - p
			for j, v := range row {
				grad[j] += residual * v
			}
			gradIntercept += residual
		}

		step := opts.LearningRate / float64(n)
		for j := range weights {
			weights[j] += step * grad[j]
		}
		intercept += step * gradIntercept

		ll := logLikelihood(scaled, labels, weights, intercept)
		if iter > 0 && math.Abs(ll-prevLL) < opts.Tolerance {
			fit.Iterations = iter + 1
			fit.Converged = true
			fit.LogLikelihood = ll
			break
		}
		prevLL = ll
	}
	if !fit.Converged {
		fit.Iterations = opts.MaxIterations
		fit.LogLikelihood = prevLL
	}

	// Undo the standardization so the weights apply to raw features.
	fit.Weights = make([]float64, dims)
	fit.Intercept = intercept
	for j := range weights {
		fit.Weights[j] = weights[j] / sds[j]
		fit.Intercept -= weights[j] * means[j] / sds[j]
	}
	return fit, nil
}

func standardize(rows [][]float64, dims int) (means, sds []float64) {
	n := float64(len(rows))
	means = make([]float64, dims)
	sds = make([]float64, dims)

	for _, row := range rows {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - means[j]
			sds[j] += d * d
		}
	}
	for j := range sds {
		sds[j] = math.Sqrt(sds[j] / n)
		if sds[j] == 0 {
			// constant feature, leave it untouched
			sds[j] = 1
		}
	}
	return means, sds
}

func logLikelihood(rows [][]float64, labels []float64, weights []float64, intercept float64) float64 {
	ll := 0.0
	for i, row := range rows {
		p := sigmoid(dot(weights, row) + intercept)
		// clamp away from 0 and 1 so the log stays finite
		p = math.Min(math.Max(p, 1e-12), 1-1e-12)
		if labels[i] > 0.5 {
			ll += math.Log(p)
		} else {
			ll += math.Log(1 - p)
		}
	}
	return ll
}

func sigmoid(z float64) float64 {
	if z > 700 {
		return 1.0
	}
	if z < -700 {
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
