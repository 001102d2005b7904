package processor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/schalkdaniel/distributed-lm/internal/dataset"
)

// LinearGradientDescent trains a linear model with mean-squared-error loss by
// full-batch gradient descent. A zero Momentum gives plain gradient descent;
// a positive one accumulates a velocity over the local steps.
type LinearGradientDescent struct {
	Momentum float64
}

func (p *LinearGradientDescent) Process(params []float64, ds *dataset.Dataset, schema dataset.Schema,
	learningRate float64, steps int) ([]float64, float64, error) {
	if len(params) != schema.Dim() {
		return nil, 0, fmt.Errorf("parameter dimension %d does not match schema dimension %d", len(params), schema.Dim())
	}

	x, y, err := designMatrix(ds, schema)
	if err != nil {
		return nil, 0, err
	}
	n := float64(ds.NumSamples())

	w := mat.NewVecDense(len(params), nil)
	copy(w.RawVector().Data, params)

	velocity := mat.NewVecDense(len(params), nil)
	var pred, resid, grad mat.VecDense

	for step := 0; step < steps; step++ {
		pred.MulVec(x, w)
		resid.SubVec(y, &pred)

		// grad = -(2/n) Xᵀ (y - Xw)
		grad.MulVec(x.T(), &resid)
		grad.ScaleVec(-2/n, &grad)

		velocity.AddScaledVec(&grad, p.Momentum, velocity)
		w.AddScaledVec(w, -learningRate, velocity)
	}

	pred.MulVec(x, w)
	resid.SubVec(y, &pred)
	loss := mat.Dot(&resid, &resid) / n

	delta := make([]float64, len(params))
	for i := range delta {
		delta[i] = w.AtVec(i) - params[i]
	}

	return delta, loss, nil
}

// designMatrix builds the n×dim design matrix with a leading intercept
// column and the response vector.
func designMatrix(ds *dataset.Dataset, schema dataset.Schema) (*mat.Dense, *mat.VecDense, error) {
	if err := schema.Validate(ds); err != nil {
		return nil, nil, err
	}

	n := ds.NumSamples()
	x := mat.NewDense(n, schema.Dim(), nil)
	y := mat.NewVecDense(n, nil)

	responseCol := ds.Column(schema.Response)
	featureCols := make([]int, len(schema.Features))
	for j, feature := range schema.Features {
		featureCols[j] = ds.Column(feature)
	}

	for i, row := range ds.Rows {
		x.Set(i, 0, 1)
		for j, col := range featureCols {
			x.Set(i, j+1, row[col])
		}
		y.SetVec(i, row[responseCol])
	}

	return x, y, nil
}
