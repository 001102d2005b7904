package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schalkdaniel/distributed-lm/internal/common"
	"github.com/schalkdaniel/distributed-lm/internal/dataset"
)

var testSchema = dataset.Schema{Response: "y", Features: []string{"x"}}

func singleSample(x, y float64) *dataset.Dataset {
	return &dataset.Dataset{Columns: []string{"y", "x"}, Rows: [][]float64{{y, x}}}
}

func TestNew(t *testing.T) {
	t.Run("resolves known tags", func(t *testing.T) {
		proc, err := New(common.MODEL_TAG_LINEAR, common.OPTIMIZER_TAG_SGD)
		require.NoError(t, err)
		assert.NotNil(t, proc)

		proc, err = New(common.MODEL_TAG_LINEAR, common.OPTIMIZER_TAG_MOMENTUM)
		require.NoError(t, err)
		assert.NotNil(t, proc)
	})

	t.Run("rejects unknown model tag", func(t *testing.T) {
		_, err := New("quadratic", common.OPTIMIZER_TAG_SGD)
		assert.Error(t, err)
	})

	t.Run("rejects unknown optimizer tag", func(t *testing.T) {
		_, err := New(common.MODEL_TAG_LINEAR, "adam")
		assert.Error(t, err)
	})
}

func TestLinearGradientDescentSingleStep(t *testing.T) {
	// One sample (x=2, y=3), w=(0.5, 0.5), lr=0.1, one step:
	// residual r = 3 - (0.5 + 0.5*2) = 1.5
	// grad = -2 * r * (1, 2) = (-3, -6)
	// w' = w - 0.1*grad = (0.8, 1.1), so delta = (0.3, 0.6)
	// prediction at w' is 0.8 + 1.1*2 = 3.0, so the final loss is 0.
	proc := &LinearGradientDescent{}

	delta, loss, err := proc.Process([]float64{0.5, 0.5}, singleSample(2, 3), testSchema, 0.1, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.3, delta[0], 1e-12)
	assert.InDelta(t, 0.6, delta[1], 1e-12)
	assert.InDelta(t, 0.0, loss, 1e-12)
}

func TestLinearGradientDescentIsPure(t *testing.T) {
	proc := &LinearGradientDescent{}
	ds := &dataset.Dataset{Columns: []string{"y", "x"}, Rows: [][]float64{{3, 2}, {5, 4}, {1, 0}}}
	params := []float64{0.1, 0.2}

	delta1, loss1, err := proc.Process(params, ds, testSchema, 0.05, 7)
	require.NoError(t, err)
	delta2, loss2, err := proc.Process(params, ds, testSchema, 0.05, 7)
	require.NoError(t, err)

	assert.Equal(t, delta1, delta2)
	assert.Equal(t, loss1, loss2)
	// The input slice must stay untouched.
	assert.Equal(t, []float64{0.1, 0.2}, params)
}

func TestLinearGradientDescentReducesLoss(t *testing.T) {
	proc := &LinearGradientDescent{}
	ds := &dataset.Dataset{Columns: []string{"y", "x"}, Rows: [][]float64{{2, 1}, {4, 2}, {6, 3}}}

	_, lossFew, err := proc.Process([]float64{0, 0}, ds, testSchema, 0.01, 1)
	require.NoError(t, err)
	_, lossMany, err := proc.Process([]float64{0, 0}, ds, testSchema, 0.01, 50)
	require.NoError(t, err)

	assert.Less(t, lossMany, lossFew)
}

func TestMomentumDiffersFromPlainDescent(t *testing.T) {
	ds := &dataset.Dataset{Columns: []string{"y", "x"}, Rows: [][]float64{{3, 2}, {5, 4}}}
	params := []float64{0, 0}

	plain := &LinearGradientDescent{}
	momentum := &LinearGradientDescent{Momentum: common.DEFAULT_MOMENTUM}

	deltaPlain, _, err := plain.Process(params, ds, testSchema, 0.01, 3)
	require.NoError(t, err)
	deltaMomentum, _, err := momentum.Process(params, ds, testSchema, 0.01, 3)
	require.NoError(t, err)

	assert.NotEqual(t, deltaPlain, deltaMomentum)

	// With a single step there is no accumulated velocity yet, so both match.
	deltaPlain, _, err = plain.Process(params, ds, testSchema, 0.01, 1)
	require.NoError(t, err)
	deltaMomentum, _, err = momentum.Process(params, ds, testSchema, 0.01, 1)
	require.NoError(t, err)
	assert.Equal(t, deltaPlain, deltaMomentum)
}

func TestDimensionMismatch(t *testing.T) {
	proc := &LinearGradientDescent{}

	_, _, err := proc.Process([]float64{0.5}, singleSample(2, 3), testSchema, 0.1, 1)
	assert.Error(t, err)
}
