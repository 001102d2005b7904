package processor

import (
	"fmt"

	"github.com/schalkdaniel/distributed-lm/internal/common"
	"github.com/schalkdaniel/distributed-lm/internal/dataset"
)

// Processor performs a fixed number of local optimization steps on one
// shard's data, starting from the current global parameters, and returns the
// cumulative parameter delta together with the loss at the final iterate.
//
// Implementations must be pure functions of their inputs: resuming a crashed
// round has to reproduce identical results for shards already recorded.
type Processor interface {
	Process(params []float64, ds *dataset.Dataset, schema dataset.Schema, learningRate float64, steps int) (delta []float64, loss float64, err error)
}

var builders = map[string]map[string]func() Processor{
	common.MODEL_TAG_LINEAR: {
		common.OPTIMIZER_TAG_SGD: func() Processor {
			return &LinearGradientDescent{}
		},
		common.OPTIMIZER_TAG_MOMENTUM: func() Processor {
			return &LinearGradientDescent{Momentum: common.DEFAULT_MOMENTUM}
		},
	},
}

// New resolves a processor from its model and optimizer tags. Unknown tags
// are rejected here, at resolution time, never at first use.
func New(modelTag string, optimizerTag string) (Processor, error) {
	optimizers, ok := builders[modelTag]
	if !ok {
		return nil, fmt.Errorf("unknown model tag: %q", modelTag)
	}

	builder, ok := optimizers[optimizerTag]
	if !ok {
		return nil, fmt.Errorf("unknown optimizer tag %q for model %q", optimizerTag, modelTag)
	}

	return builder(), nil
}
