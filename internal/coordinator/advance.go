package coordinator

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/schalkdaniel/distributed-lm/internal/common"
	"github.com/schalkdaniel/distributed-lm/internal/dataset"
	"github.com/schalkdaniel/distributed-lm/internal/events"
	"github.com/schalkdaniel/distributed-lm/internal/model"
	"github.com/schalkdaniel/distributed-lm/internal/store"
)

// Advance drives one externally-triggered coordination step.
//
// A call either performs the aggregation barrier (when it finds the current
// round's snapshot complete) or records results for every reachable shard not
// yet in the snapshot, persisting each entry durably before the next shard is
// attempted. Unreachable shards are silently deferred to a later call. Once
// the run is converged, Advance returns immediately without any mutation.
func (r *Run) Advance(steps int, verbose bool) (model.RoundOutcome, error) {
	if steps < 1 {
		return model.RoundOutcome{}, &ConfigurationError{Reason: fmt.Sprintf("steps per round must be at least 1, got %d", steps)}
	}

	registry := &model.Registry{}
	if err := r.store.Get(common.REGISTRY_RECORD_NAME, registry); err != nil {
		return model.RoundOutcome{}, err
	}

	globalModel := &model.GlobalModel{}
	if err := r.store.Get(common.MODEL_RECORD_NAME, globalModel); err != nil {
		return model.RoundOutcome{}, err
	}

	if globalModel.Done {
		if verbose {
			r.logger.Info("run already converged", "iteration", registry.Iteration, "averageLoss", globalModel.AverageLoss)
		}
		return model.RoundOutcome{
			Converged:   true,
			Iteration:   registry.Iteration,
			AverageLoss: globalModel.AverageLoss,
		}, nil
	}

	snapshotName := common.SnapshotRecordName(registry.Iteration)
	snapshot := &model.RoundSnapshot{}
	err := r.store.Get(snapshotName, snapshot)
	if errors.Is(err, store.ErrNotFound) {
		snapshot = &model.RoundSnapshot{
			Iteration: registry.Iteration,
			Steps:     steps,
			Entries:   map[string]model.ShardResult{},
		}
		if err := r.store.Put(snapshotName, snapshot); err != nil {
			return model.RoundOutcome{}, err
		}
		if verbose {
			r.logger.Info("started round", "iteration", registry.Iteration, "steps", steps)
		}
	} else if err != nil {
		return model.RoundOutcome{}, err
	}

	if snapshot.Complete(registry.Shards) {
		return r.aggregate(registry, globalModel, snapshot, snapshotName, verbose)
	}

	return r.buildRound(registry, globalModel, snapshot, snapshotName, verbose)
}

// buildRound records a result for every reachable shard that is not yet in
// the round's snapshot. The local step count is the one fixed at round start,
// so a resumed round stays consistent with its already-recorded entries.
func (r *Run) buildRound(registry *model.Registry, globalModel *model.GlobalModel,
	snapshot *model.RoundSnapshot, snapshotName string, verbose bool) (model.RoundOutcome, error) {
	progressed := false

	for _, shard := range registry.Shards {
		if _, recorded := snapshot.Entries[shard]; recorded {
			continue
		}

		if !dataset.Reachable(shard) {
			if verbose {
				r.logger.Info("shard unreachable, deferring to a later call", "shard", shard)
			}
			continue
		}

		ds, err := dataset.Load(shard)
		if err != nil {
			return model.RoundOutcome{Progressed: progressed, Iteration: registry.Iteration}, err
		}

		if r.schema == nil {
			if err := r.fixSchema(registry, globalModel, ds, shard); err != nil {
				return model.RoundOutcome{Progressed: progressed, Iteration: registry.Iteration}, err
			}
		} else if err := r.schema.Validate(ds); err != nil {
			return model.RoundOutcome{Progressed: progressed, Iteration: registry.Iteration},
				&dataset.DataError{Shard: shard, Err: err}
		}

		delta, loss, err := r.proc.Process(globalModel.Parameters, ds, *r.schema, registry.LearningRate, snapshot.Steps)
		if err != nil {
			return model.RoundOutcome{Progressed: progressed, Iteration: registry.Iteration},
				&dataset.DataError{Shard: shard, Err: err}
		}

		snapshot.Entries[shard] = model.ShardResult{Delta: delta, Loss: loss}
		if err := r.store.Put(snapshotName, snapshot); err != nil {
			return model.RoundOutcome{Progressed: progressed, Iteration: registry.Iteration}, err
		}
		progressed = true

		if verbose {
			r.logger.Info("recorded shard result", "shard", shard, "loss", loss,
				"recorded", len(snapshot.Entries), "shards", len(registry.Shards))
		}
	}

	return model.RoundOutcome{
		Progressed:  progressed,
		Iteration:   registry.Iteration,
		AverageLoss: globalModel.AverageLoss,
	}, nil
}

// fixSchema resolves the feature/response structure from the first shard ever
// touched, fixes the parameter dimension and draws the one-time pseudo-random
// initial parameters. The model is persisted immediately so resumed work sees
// the same initial point.
func (r *Run) fixSchema(registry *model.Registry, globalModel *model.GlobalModel, ds *dataset.Dataset, shard string) error {
	schema, err := dataset.Resolve(registry.Formula, ds)
	if err != nil {
		return &dataset.DataError{Shard: shard, Err: err}
	}

	if globalModel.Parameters == nil {
		globalModel.Parameters = initParameters(schema.Dim(), registry.Seed)
		globalModel.Response = schema.Response
		globalModel.Features = schema.Features
		if err := r.store.Put(common.MODEL_RECORD_NAME, globalModel); err != nil {
			return err
		}
		r.logger.Info("fixed parameter dimension", "dim", schema.Dim(), "response", schema.Response,
			"features", len(schema.Features))
	}

	r.schema = &schema
	return nil
}

// aggregate performs the round's barrier step: the elementwise mean of all
// shard deltas is applied to the parameters, the stopping policy is evaluated
// and the model and registry are committed as one atomic batch, together with
// the snapshot deletion when snapshots are not retained.
func (r *Run) aggregate(registry *model.Registry, globalModel *model.GlobalModel,
	snapshot *model.RoundSnapshot, snapshotName string, verbose bool) (model.RoundOutcome, error) {
	meanDelta := make([]float64, len(globalModel.Parameters))
	lossSum := 0.0
	for _, result := range snapshot.Entries {
		floats.Add(meanDelta, result.Delta)
		lossSum += result.Loss
	}
	numShards := float64(len(snapshot.Entries))
	floats.Scale(1/numShards, meanDelta)
	newLoss := lossSum / numShards
	oldLoss := globalModel.AverageLoss

	floats.Add(globalModel.Parameters, meanDelta)

	stopped := false
	reason := ""
	// The first completed round never triggers a stop: there is no prior
	// loss to compare against.
	if registry.Iteration > 0 {
		if registry.Iteration+snapshot.Steps >= registry.EpochBudget {
			stopped, reason = true, common.STOP_REASON_BUDGET
		} else if oldLoss != 0 && (oldLoss-newLoss)/oldLoss <= registry.Epsilon {
			stopped, reason = true, common.STOP_REASON_EPSILON
		}
	}

	registry.Iteration += snapshot.Steps
	globalModel.AverageLoss = newLoss
	if stopped {
		globalModel.Done = true
	}

	batch := store.Batch{Put: map[string]interface{}{
		common.REGISTRY_RECORD_NAME: registry,
		common.MODEL_RECORD_NAME:    globalModel,
	}}
	if !registry.RetainSnapshots {
		batch.Delete = []string{snapshotName}
	}
	if err := r.store.Commit(batch); err != nil {
		return model.RoundOutcome{}, err
	}

	r.appendHistory(registry.Iteration, newLoss, stopped)

	r.logger.Info("round aggregated", "iteration", registry.Iteration, "averageLoss", newLoss, "shards", len(snapshot.Entries))
	r.publish(events.Event{
		Type:      common.ROUND_COMPLETED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data:      events.RoundCompletedEvent{Iteration: registry.Iteration, AverageLoss: newLoss},
	})

	if stopped {
		r.logger.Info("run converged", "iteration", registry.Iteration, "averageLoss", newLoss, "reason", reason)
		r.publish(events.Event{
			Type:      common.CONVERGED_EVENT_TYPE,
			Timestamp: time.Now(),
			Data:      events.ConvergedEvent{Iteration: registry.Iteration, AverageLoss: newLoss, Reason: reason},
		})
	}

	return model.RoundOutcome{
		Progressed:     true,
		CompletedRound: true,
		Converged:      stopped,
		Iteration:      registry.Iteration,
		AverageLoss:    newLoss,
	}, nil
}

// initParameters draws the one-time initial parameter vector. The draw is a
// deterministic function of the configured seed so a resumed or replayed run
// starts from the same point.
func initParameters(dim int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	params := make([]float64, dim)
	for i := range params {
		params[i] = rng.NormFloat64() * 0.1
	}
	return params
}
