package coordinator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/schalkdaniel/distributed-lm/internal/common"
	"github.com/schalkdaniel/distributed-lm/internal/dataset"
	"github.com/schalkdaniel/distributed-lm/internal/events"
	"github.com/schalkdaniel/distributed-lm/internal/model"
	"github.com/schalkdaniel/distributed-lm/internal/processor"
	"github.com/schalkdaniel/distributed-lm/internal/store"
)

// Run is a handle to one coordinated training run rooted at a directory.
//
// The persisted registry/model/snapshot records are the only shared mutable
// resource of the system. Exactly one Run may drive a directory at a time; a
// lock file enforces the single-writer discipline, and concurrent coordinators
// against the same directory are rejected at Initialize/Open rather than left
// to race on multi-record writes.
type Run struct {
	dir    string
	store  store.Store
	proc   processor.Processor
	logger hclog.Logger
	bus    *events.EventBus
	schema *dataset.Schema
}

// Initialize creates a fresh run: a registry at iteration 0 and a model with
// no parameters. It fails with a ConfigurationError when the directory already
// holds a run and overwrite was not requested; with overwrite, every previously
// persisted record is discarded first.
func Initialize(dir string, cfg Config, overwrite bool, logger hclog.Logger, bus *events.EventBus) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	proc, err := processor.New(cfg.ModelTag, cfg.OptimizerTag)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	if _, _, err := dataset.ParseFormula(cfg.Formula); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	fs, err := store.NewFileStore(dir)
	if err != nil {
		return nil, err
	}

	registry := &model.Registry{}
	err = fs.Get(common.REGISTRY_RECORD_NAME, registry)
	if err == nil {
		if !overwrite {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("run already initialized in %q and overwrite not requested", dir)}
		}
		// A crashed coordinator may have left its lock behind; overwriting
		// discards it along with the records.
		releaseLock(dir)
		if err := discardRun(fs, dir); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := acquireLock(dir); err != nil {
		return nil, err
	}

	registry = &model.Registry{
		Shards:          cfg.Shards,
		ModelTag:        cfg.ModelTag,
		OptimizerTag:    cfg.OptimizerTag,
		Formula:         cfg.Formula,
		EpochBudget:     cfg.EpochBudget,
		LearningRate:    cfg.LearningRate,
		Epsilon:         cfg.Epsilon,
		RetainSnapshots: cfg.RetainSnapshots,
		Seed:            cfg.Seed,
		Iteration:       0,
	}

	globalModel := &model.GlobalModel{AverageLoss: 0, Done: false}

	err = fs.Commit(store.Batch{Put: map[string]interface{}{
		common.REGISTRY_RECORD_NAME: registry,
		common.MODEL_RECORD_NAME:    globalModel,
	}})
	if err != nil {
		releaseLock(dir)
		return nil, err
	}

	logger.Info("initialized run", "dir", dir, "shards", len(cfg.Shards), "model", cfg.ModelTag,
		"optimizer", cfg.OptimizerTag, "epochBudget", cfg.EpochBudget)

	return &Run{dir: dir, store: fs, proc: proc, logger: logger, bus: bus}, nil
}

// Open attaches to an already-initialized run. Unknown model or optimizer
// tags in the persisted registry are rejected here, before any advancement.
func Open(dir string, logger hclog.Logger, bus *events.EventBus) (*Run, error) {
	fs, err := store.NewFileStore(dir)
	if err != nil {
		return nil, err
	}

	registry := &model.Registry{}
	if err := fs.Get(common.REGISTRY_RECORD_NAME, registry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("no run initialized in %q", dir)}
		}
		return nil, err
	}

	proc, err := processor.New(registry.ModelTag, registry.OptimizerTag)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	globalModel := &model.GlobalModel{}
	if err := fs.Get(common.MODEL_RECORD_NAME, globalModel); err != nil {
		return nil, err
	}

	if err := acquireLock(dir); err != nil {
		return nil, err
	}

	run := &Run{dir: dir, store: fs, proc: proc, logger: logger, bus: bus}
	if len(globalModel.Features) > 0 {
		run.schema = &dataset.Schema{Response: globalModel.Response, Features: globalModel.Features}
	}

	return run, nil
}

// Close releases the run's lock. The persisted state stays untouched and can
// be reopened later.
func (r *Run) Close() error {
	return releaseLock(r.dir)
}

// Dir returns the directory holding the run's persisted state.
func (r *Run) Dir() string { return r.dir }

// Shards returns the run's configured shard identifiers.
func (r *Run) Shards() ([]string, error) {
	registry := &model.Registry{}
	if err := r.store.Get(common.REGISTRY_RECORD_NAME, registry); err != nil {
		return nil, err
	}
	return registry.Shards, nil
}

// Status reports the current iteration counter, average loss and terminal flag.
func (r *Run) Status() (model.RunStatus, error) {
	registry := &model.Registry{}
	if err := r.store.Get(common.REGISTRY_RECORD_NAME, registry); err != nil {
		return model.RunStatus{}, err
	}

	globalModel := &model.GlobalModel{}
	if err := r.store.Get(common.MODEL_RECORD_NAME, globalModel); err != nil {
		return model.RunStatus{}, err
	}

	return model.RunStatus{
		Iteration:   registry.Iteration,
		AverageLoss: globalModel.AverageLoss,
		Done:        globalModel.Done,
	}, nil
}

func discardRun(fs store.Store, dir string) error {
	names, err := fs.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := fs.Delete(name); err != nil {
			return err
		}
	}
	os.Remove(filepath.Join(dir, common.HISTORY_FILE_NAME))
	return nil
}

func (r *Run) publish(event events.Event) {
	if r.bus != nil {
		r.bus.Publish(event)
	}
}
