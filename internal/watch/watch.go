package watch

import (
	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"

	"github.com/schalkdaniel/distributed-lm/internal/common"
	"github.com/schalkdaniel/distributed-lm/internal/dataset"
	"github.com/schalkdaniel/distributed-lm/internal/events"
)

// ShardWatcher periodically probes shard reachability and publishes a
// ShardStateChangeEvent whenever shards appear or disappear. It only
// observes; advancement stays externally triggered.
type ShardWatcher struct {
	shards        []string
	eventBus      *events.EventBus
	logger        hclog.Logger
	cronScheduler *cron.Cron
	reachable     map[string]bool
}

// NewShardWatcher creates a watcher over the given shard identifiers.
func NewShardWatcher(shards []string, eventBus *events.EventBus, logger hclog.Logger) *ShardWatcher {
	return &ShardWatcher{
		shards:        shards,
		eventBus:      eventBus,
		logger:        logger,
		cronScheduler: cron.New(cron.WithSeconds()),
		reachable:     map[string]bool{},
	}
}

// Start begins probing once per second.
func (w *ShardWatcher) Start() {
	w.reachable = w.probeAll()
	w.cronScheduler.AddFunc("@every 1s", w.notifyShardStateChanges)
	w.cronScheduler.Start()
}

// Stop halts the probe schedule.
func (w *ShardWatcher) Stop() {
	w.cronScheduler.Stop()
}

func (w *ShardWatcher) notifyShardStateChanges() {
	reachableNew := w.probeAll()

	event := common.GetShardStateChangeEvent(w.reachable, reachableNew)
	if event.Type != "" {
		change := event.Data.(events.ShardStateChangeEvent)
		w.logger.Info("shard reachability changed", "becameReachable", change.BecameReachable,
			"becameUnreachable", change.BecameUnreachable)
		w.eventBus.Publish(event)
	}

	w.reachable = reachableNew
}

func (w *ShardWatcher) probeAll() map[string]bool {
	reachable := map[string]bool{}
	for _, shard := range w.shards {
		reachable[shard] = dataset.Reachable(shard)
	}
	return reachable
}
