package common

import (
	"fmt"
	"sort"
	"time"

	"github.com/schalkdaniel/distributed-lm/internal/events"
)

// SnapshotRecordName builds the record name for the round that started at the
// given iteration value, e.g. "iter12".
func SnapshotRecordName(iteration int) string {
	return fmt.Sprintf("%s%d", SNAPSHOT_RECORD_PREFIX, iteration)
}

// GetShardStateChangeEvent diffs two reachability maps and builds the
// corresponding event. The zero event is returned when nothing changed.
func GetShardStateChangeEvent(reachableCurrent map[string]bool, reachableNew map[string]bool) events.Event {
	becameReachable := []string{}
	for shard, reachable := range reachableNew {
		if reachable && !reachableCurrent[shard] {
			becameReachable = append(becameReachable, shard)
		}
	}

	becameUnreachable := []string{}
	for shard, reachable := range reachableCurrent {
		if reachable && !reachableNew[shard] {
			becameUnreachable = append(becameUnreachable, shard)
		}
	}

	sort.Strings(becameReachable)
	sort.Strings(becameUnreachable)

	var event events.Event
	if len(becameReachable) > 0 || len(becameUnreachable) > 0 {
		event = events.Event{
			Type:      SHARD_STATE_CHANGE_EVENT_TYPE,
			Timestamp: time.Now(),
			Data: events.ShardStateChangeEvent{
				BecameReachable:   becameReachable,
				BecameUnreachable: becameUnreachable,
			},
		}
	}

	return event
}

// CalculateAverageFloat64 returns the arithmetic mean, 0 for an empty slice.
func CalculateAverageFloat64(numbers []float64) float64 {
	if len(numbers) == 0 {
		return 0
	}

	var sum float64
	for _, number := range numbers {
		sum += number
	}

	return sum / float64(len(numbers))
}
