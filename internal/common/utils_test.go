package common

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schalkdaniel/distributed-lm/internal/events"
)

func TestSnapshotRecordName(t *testing.T) {
	assert.Equal(t, "iter0", SnapshotRecordName(0))
	assert.Equal(t, "iter12", SnapshotRecordName(12))
}

func TestGetShardStateChangeEvent(t *testing.T) {
	t.Run("no change yields the zero event", func(t *testing.T) {
		current := map[string]bool{"a": true, "b": false}
		event := GetShardStateChangeEvent(current, map[string]bool{"a": true, "b": false})
		assert.Empty(t, event.Type)
	})

	t.Run("reports shards appearing and disappearing", func(t *testing.T) {
		current := map[string]bool{"a": true, "b": false, "c": true}
		next := map[string]bool{"a": false, "b": true, "c": true}

		event := GetShardStateChangeEvent(current, next)
		assert.Equal(t, SHARD_STATE_CHANGE_EVENT_TYPE, event.Type)

		change := event.Data.(events.ShardStateChangeEvent)
		assert.Equal(t, []string{"b"}, change.BecameReachable)
		assert.Equal(t, []string{"a"}, change.BecameUnreachable)
	})
}

func TestCalculateAverageFloat64(t *testing.T) {
	assert.Equal(t, 0.0, CalculateAverageFloat64(nil))
	assert.Equal(t, 2.0, CalculateAverageFloat64([]float64{1, 2, 3}))
}
