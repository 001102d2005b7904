package coordinator

import (
	"fmt"
)

// ConfigurationError reports an invalid run configuration or a conflicting
// initialization. Nothing persisted is mutated when it is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Config describes a run to be initialized.
type Config struct {
	Shards          []string `json:"shards"`
	ModelTag        string   `json:"modelTag"`
	OptimizerTag    string   `json:"optimizerTag"`
	Formula         string   `json:"formula"`
	EpochBudget     int      `json:"epochBudget"`
	LearningRate    float64  `json:"learningRate"`
	Epsilon         float64  `json:"epsilon"`
	RetainSnapshots bool     `json:"retainSnapshots"`
	Seed            int64    `json:"seed"`
}

// Validate checks the structural constraints of a configuration. Tag and
// formula resolution happen separately, at initialization.
func (c *Config) Validate() error {
	if len(c.Shards) == 0 {
		return &ConfigurationError{Reason: "shard list is empty"}
	}
	seen := map[string]bool{}
	for _, shard := range c.Shards {
		if shard == "" {
			return &ConfigurationError{Reason: "shard identifier is empty"}
		}
		if seen[shard] {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate shard identifier: %q", shard)}
		}
		seen[shard] = true
	}
	if c.EpochBudget <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("epoch budget must be positive, got %d", c.EpochBudget)}
	}
	if c.LearningRate <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("learning rate must be positive, got %g", c.LearningRate)}
	}
	if c.Epsilon < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("epsilon must be non-negative, got %g", c.Epsilon)}
	}
	return nil
}
