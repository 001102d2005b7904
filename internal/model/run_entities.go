package model

// Registry is the per-run configuration record. It is created once at
// initialization and is immutable afterwards except for Iteration, which the
// coordinator advances at every completed round.
type Registry struct {
	Shards          []string `json:"shards"`
	ModelTag        string   `json:"modelTag"`
	OptimizerTag    string   `json:"optimizerTag"`
	Formula         string   `json:"formula"`
	EpochBudget     int      `json:"epochBudget"`
	LearningRate    float64  `json:"learningRate"`
	Epsilon         float64  `json:"epsilon"`
	RetainSnapshots bool     `json:"retainSnapshots"`
	Seed            int64    `json:"seed"`
	Iteration       int      `json:"iteration"`
}

// GlobalModel is the only globally shared mutable artifact of a run.
// Parameters stays nil until the first shard is touched; its dimension is
// fixed at that point and never changes. Done is terminal.
type GlobalModel struct {
	Parameters  []float64 `json:"parameters,omitempty"`
	Response    string    `json:"response,omitempty"`
	Features    []string  `json:"features,omitempty"`
	AverageLoss float64   `json:"averageLoss"`
	Done        bool      `json:"done"`
}

// ShardResult is one shard's contribution to a round: the cumulative
// parameter delta over its local steps and the loss at the final iterate.
type ShardResult struct {
	Delta []float64 `json:"delta"`
	Loss  float64   `json:"loss"`
}

// RoundSnapshot is the ephemeral per-round ledger. Entries are written
// durably as each shard is processed; the round is complete once every
// configured shard has an entry.
type RoundSnapshot struct {
	Iteration int                    `json:"iteration"`
	Steps     int                    `json:"steps"`
	Entries   map[string]ShardResult `json:"entries"`
}

// Complete reports whether every shard has a recorded entry.
func (s *RoundSnapshot) Complete(shards []string) bool {
	for _, shard := range shards {
		if _, ok := s.Entries[shard]; !ok {
			return false
		}
	}
	return true
}

// RoundOutcome describes the result of one advancement call.
type RoundOutcome struct {
	Progressed     bool    `json:"progressed"`
	CompletedRound bool    `json:"completedRound"`
	Converged      bool    `json:"converged"`
	Iteration      int     `json:"iteration"`
	AverageLoss    float64 `json:"averageLoss"`
}

// RunStatus is the condensed state of a run.
type RunStatus struct {
	Iteration   int     `json:"iteration"`
	AverageLoss float64 `json:"averageLoss"`
	Done        bool    `json:"done"`
}
