package common

// Persisted record names
const REGISTRY_RECORD_NAME = "registry"
const MODEL_RECORD_NAME = "model"
const SNAPSHOT_RECORD_PREFIX = "iter"

// Auxiliary files inside a run directory
const HISTORY_FILE_NAME = "history.csv"
const LOCK_FILE_NAME = ".lock"

// Model tags
const MODEL_TAG_LINEAR = "linear"

// Optimizer tags
const OPTIMIZER_TAG_SGD = "sgd"
const OPTIMIZER_TAG_MOMENTUM = "momentum"

const DEFAULT_MOMENTUM = 0.9

// Events
const ROUND_COMPLETED_EVENT_TYPE = "RoundCompleted"
const CONVERGED_EVENT_TYPE = "Converged"
const SHARD_STATE_CHANGE_EVENT_TYPE = "ShardStateChanged"

// Convergence reasons
const STOP_REASON_BUDGET = "epoch budget exhausted"
const STOP_REASON_EPSILON = "relative loss improvement below epsilon"
