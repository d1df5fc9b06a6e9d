package matching

// Telemetry event names emitted by the matching engine
const (
	EventOracleScored    = "match.oracle_scored"
	EventOracleFallback  = "match.oracle_fallback"
	EventExplainFallback = "match.explain_fallback"
	EventPairFailed      = "match.pair_failed"
	EventBatchProgress   = "match.batch_progress"
	EventBatchCompleted  = "match.batch_completed"
	EventRecommend       = "match.recommend"
	EventWeights         = "match.weights"
)
