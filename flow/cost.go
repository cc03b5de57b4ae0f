package flow

// usageAccumulator tracks the `usage: {tokens_in, tokens_out, cost_usd}`
// convention a node may write into its own namespace (SPEC_FULL.md §1),
// summed across every node visit in a run. It is informational only —
// the engine never acts on the totals, it just surfaces them alongside
// the RunResult for callers that want cost reporting without every node
// implementation reinventing it.
type usageAccumulator struct {
	tokensIn  int64
	tokensOut int64
	costUSD   float64
}

// accumulate reads a node's own-namespace "usage" key, if present, and
// folds its fields into the running totals. Unrecognized or missing
// fields are treated as zero rather than an error: usage reporting is
// best-effort.
func (u *usageAccumulator) accumulate(usage map[string]interface{}) {
	if usage == nil {
		return
	}
	u.tokensIn += asInt64(usage["tokens_in"])
	u.tokensOut += asInt64(usage["tokens_out"])
	u.costUSD += asFloat64(usage["cost_usd"])
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}

// Usage is the snapshot of accumulated token/cost totals carried on every
// RunResult as RunResult.Usage.
type Usage struct {
	TokensIn  int64
	TokensOut int64
	CostUSD   float64
}

func (u *usageAccumulator) snapshot() Usage {
	return Usage{TokensIn: u.tokensIn, TokensOut: u.tokensOut, CostUSD: u.costUSD}
}
