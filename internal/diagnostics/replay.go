package diagnostics

import "github.com/whaletrack/swap-classifier/internal/swapcore"

// Outcome discriminates a replayed transaction's terminal pipeline
// state, matching the exit-code contract of §6's diagnostic command
// (0 = emitted, 2 = erased, 1 = internal error — the internal-error
// case is handled by the HTTP layer before Replay is ever called).
type Outcome string

const (
	OutcomeEmitted Outcome = "emitted"
	OutcomeErased  Outcome = "erased"
)

// Result is the full diagnostic view of one replayed transaction.
type Result struct {
	Outcome Outcome
	Records []swapcore.StorageRecord
	Erase   *swapcore.EraseResult
}

// Replay runs one upstream transaction through parser and reports
// which terminal state it reached and why.
func Replay(parser *swapcore.Parser, u swapcore.UpstreamTx) Result {
	res := parser.Parse(u)
	if !res.Ok() {
		return Result{Outcome: OutcomeErased, Erase: res.Erase}
	}
	return Result{Outcome: OutcomeEmitted, Records: parser.StorageRecords(res)}
}
