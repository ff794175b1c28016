package swapcore

import (
	"sort"

	"github.com/shopspring/decimal"
)

// identifySwapper applies the four-rule ladder of §4.3, in order, and
// returns the first rule to produce a unique answer.
func identifySwapper(tx RawTx, deltas *OwnerDeltas, cfg *CoreConfig) (string, SwapperIDMethod, *EraseResult) {
	// Rule 1: action-hint.
	for _, a := range tx.Actions {
		if a.Type == ActionSwap && a.Swapper != "" {
			return a.Swapper, SwapperIDActionHint, nil
		}
	}

	// Rule 2: unique-signer.
	if len(tx.Signers) == 1 {
		return tx.Signers[0], SwapperIDUniqueSigner, nil
	}

	// Rule 3: max-delta among accounts with both a negative and a
	// positive non-zero wrap-group delta.
	type candidate struct {
		owner        string
		quoteMag     decimal.Decimal
		isFeePayer   bool
	}
	var candidates []candidate
	for owner, mints := range deltas.WrapGroup {
		hasNeg, hasPos := false, false
		maxQuoteMag := decimal.Zero
		for mint, v := range mints {
			if v.IsZero() {
				continue
			}
			if v.IsNegative() {
				hasNeg = true
			}
			if v.IsPositive() {
				hasPos = true
			}
			if cfg.IsCoreToken(mint) {
				mag := v.Abs()
				if mag.GreaterThan(maxQuoteMag) {
					maxQuoteMag = mag
				}
			}
		}
		if hasNeg && hasPos {
			candidates = append(candidates, candidate{
				owner:      owner,
				quoteMag:   maxQuoteMag,
				isFeePayer: owner == tx.FeePayer,
			})
		}
	}

	if len(candidates) == 0 {
		return "", SwapperIDUnknown, erase(ReasonNoSwapSignature, map[string]any{
			"signature": tx.Signature,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if !ci.quoteMag.Equal(cj.quoteMag) {
			return ci.quoteMag.GreaterThan(cj.quoteMag)
		}
		if ci.isFeePayer != cj.isFeePayer {
			return ci.isFeePayer
		}
		return ci.owner < cj.owner
	})

	if len(candidates) == 1 {
		return candidates[0].owner, SwapperIDMaxDelta, nil
	}
	// Multiple candidates: the sorted order already applies the
	// tie-break chain (quote magnitude, then fee-payer, then lexical
	// order), so the winner is deterministic.
	return candidates[0].owner, SwapperIDMaxDelta, nil
}
