package swapcore

import (
	"sort"

	"github.com/shopspring/decimal"
)

// buildCollapsedDeltas derives the swapper's post-collapse delta set
// (§4.6 "multi-hop collapse"). Because the Asset-Delta Collector already
// drops every zero-net (owner, mint) pair, any intermediate whose net
// swapper delta is truly zero never appears in deltas.WrapGroup to
// begin with — collapse therefore reduces to: (a) take the swapper's
// non-zero wrap-group deltas as the candidate swap mints, and (b) scan
// the actions for zero-swapper-delta mints that nonetheless moved
// through the route, purely to populate intermediate_assets_collapsed
// for transparency. A residual non-zero delta on a third mint is NOT
// collapsible and surfaces as more than two candidate mints.
func buildCollapsedDeltas(swapper string, tx RawTx, deltas *OwnerDeltas, cfg *CoreConfig) *collapsedDeltas {
	nz := deltas.NonZero(swapper)

	mints := make([]string, 0, len(nz))
	for m := range nz {
		mints = append(mints, m)
	}
	sort.Strings(mints)

	collapsed := zeroDeltaIntermediates(tx, nz, deltas)

	return &collapsedDeltas{
		mints:     mints,
		byMint:    nz,
		collapsed: collapsed,
	}
}

// zeroDeltaIntermediates walks the actions list (its original order is
// the only ordering the core relies on, per spec §5) and returns every
// mint that actions show moving through the route but that the swapper
// never net-held, in first-seen order.
func zeroDeltaIntermediates(tx RawTx, swapperNonZero map[string]decimal.Decimal, deltas *OwnerDeltas) []Asset {
	seen := map[string]bool{}
	var out []Asset

	consider := func(mint string) {
		if mint == "" || seen[mint] {
			return
		}
		if _, isSwapMint := swapperNonZero[mint]; isSwapMint {
			return
		}
		if !venueTouchedMint(tx, mint) {
			return
		}
		seen[mint] = true
		decimals, _ := deltas.mintDecimals(mint)
		out = append(out, Asset{Mint: mint, Decimals: decimals, Symbol: deltas.mintSymbol(mint)})
	}

	for _, a := range tx.Actions {
		switch a.Type {
		case ActionSwap:
			if a.TokensInOut != nil {
				consider(a.TokensInOut.In.Mint)
				consider(a.TokensInOut.Out.Mint)
			}
		case ActionTokenTransfer:
			consider(a.Mint)
		}
	}

	return out
}

// venueTouchedMint reports whether mint shows any non-zero balance
// movement anywhere in the transaction (i.e. it genuinely flowed
// through a venue, not merely named in passing by an action).
func venueTouchedMint(tx RawTx, mint string) bool {
	for _, bc := range tx.BalanceChanges {
		if bc.Mint == mint && !bc.ChangeRaw.IsZero() {
			return true
		}
	}
	return false
}

// venueFlowMagnitude sums the non-swapper-owner positive (inflow-side)
// balance movement of mint, normalized by its decimals. This is used
// both to estimate the swap-level amount at the venue boundary (§4.6)
// and to find a split-swap intermediate's venue flow V_X (§4.7).
func venueFlowMagnitude(tx RawTx, swapper, mint string, decimals int32) decimal.Decimal {
	total := decimal.Zero
	for _, bc := range tx.BalanceChanges {
		if bc.Mint != mint || bc.Owner == swapper {
			continue
		}
		if bc.ChangeRaw.IsPositive() {
			total = total.Add(normalize(bc.ChangeRaw, decimals))
		}
	}
	return total
}
