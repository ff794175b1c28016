package swapcore

import "github.com/shopspring/decimal"

// roleResult is the outcome of the Role Assigner (§4.5). SplitCandidate
// is true when neither asset is core, deferring role assignment to the
// Split-Swap Synthesizer.
type roleResult struct {
	Base, Quote   Asset
	Direction     Direction
	SplitCandidate bool
}

// assignRoles implements §4.5's base/quote and direction rules over the
// two collapsed mints and their swapper deltas.
func assignRoles(negMint, posMint string, deltas *OwnerDeltas, cfg *CoreConfig) (roleResult, *EraseResult) {
	negIsCore := cfg.IsCoreToken(negMint)
	posIsCore := cfg.IsCoreToken(posMint)

	assetFor := func(mint string, d *OwnerDeltas) Asset {
		decimals, _ := d.mintDecimals(mint)
		return Asset{Mint: mint, Decimals: decimals, Symbol: d.mintSymbol(mint)}
	}

	switch {
	case negIsCore && posIsCore:
		quote, base := negMint, posMint
		if corePriorityHigher(cfg, posMint, negMint) {
			quote, base = posMint, negMint
		}
		return roleFromAssignment(base, quote, negMint, posMint, deltas, assetFor)

	case negIsCore != posIsCore:
		var base, quote string
		if negIsCore {
			quote, base = negMint, posMint
		} else {
			quote, base = posMint, negMint
		}
		return roleFromAssignment(base, quote, negMint, posMint, deltas, assetFor)

	default:
		// Neither is core: split-swap candidate, role assignment
		// deferred to §4.7.
		return roleResult{SplitCandidate: true}, nil
	}
}

func roleFromAssignment(
	baseMint, quoteMint, negMint, posMint string,
	deltas *OwnerDeltas,
	assetFor func(string, *OwnerDeltas) Asset,
) (roleResult, *EraseResult) {
	var direction Direction
	switch baseMint {
	case negMint:
		direction = DirectionSell
	case posMint:
		direction = DirectionBuy
	}
	if direction == DirectionUnknown {
		return roleResult{}, erase(ReasonAmbiguousDirection, map[string]any{
			"base_mint": baseMint, "quote_mint": quoteMint,
		})
	}

	return roleResult{
		Base:      assetFor(baseMint, deltas),
		Quote:     assetFor(quoteMint, deltas),
		Direction: direction,
	}, nil
}

// directionDelta returns the swapper's signed wrap-group delta for
// mint, defaulting to zero if absent.
func directionDelta(byMint map[string]decimal.Decimal, mint string) decimal.Decimal {
	if v, ok := byMint[mint]; ok {
		return v
	}
	return decimal.Zero
}
