package swapcore

import (
	"github.com/shopspring/decimal"
)

// collapsedDeltas is the swapper's wrap-group delta set after §4.6's
// multi-hop collapse has removed zero-delta intermediates.
type collapsedDeltas struct {
	mints      []string
	byMint     map[string]decimal.Decimal
	collapsed  []Asset // intermediates absorbed, in chain order
}

// detect applies the gating predicate of §4.4 to the swapper's
// collapsed delta set. It returns the two surviving non-zero mints (one
// negative, one positive) or an EraseResult.
func detect(cd *collapsedDeltas, cfg *CoreConfig) (negMint, posMint string, erased *EraseResult) {
	if len(cd.mints) < 2 {
		return "", "", erase(ReasonNoSwapSignature, map[string]any{
			"mint_count": len(cd.mints),
			"mints":      cd.mints,
		})
	}

	if len(cd.mints) > 2 {
		return "", "", erase(ReasonInvalidAssetCount, map[string]any{
			"mint_count": len(cd.mints),
			"mints":      cd.mints,
		})
	}

	a, b := cd.mints[0], cd.mints[1]
	va, vb := cd.byMint[a], cd.byMint[b]

	switch {
	case va.IsNegative() && vb.IsPositive():
		negMint, posMint = a, b
	case va.IsPositive() && vb.IsNegative():
		negMint, posMint = b, a
	default:
		return "", "", erase(ReasonAmbiguousDirection, map[string]any{
			"mint_a": a, "delta_a": va.String(),
			"mint_b": b, "delta_b": vb.String(),
		})
	}

	if cfg.IsDenied(negMint) || cfg.IsDenied(posMint) {
		return "", "", erase(ReasonDeniedAsset, map[string]any{
			"mint_neg": negMint,
			"mint_pos": posMint,
		})
	}

	if cfg.MinValueThresholdQuote != nil {
		quoteMint := negMint
		if cfg.IsCoreToken(posMint) && (!cfg.IsCoreToken(negMint) || corePriorityHigher(cfg, posMint, negMint)) {
			quoteMint = posMint
		}
		mag := cd.byMint[quoteMint].Abs()
		if mag.LessThan(*cfg.MinValueThresholdQuote) {
			return "", "", erase(ReasonBelowMinimumValueThreshold, map[string]any{
				"quote_mint":  quoteMint,
				"magnitude":   mag.String(),
				"threshold":   cfg.MinValueThresholdQuote.String(),
			})
		}
	}

	return negMint, posMint, nil
}

// corePriorityHigher reports whether a outranks b in the core-token
// ladder (lower rank index wins). Both must be core tokens.
func corePriorityHigher(cfg *CoreConfig, a, b string) bool {
	ra, aok := cfg.CoreRank(a)
	rb, bok := cfg.CoreRank(b)
	if !aok {
		return false
	}
	if !bok {
		return true
	}
	return ra < rb
}
