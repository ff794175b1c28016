package swapcore

import "github.com/shopspring/decimal"

// splitConsistencyTolerance bounds the allowed drift between a split
// pair's shared intermediate leg (§4.7's "within tolerance" note).
var splitConsistencyTolerance = decimal.New(1, -9)

// Validate implements the Validator (§4.9): it is the last gate before
// a StorageRecord is emitted. It and ValidateSplitPair are the only
// places erase(validation_failed) originates from.
func Validate(rec StorageRecord) *EraseResult {
	if rec.ClassificationSource == "" {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": rec.Signature, "check": "classification_source_present",
		})
	}

	if rec.Amount.SellAmount.IsNegative() || rec.Amount.BuyAmount.IsNegative() {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": rec.Signature, "check": "no_negative_amounts",
		})
	}

	sellZero := rec.Amount.SellAmount.IsZero()
	buyZero := rec.Amount.BuyAmount.IsZero()
	if sellZero == buyZero {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": rec.Signature, "check": "exactly_one_amount_zero",
		})
	}

	// decimal.Decimal has no NaN/Inf representation; the check exists so
	// a future amount type swap can't silently skip it.
	if !rec.Amount.SellAmount.Equal(rec.Amount.SellAmount) || !rec.Amount.BuyAmount.Equal(rec.Amount.BuyAmount) {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": rec.Signature, "check": "no_nan_or_inf",
		})
	}

	if rec.SolAmount.SellSolAmount != nil && rec.SolAmount.SellSolAmount.IsNegative() {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": rec.Signature, "check": "no_negative_amounts", "field": "sell_sol_amount",
		})
	}
	if rec.SolAmount.BuySolAmount != nil && rec.SolAmount.BuySolAmount.IsNegative() {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": rec.Signature, "check": "no_negative_amounts", "field": "buy_sol_amount",
		})
	}

	switch rec.Type {
	case DirectionSell:
		if rec.SolAmount.BuySolAmount != nil {
			return erase(ReasonValidationFailed, map[string]any{
				"signature": rec.Signature, "check": "no_fabricated_sol", "field": "buy_sol_amount",
			})
		}
	case DirectionBuy:
		if rec.SolAmount.SellSolAmount != nil {
			return erase(ReasonValidationFailed, map[string]any{
				"signature": rec.Signature, "check": "no_fabricated_sol", "field": "sell_sol_amount",
			})
		}
	}

	return nil
}

// ValidateSplitPair checks §4.9's split_pair_consistency rule across
// the two halves of a synthesized split swap.
func ValidateSplitPair(sell, buy StorageRecord) *EraseResult {
	if sell.Signature != buy.Signature || sell.Swapper != buy.Swapper {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": sell.Signature, "check": "split_pair_consistency", "reason": "signature_or_swapper_mismatch",
		})
	}
	if sell.ClassificationSource != SourceSplitSell || buy.ClassificationSource != SourceSplitBuy {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": sell.Signature, "check": "split_pair_consistency", "reason": "classification_source_mismatch",
		})
	}
	if sell.TokenOut.Mint != buy.TokenIn.Mint {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": sell.Signature, "check": "split_pair_consistency", "reason": "intermediate_mint_mismatch",
		})
	}

	diff := sell.TokenOut.Amount.Sub(buy.TokenIn.Amount).Abs()
	if diff.GreaterThan(splitConsistencyTolerance) {
		return erase(ReasonValidationFailed, map[string]any{
			"signature": sell.Signature, "check": "split_pair_consistency", "reason": "intermediate_amount_mismatch",
			"sell_leg": sell.TokenOut.Amount.String(), "buy_leg": buy.TokenIn.Amount.String(),
		})
	}

	return nil
}
