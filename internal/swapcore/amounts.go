package swapcore

import (
	"github.com/shopspring/decimal"
)

// reconstruct implements the Amount Reconstructor (§4.6): swap-level and
// wallet-level amounts, fee attribution, and the multi-hop collapse
// listing already computed by buildCollapsedDeltas.
func reconstruct(
	tx RawTx,
	swapper string,
	role roleResult,
	cd *collapsedDeltas,
	deltas *OwnerDeltas,
	cfg *CoreConfig,
) (Amounts, *EraseResult) {
	if tx.MissingDecimalsMints[role.Base.Mint] || tx.MissingDecimalsMints[role.Quote.Mint] {
		return Amounts{}, erase(ReasonMissingDecimals, map[string]any{
			"base_mint":  role.Base.Mint,
			"quote_mint": role.Quote.Mint,
		})
	}

	baseDelta := directionDelta(cd.byMint, role.Base.Mint)
	quoteDelta := directionDelta(cd.byMint, role.Quote.Mint)
	baseAmount := baseDelta.Abs()
	quoteWalletAmount := quoteDelta.Abs()

	fees := feeBreakdown(tx, role.Quote.Mint, cfg, deltas)

	amounts := Amounts{
		BaseAmount: baseAmount,
		Fees:       fees,
	}

	switch role.Direction {
	case DirectionBuy:
		swapInput := swapLevelAmount(tx, swapper, role.Quote, cfg, deltas, true)
		if swapInput.IsZero() {
			swapInput = quoteWalletAmount
		}
		amounts.SwapInputAmount = swapInput
		amounts.HasSwapInput = true
		amounts.TotalWalletCost = quoteWalletAmount
		amounts.HasWalletCost = true

		residual := amounts.TotalWalletCost.Sub(swapInput)
		if residual.IsNegative() {
			residual = decimal.Zero
		}
		amounts.Fees.PlatformFee = residual
		amounts.Fees.TotalFeeQuote = amounts.Fees.TxFeeQuote.Add(residual)

	case DirectionSell:
		amounts.SwapInputAmount = baseAmount
		amounts.HasSwapInput = true

		swapOutput := swapLevelAmount(tx, swapper, role.Quote, cfg, deltas, false)
		if swapOutput.IsZero() {
			swapOutput = quoteWalletAmount
		}
		amounts.SwapOutputAmount = swapOutput
		amounts.HasSwapOutput = true
		amounts.NetWalletReceived = quoteWalletAmount
		amounts.HasWalletReceived = true

		residual := swapOutput.Sub(amounts.NetWalletReceived)
		if residual.IsNegative() {
			residual = decimal.Zero
		}
		amounts.Fees.PlatformFee = residual
		amounts.Fees.TotalFeeQuote = amounts.Fees.TxFeeQuote.Add(residual)

	default:
		return Amounts{}, erase(ReasonAmbiguousDirection, map[string]any{"signature": tx.Signature})
	}

	// Never fabricate SOL amounts: if neither asset is in the native
	// wrap group, nothing native-unit-denominated may leak into a
	// quote-amount field. tx_fee_quote is already zeroed by
	// feeBreakdown in that case, so TotalFeeQuote inherits correctly.
	return amounts, nil
}

// swapLevelAmount reads the swap-level magnitude at the venue boundary
// for `mint` (quote side), preferring an explicit Swap action's
// tokens_swapped leg, then falling back to the venue's own balance
// movement. wantIn selects tokens_swapped.in vs .out.
func swapLevelAmount(tx RawTx, swapper string, asset Asset, cfg *CoreConfig, deltas *OwnerDeltas, wantIn bool) decimal.Decimal {
	key := cfg.WrapGroupKey(asset.Mint)

	var first, last *SwapTokens
	for i := range tx.Actions {
		a := tx.Actions[i]
		if a.Type != ActionSwap || a.TokensInOut == nil {
			continue
		}
		if first == nil {
			first = a.TokensInOut
		}
		last = a.TokensInOut
	}

	if wantIn && first != nil && cfg.WrapGroupKey(first.In.Mint) == key {
		return first.In.Normalized()
	}
	if !wantIn && last != nil && cfg.WrapGroupKey(last.Out.Mint) == key {
		return last.Out.Normalized()
	}

	return venueFlowMagnitude(tx, swapper, asset.Mint, asset.Decimals)
}

// feeBreakdown computes the tx-fee portion of §4.6's FeeBreakdown.
// PlatformFee/PriorityFee/TotalFeeQuote are finished by the caller once
// the swap-boundary-vs-wallet-boundary residual is known.
func feeBreakdown(tx RawTx, quoteMint string, cfg *CoreConfig, deltas *OwnerDeltas) FeeBreakdown {
	fb := FeeBreakdown{TxFeeNative: tx.Fee}

	if !cfg.IsNativeWrap(quoteMint) {
		return fb
	}

	nativeDecimals := nativeDecimals(cfg, deltas)
	fb.TxFeeQuote = normalize(tx.Fee, nativeDecimals)
	return fb
}

// nativeDecimals resolves the decimals to use when converting the
// native-unit tx fee into the quote asset's units, falling back to the
// chain's documented native decimals (9 for Solana/lamports) when no
// balance change taught us otherwise.
func nativeDecimals(cfg *CoreConfig, deltas *OwnerDeltas) int32 {
	for mint := range cfg.NativeWrapGroup {
		if d, ok := deltas.mintDecimals(mint); ok && d != 0 {
			return d
		}
	}
	if d, ok := cfg.DecimalsFor(firstNativeMint(cfg)); ok {
		return d
	}
	return 9
}

func firstNativeMint(cfg *CoreConfig) string {
	for mint := range cfg.NativeWrapGroup {
		return mint
	}
	return ""
}
