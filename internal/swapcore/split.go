package swapcore

import (
	"github.com/shopspring/decimal"
)

// synthesizeSplit implements the Split-Swap Synthesizer (§4.7). It is
// only invoked once the Role Assigner has determined neither of the
// swapper's two collapsed mints is a core token.
func synthesizeSplit(
	tx RawTx,
	swapper string,
	cd *collapsedDeltas,
	deltas *OwnerDeltas,
	cfg *CoreConfig,
	confidence Confidence,
) (*SplitSwapPair, *EraseResult) {
	lostMint, gainedMint := "", ""
	for mint, delta := range cd.byMint {
		if delta.IsNegative() {
			lostMint = mint
		}
		if delta.IsPositive() {
			gainedMint = mint
		}
	}

	if lostMint == "" || gainedMint == "" {
		return nil, erase(ReasonAmbiguousDirection, map[string]any{"signature": tx.Signature})
	}

	if tx.MissingDecimalsMints[lostMint] || tx.MissingDecimalsMints[gainedMint] {
		return nil, erase(ReasonMissingDecimals, map[string]any{"lost_mint": lostMint, "gained_mint": gainedMint})
	}

	core, vx, found := findCoreIntermediate(tx, swapper, cd, deltas, cfg)
	if !found {
		return nil, erase(ReasonUnresolvableSplit, map[string]any{
			"signature": tx.Signature, "lost_mint": lostMint, "gained_mint": gainedMint,
		})
	}

	baseLostDelta := cd.byMint[lostMint].Abs()
	baseGainedDelta := cd.byMint[gainedMint].Abs()

	lostDecimals, _ := deltas.mintDecimals(lostMint)
	gainedDecimals, _ := deltas.mintDecimals(gainedMint)
	quoteAsset := Asset{Mint: core.Mint, Decimals: core.Decimals, Symbol: core.Symbol}

	fees := feeBreakdown(tx, core.Mint, cfg, deltas)

	sellFeeResidual := decimal.Zero // no wallet-side observation exists for a net-zero intermediate
	sellFees := fees
	sellFees.PlatformFee = sellFeeResidual
	sellFees.TotalFeeQuote = sellFees.TxFeeQuote.Add(sellFeeResidual)

	sellRecord := ParsedSwap{
		Signature:       tx.Signature,
		Timestamp:       tx.Timestamp,
		Swapper:         swapper,
		Direction:       DirectionSell,
		BaseAsset:       Asset{Mint: lostMint, Decimals: lostDecimals, Symbol: deltas.mintSymbol(lostMint)},
		QuoteAsset:      quoteAsset,
		Protocol:        tx.Protocol,
		Confidence:      confidence,
		IntermediateAssetsCollapsed: []Asset{quoteAsset},
		Amounts: Amounts{
			BaseAmount:        baseLostDelta,
			SwapOutputAmount:  vx,
			HasSwapOutput:     true,
			NetWalletReceived: vx,
			HasWalletReceived: true,
			Fees:              sellFees,
		},
	}

	buyFeeResidual := decimal.Zero
	buyFees := fees
	buyFees.PlatformFee = buyFeeResidual
	buyFees.TotalFeeQuote = buyFees.TxFeeQuote.Add(buyFeeResidual)

	buyRecord := ParsedSwap{
		Signature:       tx.Signature,
		Timestamp:       tx.Timestamp,
		Swapper:         swapper,
		Direction:       DirectionBuy,
		BaseAsset:       Asset{Mint: gainedMint, Decimals: gainedDecimals, Symbol: deltas.mintSymbol(gainedMint)},
		QuoteAsset:      quoteAsset,
		Protocol:        tx.Protocol,
		Confidence:      confidence,
		IntermediateAssetsCollapsed: []Asset{quoteAsset},
		Amounts: Amounts{
			BaseAmount:      baseGainedDelta,
			SwapInputAmount: vx,
			HasSwapInput:    true,
			TotalWalletCost: vx,
			HasWalletCost:   true,
			Fees:            buyFees,
		},
	}

	return &SplitSwapPair{
		SellRecord:  sellRecord,
		BuyRecord:   buyRecord,
		SplitReason: SplitReasonNonCoreToNonCoreViaCore,
	}, nil
}

// findCoreIntermediate looks for a core-token mint X with zero net
// swapper delta but non-zero venue flow (§4.7's trigger condition).
func findCoreIntermediate(tx RawTx, swapper string, cd *collapsedDeltas, deltas *OwnerDeltas, cfg *CoreConfig) (Asset, decimal.Decimal, bool) {
	for _, asset := range cd.collapsed {
		if !cfg.IsCoreToken(asset.Mint) {
			continue
		}
		vx := venueFlowMagnitude(tx, swapper, asset.Mint, asset.Decimals)
		if vx.IsPositive() {
			return asset, vx, true
		}
	}
	return Asset{}, decimal.Zero, false
}
