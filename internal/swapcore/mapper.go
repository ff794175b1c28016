package swapcore

import "github.com/shopspring/decimal"

// MapToStorage implements the Storage Mapper (§4.8): it projects a
// swap-level ParsedSwap into the wallet-level StorageRecord shape the
// persistence layer stores, filling sol_amount only when the native
// wrap group actually participates.
func MapToStorage(swap ParsedSwap, source ClassificationSource, cfg *CoreConfig) StorageRecord {
	rec := StorageRecord{
		Signature:            swap.Signature,
		Type:                 swap.Direction,
		ClassificationSource: source,
		Swapper:              swap.Swapper,
		Timestamp:            swap.Timestamp,
		Protocol:             swap.Protocol,
		Confidence:           swap.Confidence,
		FeeBreakdown:         swap.Amounts.Fees,
	}

	switch swap.Direction {
	case DirectionSell:
		rec.Amount = RecordAmount{SellAmount: swap.Amounts.BaseAmount, BuyAmount: decimal.Zero}

		received := swap.Amounts.SwapOutputAmount
		if swap.Amounts.HasWalletReceived {
			received = swap.Amounts.NetWalletReceived
		}
		rec.TokenIn = TokenSide{Mint: swap.BaseAsset.Mint, Symbol: swap.BaseAsset.Symbol, Amount: swap.Amounts.BaseAmount}
		rec.TokenOut = TokenSide{Mint: swap.QuoteAsset.Mint, Symbol: swap.QuoteAsset.Symbol, Amount: received}

	case DirectionBuy:
		rec.Amount = RecordAmount{SellAmount: decimal.Zero, BuyAmount: swap.Amounts.BaseAmount}

		cost := swap.Amounts.SwapInputAmount
		if swap.Amounts.HasWalletCost {
			cost = swap.Amounts.TotalWalletCost
		}
		rec.TokenIn = TokenSide{Mint: swap.QuoteAsset.Mint, Symbol: swap.QuoteAsset.Symbol, Amount: cost}
		rec.TokenOut = TokenSide{Mint: swap.BaseAsset.Mint, Symbol: swap.BaseAsset.Symbol, Amount: swap.Amounts.BaseAmount}
	}

	rec.SolAmount = solAmountFor(swap, cfg)
	return rec
}

// solAmountFor fills SellSolAmount/BuySolAmount only when the native
// wrap group is actually one of the two traded assets; otherwise both
// stay nil, per §3's "never fabricated" invariant.
func solAmountFor(swap ParsedSwap, cfg *CoreConfig) SolAmount {
	if cfg == nil {
		return SolAmount{}
	}

	quoteIsNative := cfg.IsNativeWrap(swap.QuoteAsset.Mint)
	baseIsNative := cfg.IsNativeWrap(swap.BaseAsset.Mint)
	if !quoteIsNative && !baseIsNative {
		return SolAmount{}
	}

	switch swap.Direction {
	case DirectionSell:
		var amt decimal.Decimal
		switch {
		case quoteIsNative:
			amt = swap.Amounts.NetWalletReceived
			if !swap.Amounts.HasWalletReceived {
				amt = swap.Amounts.SwapOutputAmount
			}
		case baseIsNative:
			amt = swap.Amounts.BaseAmount
		}
		return SolAmount{SellSolAmount: &amt}

	case DirectionBuy:
		var amt decimal.Decimal
		switch {
		case quoteIsNative:
			amt = swap.Amounts.TotalWalletCost
			if !swap.Amounts.HasWalletCost {
				amt = swap.Amounts.SwapInputAmount
			}
		case baseIsNative:
			amt = swap.Amounts.BaseAmount
		}
		return SolAmount{BuySolAmount: &amt}
	}

	return SolAmount{}
}
