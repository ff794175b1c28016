package swapcore

import (
	"github.com/shopspring/decimal"
)

// mintDecimals resolves the decimals for a mint: prefer whatever the
// balance changes reported (non-zero wins over an unreported zero),
// falling back to the operator's decimals_overrides.
type mintInfo struct {
	decimals int32
	symbol   string
}

// OwnerDeltas is the per-(owner, mint) raw-view net-delta map produced
// by the Asset-Delta Collector (§4.2), plus its wrap-group aggregation.
type OwnerDeltas struct {
	// Raw is owner -> mint -> normalized net delta (not wrap-grouped).
	Raw map[string]map[string]decimal.Decimal

	// WrapGroup is owner -> wrap-group-key -> normalized net delta.
	WrapGroup map[string]map[string]decimal.Decimal

	// RentRefunds is owner -> total filtered rent refund (normalized),
	// kept out of WrapGroup; Raw still includes it.
	RentRefunds map[string]decimal.Decimal

	// mints records every mint's decimals/symbol seen; the first entry is
	// kept unless a later one supplies non-zero decimals where it had zero.
	mints map[string]mintInfo
}

func (d *OwnerDeltas) mintDecimals(mint string) (int32, bool) {
	info, ok := d.mints[mint]
	if !ok {
		return 0, false
	}
	return info.decimals, true
}

func (d *OwnerDeltas) mintSymbol(mint string) string {
	return d.mints[mint].symbol
}

// buildDeltas implements the Asset-Delta Collector. Rent-refund
// detection uses the pattern from §4.2: a positive native-SOL delta,
// bounded by the configured rent epsilon, returned from a closing
// account. The "closing token account's pre-owner" signal is
// approximated with NativeTransfer actions whose receiver is the
// candidate owner and whose amount is within the rent epsilon.
func buildDeltas(tx RawTx, cfg *CoreConfig) *OwnerDeltas {
	d := &OwnerDeltas{
		Raw:         map[string]map[string]decimal.Decimal{},
		WrapGroup:   map[string]map[string]decimal.Decimal{},
		RentRefunds: map[string]decimal.Decimal{},
		mints:       map[string]mintInfo{},
	}

	// First pass: learn decimals/symbols and accumulate raw deltas.
	for _, bc := range tx.BalanceChanges {
		decimals := bc.Decimals
		if decimals == 0 {
			if override, ok := cfg.DecimalsFor(bc.Mint); ok {
				decimals = override
			}
		}
		if existing, ok := d.mints[bc.Mint]; !ok || (existing.decimals == 0 && decimals != 0) {
			sym := bc.Symbol
			if sym == "" {
				sym = existing.symbol
			}
			d.mints[bc.Mint] = mintInfo{decimals: decimals, symbol: sym}
		}

		if _, ok := d.Raw[bc.Owner]; !ok {
			d.Raw[bc.Owner] = map[string]decimal.Decimal{}
		}
		normalized := normalize(bc.ChangeRaw, decimals)
		d.Raw[bc.Owner][bc.Mint] = d.Raw[bc.Owner][bc.Mint].Add(normalized)
	}

	// Candidate rent-refund owners: owners that receive a closing
	// token account's residual lamports. We recognize this from
	// NativeTransfer actions whose receiver is the owner and whose
	// amount sits at or below the rent epsilon.
	rentCandidateReceivers := map[string]bool{}
	nativeDecimalsForActions := nativeDecimals(cfg, d)
	for _, a := range tx.Actions {
		if a.Type != ActionNativeTransfer {
			continue
		}
		if !a.Amount.IsPositive() {
			continue
		}
		amount := normalize(a.Amount, nativeDecimalsForActions)
		if amount.LessThanOrEqual(cfg.RentEpsilonNative) {
			rentCandidateReceivers[a.Receiver] = true
		}
	}

	// Second pass: split native-wrap deltas between the rent-refund
	// side channel and the wrap-group view, per §4.2.
	for owner, mints := range d.Raw {
		for mint, delta := range mints {
			isNative := cfg.IsNativeWrap(mint)
			effective := delta

			if isNative && delta.IsPositive() && rentCandidateReceivers[owner] {
				epsilon := cfg.RentEpsilonNative
				refund := decimal.Min(delta, epsilon)
				if refund.IsPositive() {
					d.RentRefunds[owner] = d.RentRefunds[owner].Add(refund)
					effective = delta.Sub(refund)
				}
			}

			if effective.IsZero() {
				continue
			}

			key := cfg.WrapGroupKey(mint)
			if _, ok := d.WrapGroup[owner]; !ok {
				d.WrapGroup[owner] = map[string]decimal.Decimal{}
			}
			d.WrapGroup[owner][key] = d.WrapGroup[owner][key].Add(effective)
		}
	}

	// Owners whose total delta set is now empty are dropped entirely
	// (spec §4.2 "owners whose total delta set is empty are dropped").
	for owner, mints := range d.WrapGroup {
		allZero := true
		for _, v := range mints {
			if !v.IsZero() {
				allZero = false
				break
			}
		}
		if allZero {
			delete(d.WrapGroup, owner)
		}
	}

	return d
}

// NonZero returns the non-zero wrap-group deltas for owner.
func (d *OwnerDeltas) NonZero(owner string) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for mint, v := range d.WrapGroup[owner] {
		if !v.IsZero() {
			out[mint] = v
		}
	}
	return out
}
