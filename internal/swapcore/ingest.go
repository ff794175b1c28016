package swapcore

import (
	"sort"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// UpstreamBalanceChange mirrors the enrichment collaborator's wire
// shape for a single (owner, mint) delta. Decimals is a pointer because
// the upstream source sometimes omits it (§4.1).
type UpstreamBalanceChange struct {
	Owner     string
	Mint      string
	PreRaw    decimal.Decimal
	PostRaw   decimal.Decimal
	ChangeRaw decimal.Decimal
	Decimals  *int32
	Symbol    string
}

// UpstreamAction mirrors the enrichment collaborator's action payload.
type UpstreamAction struct {
	Kind string // "SWAP", "TOKEN_TRANSFER", "NATIVE_TRANSFER", or anything else

	Swapper     string
	TokensIn    *UpstreamAssetAmt
	TokensOut   *UpstreamAssetAmt

	Sender   string
	Receiver string
	Mint     string
	Amount   decimal.Decimal
}

// UpstreamAssetAmt mirrors the enrichment collaborator's AssetAmt shape.
type UpstreamAssetAmt struct {
	Mint      string
	AmountRaw decimal.Decimal
	Decimals  *int32
	Symbol    string
}

// UpstreamTx is the enrichment collaborator's payload, consumed as-is
// per spec §1/§6.
type UpstreamTx struct {
	Signature      string
	TimestampUnix  int64 // Unix seconds; Adapt converts it to a UTC time.Time
	Status         string // "Success" or anything else treated as failed
	Fee            decimal.Decimal
	FeePayer       string
	Signers        []string // not guaranteed to have fee_payer first
	ProtocolName   string
	ProtocolProgID string
	BalanceChanges []UpstreamBalanceChange
	Actions        []UpstreamAction
}

// Adapt implements the Ingest Adapter (§4.1): it normalizes an
// UpstreamTx into a RawTx, or rejects immediately with erase(tx_failed).
func Adapt(u UpstreamTx, cfg *CoreConfig, tel Telemetry) (RawTx, *EraseResult) {
	if tel == nil {
		tel = NopTelemetry{}
	}

	status := TxStatusFailed
	if u.Status == "Success" {
		status = TxStatusSuccess
	}
	if status != TxStatusSuccess {
		return RawTx{}, erase(ReasonTxFailed, map[string]any{"signature": u.Signature, "status": u.Status})
	}

	signers := canonicalSigners(u.FeePayer, u.Signers)

	missing := map[string]bool{}

	balanceChanges := make([]BalanceChange, 0, len(u.BalanceChanges))
	for _, bc := range u.BalanceChanges {
		decimals, wasMissing := resolveDecimals(bc.Mint, bc.Decimals, cfg)
		if wasMissing {
			missing[bc.Mint] = true
			tel.Warn("missing decimals for mint", map[string]any{"mint": bc.Mint, "signature": u.Signature})
		}
		balanceChanges = append(balanceChanges, BalanceChange{
			Owner:     bc.Owner,
			Mint:      bc.Mint,
			PreRaw:    bc.PreRaw,
			PostRaw:   bc.PostRaw,
			ChangeRaw: bc.ChangeRaw,
			Decimals:  decimals,
			Symbol:    bc.Symbol,
		})
	}

	actions := make([]Action, 0, len(u.Actions))
	for _, a := range u.Actions {
		actions = append(actions, adaptAction(a, cfg, missing, tel, u.Signature))
	}

	var protocol *ProtocolTag
	if u.ProtocolName != "" || u.ProtocolProgID != "" {
		protocol = &ProtocolTag{Name: u.ProtocolName, ProgramID: u.ProtocolProgID}
	}

	return RawTx{
		Signature:            u.Signature,
		Timestamp:            time.Unix(u.TimestampUnix, 0).UTC(),
		Status:               status,
		Fee:                  u.Fee,
		FeePayer:             u.FeePayer,
		Signers:              signers,
		Protocol:             protocol,
		BalanceChanges:       balanceChanges,
		Actions:              actions,
		MissingDecimalsMints: missing,
	}, nil
}

// canonicalSigners puts fee_payer at index 0, preserving the relative
// order of the remaining signers (§4.1).
func canonicalSigners(feePayer string, signers []string) []string {
	out := make([]string, 0, len(signers)+1)
	seen := map[string]bool{}
	if feePayer != "" {
		out = append(out, feePayer)
		seen[feePayer] = true
	}
	for _, s := range signers {
		if seen[s] {
			continue
		}
		out = append(out, s)
		seen[s] = true
	}
	return out
}

func resolveDecimals(mint string, upstream *int32, cfg *CoreConfig) (int32, bool) {
	if upstream != nil {
		return *upstream, false
	}
	if override, ok := cfg.DecimalsFor(mint); ok {
		return override, false
	}
	return 0, true
}

func adaptAction(a UpstreamAction, cfg *CoreConfig, missing map[string]bool, tel Telemetry, signature string) Action {
	switch a.Kind {
	case "SWAP":
		out := Action{Type: ActionSwap, Swapper: a.Swapper}
		if a.TokensIn != nil && a.TokensOut != nil {
			in := adaptAssetAmt(*a.TokensIn, cfg, missing, tel, signature)
			outAmt := adaptAssetAmt(*a.TokensOut, cfg, missing, tel, signature)
			out.TokensInOut = &SwapTokens{In: in, Out: outAmt}
		}
		return out
	case "TOKEN_TRANSFER":
		return Action{
			Type:     ActionTokenTransfer,
			Sender:   a.Sender,
			Receiver: a.Receiver,
			Mint:     a.Mint,
			Amount:   a.Amount,
		}
	case "NATIVE_TRANSFER":
		return Action{
			Type:     ActionNativeTransfer,
			Sender:   a.Sender,
			Receiver: a.Receiver,
			Amount:   a.Amount,
		}
	default:
		return Action{Type: ActionOther, Kind: a.Kind}
	}
}

func adaptAssetAmt(a UpstreamAssetAmt, cfg *CoreConfig, missing map[string]bool, tel Telemetry, signature string) AssetAmt {
	decimals, wasMissing := resolveDecimals(a.Mint, a.Decimals, cfg)
	if wasMissing {
		missing[a.Mint] = true
		tel.Warn("missing decimals for mint", map[string]any{"mint": a.Mint, "signature": signature})
	}
	return AssetAmt{Mint: a.Mint, AmountRaw: a.AmountRaw, Decimals: decimals, Symbol: a.Symbol}
}

// DiagnosticAccountID formats an account identifier for the §6
// diagnostic surface, matching the pack's base58 display convention.
func DiagnosticAccountID(raw []byte) string {
	return base58.Encode(raw)
}

// sortedMintKeys is a small shared helper used by a couple of
// deterministic-ordering call sites.
func sortedMintKeys(m map[string]decimal.Decimal) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
