// Package swapcore implements the Swap Classification Core: it turns a
// normalized, finalized Solana transaction into zero, one, or two
// storable swap records. Every exported entry point is a pure function
// of its inputs — no network I/O, no shared mutable state.
package swapcore

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the top-level finalization status reported by the
// upstream enrichment collaborator.
type TxStatus int

const (
	TxStatusUnknown TxStatus = iota
	TxStatusSuccess
	TxStatusFailed
)

// ActionType discriminates the variants of Action.
type ActionType int

const (
	ActionUnknown ActionType = iota
	ActionSwap
	ActionTokenTransfer
	ActionNativeTransfer
	ActionOther
)

// AssetAmt is a typed amount of a single mint, raw-denominated.
type AssetAmt struct {
	Mint      string
	AmountRaw decimal.Decimal
	Decimals  int32
	Symbol    string
}

// Normalized divides AmountRaw by 10^Decimals.
func (a AssetAmt) Normalized() decimal.Decimal {
	return normalize(a.AmountRaw, a.Decimals)
}

func normalize(raw decimal.Decimal, decimals int32) decimal.Decimal {
	if decimals <= 0 {
		return raw
	}
	return raw.Shift(-decimals)
}

// Action is a typed effect extracted from the transaction by the
// upstream enrichment collaborator. Unknown action kinds surface as
// ActionOther rather than being silently dropped, per spec §9's
// "no loose dictionaries" redesign note.
type Action struct {
	Type ActionType

	// ActionSwap
	Swapper      string
	TokensInOut  *SwapTokens // tokens_swapped.{in,out}

	// ActionTokenTransfer
	Sender   string
	Receiver string
	Mint     string
	Amount   decimal.Decimal

	// ActionNativeTransfer uses Sender/Receiver/Amount above (no Mint).

	// ActionOther
	Kind string
}

// SwapTokens is the tokens_swapped payload of a Swap action.
type SwapTokens struct {
	In  AssetAmt
	Out AssetAmt
}

// BalanceChange is a single (owner, mint) delta observed across the
// transaction. Invariant: PostRaw - PreRaw == ChangeRaw.
type BalanceChange struct {
	Owner     string
	Mint      string
	PreRaw    decimal.Decimal
	PostRaw   decimal.Decimal
	ChangeRaw decimal.Decimal
	Decimals  int32
	Symbol    string
}

// ProtocolTag identifies the DEX/program a transaction touched, when
// the enrichment collaborator was able to resolve one.
type ProtocolTag struct {
	Name      string
	ProgramID string
}

// RawTx is the normalized input to the core, produced by the Ingest
// Adapter (§4.1) from the upstream enrichment payload.
type RawTx struct {
	Signature      string
	Timestamp      time.Time
	Status         TxStatus
	Fee            decimal.Decimal // native-chain smallest unit
	FeePayer       string
	Signers        []string // fee_payer first by convention
	Protocol       *ProtocolTag
	BalanceChanges []BalanceChange
	Actions        []Action

	// MissingDecimalsMints records mints for which the upstream
	// enrichment payload omitted decimals and no decimals override
	// exists (§4.1); the Ingest Adapter fills these with 0, and the Amount
	// Reconstructor rejects with erase(missing_decimals) if such a mint
	// is ultimately selected as base or quote (§4.6, S6).
	MissingDecimalsMints map[string]bool
}

// Asset is a deduplicated logical token. Two mints are the same Asset
// if they belong to the same wrap group (§3 "Asset").
type Asset struct {
	Mint     string
	Decimals int32
	Symbol   string
}

// Direction is the swap's economic direction for the swapper.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionBuy
	DirectionSell
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Confidence is the classification confidence level attached to every
// emitted ParsedSwap.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "HIGH"
	case ConfidenceMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// SwapperIDMethod records which rule in §4.3 resolved the swapper.
type SwapperIDMethod int

const (
	SwapperIDUnknown SwapperIDMethod = iota
	SwapperIDActionHint
	SwapperIDUniqueSigner
	SwapperIDMaxDelta
	SwapperIDFeePayer
)

func (m SwapperIDMethod) String() string {
	switch m {
	case SwapperIDActionHint:
		return "action-hint"
	case SwapperIDUniqueSigner:
		return "unique-signer"
	case SwapperIDMaxDelta:
		return "max-delta"
	case SwapperIDFeePayer:
		return "fee-payer"
	default:
		return "unknown"
	}
}

// FeeBreakdown decomposes the wallet-level fee cost (§3 "Amounts").
type FeeBreakdown struct {
	TxFeeNative   decimal.Decimal
	TxFeeQuote    decimal.Decimal
	PlatformFee   decimal.Decimal
	PriorityFee   decimal.Decimal
	TotalFeeQuote decimal.Decimal
}

// Amounts holds every numeric field of a ParsedSwap. All fields are
// non-negative and normalized by the respective asset's decimals.
type Amounts struct {
	BaseAmount        decimal.Decimal
	SwapInputAmount   decimal.Decimal
	SwapOutputAmount  decimal.Decimal
	HasSwapInput      bool
	HasSwapOutput     bool
	TotalWalletCost   decimal.Decimal
	HasWalletCost     bool
	NetWalletReceived decimal.Decimal
	HasWalletReceived bool
	Fees              FeeBreakdown
}

// ParsedSwap is the swap-level classification result (§3 "ParsedSwap").
type ParsedSwap struct {
	Signature                  string
	Timestamp                  time.Time
	Swapper                    string
	Direction                  Direction
	BaseAsset                  Asset
	QuoteAsset                 Asset
	Amounts                    Amounts
	Protocol                   *ProtocolTag
	Confidence                 Confidence
	SwapperIDMethod            SwapperIDMethod
	IntermediateAssetsCollapsed []Asset
	RentRefundsFiltered        bool
}

// SplitReason discriminates why a split-swap pair was synthesized.
type SplitReason int

const (
	SplitReasonUnknown SplitReason = iota
	SplitReasonNonCoreToNonCoreViaCore
	SplitReasonIntermediateQuoteDetected
)

func (r SplitReason) String() string {
	switch r {
	case SplitReasonNonCoreToNonCoreViaCore:
		return "non_core_to_non_core_via_core"
	case SplitReasonIntermediateQuoteDetected:
		return "intermediate_quote_detected"
	default:
		return "unknown"
	}
}

// SplitSwapPair is the paired SELL+BUY result of §4.7.
type SplitSwapPair struct {
	SellRecord  ParsedSwap
	BuyRecord   ParsedSwap
	SplitReason SplitReason
}

// ClassificationSource discriminates which synthesis path produced a
// StorageRecord (§3 "StorageRecord").
type ClassificationSource string

const (
	SourceSingle     ClassificationSource = "v2_parser_single"
	SourceSplitSell  ClassificationSource = "v2_parser_split_sell"
	SourceSplitBuy   ClassificationSource = "v2_parser_split_buy"
)

// TokenSide describes one side ("what went out" / "what came in") of
// the swapper's wallet for a StorageRecord.
type TokenSide struct {
	Mint   string
	Amount decimal.Decimal
	Symbol string
}

// SolAmount carries the optional native-SOL-denominated view of a
// StorageRecord. Both fields are nil unless the native wrap-group
// participates — §3's "never fabricated" invariant.
type SolAmount struct {
	SellSolAmount *decimal.Decimal
	BuySolAmount  *decimal.Decimal
}

// RecordAmount is the base-asset token-quantity view; exactly one of
// the two fields is zero (§3 invariant).
type RecordAmount struct {
	SellAmount decimal.Decimal
	BuyAmount  decimal.Decimal
}

// StorageRecord is the persistence projection of one ParsedSwap (§4.8).
type StorageRecord struct {
	Signature            string
	Type                 Direction
	ClassificationSource ClassificationSource
	Amount               RecordAmount
	SolAmount            SolAmount
	TokenIn              TokenSide
	TokenOut             TokenSide
	Swapper              string
	Timestamp            time.Time
	Protocol             *ProtocolTag
	Confidence           Confidence
	FeeBreakdown         FeeBreakdown
}

// RejectionReason is the closed taxonomy of §7.
type RejectionReason string

const (
	ReasonTxFailed                   RejectionReason = "tx_failed"
	ReasonNoSwapSignature            RejectionReason = "no_swap_signature"
	ReasonInvalidAssetCount          RejectionReason = "invalid_asset_count"
	ReasonAmbiguousDirection         RejectionReason = "ambiguous_direction"
	ReasonDeniedAsset                RejectionReason = "denied_asset"
	ReasonConservationViolation      RejectionReason = "conservation_violation"
	ReasonMissingDecimals            RejectionReason = "missing_decimals"
	ReasonUnresolvableSplit          RejectionReason = "unresolvable_split"
	ReasonBelowMinimumValueThreshold RejectionReason = "below_minimum_value_threshold"
	ReasonValidationFailed           RejectionReason = "validation_failed"
)

// EraseResult is returned whenever the pipeline rejects a transaction.
// It is a data value, never a Go error, per spec §7/§9.
type EraseResult struct {
	Reason   RejectionReason
	Metadata map[string]any
}

func erase(reason RejectionReason, metadata map[string]any) *EraseResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &EraseResult{Reason: reason, Metadata: metadata}
}

// Parsed is the tagged sum `Single(ParsedSwap) | Split(SplitSwapPair)`
// from spec §9's redesign note.
type Parsed struct {
	Single *ParsedSwap
	Split  *SplitSwapPair
}

// Result is the top-level `Result<Parsed, EraseResult>` returned by
// Parser.Parse.
type Result struct {
	Parsed *Parsed
	Erase  *EraseResult
}

func (r Result) Ok() bool { return r.Erase == nil }

// StorageRecords flattens a successful Result into its one or two
// storage-bound records, in emission order (sell before buy for a
// split pair, matching §4.7's listing order). cfg is needed to decide
// which asset, if any, is the native wrap group (§3's "never fabricate
// SOL amounts" invariant).
func (r Result) StorageRecords(cfg *CoreConfig) []StorageRecord {
	if r.Parsed == nil {
		return nil
	}
	if r.Parsed.Single != nil {
		return []StorageRecord{MapToStorage(*r.Parsed.Single, SourceSingle, cfg)}
	}
	if r.Parsed.Split != nil {
		return []StorageRecord{
			MapToStorage(r.Parsed.Split.SellRecord, SourceSplitSell, cfg),
			MapToStorage(r.Parsed.Split.BuyRecord, SourceSplitBuy, cfg),
		}
	}
	return nil
}
