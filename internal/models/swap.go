// ============================================================================
// models/swap.go
// ============================================================================
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/whaletrack/swap-classifier/internal/swapcore"
)

// SwapRecord is the JSON/wire view of a swapcore.StorageRecord. It is
// the shape stored in Redis/ClickHouse and served over the API — kept
// separate from swapcore.StorageRecord so the persistence/wire format
// can evolve independently of the core's decimal.Decimal-typed fields.
type SwapRecord struct {
	Signature            string    `json:"signature"`
	Type                 string    `json:"type"` // "buy" | "sell"
	ClassificationSource string    `json:"classification_source"`
	Swapper              string    `json:"swapper"`
	Timestamp            time.Time `json:"timestamp"`
	Confidence           string    `json:"confidence"`

	SellAmount string `json:"sell_amount"`
	BuyAmount  string `json:"buy_amount"`

	SellSolAmount *string `json:"sell_sol_amount,omitempty"`
	BuySolAmount  *string `json:"buy_sol_amount,omitempty"`

	TokenInMint    string `json:"token_in_mint"`
	TokenInSymbol  string `json:"token_in_symbol"`
	TokenInAmount  string `json:"token_in_amount"`
	TokenOutMint   string `json:"token_out_mint"`
	TokenOutSymbol string `json:"token_out_symbol"`
	TokenOutAmount string `json:"token_out_amount"`

	Dex         string `json:"dex,omitempty"`
	ProgramID   string `json:"program_id,omitempty"`

	TxFeeNative   string `json:"tx_fee_native"`
	TxFeeQuote    string `json:"tx_fee_quote"`
	PlatformFee   string `json:"platform_fee"`
	PriorityFee   string `json:"priority_fee"`
	TotalFeeQuote string `json:"total_fee_quote"`
}

// FromStorageRecord projects a swapcore.StorageRecord into its wire
// shape. Decimal fields are rendered via String() rather than float64
// to preserve precision end to end (spec §3: amounts are never floats).
func FromStorageRecord(rec swapcore.StorageRecord) SwapRecord {
	out := SwapRecord{
		Signature:            rec.Signature,
		Type:                 rec.Type.String(),
		ClassificationSource: string(rec.ClassificationSource),
		Swapper:              rec.Swapper,
		Timestamp:            rec.Timestamp,
		Confidence:           rec.Confidence.String(),
		SellAmount:           rec.Amount.SellAmount.String(),
		BuyAmount:            rec.Amount.BuyAmount.String(),
		TokenInMint:          rec.TokenIn.Mint,
		TokenInSymbol:        rec.TokenIn.Symbol,
		TokenInAmount:        rec.TokenIn.Amount.String(),
		TokenOutMint:         rec.TokenOut.Mint,
		TokenOutSymbol:       rec.TokenOut.Symbol,
		TokenOutAmount:       rec.TokenOut.Amount.String(),
		TxFeeNative:          rec.FeeBreakdown.TxFeeNative.String(),
		TxFeeQuote:           rec.FeeBreakdown.TxFeeQuote.String(),
		PlatformFee:          rec.FeeBreakdown.PlatformFee.String(),
		PriorityFee:          rec.FeeBreakdown.PriorityFee.String(),
		TotalFeeQuote:        rec.FeeBreakdown.TotalFeeQuote.String(),
	}

	if rec.Protocol != nil {
		out.Dex = rec.Protocol.Name
		out.ProgramID = rec.Protocol.ProgramID
	}
	if rec.SolAmount.SellSolAmount != nil {
		s := rec.SolAmount.SellSolAmount.String()
		out.SellSolAmount = &s
	}
	if rec.SolAmount.BuySolAmount != nil {
		s := rec.SolAmount.BuySolAmount.String()
		out.BuySolAmount = &s
	}

	return out
}

// Pair renders a human-readable "BASE/QUOTE"-style label for dashboards
// and log lines, matching the teacher's flat SwapEvent.Pair field.
func (r SwapRecord) Pair() string {
	if r.Type == "sell" {
		return r.TokenInSymbol + "/" + r.TokenOutSymbol
	}
	return r.TokenOutSymbol + "/" + r.TokenInSymbol
}

// ParsePrice derives a float64 price for legacy consumers (dashboards,
// ClickHouse numeric columns) that cannot carry decimal.Decimal. It is
// never used for classification math, only for display/indexing.
func (r SwapRecord) ParsePrice() float64 {
	in, err1 := decimal.NewFromString(r.TokenInAmount)
	out, err2 := decimal.NewFromString(r.TokenOutAmount)
	if err1 != nil || err2 != nil || out.IsZero() {
		return 0
	}
	return in.Div(out).InexactFloat64()
}
