package stream

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/whaletrack/swap-classifier/internal/constants"
	"github.com/whaletrack/swap-classifier/internal/diagnostics"
	"github.com/whaletrack/swap-classifier/internal/models"
	"github.com/whaletrack/swap-classifier/internal/storage"
	"github.com/whaletrack/swap-classifier/internal/swapcore"
)

// wrappedSOLMint is used as the BalanceChange.Mint for both native
// lamport deltas and actual wrapped-SOL token-account deltas, so
// CoreConfig's NativeWrapGroup collapses them into one Asset the way
// spec §3 defines "Asset" for the native chain token.
const wrappedSOLMint = "So11111111111111111111111111111111111111112"

// rawTokenBalance is a provider-agnostic view of one SPL token balance
// entry (a single pre/post snapshot, not yet a delta). Both the RPC
// poller (decoding gagliardetto/solana-go's rpc.TokenBalance) and the
// Helius websocket listener (decoding a jsonParsed payload) normalize
// into this shape before merging into balance changes, so the merge
// logic itself lives in one place.
type rawTokenBalance struct {
	AccountIndex uint16
	Mint         string
	Owner        string
	Decimals     int32
	Amount       decimal.Decimal
}

// buildUpstreamTx assembles a swapcore.UpstreamTx from a provider-
// normalized transaction view. Neither raw RPC polling nor the Helius
// websocket feed carries an explicit swap-action hint in this shape,
// so every transaction built this way resolves its swapper via the
// signer/max-delta rules (§4.3 rules 2-4) rather than SwapperIDActionHint.
func buildUpstreamTx(
	signature string,
	timestampUnix int64,
	failed bool,
	feeRaw uint64,
	accountKeys []string,
	numSigners int,
	preLamports, postLamports []uint64,
	preTokens, postTokens []rawTokenBalance,
) swapcore.UpstreamTx {
	status := "Success"
	if failed {
		status = "Failed"
	}

	if numSigners > len(accountKeys) {
		numSigners = len(accountKeys)
	}
	signers := make([]string, 0, numSigners)
	for i := 0; i < numSigners; i++ {
		signers = append(signers, accountKeys[i])
	}
	feePayer := ""
	if len(signers) > 0 {
		feePayer = signers[0]
	}

	var changes []swapcore.UpstreamBalanceChange

	for i := range preLamports {
		if i >= len(postLamports) || i >= len(accountKeys) {
			continue
		}
		pre, post := preLamports[i], postLamports[i]
		if pre == post {
			continue
		}
		decimals := int32(9)
		changes = append(changes, swapcore.UpstreamBalanceChange{
			Owner:     accountKeys[i],
			Mint:      wrappedSOLMint,
			PreRaw:    decimal.NewFromInt(int64(pre)),
			PostRaw:   decimal.NewFromInt(int64(post)),
			ChangeRaw: decimal.NewFromInt(int64(post)).Sub(decimal.NewFromInt(int64(pre))),
			Decimals:  &decimals,
			Symbol:    "SOL",
		})
	}

	changes = append(changes, tokenBalanceChanges(preTokens, postTokens)...)

	return swapcore.UpstreamTx{
		Signature:      signature,
		TimestampUnix:  timestampUnix,
		Status:         status,
		Fee:            decimal.NewFromInt(int64(feeRaw)),
		FeePayer:       feePayer,
		Signers:        signers,
		BalanceChanges: changes,
	}
}

// tokenBalanceChanges merges pre/post SPL token-account snapshots
// (keyed by their position among the transaction's account keys) into
// per-account deltas, mirroring how native lamport deltas are derived.
func tokenBalanceChanges(pre, post []rawTokenBalance) []swapcore.UpstreamBalanceChange {
	preByIdx := make(map[uint16]rawTokenBalance, len(pre))
	for _, tb := range pre {
		preByIdx[tb.AccountIndex] = tb
	}
	postByIdx := make(map[uint16]rawTokenBalance, len(post))
	for _, tb := range post {
		postByIdx[tb.AccountIndex] = tb
	}

	indices := make(map[uint16]bool, len(preByIdx)+len(postByIdx))
	for idx := range preByIdx {
		indices[idx] = true
	}
	for idx := range postByIdx {
		indices[idx] = true
	}

	var out []swapcore.UpstreamBalanceChange
	for idx := range indices {
		preBal, hasPre := preByIdx[idx]
		postBal, hasPost := postByIdx[idx]

		var mint, owner string
		var decimals int32
		preAmt, postAmt := decimal.Zero, decimal.Zero

		switch {
		case hasPre && hasPost:
			mint, owner, decimals = postBal.Mint, postBal.Owner, postBal.Decimals
			preAmt, postAmt = preBal.Amount, postBal.Amount
		case hasPost:
			mint, owner, decimals = postBal.Mint, postBal.Owner, postBal.Decimals
			postAmt = postBal.Amount
		case hasPre:
			mint, owner, decimals = preBal.Mint, preBal.Owner, preBal.Decimals
			preAmt = preBal.Amount
		default:
			continue
		}

		if preAmt.Equal(postAmt) {
			continue
		}

		d := decimals
		out = append(out, swapcore.UpstreamBalanceChange{
			Owner:     owner,
			Mint:      mint,
			PreRaw:    preAmt,
			PostRaw:   postAmt,
			ChangeRaw: postAmt.Sub(preAmt),
			Decimals:  &d,
			Symbol:    constants.TokenSymbols[mint],
		})
	}
	return out
}

// decimalFromUiTokenAmount reads the raw (non-UI) token amount, which
// is already an integer string in the mint's smallest unit.
func decimalFromUiTokenAmount(amt *rpc.UiTokenAmount) decimal.Decimal {
	if amt == nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(amt.Amount)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func decimalFromString(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func decimalsOf(amt *rpc.UiTokenAmount) uint8 {
	if amt == nil {
		return 0
	}
	return amt.Decimals
}

// classifyAndDispatch runs one upstream transaction through the
// classification pipeline and hands every resulting storage record to
// handler in one call, so a split pair's two legs travel together.
// Rejections are logged at debug level and otherwise dropped, matching
// §7's "rejection is a data outcome, not an error". When fixtures is
// non-nil, the raw upstream transaction is recorded before parsing so
// it can be replayed later via /v1/diagnose, regardless of outcome.
func classifyAndDispatch(ctx context.Context, parser *swapcore.Parser, u swapcore.UpstreamTx, handler storage.RecordHandler, fixtures diagnostics.FixtureStore, logger *logrus.Logger) {
	if fixtures != nil {
		if err := fixtures.SaveFixture(ctx, u); err != nil {
			logger.WithError(err).WithField("signature", u.Signature).Debug("failed to save diagnostic fixture")
		}
	}

	result := parser.Parse(u)
	if !result.Ok() {
		logger.WithFields(logrus.Fields{
			"signature": u.Signature,
			"reason":    result.Erase.Reason,
		}).Debug("rejected transaction")
		return
	}

	storageRecs := parser.StorageRecords(result)
	if len(storageRecs) == 0 {
		return
	}
	recs := make([]*models.SwapRecord, 0, len(storageRecs))
	for _, rec := range storageRecs {
		sr := models.FromStorageRecord(rec)
		recs = append(recs, &sr)
	}
	handler(u.Signature, recs)
}
