package swapcore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSOL  = "So11111111111111111111111111111111111111112"
	testUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testMEME = "MEME11111111111111111111111111111111111111"
	testFOO  = "FOO11111111111111111111111111111111111111"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func int32p(v int32) *int32 { return &v }

func testCoreConfig(t *testing.T) *CoreConfig {
	t.Helper()
	cfg, err := NewCoreConfig(
		[]string{testSOL, testUSDC},
		[]string{testSOL},
		nil,
		d("0.000005"),
		map[string]int32{testSOL: 9, testUSDC: 6, testMEME: 6, testFOO: 6},
		nil,
	)
	require.NoError(t, err)
	return cfg
}

// buildBuyUSDCForSOL constructs a minimal upstream payload for "wallet
// spends 100 USDC, receives 2 SOL"; with SOL as quote the parser
// classifies it as a single sell of USDC.
func buildBuyUSDCForSOL(t *testing.T) UpstreamTx {
	t.Helper()
	wallet := "Wallet1111111111111111111111111111111111111"
	pool := "Pool11111111111111111111111111111111111111"

	return UpstreamTx{
		Signature:    "sig-buy-1",
		TimestampUnix: 1700000000,
		Status:       "Success",
		Fee:          d("5000"),
		FeePayer:     wallet,
		Signers:      []string{wallet},
		ProtocolName: "Jupiter",
		ProtocolProgID: "JUP1111111111111111111111111111111111111",
		BalanceChanges: []UpstreamBalanceChange{
			{Owner: wallet, Mint: testUSDC, ChangeRaw: d("-100000000"), Decimals: int32p(6)},
			{Owner: pool, Mint: testUSDC, ChangeRaw: d("100000000"), Decimals: int32p(6)},
			{Owner: wallet, Mint: testSOL, ChangeRaw: d("2000000000"), Decimals: int32p(9)},
			{Owner: pool, Mint: testSOL, ChangeRaw: d("-2000000000"), Decimals: int32p(9)},
		},
		Actions: []UpstreamAction{
			{
				Kind:    "SWAP",
				Swapper: wallet,
				TokensIn: &UpstreamAssetAmt{Mint: testUSDC, AmountRaw: d("100000000"), Decimals: int32p(6)},
				TokensOut: &UpstreamAssetAmt{Mint: testSOL, AmountRaw: d("2000000000"), Decimals: int32p(9)},
			},
		},
	}
}

// TestParser_SingleSwap_SOLAsQuote covers the both-core case of §4.5:
// with SOL ranked above USDC in CoreTokens, SOL wins the quote role
// even though the wallet's net delta is "spent USDC, received SOL" —
// the record comes out as SELL 100 USDC for 2 SOL, priced in SOL.
func TestParser_SingleSwap_SOLAsQuote(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	res := p.Parse(buildBuyUSDCForSOL(t))
	require.True(t, res.Ok())
	require.NotNil(t, res.Parsed.Single)

	swap := res.Parsed.Single
	assert.Equal(t, DirectionSell, swap.Direction)
	assert.Equal(t, testUSDC, swap.BaseAsset.Mint)
	assert.Equal(t, testSOL, swap.QuoteAsset.Mint)
	assert.True(t, swap.Amounts.BaseAmount.Equal(d("100")))
	assert.True(t, swap.Amounts.NetWalletReceived.Equal(d("2")))
	assert.Equal(t, SwapperIDActionHint, swap.SwapperIDMethod)
	assert.Equal(t, ConfidenceHigh, swap.Confidence)

	records := res.StorageRecords(cfg)
	require.Len(t, records, 1)
	assert.Equal(t, SourceSingle, records[0].ClassificationSource)
	assert.True(t, records[0].Amount.SellAmount.Equal(d("100")))
	assert.True(t, records[0].Amount.BuyAmount.IsZero())
	require.NotNil(t, records[0].SolAmount.SellSolAmount)
	assert.Nil(t, records[0].SolAmount.BuySolAmount)
}

func TestParser_TxFailedRejects(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	u := buildBuyUSDCForSOL(t)
	u.Status = "Failed"

	res := p.Parse(u)
	require.False(t, res.Ok())
	assert.Equal(t, ReasonTxFailed, res.Erase.Reason)
}

func TestParser_DeniedAssetRejects(t *testing.T) {
	cfg, err := NewCoreConfig(
		[]string{testSOL, testUSDC},
		[]string{testSOL},
		[]string{testUSDC},
		d("0.000005"),
		map[string]int32{testSOL: 9, testUSDC: 6},
		nil,
	)
	require.NoError(t, err)
	p := NewParser(cfg, nil)

	res := p.Parse(buildBuyUSDCForSOL(t))
	require.False(t, res.Ok())
	assert.Equal(t, ReasonDeniedAsset, res.Erase.Reason)
}

func TestParser_BelowThresholdRejects(t *testing.T) {
	cfg := testCoreConfig(t)
	threshold := d("1000")
	cfg.MinValueThresholdQuote = &threshold
	p := NewParser(cfg, nil)

	res := p.Parse(buildBuyUSDCForSOL(t))
	require.False(t, res.Ok())
	assert.Equal(t, ReasonBelowMinimumValueThreshold, res.Erase.Reason)
}

func TestParser_NoSwapSignatureWhenNoQualifyingOwner(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	u := buildBuyUSDCForSOL(t)
	u.Actions = nil // remove the action-hint
	u.Signers = append(u.Signers, "Extra1111111111111111111111111111111111111") // remove unique-signer rule
	// Remove both sides of the only qualifying owner's delta so rule 3
	// also fails: split wallet's outflow onto a second owner.
	u.BalanceChanges = []UpstreamBalanceChange{
		{Owner: "Wallet1111111111111111111111111111111111111", Mint: testUSDC, ChangeRaw: d("-100000000"), Decimals: int32p(6)},
		{Owner: "OtherWallet11111111111111111111111111111111", Mint: testSOL, ChangeRaw: d("2000000000"), Decimals: int32p(9)},
	}

	res := p.Parse(u)
	require.False(t, res.Ok())
	assert.Equal(t, ReasonNoSwapSignature, res.Erase.Reason)
}

func TestParser_InvalidAssetCountWithResidualThirdMint(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	u := buildBuyUSDCForSOL(t)
	wallet := "Wallet1111111111111111111111111111111111111"
	u.BalanceChanges = append(u.BalanceChanges, UpstreamBalanceChange{
		Owner: wallet, Mint: testFOO, ChangeRaw: d("500000"), Decimals: int32p(6),
	})

	res := p.Parse(u)
	require.False(t, res.Ok())
	assert.Equal(t, ReasonInvalidAssetCount, res.Erase.Reason)
}

func TestParser_NoSwapSignatureWithSingleNonZeroSwapperDelta(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	wallet := "Wallet1111111111111111111111111111111111111"
	poolIn := "PoolIn111111111111111111111111111111111111"
	poolOut := "PoolOut11111111111111111111111111111111111"

	// wallet nets only a single non-zero mint (+1000 MEME); the SOL leg
	// of the route flows entirely between venue accounts and never
	// touches the swapper. Rule 1 (action-hint) resolves the swapper
	// directly, bypassing rule 3's "has both a negative and a positive
	// delta" gate, so detect() sees a single-mint collapsed set.
	u := UpstreamTx{
		Signature:      "sig-single-delta-1",
		TimestampUnix:  1700000000,
		Status:         "Success",
		Fee:            d("5000"),
		FeePayer:       wallet,
		Signers:        []string{wallet},
		ProtocolName:   "Jupiter",
		ProtocolProgID: "JUP1111111111111111111111111111111111111",
		BalanceChanges: []UpstreamBalanceChange{
			{Owner: wallet, Mint: testMEME, ChangeRaw: d("1000000000"), Decimals: int32p(6)},
			{Owner: poolIn, Mint: testMEME, ChangeRaw: d("-1000000000"), Decimals: int32p(6)},
			{Owner: poolIn, Mint: testSOL, ChangeRaw: d("2000000000"), Decimals: int32p(9)},
			{Owner: poolOut, Mint: testSOL, ChangeRaw: d("-2000000000"), Decimals: int32p(9)},
		},
		Actions: []UpstreamAction{
			{
				Kind:      "SWAP",
				Swapper:   wallet,
				TokensIn:  &UpstreamAssetAmt{Mint: testSOL, AmountRaw: d("2000000000"), Decimals: int32p(9)},
				TokensOut: &UpstreamAssetAmt{Mint: testMEME, AmountRaw: d("1000000000"), Decimals: int32p(6)},
			},
		},
	}

	res := p.Parse(u)
	require.False(t, res.Ok())
	assert.Equal(t, ReasonNoSwapSignature, res.Erase.Reason)
}

func TestParser_MissingDecimalsRejects(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	u := buildBuyUSDCForSOL(t)
	wallet := "Wallet1111111111111111111111111111111111111"
	for i := range u.BalanceChanges {
		if u.BalanceChanges[i].Owner == wallet && u.BalanceChanges[i].Mint == testSOL {
			u.BalanceChanges[i].Decimals = nil
		}
	}
	delete(cfg.DecimalsOverrides, testSOL)

	res := p.Parse(u)
	require.False(t, res.Ok())
	assert.Equal(t, ReasonMissingDecimals, res.Erase.Reason)
}

// TestParser_SplitSwapViaCoreIntermediate builds a MEME -> SOL -> FOO
// route where the wallet never directly holds SOL (it passes through
// the pool), covering §4.7's split-synthesis path.
func TestParser_SplitSwapViaCoreIntermediate(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	wallet := "Wallet1111111111111111111111111111111111111"
	poolA := "PoolA111111111111111111111111111111111111"
	poolB := "PoolB111111111111111111111111111111111111"

	u := UpstreamTx{
		Signature:    "sig-split-1",
		TimestampUnix: 1700000100,
		Status:       "Success",
		Fee:          d("5000"),
		FeePayer:     wallet,
		Signers:      []string{wallet},
		ProtocolName: "Jupiter",
		BalanceChanges: []UpstreamBalanceChange{
			{Owner: wallet, Mint: testMEME, ChangeRaw: d("-1000000"), Decimals: int32p(6)},
			{Owner: poolA, Mint: testMEME, ChangeRaw: d("1000000"), Decimals: int32p(6)},
			{Owner: poolA, Mint: testSOL, ChangeRaw: d("-3000000000"), Decimals: int32p(9)},
			{Owner: poolB, Mint: testSOL, ChangeRaw: d("3000000000"), Decimals: int32p(9)},
			{Owner: poolB, Mint: testFOO, ChangeRaw: d("-4000000"), Decimals: int32p(6)},
			{Owner: wallet, Mint: testFOO, ChangeRaw: d("4000000"), Decimals: int32p(6)},
		},
		Actions: []UpstreamAction{
			{Kind: "SWAP", Swapper: wallet,
				TokensIn:  &UpstreamAssetAmt{Mint: testMEME, AmountRaw: d("1000000"), Decimals: int32p(6)},
				TokensOut: &UpstreamAssetAmt{Mint: testSOL, AmountRaw: d("3000000000"), Decimals: int32p(9)}},
			{Kind: "SWAP", Swapper: wallet,
				TokensIn:  &UpstreamAssetAmt{Mint: testSOL, AmountRaw: d("3000000000"), Decimals: int32p(9)},
				TokensOut: &UpstreamAssetAmt{Mint: testFOO, AmountRaw: d("4000000"), Decimals: int32p(6)}},
		},
	}

	res := p.Parse(u)
	require.True(t, res.Ok())
	require.NotNil(t, res.Parsed.Split)

	pair := res.Parsed.Split
	assert.Equal(t, DirectionSell, pair.SellRecord.Direction)
	assert.Equal(t, testMEME, pair.SellRecord.BaseAsset.Mint)
	assert.Equal(t, testSOL, pair.SellRecord.QuoteAsset.Mint)
	assert.Equal(t, DirectionBuy, pair.BuyRecord.Direction)
	assert.Equal(t, testFOO, pair.BuyRecord.BaseAsset.Mint)
	assert.Equal(t, testSOL, pair.BuyRecord.QuoteAsset.Mint)
	assert.Equal(t, SplitReasonNonCoreToNonCoreViaCore, pair.SplitReason)

	records := res.StorageRecords(cfg)
	require.Len(t, records, 2)
	assert.Equal(t, SourceSplitSell, records[0].ClassificationSource)
	assert.Equal(t, SourceSplitBuy, records[1].ClassificationSource)
	assert.True(t, records[0].TokenOut.Amount.Sub(records[1].TokenIn.Amount).Abs().LessThanOrEqual(splitConsistencyTolerance))
}

func TestParser_RentRefundFilteredOutOfWrapGroupDelta(t *testing.T) {
	cfg := testCoreConfig(t)
	p := NewParser(cfg, nil)

	u := buildBuyUSDCForSOL(t)
	wallet := "Wallet1111111111111111111111111111111111111"
	closedAccountOwner := "ClosedTokenAcct11111111111111111111111111"

	// A near-zero native refund the rent-epsilon should absorb.
	u.BalanceChanges = append(u.BalanceChanges, UpstreamBalanceChange{
		Owner: wallet, Mint: testSOL, ChangeRaw: d("2000"), Decimals: int32p(9),
	})
	u.Actions = append(u.Actions, UpstreamAction{
		Kind: "NATIVE_TRANSFER", Sender: closedAccountOwner, Receiver: wallet, Amount: d("2000"),
	})

	res := p.Parse(u)
	require.True(t, res.Ok())
	// SOL is the quote side here (core-priority over USDC), so the
	// rent-epsilon split shows up in NetWalletReceived. It subtracts the
	// full configured epsilon from the combined native delta, not just
	// the injected refund's actual size, matching the documented
	// min(delta, epsilon) rule.
	assert.True(t, res.Parsed.Single.Amounts.NetWalletReceived.Equal(d("1.999997")))
	assert.True(t, res.Parsed.Single.RentRefundsFiltered)
}

func TestValidate_ExactlyOneAmountZero(t *testing.T) {
	rec := StorageRecord{
		Signature:            "sig",
		ClassificationSource: SourceSingle,
		Amount:               RecordAmount{SellAmount: decimal.Zero, BuyAmount: decimal.Zero},
	}
	err := Validate(rec)
	require.NotNil(t, err)
	assert.Equal(t, ReasonValidationFailed, err.Reason)
}

func TestValidate_NoNegativeAmounts(t *testing.T) {
	rec := StorageRecord{
		Signature:            "sig",
		ClassificationSource: SourceSingle,
		Amount:               RecordAmount{SellAmount: d("-1"), BuyAmount: decimal.Zero},
	}
	err := Validate(rec)
	require.NotNil(t, err)
	assert.Equal(t, ReasonValidationFailed, err.Reason)
}

func TestValidate_NoFabricatedSOL(t *testing.T) {
	sol := d("1")
	rec := StorageRecord{
		Signature:            "sig",
		ClassificationSource: SourceSingle,
		Type:                 DirectionSell,
		Amount:               RecordAmount{SellAmount: d("1"), BuyAmount: decimal.Zero},
		SolAmount:            SolAmount{BuySolAmount: &sol},
	}
	err := Validate(rec)
	require.NotNil(t, err)
	assert.Equal(t, ReasonValidationFailed, err.Reason)
}

func TestCoreConfig_RejectsDuplicateCoreTokens(t *testing.T) {
	_, err := NewCoreConfig([]string{testSOL, testSOL}, []string{testSOL}, nil, d("0.000005"), nil, nil)
	require.Error(t, err)
}

func TestCoreConfig_WrapGroupKeyCollapsesNativeMints(t *testing.T) {
	cfg := testCoreConfig(t)
	assert.Equal(t, cfg.WrapGroupKey(testSOL), cfg.WrapGroupKey(testSOL))
	assert.NotEqual(t, cfg.WrapGroupKey(testSOL), testUSDC)
}

func TestAdapt_MissingDecimalsRecordedAndWarned(t *testing.T) {
	cfg := testCoreConfig(t)
	u := buildBuyUSDCForSOL(t)
	u.BalanceChanges = append(u.BalanceChanges, UpstreamBalanceChange{
		Owner: "Wallet1111111111111111111111111111111111111", Mint: "UnknownMint1111111111111111111111111111111",
		ChangeRaw: d("1"), Decimals: nil,
	})

	tx, erased := Adapt(u, cfg, NopTelemetry{})
	require.Nil(t, erased)
	assert.True(t, tx.MissingDecimalsMints["UnknownMint1111111111111111111111111111111"])
}
