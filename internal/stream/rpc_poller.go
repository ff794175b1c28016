// ============================================================================
// stream/rpc_poller.go - Free RPC Polling Alternative
// ============================================================================
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/whaletrack/swap-classifier/internal/diagnostics"
	"github.com/whaletrack/swap-classifier/internal/storage"
	"github.com/whaletrack/swap-classifier/internal/swapcore"
)

// RPCPoller polls getSignaturesForAddress for each tracked DEX program
// and runs every newly observed transaction through the classification
// pipeline. cmd/indexer selects it when STREAM_PROVIDER is "rpc" (the
// default) or "triton".
type RPCPoller struct {
	client           *rpc.Client
	programAddresses []solana.PublicKey
	lastSignature    map[string]solana.Signature
	pollInterval     time.Duration
	parser           *swapcore.Parser
	fixtures         diagnostics.FixtureStore
	logger           *logrus.Logger
}

func NewRPCPoller(rpcURL string, parser *swapcore.Parser, logger *logrus.Logger) *RPCPoller {
	if logger == nil {
		logger = logrus.New()
	}
	return &RPCPoller{
		client: rpc.New(rpcURL),
		programAddresses: []solana.PublicKey{
			solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"), // Raydium AMM
		},
		lastSignature: map[string]solana.Signature{},
		pollInterval:  10 * time.Second, // slower to avoid rate limits on public RPC
		parser:        parser,
		logger:        logger,
	}
}

// WithFixtureStore records every polled upstream transaction (before
// classification) so it can later be replayed via /v1/diagnose.
func (r *RPCPoller) WithFixtureStore(fixtures diagnostics.FixtureStore) *RPCPoller {
	r.fixtures = fixtures
	return r
}

// Start begins polling for new signatures, classifying each resolved
// transaction and dispatching its storage records to handler.
func (r *RPCPoller) Start(ctx context.Context, handler storage.RecordHandler) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.logger.Info("starting RPC polling")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, program := range r.programAddresses {
				if err := r.pollProgram(ctx, program, handler); err != nil {
					r.logger.WithError(err).Warn("poll error")
				}
			}
		}
	}
}

func (r *RPCPoller) Stop() error { return nil }

func (r *RPCPoller) pollProgram(ctx context.Context, program solana.PublicKey, handler storage.RecordHandler) error {
	limit := 10
	opts := &rpc.GetSignaturesForAddressOpts{Limit: &limit}
	if until, ok := r.lastSignature[program.String()]; ok {
		opts.Until = until
	}

	sigs, err := r.client.GetSignaturesForAddressWithOpts(ctx, program, opts)
	if err != nil {
		return fmt.Errorf("getSignaturesForAddress: %w", err)
	}
	if len(sigs) == 0 {
		r.logger.Debug("no new transactions")
		return nil
	}

	r.lastSignature[program.String()] = sigs[0].Signature
	r.logger.WithField("count", len(sigs)).Debug("found new signatures")

	maxVersion := uint64(0)
	for i := len(sigs) - 1; i >= 0; i-- {
		entry := sigs[i]
		if entry.Err != nil {
			continue
		}

		result, err := r.client.GetTransaction(ctx, entry.Signature, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil {
			r.logger.WithError(err).WithField("signature", entry.Signature.String()).Warn("getTransaction failed")
			continue
		}
		if result == nil || result.Meta == nil {
			continue
		}

		upstream := r.adapt(entry, result)
		classifyAndDispatch(ctx, r.parser, upstream, handler, r.fixtures, r.logger)
	}

	return nil
}

func (r *RPCPoller) adapt(entry *rpc.TransactionSignature, result *rpc.GetTransactionResult) swapcore.UpstreamTx {
	var accountKeys []string
	var numSigners int

	if tx, err := result.Transaction.GetTransaction(); err == nil && tx != nil {
		for _, k := range tx.Message.AccountKeys {
			accountKeys = append(accountKeys, k.String())
		}
		numSigners = int(tx.Message.Header.NumRequiredSignatures)
	}

	blockTime := time.Now().Unix()
	if entry.BlockTime != nil {
		blockTime = int64(*entry.BlockTime)
	} else if result.BlockTime != nil {
		blockTime = int64(*result.BlockTime)
	}

	return buildUpstreamTx(
		entry.Signature.String(),
		blockTime,
		result.Meta.Err != nil,
		result.Meta.Fee,
		accountKeys,
		numSigners,
		result.Meta.PreBalances,
		result.Meta.PostBalances,
		toRawTokenBalances(result.Meta.PreTokenBalances),
		toRawTokenBalances(result.Meta.PostTokenBalances),
	)
}

func toRawTokenBalances(in []rpc.TokenBalance) []rawTokenBalance {
	out := make([]rawTokenBalance, 0, len(in))
	for _, tb := range in {
		owner := ""
		if tb.Owner != nil {
			owner = tb.Owner.String()
		}
		amount := decimalFromUiTokenAmount(tb.UiTokenAmount)
		out = append(out, rawTokenBalance{
			AccountIndex: uint16(tb.AccountIndex),
			Mint:         tb.Mint.String(),
			Owner:        owner,
			Decimals:     int32(decimalsOf(tb.UiTokenAmount)),
			Amount:       amount,
		})
	}
	return out
}
