// ============================================================================
// stream/helius.go - Helius WebSocket Client (FREE TIER)
// ============================================================================
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/whaletrack/swap-classifier/internal/diagnostics"
	"github.com/whaletrack/swap-classifier/internal/storage"
	"github.com/whaletrack/swap-classifier/internal/swapcore"
)

// HeliusStream consumes Helius's enhanced transactionSubscribe
// websocket feed (jsonParsed encoding) and runs every delivered
// transaction through the classification pipeline.
type HeliusStream struct {
	apiKey   string
	conn     *websocket.Conn
	parser   *swapcore.Parser
	fixtures diagnostics.FixtureStore
	logger   *logrus.Logger
}

func NewHeliusStream(apiKey string, parser *swapcore.Parser, logger *logrus.Logger) *HeliusStream {
	if logger == nil {
		logger = logrus.New()
	}
	return &HeliusStream{apiKey: apiKey, parser: parser, logger: logger}
}

// WithFixtureStore records every received upstream transaction (before
// classification) so it can later be replayed via /v1/diagnose.
func (h *HeliusStream) WithFixtureStore(fixtures diagnostics.FixtureStore) *HeliusStream {
	h.fixtures = fixtures
	return h
}

// Connect to Helius WebSocket
func (h *HeliusStream) Connect(ctx context.Context) error {
	url := fmt.Sprintf("wss://atlas-mainnet.helius-rpc.com/?api-key=%s", h.apiKey)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	h.conn = conn

	// Subscribe to transaction mentions for popular DEX programs
	subscribeMsg := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "transactionSubscribe",
		"params": []interface{}{
			map[string]interface{}{
				"accountInclude": []string{
					"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", // Raydium AMM
					"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP", // Orca (legacy swap program)
				},
			},
			map[string]interface{}{
				"commitment":                     "confirmed",
				"encoding":                        "jsonParsed",
				"transactionDetails":              "full",
				"showRewards":                     false,
				"maxSupportedTransactionVersion":  0,
			},
		},
	}

	if err := conn.WriteJSON(subscribeMsg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	h.logger.Info("connected to Helius WebSocket")
	return nil
}

// Start begins listening for transactions, classifying each one and
// dispatching its storage records to handler.
func (h *HeliusStream) Start(ctx context.Context, handler storage.RecordHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			var msg map[string]interface{}
			if err := h.conn.ReadJSON(&msg); err != nil {
				h.logger.WithError(err).Warn("websocket read error")
				time.Sleep(5 * time.Second)
				continue
			}

			upstream, ok := parseHeliusMessage(msg)
			if !ok {
				continue
			}
			classifyAndDispatch(ctx, h.parser, upstream, handler, h.fixtures, h.logger)
		}
	}
}

func (h *HeliusStream) Stop() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Close()
}

// parseHeliusMessage decodes one transactionSubscribe notification
// (jsonParsed encoding) into an UpstreamTx. Helius's enhanced feed
// mirrors the standard getTransaction meta shape (preBalances/
// postBalances, preTokenBalances/postTokenBalances), just delivered
// over the websocket instead of polled.
func parseHeliusMessage(data map[string]interface{}) (swapcore.UpstreamTx, bool) {
	params, ok := data["params"].(map[string]interface{})
	if !ok {
		return swapcore.UpstreamTx{}, false
	}
	result, ok := params["result"].(map[string]interface{})
	if !ok {
		return swapcore.UpstreamTx{}, false
	}
	value, ok := result["value"].(map[string]interface{})
	if !ok {
		return swapcore.UpstreamTx{}, false
	}

	signature, _ := value["signature"].(string)
	if signature == "" {
		return swapcore.UpstreamTx{}, false
	}

	txSection, _ := value["transaction"].(map[string]interface{})
	meta, _ := txSection["meta"].(map[string]interface{})
	message, _ := mapPath(txSection, "transaction", "message")

	accountKeys := stringSlice(message["accountKeys"])
	numSigners := 0
	if header, ok := message["header"].(map[string]interface{}); ok {
		numSigners = int(numberOf(header["numRequiredSignatures"]))
	}

	failed := meta["err"] != nil
	fee := uint64(numberOf(meta["fee"]))

	preLamports := uint64Slice(meta["preBalances"])
	postLamports := uint64Slice(meta["postBalances"])
	preTokens := rawTokenBalanceSlice(meta["preTokenBalances"])
	postTokens := rawTokenBalanceSlice(meta["postTokenBalances"])

	blockTime := time.Now().Unix()
	if bt, ok := value["blockTime"]; ok {
		blockTime = int64(numberOf(bt))
	}

	return buildUpstreamTx(signature, blockTime, failed, fee, accountKeys, numSigners,
		preLamports, postLamports, preTokens, postTokens), true
}

func mapPath(root map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	cur := root
	for _, k := range keys {
		next, ok := cur[k].(map[string]interface{})
		if !ok {
			return map[string]interface{}{}, false
		}
		cur = next
	}
	return cur, true
}

func numberOf(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func stringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		} else if m, ok := e.(map[string]interface{}); ok {
			if s, ok := m["pubkey"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func uint64Slice(v interface{}) []uint64 {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(list))
	for _, e := range list {
		out = append(out, uint64(numberOf(e)))
	}
	return out
}

func rawTokenBalanceSlice(v interface{}) []rawTokenBalance {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]rawTokenBalance, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		owner, _ := m["owner"].(string)
		mint, _ := m["mint"].(string)
		uiAmt, _ := m["uiTokenAmount"].(map[string]interface{})
		amtStr, _ := uiAmt["amount"].(string)
		amt, _ := decimalFromString(amtStr)
		out = append(out, rawTokenBalance{
			AccountIndex: uint16(numberOf(m["accountIndex"])),
			Mint:         mint,
			Owner:        owner,
			Decimals:     int32(numberOf(uiAmt["decimals"])),
			Amount:       amt,
		})
	}
	return out
}
