package cache

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/whaletrack/swap-classifier/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

const insertRecordQuery = `
	INSERT INTO swap_records (
		signature, type, classification_source, swapper, timestamp, confidence,
		sell_amount, buy_amount, sell_sol_amount, buy_sol_amount,
		token_in_mint, token_in_symbol, token_in_amount,
		token_out_mint, token_out_symbol, token_out_amount,
		dex, program_id,
		tx_fee_native, tx_fee_quote, platform_fee, priority_fee, total_fee_quote
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertOne inserts a single classified swap record. ClickHouse's
// ReplacingMergeTree (ordered by signature, classification_source) is
// expected to collapse duplicate re-inserts, so this is a plain insert
// rather than an upsert.
func (c *ClickHouseStore) InsertOne(ctx context.Context, rec *models.SwapRecord) error {
	if err := c.conn.Exec(ctx, insertRecordQuery, recordArgs(rec)...); err != nil {
		return fmt.Errorf("failed to insert swap record: %w", err)
	}
	return nil
}

// InsertPairAtomic inserts both halves of a split swap as a single
// batch (spec §6: a split pair must never be observable with only one
// leg present). ClickHouse has no multi-statement transactions, so
// atomicity here means "one batch, one network round trip" rather than
// rollback-on-failure; PrepareBatch's Send is a single insert block.
func (c *ClickHouseStore) InsertPairAtomic(ctx context.Context, sell, buy *models.SwapRecord) error {
	batch, err := c.conn.PrepareBatch(ctx, insertRecordQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare split-pair batch: %w", err)
	}

	if err := batch.Append(recordArgs(sell)...); err != nil {
		return fmt.Errorf("failed to append sell leg: %w", err)
	}
	if err := batch.Append(recordArgs(buy)...); err != nil {
		return fmt.Errorf("failed to append buy leg: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send split-pair batch: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"signature": sell.Signature, "intermediate_mint": sell.TokenOutMint,
	}).Debug("inserted split pair")

	return nil
}

func recordArgs(rec *models.SwapRecord) []any {
	return []any{
		rec.Signature, rec.Type, rec.ClassificationSource, rec.Swapper, rec.Timestamp, rec.Confidence,
		rec.SellAmount, rec.BuyAmount, rec.SellSolAmount, rec.BuySolAmount,
		rec.TokenInMint, rec.TokenInSymbol, rec.TokenInAmount,
		rec.TokenOutMint, rec.TokenOutSymbol, rec.TokenOutAmount,
		rec.Dex, rec.ProgramID,
		rec.TxFeeNative, rec.TxFeeQuote, rec.PlatformFee, rec.PriorityFee, rec.TotalFeeQuote,
	}
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
