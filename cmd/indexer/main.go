// ============================================================================
// cmd/indexer/main.go - Main Indexer Service
// ============================================================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whaletrack/swap-classifier/internal/cache"
	"github.com/whaletrack/swap-classifier/internal/config"
	"github.com/whaletrack/swap-classifier/internal/diagnostics"
	"github.com/whaletrack/swap-classifier/internal/models"
	"github.com/whaletrack/swap-classifier/internal/storage"
	"github.com/whaletrack/swap-classifier/internal/stream"
	"github.com/whaletrack/swap-classifier/internal/swapcore"
	"github.com/whaletrack/swap-classifier/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Indexer wires one classified record (or split pair) to every
// downstream sink: the recent-records cache, the price feed, the
// pub/sub fan-out, and permanent ClickHouse storage.
type Indexer struct {
	redis      *cache.RedisCache
	clickhouse *cache.ClickHouseStore
	pubsub     *cache.PubSubManager
	logger     *logrus.Logger
}

func NewIndexer(ctx context.Context, cfg *config.Config, rclient *redis.Client, logger *logrus.Logger) (*Indexer, error) {
	redisCache := cache.NewRedisCacheFromClient(rclient, logger)

	clickhouse, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	pubsub := cache.NewPubSubManager(cfg.RedisAddr, logger)

	return &Indexer{
		redis:      redisCache,
		clickhouse: clickhouse,
		pubsub:     pubsub,
		logger:     logger,
	}, nil
}

// ProcessRecords handles every record a single upstream transaction
// produced. A Single-direction swap arrives as one record; a
// synthesized split swap arrives as its sell leg and buy leg together,
// so they can be written to ClickHouse as one atomic unit (spec §6:
// a split pair must never be observable as only one leg).
func (idx *Indexer) ProcessRecords(ctx context.Context, signature string, recs []*models.SwapRecord) {
	for _, rec := range recs {
		if err := idx.redis.AddRecentRecord(ctx, rec); err != nil {
			idx.logger.WithError(err).Warn("redis cache error")
		}
		if price := rec.ParsePrice(); price > 0 {
			if err := idx.redis.UpdatePrice(ctx, rec.TokenOutSymbol, price); err != nil {
				idx.logger.WithError(err).Warn("price update error")
			}
		}
		if err := idx.pubsub.PublishRecord(ctx, rec); err != nil {
			idx.logger.WithError(err).Warn("pub/sub error")
		}
	}

	switch len(recs) {
	case 1:
		if err := idx.clickhouse.InsertOne(ctx, recs[0]); err != nil {
			idx.logger.WithError(err).Error("clickhouse insert error")
		}
	case 2:
		sell, buy := recs[0], recs[1]
		if sell.ClassificationSource != string(swapcore.SourceSplitSell) {
			sell, buy = buy, sell
		}
		if err := idx.clickhouse.InsertPairAtomic(ctx, sell, buy); err != nil {
			idx.logger.WithError(err).Error("clickhouse split-pair insert error")
		}
	default:
		idx.logger.WithField("count", len(recs)).Warn("unexpected record count for one transaction")
	}

	idx.logger.WithFields(logrus.Fields{
		"signature": signature,
		"records":   len(recs),
	}).Debug("processed transaction")
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	indexer, err := NewIndexer(ctx, cfg, rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build indexer")
	}

	fixtures := diagnostics.NewRedisFixtureStore(rclient, cfg.DiagnoseFixtureTTL)
	tel := telemetry.New(logger)
	parser := swapcore.NewParser(cfg.Core, tel)

	logger.Info("starting solana swap indexer")

	handler := storage.RecordHandler(func(signature string, recs []*models.SwapRecord) {
		indexer.ProcessRecords(ctx, signature, recs)
	})

	streamProvider := cfg.StreamProvider
	if streamProvider == "" {
		streamProvider = "rpc"
	}

	var provider storage.StreamProvider
	switch streamProvider {
	case "helius":
		apiKey := os.Getenv("HELIUS_API_KEY")
		if apiKey == "" {
			logger.Fatal("HELIUS_API_KEY required when using helius provider")
		}
		logger.Info("using helius websocket stream")
		heliusStream := stream.NewHeliusStream(apiKey, parser, logger).WithFixtureStore(fixtures)
		if err := heliusStream.Connect(ctx); err != nil {
			logger.WithError(err).Fatal("failed to connect to helius")
		}
		provider = heliusStream

	case "triton":
		apiKey := cfg.TritonAPIKey
		if apiKey == "" {
			logger.Fatal("TRITON_API_KEY required when using triton provider")
		}
		rpcURL := fmt.Sprintf("https://api.mainnet.solana.triton.one/%s", apiKey)
		logger.Info("using triton rpc polling")
		provider = stream.NewRPCPoller(rpcURL, parser, logger).WithFixtureStore(fixtures)

	case "rpc":
		rpcURL := cfg.RPCUrl
		if rpcURL == "" {
			rpcURL = "https://api.mainnet-beta.solana.com"
		}
		logger.WithField("rpc_url", rpcURL).Info("using public rpc polling")
		provider = stream.NewRPCPoller(rpcURL, parser, logger).WithFixtureStore(fixtures)

	default:
		logger.Fatalf("unknown stream provider: %s", streamProvider)
	}

	go func() {
		if err := provider.Start(ctx, handler); err != nil {
			logger.WithError(err).Error("stream provider stopped")
		}
	}()

	logger.Info("indexer running, press ctrl+c to stop")
	<-sigChan
	logger.Info("shutting down")
	cancel()
	_ = provider.Stop()

	time.Sleep(200 * time.Millisecond) // let in-flight sink writes finish
}
