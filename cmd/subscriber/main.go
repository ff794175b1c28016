// ============================================================================
// cmd/subscriber/main.go - Example Subscriber (Consumer)
// ============================================================================
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/whaletrack/swap-classifier/internal/cache"
	"github.com/whaletrack/swap-classifier/internal/config"
	"github.com/whaletrack/swap-classifier/internal/models"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	pubsub := cache.NewPubSubManager(cfg.RedisAddr, logger)

	logger.Info("starting swap subscriber")

	// Subscribe to every classified record
	go func() {
		_ = pubsub.Subscribe(ctx, "swaps:all", func(rec *models.SwapRecord) {
			logger.WithFields(logrus.Fields{
				"signature": rec.Signature,
				"pair":      rec.Pair(),
				"type":      rec.Type,
				"sell":      rec.SellAmount,
				"buy":       rec.BuyAmount,
			}).Info("received swap")
		})
	}()

	// Subscribe to one specific pair
	go func() {
		_ = pubsub.Subscribe(ctx, "swaps:pair:SOL/USDC", func(rec *models.SwapRecord) {
			logger.WithFields(logrus.Fields{
				"sell": rec.SellAmount,
				"buy":  rec.BuyAmount,
			}).Info("SOL/USDC swap")
		})
	}()

	// Subscribe to every pair via pattern match
	go func() {
		_ = pubsub.PSubscribe(ctx, "swaps:pair:*", func(rec *models.SwapRecord) {
			logger.WithField("pair", rec.Pair()).Debug("pattern match")
		})
	}()

	logger.Info("subscriber running, press ctrl+c to stop")

	<-sigChan
	logger.Info("shutting down subscriber")
}
