// ============================================================================
// cache/pubsub.go - Redis Pub/Sub Wrapper
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/whaletrack/swap-classifier/internal/models"

	"github.com/redis/go-redis/v9"
)

// PubSubManager fans a record out to multiple channels (all records,
// pair-specific, dex-specific) so downstream consumers can subscribe
// narrowly without filtering the firehose themselves. It is a separate
// concern from RedisCache's single-channel SubscribeRecords, which
// backs the SwapCache interface's simpler contract.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(addr string, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		logger: logger,
	}
}

// PublishRecord fans a classified record out to the all-records
// channel plus its pair- and dex-specific channels.
func (p *PubSubManager) PublishRecord(ctx context.Context, rec *models.SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	channels := []string{
		"swaps:all",
		fmt.Sprintf("swaps:pair:%s", rec.Pair()),
	}
	if rec.Dex != "" {
		channels = append(channels, fmt.Sprintf("swaps:dex:%s", rec.Dex))
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe to a channel
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.SwapRecord)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	p.logger.WithField("channel", channel).Info("subscribed to channel")

	ch := pubsub.Channel()
	for msg := range ch {
		var rec models.SwapRecord
		if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
			p.logger.WithError(err).Warn("error unmarshaling record")
			continue
		}

		handler(&rec)
	}

	return nil
}

// PSubscribe subscribes to a channel pattern (e.g., "swaps:pair:*")
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler func(*models.SwapRecord)) error {
	pubsub := p.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	p.logger.WithField("pattern", pattern).Info("subscribed to pattern")

	ch := pubsub.Channel()
	for msg := range ch {
		var rec models.SwapRecord
		if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
			p.logger.WithError(err).Warn("error unmarshaling record")
			continue
		}

		handler(&rec)
	}

	return nil
}
