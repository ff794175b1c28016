package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/whaletrack/swap-classifier/internal/constants"
	"github.com/whaletrack/swap-classifier/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache implements storage.SwapCache using Redis: a capped recent
// list, a price-prefix key space, and single-channel pub/sub. Multi-
// channel fan-out (per-pair, per-dex) lives in PubSubManager instead,
// since that concern is orthogonal to the cache's read path.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

// RedisConfig holds configuration for Redis connection
type RedisConfig struct {
	Addr   string
	Logger *logrus.Logger
}

// NewRedisCache creates a new Redis cache with connection verification
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to Redis")
	return NewRedisCacheFromClient(client, cfg.Logger), nil
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// AddRecentRecord adds a record to the recent-records list
func (r *RedisCache) AddRecentRecord(ctx context.Context, rec *models.SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := r.client.LPush(ctx, constants.RedisKeyRecentSwaps, data).Err(); err != nil {
		return fmt.Errorf("failed to push to Redis: %w", err)
	}

	if err := r.client.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, int64(constants.MaxRecentSwaps-1)).Err(); err != nil {
		return fmt.Errorf("failed to trim list: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"signature": shortSig(rec.Signature),
		"source":    rec.ClassificationSource,
	}).Debug("added record to cache")

	return nil
}

// UpdatePrice updates the current price for a token
func (r *RedisCache) UpdatePrice(ctx context.Context, token string, price float64) error {
	key := constants.RedisKeyPricePrefix + token

	if err := r.client.Set(ctx, key, price, 0).Err(); err != nil {
		return fmt.Errorf("failed to set price: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"token": token,
		"price": price,
	}).Debug("updated token price")

	return nil
}

// GetRecentRecords retrieves the most recent records
func (r *RedisCache) GetRecentRecords(ctx context.Context, limit int64) ([]*models.SwapRecord, error) {
	data, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent records: %w", err)
	}

	records := make([]*models.SwapRecord, 0, len(data))
	for _, d := range data {
		var rec models.SwapRecord
		if err := json.Unmarshal([]byte(d), &rec); err != nil {
			r.logger.WithError(err).Warn("failed to unmarshal record from cache")
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// GetPrice retrieves the current price for a token
func (r *RedisCache) GetPrice(ctx context.Context, token string) (float64, error) {
	key := constants.RedisKeyPricePrefix + token

	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get price: %w", err)
	}

	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price: %w", err)
	}

	return price, nil
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	r.logger.Debug("closing Redis connection")
	return r.client.Close()
}

// PublishRecord publishes a record to the Pub/Sub channel for real-time consumers
func (r *RedisCache) PublishRecord(ctx context.Context, rec *models.SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record for publish: %w", err)
	}

	subscribers, err := r.client.Publish(ctx, constants.PubSubChannelSwaps, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"signature":   shortSig(rec.Signature),
		"subscribers": subscribers,
	}).Debug("published record to channel")

	return nil
}

// SubscribeRecords creates a subscription to the records channel and
// returns a channel that receives records in real-time. The caller is
// responsible for reading from the channel until the context is
// cancelled.
func (r *RedisCache) SubscribeRecords(ctx context.Context) (<-chan *models.SwapRecord, error) {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelSwaps)

	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to records channel: %w", err)
	}

	r.logger.WithField("channel", constants.PubSubChannelSwaps).Info("subscribed to records channel")

	recordChan := make(chan *models.SwapRecord, 100)

	go func() {
		defer close(recordChan)
		defer func() {
			if err := pubsub.Close(); err != nil {
				r.logger.WithError(err).Warn("error closing pubsub subscription")
			}
		}()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				r.logger.Debug("subscription context cancelled, closing")
				return

			case msg, ok := <-ch:
				if !ok {
					r.logger.Warn("pubsub channel closed unexpectedly")
					return
				}

				var rec models.SwapRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					r.logger.WithError(err).Warn("failed to unmarshal record from pubsub")
					continue
				}

				select {
				case recordChan <- &rec:
				default:
					r.logger.Warn("record channel buffer full, dropping message")
				}
			}
		}
	}()

	return recordChan, nil
}

func shortSig(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
