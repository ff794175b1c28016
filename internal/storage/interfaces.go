package storage

import (
	"context"
	"io"

	"github.com/whaletrack/swap-classifier/internal/models"
)

// SwapCache defines the interface for caching classified swap records.
type SwapCache interface {
	// AddRecentRecord adds a record to the recent-records list.
	AddRecentRecord(ctx context.Context, rec *models.SwapRecord) error

	// UpdatePrice updates the current price for a token.
	UpdatePrice(ctx context.Context, token string, price float64) error

	// GetRecentRecords retrieves the most recent records.
	GetRecentRecords(ctx context.Context, limit int64) ([]*models.SwapRecord, error)

	// GetPrice retrieves the current price for a token.
	GetPrice(ctx context.Context, token string) (float64, error)

	// Ping checks if the cache is reachable.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	io.Closer

	// PublishRecord publishes a record to the Pub/Sub channel.
	PublishRecord(ctx context.Context, rec *models.SwapRecord) error

	// SubscribeRecords subscribes to real-time records.
	SubscribeRecords(ctx context.Context) (<-chan *models.SwapRecord, error)
}

// SwapStore defines the interface for persistent swap-record storage.
//
// InsertOne stores a single classified record (the common case: a
// Single-direction swap, or either half of a split pair considered in
// isolation). InsertPairAtomic stores a split pair's two halves as one
// unit: spec §6 requires a split pair to be observable either as both
// rows present or as neither — never one leg alone — so a store backed
// by a transactional engine must wrap both inserts in one transaction,
// and a store with no multi-statement transactions (e.g. ClickHouse)
// must use a single batched write instead.
type SwapStore interface {
	// InsertOne inserts a single classified swap record. The
	// (signature, classification_source) pair is the uniqueness key:
	// re-inserting the same pair must be a no-op or idempotent upsert,
	// never a duplicate row (spec §6).
	InsertOne(ctx context.Context, rec *models.SwapRecord) error

	// InsertPairAtomic inserts both halves of a synthesized split swap
	// as a single atomic unit.
	InsertPairAtomic(ctx context.Context, sell, buy *models.SwapRecord) error

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	io.Closer
}

// RecordHandler is a function that processes every record a single
// upstream transaction produced: one record for a Single-direction
// swap, two (sell leg, buy leg) for a synthesized split swap. Batching
// per-transaction, rather than delivering one record at a time, lets
// the caller route a split pair to SwapStore.InsertPairAtomic without
// reassembling it from separate callbacks.
type RecordHandler func(signature string, recs []*models.SwapRecord)

// StreamProvider defines the interface for upstream transaction
// streaming; the handler receives every record one upstream
// transaction produced together (the stream-side adapter runs the SCC
// pipeline before invoking it).
type StreamProvider interface {
	// Start begins streaming classified records.
	Start(ctx context.Context, handler RecordHandler) error

	// Stop stops the stream provider.
	Stop() error
}
