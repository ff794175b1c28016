// Package telemetry provides the host-level swapcore.Telemetry
// implementation: structured logging via logrus plus the in-memory
// counters the HTTP read surface exposes (§6's "per-reason rejection
// counters"). The core itself holds no counters (spec §9's "no global
// counters" redesign note) — this is where that state actually lives.
package telemetry

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/whaletrack/swap-classifier/internal/swapcore"
)

// LogrusTelemetry implements swapcore.Telemetry.
type LogrusTelemetry struct {
	logger *logrus.Logger

	mu         sync.Mutex
	rejections map[swapcore.RejectionReason]int64
	emitted    map[swapcore.ClassificationSource]int64
}

// New constructs a LogrusTelemetry. logger may be nil, in which case a
// default logrus.Logger is used.
func New(logger *logrus.Logger) *LogrusTelemetry {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogrusTelemetry{
		logger:     logger,
		rejections: map[swapcore.RejectionReason]int64{},
		emitted:    map[swapcore.ClassificationSource]int64{},
	}
}

func (t *LogrusTelemetry) IncRejection(reason swapcore.RejectionReason) {
	t.mu.Lock()
	t.rejections[reason]++
	t.mu.Unlock()
	t.logger.WithField("reason", reason).Debug("rejected transaction")
}

func (t *LogrusTelemetry) IncEmitted(source swapcore.ClassificationSource) {
	t.mu.Lock()
	t.emitted[source]++
	t.mu.Unlock()
}

func (t *LogrusTelemetry) Warn(msg string, fields map[string]any) {
	t.logger.WithFields(logrus.Fields(fields)).Warn(msg)
}

// RejectionCounts returns a snapshot of rejection counts keyed by reason.
func (t *LogrusTelemetry) RejectionCounts() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.rejections))
	for k, v := range t.rejections {
		out[string(k)] = v
	}
	return out
}

// EmittedCounts returns a snapshot of emitted counts keyed by source.
func (t *LogrusTelemetry) EmittedCounts() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.emitted))
	for k, v := range t.emitted {
		out[string(k)] = v
	}
	return out
}
