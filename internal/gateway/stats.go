package gateway

import (
	"context"
	"time"

	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/relay"
)

// Snapshot is a point-in-time view of relay state.
type Snapshot struct {
	LinkGroups      int         `json:"link_groups"`
	IndexedMessages int         `json:"indexed_messages"`
	EvictedGroups   uint64      `json:"evicted_groups"`
	DedupEvents     int         `json:"dedup_events"`
	DedupDeliveries int         `json:"dedup_deliveries"`
	InFlight        int64       `json:"in_flight"`
	Panics          uint64      `json:"panics"`
	Relay           relay.Stats `json:"relay"`
}

// Snapshot collects the current counters.
func (gw *Gateway) Snapshot() Snapshot {
	events, deliveries := gw.dedup.Stats()
	return Snapshot{
		LinkGroups:      gw.links.Len(),
		IndexedMessages: gw.links.Indexed(),
		EvictedGroups:   gw.links.Evicted(),
		DedupEvents:     events,
		DedupDeliveries: deliveries,
		InFlight:        gw.active.Load(),
		Panics:          gw.panics.Load(),
		Relay:           gw.orchestrator.Stats(),
	}
}

// StatsReporter logs a snapshot periodically.
type StatsReporter struct {
	enabled  bool
	interval time.Duration
	snapshot func() Snapshot
	logger   *logger.Logger
}

// NewStatsReporter creates a stats reporter. interval is expected to be
// clamped by the caller.
func NewStatsReporter(cfg StatsConfig, interval time.Duration, snapshot func() Snapshot, log *logger.Logger) *StatsReporter {
	return &StatsReporter{
		enabled:  cfg.Enabled,
		interval: interval,
		snapshot: snapshot,
		logger:   log.WithComponent("stats"),
	}
}

// Start runs the ticker loop. Blocks until ctx is cancelled.
func (r *StatsReporter) Start(ctx context.Context) {
	if !r.enabled || r.interval <= 0 {
		return
	}

	r.logger.InfoWithIntention(logger.IntentionStatistics, "Stats reporter started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *StatsReporter) report() {
	s := r.snapshot()
	r.logger.InfoWithIntention(logger.IntentionStatistics, "Relay stats",
		"link_groups", s.LinkGroups,
		"evicted", s.EvictedGroups,
		"dedup_events", s.DedupEvents,
		"received", s.Relay.Received,
		"delivered", s.Relay.Delivered,
		"translate_failures", s.Relay.TranslateFailures,
		"send_failures", s.Relay.SendFailures,
		"in_flight", s.InFlight,
	)
}
