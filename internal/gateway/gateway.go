package gateway

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/relay"
	"github.com/fpt/polyglot/pkg/relay/dedup"
	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/relay/linktable"
)

// Gateway wires a platform adapter to the relay core. Each inbound event is
// handled on its own goroutine.
type Gateway struct {
	config       *Config
	bus          *EventBus
	adapter      Adapter
	translator   domain.Translator
	orchestrator *relay.Orchestrator
	mirror       *relay.Mirror
	links        *linktable.Table
	dedup        *dedup.Guard
	stats        *StatsReporter
	logger       *logger.Logger

	inflight sync.WaitGroup
	active   atomic.Int64
	panics   atomic.Uint64
}

// NewGateway creates a gateway connected to Discord.
func NewGateway(cfg *Config, tr domain.Translator, log *logger.Logger) (*Gateway, error) {
	bus := NewEventBus(256)
	discord, err := NewDiscordAdapter(bus, cfg.Discord, log)
	if err != nil {
		return nil, err
	}
	return NewGatewayWithAdapter(cfg, bus, discord, tr, log)
}

// NewGatewayWithAdapter creates a gateway over an already constructed adapter
// that publishes to bus.
func NewGatewayWithAdapter(cfg *Config, bus *EventBus, adapter Adapter, tr domain.Translator, log *logger.Logger) (*Gateway, error) {
	if log == nil {
		log = logger.Discard()
	}
	links := linktable.New(cfg.Relay.MaxLinkGroups)
	guard := dedup.New(cfg.DedupTTL())

	orch, err := relay.NewOrchestrator(relay.Config{
		Endpoints:     cfg.Endpoints(),
		QuoteMaxRunes: cfg.Relay.QuoteMaxRunes,
	}, tr, adapter, links, guard, log)
	if err != nil {
		guard.Close()
		return nil, errors.Wrap(err, "failed to create relay")
	}

	gw := &Gateway{
		config:       cfg,
		bus:          bus,
		adapter:      adapter,
		translator:   tr,
		orchestrator: orch,
		mirror:       relay.NewMirror(links, adapter, log),
		links:        links,
		dedup:        guard,
		logger:       log.WithComponent("gateway"),
	}
	gw.stats = NewStatsReporter(cfg.Stats, cfg.StatsInterval(), gw.Snapshot, log)
	return gw, nil
}

// Run starts the adapter and processes events. Blocks until ctx is cancelled
// or the adapter fails, then waits for in-flight events.
func (gw *Gateway) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gw.adapter.Start(gctx); err != nil {
			return errors.Wrap(err, "adapter failed")
		}
		return nil
	})
	g.Go(func() error {
		gw.stats.Start(gctx)
		return nil
	})

	for _, ep := range gw.orchestrator.Endpoints() {
		gw.logger.InfoWithIntention(logger.IntentionConfig, "Relaying channel", "language", ep.Tag, "channel", ep.ChannelID)
	}
	gw.logger.InfoWithIntention(logger.IntentionStatus, "Gateway running, processing events")

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-gw.bus.Inbound:
				gw.inflight.Add(1)
				// In-flight events finish even when shutdown starts.
				go gw.dispatch(context.WithoutCancel(gctx), ev)
			}
		}
	})

	err := g.Wait()
	gw.inflight.Wait()
	if err != nil {
		return err
	}
	return ctx.Err()
}

// dispatch handles one event. A panic is contained to the event that caused it.
func (gw *Gateway) dispatch(ctx context.Context, ev Event) {
	defer gw.inflight.Done()
	gw.active.Add(1)
	defer gw.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			gw.panics.Add(1)
			gw.logger.Error("Recovered panic while handling event",
				"kind", ev.Kind.String(), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	gw.Handle(ctx, ev)
}

// Handle routes one event to the relay or the reaction mirror synchronously.
func (gw *Gateway) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventMessage:
		gw.orchestrator.Handle(ctx, ev.Message)
	case EventReaction:
		gw.mirror.OnReaction(ctx, ev.Reaction)
	}
}

// Translator returns the translator the relay uses.
func (gw *Gateway) Translator() domain.Translator { return gw.translator }

// Close stops the adapter and releases dedup timers.
func (gw *Gateway) Close() error {
	err := gw.adapter.Stop()
	gw.dedup.Close()
	return err
}
