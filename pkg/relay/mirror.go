package relay

import (
	"context"
	"strings"

	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/relay/domain"
)

// MirrorResult counts sibling reactions applied and failed.
type MirrorResult struct {
	Mirrored int
	Failed   int
}

// Mirror copies reactions across every message of a link group.
type Mirror struct {
	links   domain.LinkStore
	reactor domain.Reactor
	logger  *logger.Logger
}

func NewMirror(links domain.LinkStore, reactor domain.Reactor, log *logger.Logger) *Mirror {
	if log == nil {
		log = logger.Discard()
	}
	return &Mirror{links: links, reactor: reactor, logger: log.WithComponent("mirror")}
}

// OnReaction applies ev's emoji to every sibling of the reacted message.
// Reactions from bots, including our own mirrored ones, are ignored.
func (m *Mirror) OnReaction(ctx context.Context, ev domain.ReactionEvent) MirrorResult {
	var res MirrorResult
	if ev.ReactorIsBot || strings.TrimSpace(ev.Emoji) == "" {
		return res
	}
	group, ok := m.links.Lookup(ev.MessageID)
	if !ok {
		return res
	}

	for _, sib := range group.Siblings(ev.MessageID) {
		if err := m.reactor.React(ctx, sib.ChannelID, sib.MessageID, ev.Emoji); err != nil {
			res.Failed++
			m.logger.Warn("Failed to mirror reaction", "channel", sib.ChannelID, "message", sib.MessageID, "emoji", ev.Emoji, "error", err)
			continue
		}
		res.Mirrored++
	}
	m.logger.DebugWithIntention(logger.IntentionReaction, "Mirrored reaction",
		"message", ev.MessageID, "emoji", ev.Emoji, "mirrored", res.Mirrored, "failed", res.Failed)
	return res
}
