package relay

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/relay/classify"
	"github.com/fpt/polyglot/pkg/relay/domain"
)

// DropReason explains why an event never reached delivery.
type DropReason string

const (
	DropNone           DropReason = ""
	DropBotAuthor      DropReason = "bot_author"
	DropUnknownChannel DropReason = "unknown_channel"
	DropDuplicate      DropReason = "duplicate"
	DropEmpty          DropReason = "empty"
)

// DeliveryStatus is the outcome for one destination channel.
type DeliveryStatus string

const (
	DeliveryDelivered       DeliveryStatus = "delivered"
	DeliveryUntranslatable  DeliveryStatus = "untranslatable"
	DeliveryTranslateFailed DeliveryStatus = "translate_failed"
	DeliveryDuplicate       DeliveryStatus = "duplicate"
	DeliverySendFailed      DeliveryStatus = "send_failed"
)

// Delivery records what happened for one destination.
type Delivery struct {
	Tag       domain.Tag
	ChannelID string
	Status    DeliveryStatus
	// MessageID is set when Status is DeliveryDelivered.
	MessageID string
	Err       error
}

// Result describes how one RelayEvent was handled.
type Result struct {
	TraceID    string
	Dropped    bool
	Reason     DropReason
	Kind       classify.Kind
	Deliveries []Delivery
	// Group is the registered link group; zero when nothing was linked.
	Group  domain.LinkGroup
	Linked bool
}

// Delivered returns how many destinations received a copy.
func (r Result) Delivered() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Status == DeliveryDelivered {
			n++
		}
	}
	return n
}

// Config holds the orchestrator settings that are fixed at startup.
type Config struct {
	// Endpoints in delivery order.
	Endpoints     []domain.ChannelEndpoint
	QuoteMaxRunes int
}

// Stats is a point-in-time copy of the relay counters.
type Stats struct {
	Received          uint64 `json:"received"`
	Dropped           uint64 `json:"dropped"`
	Translated        uint64 `json:"translated"`
	PassedThrough     uint64 `json:"passed_through"`
	Delivered         uint64 `json:"delivered"`
	Untranslatable    uint64 `json:"untranslatable"`
	TranslateFailures uint64 `json:"translate_failures"`
	SendFailures      uint64 `json:"send_failures"`
	Linked            uint64 `json:"linked"`
}

type counters struct {
	received, dropped, translated, passedThrough  atomic.Uint64
	delivered, untranslatable, translateFailures atomic.Uint64
	sendFailures, linked                         atomic.Uint64
}

// Orchestrator admits inbound messages, fans them out to the other language
// channels and links the copies together.
type Orchestrator struct {
	endpoints     []domain.ChannelEndpoint
	byChannel     map[string]domain.Tag
	translator    domain.Translator
	transport     domain.Transport
	links         domain.LinkStore
	dedup         domain.Deduper
	quoteMaxRunes int
	logger        *logger.Logger
	counters      counters
}

// NewOrchestrator validates the endpoint set and wires the collaborators.
func NewOrchestrator(cfg Config, tr domain.Translator, tp domain.Transport, links domain.LinkStore, dedup domain.Deduper, log *logger.Logger) (*Orchestrator, error) {
	if tr == nil || tp == nil || links == nil || dedup == nil {
		return nil, errors.New("orchestrator needs a translator, transport, link store and deduper")
	}
	if err := ValidateEndpoints(cfg.Endpoints); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	byChannel := make(map[string]domain.Tag, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		byChannel[ep.ChannelID] = ep.Tag
	}
	return &Orchestrator{
		endpoints:     append([]domain.ChannelEndpoint(nil), cfg.Endpoints...),
		byChannel:     byChannel,
		translator:    tr,
		transport:     tp,
		links:         links,
		dedup:         dedup,
		quoteMaxRunes: cfg.QuoteMaxRunes,
		logger:        log.WithComponent("relay"),
	}, nil
}

// ValidateEndpoints checks that there are at least two endpoints with known,
// unique tags and unique channel ids.
func ValidateEndpoints(endpoints []domain.ChannelEndpoint) error {
	if len(endpoints) < 2 {
		return errors.Errorf("need at least two channel endpoints, got %d", len(endpoints))
	}
	tags := make(map[domain.Tag]bool, len(endpoints))
	channels := make(map[string]bool, len(endpoints))
	for _, ep := range endpoints {
		if _, ok := domain.LookupLanguage(ep.Tag); !ok {
			return errors.Errorf("unknown language %q", ep.Tag)
		}
		if strings.TrimSpace(ep.ChannelID) == "" {
			return errors.Errorf("language %s has no channel id", ep.Tag)
		}
		if tags[ep.Tag] {
			return errors.Errorf("language %s configured twice", ep.Tag)
		}
		if channels[ep.ChannelID] {
			return errors.Errorf("channel %s configured twice", ep.ChannelID)
		}
		tags[ep.Tag] = true
		channels[ep.ChannelID] = true
	}
	return nil
}

// Endpoints returns the configured endpoints in delivery order.
func (o *Orchestrator) Endpoints() []domain.ChannelEndpoint {
	return append([]domain.ChannelEndpoint(nil), o.endpoints...)
}

// Stats returns the current counters.
func (o *Orchestrator) Stats() Stats {
	c := &o.counters
	return Stats{
		Received:          c.received.Load(),
		Dropped:           c.dropped.Load(),
		Translated:        c.translated.Load(),
		PassedThrough:     c.passedThrough.Load(),
		Delivered:         c.delivered.Load(),
		Untranslatable:    c.untranslatable.Load(),
		TranslateFailures: c.translateFailures.Load(),
		SendFailures:      c.sendFailures.Load(),
		Linked:            c.linked.Load(),
	}
}

// Handle runs one inbound message through admission, classification,
// translation, delivery and linking. Collaborator failures never abort the
// event; they are reported per destination in the Result.
func (o *Orchestrator) Handle(ctx context.Context, ev domain.RelayEvent) Result {
	res := Result{TraceID: uuid.NewString()}
	log := o.logger.WithEvent(ev.MessageID, res.TraceID)
	o.counters.received.Add(1)

	source, reason := o.admit(ev)
	if reason != DropNone {
		return o.drop(log, res, reason)
	}

	res.Kind = classify.Classify(ev.Text, ev.HasAttachment())
	if res.Kind == classify.Empty {
		return o.drop(log, res, DropEmpty)
	}

	destinations := o.destinations(source)
	contents := make(map[domain.Tag]Translation, len(destinations))
	text := strings.TrimSpace(ev.Text)

	switch {
	case res.Kind == classify.EmojiOrStickerOnly || text == "":
		o.counters.passedThrough.Add(1)
		log.DebugWithIntention(logger.IntentionPassthrough, "Relaying without translation", "kind", res.Kind.String())
		for _, ep := range destinations {
			contents[ep.Tag] = Translation{Target: ep.Tag, Text: text, Status: TranslationOK}
		}
	default:
		o.counters.translated.Add(1)
		targets := make([]domain.Tag, len(destinations))
		for i, ep := range destinations {
			targets[i] = ep.Tag
		}
		log.DebugWithIntention(logger.IntentionTranslate, "Translating", "from", source, "targets", len(targets))
		for _, tr := range TranslateAll(ctx, o.translator, text, source, targets) {
			contents[tr.Target] = tr
		}
	}

	replyGroup, hasReplyGroup := o.replyGroup(ev)

	members := []domain.LinkedMessage{{MessageID: ev.MessageID, ChannelID: ev.ChannelID}}
	for _, ep := range destinations {
		d := o.deliver(ctx, log, ev, ep, contents[ep.Tag], replyGroup, hasReplyGroup)
		res.Deliveries = append(res.Deliveries, d)
		if d.Status == DeliveryDelivered {
			members = append(members, domain.LinkedMessage{MessageID: d.MessageID, ChannelID: d.ChannelID})
		}
	}

	if len(members) < 2 {
		log.InfoWithIntention(logger.IntentionRelay, "Nothing delivered", "destinations", len(destinations))
		return res
	}
	group, err := domain.NewLinkGroup(members...)
	if err == nil {
		err = o.links.Link(group)
	}
	if err != nil {
		log.Warn("Failed to link relayed messages", "error", err)
		return res
	}
	res.Group, res.Linked = group, true
	o.counters.linked.Add(1)
	log.InfoWithIntention(logger.IntentionLink, "Relayed and linked", "from", source, "members", group.Len())
	return res
}

// admit applies the admission gates in order and returns the source tag.
// The dedup mark is taken last so dropped events never occupy the window.
func (o *Orchestrator) admit(ev domain.RelayEvent) (domain.Tag, DropReason) {
	if ev.AuthorIsBot {
		return "", DropBotAuthor
	}
	source, ok := o.byChannel[ev.ChannelID]
	if !ok {
		return "", DropUnknownChannel
	}
	if !o.dedup.ShouldProcess(ev.MessageID) {
		return "", DropDuplicate
	}
	return source, DropNone
}

func (o *Orchestrator) drop(log *logger.Logger, res Result, reason DropReason) Result {
	o.counters.dropped.Add(1)
	res.Dropped, res.Reason = true, reason
	log.DebugWithIntention(logger.IntentionDrop, "Dropped event", "reason", string(reason))
	return res
}

func (o *Orchestrator) destinations(source domain.Tag) []domain.ChannelEndpoint {
	out := make([]domain.ChannelEndpoint, 0, len(o.endpoints)-1)
	for _, ep := range o.endpoints {
		if ep.Tag != source {
			out = append(out, ep)
		}
	}
	return out
}

func (o *Orchestrator) replyGroup(ev domain.RelayEvent) (domain.LinkGroup, bool) {
	if ev.ReplyTo == "" {
		return domain.LinkGroup{}, false
	}
	return o.links.Lookup(ev.ReplyTo)
}

func (o *Orchestrator) deliver(ctx context.Context, log *logger.Logger, ev domain.RelayEvent, ep domain.ChannelEndpoint, tr Translation, replyGroup domain.LinkGroup, hasReplyGroup bool) Delivery {
	d := Delivery{Tag: ep.Tag, ChannelID: ep.ChannelID}

	switch tr.Status {
	case TranslationUntranslatable:
		o.counters.untranslatable.Add(1)
		d.Status = DeliveryUntranslatable
		log.DebugWithIntention(logger.IntentionTranslate, "Translator declined text", "destination", ep.Tag)
		return d
	case TranslationFailed:
		o.counters.translateFailures.Add(1)
		d.Status, d.Err = DeliveryTranslateFailed, tr.Err
		log.Warn("Translation failed", "destination", ep.Tag, "error", tr.Err)
		return d
	}

	if !o.dedup.ShouldDeliver(ev.MessageID, ep.ChannelID) {
		d.Status = DeliveryDuplicate
		log.DebugWithIntention(logger.IntentionDrop, "Already delivered", "destination", ep.Tag)
		return d
	}

	out := domain.Outbound{ChannelID: ep.ChannelID, Identity: ev.Author}
	var quote string
	if hasReplyGroup {
		quote, out.ReplyTo = o.resolveReply(ctx, log, replyGroup, ep.ChannelID)
	}
	out.Content = composeContent(quote, tr.Text, ev.Attachments)

	id, err := o.transport.Send(ctx, out)
	if err != nil {
		o.counters.sendFailures.Add(1)
		d.Status, d.Err = DeliverySendFailed, err
		log.Warn("Send failed", "destination", ep.Tag, "error", err)
		return d
	}
	o.counters.delivered.Add(1)
	d.Status, d.MessageID = DeliveryDelivered, id
	return d
}

// resolveReply finds the sibling of the replied-to message in channelID and
// returns either a threaded reply target or a textual quote.
func (o *Orchestrator) resolveReply(ctx context.Context, log *logger.Logger, group domain.LinkGroup, channelID string) (string, *domain.LinkedMessage) {
	sibling, ok := group.InChannel(channelID)
	if !ok {
		return "", nil
	}
	if tr, ok := o.transport.(domain.ThreadedReplier); ok && tr.ThreadedReplies() {
		return "", &sibling
	}

	msg, err := o.transport.FetchMessage(ctx, sibling.ChannelID, sibling.MessageID)
	if err != nil {
		if !errors.Is(err, domain.ErrMessageNotFound) {
			log.Warn("Failed to fetch reply target", "channel", channelID, "message", sibling.MessageID, "error", err)
		}
		return "", nil
	}
	return FormatQuote(msg.AuthorName, msg.Content, o.quoteMaxRunes), nil
}

func composeContent(quote, text string, attachments []string) string {
	parts := make([]string, 0, 2+len(attachments))
	if quote != "" {
		parts = append(parts, quote)
	}
	if text != "" {
		parts = append(parts, text)
	}
	parts = append(parts, attachments...)
	return strings.Join(parts, "\n")
}

// String renders a compact summary for logs and the CLI.
func (r Result) String() string {
	if r.Dropped {
		return fmt.Sprintf("dropped (%s)", r.Reason)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", r.Kind)
	for _, d := range r.Deliveries {
		fmt.Fprintf(&b, " %s=%s", d.Tag, d.Status)
	}
	return b.String()
}
