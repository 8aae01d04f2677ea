package relay

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/relay/classify"
	"github.com/fpt/polyglot/pkg/relay/domain"
)

func TestHandleHelloFriendsScenario(t *testing.T) {
	h := newHarness(t)
	h.translator.replies[domain.TagSpanish] = "hola amigos"
	h.translator.replies[domain.TagPortuguese] = "olá amigos"

	res := h.orch.Handle(context.Background(), englishEvent("m1", "hello friends"))

	if res.Dropped {
		t.Fatalf("event dropped: %s", res.Reason)
	}
	if got := h.translator.Calls(); got != 2 {
		t.Errorf("translator calls = %d, want 2", got)
	}
	if !res.Linked || res.Group.Len() != 3 {
		t.Fatalf("want linked group of 3, got linked=%v len=%d", res.Linked, res.Group.Len())
	}

	es := h.transport.SentTo(chanES)
	pt := h.transport.SentTo(chanPT)
	if len(es) != 1 || es[0].Content != "hola amigos" {
		t.Errorf("ES delivery = %+v", es)
	}
	if len(pt) != 1 || pt[0].Content != "olá amigos" {
		t.Errorf("PT delivery = %+v", pt)
	}
	if es[0].Identity.Name != "Ana" || es[0].Identity.AvatarURL == "" {
		t.Errorf("identity not carried: %+v", es[0].Identity)
	}

	// Every member resolves to the same group.
	for _, m := range res.Group.Members() {
		g, ok := h.links.Lookup(m.MessageID)
		if !ok || g.Len() != 3 {
			t.Errorf("lookup %s: ok=%v len=%d", m.MessageID, ok, g.Len())
		}
	}
	if res.Delivered() != 2 {
		t.Errorf("Delivered() = %d, want 2", res.Delivered())
	}
}

func TestHandleIsIdempotentWithinTTL(t *testing.T) {
	h := newHarness(t)
	ev := englishEvent("m1", "good morning")

	first := h.orch.Handle(context.Background(), ev)
	second := h.orch.Handle(context.Background(), ev)

	if first.Dropped {
		t.Fatalf("first delivery dropped: %s", first.Reason)
	}
	if !second.Dropped || second.Reason != DropDuplicate {
		t.Errorf("second = %v, want dropped duplicate", second)
	}
	if got := len(h.transport.Sent()); got != 2 {
		t.Errorf("sends = %d, want 2", got)
	}
	if got := h.translator.Calls(); got != 2 {
		t.Errorf("translator calls = %d, want 2", got)
	}
}

// alwaysProcess lets an event through admission twice so the per-destination
// marks are what stops the second delivery.
type alwaysProcess struct {
	domain.Deduper
}

func (alwaysProcess) ShouldProcess(string) bool { return true }

func TestHandleSkipsDestinationsAlreadyDelivered(t *testing.T) {
	h := newHarness(t)
	orch, err := NewOrchestrator(Config{Endpoints: testEndpoints}, h.translator, h.transport, h.links, alwaysProcess{h.guard}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ev := englishEvent("m1", "good morning")

	orch.Handle(context.Background(), ev)
	res := orch.Handle(context.Background(), ev)

	for _, tag := range []domain.Tag{domain.TagSpanish, domain.TagPortuguese} {
		if d := deliveryFor(t, res, tag); d.Status != DeliveryDuplicate {
			t.Errorf("%s status = %s, want duplicate", tag, d.Status)
		}
	}
	if got := len(h.transport.Sent()); got != 2 {
		t.Errorf("sends = %d, want 2", got)
	}
	if res.Linked {
		t.Error("a retry with no new deliveries must not relink")
	}
}

func TestHandlePartialDelivery(t *testing.T) {
	tests := []struct {
		name        string
		failSend    []string
		wantMembers int
		wantLinked  bool
	}{
		{name: "all delivered", wantMembers: 3, wantLinked: true},
		{name: "one send fails", failSend: []string{chanPT}, wantMembers: 2, wantLinked: true},
		{name: "nothing delivered", failSend: []string{chanES, chanPT}, wantLinked: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for _, ch := range tt.failSend {
				h.transport.sendFail[ch] = errors.New("boom")
			}

			res := h.orch.Handle(context.Background(), englishEvent("m1", "hello"))

			if res.Linked != tt.wantLinked {
				t.Fatalf("linked = %v, want %v", res.Linked, tt.wantLinked)
			}
			if tt.wantLinked && res.Group.Len() != tt.wantMembers {
				t.Errorf("members = %d, want %d", res.Group.Len(), tt.wantMembers)
			}
			if !tt.wantLinked {
				if _, ok := h.links.Lookup("m1"); ok {
					t.Error("origin should not be linked when nothing was delivered")
				}
				if h.links.Len() != 0 {
					t.Errorf("link table size = %d, want 0", h.links.Len())
				}
			}
			for _, ch := range tt.failSend {
				for _, d := range res.Deliveries {
					if d.ChannelID == ch && d.Status != DeliverySendFailed {
						t.Errorf("channel %s status = %s, want send_failed", ch, d.Status)
					}
				}
			}
		})
	}
}

func TestHandleUntranslatableDestination(t *testing.T) {
	h := newHarness(t)
	h.translator.errs[domain.TagPortuguese] = errors.Wrap(domain.ErrUntranslatable, "skip")

	res := h.orch.Handle(context.Background(), englishEvent("m1", "hello friends"))

	if !h.translator.Called(domain.TagPortuguese) {
		t.Error("PT translation was never attempted")
	}
	if d := deliveryFor(t, res, domain.TagPortuguese); d.Status != DeliveryUntranslatable {
		t.Errorf("PT status = %s, want untranslatable", d.Status)
	}
	if got := h.transport.SentTo(chanPT); len(got) != 0 {
		t.Errorf("PT delivery attempted: %+v", got)
	}
	if !res.Linked || res.Group.Len() != 2 {
		t.Fatalf("want group of 2, got linked=%v len=%d", res.Linked, res.Group.Len())
	}
	if _, ok := res.Group.InChannel(chanPT); ok {
		t.Error("PT must not be a member")
	}
	if h.orch.Stats().Untranslatable != 1 {
		t.Errorf("untranslatable counter = %d", h.orch.Stats().Untranslatable)
	}
}

func TestHandleTranslatorFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.translator.errs[domain.TagSpanish] = context.DeadlineExceeded

	res := h.orch.Handle(context.Background(), englishEvent("m1", "hello"))

	d := deliveryFor(t, res, domain.TagSpanish)
	if d.Status != DeliveryTranslateFailed || !errors.Is(d.Err, context.DeadlineExceeded) {
		t.Errorf("ES delivery = %+v", d)
	}
	if got := h.transport.SentTo(chanPT); len(got) != 1 {
		t.Errorf("PT should still be delivered, got %d", len(got))
	}
	if h.orch.Stats().TranslateFailures != 1 {
		t.Errorf("translate failure counter = %d", h.orch.Stats().TranslateFailures)
	}
}

func TestHandleEmojiOnlyPassesThrough(t *testing.T) {
	h := newHarness(t)

	res := h.orch.Handle(context.Background(), englishEvent("m1", "🔥🔥"))

	if res.Kind != classify.EmojiOrStickerOnly {
		t.Errorf("kind = %s", res.Kind)
	}
	if got := h.translator.Calls(); got != 0 {
		t.Errorf("translator calls = %d, want 0", got)
	}
	for _, m := range h.transport.Sent() {
		if m.Content != "🔥🔥" {
			t.Errorf("content to %s = %q, want raw", m.ChannelID, m.Content)
		}
	}
	if res.Group.Len() != 3 {
		t.Errorf("members = %d, want 3", res.Group.Len())
	}
}

func TestHandleStickerOnlyCarriesAttachment(t *testing.T) {
	h := newHarness(t)
	ev := englishEvent("m1", "")
	ev.Attachments = []string{"https://media.example/sticker.png"}

	res := h.orch.Handle(context.Background(), ev)

	if res.Dropped {
		t.Fatalf("dropped: %s", res.Reason)
	}
	if h.translator.Calls() != 0 {
		t.Error("sticker-only must not be translated")
	}
	for _, m := range h.transport.Sent() {
		if m.Content != "https://media.example/sticker.png" {
			t.Errorf("content = %q", m.Content)
		}
	}
}

func TestHandleAppendsAttachmentsAfterTranslation(t *testing.T) {
	h := newHarness(t)
	h.translator.replies[domain.TagSpanish] = "mira esto"
	ev := englishEvent("m1", "look at this")
	ev.Attachments = []string{"https://files.example/a.jpg"}

	h.orch.Handle(context.Background(), ev)

	es := h.transport.SentTo(chanES)
	if len(es) != 1 || es[0].Content != "mira esto\nhttps://files.example/a.jpg" {
		t.Errorf("ES content = %+v", es)
	}
}

func TestHandleAdmissionDrops(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.RelayEvent
		want DropReason
	}{
		{
			name: "bot author",
			ev:   domain.RelayEvent{MessageID: "b1", ChannelID: chanEN, AuthorIsBot: true, Text: "hi"},
			want: DropBotAuthor,
		},
		{
			name: "unconfigured channel",
			ev:   domain.RelayEvent{MessageID: "u1", ChannelID: "999", Text: "hi"},
			want: DropUnknownChannel,
		},
		{
			name: "empty",
			ev:   domain.RelayEvent{MessageID: "e1", ChannelID: chanEN, Text: "   "},
			want: DropEmpty,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.orch.Handle(context.Background(), tt.ev)
			if !res.Dropped || res.Reason != tt.want {
				t.Errorf("got %v, want dropped %s", res, tt.want)
			}
			if len(h.transport.Sent()) != 0 || h.translator.Calls() != 0 {
				t.Error("dropped event must cause no side effects")
			}
		})
	}
}

func TestHandleReplyQuotesSibling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	parent := h.orch.Handle(ctx, englishEvent("p1", "who wants pizza"))
	esParent, _ := parent.Group.InChannel(chanES)
	ptParent, _ := parent.Group.InChannel(chanPT)
	h.transport.messages[esParent.MessageID] = domain.FetchedMessage{AuthorName: "Ana", Content: "quién quiere pizza"}
	h.transport.messages[ptParent.MessageID] = domain.FetchedMessage{AuthorName: "Ana", Content: "quem quer pizza"}

	reply := englishEvent("r1", "me!")
	reply.ReplyTo = "p1"
	h.translator.replies[domain.TagSpanish] = "¡yo!"
	h.orch.Handle(ctx, reply)

	es := h.transport.SentTo(chanES)
	if len(es) != 2 {
		t.Fatalf("ES sends = %d", len(es))
	}
	if want := "> **Ana**: quién quiere pizza\n¡yo!"; es[1].Content != want {
		t.Errorf("ES reply = %q, want %q", es[1].Content, want)
	}
	mustContain(t, h.transport.SentTo(chanPT)[1].Content, "> **Ana**: quem quer pizza")
}

func TestHandleReplyWithoutSiblingHasNoQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// The parent only reached ES, so PT has no sibling to quote.
	h.transport.sendFail[chanPT] = errors.New("down")
	parent := h.orch.Handle(ctx, englishEvent("p1", "question"))
	delete(h.transport.sendFail, chanPT)
	esParent, _ := parent.Group.InChannel(chanES)
	h.transport.messages[esParent.MessageID] = domain.FetchedMessage{AuthorName: "Ana", Content: "pregunta"}

	reply := englishEvent("r1", "answer")
	reply.ReplyTo = "p1"
	h.orch.Handle(ctx, reply)

	pt := h.transport.SentTo(chanPT)
	if len(pt) != 1 || strings.HasPrefix(pt[0].Content, ">") {
		t.Errorf("PT reply should carry no quote: %+v", pt)
	}
	es := h.transport.SentTo(chanES)
	mustContain(t, es[len(es)-1].Content, "> **Ana**: pregunta")
}

func TestHandleReplyToUnknownOrDeletedMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Linked parent whose copies were deleted: fetch returns not found.
	h.orch.Handle(ctx, englishEvent("p1", "gone soon"))
	reply := englishEvent("r1", "too late")
	reply.ReplyTo = "p1"
	h.orch.Handle(ctx, reply)

	orphan := englishEvent("r2", "hello?")
	orphan.ReplyTo = "never-relayed"
	h.orch.Handle(ctx, orphan)

	for _, m := range h.transport.Sent() {
		if strings.HasPrefix(m.Content, ">") {
			t.Errorf("unexpected quote in %q", m.Content)
		}
	}
}

func TestHandleReplyThreadedTransport(t *testing.T) {
	ft := newFakeTransport()
	h := newHarnessWith(t, ft, threadedTransport{ft})
	ctx := context.Background()

	parent := h.orch.Handle(ctx, englishEvent("p1", "question"))
	reply := englishEvent("r1", "answer")
	reply.ReplyTo = "p1"
	h.orch.Handle(ctx, reply)

	if ft.fetches != 0 {
		t.Errorf("threaded transport should not fetch, got %d fetches", ft.fetches)
	}
	es := ft.SentTo(chanES)
	want, _ := parent.Group.InChannel(chanES)
	if es[1].ReplyTo == nil || *es[1].ReplyTo != want {
		t.Errorf("ES reply target = %+v, want %+v", es[1].ReplyTo, want)
	}
	if strings.HasPrefix(es[1].Content, ">") {
		t.Errorf("threaded reply should not carry a quote: %q", es[1].Content)
	}
}

func TestHandleKeepsMentionsIntact(t *testing.T) {
	h := newHarness(t)
	h.translator.replies[domain.TagSpanish] = "gracias [[T0]] por [[T1]]"
	h.translator.replies[domain.TagPortuguese] = "obrigado"

	h.orch.Handle(context.Background(), englishEvent("m1", "thanks <@42> for <:pog:123456>"))

	if got := h.transport.SentTo(chanES)[0].Content; got != "gracias <@42> por <:pog:123456>" {
		t.Errorf("ES = %q", got)
	}
	if got := h.transport.SentTo(chanPT)[0].Content; got != "obrigado <@42> <:pog:123456>" {
		t.Errorf("PT = %q", got)
	}
}

func TestStatsCounters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, englishEvent("m1", "hello"))
	h.orch.Handle(ctx, englishEvent("m1", "hello"))
	h.orch.Handle(ctx, englishEvent("m2", "👍"))

	s := h.orch.Stats()
	if s.Received != 3 || s.Dropped != 1 || s.Translated != 1 || s.PassedThrough != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.Delivered != 4 || s.Linked != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestValidateEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		eps     []domain.ChannelEndpoint
		wantErr bool
	}{
		{name: "valid", eps: testEndpoints},
		{name: "single", eps: testEndpoints[:1], wantErr: true},
		{name: "duplicate tag", eps: []domain.ChannelEndpoint{{Tag: "en", ChannelID: "1"}, {Tag: "en", ChannelID: "2"}}, wantErr: true},
		{name: "duplicate channel", eps: []domain.ChannelEndpoint{{Tag: "en", ChannelID: "1"}, {Tag: "es", ChannelID: "1"}}, wantErr: true},
		{name: "unknown tag", eps: []domain.ChannelEndpoint{{Tag: "en", ChannelID: "1"}, {Tag: "fr", ChannelID: "2"}}, wantErr: true},
		{name: "blank channel", eps: []domain.ChannelEndpoint{{Tag: "en", ChannelID: "1"}, {Tag: "es", ChannelID: " "}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpoints(tt.eps)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
