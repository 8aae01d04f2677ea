package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/relay/dedup"
	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/relay/linktable"
)

const (
	chanEN = "100"
	chanES = "200"
	chanPT = "300"
)

var testEndpoints = []domain.ChannelEndpoint{
	{Tag: domain.TagEnglish, ChannelID: chanEN},
	{Tag: domain.TagSpanish, ChannelID: chanES},
	{Tag: domain.TagPortuguese, ChannelID: chanPT},
}

// fakeTranslator answers from a per-target table. Targets without an entry
// get "<target>:<text>".
type fakeTranslator struct {
	mu      sync.Mutex
	calls   []domain.Tag
	replies map[domain.Tag]string
	errs    map[domain.Tag]error
}

func (f *fakeTranslator) Translate(_ context.Context, text string, _, target domain.Tag) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)
	if err := f.errs[target]; err != nil {
		return "", err
	}
	if r, ok := f.replies[target]; ok {
		return r, nil
	}
	return fmt.Sprintf("%s:%s", target, text), nil
}

func (f *fakeTranslator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTranslator) Called(tag domain.Tag) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == tag {
			return true
		}
	}
	return false
}

type reaction struct {
	channelID, messageID, emoji string
}

// fakeTransport records everything it is asked to do.
type fakeTransport struct {
	mu        sync.Mutex
	next      int
	sent      []domain.Outbound
	sendFail  map[string]error
	messages  map[string]domain.FetchedMessage
	fetches   int
	reactions []reaction
	reactFail map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sendFail:  map[string]error{},
		messages:  map[string]domain.FetchedMessage{},
		reactFail: map[string]error{},
	}
}

func (f *fakeTransport) Send(_ context.Context, msg domain.Outbound) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendFail[msg.ChannelID]; err != nil {
		return "", err
	}
	f.next++
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("sent-%d", f.next), nil
}

func (f *fakeTransport) SendAsSelf(ctx context.Context, channelID, content, _ string) (string, error) {
	return f.Send(ctx, domain.Outbound{ChannelID: channelID, Content: content})
}

func (f *fakeTransport) FetchMessage(_ context.Context, _, messageID string) (domain.FetchedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	m, ok := f.messages[messageID]
	if !ok {
		return domain.FetchedMessage{}, errors.Wrapf(domain.ErrMessageNotFound, "message %s", messageID)
	}
	return m, nil
}

func (f *fakeTransport) React(_ context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reactFail[messageID]; err != nil {
		return err
	}
	f.reactions = append(f.reactions, reaction{channelID, messageID, emoji})
	return nil
}

func (f *fakeTransport) Sent() []domain.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Outbound(nil), f.sent...)
}

func (f *fakeTransport) SentTo(channelID string) []domain.Outbound {
	var out []domain.Outbound
	for _, m := range f.Sent() {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

// threadedTransport advertises native reply threading.
type threadedTransport struct {
	*fakeTransport
}

func (threadedTransport) ThreadedReplies() bool { return true }

type harness struct {
	orch       *Orchestrator
	translator *fakeTranslator
	transport  *fakeTransport
	links      *linktable.Table
	guard      *dedup.Guard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, newFakeTransport(), nil)
}

func newHarnessWith(t *testing.T, ft *fakeTransport, transport domain.Transport) *harness {
	t.Helper()
	if transport == nil {
		transport = ft
	}
	h := &harness{
		translator: &fakeTranslator{replies: map[domain.Tag]string{}, errs: map[domain.Tag]error{}},
		transport:  ft,
		links:      linktable.New(0),
		guard:      dedup.New(dedup.DefaultTTL),
	}
	t.Cleanup(h.guard.Close)
	orch, err := NewOrchestrator(Config{Endpoints: testEndpoints}, h.translator, transport, h.links, h.guard, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	h.orch = orch
	return h
}

func englishEvent(id, text string) domain.RelayEvent {
	return domain.RelayEvent{
		MessageID: id,
		ChannelID: chanEN,
		Author:    domain.DisplayIdentity{Name: "Ana", AvatarURL: "https://cdn.example/ana.png"},
		Text:      text,
	}
}

func deliveryFor(t *testing.T, res Result, tag domain.Tag) Delivery {
	t.Helper()
	for _, d := range res.Deliveries {
		if d.Tag == tag {
			return d
		}
	}
	t.Fatalf("no delivery record for %s in %v", tag, res)
	return Delivery{}
}

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Errorf("expected %q to contain %q", s, sub)
	}
}
