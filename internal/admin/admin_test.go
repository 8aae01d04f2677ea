package admin

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/fpt/polyglot/internal/gateway"
	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/relay"
	"github.com/fpt/polyglot/pkg/relay/domain"
)

func prefixTranslator() domain.Translator {
	return domain.TranslatorFunc(func(_ context.Context, text string, _, target domain.Tag) (string, error) {
		if target == domain.TagPortuguese {
			return "", domain.ErrUntranslatable
		}
		return string(target) + ":" + text, nil
	})
}

func newTestServer(t *testing.T, snapshot SnapshotFunc, tr domain.Translator) *Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(snapshot, tr, logger.Discard()).Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL)
}

func TestStatsRoundTrip(t *testing.T) {
	want := gateway.Snapshot{
		LinkGroups:      3,
		IndexedMessages: 9,
		DedupEvents:     2,
		Panics:          1,
		Relay:           relay.Stats{Received: 4, Delivered: 7, Untranslatable: 1},
	}
	c := newTestServer(t, func() gateway.Snapshot { return want }, prefixTranslator())

	got, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got != want {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}
}

func TestStatsWithoutGateway(t *testing.T) {
	c := newTestServer(t, nil, prefixTranslator())
	_, err := c.Stats(context.Background())
	if connect.CodeOf(err) != connect.CodeUnavailable {
		t.Errorf("code = %v, want unavailable", connect.CodeOf(err))
	}
}

func TestTranslateDryRun(t *testing.T) {
	c := newTestServer(t, nil, prefixTranslator())

	lines, err := c.Translate(context.Background(), "hello", domain.TagEnglish)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Status != "original" || lines[0].Text != "hello" {
		t.Errorf("original = %+v", lines[0])
	}
	if lines[1].Tag != domain.TagSpanish || lines[1].Text != "es:hello" {
		t.Errorf("spanish = %+v", lines[1])
	}
	if lines[2].Tag != domain.TagPortuguese || lines[2].Status != "untranslatable" {
		t.Errorf("portuguese = %+v", lines[2])
	}
}

func TestTranslateRejectsBadInput(t *testing.T) {
	c := newTestServer(t, nil, prefixTranslator())
	tests := []struct {
		name string
		text string
		from domain.Tag
	}{
		{name: "blank text", text: "  ", from: domain.TagEnglish},
		{name: "unknown language", text: "bonjour", from: "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Translate(context.Background(), tt.text, tt.from)
			if connect.CodeOf(err) != connect.CodeInvalidArgument {
				t.Errorf("code = %v, want invalid argument (err %v)", connect.CodeOf(err), err)
			}
		})
	}
}

func TestStartServerStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, addr, NewServer(nil, prefixTranslator(), nil)) }()

	c := NewClient(nil, addr)
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := c.Translate(context.Background(), "hi", domain.TagSpanish)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("StartServer = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
