package domain

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrUntranslatable is returned by a Translator that declined the text.
	// It is an expected outcome, not a failure.
	ErrUntranslatable = errors.New("text is untranslatable")
	// ErrMessageNotFound is returned by a Transport when the message or its
	// channel no longer exists.
	ErrMessageNotFound = errors.New("message not found")
)

// Translator turns text in one language into another.
type Translator interface {
	Translate(ctx context.Context, text string, source, target Tag) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, text string, source, target Tag) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text string, source, target Tag) (string, error) {
	return f(ctx, text, source, target)
}

// Reactor applies an emoji reaction to a message.
type Reactor interface {
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// Transport delivers and inspects messages on the chat platform.
type Transport interface {
	Reactor

	// Send posts content presenting the given identity and returns the new message id.
	Send(ctx context.Context, msg Outbound) (string, error)
	// SendAsSelf posts content as the relay itself, optionally replying to replyTo.
	SendAsSelf(ctx context.Context, channelID, content, replyTo string) (string, error)
	// FetchMessage returns ErrMessageNotFound when the message is gone.
	FetchMessage(ctx context.Context, channelID, messageID string) (FetchedMessage, error)
}

// ThreadedReplier is implemented by transports that can attach a delivered
// message to an existing one natively. Transports without it get a textual quote.
type ThreadedReplier interface {
	ThreadedReplies() bool
}

// LinkStore holds link groups keyed by every member message id.
type LinkStore interface {
	// Link registers every member of group atomically.
	Link(group LinkGroup) error
	Lookup(messageID string) (LinkGroup, bool)
	Len() int
}

// Deduper suppresses repeated processing within a bounded window.
type Deduper interface {
	ShouldProcess(eventID string) bool
	ShouldDeliver(eventID, channelID string) bool
}
