package domain

import (
	"github.com/pkg/errors"
)

// ChannelEndpoint binds one language tag to one destination channel.
type ChannelEndpoint struct {
	Tag       Tag
	ChannelID string
}

// DisplayIdentity is the name and avatar a relayed copy is presented with.
type DisplayIdentity struct {
	Name      string
	AvatarURL string
}

// RelayEvent is one inbound message-created notification.
type RelayEvent struct {
	MessageID   string
	ChannelID   string
	Author      DisplayIdentity
	AuthorIsBot bool
	Text        string
	// Attachments holds URLs of non-text content (stickers, files).
	Attachments []string
	// ReplyTo is the id of the message being replied to, if any.
	ReplyTo string
}

// HasAttachment reports whether the event carries non-text content.
func (e RelayEvent) HasAttachment() bool { return len(e.Attachments) > 0 }

// ReactionEvent is one inbound reaction-added notification.
type ReactionEvent struct {
	MessageID    string
	ChannelID    string
	Emoji        string
	ReactorIsBot bool
}

// LinkedMessage is one physical message that belongs to a link group.
type LinkedMessage struct {
	MessageID string
	ChannelID string
}

// LinkGroup is the immutable set of messages that represent one relayed event,
// at most one per channel. The zero value is an empty group.
type LinkGroup struct {
	members []LinkedMessage
}

var (
	ErrGroupTooSmall        = errors.New("link group needs at least two members")
	ErrDuplicateGroupMember = errors.New("link group has two members in the same channel")
)

// NewLinkGroup validates and builds a group. Order is preserved.
func NewLinkGroup(members ...LinkedMessage) (LinkGroup, error) {
	if len(members) < 2 {
		return LinkGroup{}, ErrGroupTooSmall
	}
	seenChannels := make(map[string]struct{}, len(members))
	seenMessages := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, dup := seenChannels[m.ChannelID]; dup {
			return LinkGroup{}, errors.Wrapf(ErrDuplicateGroupMember, "channel %s", m.ChannelID)
		}
		if _, dup := seenMessages[m.MessageID]; dup {
			return LinkGroup{}, errors.Errorf("message %s appears twice in link group", m.MessageID)
		}
		seenChannels[m.ChannelID] = struct{}{}
		seenMessages[m.MessageID] = struct{}{}
	}
	return LinkGroup{members: append([]LinkedMessage(nil), members...)}, nil
}

// Len returns the number of members.
func (g LinkGroup) Len() int { return len(g.members) }

// Members returns a copy of the members in link order.
func (g LinkGroup) Members() []LinkedMessage {
	return append([]LinkedMessage(nil), g.members...)
}

// InChannel returns the member that lives in channelID.
func (g LinkGroup) InChannel(channelID string) (LinkedMessage, bool) {
	for _, m := range g.members {
		if m.ChannelID == channelID {
			return m, true
		}
	}
	return LinkedMessage{}, false
}

// Contains reports whether messageID is a member.
func (g LinkGroup) Contains(messageID string) bool {
	for _, m := range g.members {
		if m.MessageID == messageID {
			return true
		}
	}
	return false
}

// Siblings returns every member except messageID.
func (g LinkGroup) Siblings(messageID string) []LinkedMessage {
	out := make([]LinkedMessage, 0, len(g.members))
	for _, m := range g.members {
		if m.MessageID != messageID {
			out = append(out, m)
		}
	}
	return out
}

// Outbound is one message handed to the transport.
type Outbound struct {
	ChannelID string
	Content   string
	Identity  DisplayIdentity
	// ReplyTo is set only for transports that thread replies natively.
	ReplyTo *LinkedMessage
}

// FetchedMessage is what the transport returns for a message lookup.
type FetchedMessage struct {
	AuthorName string
	Content    string
}
