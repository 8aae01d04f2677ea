package gateway

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/relay/domain"
)

const (
	maxMessageLen  = 2000
	maxUsernameLen = 80
	stickerCDN     = "https://media.discordapp.net/stickers/"
)

// DiscordAdapter connects to the Discord gateway, publishes message and
// reaction events to the bus and implements domain.Transport over webhooks.
type DiscordAdapter struct {
	session  *discordgo.Session
	api      discordAPI
	bus      *EventBus
	webhooks *webhookCache
	logger   *logger.Logger

	mu        sync.RWMutex
	botUserID string
}

// NewDiscordAdapter creates a Discord adapter.
func NewDiscordAdapter(bus *EventBus, cfg DiscordConfig, log *logger.Logger) (*DiscordAdapter, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}

	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMessageReactions

	a := newDiscordAdapter(dg, bus, cfg.WebhookName, log)
	a.session = dg

	dg.AddHandler(a.handleReady)
	dg.AddHandler(a.handleMessage)
	dg.AddHandler(a.handleReaction)

	return a, nil
}

func newDiscordAdapter(api discordAPI, bus *EventBus, webhookName string, log *logger.Logger) *DiscordAdapter {
	if webhookName == "" {
		webhookName = "Polyglot"
	}
	return &DiscordAdapter{
		api:      api,
		bus:      bus,
		webhooks: newWebhookCache(api, webhookName),
		logger:   log.WithComponent("discord"),
	}
}

func (a *DiscordAdapter) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	a.mu.Lock()
	a.botUserID = r.User.ID
	a.mu.Unlock()
	a.logger.InfoWithIntention(logger.IntentionSuccess, "Discord bot connected", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (a *DiscordAdapter) selfID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.botUserID
}

func (a *DiscordAdapter) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ev, ok := toRelayEvent(m.Message, a.selfID())
	if !ok {
		return
	}
	a.bus.Inbound <- MessageEvent(ev)
}

func (a *DiscordAdapter) handleReaction(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	a.bus.Inbound <- ReactionAddedEvent(toReactionEvent(r, a.selfID()))
}

// toRelayEvent converts a created message. System messages (joins, pins,
// boosts) are not relayable and report false.
func toRelayEvent(m *discordgo.Message, selfID string) (domain.RelayEvent, bool) {
	if m == nil || m.Author == nil {
		return domain.RelayEvent{}, false
	}
	if m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply {
		return domain.RelayEvent{}, false
	}

	ev := domain.RelayEvent{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		Author: domain.DisplayIdentity{
			Name:      displayName(m.Member, m.Author),
			AvatarURL: m.Author.AvatarURL(""),
		},
		// Webhook posts include our own relayed copies.
		AuthorIsBot: m.Author.Bot || m.WebhookID != "" || (selfID != "" && m.Author.ID == selfID),
		Text:        m.Content,
	}
	for _, att := range m.Attachments {
		if att != nil && att.URL != "" {
			ev.Attachments = append(ev.Attachments, att.URL)
		}
	}
	for _, st := range m.StickerItems {
		if st != nil {
			ev.Attachments = append(ev.Attachments, stickerURL(st))
		}
	}
	if m.Type == discordgo.MessageTypeReply && m.MessageReference != nil {
		ev.ReplyTo = m.MessageReference.MessageID
	}
	return ev, true
}

func toReactionEvent(r *discordgo.MessageReactionAdd, selfID string) domain.ReactionEvent {
	isBot := selfID != "" && r.UserID == selfID
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		isBot = true
	}
	return domain.ReactionEvent{
		MessageID:    r.MessageID,
		ChannelID:    r.ChannelID,
		Emoji:        r.Emoji.APIName(),
		ReactorIsBot: isBot,
	}
}

// displayName prefers the guild nickname, then the global display name.
func displayName(member *discordgo.Member, u *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func stickerURL(st *discordgo.StickerItem) string {
	ext := ".png"
	if st.FormatType == discordgo.StickerFormatTypeGIF {
		ext = ".gif"
	}
	return stickerCDN + st.ID + ext
}

// Start connects to Discord and blocks until ctx is cancelled.
func (a *DiscordAdapter) Start(ctx context.Context) error {
	a.logger.InfoWithIntention(logger.IntentionStatus, "Starting Discord adapter")

	if err := a.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open discord connection")
	}

	<-ctx.Done()
	return a.session.Close()
}

// Stop closes the Discord connection.
func (a *DiscordAdapter) Stop() error {
	if a.session == nil {
		return nil
	}
	return a.session.Close()
}

// Send posts msg through the channel's webhook under the author's name and
// avatar. Content over 2000 characters is split; the first chunk's id is
// returned. Once the first chunk is posted the send counts as delivered, so a
// failing later chunk is logged rather than returned and the posted copy can
// still be linked.
func (a *DiscordAdapter) Send(ctx context.Context, msg domain.Outbound) (string, error) {
	if msg.ReplyTo != nil {
		// Webhooks cannot thread; the relay sends a textual quote instead.
		a.logger.DebugWithIntention(logger.IntentionDebug, "Ignoring threaded reply target on webhook send", "channel", msg.ChannelID)
	}

	var firstID string
	chunks := splitMessage(msg.Content, maxMessageLen)
	for i, chunk := range chunks {
		err := ctx.Err()
		var m *discordgo.Message
		if err == nil {
			m, err = a.executeWebhook(msg.ChannelID, &discordgo.WebhookParams{
				Content:         chunk,
				Username:        webhookUsername(msg.Identity.Name),
				AvatarURL:       msg.Identity.AvatarURL,
				AllowedMentions: userMentionsOnly(),
			})
		}
		if err != nil {
			if i == 0 {
				return "", err
			}
			a.logger.Warn("Message truncated, later chunk failed",
				"channel", msg.ChannelID, "chunk", i+1, "chunks", len(chunks), "error", err)
			return firstID, nil
		}
		if i == 0 {
			firstID = m.ID
		}
	}
	return firstID, nil
}

// executeWebhook retries once with a fresh webhook when the cached one is gone.
func (a *DiscordAdapter) executeWebhook(channelID string, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	for attempt := 0; ; attempt++ {
		wh, err := a.webhooks.get(channelID)
		if err != nil {
			return nil, err
		}
		m, err := a.api.WebhookExecute(wh.ID, wh.Token, true, params)
		if err == nil {
			if m == nil {
				return nil, errors.Errorf("webhook in %s returned no message", channelID)
			}
			return m, nil
		}
		if isNotFound(err) && attempt == 0 {
			a.webhooks.invalidate(channelID)
			continue
		}
		return nil, errors.Wrapf(err, "execute webhook in %s", channelID)
	}
}

// SendAsSelf posts as the bot user, replying to replyTo when set.
func (a *DiscordAdapter) SendAsSelf(_ context.Context, channelID, content, replyTo string) (string, error) {
	send := &discordgo.MessageSend{Content: content, AllowedMentions: userMentionsOnly()}
	if replyTo != "" {
		send.Reference = &discordgo.MessageReference{MessageID: replyTo, ChannelID: channelID}
	}
	m, err := a.api.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		return "", errors.Wrapf(err, "send message to %s", channelID)
	}
	return m.ID, nil
}

// FetchMessage returns domain.ErrMessageNotFound for deleted messages.
func (a *DiscordAdapter) FetchMessage(_ context.Context, channelID, messageID string) (domain.FetchedMessage, error) {
	m, err := a.api.ChannelMessage(channelID, messageID)
	if err != nil {
		if isNotFound(err) {
			return domain.FetchedMessage{}, errors.Wrapf(domain.ErrMessageNotFound, "message %s in %s", messageID, channelID)
		}
		return domain.FetchedMessage{}, errors.Wrapf(err, "fetch message %s", messageID)
	}
	fm := domain.FetchedMessage{Content: m.Content}
	if m.Author != nil {
		fm.AuthorName = displayName(m.Member, m.Author)
	}
	return fm, nil
}

func (a *DiscordAdapter) React(_ context.Context, channelID, messageID, emoji string) error {
	if err := a.api.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		if isNotFound(err) {
			return errors.Wrapf(domain.ErrMessageNotFound, "message %s in %s", messageID, channelID)
		}
		return errors.Wrapf(err, "react on %s", messageID)
	}
	return nil
}

// ThreadedReplies is false: webhook messages cannot reference another message.
func (a *DiscordAdapter) ThreadedReplies() bool { return false }

// WebhookCount reports how many channel webhooks are cached.
func (a *DiscordAdapter) WebhookCount() int { return a.webhooks.len() }

func userMentionsOnly() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
	}
}

// Discord rejects webhook usernames containing these words.
var (
	discordWordRe = regexp.MustCompile(`(?i)discord`)
	clydeWordRe   = regexp.MustCompile(`(?i)clyde`)
	usernameStrip = strings.NewReplacer("@", "", "#", "", ":", "", "```", "")
)

// webhookUsername fits a display name into Discord's webhook username rules.
func webhookUsername(name string) string {
	name = strings.TrimSpace(usernameStrip.Replace(name))
	// Swap one letter so the word no longer matches, keeping the rest of the casing.
	name = discordWordRe.ReplaceAllStringFunc(name, func(w string) string { return w[:4] + "0" + w[5:] })
	name = clydeWordRe.ReplaceAllStringFunc(name, func(w string) string { return w[:4] + "3" })
	switch strings.ToLower(name) {
	case "":
		return "Unknown"
	case "everyone", "here":
		name += " (relay)"
	}
	if utf8.RuneCountInString(name) > maxUsernameLen {
		name = string([]rune(name)[:maxUsernameLen])
	}
	return name
}

// splitMessage splits text into chunks of at most maxLen runes, preferring
// newline boundaries.
func splitMessage(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}

		// Find last newline within limit
		cutAt := maxLen
		for i := maxLen - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cutAt = i + 1
				break
			}
		}

		chunks = append(chunks, string(runes[:cutAt]))
		runes = runes[cutAt:]
	}
	return chunks
}

var (
	_ Adapter                = (*DiscordAdapter)(nil)
	_ domain.ThreadedReplier = (*DiscordAdapter)(nil)
)
