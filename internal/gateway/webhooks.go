package gateway

import (
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// discordAPI is the subset of *discordgo.Session the transport calls.
type discordAPI interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// webhookCache keeps one usable webhook per channel, reusing an existing one
// with our name before creating a new one.
type webhookCache struct {
	api  discordAPI
	name string

	mu        sync.Mutex
	byChannel map[string]*discordgo.Webhook
}

func newWebhookCache(api discordAPI, name string) *webhookCache {
	return &webhookCache{api: api, name: name, byChannel: make(map[string]*discordgo.Webhook)}
}

func (c *webhookCache) get(channelID string) (*discordgo.Webhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wh, ok := c.byChannel[channelID]; ok {
		return wh, nil
	}

	hooks, err := c.api.ChannelWebhooks(channelID)
	if err != nil {
		return nil, errors.Wrapf(err, "list webhooks in %s", channelID)
	}
	for _, wh := range hooks {
		// Only incoming webhooks we can execute carry a token.
		if wh.Name == c.name && wh.Token != "" {
			c.byChannel[channelID] = wh
			return wh, nil
		}
	}

	wh, err := c.api.WebhookCreate(channelID, c.name, "")
	if err != nil {
		return nil, errors.Wrapf(err, "create webhook in %s", channelID)
	}
	c.byChannel[channelID] = wh
	return wh, nil
}

// invalidate drops a webhook that stopped working, e.g. deleted by a moderator.
func (c *webhookCache) invalidate(channelID string) {
	c.mu.Lock()
	delete(c.byChannel, channelID)
	c.mu.Unlock()
}

func (c *webhookCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byChannel)
}

// isNotFound reports whether err is a Discord 404 response.
func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode == http.StatusNotFound
	}
	return false
}
