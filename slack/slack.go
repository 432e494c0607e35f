// Package slack adapts the slack-go client to the library's action and event
// contracts. Slack messages are identified by (channel, timestamp); the
// timestamp is carried in MessageRef.MessageID. Emoji are slack reaction
// names without the surrounding colons.
package slack

import (
	"context"
	"fmt"
	"strings"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/gosuda/waitfor/menu"
	"github.com/gosuda/waitfor/reaction"
	"github.com/gosuda/waitfor/stream"
)

// API abstracts the subset of the Slack client used by this package.
// This allows testing without real HTTP calls.
type API interface {
	AddReactionContext(ctx context.Context, name string, item slacklib.ItemRef) error
	RemoveReactionContext(ctx context.Context, name string, item slacklib.ItemRef) error
	GetReactionsContext(ctx context.Context, item slacklib.ItemRef, params slacklib.GetReactionsParameters) ([]slacklib.ItemReaction, error)
	DeleteMessageContext(ctx context.Context, channel, messageTimestamp string) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slacklib.MsgOption) (string, string, string, error)
}

// Client implements reaction.ActionClient for Slack.
type Client struct {
	api API
}

// Compile-time interface check.
var _ reaction.ActionClient = (*Client)(nil) //nolint:gochecknoglobals // compile-time check

// NewClient creates a Client with the given API client.
func NewClient(api API) *Client {
	return &Client{api: api}
}

// AddReaction attaches emoji to the message as the bot user.
func (c *Client) AddReaction(ctx context.Context, msg reaction.MessageRef, emoji reaction.Emoji) error {
	err := c.api.AddReactionContext(ctx, Name(emoji), ref(msg))
	if err != nil {
		return fmt.Errorf("slack.Client.AddReaction: %w", classify(err))
	}
	return nil
}

// RemoveReaction removes the bot's own emoji from the message. Slack does
// not let a bot remove another user's reaction, so userID is ignored.
func (c *Client) RemoveReaction(ctx context.Context, msg reaction.MessageRef, emoji reaction.Emoji, _ string) error {
	err := c.api.RemoveReactionContext(ctx, Name(emoji), ref(msg))
	if err != nil {
		return fmt.Errorf("slack.Client.RemoveReaction: %w", classify(err))
	}
	return nil
}

// RemoveAllReactions lists the reactions on the message and removes each of
// the bot's own. Slack has no remove-all call.
func (c *Client) RemoveAllReactions(ctx context.Context, msg reaction.MessageRef) error {
	reactions, err := c.api.GetReactionsContext(ctx, ref(msg), slacklib.GetReactionsParameters{})
	if err != nil {
		return fmt.Errorf("slack.Client.RemoveAllReactions: %w", classify(err))
	}
	for _, r := range reactions {
		if err := c.api.RemoveReactionContext(ctx, r.Name, ref(msg)); err != nil {
			return fmt.Errorf("slack.Client.RemoveAllReactions: %q: %w", r.Name, classify(err))
		}
	}
	return nil
}

// DeleteMessage deletes the message.
func (c *Client) DeleteMessage(ctx context.Context, msg reaction.MessageRef) error {
	if _, _, err := c.api.DeleteMessageContext(ctx, msg.ChannelID, msg.MessageID); err != nil {
		return fmt.Errorf("slack.Client.DeleteMessage: %w", classify(err))
	}
	return nil
}

// Renderer implements menu.Renderer by updating the menu message in place.
// Embeds are not supported on Slack; only Page.Content is rendered.
type Renderer struct {
	api API
}

// Compile-time interface check.
var _ menu.Renderer = (*Renderer)(nil) //nolint:gochecknoglobals // compile-time check

// NewRenderer creates a Renderer with the given API client.
func NewRenderer(api API) *Renderer {
	return &Renderer{api: api}
}

// Render updates the message to show the page.
func (r *Renderer) Render(ctx context.Context, msg reaction.MessageRef, page menu.Page, indicator string) error {
	content := page.Content
	if indicator != "" {
		content += "\n\n" + indicator
	}
	_, _, _, err := r.api.UpdateMessageContext(ctx, msg.ChannelID, msg.MessageID, slacklib.MsgOptionText(content, false))
	if err != nil {
		return fmt.Errorf("slack.Renderer.Render: %w", classify(err))
	}
	return nil
}

// Name strips the surrounding colons from an emoji so either ":tada:" or
// "tada" can be passed as reaction.Emoji.
func Name(e reaction.Emoji) string {
	return strings.Trim(string(e), ":")
}

func ref(msg reaction.MessageRef) slacklib.ItemRef {
	return slacklib.NewRefToMessage(msg.ChannelID, msg.MessageID)
}

// classify maps Slack API error strings onto the library's transient action
// errors so cleanup paths can recognise them.
func classify(err error) error {
	switch err.Error() {
	case "message_not_found", "channel_not_found", "no_item_specified":
		return fmt.Errorf("%w: %s", reaction.ErrUnknownMessage, err)
	case "missing_scope", "not_allowed", "restricted_action", "cant_delete_message":
		return fmt.Errorf("%w: %s", reaction.ErrPermissionDenied, err)
	}
	return err
}

// MapReactionAdded converts an Events API reaction_added payload for
// dispatching. ok is false for non-message items.
func MapReactionAdded(e *slackevents.ReactionAddedEvent) (reaction.Event, bool) {
	if e == nil || e.Item.Type != "message" {
		return reaction.Event{}, false
	}
	return reaction.Event{
		Message: reaction.MessageRef{ChannelID: e.Item.Channel, MessageID: e.Item.Timestamp},
		UserID:  e.User,
		Emoji:   reaction.Emoji(e.Reaction),
		Action:  reaction.ReactionAdded,
	}, true
}

// MapReactionRemoved converts an Events API reaction_removed payload for
// dispatching. ok is false for non-message items.
func MapReactionRemoved(e *slackevents.ReactionRemovedEvent) (reaction.Event, bool) {
	if e == nil || e.Item.Type != "message" {
		return reaction.Event{}, false
	}
	return reaction.Event{
		Message: reaction.MessageRef{ChannelID: e.Item.Channel, MessageID: e.Item.Timestamp},
		UserID:  e.User,
		Emoji:   reaction.Emoji(e.Reaction),
		Action:  reaction.ReactionRemoved,
	}, true
}

// MapMessage converts an Events API message payload for dispatching to the
// message stream. Edits, deletions, and bot messages yield ok=false.
func MapMessage(e *slackevents.MessageEvent, selfID string) (stream.PostedMessage, bool) {
	if e == nil || e.SubType != "" || e.User == "" || e.User == selfID {
		return stream.PostedMessage{}, false
	}
	return stream.PostedMessage{
		ChannelID: e.Channel,
		MessageID: e.TimeStamp,
		UserID:    e.User,
		Content:   e.Text,
	}, true
}
