// Package discord adapts the bwmarrin/discordgo client to the library's
// action and event contracts: a reaction.ActionClient over the REST API, a
// menu.Renderer over message edits, and a gateway binding that feeds the
// stream dispatchers.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/gosuda/waitfor/menu"
	"github.com/gosuda/waitfor/reaction"
	"github.com/gosuda/waitfor/stream"
)

// Session abstracts the subset of *discordgo.Session used by this package.
// This allows testing without real HTTP calls.
type Session interface {
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Client implements reaction.ActionClient for Discord.
type Client struct {
	session Session
}

// Compile-time interface check.
var _ reaction.ActionClient = (*Client)(nil) //nolint:gochecknoglobals // compile-time check

// NewClient creates a Client with the given session.
func NewClient(session Session) *Client {
	return &Client{session: session}
}

// AddReaction attaches emoji to the message as the bot user.
func (c *Client) AddReaction(ctx context.Context, msg reaction.MessageRef, emoji reaction.Emoji) error {
	err := c.session.MessageReactionAdd(msg.ChannelID, msg.MessageID, string(emoji), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord.Client.AddReaction: %w", classify(err))
	}
	return nil
}

// RemoveReaction removes one user's emoji from the message.
func (c *Client) RemoveReaction(ctx context.Context, msg reaction.MessageRef, emoji reaction.Emoji, userID string) error {
	err := c.session.MessageReactionRemove(msg.ChannelID, msg.MessageID, string(emoji), userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord.Client.RemoveReaction: %w", classify(err))
	}
	return nil
}

// RemoveAllReactions strips every reaction from the message.
func (c *Client) RemoveAllReactions(ctx context.Context, msg reaction.MessageRef) error {
	err := c.session.MessageReactionsRemoveAll(msg.ChannelID, msg.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord.Client.RemoveAllReactions: %w", classify(err))
	}
	return nil
}

// DeleteMessage deletes the message.
func (c *Client) DeleteMessage(ctx context.Context, msg reaction.MessageRef) error {
	err := c.session.ChannelMessageDelete(msg.ChannelID, msg.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord.Client.DeleteMessage: %w", classify(err))
	}
	return nil
}

// classify maps Discord REST error codes onto the library's transient action
// errors so cleanup paths can recognise them.
func classify(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %s", reaction.ErrPermissionDenied, rest.Message.Message)
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %s", reaction.ErrUnknownMessage, rest.Message.Message)
		}
	}
	return err
}

// Renderer implements menu.Renderer by editing the menu message in place.
type Renderer struct {
	session Session
}

// Compile-time interface check.
var _ menu.Renderer = (*Renderer)(nil) //nolint:gochecknoglobals // compile-time check

// NewRenderer creates a Renderer with the given session.
func NewRenderer(session Session) *Renderer {
	return &Renderer{session: session}
}

// Render edits the message to show the page. A *discordgo.MessageEmbed in
// Page.Embed takes precedence over text content; the page indicator is
// appended to text pages and set as the footer of embed pages.
func (r *Renderer) Render(ctx context.Context, msg reaction.MessageRef, page menu.Page, indicator string) error {
	if embed, ok := page.Embed.(*discordgo.MessageEmbed); ok && embed != nil {
		if indicator != "" {
			withFooter := *embed
			withFooter.Footer = &discordgo.MessageEmbedFooter{Text: indicator}
			embed = &withFooter
		}
		if _, err := r.session.ChannelMessageEditEmbed(msg.ChannelID, msg.MessageID, embed, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord.Renderer.Render: %w", classify(err))
		}
		return nil
	}

	content := page.Content
	if indicator != "" {
		content += "\n\n" + indicator
	}
	if _, err := r.session.ChannelMessageEdit(msg.ChannelID, msg.MessageID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord.Renderer.Render: %w", classify(err))
	}
	return nil
}

// Gateway abstracts handler registration on *discordgo.Session.
type Gateway interface {
	AddHandler(handler interface{}) func()
}

// Bind registers gateway handlers that feed reaction and message events into
// the dispatchers. Events produced by selfID (the bot) are dropped at the
// source. messages may be nil when message prompts are unused. The returned
// func unregisters every handler.
func Bind(gw Gateway, selfID string, reactions *stream.Dispatcher, messages *stream.MessageDispatcher) func() {
	removeAdd := gw.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
		if e == nil || e.UserID == selfID {
			return
		}
		reactions.Dispatch(toEvent(e.MessageReaction, reaction.ReactionAdded))
	})
	removeRemove := gw.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageReactionRemove) {
		if e == nil || e.UserID == selfID {
			return
		}
		reactions.Dispatch(toEvent(e.MessageReaction, reaction.ReactionRemoved))
	})

	var removeMessage func()
	if messages != nil {
		removeMessage = gw.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageCreate) {
			if e == nil || e.Author == nil || e.Author.ID == selfID {
				return
			}
			messages.Dispatch(stream.PostedMessage{
				ChannelID: e.ChannelID,
				MessageID: e.ID,
				UserID:    e.Author.ID,
				Content:   e.Content,
			})
		})
	}

	return func() {
		removeAdd()
		removeRemove()
		if removeMessage != nil {
			removeMessage()
		}
	}
}

func toEvent(r *discordgo.MessageReaction, action reaction.Action) reaction.Event {
	return reaction.Event{
		Message: reaction.MessageRef{ChannelID: r.ChannelID, MessageID: r.MessageID},
		UserID:  r.UserID,
		Emoji:   reaction.Emoji(r.Emoji.APIName()),
		Action:  action,
	}
}
