package discord_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/waitfor/discord"
	"github.com/gosuda/waitfor/menu"
	"github.com/gosuda/waitfor/reaction"
	"github.com/gosuda/waitfor/stream"
)

var testMsg = reaction.MessageRef{ChannelID: "c1", MessageID: "m1"}

type sessionCall struct {
	method  string
	args    []string
	content string
	embed   *discordgo.MessageEmbed
}

type mockSession struct {
	calls []sessionCall
	err   error
}

func (s *mockSession) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	s.calls = append(s.calls, sessionCall{method: "add", args: []string{channelID, messageID, emojiID}})
	return s.err
}

func (s *mockSession) MessageReactionRemove(channelID, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	s.calls = append(s.calls, sessionCall{method: "remove", args: []string{channelID, messageID, emojiID, userID}})
	return s.err
}

func (s *mockSession) MessageReactionsRemoveAll(channelID, messageID string, _ ...discordgo.RequestOption) error {
	s.calls = append(s.calls, sessionCall{method: "removeAll", args: []string{channelID, messageID}})
	return s.err
}

func (s *mockSession) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	s.calls = append(s.calls, sessionCall{method: "delete", args: []string{channelID, messageID}})
	return s.err
}

func (s *mockSession) ChannelMessageEdit(channelID, messageID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.calls = append(s.calls, sessionCall{method: "edit", args: []string{channelID, messageID}, content: content})
	return nil, s.err
}

func (s *mockSession) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.calls = append(s.calls, sessionCall{method: "editEmbed", args: []string{channelID, messageID}, embed: embed})
	return nil, s.err
}

func restError(code int, message string) error {
	return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: code, Message: message}}
}

func TestClientActions(t *testing.T) {
	t.Parallel()

	session := &mockSession{}
	client := discord.NewClient(session)
	ctx := context.Background()

	require.NoError(t, client.AddReaction(ctx, testMsg, "▶"))
	require.NoError(t, client.RemoveReaction(ctx, testMsg, "▶", "u1"))
	require.NoError(t, client.RemoveAllReactions(ctx, testMsg))
	require.NoError(t, client.DeleteMessage(ctx, testMsg))

	require.Len(t, session.calls, 4)
	assert.Equal(t, sessionCall{method: "add", args: []string{"c1", "m1", "▶"}}, session.calls[0])
	assert.Equal(t, sessionCall{method: "remove", args: []string{"c1", "m1", "▶", "u1"}}, session.calls[1])
	assert.Equal(t, sessionCall{method: "removeAll", args: []string{"c1", "m1"}}, session.calls[2])
	assert.Equal(t, sessionCall{method: "delete", args: []string{"c1", "m1"}}, session.calls[3])
}

func TestClientClassifiesRESTErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing permissions", restError(discordgo.ErrCodeMissingPermissions, "Missing Permissions"), reaction.ErrPermissionDenied},
		{"missing access", restError(discordgo.ErrCodeMissingAccess, "Missing Access"), reaction.ErrPermissionDenied},
		{"unknown message", restError(discordgo.ErrCodeUnknownMessage, "Unknown Message"), reaction.ErrUnknownMessage},
		{"unknown channel", restError(discordgo.ErrCodeUnknownChannel, "Unknown Channel"), reaction.ErrUnknownMessage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := discord.NewClient(&mockSession{err: tt.err})
			err := client.AddReaction(context.Background(), testMsg, "▶")
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, reaction.IsTransient(err))
		})
	}

	t.Run("unrelated errors pass through", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection reset")
		client := discord.NewClient(&mockSession{err: cause})
		err := client.AddReaction(context.Background(), testMsg, "▶")
		assert.ErrorIs(t, err, cause)
		assert.False(t, reaction.IsTransient(err))
	})
}

func TestRendererText(t *testing.T) {
	t.Parallel()

	session := &mockSession{}
	r := discord.NewRenderer(session)

	err := r.Render(context.Background(), testMsg, menu.Page{Content: "hello"}, "Page 1/3")
	require.NoError(t, err)
	require.Len(t, session.calls, 1)
	assert.Equal(t, "edit", session.calls[0].method)
	assert.Equal(t, "hello\n\nPage 1/3", session.calls[0].content)

	err = r.Render(context.Background(), testMsg, menu.Page{Content: "plain"}, "")
	require.NoError(t, err)
	assert.Equal(t, "plain", session.calls[1].content)
}

func TestRendererEmbed(t *testing.T) {
	t.Parallel()

	session := &mockSession{}
	r := discord.NewRenderer(session)
	embed := &discordgo.MessageEmbed{Description: "scores"}

	err := r.Render(context.Background(), testMsg, menu.Page{Content: "ignored", Embed: embed}, "Page 2/3")
	require.NoError(t, err)
	require.Len(t, session.calls, 1)
	assert.Equal(t, "editEmbed", session.calls[0].method)
	require.NotNil(t, session.calls[0].embed.Footer)
	assert.Equal(t, "Page 2/3", session.calls[0].embed.Footer.Text)
	assert.Nil(t, embed.Footer, "caller's embed must not be mutated")
}

type mockGateway struct {
	reactionAdds    []func(*discordgo.Session, *discordgo.MessageReactionAdd)
	reactionRemoves []func(*discordgo.Session, *discordgo.MessageReactionRemove)
	messageCreates  []func(*discordgo.Session, *discordgo.MessageCreate)
	removed         int
}

func (g *mockGateway) AddHandler(handler interface{}) func() {
	switch h := handler.(type) {
	case func(*discordgo.Session, *discordgo.MessageReactionAdd):
		g.reactionAdds = append(g.reactionAdds, h)
	case func(*discordgo.Session, *discordgo.MessageReactionRemove):
		g.reactionRemoves = append(g.reactionRemoves, h)
	case func(*discordgo.Session, *discordgo.MessageCreate):
		g.messageCreates = append(g.messageCreates, h)
	}
	return func() { g.removed++ }
}

func reactionAdd(userID, emoji string) *discordgo.MessageReactionAdd {
	return &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		ChannelID: testMsg.ChannelID,
		MessageID: testMsg.MessageID,
		UserID:    userID,
		Emoji:     discordgo.Emoji{Name: emoji},
	}}
}

func TestBindFeedsDispatchers(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	events := stream.NewDispatcher(zerolog.Nop())
	messages := stream.NewMessageDispatcher(zerolog.Nop())

	unbind := discord.Bind(gw, "bot", events, messages)
	require.Len(t, gw.reactionAdds, 1)
	require.Len(t, gw.reactionRemoves, 1)
	require.Len(t, gw.messageCreates, 1)

	sub, err := events.Subscribe(reaction.Filter{Message: testMsg, UserID: "u1"})
	require.NoError(t, err)

	gw.reactionAdds[0](nil, reactionAdd("u1", "▶"))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, reaction.Emoji("▶"), ev.Emoji)
		assert.Equal(t, reaction.ReactionAdded, ev.Action)
		assert.Equal(t, "u1", ev.UserID)
	case <-time.After(time.Second):
		t.Fatal("reaction event not dispatched")
	}

	msgSub, err := messages.Subscribe(stream.MessageFilter{ChannelID: "c1", UserID: "u1"})
	require.NoError(t, err)

	gw.messageCreates[0](nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m2",
		ChannelID: "c1",
		Content:   "3",
		Author:    &discordgo.User{ID: "u1"},
	}})

	select {
	case m := <-msgSub.Messages():
		assert.Equal(t, "3", m.Content)
		assert.Equal(t, "m2", m.MessageID)
	case <-time.After(time.Second):
		t.Fatal("message not dispatched")
	}

	unbind()
	assert.Equal(t, 3, gw.removed)
}

func TestBindDropsOwnEvents(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	events := stream.NewDispatcher(zerolog.Nop())
	messages := stream.NewMessageDispatcher(zerolog.Nop())
	discord.Bind(gw, "bot", events, messages)

	sub, err := events.Subscribe(reaction.Filter{Message: testMsg, UserID: "bot"})
	require.NoError(t, err)
	msgSub, err := messages.Subscribe(stream.MessageFilter{ChannelID: "c1", UserID: "bot"})
	require.NoError(t, err)

	gw.reactionAdds[0](nil, reactionAdd("bot", "▶"))
	gw.messageCreates[0](nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "bot"},
	}})

	select {
	case ev := <-sub.Events():
		t.Fatalf("bot's own reaction dispatched: %+v", ev)
	case m := <-msgSub.Messages():
		t.Fatalf("bot's own message dispatched: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBindWithoutMessageDispatcher(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	events := stream.NewDispatcher(zerolog.Nop())

	unbind := discord.Bind(gw, "bot", events, nil)
	assert.Empty(t, gw.messageCreates)
	unbind()
	assert.Equal(t, 2, gw.removed)
}
