// Command waitfor-demo runs the reaction prompt and menu flows against a
// real Discord channel. It sends a two-emoji prompt, a yes/no prompt, and a
// paginated menu, logging each outcome.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/waitfor/discord"
	"github.com/gosuda/waitfor/format"
	"github.com/gosuda/waitfor/internal/config"
	"github.com/gosuda/waitfor/menu"
	"github.com/gosuda/waitfor/prompt"
	"github.com/gosuda/waitfor/reaction"
	"github.com/gosuda/waitfor/stream"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("demo failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("WAITFOR_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("WAITFOR_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to the Discord gateway.
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentMessageContent

	if err := session.Open(); err != nil {
		return fmt.Errorf("opening gateway: %w", err)
	}
	defer session.Close()

	// Wire the event streams and engines.
	events := stream.NewDispatcher(log.Logger)
	messages := stream.NewMessageDispatcher(log.Logger)
	defer events.Close()
	defer messages.Close()

	unbind := discord.Bind(session, session.State.User.ID, events, messages)
	defer unbind()

	manager := reaction.NewManager(discord.NewClient(session), log.Logger)
	manager.SetRateLimit(cfg.Reactions.RateInterval, cfg.Reactions.RateBurst)

	prompts := prompt.NewEngine(manager, events, messages, log.Logger)
	prompts.SetNonBlocking(cfg.Reactions.NonBlocking)
	menus := menu.NewEngine(manager, events, prompts, discord.NewRenderer(session), log.Logger)

	if err := runPrompts(ctx, session, prompts, cfg); err != nil {
		return err
	}
	return runMenu(ctx, session, menus, cfg)
}

func runPrompts(ctx context.Context, session *discordgo.Session, prompts *prompt.Engine, cfg *config.Config) error {
	msg, err := session.ChannelMessageSend(cfg.Discord.ChannelID, "Dogs or cats?")
	if err != nil {
		return fmt.Errorf("sending prompt message: %w", err)
	}
	target := reaction.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}

	res, err := prompts.Prompt(ctx, target, cfg.Discord.UserID,
		[]reaction.Emoji{"\U0001F436", "\U0001F431"}, cfg.Prompt.Timeout)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case prompt.Selected:
		answer := "Dogs!"
		if res.Index == 1 {
			answer = "Cats!"
		}
		log.Info().Int("index", res.Index).Str("emoji", string(res.Emoji)).Msg(answer)
	case prompt.TimedOut:
		log.Info().Msg("prompt timed out")
	case prompt.Cancelled:
		return ctx.Err()
	}

	msg, err = session.ChannelMessageSend(cfg.Discord.ChannelID, "Was that the right answer?")
	if err != nil {
		return fmt.Errorf("sending yes/no message: %w", err)
	}
	target = reaction.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}

	yes, res, err := prompts.YesNo(ctx, target, cfg.Discord.UserID, cfg.Prompt.Timeout)
	if err != nil {
		return err
	}
	log.Info().Bool("yes", yes).Stringer("outcome", res.Outcome).Msg("yes/no prompt done")
	return nil
}

func runMenu(ctx context.Context, session *discordgo.Session, menus *menu.Engine, cfg *config.Config) error {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)
	opts := format.DefaultPagifyOptions()
	opts.PageLength = 400
	pages := format.Pages(format.Pagify(text, opts))

	msg, err := session.ChannelMessageSend(cfg.Discord.ChannelID, "Loading menu...")
	if err != nil {
		return fmt.Errorf("sending menu message: %w", err)
	}
	target := reaction.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}

	menuOpts := menu.DefaultOptions()
	menuOpts.Timeout = cfg.Menu.Timeout
	menuOpts.IdleTimeout = cfg.Menu.IdleTimeout
	menuOpts.PageIndicator = cfg.Menu.PageIndicator
	menuOpts.NonBlocking = cfg.Reactions.NonBlocking
	menuOpts.Controls = menu.FullControls()

	state, err := menus.Run(ctx, target, cfg.Discord.UserID, pages, menuOpts)
	if err != nil {
		return err
	}
	log.Info().Stringer("state", state).Msg("menu finished")
	return nil
}
