package discord

import (
	"context"
	"fmt"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module reacts to gateway events. A handler returns true when it consumed
// the event.
type Module interface {
	Name() string
	HandleMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) bool
	HandleInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) bool
}

type BotParams struct {
	fx.In

	Session *discordgo.Session
	Config  *config.Config
	Logger  zerolog.Logger
	Modules []Module `group:"modules"`
}

type Bot struct {
	session *discordgo.Session
	modules []Module
	enabled bool
	logger  zerolog.Logger
}

func NewBot(p BotParams) *Bot {
	return &Bot{
		session: p.Session,
		modules: p.Modules,
		enabled: p.Config.EnableDiscord,
		logger:  p.Logger.With().Str("component", "bot").Logger(),
	}
}

func (b *Bot) Start() error {
	if !b.enabled {
		b.logger.Info().Msg("discord gateway disabled")
		return nil
	}

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessage)
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	for _, m := range b.modules {
		b.logger.Info().Str("module", m.Name()).Msg("module loaded")
	}
	return nil
}

func (b *Bot) Stop() error {
	if !b.enabled {
		return nil
	}
	b.logger.Info().Msg("closing discord gateway")
	return b.session.Close()
}

func (b *Bot) GuildCount() int {
	if !b.enabled || b.session.State == nil {
		return 0
	}
	b.session.State.RLock()
	defer b.session.State.RUnlock()
	return len(b.session.State.Guilds)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord gateway ready")
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	metrics.ChatEvents.WithLabelValues("message").Inc()

	ctx, cancel := b.eventContext("message", m.Author.ID)
	defer cancel()
	defer b.recover("message")

	for _, mod := range b.modules {
		if mod.HandleMessage(ctx, s, m) {
			return
		}
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	metrics.ChatEvents.WithLabelValues("interaction").Inc()

	userID := ""
	if u := interactionUser(i); u != nil {
		userID = u.ID
	}
	ctx, cancel := b.eventContext("interaction", userID)
	defer cancel()
	defer b.recover("interaction")

	for _, mod := range b.modules {
		if mod.HandleInteraction(ctx, s, i) {
			return
		}
	}
}

func (b *Bot) eventContext(kind, userID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	logger := b.logger.With().Str("event", kind).Str("user_id", userID).Logger()
	return logger.WithContext(ctx), cancel
}

func (b *Bot) recover(kind string) {
	if r := recover(); r != nil {
		b.logger.Error().Interface("panic", r).Str("event", kind).Msg("handler panicked")
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
