package discord

import (
	"context"
	"strings"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/notify"
	"aimdot-bot/internal/service"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type command int

const (
	cmdNone command = iota
	cmdMenu
	cmdStats
	cmdRanking
)

func lookupCommand(name string) command {
	switch strings.ToLower(name) {
	case "파티모집", "파티", "party":
		return cmdMenu
	case "전적", "stats":
		return cmdStats
	case "랭킹", "ranking":
		return cmdRanking
	}
	return cmdNone
}

// PartyModule exposes party recruitment on the chat side.
type PartyModule struct {
	cfg     *config.Config
	parties *service.PartyService
	stats   *service.StatsService
	logger  zerolog.Logger
}

func NewPartyModule(cfg *config.Config, parties *service.PartyService, stats *service.StatsService, logger zerolog.Logger) *PartyModule {
	return &PartyModule{
		cfg:     cfg,
		parties: parties,
		stats:   stats,
		logger:  logger.With().Str("module", "party").Logger(),
	}
}

func (p *PartyModule) Name() string {
	return "party"
}

func parseCommand(prefix, content string) command {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return cmdNone
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return cmdNone
	}
	return lookupCommand(fields[0])
}

func (p *PartyModule) HandleMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) bool {
	cmd := parseCommand(p.cfg.CommandPrefix, m.Content)
	if cmd == cmdNone {
		return false
	}

	var send *discordgo.MessageSend
	switch cmd {
	case cmdMenu:
		embed, components := menuMessage(p.cfg)
		send = &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}, Components: components}
	case cmdStats:
		d, err := p.stats.Detailed(ctx, m.Author.ID)
		if err != nil {
			p.logger.Error().Err(err).Str("user_id", m.Author.ID).Msg("failed to load stats")
			send = &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{errorEmbed(err)}}
			break
		}
		send = &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{statsEmbed(displayName(m.Author), d)}}
	case cmdRanking:
		board, err := p.stats.Leaderboard(ctx, constants.DefaultLeaderboardMax)
		if err != nil {
			p.logger.Error().Err(err).Msg("failed to load leaderboard")
			send = &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{errorEmbed(err)}}
			break
		}
		send = &discordgo.MessageSend{
			Embeds:          []*discordgo.MessageEmbed{leaderboardEmbed(board)},
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}
	}

	if _, err := s.ChannelMessageSendComplex(m.ChannelID, send, discordgo.WithContext(ctx)); err != nil {
		p.logger.Error().Err(err).Str("channel_id", m.ChannelID).Msg("failed to reply")
	}
	return true
}

func (p *PartyModule) HandleInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Type != discordgo.InteractionMessageComponent {
		return false
	}
	user := interactionUser(i)
	if user == nil {
		return false
	}
	customID := i.MessageComponentData().CustomID

	var embed *discordgo.MessageEmbed
	if customID == myStatsButtonID {
		d, err := p.stats.Detailed(ctx, user.ID)
		if err != nil {
			p.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to load stats")
			embed = errorEmbed(err)
		} else {
			embed = statsEmbed(displayName(user), d)
		}
	} else {
		action, partyID, ok := notify.ParseButtonID(customID)
		if !ok {
			return false
		}
		embed = p.handleButton(ctx, action, partyID, user)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		p.logger.Error().Err(err).Str("custom_id", customID).Msg("failed to respond to interaction")
	}
	return true
}

func (p *PartyModule) handleButton(ctx context.Context, action, partyID string, user *discordgo.User) *discordgo.MessageEmbed {
	var err error
	var text string
	switch action {
	case "join":
		_, err = p.parties.Join(ctx, partyID, domain.Identity{UserID: user.ID, Username: displayName(user)}, domain.JoinInput{})
		text = "파티에 참여했습니다. 웹에서 팀을 선택하세요."
	case "leave":
		_, err = p.parties.Leave(ctx, partyID, user.ID)
		text = "파티에서 나갔습니다."
	}

	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			p.logger.Error().Err(err).Str("party_id", partyID).Str("action", action).Msg("party button failed")
		}
		return errorEmbed(err)
	}
	return successEmbed(text)
}
