package discord

import (
	"context"
	"fmt"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/notify"

	"github.com/bwmarrin/discordgo"
)

// NewSession creates the gateway session. It does not connect; Bot.Start does.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

// ChatClient sends and edits party messages through the REST side of the session.
type ChatClient struct {
	session *discordgo.Session
}

func NewChatClient(session *discordgo.Session) *ChatClient {
	return &ChatClient{session: session}
}

func (c *ChatClient) Send(ctx context.Context, channelID string, msg *notify.Message) (string, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     []*discordgo.MessageEmbed{msg.Embed},
		Components: msg.Components,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return sent.ID, nil
}

func (c *ChatClient) Edit(ctx context.Context, channelID, messageID string, msg *notify.Message) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).
		SetContent(msg.Content).
		SetEmbeds([]*discordgo.MessageEmbed{msg.Embed})
	components := msg.Components
	edit.Components = &components

	if _, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit message %s: %w", messageID, err)
	}
	return nil
}
