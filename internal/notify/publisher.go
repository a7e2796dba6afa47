package notify

import (
	"context"
	"sync"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"

	"github.com/rs/zerolog"
)

// ChatClient is the slice of the chat platform the publisher needs.
type ChatClient interface {
	Send(ctx context.Context, channelID string, msg *Message) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID string, msg *Message) error
}

// Publisher posts one message per party to the notice channel and edits it
// in place on later changes. The party to message mapping is held in memory
// only, so after a restart the first update of an older party posts a new
// message.
type Publisher struct {
	chat      ChatClient
	renderer  *Renderer
	channelID string
	logger    zerolog.Logger

	mu       sync.Mutex
	messages map[string]string
}

func NewPublisher(chat ChatClient, renderer *Renderer, cfg *config.Config, logger zerolog.Logger) *Publisher {
	return &Publisher{
		chat:      chat,
		renderer:  renderer,
		channelID: cfg.NoticeChannelID,
		logger:    logger.With().Str("component", "publisher").Logger(),
		messages:  make(map[string]string),
	}
}

func (p *Publisher) Name() string {
	return "discord"
}

func (p *Publisher) MessageID(partyID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.messages[partyID]
	return id, ok
}

func (p *Publisher) PartyChanged(ctx context.Context, party *domain.Party, mode domain.RenderMode) error {
	if p.channelID == "" {
		p.logger.Debug().Str("party_id", party.ID).Msg("no notice channel configured, skipping")
		return nil
	}

	msg := p.renderer.Render(party, mode)

	messageID, known := p.MessageID(party.ID)
	if mode != domain.RenderNew && known {
		err := p.chat.Edit(ctx, p.channelID, messageID, msg)
		if err == nil {
			p.logger.Debug().Str("party_id", party.ID).Str("message_id", messageID).Msg("party message edited")
			return nil
		}
		p.logger.Warn().
			Err(err).
			Str("party_id", party.ID).
			Str("message_id", messageID).
			Msg("edit failed, sending new message")
	}

	newID, err := p.chat.Send(ctx, p.channelID, msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.messages[party.ID] = newID
	p.mu.Unlock()

	p.logger.Info().
		Str("party_id", party.ID).
		Str("message_id", newID).
		Str("mode", string(mode)).
		Msg("party message sent")
	return nil
}
