package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type fakeChat struct {
	sent     int
	edits    int
	failEdit bool
	last     *Message
}

func (f *fakeChat) Send(_ context.Context, _ string, msg *Message) (string, error) {
	f.sent++
	f.last = msg
	return fmt.Sprintf("msg-%d", f.sent), nil
}

func (f *fakeChat) Edit(_ context.Context, _, _ string, msg *Message) error {
	if f.failEdit {
		return errors.New("unknown message")
	}
	f.edits++
	f.last = msg
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Party:           config.DefaultParty(),
		WebURL:          "https://aimdot.example",
		NoticeChannelID: "chan",
	}
}

func sampleParty() *domain.Party {
	return &domain.Party{
		ID:            "01HX",
		Type:          "training",
		Title:         "Friday drills",
		Teams:         2,
		MaxPerTeam:    5,
		MaxMembers:    10,
		CreatedByName: "Lead",
		Status:        domain.StatusRecruiting,
		CreatedAt:     time.Now(),
		Members: []domain.Member{
			{UserID: "a", Username: "Alpha", Team: 0, SelectedClass: "궁수"},
			{UserID: "b", Username: "Bravo", Team: 1, Stats: domain.StatsSummary{Points: 358, WinRate: 75}},
			{UserID: "c", Username: "Charlie", Team: 2},
		},
	}
}

func fieldByPrefix(embed *discordgo.MessageEmbed, prefix string) *discordgo.MessageEmbedField {
	for _, f := range embed.Fields {
		if strings.HasPrefix(f.Name, prefix) {
			return f
		}
	}
	return nil
}

func TestRenderPartitionsMembers(t *testing.T) {
	r := NewRenderer(testConfig())
	msg := r.Render(sampleParty(), domain.RenderNew)

	if msg.Content != "@everyone" {
		t.Errorf("Content = %q", msg.Content)
	}
	if !strings.Contains(msg.Embed.Title, "새로운 훈련 파티") {
		t.Errorf("Title = %q", msg.Embed.Title)
	}

	waiting := fieldByPrefix(msg.Embed, "⏳ 대기실")
	if waiting == nil || !strings.Contains(waiting.Value, "Alpha (궁수)") {
		t.Errorf("waiting field = %+v", waiting)
	}
	team1 := fieldByPrefix(msg.Embed, "⚔️ 1팀")
	if team1 == nil || !strings.Contains(team1.Value, "Bravo · 358점 · 승률 75%") {
		t.Errorf("team 1 field = %+v", team1)
	}
	if fieldByPrefix(msg.Embed, "⚔️ 2팀 (1/5)") == nil {
		t.Error("team 2 field missing")
	}

	if len(msg.Components) != 1 {
		t.Fatalf("components = %d", len(msg.Components))
	}
	row := msg.Components[0].(discordgo.ActionsRow)
	link := row.Components[0].(discordgo.Button)
	if link.URL != "https://aimdot.example/party/01HX" {
		t.Errorf("link URL = %s", link.URL)
	}
	join := row.Components[1].(discordgo.Button)
	if action, id, ok := ParseButtonID(join.CustomID); !ok || action != "join" || id != "01HX" {
		t.Errorf("join button id = %s", join.CustomID)
	}
}

func TestRenderCancelledDropsButtons(t *testing.T) {
	p := sampleParty()
	p.Status = domain.StatusCancelled

	msg := NewRenderer(testConfig()).Render(p, domain.RenderCancelled)
	if !strings.Contains(msg.Embed.Title, "취소") || msg.Embed.Color != colorCancelled {
		t.Errorf("cancelled embed = %q %x", msg.Embed.Title, msg.Embed.Color)
	}
	if len(msg.Components) != 0 || msg.Content != "" {
		t.Errorf("cancelled message should have no buttons or mention")
	}
}

func TestRenderCompletedShowsWinner(t *testing.T) {
	p := sampleParty()
	p.Status = domain.StatusCompleted
	p.WinnerTeam = 2

	msg := NewRenderer(testConfig()).Render(p, domain.RenderUpdate)
	winner := fieldByPrefix(msg.Embed, "🏅")
	if winner == nil || winner.Value != "2팀" {
		t.Errorf("winner field = %+v", winner)
	}
}

func TestPublisherEditsInPlace(t *testing.T) {
	chat := &fakeChat{}
	pub := NewPublisher(chat, NewRenderer(testConfig()), testConfig(), zerolog.Nop())
	ctx := context.Background()
	p := sampleParty()

	if err := pub.PartyChanged(ctx, p, domain.RenderNew); err != nil {
		t.Fatal(err)
	}
	if err := pub.PartyChanged(ctx, p, domain.RenderUpdate); err != nil {
		t.Fatal(err)
	}
	if err := pub.PartyChanged(ctx, p, domain.RenderCancelled); err != nil {
		t.Fatal(err)
	}

	if chat.sent != 1 || chat.edits != 2 {
		t.Errorf("sent=%d edits=%d, want 1/2", chat.sent, chat.edits)
	}
	if id, _ := pub.MessageID(p.ID); id != "msg-1" {
		t.Errorf("mapping = %s", id)
	}
}

func TestPublisherFallsBackToSend(t *testing.T) {
	chat := &fakeChat{}
	pub := NewPublisher(chat, NewRenderer(testConfig()), testConfig(), zerolog.Nop())
	ctx := context.Background()
	p := sampleParty()

	if err := pub.PartyChanged(ctx, p, domain.RenderNew); err != nil {
		t.Fatal(err)
	}
	chat.failEdit = true
	if err := pub.PartyChanged(ctx, p, domain.RenderUpdate); err != nil {
		t.Fatal(err)
	}

	if chat.sent != 2 {
		t.Errorf("sent = %d, want 2", chat.sent)
	}
	if id, _ := pub.MessageID(p.ID); id != "msg-2" {
		t.Errorf("mapping not updated: %s", id)
	}
}

func TestPublisherUnknownPartySendsOnUpdate(t *testing.T) {
	chat := &fakeChat{}
	pub := NewPublisher(chat, NewRenderer(testConfig()), testConfig(), zerolog.Nop())

	if err := pub.PartyChanged(context.Background(), sampleParty(), domain.RenderUpdate); err != nil {
		t.Fatal(err)
	}
	if chat.sent != 1 || chat.edits != 0 {
		t.Errorf("sent=%d edits=%d", chat.sent, chat.edits)
	}
}

func TestPublisherWithoutChannelIsNoop(t *testing.T) {
	cfg := testConfig()
	cfg.NoticeChannelID = ""
	chat := &fakeChat{}
	pub := NewPublisher(chat, NewRenderer(cfg), cfg, zerolog.Nop())

	if err := pub.PartyChanged(context.Background(), sampleParty(), domain.RenderNew); err != nil {
		t.Fatal(err)
	}
	if chat.sent != 0 {
		t.Errorf("sent = %d", chat.sent)
	}
}
