package notify

import (
	"fmt"
	"strings"
	"time"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const (
	colorRecruiting = 0xFF0000
	colorCompleted  = 0x2ECC71
	colorCancelled  = 0x95A5A6

	maxFieldValue = 1024
	emptyList     = "비어 있음"
)

// Message is a rendered chat message for one party.
type Message struct {
	Content    string
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

type Renderer struct {
	catalog config.PartyConfig
	webURL  string
}

func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{catalog: cfg.Party, webURL: cfg.WebURL}
}

func (r *Renderer) typeInfo(key string) config.PartyType {
	if pt, ok := r.catalog.Type(key); ok {
		return pt
	}
	return config.PartyType{Key: key, Name: "기타", Icon: "⚔️"}
}

// Render builds the message for party. Member stats come from the snapshot
// taken at join time.
func (r *Renderer) Render(party *domain.Party, mode domain.RenderMode) *Message {
	info := r.typeInfo(party.Type)

	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("**%s**", party.Title),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("파티 ID: %s · 생성자: %s", party.ID, party.CreatedByName),
		},
		Timestamp: party.CreatedAt.Format(time.RFC3339),
	}
	if party.Description != "" {
		embed.Description += "\n\n" + party.Description
	}

	switch {
	case mode == domain.RenderCancelled || party.Status == domain.StatusCancelled:
		embed.Title = fmt.Sprintf("%s [취소됨] %s 파티", info.Icon, info.Name)
		embed.Color = colorCancelled
		embed.Description = fmt.Sprintf("~~%s~~\n\n이 파티는 취소되었습니다.", party.Title)
	case party.Status == domain.StatusCompleted:
		embed.Title = fmt.Sprintf("%s [종료] %s 파티", info.Icon, info.Name)
		embed.Color = colorCompleted
	case mode == domain.RenderNew:
		embed.Title = fmt.Sprintf("%s 새로운 %s 파티 모집!", info.Icon, info.Name)
		embed.Color = colorRecruiting
	default:
		embed.Title = fmt.Sprintf("%s %s 파티 모집 중", info.Icon, info.Name)
		embed.Color = colorRecruiting
	}

	requirements := party.Requirements
	if requirements == "" {
		requirements = "제한 없음"
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "📅 시작 시간", Value: startTime(party), Inline: true},
		&discordgo.MessageEmbedField{Name: "👥 모집 인원", Value: fmt.Sprintf("%d/%d명", len(party.Members), party.MaxMembers), Inline: true},
		&discordgo.MessageEmbedField{Name: "🎯 참가 조건", Value: requirements, Inline: true},
	)
	if party.MinScore > 0 {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "🏆 최소 점수", Value: fmt.Sprintf("%d점", party.MinScore), Inline: true})
	}

	waiting := party.TeamMembers(domain.WaitingRoom)
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("⏳ 대기실 (%d)", len(waiting)),
		Value: memberList(waiting),
	})
	for t := 1; t <= party.Teams; t++ {
		members := party.TeamMembers(t)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("⚔️ %d팀 (%d/%d)", t, len(members), party.MaxPerTeam),
			Value:  memberList(members),
			Inline: party.Teams > 1,
		})
	}

	if party.Status == domain.StatusCompleted && party.WinnerTeam > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🏅 승리 팀",
			Value: fmt.Sprintf("%d팀", party.WinnerTeam),
		})
	}

	msg := &Message{Embed: embed, Components: []discordgo.MessageComponent{}}
	if mode == domain.RenderNew {
		msg.Content = "@everyone"
	}
	if party.IsOpen() {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label: "파티 참여하기",
					Style: discordgo.LinkButton,
					URL:   fmt.Sprintf("%s/party/%s", r.webURL, party.ID),
					Emoji: &discordgo.ComponentEmoji{Name: "🔗"},
				},
				discordgo.Button{
					Label:    "빠른 참여",
					Style:    discordgo.PrimaryButton,
					CustomID: JoinButtonID(party.ID),
				},
				discordgo.Button{
					Label:    "나가기",
					Style:    discordgo.DangerButton,
					CustomID: LeaveButtonID(party.ID),
				},
			}},
		}
	}
	return msg
}

const (
	joinButtonPrefix  = "party_join_"
	leaveButtonPrefix = "party_leave_"
)

func JoinButtonID(partyID string) string {
	return joinButtonPrefix + partyID
}

func LeaveButtonID(partyID string) string {
	return leaveButtonPrefix + partyID
}

// ParseButtonID splits a party button custom id into action and party id.
func ParseButtonID(customID string) (action, partyID string, ok bool) {
	switch {
	case strings.HasPrefix(customID, joinButtonPrefix):
		return "join", strings.TrimPrefix(customID, joinButtonPrefix), true
	case strings.HasPrefix(customID, leaveButtonPrefix):
		return "leave", strings.TrimPrefix(customID, leaveButtonPrefix), true
	}
	return "", "", false
}

func startTime(p *domain.Party) string {
	if p.StartTime.IsZero() {
		return "미정"
	}
	return fmt.Sprintf("<t:%d:F>", p.StartTime.Unix())
}

func memberList(members []domain.Member) string {
	if len(members) == 0 {
		return emptyList
	}

	var b strings.Builder
	for i, m := range members {
		line := "• " + m.Username
		if m.SelectedClass != "" {
			line += " (" + m.SelectedClass + ")"
		}
		line += fmt.Sprintf(" · %d점 · 승률 %d%%\n", m.Stats.Points, m.Stats.WinRate)

		if b.Len()+len(line) > maxFieldValue-16 {
			fmt.Fprintf(&b, "외 %d명", len(members)-i)
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
