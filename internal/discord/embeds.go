package discord

import (
	"fmt"
	"strings"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const (
	colorInfo    = 0x5865F2
	colorSuccess = 0x57F287
	colorError   = 0xED4245

	myStatsButtonID = "party_my_stats"
)

func menuMessage(cfg *config.Config) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	var types strings.Builder
	for _, t := range cfg.Party.Types {
		fmt.Fprintf(&types, "%s **%s** (%d팀 × %d명)\n", t.Icon, t.Name, t.Teams, t.MaxPerTeam)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "⚔️ 파티 모집",
		Description: "아래 버튼으로 파티를 만들거나 모집 중인 파티에 참여하세요.",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📋 파티 타입", Value: strings.TrimRight(types.String(), "\n")},
		},
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label: "파티 생성하기",
				Style: discordgo.LinkButton,
				URL:   cfg.WebURL + "/party/create",
			},
			discordgo.Button{
				Label: "모집 중인 파티",
				Style: discordgo.LinkButton,
				URL:   cfg.WebURL + "/party",
			},
			discordgo.Button{
				Label:    "내 상세 정보",
				Style:    discordgo.SecondaryButton,
				CustomID: myStatsButtonID,
			},
		}},
	}
	return embed, components
}

func statsEmbed(username string, d *domain.DetailedStats) *discordgo.MessageEmbed {
	recent := "기록 없음"
	if len(d.RecentMatches) > 0 {
		lines := make([]string, 0, len(d.RecentMatches))
		for _, m := range d.RecentMatches {
			result := "패배"
			if m.Result == domain.ResultWin {
				result = "승리"
			}
			lines = append(lines, fmt.Sprintf("%s - %s (%d킬)", m.Date.Format("2006-01-02"), result, m.Kills))
		}
		recent = strings.Join(lines, "\n")
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📊 %s님의 전적", username),
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🏆 총 점수", Value: fmt.Sprintf("%d점", d.Points), Inline: true},
			{Name: "⚔️ 전투 수", Value: fmt.Sprintf("%d회", d.TotalGames), Inline: true},
			{Name: "📈 승률", Value: fmt.Sprintf("%d%%", d.WinRate), Inline: true},
			{Name: "✅ 승리", Value: fmt.Sprintf("%d회", d.Wins), Inline: true},
			{Name: "❌ 패배", Value: fmt.Sprintf("%d회", d.Losses), Inline: true},
			{Name: "💀 평균 킬", Value: fmt.Sprintf("%.1f", d.AvgKills), Inline: true},
			{Name: "🎯 총 킬수", Value: fmt.Sprintf("%d", d.TotalKills), Inline: true},
			{Name: "🏅 랭킹", Value: fmt.Sprintf("%d위", d.Ranking), Inline: true},
			{Name: "📅 최근 전투", Value: recent},
		},
	}
}

func leaderboardEmbed(entries []domain.LeaderboardEntry) *discordgo.MessageEmbed {
	desc := "아직 기록이 없습니다."
	if len(entries) > 0 {
		var b strings.Builder
		for _, e := range entries {
			medal := fmt.Sprintf("%d.", e.Rank)
			switch e.Rank {
			case 1:
				medal = "🥇"
			case 2:
				medal = "🥈"
			case 3:
				medal = "🥉"
			}
			fmt.Fprintf(&b, "%s <@%s> · %d점 · %d승 %d패 · 승률 %d%%\n",
				medal, e.UserID, e.Points, e.Wins, e.Losses, e.WinRate)
		}
		desc = strings.TrimRight(b.String(), "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       "🏆 랭킹",
		Description: desc,
		Color:       colorInfo,
	}
}

func successEmbed(text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: "✅ " + text, Color: colorSuccess}
}

func errorEmbed(err error) *discordgo.MessageEmbed {
	text := "처리 중 오류가 발생했습니다."
	if domain.KindOf(err) != domain.KindInternal {
		text = err.Error()
	}
	return &discordgo.MessageEmbed{Description: "❌ " + text, Color: colorError}
}
