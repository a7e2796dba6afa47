package domain

import (
	"time"
)

type PartyStatus string

const (
	StatusRecruiting PartyStatus = "recruiting"
	StatusCompleted  PartyStatus = "completed"
	StatusCancelled  PartyStatus = "cancelled"
)

const WaitingRoom = 0

type Party struct {
	SchemaVersion int         `json:"schemaVersion"`
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Requirements  string      `json:"requirements"`
	StartTime     time.Time   `json:"startTime"`
	MinScore      int         `json:"minScore"`
	Teams         int         `json:"teams"`
	MaxPerTeam    int         `json:"maxPerTeam"`
	MaxMembers    int         `json:"maxMembers"`
	CreatedBy     string      `json:"createdBy"`
	CreatedByName string      `json:"createdByName"`
	Members       []Member    `json:"members"`
	Status        PartyStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
	CancelledAt   *time.Time  `json:"cancelledAt,omitempty"`
	WinnerTeam    int         `json:"winnerTeam,omitempty"`
}

type Member struct {
	UserID         string       `json:"userId"`
	Username       string       `json:"username"`
	SelectedClass  string       `json:"selectedClass,omitempty"`
	SelectedNation string       `json:"selectedNation,omitempty"`
	Team           int          `json:"team"`
	JoinedAt       time.Time    `json:"joinedAt"`
	Stats          StatsSummary `json:"stats"`
}

func (p *Party) IsOpen() bool {
	return p.Status == StatusRecruiting
}

// MemberIndex returns the position of userID in Members or -1.
func (p *Party) MemberIndex(userID string) int {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return i
		}
	}
	return -1
}

func (p *Party) HasMember(userID string) bool {
	return p.MemberIndex(userID) >= 0
}

func (p *Party) TeamCount(team int) int {
	n := 0
	for _, m := range p.Members {
		if m.Team == team {
			n++
		}
	}
	return n
}

// TeamMembers returns the members of team in join order. Team 0 is the waiting room.
func (p *Party) TeamMembers(team int) []Member {
	var out []Member
	for _, m := range p.Members {
		if m.Team == team {
			out = append(out, m)
		}
	}
	return out
}

type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
)

type MatchEntry struct {
	ID      string      `json:"id"`
	Date    time.Time   `json:"date"`
	PartyID string      `json:"partyId"`
	Result  MatchResult `json:"result"`
	Kills   int         `json:"kills"`
}

type UserRecord struct {
	SchemaVersion int          `json:"schemaVersion"`
	UserID        string       `json:"userId"`
	Wins          int          `json:"wins"`
	Losses        int          `json:"losses"`
	TotalKills    int          `json:"totalKills"`
	Matches       []MatchEntry `json:"matches"`
}

func (r *UserRecord) HasMatch(partyID string) bool {
	for _, m := range r.Matches {
		if m.PartyID == partyID {
			return true
		}
	}
	return false
}

type StatsSummary struct {
	TotalGames int     `json:"totalGames"`
	WinRate    int     `json:"winRate"`
	AvgKills   float64 `json:"avgKills"`
	Points     int     `json:"points"`
}

type DetailedStats struct {
	UserID string `json:"userId"`
	StatsSummary
	Wins          int          `json:"wins"`
	Losses        int          `json:"losses"`
	TotalKills    int          `json:"totalKills"`
	Ranking       int          `json:"ranking"`
	RecentMatches []MatchEntry `json:"recentMatches"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	StatsSummary
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

type Result struct {
	UserID string `json:"userId" validate:"required"`
	Win    bool   `json:"win"`
	Kills  int    `json:"kills" validate:"gte=0"`
}

type Identity struct {
	UserID   string
	Username string
}

type CreatePartyInput struct {
	Type         string    `json:"type" validate:"required"`
	Title        string    `json:"title" validate:"required,max=100"`
	Description  string    `json:"description" validate:"max=2000"`
	StartTime    time.Time `json:"startTime" validate:"required"`
	Requirements string    `json:"requirements" validate:"max=500"`
	MinScore     int       `json:"minScore" validate:"gte=0"`
}

type JoinInput struct {
	SelectedClass  string `json:"selectedClass" validate:"max=50"`
	SelectedNation string `json:"selectedNation" validate:"max=50"`
}

type RenderMode string

const (
	RenderNew       RenderMode = "new"
	RenderUpdate    RenderMode = "update"
	RenderCancelled RenderMode = "cancelled"
)
