// Package stats derives summaries and rankings from user match records.
// Nothing here performs I/O.
package stats

import (
	"math"
	"sort"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"
)

type Weights = config.PointWeights

func Summarize(rec domain.UserRecord, w Weights) domain.StatsSummary {
	total := rec.Wins + rec.Losses
	s := domain.StatsSummary{
		TotalGames: total,
		Points:     Points(rec, w),
	}
	if total == 0 {
		return s
	}
	s.WinRate = int(math.Round(float64(rec.Wins) / float64(total) * 100))
	s.AvgKills = math.Round(float64(rec.TotalKills)/float64(total)*10) / 10
	return s
}

func Points(rec domain.UserRecord, w Weights) int {
	return rec.Wins*w.Win + rec.Losses*w.Loss + rec.TotalKills*w.PerKill
}

type Scored struct {
	UserID string
	Points int
}

// Order sorts by points descending, then user id ascending.
func Order(all []Scored) {
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Points != all[j].Points {
			return all[i].Points > all[j].Points
		}
		return all[i].UserID < all[j].UserID
	})
}

// Rank returns the 1-based position of userID in all after ordering, or
// len(all)+1 when the user is absent. all is reordered in place.
func Rank(userID string, all []Scored) int {
	Order(all)
	for i, s := range all {
		if s.UserID == userID {
			return i + 1
		}
	}
	return len(all) + 1
}

// Recent returns up to n matches, newest first.
func Recent(matches []domain.MatchEntry, n int) []domain.MatchEntry {
	if n > len(matches) {
		n = len(matches)
	}
	out := make([]domain.MatchEntry, 0, n)
	for i := len(matches) - 1; i >= len(matches)-n; i-- {
		out = append(out, matches[i])
	}
	return out
}
