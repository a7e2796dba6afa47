package service

import (
	"context"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/repository"
	"aimdot-bot/internal/stats"

	"github.com/rs/zerolog"
)

type StatsService struct {
	records *repository.UserRecordRepository
	weights stats.Weights
	logger  zerolog.Logger
}

func NewStatsService(records *repository.UserRecordRepository, cfg *config.Config, logger zerolog.Logger) *StatsService {
	return &StatsService{
		records: records,
		weights: cfg.Party.Points,
		logger:  logger.With().Str("component", "stats").Logger(),
	}
}

func (s *StatsService) Summary(ctx context.Context, userID string) (domain.StatsSummary, error) {
	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	return stats.Summarize(*rec, s.weights), nil
}

// Rank recomputes every user's points on each call.
func (s *StatsService) Rank(ctx context.Context, userID string) (int, error) {
	all, err := s.scoreAll(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Rank(userID, all), nil
}

func (s *StatsService) Detailed(ctx context.Context, userID string) (*domain.DetailedStats, error) {
	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank, err := s.Rank(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.DetailedStats{
		UserID:        userID,
		StatsSummary:  stats.Summarize(*rec, s.weights),
		Wins:          rec.Wins,
		Losses:        rec.Losses,
		TotalKills:    rec.TotalKills,
		Ranking:       rank,
		RecentMatches: stats.Recent(rec.Matches, constants.RecentMatchLimit),
	}, nil
}

func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = constants.DefaultLeaderboardMax
	}
	if limit > constants.MaxLeaderboardLimit {
		limit = constants.MaxLeaderboardLimit
	}

	records, err := s.records.All(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*domain.UserRecord, len(records))
	all := make([]stats.Scored, 0, len(records))
	for _, rec := range records {
		byUser[rec.UserID] = rec
		all = append(all, stats.Scored{UserID: rec.UserID, Points: stats.Points(*rec, s.weights)})
	}
	stats.Order(all)

	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]domain.LeaderboardEntry, 0, len(all))
	for i, sc := range all {
		rec := byUser[sc.UserID]
		out = append(out, domain.LeaderboardEntry{
			Rank:         i + 1,
			UserID:       sc.UserID,
			StatsSummary: stats.Summarize(*rec, s.weights),
			Wins:         rec.Wins,
			Losses:       rec.Losses,
		})
	}
	return out, nil
}

func (s *StatsService) scoreAll(ctx context.Context) ([]stats.Scored, error) {
	records, err := s.records.All(ctx)
	if err != nil {
		return nil, err
	}
	all := make([]stats.Scored, 0, len(records))
	for _, rec := range records {
		all = append(all, stats.Scored{UserID: rec.UserID, Points: stats.Points(*rec, s.weights)})
	}
	return all, nil
}
