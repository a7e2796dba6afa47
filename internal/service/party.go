package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/metrics"
	"aimdot-bot/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Notifier is told about every persisted party change. Failures are the
// notifier's concern and never fail the party operation.
type Notifier interface {
	Name() string
	PartyChanged(ctx context.Context, party *domain.Party, mode domain.RenderMode) error
}

type PartyServiceParams struct {
	fx.In

	Parties   *repository.PartyRepository
	Records   *repository.UserRecordRepository
	Stats     *StatsService
	Config    *config.Config
	Logger    zerolog.Logger
	Notifiers []Notifier `group:"notifiers"`
}

// PartyService owns every party state transition. Mutations of one party are
// serialised through a per-party lock and user record updates through a
// per-user lock.
type PartyService struct {
	parties   *repository.PartyRepository
	records   *repository.UserRecordRepository
	stats     *StatsService
	catalog   config.PartyConfig
	notifiers []Notifier
	logger    zerolog.Logger
	locks     *keyedMutex
	now       func() time.Time
}

func NewPartyService(p PartyServiceParams) *PartyService {
	return &PartyService{
		parties:   p.Parties,
		records:   p.Records,
		stats:     p.Stats,
		catalog:   p.Config.Party,
		notifiers: p.Notifiers,
		logger:    p.Logger.With().Str("component", "party").Logger(),
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *PartyService) Catalog() config.PartyConfig {
	return s.catalog
}

func (s *PartyService) Create(ctx context.Context, in domain.CreatePartyInput, creator domain.Identity) (party *domain.Party, err error) {
	defer func() { metrics.PartyOperations.WithLabelValues("create", metrics.Outcome(err)).Inc() }()

	pt, ok := s.catalog.Type(in.Type)
	if !ok {
		return nil, domain.ErrInvalidPartyType
	}
	if strings.TrimSpace(in.Title) == "" || in.MinScore < 0 {
		return nil, domain.ErrInvalidInput
	}

	now := s.now()
	party = &domain.Party{
		ID:            ulid.Make().String(),
		Type:          pt.Key,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Requirements:  in.Requirements,
		StartTime:     in.StartTime,
		MinScore:      in.MinScore,
		Teams:         pt.Teams,
		MaxPerTeam:    pt.MaxPerTeam,
		MaxMembers:    pt.Teams * pt.MaxPerTeam,
		CreatedBy:     creator.UserID,
		CreatedByName: creator.Username,
		Members:       []domain.Member{},
		Status:        domain.StatusRecruiting,
		CreatedAt:     now,
	}

	unlock := s.locks.Lock("party:" + party.ID)
	defer unlock()

	if err := s.parties.Save(ctx, party); err != nil {
		return nil, fmt.Errorf("failed to create party: %w", err)
	}

	s.logger.Info().
		Str("party_id", party.ID).
		Str("type", party.Type).
		Str("user_id", creator.UserID).
		Msg("party created")

	s.notify(ctx, party, domain.RenderNew)
	return party, nil
}

// Join places the user in the waiting room. Team assignment happens in Move.
func (s *PartyService) Join(ctx context.Context, partyID string, who domain.Identity, in domain.JoinInput) (party *domain.Party, err error) {
	defer func() { metrics.PartyOperations.WithLabelValues("join", metrics.Outcome(err)).Inc() }()

	unlock := s.locks.Lock("party:" + partyID)
	defer unlock()

	party, err = s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !party.IsOpen() {
		return nil, domain.ErrPartyClosed
	}
	if party.HasMember(who.UserID) {
		return nil, domain.ErrAlreadyJoined
	}

	summary, err := s.stats.Summary(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	if party.MinScore > 0 && summary.Points < party.MinScore {
		s.logger.Warn().
			Str("party_id", partyID).
			Str("user_id", who.UserID).
			Int("points", summary.Points).
			Int("min_score", party.MinScore).
			Msg("join rejected by min score")
		return nil, domain.ErrMinScoreNotMet
	}

	party.Members = append(party.Members, domain.Member{
		UserID:         who.UserID,
		Username:       who.Username,
		SelectedClass:  in.SelectedClass,
		SelectedNation: in.SelectedNation,
		Team:           domain.WaitingRoom,
		JoinedAt:       s.now(),
		Stats:          summary,
	})

	if err := s.parties.Save(ctx, party); err != nil {
		return nil, fmt.Errorf("failed to join party: %w", err)
	}

	s.logger.Info().Str("party_id", partyID).Str("user_id", who.UserID).Msg("party joined")
	s.notify(ctx, party, domain.RenderUpdate)
	return party, nil
}

// Move assigns a member to team, or back to the waiting room when team is 0.
func (s *PartyService) Move(ctx context.Context, partyID, userID string, team int) (party *domain.Party, err error) {
	defer func() { metrics.PartyOperations.WithLabelValues("move", metrics.Outcome(err)).Inc() }()

	unlock := s.locks.Lock("party:" + partyID)
	defer unlock()

	party, err = s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !party.IsOpen() {
		return nil, domain.ErrPartyClosed
	}
	idx := party.MemberIndex(userID)
	if idx < 0 {
		return nil, domain.ErrNotAMember
	}
	if team < 0 || team > party.Teams {
		return nil, domain.ErrInvalidTeam
	}
	if party.Members[idx].Team == team {
		return party, nil
	}
	if team > 0 && party.TeamCount(team) >= party.MaxPerTeam {
		return nil, domain.ErrTeamFull
	}

	party.Members[idx].Team = team
	if err := s.parties.Save(ctx, party); err != nil {
		return nil, fmt.Errorf("failed to move member: %w", err)
	}

	s.logger.Info().Str("party_id", partyID).Str("user_id", userID).Int("team", team).Msg("member moved")
	s.notify(ctx, party, domain.RenderUpdate)
	return party, nil
}

func (s *PartyService) Leave(ctx context.Context, partyID, userID string) (party *domain.Party, err error) {
	defer func() { metrics.PartyOperations.WithLabelValues("leave", metrics.Outcome(err)).Inc() }()

	unlock := s.locks.Lock("party:" + partyID)
	defer unlock()

	party, err = s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !party.IsOpen() {
		return nil, domain.ErrPartyClosed
	}
	idx := party.MemberIndex(userID)
	if idx < 0 {
		return nil, domain.ErrNotAMember
	}

	party.Members = append(party.Members[:idx], party.Members[idx+1:]...)
	if err := s.parties.Save(ctx, party); err != nil {
		return nil, fmt.Errorf("failed to leave party: %w", err)
	}

	s.logger.Info().Str("party_id", partyID).Str("user_id", userID).Msg("party left")
	s.notify(ctx, party, domain.RenderUpdate)
	return party, nil
}

func (s *PartyService) Cancel(ctx context.Context, partyID, requesterID string) (party *domain.Party, err error) {
	defer func() { metrics.PartyOperations.WithLabelValues("cancel", metrics.Outcome(err)).Inc() }()

	unlock := s.locks.Lock("party:" + partyID)
	defer unlock()

	party, err = s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.CreatedBy != requesterID {
		s.logger.Warn().Str("party_id", partyID).Str("user_id", requesterID).Msg("cancel rejected for non-creator")
		return nil, domain.ErrNotCreator
	}
	if !party.IsOpen() {
		return nil, domain.ErrPartyClosed
	}

	now := s.now()
	party.Status = domain.StatusCancelled
	party.CancelledAt = &now
	if err := s.parties.Save(ctx, party); err != nil {
		return nil, fmt.Errorf("failed to cancel party: %w", err)
	}

	s.logger.Info().Str("party_id", partyID).Msg("party cancelled")
	s.notify(ctx, party, domain.RenderCancelled)
	return party, nil
}

// RecordResults applies results to each user record and then completes the
// party. A user record that already holds an entry for this party is left
// untouched, so a run interrupted part way can be repeated safely as long as
// the party is still recruiting.
func (s *PartyService) RecordResults(ctx context.Context, partyID string, results []domain.Result) (party *domain.Party, err error) {
	defer func() { metrics.PartyOperations.WithLabelValues("results", metrics.Outcome(err)).Inc() }()

	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.UserID == "" || r.Kills < 0 {
			return nil, domain.ErrInvalidInput
		}
		if _, dup := seen[r.UserID]; dup {
			return nil, fmt.Errorf("%w: duplicate result for %s", domain.ErrInvalidInput, r.UserID)
		}
		seen[r.UserID] = struct{}{}
	}

	unlock := s.locks.Lock("party:" + partyID)
	defer unlock()

	party, err = s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !party.IsOpen() {
		return nil, domain.ErrPartyClosed
	}

	now := s.now()
	for _, r := range results {
		if err := s.applyResult(ctx, party.ID, r, now); err != nil {
			return nil, err
		}
	}

	party.Status = domain.StatusCompleted
	party.CompletedAt = &now
	for _, r := range results {
		if !r.Win {
			continue
		}
		party.WinnerTeam = 1
		if idx := party.MemberIndex(r.UserID); idx >= 0 && party.Members[idx].Team > 0 {
			party.WinnerTeam = party.Members[idx].Team
		}
		break
	}

	if err := s.parties.Save(ctx, party); err != nil {
		return nil, fmt.Errorf("failed to complete party: %w", err)
	}

	s.logger.Info().
		Str("party_id", partyID).
		Int("results", len(results)).
		Int("winner_team", party.WinnerTeam).
		Msg("party results recorded")
	s.notify(ctx, party, domain.RenderUpdate)
	return party, nil
}

func (s *PartyService) applyResult(ctx context.Context, partyID string, r domain.Result, at time.Time) error {
	unlock := s.locks.Lock("user:" + r.UserID)
	defer unlock()

	rec, err := s.records.Get(ctx, r.UserID)
	if err != nil {
		return err
	}
	if rec.HasMatch(partyID) {
		s.logger.Debug().Str("party_id", partyID).Str("user_id", r.UserID).Msg("result already applied")
		return nil
	}

	entry := domain.MatchEntry{
		ID:      gonanoid.Must(),
		Date:    at,
		PartyID: partyID,
		Result:  domain.ResultLoss,
		Kills:   r.Kills,
	}
	if r.Win {
		rec.Wins++
		entry.Result = domain.ResultWin
	} else {
		rec.Losses++
	}
	rec.TotalKills += r.Kills
	rec.Matches = append(rec.Matches, entry)
	if limit := s.catalog.MatchHistory; limit > 0 && len(rec.Matches) > limit {
		rec.Matches = rec.Matches[len(rec.Matches)-limit:]
	}

	if err := s.records.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save result for %s: %w", r.UserID, err)
	}
	return nil
}

func (s *PartyService) Get(ctx context.Context, partyID string) (*domain.Party, error) {
	return s.parties.Get(ctx, partyID)
}

// ListActive returns recruiting parties, newest first.
func (s *PartyService) ListActive(ctx context.Context) ([]*domain.Party, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, p := range all {
		if p.IsOpen() {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *PartyService) ListAll(ctx context.Context) ([]*domain.Party, error) {
	parties, err := s.parties.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(parties, func(i, j int) bool {
		if !parties[i].CreatedAt.Equal(parties[j].CreatedAt) {
			return parties[i].CreatedAt.After(parties[j].CreatedAt)
		}
		return parties[i].ID > parties[j].ID
	})
	return parties, nil
}

func (s *PartyService) CountByStatus(ctx context.Context) (map[domain.PartyStatus]int, error) {
	parties, err := s.parties.List(ctx)
	if err != nil {
		return nil, err
	}
	out := map[domain.PartyStatus]int{}
	for _, p := range parties {
		out[p.Status]++
	}
	return out, nil
}

func (s *PartyService) notify(ctx context.Context, party *domain.Party, mode domain.RenderMode) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.NotifyTimeout)
	defer cancel()

	for _, n := range s.notifiers {
		err := n.PartyChanged(ctx, party, mode)
		metrics.Notifications.WithLabelValues(n.Name(), string(mode), metrics.Outcome(err)).Inc()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().
				Err(err).
				Str("notifier", n.Name()).
				Str("party_id", party.ID).
				Str("mode", string(mode)).
				Msg("party notification failed")
		}
	}
}
