package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/repository"
	"aimdot-bot/internal/store"

	"github.com/rs/zerolog"
)

type recordingNotifier struct {
	mu    sync.Mutex
	modes []domain.RenderMode
	fail  bool
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) PartyChanged(_ context.Context, _ *domain.Party, mode domain.RenderMode) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.modes = append(n.modes, mode)
	if n.fail {
		return errors.New("chat unavailable")
	}
	return nil
}

type fixture struct {
	parties  *PartyService
	stats    *StatsService
	records  *repository.UserRecordRepository
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

func newFixtureWith(t *testing.T, configure func(*config.Config)) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	fs, err := store.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}
	s := store.NewCache(fs, "file", logger)

	cfg := &config.Config{Party: config.DefaultParty()}
	if configure != nil {
		configure(cfg)
	}
	records := repository.NewUserRecordRepository(s, logger)
	statsSvc := NewStatsService(records, cfg, logger)
	notifier := &recordingNotifier{}

	partySvc := NewPartyService(PartyServiceParams{
		Parties:   repository.NewPartyRepository(s, logger),
		Records:   records,
		Stats:     statsSvc,
		Config:    cfg,
		Logger:    logger,
		Notifiers: []Notifier{notifier},
	})

	return &fixture{parties: partySvc, stats: statsSvc, records: records, notifier: notifier}
}

func (f *fixture) create(t *testing.T, typ string, minScore int) *domain.Party {
	t.Helper()
	p, err := f.parties.Create(context.Background(), domain.CreatePartyInput{
		Type:      typ,
		Title:     "evening " + typ,
		StartTime: time.Now().Add(time.Hour),
		MinScore:  minScore,
	}, domain.Identity{UserID: "creator", Username: "Creator"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func user(i int) domain.Identity {
	return domain.Identity{UserID: fmt.Sprintf("u%02d", i), Username: fmt.Sprintf("User %d", i)}
}

func TestCreateDerivesCapacity(t *testing.T) {
	f := newFixture(t)

	for _, pt := range config.DefaultParty().Types {
		t.Run(pt.Key, func(t *testing.T) {
			p := f.create(t, pt.Key, 0)
			if p.MaxMembers != pt.Teams*pt.MaxPerTeam {
				t.Errorf("MaxMembers = %d, want %d", p.MaxMembers, pt.Teams*pt.MaxPerTeam)
			}
			if p.Status != domain.StatusRecruiting || len(p.Members) != 0 {
				t.Errorf("unexpected initial state %+v", p)
			}
		})
	}

	_, err := f.parties.Create(context.Background(), domain.CreatePartyInput{Type: "siege", Title: "x"}, user(1))
	if !errors.Is(err, domain.ErrInvalidPartyType) {
		t.Errorf("unknown type err = %v", err)
	}
}

func TestCreateIDsAreSortable(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "pk", 0)
	b := f.create(t, "pk", 0)
	if a.ID >= b.ID {
		t.Errorf("ids not increasing: %s >= %s", a.ID, b.ID)
	}

	active, err := f.parties.ListActive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 || active[0].ID != b.ID {
		t.Errorf("ListActive order wrong: %v", active)
	}
}

func TestJoinRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "raid", 0)

	if _, err := f.parties.Join(ctx, p.ID, user(1), domain.JoinInput{SelectedClass: "궁수"}); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := f.parties.Join(ctx, p.ID, user(1), domain.JoinInput{})
	if !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("second join err = %v", err)
	}

	got, _ := f.parties.Get(ctx, p.ID)
	if len(got.Members) != 1 || got.Members[0].Team != domain.WaitingRoom {
		t.Errorf("members = %+v", got.Members)
	}

	if _, err := f.parties.Join(ctx, "missing", user(2), domain.JoinInput{}); !errors.Is(err, domain.ErrPartyNotFound) {
		t.Errorf("join missing err = %v", err)
	}
}

func TestJoinMinScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pk", 150)

	if _, err := f.parties.Join(ctx, p.ID, user(1), domain.JoinInput{}); !errors.Is(err, domain.ErrMinScoreNotMet) {
		t.Fatalf("err = %v, want ErrMinScoreNotMet", err)
	}

	if err := f.records.Save(ctx, &domain.UserRecord{UserID: user(1).UserID, Wins: 1, Losses: 1}); err != nil {
		t.Fatal(err)
	}
	joined, err := f.parties.Join(ctx, p.ID, user(1), domain.JoinInput{})
	if err != nil {
		t.Fatalf("join with 150 points: %v", err)
	}
	if joined.Members[0].Stats.Points != 150 {
		t.Errorf("stats snapshot = %+v", joined.Members[0].Stats)
	}
}

func TestMoveAndLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pk", 0)

	if _, err := f.parties.Move(ctx, p.ID, "ghost", 1); !errors.Is(err, domain.ErrNotAMember) {
		t.Errorf("move non-member err = %v", err)
	}
	if _, err := f.parties.Join(ctx, p.ID, user(1), domain.JoinInput{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.parties.Move(ctx, p.ID, user(1).UserID, 2); !errors.Is(err, domain.ErrInvalidTeam) {
		t.Errorf("move to team 2 of single-team party err = %v", err)
	}
	moved, err := f.parties.Move(ctx, p.ID, user(1).UserID, 1)
	if err != nil || moved.Members[0].Team != 1 {
		t.Fatalf("move = %+v, %v", moved, err)
	}
	back, err := f.parties.Move(ctx, p.ID, user(1).UserID, domain.WaitingRoom)
	if err != nil || back.Members[0].Team != domain.WaitingRoom {
		t.Fatalf("move back = %+v, %v", back, err)
	}

	left, err := f.parties.Leave(ctx, p.ID, user(1).UserID)
	if err != nil || len(left.Members) != 0 {
		t.Fatalf("leave = %+v, %v", left, err)
	}
	if _, err := f.parties.Leave(ctx, p.ID, user(1).UserID); !errors.Is(err, domain.ErrNotAMember) {
		t.Errorf("second leave err = %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "training", 0)

	_, err := f.parties.Cancel(ctx, p.ID, "someone-else")
	if !errors.Is(err, domain.ErrNotCreator) || domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("non-creator cancel err = %v", err)
	}

	cancelled, err := f.parties.Cancel(ctx, p.ID, "creator")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled || cancelled.CancelledAt == nil {
		t.Errorf("cancelled party = %+v", cancelled)
	}

	if _, err := f.parties.Join(ctx, p.ID, user(1), domain.JoinInput{}); !errors.Is(err, domain.ErrPartyClosed) {
		t.Errorf("join after cancel err = %v", err)
	}
	if _, err := f.parties.Cancel(ctx, p.ID, "creator"); !errors.Is(err, domain.ErrPartyClosed) {
		t.Errorf("second cancel err = %v", err)
	}

	last := f.notifier.modes[len(f.notifier.modes)-1]
	if last != domain.RenderCancelled {
		t.Errorf("last render mode = %s", last)
	}
}

func TestTrainingPartyEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "training", 0)

	for i := 1; i <= 10; i++ {
		if _, err := f.parties.Join(ctx, p.ID, user(i), domain.JoinInput{}); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		team := 1 + (i+1)%2
		if _, err := f.parties.Move(ctx, p.ID, user(i).UserID, team); err != nil {
			t.Fatalf("move %d to team %d: %v", i, team, err)
		}
	}

	if _, err := f.parties.Join(ctx, p.ID, user(11), domain.JoinInput{}); err != nil {
		t.Fatalf("join 11: %v", err)
	}
	if _, err := f.parties.Move(ctx, p.ID, user(11).UserID, 1); !errors.Is(err, domain.ErrTeamFull) {
		t.Fatalf("11th move err = %v, want ErrTeamFull", err)
	}

	full, _ := f.parties.Get(ctx, p.ID)
	if full.TeamCount(1) != 5 || full.TeamCount(2) != 5 || full.TeamCount(domain.WaitingRoom) != 1 {
		t.Fatalf("team counts %d/%d/%d", full.TeamCount(1), full.TeamCount(2), full.TeamCount(0))
	}

	var results []domain.Result
	for i := 1; i <= 10; i++ {
		results = append(results, domain.Result{UserID: user(i).UserID, Win: i%2 == 1, Kills: i})
	}

	done, err := f.parties.RecordResults(ctx, p.ID, results)
	if err != nil {
		t.Fatalf("RecordResults: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.CompletedAt == nil || done.WinnerTeam != 1 {
		t.Errorf("completed party = status %s winner %d", done.Status, done.WinnerTeam)
	}

	for i := 1; i <= 10; i++ {
		rec, err := f.records.Get(ctx, user(i).UserID)
		if err != nil {
			t.Fatal(err)
		}
		wantWins := 0
		if i%2 == 1 {
			wantWins = 1
		}
		if rec.Wins != wantWins || rec.Wins+rec.Losses != 1 || rec.TotalKills != i || len(rec.Matches) != 1 {
			t.Errorf("user %d record = %+v", i, rec)
		}
	}

	if _, err := f.parties.RecordResults(ctx, p.ID, results); !errors.Is(err, domain.ErrPartyClosed) {
		t.Errorf("second RecordResults err = %v, want ErrPartyClosed", err)
	}
	rec, _ := f.records.Get(ctx, user(1).UserID)
	if rec.Wins != 1 {
		t.Errorf("wins double counted: %d", rec.Wins)
	}
}

func TestRecordResultsResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pk", 0)

	// simulate an earlier run that updated u01 and stopped before completing the party
	if err := f.records.Save(ctx, &domain.UserRecord{
		UserID:     "u01",
		Wins:       1,
		TotalKills: 3,
		Matches:    []domain.MatchEntry{{PartyID: p.ID, Result: domain.ResultWin, Kills: 3}},
	}); err != nil {
		t.Fatal(err)
	}

	_, err := f.parties.RecordResults(ctx, p.ID, []domain.Result{
		{UserID: "u01", Win: true, Kills: 3},
		{UserID: "u02", Win: false, Kills: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	u1, _ := f.records.Get(ctx, "u01")
	u2, _ := f.records.Get(ctx, "u02")
	if u1.Wins != 1 || u1.TotalKills != 3 {
		t.Errorf("u01 re-applied: %+v", u1)
	}
	if u2.Losses != 1 || u2.TotalKills != 1 {
		t.Errorf("u02 not applied: %+v", u2)
	}
}

func TestRecordResultsTrimsMatchHistory(t *testing.T) {
	f := newFixtureWith(t, func(cfg *config.Config) { cfg.Party.MatchHistory = 2 })
	ctx := context.Background()

	runs := []domain.Result{
		{UserID: "u01", Win: true, Kills: 3},
		{UserID: "u01", Win: false, Kills: 1},
		{UserID: "u01", Win: true, Kills: 5},
	}
	var ids []string
	for _, r := range runs {
		p := f.create(t, "pk", 0)
		if _, err := f.parties.RecordResults(ctx, p.ID, []domain.Result{r}); err != nil {
			t.Fatalf("RecordResults: %v", err)
		}
		ids = append(ids, p.ID)
	}

	rec, err := f.records.Get(ctx, "u01")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(rec.Matches))
	}
	if rec.Matches[0].PartyID != ids[1] || rec.Matches[1].PartyID != ids[2] {
		t.Errorf("kept matches %s, %s; want the two latest parties", rec.Matches[0].PartyID, rec.Matches[1].PartyID)
	}
	if rec.Wins != 2 || rec.Losses != 1 || rec.TotalKills != 9 {
		t.Errorf("totals = %d/%d/%d, want 2/1/9", rec.Wins, rec.Losses, rec.TotalKills)
	}

	d, err := f.stats.Detailed(ctx, "u01")
	if err != nil {
		t.Fatal(err)
	}
	if len(d.RecentMatches) != 2 || d.RecentMatches[0].PartyID != ids[2] || d.RecentMatches[0].Kills != 5 {
		t.Errorf("recent matches = %+v, want newest first", d.RecentMatches)
	}

	// a retained match is still recognised and not applied twice
	if err := f.parties.applyResult(ctx, ids[2], runs[2], time.Now()); err != nil {
		t.Fatal(err)
	}
	rec, _ = f.records.Get(ctx, "u01")
	if rec.Wins != 2 || rec.TotalKills != 9 || len(rec.Matches) != 2 {
		t.Errorf("retained match re-applied: %+v", rec)
	}

	// a new party still trims to the limit
	p := f.create(t, "pk", 0)
	for i := 0; i < 2; i++ {
		if err := f.parties.applyResult(ctx, p.ID, domain.Result{UserID: "u01", Win: true, Kills: 2}, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	rec, _ = f.records.Get(ctx, "u01")
	if rec.Wins != 3 || rec.TotalKills != 11 || len(rec.Matches) != 2 || rec.Matches[1].PartyID != p.ID {
		t.Errorf("after fourth party: %+v", rec)
	}
}

func TestRecordResultsWinnerOutsideTeamsDefaultsToOne(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, "mock_battle", 0)

	done, err := f.parties.RecordResults(context.Background(), p.ID, []domain.Result{{UserID: "outsider", Win: true}})
	if err != nil {
		t.Fatal(err)
	}
	if done.WinnerTeam != 1 {
		t.Errorf("WinnerTeam = %d, want 1", done.WinnerTeam)
	}
}

func TestRecordResultsRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, "pk", 0)

	_, err := f.parties.RecordResults(context.Background(), p.ID, []domain.Result{{UserID: "a"}, {UserID: "a"}})
	if domain.KindOf(err) != domain.KindInvalidInput {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestConcurrentJoinsKeepEveryMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "regular_battle", 0)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.parties.Join(ctx, p.ID, user(i), domain.JoinInput{}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("join: %v", err)
	}

	got, _ := f.parties.Get(ctx, p.ID)
	if len(got.Members) != 20 {
		t.Errorf("members = %d, want 20", len(got.Members))
	}
}

func TestConcurrentMovesRespectCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "pk", 0)

	for i := 1; i <= 8; i++ {
		if _, err := f.parties.Join(ctx, p.ID, user(i), domain.JoinInput{}); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.parties.Move(ctx, p.ID, user(i).UserID, 1)
		}(i)
	}
	wg.Wait()

	got, _ := f.parties.Get(ctx, p.ID)
	if got.TeamCount(1) != got.MaxPerTeam {
		t.Errorf("team 1 has %d members, want %d", got.TeamCount(1), got.MaxPerTeam)
	}
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true

	p := f.create(t, "pk", 0)
	if _, err := f.parties.Join(context.Background(), p.ID, user(1), domain.JoinInput{}); err != nil {
		t.Fatalf("join with failing notifier: %v", err)
	}
	if len(f.notifier.modes) != 2 || f.notifier.modes[0] != domain.RenderNew {
		t.Errorf("modes = %v", f.notifier.modes)
	}
}
