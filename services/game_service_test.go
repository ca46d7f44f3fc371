package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/amalyulianto/sirkel-main-backend/sports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGameServiceForTest(st *fakeStore, notifier RankingNotifier) GameService {
	return NewGameService(
		newStubDB(),
		&fakeLeaderboardRepo{st},
		&fakePlayerRepo{st},
		&fakeGameRepo{st},
		&fakeStatsRepo{st},
		notifier,
		testLogger(),
	)
}

func scorePtr(p1, p2 int) *models.ScorePair {
	return &models.ScorePair{Player1: p1, Player2: p2}
}

func TestSubmitFootballRegulationWin(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	alice := st.addPlayer(lb.ID, "Alice")
	bob := st.addPlayer(lb.ID, "Bob")

	notifier := &recordingNotifier{}
	svc := newGameServiceForTest(st, notifier)

	game, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players: []string{"Alice", "Bob"},
		Score:   scorePtr(3, 1),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if game.WinnerID == nil || *game.WinnerID != alice.ID {
		t.Fatalf("winner = %v, want %d", game.WinnerID, alice.ID)
	}
	if game.Football == nil {
		t.Fatal("football detail not attached")
	}
	if game.Football.Penalties != nil {
		t.Errorf("penalties = %v, want nil", game.Football.Penalties)
	}

	aliceStats, err := svc.PlayerStats(context.Background(), lb.ID, alice.ID, models.GameTypeFootball)
	if err != nil {
		t.Fatalf("PlayerStats: %v", err)
	}
	f := aliceStats.Stats.Football
	if f.GamesPlayed != 1 || f.GamesWon != 1 || f.TotalPoints != 3 {
		t.Errorf("winner stats = played %d won %d points %d, want 1/1/3", f.GamesPlayed, f.GamesWon, f.TotalPoints)
	}
	if f.GoalsScored != 3 || f.GoalsAllowed != 1 || f.GoalDifference != 2 {
		t.Errorf("winner goals = %d/%d diff %d, want 3/1/2", f.GoalsScored, f.GoalsAllowed, f.GoalDifference)
	}
	if f.WinPercentage != 1 {
		t.Errorf("winner winPercentage = %v, want 1", f.WinPercentage)
	}

	bobStats, _ := svc.PlayerStats(context.Background(), lb.ID, bob.ID, models.GameTypeFootball)
	if bobStats.Stats.Football.GamesLost != 1 || bobStats.Stats.Football.TotalPoints != 0 {
		t.Errorf("loser stats = lost %d points %d, want 1/0", bobStats.Stats.Football.GamesLost, bobStats.Stats.Football.TotalPoints)
	}

	if len(notifier.rooms) != 1 || notifier.rooms[0] != "leaderboard_"+strconv.Itoa(lb.ID) {
		t.Errorf("broadcast rooms = %v", notifier.rooms)
	}
}

func TestSubmitFootballPenaltyWin(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	st.addPlayer(lb.ID, "Alice")
	bob := st.addPlayer(lb.ID, "Bob")

	svc := newGameServiceForTest(st, nil)

	game, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players:   []string{"Alice", "Bob"},
		Score:     scorePtr(2, 2),
		Penalties: scorePtr(3, 4),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if *game.WinnerID != bob.ID {
		t.Fatalf("winner = %d, want %d", *game.WinnerID, bob.ID)
	}

	bobStats, _ := svc.PlayerStats(context.Background(), lb.ID, bob.ID, models.GameTypeFootball)
	f := bobStats.Stats.Football
	if f.TotalPoints != 2 || f.GamesWonByPenalty != 1 {
		t.Errorf("penalty winner = points %d penaltyWins %d, want 2/1", f.TotalPoints, f.GamesWonByPenalty)
	}
}

func TestSubmitFootballTieWithoutPenalties(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	alice := st.addPlayer(lb.ID, "Alice")
	st.addPlayer(lb.ID, "Bob")

	svc := newGameServiceForTest(st, nil)

	_, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players: []string{"Alice", "Bob"},
		Score:   scorePtr(1, 1),
	})
	if !errors.Is(err, sports.ErrPenaltiesRequired) {
		t.Fatalf("err = %v, want ErrPenaltiesRequired", err)
	}

	// Отклонённый матч не должен оставить следов ни в истории, ни в статистике.
	if len(st.games) != 0 {
		t.Errorf("games persisted = %d, want 0", len(st.games))
	}
	stats := st.stats[[2]int{alice.ID, lb.ID}]
	if stats.Football.GamesPlayed != 0 {
		t.Errorf("stats touched after rejected submit: %+v", stats.Football)
	}
}

func TestSubmitResolvesPlayersByID(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	alice := st.addPlayer(lb.ID, "Alice")
	bob := st.addPlayer(lb.ID, "Bob")

	svc := newGameServiceForTest(st, nil)

	game, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players: []string{strconv.Itoa(bob.ID), strconv.Itoa(alice.ID)},
		Score:   scorePtr(1, 0),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Победил первый в порядке отправки, то есть Bob.
	if *game.WinnerID != bob.ID {
		t.Errorf("winner = %d, want %d", *game.WinnerID, bob.ID)
	}
	if game.Players[0].Name != "Bob" {
		t.Errorf("first participant = %q, want Bob", game.Players[0].Name)
	}
}

func TestSubmitUnknownPlayer(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	st.addPlayer(lb.ID, "Alice")

	svc := newGameServiceForTest(st, nil)

	_, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players: []string{"Alice", "Nobody"},
		Score:   scorePtr(1, 0),
	})
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("err = %v, want ErrPlayerNotFound", err)
	}
}

func TestSubmitUnknownLeaderboard(t *testing.T) {
	st := newFakeStore()
	svc := newGameServiceForTest(st, nil)

	_, err := svc.Submit(context.Background(), 404, models.GameTypeFootball, SubmitGameInput{
		Players: []string{"Alice", "Bob"},
		Score:   scorePtr(1, 0),
	})
	if !errors.Is(err, ErrLeaderboardNotFound) {
		t.Fatalf("err = %v, want ErrLeaderboardNotFound", err)
	}
}

func TestSubmitBadmintonDoubles(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Club", owner.ID)
	a := st.addPlayer(lb.ID, "A")
	st.addPlayer(lb.ID, "B")
	st.addPlayer(lb.ID, "C")
	d := st.addPlayer(lb.ID, "D")

	svc := newGameServiceForTest(st, nil)

	game, err := svc.Submit(context.Background(), lb.ID, models.GameTypeBadminton, SubmitGameInput{
		Players:   []string{"A", "B", "C", "D"},
		Sets:      []models.ScorePair{{Player1: 21, Player2: 15}, {Player1: 19, Player2: 21}, {Player1: 21, Player2: 18}},
		MatchType: models.MatchTypeDoubles,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Команда 1 взяла два сета из трёх, победителем записан её первый игрок.
	if *game.WinnerID != a.ID {
		t.Fatalf("winner = %d, want %d", *game.WinnerID, a.ID)
	}
	if game.Badminton == nil || len(game.Badminton.Sets) != 3 {
		t.Fatalf("badminton detail = %+v", game.Badminton)
	}

	aStats, _ := svc.PlayerStats(context.Background(), lb.ID, a.ID, models.GameTypeBadminton)
	b := aStats.Stats.Badminton
	if b.OverallGamesWon != 1 || b.DoublesGamesWon != 1 || b.SinglesGamesPlayed != 0 {
		t.Errorf("badminton stats = %+v", b)
	}
	dStats, _ := svc.PlayerStats(context.Background(), lb.ID, d.ID, models.GameTypeBadminton)
	if dStats.Stats.Badminton.OverallGamesLost != 1 || dStats.Stats.Badminton.DoublesGamesLost != 1 {
		t.Errorf("losing side stats = %+v", dStats.Stats.Badminton)
	}
}

func TestSubmitCardGame(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Card night", owner.ID)
	names := []string{"A", "B", "C", "D", "E"}
	players := make([]*models.Player, len(names))
	for i, n := range names {
		players[i] = st.addPlayer(lb.ID, n)
	}

	svc := newGameServiceForTest(st, nil)

	game, err := svc.Submit(context.Background(), lb.ID, models.GameTypeCardGames, SubmitGameInput{
		Ranking: names,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if *game.WinnerID != players[0].ID {
		t.Fatalf("winner = %d, want first in ranking %d", *game.WinnerID, players[0].ID)
	}
	if game.CardGame == nil || len(game.CardGame.Ranking) != 5 {
		t.Fatalf("card detail = %+v", game.CardGame)
	}

	// Место сохраняется только для первых трёх позиций.
	for i, entry := range game.CardGame.Ranking {
		if i < 3 {
			if entry.Place == nil || *entry.Place != i+1 {
				t.Errorf("ranking[%d].place = %v, want %d", i, entry.Place, i+1)
			}
		} else if entry.Place != nil {
			t.Errorf("ranking[%d].place = %d, want nil", i, *entry.Place)
		}
	}

	wantPoints := []int{10, 5, 3, 1, 1}
	for i, p := range players {
		view, err := svc.PlayerStats(context.Background(), lb.ID, p.ID, models.GameTypeCardGames)
		if err != nil {
			t.Fatalf("PlayerStats(%s): %v", p.Name, err)
		}
		if got := view.Stats.CardGames.TotalPoints; got != wantPoints[i] {
			t.Errorf("%s points = %d, want %d", p.Name, got, wantPoints[i])
		}
	}

	winner, _ := svc.PlayerStats(context.Background(), lb.ID, players[0].ID, models.GameTypeCardGames)
	if winner.Stats.CardGames.WinPercentage != 100 {
		t.Errorf("winner winPercentage = %v, want 100", winner.Stats.CardGames.WinPercentage)
	}
}

func TestRankingOrdersAndFilters(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	st.addPlayer(lb.ID, "Alice")
	st.addPlayer(lb.ID, "Bob")
	st.addPlayer(lb.ID, "Idle") // ни одного матча, в рейтинг не попадает

	svc := newGameServiceForTest(st, nil)

	submit := func(p1, p2 string, s1, s2 int) {
		t.Helper()
		input := SubmitGameInput{Players: []string{p1, p2}, Score: scorePtr(s1, s2)}
		if s1 == s2 {
			input.Penalties = scorePtr(s1+1, s2)
		}
		if _, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, input); err != nil {
			t.Fatalf("Submit(%s vs %s): %v", p1, p2, err)
		}
	}
	submit("Alice", "Bob", 2, 0)
	submit("Bob", "Alice", 1, 3)

	ranking, err := svc.Ranking(context.Background(), lb.ID, models.GameTypeFootball)
	if err != nil {
		t.Fatalf("Ranking: %v", err)
	}
	if len(ranking) != 2 {
		t.Fatalf("ranking size = %d, want 2 (idle player excluded)", len(ranking))
	}
	if ranking[0].PlayerName != "Alice" {
		t.Errorf("ranking[0] = %s, want Alice", ranking[0].PlayerName)
	}
	if ranking[0].Football.TotalPoints != 6 {
		t.Errorf("leader points = %d, want 6", ranking[0].Football.TotalPoints)
	}

	// Повторный запрос ничего не меняет.
	again, err := svc.Ranking(context.Background(), lb.ID, models.GameTypeFootball)
	if err != nil {
		t.Fatalf("Ranking again: %v", err)
	}
	if len(again) != 2 || again[0].PlayerName != ranking[0].PlayerName {
		t.Errorf("ranking is not idempotent: %+v", again)
	}
}

func TestRankingExcludesRemovedPlayers(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	alice := st.addPlayer(lb.ID, "Alice")
	st.addPlayer(lb.ID, "Bob")

	svc := newGameServiceForTest(st, nil)
	if _, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players: []string{"Alice", "Bob"},
		Score:   scorePtr(1, 0),
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Игрока убрали из состава: его статистика осиротела и в рейтинг
	// больше не попадает, но история матчей остаётся.
	st.mu.Lock()
	delete(st.players, alice.ID)
	st.mu.Unlock()

	ranking, err := svc.Ranking(context.Background(), lb.ID, models.GameTypeFootball)
	if err != nil {
		t.Fatalf("Ranking: %v", err)
	}
	for _, s := range ranking {
		if s.PlayerID == alice.ID {
			t.Errorf("removed player still ranked: %+v", s)
		}
	}

	history, err := svc.History(context.Background(), lb.ID, models.GameTypeFootball)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history size = %d, want 1", len(history))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	st := newFakeStore()
	owner := st.addUser("owner", "owner@example.com")
	lb := st.addLeaderboard("Office", owner.ID)
	st.addPlayer(lb.ID, "Alice")
	st.addPlayer(lb.ID, "Bob")

	svc := newGameServiceForTest(st, nil)
	first, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players: []string{"Alice", "Bob"}, Score: scorePtr(1, 0),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := svc.Submit(context.Background(), lb.ID, models.GameTypeFootball, SubmitGameInput{
		Players: []string{"Bob", "Alice"}, Score: scorePtr(2, 0),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	history, err := svc.History(context.Background(), lb.ID, models.GameTypeFootball)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history size = %d, want 2", len(history))
	}
	if history[0].ID != second.ID || history[1].ID != first.ID {
		t.Errorf("history order = [%d, %d], want [%d, %d]", history[0].ID, history[1].ID, second.ID, first.ID)
	}
}

func TestSubmitRejectsUnknownGameType(t *testing.T) {
	st := newFakeStore()
	svc := newGameServiceForTest(st, nil)

	_, err := svc.Submit(context.Background(), 1, models.GameType("chess"), SubmitGameInput{})
	if !errors.Is(err, ErrInvalidGameType) {
		t.Fatalf("err = %v, want ErrInvalidGameType", err)
	}
	if _, err := svc.Ranking(context.Background(), 1, models.GameType("chess")); !errors.Is(err, ErrInvalidGameType) {
		t.Fatalf("Ranking err = %v, want ErrInvalidGameType", err)
	}
}
