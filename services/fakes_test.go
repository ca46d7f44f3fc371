package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/amalyulianto/sirkel-main-backend/repositories"
)

// Заглушка database/sql: сервисы открывают транзакции на *sql.DB, но все
// фактические обращения идут через фейковые репозитории, поэтому драйверу
// достаточно уметь Begin/Commit/Rollback.

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConnector struct{}

func (stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{}, nil }
func (stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func newStubDB() *sql.DB { return sql.OpenDB(stubConnector{}) }

// fakeStore — общее состояние фейковых репозиториев одного теста.
type fakeStore struct {
	mu sync.Mutex

	nextID       int
	leaderboards map[int]*models.Leaderboard
	editors      map[int]map[int]bool // leaderboardID -> userID
	players      map[int]*models.Player
	users        map[int]*models.User
	games        []*models.Game
	stats        map[[2]int]*models.Stats // [playerID, leaderboardID]

	failGameNameCascade bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leaderboards: make(map[int]*models.Leaderboard),
		editors:      make(map[int]map[int]bool),
		players:      make(map[int]*models.Player),
		users:        make(map[int]*models.User),
		stats:        make(map[[2]int]*models.Stats),
	}
}

func (st *fakeStore) id() int {
	st.nextID++
	return st.nextID
}

func (st *fakeStore) addUser(username, email string) *models.User {
	st.mu.Lock()
	defer st.mu.Unlock()
	u := &models.User{ID: st.id(), Username: username, Name: username, Email: email}
	st.users[u.ID] = u
	return u
}

func (st *fakeStore) addLeaderboard(name string, ownerID int) *models.Leaderboard {
	st.mu.Lock()
	defer st.mu.Unlock()
	lb := &models.Leaderboard{ID: st.id(), Name: name, GameType: models.GameTypeFootball, LeaderboardFormat: "1v1", OwnerID: ownerID}
	st.leaderboards[lb.ID] = lb
	return lb
}

func (st *fakeStore) addPlayer(leaderboardID int, name string) *models.Player {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := &models.Player{ID: st.id(), LeaderboardID: leaderboardID, Name: name}
	st.players[p.ID] = p
	st.stats[[2]int{p.ID, leaderboardID}] = &models.Stats{PlayerID: p.ID, LeaderboardID: leaderboardID}
	return p
}

// --- LeaderboardRepository ---

type fakeLeaderboardRepo struct{ st *fakeStore }

func (r *fakeLeaderboardRepo) Create(_ context.Context, _ repositories.SQLExecutor, lb *models.Leaderboard) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.leaderboards {
		if existing.Name == lb.Name {
			return repositories.ErrLeaderboardNameConflict
		}
	}
	lb.ID = r.st.id()
	cp := *lb
	r.st.leaderboards[lb.ID] = &cp
	return nil
}

func (r *fakeLeaderboardRepo) GetByID(_ context.Context, id int) (*models.Leaderboard, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	lb, ok := r.st.leaderboards[id]
	if !ok {
		return nil, repositories.ErrLeaderboardNotFound
	}
	cp := *lb
	return &cp, nil
}

func (r *fakeLeaderboardRepo) ListByUser(_ context.Context, userID int) ([]models.Leaderboard, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.Leaderboard
	for _, lb := range r.st.leaderboards {
		if lb.OwnerID == userID || r.st.editors[lb.ID][userID] {
			out = append(out, *lb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLeaderboardRepo) UpdateName(_ context.Context, id int, name string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	lb, ok := r.st.leaderboards[id]
	if !ok {
		return repositories.ErrLeaderboardNotFound
	}
	for _, existing := range r.st.leaderboards {
		if existing.ID != id && existing.Name == name {
			return repositories.ErrLeaderboardNameConflict
		}
	}
	lb.Name = name
	return nil
}

func (r *fakeLeaderboardRepo) UpdateCoverKey(_ context.Context, id int, coverKey *string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	lb, ok := r.st.leaderboards[id]
	if !ok {
		return repositories.ErrLeaderboardNotFound
	}
	lb.CoverKey = coverKey
	return nil
}

func (r *fakeLeaderboardRepo) Delete(_ context.Context, id int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.leaderboards[id]; !ok {
		return repositories.ErrLeaderboardNotFound
	}
	delete(r.st.leaderboards, id)
	return nil
}

func (r *fakeLeaderboardRepo) AddEditor(_ context.Context, leaderboardID, userID int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.editors[leaderboardID] == nil {
		r.st.editors[leaderboardID] = make(map[int]bool)
	}
	if r.st.editors[leaderboardID][userID] {
		return repositories.ErrEditorConflict
	}
	r.st.editors[leaderboardID][userID] = true
	return nil
}

func (r *fakeLeaderboardRepo) RemoveEditor(_ context.Context, leaderboardID, userID int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if !r.st.editors[leaderboardID][userID] {
		return repositories.ErrEditorNotFound
	}
	delete(r.st.editors[leaderboardID], userID)
	return nil
}

func (r *fakeLeaderboardRepo) ListEditors(_ context.Context, leaderboardID int) ([]models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.User
	for userID := range r.st.editors[leaderboardID] {
		if u, ok := r.st.users[userID]; ok {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLeaderboardRepo) IsEditor(_ context.Context, leaderboardID, userID int) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.editors[leaderboardID][userID], nil
}

// --- PlayerRepository ---

type fakePlayerRepo struct{ st *fakeStore }

func (r *fakePlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, player *models.Player) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.players {
		if existing.LeaderboardID == player.LeaderboardID && strings.EqualFold(existing.Name, player.Name) {
			return repositories.ErrPlayerNameConflict
		}
	}
	player.ID = r.st.id()
	cp := *player
	r.st.players[player.ID] = &cp
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, leaderboardID, playerID int) (*models.Player, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.players[playerID]
	if !ok || p.LeaderboardID != leaderboardID {
		return nil, repositories.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePlayerRepo) FindByIDs(_ context.Context, leaderboardID int, ids []int) ([]models.Player, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.Player
	for _, id := range ids {
		if p, ok := r.st.players[id]; ok && p.LeaderboardID == leaderboardID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) FindByNames(_ context.Context, leaderboardID int, names []string) ([]models.Player, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.Player
	for _, name := range names {
		for _, p := range r.st.players {
			if p.LeaderboardID == leaderboardID && p.Name == name {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) GetByNameFold(_ context.Context, leaderboardID int, name string) (*models.Player, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, p := range r.st.players {
		if p.LeaderboardID == leaderboardID && strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListByLeaderboard(_ context.Context, leaderboardID int) ([]models.Player, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.Player
	for _, p := range r.st.players {
		if p.LeaderboardID == leaderboardID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) UpdateName(_ context.Context, leaderboardID, playerID int, name string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.players[playerID]
	if !ok || p.LeaderboardID != leaderboardID {
		return repositories.ErrPlayerNotFound
	}
	for _, existing := range r.st.players {
		if existing.ID != playerID && existing.LeaderboardID == leaderboardID && strings.EqualFold(existing.Name, name) {
			return repositories.ErrPlayerNameConflict
		}
	}
	p.Name = name
	return nil
}

func (r *fakePlayerRepo) Delete(_ context.Context, leaderboardID, playerID int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.players[playerID]
	if !ok || p.LeaderboardID != leaderboardID {
		return repositories.ErrPlayerNotFound
	}
	delete(r.st.players, playerID)
	return nil
}

// --- GameRepository ---

type fakeGameRepo struct{ st *fakeStore }

func (r *fakeGameRepo) Create(_ context.Context, _ repositories.SQLExecutor, game *models.Game) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	game.ID = r.st.id()
	cp := *game
	cp.Players = append([]models.GamePlayer(nil), game.Players...)
	r.st.games = append(r.st.games, &cp)
	return nil
}

func (r *fakeGameRepo) find(gameID int) *models.Game {
	for _, g := range r.st.games {
		if g.ID == gameID {
			return g
		}
	}
	return nil
}

func (r *fakeGameRepo) CreateFootballDetail(_ context.Context, _ repositories.SQLExecutor, detail *models.FootballDetail) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if g := r.find(detail.GameID); g != nil {
		g.Football = detail
		return nil
	}
	return repositories.ErrGameNotFound
}

func (r *fakeGameRepo) CreateBadmintonDetail(_ context.Context, _ repositories.SQLExecutor, detail *models.BadmintonDetail) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if g := r.find(detail.GameID); g != nil {
		g.Badminton = detail
		return nil
	}
	return repositories.ErrGameNotFound
}

func (r *fakeGameRepo) CreateCardGameDetail(_ context.Context, _ repositories.SQLExecutor, detail *models.CardGameDetail) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if g := r.find(detail.GameID); g != nil {
		g.CardGame = detail
		return nil
	}
	return repositories.ErrGameNotFound
}

func (r *fakeGameRepo) GetByID(_ context.Context, id int) (*models.Game, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if g := r.find(id); g != nil {
		cp := *g
		return &cp, nil
	}
	return nil, repositories.ErrGameNotFound
}

func (r *fakeGameRepo) ListByLeaderboard(_ context.Context, leaderboardID int, gameType models.GameType) ([]models.Game, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.Game
	for i := len(r.st.games) - 1; i >= 0; i-- {
		g := r.st.games[i]
		if g.LeaderboardID == leaderboardID && g.GameType == gameType {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeGameRepo) ListByPlayer(_ context.Context, leaderboardID, playerID int, gameType models.GameType) ([]models.Game, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.Game
	for i := len(r.st.games) - 1; i >= 0; i-- {
		g := r.st.games[i]
		if g.LeaderboardID != leaderboardID || g.GameType != gameType {
			continue
		}
		for _, p := range g.Players {
			if p.PlayerID == playerID {
				out = append(out, *g)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeGameRepo) UpdatePlayerName(_ context.Context, leaderboardID, playerID int, name string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failGameNameCascade {
		return errors.New("cascade failed")
	}
	for _, g := range r.st.games {
		if g.LeaderboardID != leaderboardID {
			continue
		}
		for i := range g.Players {
			if g.Players[i].PlayerID == playerID {
				g.Players[i].Name = name
			}
		}
	}
	return nil
}

func (r *fakeGameRepo) UpdateCardGameRankingName(_ context.Context, leaderboardID, playerID int, name string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failGameNameCascade {
		return errors.New("cascade failed")
	}
	for _, g := range r.st.games {
		if g.LeaderboardID != leaderboardID || g.CardGame == nil {
			continue
		}
		for i := range g.CardGame.Ranking {
			if g.CardGame.Ranking[i].PlayerID == playerID {
				g.CardGame.Ranking[i].Name = name
			}
		}
	}
	return nil
}

// --- StatsRepository ---

// fakeStatsRepo повторяет арифметику SQL-инкрементов, включая пересчёт
// производных полей из уже увеличенных значений.
type fakeStatsRepo struct{ st *fakeStore }

func (r *fakeStatsRepo) Create(_ context.Context, _ repositories.SQLExecutor, playerID, leaderboardID int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.stats[[2]int{playerID, leaderboardID}] = &models.Stats{PlayerID: playerID, LeaderboardID: leaderboardID}
	return nil
}

func (r *fakeStatsRepo) Get(_ context.Context, playerID, leaderboardID int) (*models.Stats, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.stats[[2]int{playerID, leaderboardID}]
	if !ok {
		return nil, repositories.ErrStatsNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStatsRepo) ListByLeaderboard(_ context.Context, leaderboardID int) ([]models.Stats, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.Stats
	for key, s := range r.st.stats {
		if key[1] != leaderboardID {
			continue
		}
		p, ok := r.st.players[key[0]]
		if !ok {
			// Осиротевшая статистика удалённого игрока в выборку не попадает.
			continue
		}
		cp := *s
		cp.PlayerName = p.Name
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (r *fakeStatsRepo) ApplyFootball(_ context.Context, playerID, leaderboardID int, d repositories.FootballStatsDelta) (*models.Stats, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.stats[[2]int{playerID, leaderboardID}]
	if !ok {
		return nil, repositories.ErrStatsNotFound
	}
	f := &s.Football
	f.GamesPlayed++
	if d.Won {
		f.GamesWon++
	}
	if d.Lost {
		f.GamesLost++
	}
	if d.PenaltyWin {
		f.GamesWonByPenalty++
	}
	if d.PenaltyLoss {
		f.GamesLostByPenalty++
	}
	f.GoalsScored += d.GoalsScored
	f.GoalsAllowed += d.GoalsAllowed
	f.TotalPoints += d.Points
	f.WinPercentage = float64(f.GamesWon) / float64(f.GamesPlayed)
	f.GoalDifference = f.GoalsScored - f.GoalsAllowed
	cp := *s
	return &cp, nil
}

func (r *fakeStatsRepo) ApplyBadminton(_ context.Context, playerID, leaderboardID int, d repositories.BadmintonStatsDelta) (*models.Stats, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.stats[[2]int{playerID, leaderboardID}]
	if !ok {
		return nil, repositories.ErrStatsNotFound
	}
	b := &s.Badminton
	b.OverallGamesPlayed++
	if d.Won {
		b.OverallGamesWon++
	} else {
		b.OverallGamesLost++
	}
	b.OverallWinPercentage = float64(b.OverallGamesWon) / float64(b.OverallGamesPlayed)
	if d.MatchType == models.MatchTypeSingles {
		b.SinglesGamesPlayed++
		if d.Won {
			b.SinglesGamesWon++
		} else {
			b.SinglesGamesLost++
		}
		b.SinglesWinPercentage = float64(b.SinglesGamesWon) / float64(b.SinglesGamesPlayed)
	} else {
		b.DoublesGamesPlayed++
		if d.Won {
			b.DoublesGamesWon++
		} else {
			b.DoublesGamesLost++
		}
		b.DoublesWinPercentage = float64(b.DoublesGamesWon) / float64(b.DoublesGamesPlayed)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStatsRepo) ApplyCardGame(_ context.Context, playerID, leaderboardID int, d repositories.CardGameStatsDelta) (*models.Stats, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.stats[[2]int{playerID, leaderboardID}]
	if !ok {
		return nil, repositories.ErrStatsNotFound
	}
	c := &s.CardGames
	c.GamesPlayed++
	switch d.Place {
	case 1:
		c.Wins1st++
	case 2:
		c.Wins2nd++
	case 3:
		c.Wins3rd++
	}
	c.TotalPoints += d.Points
	c.WinPercentage = float64(c.Wins1st) / float64(c.GamesPlayed) * 100
	cp := *s
	return &cp, nil
}

// --- UserRepository ---

type fakeUserRepo struct{ st *fakeStore }

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Username == user.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	user.ID = r.st.id()
	cp := *user
	r.st.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	cp := *user
	r.st.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) SetPasswordResetToken(_ context.Context, userID int, token string, expiresAt time.Time) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpiresAt = &expiresAt
	return nil
}

func (r *fakeUserRepo) GetByPasswordResetToken(_ context.Context, token string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// recordingNotifier запоминает разосланные сообщения.
type recordingNotifier struct {
	mu       sync.Mutex
	rooms    []string
	messages []interface{}
}

func (n *recordingNotifier) BroadcastToRoom(roomID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, roomID)
	n.messages = append(n.messages, message)
}
