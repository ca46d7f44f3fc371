package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/amalyulianto/sirkel-main-backend/repositories"
	"github.com/amalyulianto/sirkel-main-backend/sports"
)

// SubmitGameInput — сырой результат матча. Участники задаются строками:
// либо все записи — числовые id, либо все — имена игроков лидерборда.
// Для карточных игр вместо Players передаётся Ranking в порядке финиша.
type SubmitGameInput struct {
	Players   []string           `json:"players"`
	Score     *models.ScorePair  `json:"score"`
	Penalties *models.ScorePair  `json:"penalties"`
	Sets      []models.ScorePair `json:"sets"`
	MatchType models.MatchType   `json:"matchType"`
	Ranking   []string           `json:"ranking"`
}

// RankingNotifier рассылает событие подписчикам комнаты лидерборда.
// Совместим с live.Hub.
type RankingNotifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type PlayerStatsView struct {
	Player *models.Player `json:"player"`
	Stats  *models.Stats  `json:"stats"`
	Games  []models.Game  `json:"games"`
}

type GameService interface {
	Submit(ctx context.Context, leaderboardID int, gameType models.GameType, input SubmitGameInput) (*models.Game, error)
	Ranking(ctx context.Context, leaderboardID int, gameType models.GameType) ([]models.Stats, error)
	History(ctx context.Context, leaderboardID int, gameType models.GameType) ([]models.Game, error)
	PlayerStats(ctx context.Context, leaderboardID, playerID int, gameType models.GameType) (*PlayerStatsView, error)
}

type gameService struct {
	db              *sql.DB
	leaderboardRepo repositories.LeaderboardRepository
	playerRepo      repositories.PlayerRepository
	gameRepo        repositories.GameRepository
	statsRepo       repositories.StatsRepository
	notifier        RankingNotifier
	logger          *slog.Logger
}

func NewGameService(
	db *sql.DB,
	leaderboardRepo repositories.LeaderboardRepository,
	playerRepo repositories.PlayerRepository,
	gameRepo repositories.GameRepository,
	statsRepo repositories.StatsRepository,
	notifier RankingNotifier,
	logger *slog.Logger,
) GameService {
	return &gameService{
		db:              db,
		leaderboardRepo: leaderboardRepo,
		playerRepo:      playerRepo,
		gameRepo:        gameRepo,
		statsRepo:       statsRepo,
		notifier:        notifier,
		logger:          logger,
	}
}

// Submit проводит результат матча через общий конвейер: разрешение
// участников, валидация, подсчёт исхода, запись матча с деталями в одной
// транзакции и инкременты статистики каждого участника.
func (s *gameService) Submit(ctx context.Context, leaderboardID int, gameType models.GameType, input SubmitGameInput) (*models.Game, error) {
	rules, err := sports.For(gameType)
	if err != nil {
		return nil, ErrInvalidGameType
	}

	if _, err := s.leaderboardRepo.GetByID(ctx, leaderboardID); err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}

	refs := input.Players
	if gameType == models.GameTypeCardGames {
		refs = input.Ranking
	}
	if len(refs) == 0 {
		return nil, ErrPlayersRequired
	}

	participants, err := s.resolvePlayers(ctx, leaderboardID, refs)
	if err != nil {
		return nil, err
	}

	in := sports.MatchInput{
		Players:   participants,
		Score:     input.Score,
		Penalties: input.Penalties,
		Sets:      input.Sets,
		MatchType: input.MatchType,
	}
	if err := rules.Validate(in); err != nil {
		return nil, err
	}
	outcome := rules.Score(in)

	game, err := s.persistGame(ctx, leaderboardID, gameType, in, outcome)
	if err != nil {
		return nil, err
	}

	if err := s.applyStats(ctx, leaderboardID, gameType, input.MatchType, outcome); err != nil {
		return nil, err
	}

	s.notifyRankingUpdated(leaderboardID, gameType)
	return game, nil
}

func (s *gameService) Ranking(ctx context.Context, leaderboardID int, gameType models.GameType) ([]models.Stats, error) {
	rules, err := sports.For(gameType)
	if err != nil {
		return nil, ErrInvalidGameType
	}

	if _, err := s.leaderboardRepo.GetByID(ctx, leaderboardID); err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}

	stats, err := s.statsRepo.ListByLeaderboard(ctx, leaderboardID)
	if err != nil {
		return nil, err
	}
	return sports.Project(rules, stats), nil
}

func (s *gameService) History(ctx context.Context, leaderboardID int, gameType models.GameType) ([]models.Game, error) {
	if !gameType.Valid() {
		return nil, ErrInvalidGameType
	}

	if _, err := s.leaderboardRepo.GetByID(ctx, leaderboardID); err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}

	return s.gameRepo.ListByLeaderboard(ctx, leaderboardID, gameType)
}

func (s *gameService) PlayerStats(ctx context.Context, leaderboardID, playerID int, gameType models.GameType) (*PlayerStatsView, error) {
	if !gameType.Valid() {
		return nil, ErrInvalidGameType
	}

	player, err := s.playerRepo.GetByID(ctx, leaderboardID, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	stats, err := s.statsRepo.Get(ctx, playerID, leaderboardID)
	if err != nil {
		if errors.Is(err, repositories.ErrStatsNotFound) {
			return nil, ErrStatsNotFound
		}
		return nil, err
	}
	stats.PlayerName = player.Name

	games, err := s.gameRepo.ListByPlayer(ctx, leaderboardID, playerID, gameType)
	if err != nil {
		return nil, err
	}

	return &PlayerStatsView{Player: player, Stats: stats, Games: games}, nil
}

// resolvePlayers переводит ссылки на участников в записи игроков, сохраняя
// порядок отправки. Если каждая ссылка — целое число, поиск идёт по id,
// иначе по именам.
func (s *gameService) resolvePlayers(ctx context.Context, leaderboardID int, refs []string) ([]models.GamePlayer, error) {
	ids := make([]int, 0, len(refs))
	allIDs := true
	for _, ref := range refs {
		id, err := strconv.Atoi(ref)
		if err != nil {
			allIDs = false
			break
		}
		ids = append(ids, id)
	}

	var (
		found []models.Player
		err   error
	)
	if allIDs {
		found, err = s.playerRepo.FindByIDs(ctx, leaderboardID, ids)
	} else {
		names := make([]string, len(refs))
		for i, ref := range refs {
			names[i] = normalizeName(ref)
		}
		found, err = s.playerRepo.FindByNames(ctx, leaderboardID, names)
	}
	if err != nil {
		return nil, err
	}
	if len(found) != len(refs) {
		return nil, ErrPlayerNotFound
	}

	participants := make([]models.GamePlayer, len(found))
	for i, p := range found {
		participants[i] = models.GamePlayer{PlayerID: p.ID, Name: p.Name}
	}
	return participants, nil
}

// persistGame пишет запись матча и его детальную запись в одной транзакции:
// матч без деталей в истории не появляется.
func (s *gameService) persistGame(ctx context.Context, leaderboardID int, gameType models.GameType, in sports.MatchInput, outcome sports.Outcome) (game *models.Game, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error during rollback: %v. Original error: %v", rbErr, txErr)
			}
			game, err = nil, txErr
		} else {
			if cErr := tx.Commit(); cErr != nil {
				game, err = nil, fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	winnerID := outcome.WinnerID
	game = &models.Game{
		LeaderboardID: leaderboardID,
		GameType:      gameType,
		Players:       in.Players,
		WinnerID:      &winnerID,
	}
	for _, p := range in.Players {
		if p.PlayerID == winnerID {
			name := p.Name
			game.WinnerName = &name
			break
		}
	}
	if txErr = s.gameRepo.Create(ctx, tx, game); txErr != nil {
		return nil, txErr
	}

	switch gameType {
	case models.GameTypeFootball:
		game.Football = &models.FootballDetail{
			GameID:    game.ID,
			Score:     *in.Score,
			Penalties: in.Penalties,
		}
		txErr = s.gameRepo.CreateFootballDetail(ctx, tx, game.Football)
	case models.GameTypeBadminton:
		game.Badminton = &models.BadmintonDetail{
			GameID:    game.ID,
			Sets:      in.Sets,
			MatchType: in.MatchType,
		}
		txErr = s.gameRepo.CreateBadmintonDetail(ctx, tx, game.Badminton)
	case models.GameTypeCardGames:
		ranking := make([]models.RankEntry, len(in.Players))
		for i, p := range in.Players {
			entry := models.RankEntry{PlayerID: p.PlayerID, Name: p.Name}
			if i < sports.PlacePersisted {
				place := i + 1
				entry.Place = &place
			}
			ranking[i] = entry
		}
		game.CardGame = &models.CardGameDetail{GameID: game.ID, Ranking: ranking}
		txErr = s.gameRepo.CreateCardGameDetail(ctx, tx, game.CardGame)
	}
	if txErr != nil {
		return nil, txErr
	}

	return game, nil
}

// applyStats применяет дельты матча к статистике каждого участника.
// Инкременты независимы по игрокам, поэтому выполняются параллельно.
func (s *gameService) applyStats(ctx context.Context, leaderboardID int, gameType models.GameType, matchType models.MatchType, outcome sports.Outcome) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, po := range outcome.Players {
		po := po
		g.Go(func() error {
			var err error
			switch gameType {
			case models.GameTypeFootball:
				_, err = s.statsRepo.ApplyFootball(gctx, po.PlayerID, leaderboardID, repositories.FootballStatsDelta{
					Points:       po.Points,
					Won:          po.Won,
					Lost:         po.Lost,
					PenaltyWin:   po.Won && outcome.IsPenaltyWin,
					PenaltyLoss:  po.Lost && outcome.IsPenaltyWin,
					GoalsScored:  po.GoalsScored,
					GoalsAllowed: po.GoalsAllowed,
				})
			case models.GameTypeBadminton:
				_, err = s.statsRepo.ApplyBadminton(gctx, po.PlayerID, leaderboardID, repositories.BadmintonStatsDelta{
					Won:       po.Won,
					MatchType: matchType,
				})
			case models.GameTypeCardGames:
				_, err = s.statsRepo.ApplyCardGame(gctx, po.PlayerID, leaderboardID, repositories.CardGameStatsDelta{
					Points: po.Points,
					Place:  po.Place,
				})
			}
			if err != nil {
				return fmt.Errorf("failed to update stats for player %d: %w", po.PlayerID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *gameService) notifyRankingUpdated(leaderboardID int, gameType models.GameType) {
	if s.notifier == nil {
		return
	}
	s.logger.Debug("broadcasting ranking update",
		slog.Int("leaderboard_id", leaderboardID),
		slog.String("game_type", string(gameType)))
	s.notifier.BroadcastToRoom(fmt.Sprintf("leaderboard_%d", leaderboardID), map[string]interface{}{
		"type": "RANKING_UPDATED",
		"payload": map[string]interface{}{
			"leaderboardId": leaderboardID,
			"gameType":      gameType,
		},
	})
}
