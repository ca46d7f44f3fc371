package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/lib/pq"
)

var ErrGameNotFound = errors.New("game not found")

type GameRepository interface {
	// Create пишет запись матча вместе с упорядоченным списком участников.
	// Детальная запись создаётся отдельным вызовом в той же транзакции.
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	CreateFootballDetail(ctx context.Context, exec SQLExecutor, detail *models.FootballDetail) error
	CreateBadmintonDetail(ctx context.Context, exec SQLExecutor, detail *models.BadmintonDetail) error
	CreateCardGameDetail(ctx context.Context, exec SQLExecutor, detail *models.CardGameDetail) error

	GetByID(ctx context.Context, id int) (*models.Game, error)
	ListByLeaderboard(ctx context.Context, leaderboardID int, gameType models.GameType) ([]models.Game, error)
	ListByPlayer(ctx context.Context, leaderboardID, playerID int, gameType models.GameType) ([]models.Game, error)

	// Каскад переименования: обновляет денормализованные имена в записях
	// участников и в сохранённых порядках карточных партий.
	UpdatePlayerName(ctx context.Context, leaderboardID, playerID int, name string) error
	UpdateCardGameRankingName(ctx context.Context, leaderboardID, playerID int, name string) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGameRepository) Create(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	executor := r.getExecutor(exec)

	query := `
		INSERT INTO games (leaderboard_id, game_type, winner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, game.LeaderboardID, game.GameType, game.WinnerID).
		Scan(&game.ID, &game.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	for i, p := range game.Players {
		_, err := executor.ExecContext(ctx, `
			INSERT INTO game_players (game_id, position, player_id, name)
			VALUES ($1, $2, $3, $4)`,
			game.ID, i, p.PlayerID, p.Name)
		if err != nil {
			return fmt.Errorf("failed to insert game participant %d: %w", p.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresGameRepository) CreateFootballDetail(ctx context.Context, exec SQLExecutor, detail *models.FootballDetail) error {
	var pen1, pen2 *int
	if detail.Penalties != nil {
		pen1, pen2 = &detail.Penalties.Player1, &detail.Penalties.Player2
	}
	_, err := r.getExecutor(exec).ExecContext(ctx, `
		INSERT INTO football_details (game_id, score1, score2, penalties1, penalties2)
		VALUES ($1, $2, $3, $4, $5)`,
		detail.GameID, detail.Score.Player1, detail.Score.Player2, pen1, pen2)
	if err != nil {
		return fmt.Errorf("failed to insert football detail: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) CreateBadmintonDetail(ctx context.Context, exec SQLExecutor, detail *models.BadmintonDetail) error {
	sets, err := json.Marshal(detail.Sets)
	if err != nil {
		return fmt.Errorf("failed to encode sets: %w", err)
	}
	_, err = r.getExecutor(exec).ExecContext(ctx, `
		INSERT INTO badminton_details (game_id, match_type, sets)
		VALUES ($1, $2, $3)`,
		detail.GameID, detail.MatchType, sets)
	if err != nil {
		return fmt.Errorf("failed to insert badminton detail: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) CreateCardGameDetail(ctx context.Context, exec SQLExecutor, detail *models.CardGameDetail) error {
	ranking, err := json.Marshal(detail.Ranking)
	if err != nil {
		return fmt.Errorf("failed to encode ranking: %w", err)
	}
	_, err = r.getExecutor(exec).ExecContext(ctx, `
		INSERT INTO card_game_details (game_id, ranking)
		VALUES ($1, $2)`,
		detail.GameID, ranking)
	if err != nil {
		return fmt.Errorf("failed to insert card game detail: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `
		SELECT g.id, g.leaderboard_id, g.game_type, g.winner_id, g.created_at, w.name
		FROM games g
		LEFT JOIN players w ON w.id = g.winner_id
		WHERE g.id = $1`

	var game models.Game
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&game.ID, &game.LeaderboardID, &game.GameType, &game.WinnerID, &game.CreatedAt, &game.WinnerName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	games := []models.Game{game}
	if err := r.attachPlayers(ctx, games); err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, game.GameType, games); err != nil {
		return nil, err
	}
	return &games[0], nil
}

func (r *postgresGameRepository) ListByLeaderboard(ctx context.Context, leaderboardID int, gameType models.GameType) ([]models.Game, error) {
	query := `
		SELECT g.id, g.leaderboard_id, g.game_type, g.winner_id, g.created_at, w.name
		FROM games g
		LEFT JOIN players w ON w.id = g.winner_id
		WHERE g.leaderboard_id = $1 AND g.game_type = $2
		ORDER BY g.created_at DESC, g.id DESC`

	return r.queryGames(ctx, gameType, query, leaderboardID, gameType)
}

func (r *postgresGameRepository) ListByPlayer(ctx context.Context, leaderboardID, playerID int, gameType models.GameType) ([]models.Game, error) {
	query := `
		SELECT g.id, g.leaderboard_id, g.game_type, g.winner_id, g.created_at, w.name
		FROM games g
		LEFT JOIN players w ON w.id = g.winner_id
		WHERE g.leaderboard_id = $1 AND g.game_type = $2
		  AND EXISTS (SELECT 1 FROM game_players gp WHERE gp.game_id = g.id AND gp.player_id = $3)
		ORDER BY g.created_at DESC, g.id DESC`

	return r.queryGames(ctx, gameType, query, leaderboardID, gameType, playerID)
}

func (r *postgresGameRepository) UpdatePlayerName(ctx context.Context, leaderboardID, playerID int, name string) error {
	query := `
		UPDATE game_players gp SET name = $1
		FROM games g
		WHERE g.id = gp.game_id AND g.leaderboard_id = $2 AND gp.player_id = $3`
	_, err := r.db.ExecContext(ctx, query, name, leaderboardID, playerID)
	return err
}

// UpdateCardGameRankingName переписывает имя игрока внутри сохранённых
// jsonb-порядков. Читаем, правим и пишем обратно целиком: порядки коротки,
// а вызов и так best-effort.
func (r *postgresGameRepository) UpdateCardGameRankingName(ctx context.Context, leaderboardID, playerID int, name string) error {
	query := `
		SELECT d.game_id, d.ranking
		FROM card_game_details d
		JOIN games g ON g.id = d.game_id
		WHERE g.leaderboard_id = $1
		  AND EXISTS (SELECT 1 FROM game_players gp WHERE gp.game_id = g.id AND gp.player_id = $2)`

	rows, err := r.db.QueryContext(ctx, query, leaderboardID, playerID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type pending struct {
		gameID  int
		ranking []models.RankEntry
	}
	updates := make([]pending, 0)
	for rows.Next() {
		var gameID int
		var raw []byte
		if err := rows.Scan(&gameID, &raw); err != nil {
			return err
		}
		var ranking []models.RankEntry
		if err := json.Unmarshal(raw, &ranking); err != nil {
			return fmt.Errorf("failed to decode ranking for game %d: %w", gameID, err)
		}
		changed := false
		for i := range ranking {
			if ranking[i].PlayerID == playerID {
				ranking[i].Name = name
				changed = true
			}
		}
		if changed {
			updates = append(updates, pending{gameID: gameID, ranking: ranking})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range updates {
		raw, err := json.Marshal(u.ranking)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, `UPDATE card_game_details SET ranking = $1 WHERE game_id = $2`, raw, u.gameID); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresGameRepository) queryGames(ctx context.Context, gameType models.GameType, query string, args ...interface{}) ([]models.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.ID, &g.LeaderboardID, &g.GameType, &g.WinnerID, &g.CreatedAt, &g.WinnerName); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachPlayers(ctx, games); err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, gameType, games); err != nil {
		return nil, err
	}
	return games, nil
}

func (r *postgresGameRepository) attachPlayers(ctx context.Context, games []models.Game) error {
	if len(games) == 0 {
		return nil
	}
	ids := make([]int, 0, len(games))
	index := make(map[int]*models.Game, len(games))
	for i := range games {
		ids = append(ids, games[i].ID)
		index[games[i].ID] = &games[i]
	}

	// Имя берём актуальное из players, с откатом на денормализованный
	// снимок для удалённых игроков.
	query := `
		SELECT gp.game_id, gp.player_id, COALESCE(p.name, gp.name)
		FROM game_players gp
		LEFT JOIN players p ON p.id = gp.player_id
		WHERE gp.game_id = ANY($1)
		ORDER BY gp.game_id, gp.position`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var gameID int
		var gp models.GamePlayer
		if err := rows.Scan(&gameID, &gp.PlayerID, &gp.Name); err != nil {
			return err
		}
		g := index[gameID]
		g.Players = append(g.Players, gp)
	}
	return rows.Err()
}

func (r *postgresGameRepository) attachDetails(ctx context.Context, gameType models.GameType, games []models.Game) error {
	if len(games) == 0 {
		return nil
	}
	ids := make([]int, 0, len(games))
	index := make(map[int]*models.Game, len(games))
	for i := range games {
		ids = append(ids, games[i].ID)
		index[games[i].ID] = &games[i]
	}

	switch gameType {
	case models.GameTypeFootball:
		query := `
			SELECT game_id, score1, score2, penalties1, penalties2
			FROM football_details WHERE game_id = ANY($1)`
		rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d models.FootballDetail
			var pen1, pen2 *int
			if err := rows.Scan(&d.GameID, &d.Score.Player1, &d.Score.Player2, &pen1, &pen2); err != nil {
				return err
			}
			if pen1 != nil && pen2 != nil {
				d.Penalties = &models.ScorePair{Player1: *pen1, Player2: *pen2}
			}
			index[d.GameID].Football = &d
		}
		return rows.Err()

	case models.GameTypeBadminton:
		query := `SELECT game_id, match_type, sets FROM badminton_details WHERE game_id = ANY($1)`
		rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d models.BadmintonDetail
			var raw []byte
			if err := rows.Scan(&d.GameID, &d.MatchType, &raw); err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &d.Sets); err != nil {
				return fmt.Errorf("failed to decode sets for game %d: %w", d.GameID, err)
			}
			index[d.GameID].Badminton = &d
		}
		return rows.Err()

	case models.GameTypeCardGames:
		query := `SELECT game_id, ranking FROM card_game_details WHERE game_id = ANY($1)`
		rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d models.CardGameDetail
			var raw []byte
			if err := rows.Scan(&d.GameID, &raw); err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &d.Ranking); err != nil {
				return fmt.Errorf("failed to decode ranking for game %d: %w", d.GameID, err)
			}
			index[d.GameID].CardGame = &d
		}
		return rows.Err()
	}
	return nil
}
