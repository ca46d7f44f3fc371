package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound     = errors.New("player not found on this leaderboard")
	ErrPlayerNameConflict = errors.New("player name conflict on this leaderboard")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, leaderboardID, playerID int) (*models.Player, error)
	// FindByIDs и FindByNames возвращают игроков в порядке запрошенных
	// значений; неразрешённые записи отсутствуют в результате.
	FindByIDs(ctx context.Context, leaderboardID int, ids []int) ([]models.Player, error)
	FindByNames(ctx context.Context, leaderboardID int, names []string) ([]models.Player, error)
	GetByNameFold(ctx context.Context, leaderboardID int, name string) (*models.Player, error)
	ListByLeaderboard(ctx context.Context, leaderboardID int) ([]models.Player, error)
	UpdateName(ctx context.Context, leaderboardID, playerID int, name string) error
	Delete(ctx context.Context, leaderboardID, playerID int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	query := `
		INSERT INTO players (leaderboard_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, player.LeaderboardID, player.Name).
		Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlayerNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, leaderboardID, playerID int) (*models.Player, error) {
	query := `
		SELECT id, leaderboard_id, name, created_at
		FROM players
		WHERE id = $1 AND leaderboard_id = $2`
	return r.scanPlayer(ctx, query, playerID, leaderboardID)
}

func (r *postgresPlayerRepository) FindByIDs(ctx context.Context, leaderboardID int, ids []int) ([]models.Player, error) {
	query := `
		SELECT id, leaderboard_id, name, created_at
		FROM players
		WHERE leaderboard_id = $1 AND id = ANY($2)`

	found, err := r.queryPlayers(ctx, query, leaderboardID, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[int]models.Player, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *postgresPlayerRepository) FindByNames(ctx context.Context, leaderboardID int, names []string) ([]models.Player, error) {
	query := `
		SELECT id, leaderboard_id, name, created_at
		FROM players
		WHERE leaderboard_id = $1 AND name = ANY($2)`

	found, err := r.queryPlayers(ctx, query, leaderboardID, pq.Array(names))
	if err != nil {
		return nil, err
	}

	byName := make(map[string]models.Player, len(found))
	for _, p := range found {
		byName[p.Name] = p
	}
	ordered := make([]models.Player, 0, len(names))
	for _, name := range names {
		if p, ok := byName[name]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *postgresPlayerRepository) GetByNameFold(ctx context.Context, leaderboardID int, name string) (*models.Player, error) {
	query := `
		SELECT id, leaderboard_id, name, created_at
		FROM players
		WHERE leaderboard_id = $1 AND lower(name) = lower($2)`
	return r.scanPlayer(ctx, query, leaderboardID, name)
}

func (r *postgresPlayerRepository) ListByLeaderboard(ctx context.Context, leaderboardID int) ([]models.Player, error) {
	query := `
		SELECT id, leaderboard_id, name, created_at
		FROM players
		WHERE leaderboard_id = $1
		ORDER BY id`
	return r.queryPlayers(ctx, query, leaderboardID)
}

func (r *postgresPlayerRepository) UpdateName(ctx context.Context, leaderboardID, playerID int, name string) error {
	query := `UPDATE players SET name = $1 WHERE id = $2 AND leaderboard_id = $3`
	result, err := r.db.ExecContext(ctx, query, name, playerID, leaderboardID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlayerNameConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, leaderboardID, playerID int) error {
	// Запись Stats намеренно не трогаем: осиротевшая статистика просто
	// выпадает из будущих рейтингов, так как игрока больше нет в списке.
	query := `DELETE FROM players WHERE id = $1 AND leaderboard_id = $2`
	result, err := r.db.ExecContext(ctx, query, playerID, leaderboardID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) scanPlayer(ctx context.Context, query string, args ...interface{}) (*models.Player, error) {
	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.LeaderboardID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) queryPlayers(ctx context.Context, query string, args ...interface{}) ([]models.Player, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.LeaderboardID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
