package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/lib/pq"
)

var (
	ErrLeaderboardNotFound     = errors.New("leaderboard not found")
	ErrLeaderboardNameConflict = errors.New("leaderboard name conflict")
	ErrEditorNotFound          = errors.New("editor not found on this leaderboard")
	ErrEditorConflict          = errors.New("user is already an editor")
)

type LeaderboardRepository interface {
	Create(ctx context.Context, exec SQLExecutor, lb *models.Leaderboard) error
	GetByID(ctx context.Context, id int) (*models.Leaderboard, error)
	ListByUser(ctx context.Context, userID int) ([]models.Leaderboard, error)
	UpdateName(ctx context.Context, id int, name string) error
	UpdateCoverKey(ctx context.Context, id int, coverKey *string) error
	Delete(ctx context.Context, id int) error

	AddEditor(ctx context.Context, leaderboardID, userID int) error
	RemoveEditor(ctx context.Context, leaderboardID, userID int) error
	ListEditors(ctx context.Context, leaderboardID int) ([]models.User, error)
	IsEditor(ctx context.Context, leaderboardID, userID int) (bool, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLeaderboardRepository) Create(ctx context.Context, exec SQLExecutor, lb *models.Leaderboard) error {
	query := `
		INSERT INTO leaderboards (name, game_type, leaderboard_format, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		lb.Name,
		lb.GameType,
		lb.LeaderboardFormat,
		lb.OwnerID,
	).Scan(&lb.ID, &lb.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrLeaderboardNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresLeaderboardRepository) GetByID(ctx context.Context, id int) (*models.Leaderboard, error) {
	query := `
		SELECT id, name, game_type, leaderboard_format, owner_id, cover_key, created_at
		FROM leaderboards
		WHERE id = $1`

	lb := &models.Leaderboard{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lb.ID,
		&lb.Name,
		&lb.GameType,
		&lb.LeaderboardFormat,
		&lb.OwnerID,
		&lb.CoverKey,
		&lb.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}
	return lb, nil
}

// ListByUser возвращает лидерборды, где пользователь владелец или редактор.
func (r *postgresLeaderboardRepository) ListByUser(ctx context.Context, userID int) ([]models.Leaderboard, error) {
	query := `
		SELECT DISTINCT l.id, l.name, l.game_type, l.leaderboard_format, l.owner_id, l.cover_key, l.created_at
		FROM leaderboards l
		LEFT JOIN leaderboard_editors e ON e.leaderboard_id = l.id
		WHERE l.owner_id = $1 OR e.user_id = $1
		ORDER BY l.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := make([]models.Leaderboard, 0)
	for rows.Next() {
		var lb models.Leaderboard
		if err := rows.Scan(&lb.ID, &lb.Name, &lb.GameType, &lb.LeaderboardFormat, &lb.OwnerID, &lb.CoverKey, &lb.CreatedAt); err != nil {
			return nil, err
		}
		boards = append(boards, lb)
	}
	return boards, rows.Err()
}

func (r *postgresLeaderboardRepository) UpdateName(ctx context.Context, id int, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE leaderboards SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrLeaderboardNameConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrLeaderboardNotFound)
}

func (r *postgresLeaderboardRepository) UpdateCoverKey(ctx context.Context, id int, coverKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE leaderboards SET cover_key = $1 WHERE id = $2`, coverKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeaderboardNotFound)
}

func (r *postgresLeaderboardRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leaderboards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeaderboardNotFound)
}

func (r *postgresLeaderboardRepository) AddEditor(ctx context.Context, leaderboardID, userID int) error {
	query := `INSERT INTO leaderboard_editors (leaderboard_id, user_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, leaderboardID, userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrEditorConflict
			case "23503":
				return ErrLeaderboardNotFound
			}
		}
		return err
	}
	return nil
}

func (r *postgresLeaderboardRepository) RemoveEditor(ctx context.Context, leaderboardID, userID int) error {
	query := `DELETE FROM leaderboard_editors WHERE leaderboard_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, leaderboardID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEditorNotFound)
}

func (r *postgresLeaderboardRepository) ListEditors(ctx context.Context, leaderboardID int) ([]models.User, error) {
	query := `
		SELECT u.id, u.username, u.name, u.email, u.created_at
		FROM users u
		JOIN leaderboard_editors e ON e.user_id = u.id
		WHERE e.leaderboard_id = $1
		ORDER BY u.username`

	rows, err := r.db.QueryContext(ctx, query, leaderboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	editors := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		editors = append(editors, u)
	}
	return editors, rows.Err()
}

func (r *postgresLeaderboardRepository) IsEditor(ctx context.Context, leaderboardID, userID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM leaderboard_editors WHERE leaderboard_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, leaderboardID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
