package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/amalyulianto/sirkel-main-backend/models"
)

var ErrStatsNotFound = errors.New("stats not found for this player")

// Дельты одного матча для одного игрока. Применяются одним UPDATE, так что
// конкурирующие отправки, задевшие одного игрока, сериализуются блокировкой
// строки на стороне базы.
type FootballStatsDelta struct {
	Points       int
	Won          bool
	Lost         bool
	PenaltyWin   bool
	PenaltyLoss  bool
	GoalsScored  int
	GoalsAllowed int
}

type BadmintonStatsDelta struct {
	Won       bool
	MatchType models.MatchType
}

type CardGameStatsDelta struct {
	Points int
	Place  int
}

type StatsRepository interface {
	Create(ctx context.Context, exec SQLExecutor, playerID, leaderboardID int) error
	Get(ctx context.Context, playerID, leaderboardID int) (*models.Stats, error)
	// ListByLeaderboard возвращает статистику игроков, всё ещё числящихся
	// в лидерборде, вместе с актуальными именами, в порядке создания.
	ListByLeaderboard(ctx context.Context, leaderboardID int) ([]models.Stats, error)

	// Apply* инкрементируют счётчики и в том же выражении пересчитывают
	// производные поля из уже увеличенных значений.
	ApplyFootball(ctx context.Context, playerID, leaderboardID int, d FootballStatsDelta) (*models.Stats, error)
	ApplyBadminton(ctx context.Context, playerID, leaderboardID int, d BadmintonStatsDelta) (*models.Stats, error)
	ApplyCardGame(ctx context.Context, playerID, leaderboardID int, d CardGameStatsDelta) (*models.Stats, error)
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

func (r *postgresStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const statsColumns = `
	player_id, leaderboard_id,
	football_games_played, football_games_won, football_games_lost,
	football_games_won_by_penalty, football_games_lost_by_penalty,
	football_goals_scored, football_goals_allowed,
	football_win_percentage, football_total_points, football_goal_difference,
	badminton_overall_games_played, badminton_overall_games_won, badminton_overall_games_lost,
	badminton_overall_win_percentage,
	badminton_singles_games_played, badminton_singles_games_won, badminton_singles_games_lost,
	badminton_singles_win_percentage,
	badminton_doubles_games_played, badminton_doubles_games_won, badminton_doubles_games_lost,
	badminton_doubles_win_percentage,
	card_games_played, card_wins_1st, card_wins_2nd, card_wins_3rd,
	card_win_percentage, card_total_points`

func (r *postgresStatsRepository) Create(ctx context.Context, exec SQLExecutor, playerID, leaderboardID int) error {
	query := `INSERT INTO stats (player_id, leaderboard_id) VALUES ($1, $2)`
	_, err := r.getExecutor(exec).ExecContext(ctx, query, playerID, leaderboardID)
	return err
}

func (r *postgresStatsRepository) Get(ctx context.Context, playerID, leaderboardID int) (*models.Stats, error) {
	query := `SELECT ` + statsColumns + ` FROM stats WHERE player_id = $1 AND leaderboard_id = $2`
	return r.scanStats(r.db.QueryRowContext(ctx, query, playerID, leaderboardID))
}

func (r *postgresStatsRepository) ListByLeaderboard(ctx context.Context, leaderboardID int) ([]models.Stats, error) {
	query := `
		SELECT s.player_id, s.leaderboard_id,
			s.football_games_played, s.football_games_won, s.football_games_lost,
			s.football_games_won_by_penalty, s.football_games_lost_by_penalty,
			s.football_goals_scored, s.football_goals_allowed,
			s.football_win_percentage, s.football_total_points, s.football_goal_difference,
			s.badminton_overall_games_played, s.badminton_overall_games_won, s.badminton_overall_games_lost,
			s.badminton_overall_win_percentage,
			s.badminton_singles_games_played, s.badminton_singles_games_won, s.badminton_singles_games_lost,
			s.badminton_singles_win_percentage,
			s.badminton_doubles_games_played, s.badminton_doubles_games_won, s.badminton_doubles_games_lost,
			s.badminton_doubles_win_percentage,
			s.card_games_played, s.card_wins_1st, s.card_wins_2nd, s.card_wins_3rd,
			s.card_win_percentage, s.card_total_points,
			p.name
		FROM stats s
		JOIN players p ON p.id = s.player_id AND p.leaderboard_id = s.leaderboard_id
		WHERE s.leaderboard_id = $1
		ORDER BY p.id`

	rows, err := r.db.QueryContext(ctx, query, leaderboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]models.Stats, 0)
	for rows.Next() {
		var s models.Stats
		if err := scanStatsFields(rows.Scan, &s, true); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *postgresStatsRepository) ApplyFootball(ctx context.Context, playerID, leaderboardID int, d FootballStatsDelta) (*models.Stats, error) {
	query := `
		UPDATE stats SET
			football_games_played = football_games_played + 1,
			football_games_won = football_games_won + $3,
			football_games_lost = football_games_lost + $4,
			football_games_won_by_penalty = football_games_won_by_penalty + $5,
			football_games_lost_by_penalty = football_games_lost_by_penalty + $6,
			football_goals_scored = football_goals_scored + $7,
			football_goals_allowed = football_goals_allowed + $8,
			football_total_points = football_total_points + $9,
			football_win_percentage = (football_games_won + $3)::double precision / (football_games_played + 1),
			football_goal_difference = (football_goals_scored + $7) - (football_goals_allowed + $8)
		WHERE player_id = $1 AND leaderboard_id = $2
		RETURNING ` + statsColumns

	row := r.db.QueryRowContext(ctx, query, playerID, leaderboardID,
		boolToInt(d.Won), boolToInt(d.Lost),
		boolToInt(d.PenaltyWin), boolToInt(d.PenaltyLoss),
		d.GoalsScored, d.GoalsAllowed, d.Points)
	return r.scanStats(row)
}

func (r *postgresStatsRepository) ApplyBadminton(ctx context.Context, playerID, leaderboardID int, d BadmintonStatsDelta) (*models.Stats, error) {
	won := boolToInt(d.Won)
	lost := 1 - won
	singles := boolToInt(d.MatchType == models.MatchTypeSingles)
	doubles := 1 - singles

	query := `
		UPDATE stats SET
			badminton_overall_games_played = badminton_overall_games_played + 1,
			badminton_overall_games_won = badminton_overall_games_won + $3,
			badminton_overall_games_lost = badminton_overall_games_lost + $4,
			badminton_overall_win_percentage = (badminton_overall_games_won + $3)::double precision / (badminton_overall_games_played + 1),
			badminton_singles_games_played = badminton_singles_games_played + $5,
			badminton_singles_games_won = badminton_singles_games_won + $3 * $5,
			badminton_singles_games_lost = badminton_singles_games_lost + $4 * $5,
			badminton_singles_win_percentage = CASE
				WHEN badminton_singles_games_played + $5 = 0 THEN 0
				ELSE (badminton_singles_games_won + $3 * $5)::double precision / (badminton_singles_games_played + $5)
			END,
			badminton_doubles_games_played = badminton_doubles_games_played + $6,
			badminton_doubles_games_won = badminton_doubles_games_won + $3 * $6,
			badminton_doubles_games_lost = badminton_doubles_games_lost + $4 * $6,
			badminton_doubles_win_percentage = CASE
				WHEN badminton_doubles_games_played + $6 = 0 THEN 0
				ELSE (badminton_doubles_games_won + $3 * $6)::double precision / (badminton_doubles_games_played + $6)
			END
		WHERE player_id = $1 AND leaderboard_id = $2
		RETURNING ` + statsColumns

	row := r.db.QueryRowContext(ctx, query, playerID, leaderboardID, won, lost, singles, doubles)
	return r.scanStats(row)
}

func (r *postgresStatsRepository) ApplyCardGame(ctx context.Context, playerID, leaderboardID int, d CardGameStatsDelta) (*models.Stats, error) {
	query := `
		UPDATE stats SET
			card_games_played = card_games_played + 1,
			card_wins_1st = card_wins_1st + $3,
			card_wins_2nd = card_wins_2nd + $4,
			card_wins_3rd = card_wins_3rd + $5,
			card_total_points = card_total_points + $6,
			card_win_percentage = (card_wins_1st + $3)::double precision / (card_games_played + 1) * 100
		WHERE player_id = $1 AND leaderboard_id = $2
		RETURNING ` + statsColumns

	row := r.db.QueryRowContext(ctx, query, playerID, leaderboardID,
		boolToInt(d.Place == 1), boolToInt(d.Place == 2), boolToInt(d.Place == 3), d.Points)
	return r.scanStats(row)
}

type scanFunc func(dest ...interface{}) error

func (r *postgresStatsRepository) scanStats(row *sql.Row) (*models.Stats, error) {
	var s models.Stats
	if err := scanStatsFields(row.Scan, &s, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanStatsFields(scan scanFunc, s *models.Stats, withName bool) error {
	dest := []interface{}{
		&s.PlayerID, &s.LeaderboardID,
		&s.Football.GamesPlayed, &s.Football.GamesWon, &s.Football.GamesLost,
		&s.Football.GamesWonByPenalty, &s.Football.GamesLostByPenalty,
		&s.Football.GoalsScored, &s.Football.GoalsAllowed,
		&s.Football.WinPercentage, &s.Football.TotalPoints, &s.Football.GoalDifference,
		&s.Badminton.OverallGamesPlayed, &s.Badminton.OverallGamesWon, &s.Badminton.OverallGamesLost,
		&s.Badminton.OverallWinPercentage,
		&s.Badminton.SinglesGamesPlayed, &s.Badminton.SinglesGamesWon, &s.Badminton.SinglesGamesLost,
		&s.Badminton.SinglesWinPercentage,
		&s.Badminton.DoublesGamesPlayed, &s.Badminton.DoublesGamesWon, &s.Badminton.DoublesGamesLost,
		&s.Badminton.DoublesWinPercentage,
		&s.CardGames.GamesPlayed, &s.CardGames.Wins1st, &s.CardGames.Wins2nd, &s.CardGames.Wins3rd,
		&s.CardGames.WinPercentage, &s.CardGames.TotalPoints,
	}
	if withName {
		dest = append(dest, &s.PlayerName)
	}
	return scan(dest...)
}
