package models

// FootballStats — счётчики только растут; WinPercentage и GoalDifference
// пересчитываются из счётчиков при каждом обновлении.
type FootballStats struct {
	GamesPlayed        int     `json:"gamesPlayed"`
	GamesWon           int     `json:"gamesWon"`
	GamesLost          int     `json:"gamesLost"`
	GamesWonByPenalty  int     `json:"gamesWonByPenalty"`
	GamesLostByPenalty int     `json:"gamesLostByPenalty"`
	GoalsScored        int     `json:"goalsScored"`
	GoalsAllowed       int     `json:"goalsAllowed"`
	WinPercentage      float64 `json:"winPercentage"` // доля 0–1
	TotalPoints        int     `json:"totalPoints"`
	GoalDifference     int     `json:"goalDifference"`
}

type BadmintonStats struct {
	OverallGamesPlayed   int     `json:"overallGamesPlayed"`
	OverallGamesWon      int     `json:"overallGamesWon"`
	OverallGamesLost     int     `json:"overallGamesLost"`
	OverallWinPercentage float64 `json:"overallWinPercentage"` // доля 0–1
	SinglesGamesPlayed   int     `json:"singlesGamesPlayed"`
	SinglesGamesWon      int     `json:"singlesGamesWon"`
	SinglesGamesLost     int     `json:"singlesGamesLost"`
	SinglesWinPercentage float64 `json:"singlesWinPercentage"`
	DoublesGamesPlayed   int     `json:"doublesGamesPlayed"`
	DoublesGamesWon      int     `json:"doublesGamesWon"`
	DoublesGamesLost     int     `json:"doublesGamesLost"`
	DoublesWinPercentage float64 `json:"doublesWinPercentage"`
}

// CardGameStats.WinPercentage исторически в шкале 0–100, в отличие от
// остальных видов спорта. Не нормализовать без решения продукта.
type CardGameStats struct {
	GamesPlayed   int     `json:"gamesPlayed"`
	Wins1st       int     `json:"wins1st"`
	Wins2nd       int     `json:"wins2nd"`
	Wins3rd       int     `json:"wins3rd"`
	WinPercentage float64 `json:"winPercentage"` // проценты 0–100
	TotalPoints   int     `json:"totalPoints"`
}

// Stats — ровно одна запись на пару (игрок, лидерборд); создаётся вместе
// с игроком и живёт столько же.
type Stats struct {
	PlayerID      int            `json:"playerId"`
	LeaderboardID int            `json:"leaderboardId"`
	PlayerName    string         `json:"playerName,omitempty"`
	Football      FootballStats  `json:"football"`
	Badminton     BadmintonStats `json:"badminton"`
	CardGames     CardGameStats  `json:"cardGames"`
}
