package models

import "time"

type MatchType string

const (
	MatchTypeSingles MatchType = "singles"
	MatchTypeDoubles MatchType = "doubles"
)

// GamePlayer — участник матча с денормализованным именем на момент
// отправки результата. Имя обновляется каскадом при переименовании игрока.
type GamePlayer struct {
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
}

type Game struct {
	ID            int          `json:"id"`
	LeaderboardID int          `json:"leaderboardId"`
	GameType      GameType     `json:"gameType"`
	Players       []GamePlayer `json:"players"`
	WinnerID      *int         `json:"winnerId"`
	WinnerName    *string      `json:"winnerName,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`

	// Ровно одно из полей заполнено, в зависимости от GameType.
	Football  *FootballDetail  `json:"-"`
	Badminton *BadmintonDetail `json:"-"`
	CardGame  *CardGameDetail  `json:"-"`
}

// ScorePair — счёт пары сторон: player1 против player2 (или team1 против
// team2 для парного бадминтона).
type ScorePair struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

type FootballDetail struct {
	GameID    int        `json:"gameId"`
	Score     ScorePair  `json:"score"`
	Penalties *ScorePair `json:"penalties"`
}

type BadmintonDetail struct {
	GameID    int         `json:"gameId"`
	Sets      []ScorePair `json:"sets"`
	MatchType MatchType   `json:"matchType"`
}

// RankEntry — позиция в итоговом порядке карточной партии. Place
// сохраняется только для первых трёх мест.
type RankEntry struct {
	Place    *int   `json:"place,omitempty"`
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
}

type CardGameDetail struct {
	GameID  int         `json:"gameId"`
	Ranking []RankEntry `json:"ranking"`
}
