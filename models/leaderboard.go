package models

import "time"

// GameType определяет правила валидации, подсчёта очков и ранжирования.
type GameType string

const (
	GameTypeFootball  GameType = "football"
	GameTypeBadminton GameType = "badminton"
	GameTypeCardGames GameType = "card-games"
)

func (gt GameType) Valid() bool {
	switch gt {
	case GameTypeFootball, GameTypeBadminton, GameTypeCardGames:
		return true
	}
	return false
}

type Leaderboard struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	GameType          GameType  `json:"gameType"`
	LeaderboardFormat string    `json:"leaderboardFormat"`
	OwnerID           int       `json:"ownerId"`
	CreatedAt         time.Time `json:"createdAt"`
	CoverKey          *string   `json:"-"`
	CoverURL          *string   `json:"coverUrl,omitempty"`

	// Связанные сущности, заполняются сервисом при необходимости.
	Owner   *User    `json:"owner,omitempty"`
	Players []Player `json:"players,omitempty"`
	Editors []User   `json:"editors,omitempty"`
}
