package models

import "time"

// Player принадлежит ровно одному лидерборду. Имя уникально в пределах
// лидерборда (без учёта регистра, пробелы нормализованы).
type Player struct {
	ID            int       `json:"id"`
	LeaderboardID int       `json:"leaderboardId"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
}
