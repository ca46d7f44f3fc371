package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/amalyulianto/sirkel-main-backend/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// gameView — матч с деталями, поднятыми на верхний уровень JSON:
// score/penalties для футбола, sets/matchType для бадминтона,
// ranking для карточных игр.
type gameView struct {
	ID            int                 `json:"id"`
	LeaderboardID int                 `json:"leaderboardId"`
	GameType      models.GameType     `json:"gameType"`
	Players       []models.GamePlayer `json:"players"`
	WinnerID      *int                `json:"winnerId"`
	WinnerName    *string             `json:"winnerName"`
	CreatedAt     time.Time           `json:"createdAt"`

	Score     *models.ScorePair  `json:"score,omitempty"`
	Penalties *models.ScorePair  `json:"penalties,omitempty"`
	Sets      []models.ScorePair `json:"sets,omitempty"`
	MatchType models.MatchType   `json:"matchType,omitempty"`
	Ranking   []models.RankEntry `json:"ranking,omitempty"`
}

func toGameView(g models.Game) gameView {
	view := gameView{
		ID:            g.ID,
		LeaderboardID: g.LeaderboardID,
		GameType:      g.GameType,
		Players:       g.Players,
		WinnerID:      g.WinnerID,
		WinnerName:    g.WinnerName,
		CreatedAt:     g.CreatedAt,
	}
	switch {
	case g.Football != nil:
		score := g.Football.Score
		view.Score = &score
		view.Penalties = g.Football.Penalties
	case g.Badminton != nil:
		view.Sets = g.Badminton.Sets
		view.MatchType = g.Badminton.MatchType
	case g.CardGame != nil:
		view.Ranking = g.CardGame.Ranking
	}
	return view
}

func toGameViews(games []models.Game) []gameView {
	views := make([]gameView, len(games))
	for i, g := range games {
		views[i] = toGameView(g)
	}
	return views
}

// rankingEntryView оставляет в ответе только счётчики запрошенного
// вида спорта.
type rankingEntryView struct {
	PlayerID      int                    `json:"playerId"`
	LeaderboardID int                    `json:"leaderboardId"`
	PlayerName    string                 `json:"playerName"`
	Football      *models.FootballStats  `json:"football,omitempty"`
	Badminton     *models.BadmintonStats `json:"badminton,omitempty"`
	CardGames     *models.CardGameStats  `json:"cardGames,omitempty"`
}

func toRankingEntryView(s models.Stats, gameType models.GameType) rankingEntryView {
	view := rankingEntryView{
		PlayerID:      s.PlayerID,
		LeaderboardID: s.LeaderboardID,
		PlayerName:    s.PlayerName,
	}
	switch gameType {
	case models.GameTypeFootball:
		football := s.Football
		view.Football = &football
	case models.GameTypeBadminton:
		badminton := s.Badminton
		view.Badminton = &badminton
	case models.GameTypeCardGames:
		cardGames := s.CardGames
		view.CardGames = &cardGames
	}
	return view
}

func gameTypeParam(r *http.Request) models.GameType {
	return models.GameType(chi.URLParam(r, "gameType"))
}

func (h *GameHandler) Submit(w http.ResponseWriter, r *http.Request) {
	leaderboardID, err := readIDParam(r, "leaderboardID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SubmitGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.Submit(r.Context(), leaderboardID, gameTypeParam(r), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "game result submitted successfully",
		"game":    toGameView(*game),
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	leaderboardID, err := readIDParam(r, "leaderboardID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gameType := gameTypeParam(r)
	ranking, err := h.gameService.Ranking(r.Context(), leaderboardID, gameType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	views := make([]rankingEntryView, len(ranking))
	for i, s := range ranking {
		views[i] = toRankingEntryView(s, gameType)
	}
	if err := writeJSON(w, http.StatusOK, views, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	leaderboardID, err := readIDParam(r, "leaderboardID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	games, err := h.gameService.History(r.Context(), leaderboardID, gameTypeParam(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, toGameViews(games), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	leaderboardID, err := readIDParam(r, "leaderboardID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := readIDParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gameType := gameTypeParam(r)
	view, err := h.gameService.PlayerStats(r.Context(), leaderboardID, playerID, gameType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"player":  view.Player,
		"stats":   toRankingEntryView(*view.Stats, gameType),
		"history": toGameViews(view.Games),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
