package sports

import "github.com/amalyulianto/sirkel-main-backend/models"

// Очки за футбольный матч: победа в основное время 3/0,
// победа по пенальти 2/1.
const (
	footballRegulationWinPoints = 3
	footballPenaltyWinPoints    = 2
	footballPenaltyLossPoints   = 1
)

type footballRules struct{}

func (footballRules) GameType() models.GameType { return models.GameTypeFootball }

func (footballRules) Validate(in MatchInput) error {
	if len(in.Players) != 2 {
		return ErrFootballPlayerCount
	}
	if duplicated(in.Players) {
		return ErrDuplicatePlayer
	}
	if in.Score == nil {
		return ErrScoreRequired
	}
	if in.Score.Player1 < 0 || in.Score.Player2 < 0 {
		return ErrNegativeScore
	}
	if in.Score.Player1 == in.Score.Player2 {
		// Ничья в основное время обязана разрешиться серией пенальти.
		if in.Penalties == nil {
			return ErrPenaltiesRequired
		}
		if in.Penalties.Player1 < 0 || in.Penalties.Player2 < 0 {
			return ErrNegativeScore
		}
		if in.Penalties.Player1 == in.Penalties.Player2 {
			return ErrPenaltiesEqual
		}
	}
	return nil
}

func (footballRules) Score(in MatchInput) Outcome {
	p1, p2 := in.Players[0], in.Players[1]
	score1, score2 := in.Score.Player1, in.Score.Player2

	out := Outcome{
		Players: []PlayerOutcome{
			{PlayerID: p1.PlayerID, GoalsScored: score1, GoalsAllowed: score2},
			{PlayerID: p2.PlayerID, GoalsScored: score2, GoalsAllowed: score1},
		},
	}

	switch {
	case score1 > score2:
		out.WinnerID = p1.PlayerID
		out.Players[0].Points = footballRegulationWinPoints
		out.Players[0].Won = true
		out.Players[1].Lost = true
	case score2 > score1:
		out.WinnerID = p2.PlayerID
		out.Players[1].Points = footballRegulationWinPoints
		out.Players[1].Won = true
		out.Players[0].Lost = true
	default:
		out.IsPenaltyWin = true
		if in.Penalties.Player1 > in.Penalties.Player2 {
			out.WinnerID = p1.PlayerID
			out.Players[0].Points = footballPenaltyWinPoints
			out.Players[1].Points = footballPenaltyLossPoints
			out.Players[0].Won = true
			out.Players[1].Lost = true
		} else {
			out.WinnerID = p2.PlayerID
			out.Players[1].Points = footballPenaltyWinPoints
			out.Players[0].Points = footballPenaltyLossPoints
			out.Players[1].Won = true
			out.Players[0].Lost = true
		}
	}
	return out
}

func (footballRules) GamesPlayed(s *models.Stats) int {
	return s.Football.GamesPlayed
}

// Рейтинг: totalPoints, затем winPercentage, затем goalDifference,
// всё по убыванию.
func (footballRules) RankingLess(a, b *models.Stats) bool {
	if a.Football.TotalPoints != b.Football.TotalPoints {
		return a.Football.TotalPoints > b.Football.TotalPoints
	}
	if a.Football.WinPercentage != b.Football.WinPercentage {
		return a.Football.WinPercentage > b.Football.WinPercentage
	}
	return a.Football.GoalDifference > b.Football.GoalDifference
}
