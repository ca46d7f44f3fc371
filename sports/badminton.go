package sports

import "github.com/amalyulianto/sirkel-main-backend/models"

type badmintonRules struct{}

func (badmintonRules) GameType() models.GameType { return models.GameTypeBadminton }

func (badmintonRules) Validate(in MatchInput) error {
	switch in.MatchType {
	case models.MatchTypeSingles:
		if len(in.Players) != 2 {
			return ErrSinglesPlayerCount
		}
	case models.MatchTypeDoubles:
		if len(in.Players) != 4 {
			return ErrDoublesPlayerCount
		}
	default:
		return ErrInvalidMatchType
	}
	if duplicated(in.Players) {
		return ErrDuplicatePlayer
	}
	if len(in.Sets) == 0 {
		return ErrSetsRequired
	}
	return nil
}

// Команда 1 — первая половина списка участников, команда 2 — вторая.
// Сет засчитывается стороне со строго большим счётом; равный счёт сета
// уходит команде 2 — историческое поведение, закреплено тестом.
func (badmintonRules) Score(in MatchInput) Outcome {
	var team1Wins, team2Wins int
	for _, set := range in.Sets {
		if set.Player1 > set.Player2 {
			team1Wins++
		} else {
			team2Wins++
		}
	}
	team1Won := team1Wins > team2Wins

	half := len(in.Players) / 2
	out := Outcome{Players: make([]PlayerOutcome, 0, len(in.Players))}
	for i, p := range in.Players {
		onTeam1 := i < half
		won := onTeam1 == team1Won
		out.Players = append(out.Players, PlayerOutcome{
			PlayerID: p.PlayerID,
			Won:      won,
			Lost:     !won,
		})
	}

	// Победителем матча записывается первый игрок победившей команды.
	if team1Won {
		out.WinnerID = in.Players[0].PlayerID
	} else {
		out.WinnerID = in.Players[half].PlayerID
	}
	return out
}

func (badmintonRules) GamesPlayed(s *models.Stats) int {
	return s.Badminton.OverallGamesPlayed
}

// Рейтинг: overallGamesWon, затем overallWinPercentage, по убыванию.
func (badmintonRules) RankingLess(a, b *models.Stats) bool {
	if a.Badminton.OverallGamesWon != b.Badminton.OverallGamesWon {
		return a.Badminton.OverallGamesWon > b.Badminton.OverallGamesWon
	}
	return a.Badminton.OverallWinPercentage > b.Badminton.OverallWinPercentage
}
