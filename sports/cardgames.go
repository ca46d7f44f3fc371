package sports

import "github.com/amalyulianto/sirkel-main-backend/models"

// PlacePersisted — сколько первых мест сохраняется в детальной записи
// партии; очки при этом начисляются всем участникам по позиции.
const PlacePersisted = 3

type cardGameRules struct{}

func (cardGameRules) GameType() models.GameType { return models.GameTypeCardGames }

func (cardGameRules) Validate(in MatchInput) error {
	if len(in.Players) < 2 {
		return ErrCardGamePlayerCount
	}
	if duplicated(in.Players) {
		return ErrDuplicatePlayer
	}
	return nil
}

// CardGamePoints возвращает очки за место: 10/5/3, дальше по 1.
func CardGamePoints(place int) int {
	switch place {
	case 1:
		return 10
	case 2:
		return 5
	case 3:
		return 3
	default:
		return 1
	}
}

// Порядок участников и есть итоговый порядок партии: первый в списке —
// победитель. Никакого счёта у карточных игр нет.
func (cardGameRules) Score(in MatchInput) Outcome {
	out := Outcome{
		WinnerID: in.Players[0].PlayerID,
		Players:  make([]PlayerOutcome, 0, len(in.Players)),
	}
	for i, p := range in.Players {
		place := i + 1
		out.Players = append(out.Players, PlayerOutcome{
			PlayerID: p.PlayerID,
			Points:   CardGamePoints(place),
			Won:      place == 1,
			Lost:     place != 1,
			Place:    place,
		})
	}
	return out
}

func (cardGameRules) GamesPlayed(s *models.Stats) int {
	return s.CardGames.GamesPlayed
}

// Рейтинг: totalPoints, затем winPercentage, по убыванию.
func (cardGameRules) RankingLess(a, b *models.Stats) bool {
	if a.CardGames.TotalPoints != b.CardGames.TotalPoints {
		return a.CardGames.TotalPoints > b.CardGames.TotalPoints
	}
	return a.CardGames.WinPercentage > b.CardGames.WinPercentage
}
