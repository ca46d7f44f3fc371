// Package sports содержит чистую доменную логику трёх видов игр:
// валидацию результата матча, начисление очков и порядок ранжирования.
// Пакет не знает ни про HTTP, ни про хранилище.
package sports

import (
	"errors"
	"sort"

	"github.com/amalyulianto/sirkel-main-backend/models"
)

var (
	ErrUnknownGameType = errors.New("unknown game type")

	ErrDuplicatePlayer   = errors.New("duplicate players are not allowed")
	ErrPenaltiesRequired = errors.New("penalties score is required for a tie")
	ErrPenaltiesEqual    = errors.New("penalty scores must not be equal")
	ErrNegativeScore     = errors.New("scores must be non-negative")
	ErrScoreRequired     = errors.New("score is required")
	ErrSetsRequired      = errors.New("at least one set is required")

	ErrFootballPlayerCount = errors.New("football match requires exactly 2 players")
	ErrSinglesPlayerCount  = errors.New("singles match requires exactly 2 players")
	ErrDoublesPlayerCount  = errors.New("doubles match requires exactly 4 players")
	ErrInvalidMatchType    = errors.New("matchType must be 'singles' or 'doubles'")
	ErrCardGamePlayerCount = errors.New("provide an ordered ranking of at least 2 players")
)

// MatchInput — результат матча с уже разрешёнными участниками в порядке
// отправки. Какие из полей заполнены, зависит от вида игры.
type MatchInput struct {
	Players   []models.GamePlayer
	Score     *models.ScorePair
	Penalties *models.ScorePair
	Sets      []models.ScorePair
	MatchType models.MatchType
}

// PlayerOutcome — дельты одного игрока за один матч.
type PlayerOutcome struct {
	PlayerID     int
	Points       int
	Won          bool
	Lost         bool
	GoalsScored  int // только футбол
	GoalsAllowed int // только футбол
	Place        int // только карточные игры, позиция с 1
}

// Outcome — детерминированный результат матча: победитель и дельты
// по каждому участнику.
type Outcome struct {
	WinnerID     int
	IsPenaltyWin bool
	Players      []PlayerOutcome
}

// Rules — стратегия одного вида игры. Score предполагает вход, прошедший
// Validate, и никогда не ошибается.
type Rules interface {
	GameType() models.GameType
	Validate(in MatchInput) error
	Score(in MatchInput) Outcome

	// GamesPlayed возвращает счётчик сыгранных матчей этого вида спорта,
	// RankingLess — true, если a должен стоять в рейтинге выше b.
	GamesPlayed(s *models.Stats) int
	RankingLess(a, b *models.Stats) bool
}

var registry = map[models.GameType]Rules{
	models.GameTypeFootball:  footballRules{},
	models.GameTypeBadminton: badmintonRules{},
	models.GameTypeCardGames: cardGameRules{},
}

// For возвращает правила для указанного вида игры.
func For(gt models.GameType) (Rules, error) {
	r, ok := registry[gt]
	if !ok {
		return nil, ErrUnknownGameType
	}
	return r, nil
}

// Project отбирает записи с ненулевым числом сыгранных матчей и сортирует
// их по убыванию. Сортировка стабильная: при равных ключах сохраняется
// исходный порядок записей.
func Project(r Rules, stats []models.Stats) []models.Stats {
	ranked := make([]models.Stats, 0, len(stats))
	for _, s := range stats {
		if r.GamesPlayed(&s) > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return r.RankingLess(&ranked[i], &ranked[j])
	})
	return ranked
}

func duplicated(players []models.GamePlayer) bool {
	seen := make(map[int]struct{}, len(players))
	for _, p := range players {
		if _, ok := seen[p.PlayerID]; ok {
			return true
		}
		seen[p.PlayerID] = struct{}{}
	}
	return false
}
