package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/amalyulianto/sirkel-main-backend/models"
	"github.com/amalyulianto/sirkel-main-backend/repositories"
	"github.com/amalyulianto/sirkel-main-backend/storage"
)

type CreateLeaderboardInput struct {
	Name              string          `json:"name"`
	GameType          models.GameType `json:"gameType"`
	LeaderboardFormat string          `json:"leaderboardFormat"`
	Players           []string        `json:"playersList"`
}

type LeaderboardService interface {
	Create(ctx context.Context, ownerID int, input CreateLeaderboardInput) (*models.Leaderboard, error)
	GetDetails(ctx context.Context, id int) (*models.Leaderboard, error)
	ListByUser(ctx context.Context, userID int) ([]models.Leaderboard, error)
	Rename(ctx context.Context, id, userID int, name string) (*models.Leaderboard, error)
	Delete(ctx context.Context, id, userID int) error
	UploadCover(ctx context.Context, id, userID int, contentType string, file io.Reader) (*models.Leaderboard, error)
	RemoveCover(ctx context.Context, id, userID int) error

	AddPlayer(ctx context.Context, leaderboardID, userID int, name string) (*models.Player, error)
	RenamePlayer(ctx context.Context, leaderboardID, playerID, userID int, name string) (*models.Player, error)
	RemovePlayer(ctx context.Context, leaderboardID, playerID, userID int) error

	AddEditor(ctx context.Context, leaderboardID, ownerID int, identifier string) (*models.User, error)
	RemoveEditor(ctx context.Context, leaderboardID, ownerID, editorID int) error
}

type leaderboardService struct {
	db              *sql.DB
	leaderboardRepo repositories.LeaderboardRepository
	playerRepo      repositories.PlayerRepository
	statsRepo       repositories.StatsRepository
	gameRepo        repositories.GameRepository
	userRepo        repositories.UserRepository
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewLeaderboardService(
	db *sql.DB,
	leaderboardRepo repositories.LeaderboardRepository,
	playerRepo repositories.PlayerRepository,
	statsRepo repositories.StatsRepository,
	gameRepo repositories.GameRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		db:              db,
		leaderboardRepo: leaderboardRepo,
		playerRepo:      playerRepo,
		statsRepo:       statsRepo,
		gameRepo:        gameRepo,
		userRepo:        userRepo,
		uploader:        uploader,
		logger:          logger,
	}
}

// normalizeName обрезает краевые пробелы и схлопывает внутренние пробелы
// в один. Сравнение имён всюду регистронезависимое.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func (s *leaderboardService) Create(ctx context.Context, ownerID int, input CreateLeaderboardInput) (*models.Leaderboard, error) {
	name := normalizeName(input.Name)
	if name == "" {
		return nil, ErrLeaderboardNameRequired
	}
	if !input.GameType.Valid() {
		return nil, ErrInvalidGameType
	}
	if strings.TrimSpace(input.LeaderboardFormat) == "" {
		return nil, ErrFormatRequired
	}
	if len(input.Players) == 0 {
		return nil, ErrPlayersRequired
	}

	playerNames := make([]string, 0, len(input.Players))
	seen := make(map[string]struct{}, len(input.Players))
	for _, raw := range input.Players {
		pn := normalizeName(raw)
		if pn == "" {
			return nil, ErrPlayerNameRequired
		}
		key := strings.ToLower(pn)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayerNames, pn)
		}
		seen[key] = struct{}{}
		playerNames = append(playerNames, pn)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error during rollback: %v. Original error: %v", rbErr, txErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	lb := &models.Leaderboard{
		Name:              name,
		GameType:          input.GameType,
		LeaderboardFormat: strings.TrimSpace(input.LeaderboardFormat),
		OwnerID:           ownerID,
	}
	if txErr = s.leaderboardRepo.Create(ctx, tx, lb); txErr != nil {
		if errors.Is(txErr, repositories.ErrLeaderboardNameConflict) {
			txErr = ErrLeaderboardNameConflict
		}
		return nil, txErr
	}

	players := make([]models.Player, 0, len(playerNames))
	for _, pn := range playerNames {
		player := &models.Player{LeaderboardID: lb.ID, Name: pn}
		if txErr = s.playerRepo.Create(ctx, tx, player); txErr != nil {
			return nil, txErr
		}
		if txErr = s.statsRepo.Create(ctx, tx, player.ID, lb.ID); txErr != nil {
			return nil, txErr
		}
		players = append(players, *player)
	}

	if txErr != nil {
		return nil, txErr
	}
	lb.Players = players
	s.populateCoverURL(lb)
	return lb, nil
}

func (s *leaderboardService) GetDetails(ctx context.Context, id int) (*models.Leaderboard, error) {
	lb, err := s.leaderboardRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}

	players, err := s.playerRepo.ListByLeaderboard(ctx, id)
	if err != nil {
		return nil, err
	}
	lb.Players = players

	editors, err := s.leaderboardRepo.ListEditors(ctx, id)
	if err != nil {
		return nil, err
	}
	lb.Editors = editors

	if owner, err := s.userRepo.GetByID(ctx, lb.OwnerID); err == nil {
		lb.Owner = owner
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	s.populateCoverURL(lb)
	return lb, nil
}

func (s *leaderboardService) ListByUser(ctx context.Context, userID int) ([]models.Leaderboard, error) {
	list, err := s.leaderboardRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		s.populateCoverURL(&list[i])
	}
	return list, nil
}

func (s *leaderboardService) Rename(ctx context.Context, id, userID int, name string) (*models.Leaderboard, error) {
	lb, err := s.requireOwner(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	normalized := normalizeName(name)
	if normalized == "" {
		return nil, ErrLeaderboardNameRequired
	}

	if err := s.leaderboardRepo.UpdateName(ctx, id, normalized); err != nil {
		switch {
		case errors.Is(err, repositories.ErrLeaderboardNotFound):
			return nil, ErrLeaderboardNotFound
		case errors.Is(err, repositories.ErrLeaderboardNameConflict):
			return nil, ErrLeaderboardNameConflict
		}
		return nil, err
	}

	lb.Name = normalized
	s.populateCoverURL(lb)
	return lb, nil
}

func (s *leaderboardService) Delete(ctx context.Context, id, userID int) error {
	lb, err := s.requireOwner(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.leaderboardRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return ErrLeaderboardNotFound
		}
		return err
	}

	// Объект в хранилище чистим после удаления записи, потеря ключа не
	// критична.
	if lb.CoverKey != nil && *lb.CoverKey != "" && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *lb.CoverKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete cover object",
				slog.Int("leaderboard_id", id),
				slog.String("cover_key", *lb.CoverKey),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *leaderboardService) UploadCover(ctx context.Context, id, userID int, contentType string, file io.Reader) (*models.Leaderboard, error) {
	lb, err := s.requireOwner(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("leaderboards/%d/cover_%s%s", id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload cover: %w", err)
	}

	oldKey := lb.CoverKey
	if err := s.leaderboardRepo.UpdateCoverKey(ctx, id, &key); err != nil {
		// Запись не обновилась, загруженный объект осиротел — убираем его.
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned cover object",
				slog.String("cover_key", key), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}

	if oldKey != nil && *oldKey != "" {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous cover object",
				slog.String("cover_key", *oldKey), slog.Any("error", err))
		}
	}

	lb.CoverKey = &key
	s.populateCoverURL(lb)
	return lb, nil
}

func (s *leaderboardService) RemoveCover(ctx context.Context, id, userID int) error {
	lb, err := s.requireOwner(ctx, id, userID)
	if err != nil {
		return err
	}
	if lb.CoverKey == nil || *lb.CoverKey == "" {
		return nil
	}

	if err := s.leaderboardRepo.UpdateCoverKey(ctx, id, nil); err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return ErrLeaderboardNotFound
		}
		return err
	}

	if s.uploader != nil {
		if err := s.uploader.Delete(ctx, *lb.CoverKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete cover object",
				slog.String("cover_key", *lb.CoverKey), slog.Any("error", err))
		}
	}
	return nil
}

func (s *leaderboardService) AddPlayer(ctx context.Context, leaderboardID, userID int, name string) (*models.Player, error) {
	if _, err := s.requireEditor(ctx, leaderboardID, userID); err != nil {
		return nil, err
	}

	normalized := normalizeName(name)
	if normalized == "" {
		return nil, ErrPlayerNameRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error during rollback: %v. Original error: %v", rbErr, txErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	player := &models.Player{LeaderboardID: leaderboardID, Name: normalized}
	if txErr = s.playerRepo.Create(ctx, tx, player); txErr != nil {
		if errors.Is(txErr, repositories.ErrPlayerNameConflict) {
			txErr = ErrPlayerNameConflict
		}
		return nil, txErr
	}
	if txErr = s.statsRepo.Create(ctx, tx, player.ID, leaderboardID); txErr != nil {
		return nil, txErr
	}

	if txErr != nil {
		return nil, txErr
	}
	return player, nil
}

// RenamePlayer обновляет имя игрока и вслед за этим денормализованные копии
// имени в истории матчей. Каскад выполняется по принципу best-effort: отказ
// каскада логируется, но само переименование уже состоялось и не откатывается.
func (s *leaderboardService) RenamePlayer(ctx context.Context, leaderboardID, playerID, userID int, name string) (*models.Player, error) {
	if _, err := s.requireEditor(ctx, leaderboardID, userID); err != nil {
		return nil, err
	}

	normalized := normalizeName(name)
	if normalized == "" {
		return nil, ErrPlayerNameRequired
	}

	player, err := s.playerRepo.GetByID(ctx, leaderboardID, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	if err := s.playerRepo.UpdateName(ctx, leaderboardID, playerID, normalized); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPlayerNotFound):
			return nil, ErrPlayerNotFound
		case errors.Is(err, repositories.ErrPlayerNameConflict):
			return nil, ErrPlayerNameConflict
		}
		return nil, err
	}
	player.Name = normalized

	if err := s.gameRepo.UpdatePlayerName(ctx, leaderboardID, playerID, normalized); err != nil {
		s.logger.WarnContext(ctx, "failed to cascade player rename to game history",
			slog.Int("leaderboard_id", leaderboardID),
			slog.Int("player_id", playerID),
			slog.Any("error", err))
	}
	if err := s.gameRepo.UpdateCardGameRankingName(ctx, leaderboardID, playerID, normalized); err != nil {
		s.logger.WarnContext(ctx, "failed to cascade player rename to card game rankings",
			slog.Int("leaderboard_id", leaderboardID),
			slog.Int("player_id", playerID),
			slog.Any("error", err))
	}

	return player, nil
}

// RemovePlayer удаляет игрока из состава. Его статистика и сыгранные матчи
// остаются: история лидерборда не переписывается, но из текущего рейтинга
// игрок пропадает.
func (s *leaderboardService) RemovePlayer(ctx context.Context, leaderboardID, playerID, userID int) error {
	if _, err := s.requireEditor(ctx, leaderboardID, userID); err != nil {
		return err
	}

	if err := s.playerRepo.Delete(ctx, leaderboardID, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return err
	}
	return nil
}

func (s *leaderboardService) AddEditor(ctx context.Context, leaderboardID, ownerID int, identifier string) (*models.User, error) {
	lb, err := s.requireOwner(ctx, leaderboardID, ownerID)
	if err != nil {
		return nil, err
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: editor username or email required", ErrValidationFailed)
	}

	user, err := s.userRepo.GetByEmail(ctx, identifier)
	if errors.Is(err, repositories.ErrUserNotFound) {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.ID == lb.OwnerID {
		return nil, ErrEditorConflict
	}

	if err := s.leaderboardRepo.AddEditor(ctx, leaderboardID, user.ID); err != nil {
		if errors.Is(err, repositories.ErrEditorConflict) {
			return nil, ErrEditorConflict
		}
		return nil, err
	}
	return user, nil
}

func (s *leaderboardService) RemoveEditor(ctx context.Context, leaderboardID, ownerID, editorID int) error {
	if _, err := s.requireOwner(ctx, leaderboardID, ownerID); err != nil {
		return err
	}

	if err := s.leaderboardRepo.RemoveEditor(ctx, leaderboardID, editorID); err != nil {
		if errors.Is(err, repositories.ErrEditorNotFound) {
			return ErrEditorNotFound
		}
		return err
	}
	return nil
}

func (s *leaderboardService) requireOwner(ctx context.Context, leaderboardID, userID int) (*models.Leaderboard, error) {
	lb, err := s.leaderboardRepo.GetByID(ctx, leaderboardID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}
	if lb.OwnerID != userID {
		return nil, ErrForbiddenOperation
	}
	return lb, nil
}

func (s *leaderboardService) requireEditor(ctx context.Context, leaderboardID, userID int) (*models.Leaderboard, error) {
	lb, err := s.leaderboardRepo.GetByID(ctx, leaderboardID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderboardNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}
	if lb.OwnerID == userID {
		return lb, nil
	}
	ok, err := s.leaderboardRepo.IsEditor(ctx, leaderboardID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbiddenOperation
	}
	return lb, nil
}

func (s *leaderboardService) populateCoverURL(lb *models.Leaderboard) {
	if lb == nil || lb.CoverKey == nil || *lb.CoverKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*lb.CoverKey); url != "" {
		lb.CoverURL = &url
	}
}
