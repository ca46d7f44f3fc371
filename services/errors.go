package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrPasswordTooShort        = errors.New("password is too short")
	ErrLeaderboardNameRequired = errors.New("leaderboard name is required")
	ErrInvalidGameType         = errors.New("gameType must be football, badminton or card-games")
	ErrFormatRequired          = errors.New("leaderboard format is required")
	ErrPlayersRequired         = errors.New("at least one player name is required")
	ErrPlayerNameRequired      = errors.New("player name is required")

	// Ошибки конфликтов
	ErrLeaderboardNameConflict = errors.New("a leaderboard with this name already exists")
	ErrPlayerNameConflict      = errors.New("a player with this name already exists on this leaderboard")
	ErrDuplicatePlayerNames    = errors.New("duplicate player names are not allowed")
	ErrEditorConflict          = errors.New("user is already an editor or the owner")
	ErrUsernameTaken           = errors.New("username is already taken")
	ErrEmailTaken              = errors.New("email is already taken")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid username or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrInvalidResetToken      = errors.New("password reset token is invalid or has expired")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound        = errors.New("user not found")
	ErrLeaderboardNotFound = errors.New("leaderboard not found")
	ErrPlayerNotFound      = errors.New("one or more players not found on this leaderboard")
	ErrEditorNotFound      = errors.New("editor not found on this leaderboard")
	ErrStatsNotFound       = errors.New("stats not found for this player")
)
