package routes

import (
	"net/http"

	"github.com/amalyulianto/sirkel-main-backend/config"
	"github.com/amalyulianto/sirkel-main-backend/handlers"
	"github.com/amalyulianto/sirkel-main-backend/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

// SetupRoutes настраивает все маршруты приложения на переданном роутере.
// Всё под /api защищено глобальным API-ключом; мутирующие операции над
// лидербордами дополнительно требуют JWT. Отправка результатов матчей и
// просмотр рейтинга/истории открыты, чтобы судья мог работать без аккаунта.
func SetupRoutes(
	router *chi.Mux,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	gameHandler *handlers.GameHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-api-key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})

	// WebSocket вне /api: браузерный клиент не может выставить x-api-key
	// при рукопожатии.
	router.Get("/ws/leaderboards/{leaderboardID}", webSocketHandler.ServeWs)

	router.Route("/api", func(api chi.Router) {
		api.Use(middleware.APIKeyAuth(cfg.APIAuthKey))

		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/signin", authHandler.SignIn)
			r.Post("/signout", authHandler.SignOut)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password/{token}", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(cfg.JWTSecretKey))
				r.Get("/profile", authHandler.Profile)
				r.Patch("/{userID}", authHandler.UpdateProfile)
			})
		})

		api.Route("/leaderboards", func(r chi.Router) {
			// Публичные маршруты: просмотр лидерборда и работа с матчами.
			r.Get("/{leaderboardID}", leaderboardHandler.GetDetails)
			r.Post("/{leaderboardID}/games/{gameType}", gameHandler.Submit)
			r.Get("/{leaderboardID}/ranking/{gameType}", gameHandler.Ranking)
			r.Get("/{leaderboardID}/history/{gameType}", gameHandler.History)
			r.Get("/{leaderboardID}/players/{playerID}/stats/{gameType}", gameHandler.PlayerStats)

			// Защищённые маршруты: управление лидербордом.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(cfg.JWTSecretKey))

				r.Post("/", leaderboardHandler.Create)
				r.Get("/", leaderboardHandler.List)
				r.Put("/{leaderboardID}", leaderboardHandler.Rename)
				r.Delete("/{leaderboardID}", leaderboardHandler.Delete)

				r.Post("/{leaderboardID}/cover", leaderboardHandler.UploadCover)
				r.Delete("/{leaderboardID}/cover", leaderboardHandler.RemoveCover)

				r.Post("/{leaderboardID}/players", leaderboardHandler.AddPlayer)
				r.Put("/{leaderboardID}/players/{playerID}", leaderboardHandler.RenamePlayer)
				r.Delete("/{leaderboardID}/players/{playerID}", leaderboardHandler.RemovePlayer)

				r.Post("/{leaderboardID}/editors", leaderboardHandler.AddEditor)
				r.Delete("/{leaderboardID}/editors/{editorID}", leaderboardHandler.RemoveEditor)
			})
		})
	})
}
