package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aruzhans/dance-battle-system/handlers"
	"github.com/aruzhans/dance-battle-system/middleware"
	"github.com/aruzhans/dance-battle-system/models"
)

// SetupRoutes собирает все маршруты API. Просмотр открыт всем,
// управление турниром доступно судьям и администраторам, карточка
// турнира - её организатору.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	categoryHandler *handlers.CategoryHandler,
	battleHandler *handlers.BattleHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	staffOnly := middleware.Authorize(models.RoleStaff, models.RoleAdmin)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/auth/me", authHandler.Me)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(staffOnly)

			r.Post("/", tournamentHandler.Create)
			r.Patch("/{tournamentID}", tournamentHandler.Update)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)
			r.Post("/{tournamentID}/poster", tournamentHandler.UploadPoster)
			r.Post("/{tournamentID}/advance", tournamentHandler.AdvancePhase)
			r.Post("/{tournamentID}/cancel", tournamentHandler.Cancel)
			r.Post("/{tournamentID}/categories", categoryHandler.Create)
		})
	})

	router.Route("/categories/{categoryID}", func(r chi.Router) {
		r.Get("/battles", categoryHandler.ListBattles)
		r.Get("/pools", categoryHandler.ListPools)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/performers", categoryHandler.RegisterPerformer)
		})
	})

	router.Route("/battles/{battleID}", func(r chi.Router) {
		r.Get("/", battleHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(staffOnly)

			r.Post("/start", battleHandler.Start)
			r.Post("/reorder", battleHandler.Reorder)
			r.Post("/result", battleHandler.EncodeResult)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
