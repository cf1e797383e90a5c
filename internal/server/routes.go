package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, hub *Hub, broker *Broker, db *sql.DB, rdb *redis.Client) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoHunt API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	// Player routes.
	r.Route("/api", func(r chi.Router) {
		r.Get("/teams/{joinToken}", handleTeamLookup(store))
		r.Post("/join", handleJoin(store, broker))
		r.Get("/game/state", handleGameState(store, hub))
		r.Post("/game/position", handlePosition(store, hub, broker))
		r.Post("/game/activate", handleActivate(store, hub, broker))
		r.Post("/game/answer", handleAnswer(store, hub, broker))
		r.Post("/game/hint", handleHint(store, hub))
		r.Get("/game/events", handleEvents(store, broker))
		r.Get("/sync", handleSync(logger, store, hub, broker))
	})

	// Instructor auth.
	r.Post("/api/instructor/login", handleInstructorLogin(store))
	r.Post("/api/instructor/logout", handleInstructorLogout(store))
	r.Get("/api/instructor/me", handleInstructorMe(store))

	// Instructor game management.
	r.Route("/api/instructor/games", func(r chi.Router) {
		r.Use(instructorAuthMiddleware(store))
		r.Get("/", handleListGames(store))
		r.Post("/", handleCreateGame(store))
		r.Get("/{gameID}", handleGetGame(store))
		r.Put("/{gameID}", handleUpdateGame(store, hub))
		r.Delete("/{gameID}", handleDeleteGame(store, hub))
		r.Get("/{gameID}/scoreboard", handleScoreboard(store))
		r.Get("/{gameID}/events", handleInstructorEvents(broker))
		r.Get("/{gameID}/teams", handleListTeams(store))
		r.Post("/{gameID}/teams", handleCreateTeam(store))
		r.Delete("/{gameID}/teams/{teamID}", handleDeleteTeam(store, hub))
	})
}
