package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playverse/geohunt/internal/hunt"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GeoHunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the GeoHunt location task game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/teams/{joinToken}
	getTeam, _ := r.NewOperationContext(http.MethodGet, "/api/teams/{joinToken}")
	getTeam.SetSummary("Look up team")
	getTeam.SetDescription("Look up a team by its join token before joining.")
	getTeam.AddRespStructure(TeamLookupResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTeam)

	// POST /api/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	postJoin.SetSummary("Join a team")
	postJoin.SetDescription("Player joins a team using the join token. Returns a session token.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postJoin)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns tasks visible to the player's team, score, and timer. Requires Bearer token.")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getState)

	// POST /api/game/position
	postPosition, _ := r.NewOperationContext(http.MethodPost, "/api/game/position")
	postPosition.SetSummary("Submit position")
	postPosition.SetDescription("Reports the player's GPS fix and returns activatable tasks and zone warnings. Requires Bearer token.")
	postPosition.AddReqStructure(PositionRequest{})
	postPosition.AddRespStructure(PositionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPosition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postPosition)

	// POST /api/game/activate
	postActivate, _ := r.NewOperationContext(http.MethodPost, "/api/game/activate")
	postActivate.SetSummary("Activate a task")
	postActivate.SetDescription("Unlocks a task via QR, NFC, or manual code. Requires Bearer token.")
	postActivate.AddReqStructure(ActivateRequest{})
	postActivate.AddRespStructure(ActivateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postActivate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postActivate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postActivate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postActivate)

	// POST /api/game/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/game/answer")
	postAnswer.SetSummary("Submit answer")
	postAnswer.SetDescription("Submit an answer for a triggered task. Requires Bearer token.")
	postAnswer.AddReqStructure(AnswerRequest{})
	postAnswer.AddRespStructure(AnswerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// POST /api/game/hint
	postHint, _ := r.NewOperationContext(http.MethodPost, "/api/game/hint")
	postHint.SetSummary("Buy a hint")
	postHint.SetDescription("Deducts the hint cost and returns the hint text. Requires Bearer token.")
	postHint.AddReqStructure(HintRequest{})
	postHint.AddRespStructure(HintResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postHint)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream for real-time team updates. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sync
	getSync, _ := r.NewOperationContext(http.MethodGet, "/api/sync")
	getSync.SetSummary("Team sync WebSocket")
	getSync.SetDescription("Upgrades to a WebSocket carrying position reports up and team events down. Pass token as query parameter.")
	getSync.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getSync)

	// POST /api/instructor/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/instructor/login")
	postLogin.SetSummary("Instructor login")
	postLogin.SetDescription("Authenticate with email and password. Sets instructor_session cookie.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(InstructorResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/instructor/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/instructor/logout")
	postLogout.SetSummary("Instructor logout")
	postLogout.SetDescription("Clears instructor session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	_ = r.AddOperation(postLogout)

	// GET /api/instructor/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/instructor/me")
	getMe.SetSummary("Current instructor")
	getMe.SetDescription("Returns the currently authenticated instructor. Requires instructor_session cookie.")
	getMe.AddRespStructure(InstructorResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/instructor/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/api/instructor/games")
	listGames.SetSummary("List games")
	listGames.SetDescription("Returns all games with team counts. Requires instructor_session cookie.")
	listGames.AddRespStructure([]GameSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	listGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listGames)

	// POST /api/instructor/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/instructor/games")
	createGame.SetSummary("Create game")
	createGame.SetDescription("Creates a game with its tasks, danger zones, and timer. Requires instructor_session cookie.")
	createGame.AddReqStructure(GameRequest{})
	createGame.AddRespStructure(hunt.Game{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createGame)

	// GET /api/instructor/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/instructor/games/{gameID}")
	getGame.SetSummary("Get game")
	getGame.SetDescription("Returns a game with full task and zone details. Requires instructor_session cookie.")
	getGame.AddRespStructure(hunt.Game{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getGame)

	// PUT /api/instructor/games/{gameID}
	updateGame, _ := r.NewOperationContext(http.MethodPut, "/api/instructor/games/{gameID}")
	updateGame.SetSummary("Update game")
	updateGame.SetDescription("Replaces a game's configuration and restarts running sessions. Requires instructor_session cookie.")
	updateGame.AddReqStructure(GameRequest{})
	updateGame.AddRespStructure(hunt.Game{}, openapi.WithHTTPStatus(http.StatusOK))
	updateGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	updateGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(updateGame)

	// DELETE /api/instructor/games/{gameID}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/api/instructor/games/{gameID}")
	deleteGame.SetSummary("Delete game")
	deleteGame.SetDescription("Deletes a game and stops its sessions. Requires instructor_session cookie.")
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteGame)

	// GET /api/instructor/games/{gameID}/scoreboard
	getScoreboard, _ := r.NewOperationContext(http.MethodGet, "/api/instructor/games/{gameID}/scoreboard")
	getScoreboard.SetSummary("Scoreboard")
	getScoreboard.SetDescription("Returns teams ranked with their attempt history. Requires instructor_session cookie.")
	getScoreboard.AddRespStructure(ScoreboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getScoreboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getScoreboard)

	// GET /api/instructor/games/{gameID}/events
	getGameEvents, _ := r.NewOperationContext(http.MethodGet, "/api/instructor/games/{gameID}/events")
	getGameEvents.SetSummary("Game-wide SSE stream")
	getGameEvents.SetDescription("Server-Sent Events stream covering every team in the game. Requires instructor_session cookie.")
	getGameEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getGameEvents)

	// GET /api/instructor/games/{gameID}/teams
	listTeams, _ := r.NewOperationContext(http.MethodGet, "/api/instructor/games/{gameID}/teams")
	listTeams.SetSummary("List teams")
	listTeams.SetDescription("Returns teams for a game with join tokens. Requires instructor_session cookie.")
	listTeams.AddRespStructure([]hunt.Team{}, openapi.WithHTTPStatus(http.StatusOK))
	listTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listTeams)

	// POST /api/instructor/games/{gameID}/teams
	createTeam, _ := r.NewOperationContext(http.MethodPost, "/api/instructor/games/{gameID}/teams")
	createTeam.SetSummary("Create team")
	createTeam.SetDescription("Creates a team in a game. Auto-generates join token if blank. Requires instructor_session cookie.")
	createTeam.AddReqStructure(TeamRequest{})
	createTeam.AddRespStructure(hunt.Team{}, openapi.WithHTTPStatus(http.StatusCreated))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createTeam)

	// DELETE /api/instructor/games/{gameID}/teams/{teamID}
	deleteTeam, _ := r.NewOperationContext(http.MethodDelete, "/api/instructor/games/{gameID}/teams/{teamID}")
	deleteTeam.SetSummary("Delete team")
	deleteTeam.SetDescription("Deletes a team and stops its session. Requires instructor_session cookie.")
	deleteTeam.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteTeam)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
