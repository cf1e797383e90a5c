package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playverse/geohunt/internal/hunt"
)

func instructorLogin(t *testing.T, r http.Handler) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Email: demoInstructorEmail, Password: demoInstructorPassword})
	req := httptest.NewRequest(http.MethodPost, "/api/instructor/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == instructorCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login: expected a session cookie")
	return nil
}

func instructorDo(t *testing.T, r http.Handler, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInstructorLoginBadCredentials(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(LoginRequest{Email: demoInstructorEmail, Password: "nope"})
	req := httptest.NewRequest(http.MethodPost, "/api/instructor/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", w.Code)
	}

	// Unknown account gets the identical response.
	body, _ = json.Marshal(LoginRequest{Email: "who@example.com", Password: "nope"})
	req = httptest.NewRequest(http.MethodPost, "/api/instructor/login", bytes.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: expected 401, got %d", w.Code)
	}
}

func TestInstructorSessionLifecycle(t *testing.T) {
	r := newTestRouter(t)
	cookie := instructorLogin(t, r)

	w := instructorDo(t, r, http.MethodGet, "/api/instructor/me", cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	var me InstructorResponse
	json.NewDecoder(w.Body).Decode(&me)
	if me.Email != demoInstructorEmail {
		t.Errorf("me: expected %q, got %q", demoInstructorEmail, me.Email)
	}

	w = instructorDo(t, r, http.MethodPost, "/api/instructor/logout", cookie, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", w.Code)
	}

	w = instructorDo(t, r, http.MethodGet, "/api/instructor/me", cookie, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", w.Code)
	}
}

func TestInstructorGamesRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	w := instructorDo(t, r, http.MethodGet, "/api/instructor/games", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestGameCRUD(t *testing.T) {
	r := newTestRouter(t)
	cookie := instructorLogin(t, r)

	// The seeded demo game is listed.
	w := instructorDo(t, r, http.MethodGet, "/api/instructor/games", cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var games []GameSummary
	json.NewDecoder(w.Body).Decode(&games)
	if len(games) != 1 {
		t.Fatalf("list: expected 1 game, got %d", len(games))
	}
	if games[0].TaskCount != 4 || games[0].ZoneCount != 2 || games[0].TeamCount != 2 {
		t.Errorf("list: unexpected counts %+v", games[0])
	}

	// Create a new draft.
	w = instructorDo(t, r, http.MethodPost, "/api/instructor/games", cookie, GameRequest{
		Name: "Night Run",
		Tasks: []hunt.TaskPoint{{
			Title:            "Checkpoint",
			Question:         "Color of the gate?",
			CorrectAnswer:    "red",
			ActivationTypes:  []hunt.ActivationType{hunt.ActivationProximity},
			CompletionPolicy: hunt.CompletionKeepUntilCorrect,
			RewardPoints:     10,
		}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created hunt.Game
	json.NewDecoder(w.Body).Decode(&created)
	if created.ID == "" || created.Status != hunt.GameStatusDraft {
		t.Errorf("create: expected a draft with an id, got %+v", created)
	}
	if created.Tasks[0].ID == "" {
		t.Error("create: expected a generated task id")
	}

	// Update it.
	w = instructorDo(t, r, http.MethodPut, "/api/instructor/games/"+created.ID, cookie, GameRequest{
		Name:   "Night Run v2",
		Status: hunt.GameStatusActive,
		Tasks:  created.Tasks,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated hunt.Game
	json.NewDecoder(w.Body).Decode(&updated)
	if updated.Name != "Night Run v2" || updated.Status != hunt.GameStatusActive {
		t.Errorf("update: got %+v", updated)
	}

	// Fetch and delete.
	w = instructorDo(t, r, http.MethodGet, "/api/instructor/games/"+created.ID, cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	w = instructorDo(t, r, http.MethodDelete, "/api/instructor/games/"+created.ID, cookie, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = instructorDo(t, r, http.MethodGet, "/api/instructor/games/"+created.ID, cookie, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", w.Code)
	}
}

func TestGameValidationRejected(t *testing.T) {
	r := newTestRouter(t)
	cookie := instructorLogin(t, r)

	w := instructorDo(t, r, http.MethodPost, "/api/instructor/games", cookie, GameRequest{
		Name: "Broken",
		DangerZones: []hunt.DangerZone{{
			Name:             "Bad",
			PenaltyType:      hunt.PenaltyFixed,
			PenaltyMagnitude: -5,
		}},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTeamManagement(t *testing.T) {
	r := newTestRouter(t)
	cookie := instructorLogin(t, r)

	var games []GameSummary
	w := instructorDo(t, r, http.MethodGet, "/api/instructor/games", cookie, nil)
	json.NewDecoder(w.Body).Decode(&games)
	gameID := games[0].ID

	w = instructorDo(t, r, http.MethodPost, "/api/instructor/games/"+gameID+"/teams", cookie, TeamRequest{Name: "Los Pumas"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create team: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var team hunt.Team
	json.NewDecoder(w.Body).Decode(&team)
	if team.JoinToken == "" {
		t.Error("create team: expected a generated join token")
	}

	w = instructorDo(t, r, http.MethodGet, "/api/instructor/games/"+gameID+"/teams", cookie, nil)
	var teams []hunt.Team
	json.NewDecoder(w.Body).Decode(&teams)
	if len(teams) != 3 {
		t.Fatalf("expected 3 teams, got %d", len(teams))
	}

	w = instructorDo(t, r, http.MethodDelete, "/api/instructor/games/"+gameID+"/teams/"+team.ID, cookie, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete team: expected 204, got %d", w.Code)
	}
}

func TestScoreboard(t *testing.T) {
	r := newTestRouter(t)
	cookie := instructorLogin(t, r)

	// Two teams play; one completes a task.
	incas := joinTeam(t, r, "incas-2026", "Maria")
	joinTeam(t, r, "condores-2026", "Carlos")

	submitPosition(t, r, incas.Token, plazaCenter)
	postJSON(t, r, "/api/game/answer", incas.Token, AnswerRequest{TaskID: "plaza-mayor", Answer: "1651"})

	var games []GameSummary
	w := instructorDo(t, r, http.MethodGet, "/api/instructor/games", cookie, nil)
	json.NewDecoder(w.Body).Decode(&games)

	w = instructorDo(t, r, http.MethodGet, "/api/instructor/games/"+games[0].ID+"/scoreboard", cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scoreboard: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var board ScoreboardResponse
	json.NewDecoder(w.Body).Decode(&board)

	if len(board.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board.Entries))
	}
	byName := make(map[string]ScoreboardEntry)
	for _, e := range board.Entries {
		byName[e.TeamName] = e
	}
	if e := byName["Los Incas"]; e.Score != 20 || e.CompletedTasks != 1 {
		t.Errorf("Los Incas: expected score 20 with 1 completion, got %+v", e)
	}
	if e := byName["Los Condores"]; e.Score != 0 || e.CompletedTasks != 0 {
		t.Errorf("Los Condores: expected a zero row, got %+v", e)
	}
	if len(board.Attempts) != 1 || board.Attempts[0].Status != hunt.AttemptCorrect {
		t.Errorf("expected one correct attempt in the log, got %v", board.Attempts)
	}
}
