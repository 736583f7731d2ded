package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nkitajim/task-collabo/auth"
	"github.com/nkitajim/task-collabo/domain"
	"github.com/nkitajim/task-collabo/realtime"
	"github.com/nkitajim/task-collabo/storage"
)

type apiEnv struct {
	e      *echo.Echo
	store  *storage.Store
	hub    *realtime.Hub
	tokens *auth.Tokens
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	hub := realtime.NewHub()
	dispatcher := realtime.NewDispatcher(hub, logger, 16)
	t.Cleanup(dispatcher.Stop)

	tokens := auth.NewTokens("test-secret", time.Hour)

	e := echo.New()
	rt := Realtime{
		Hub:          hub,
		Dispatcher:   dispatcher,
		SendBuffer:   16,
		WriteTimeout: time.Second,
		AdmitTimeout: time.Second,
	}
	Register(e, store, tokens, rt, nil, logger)

	return &apiEnv{e: e, store: store, hub: hub, tokens: tokens}
}

func (env *apiEnv) seedUser(t *testing.T, id, email string) string {
	t.Helper()
	err := env.store.CreateUser(context.Background(), domain.User{ID: id, Email: email, HashedPassword: "x"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := env.tokens.Issue(id)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (env *apiEnv) seedBoard(t *testing.T, boardID, ownerID string) {
	t.Helper()
	err := env.store.CreateBoard(context.Background(), domain.Board{ID: boardID, Title: "Board"}, ownerID)
	if err != nil {
		t.Fatalf("seed board: %v", err)
	}
}

func (env *apiEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// recordingHandle subscribes directly to the hub to observe broadcasts.
type recordingHandle struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (r *recordingHandle) Key() string { return "recorder" }
func (r *recordingHandle) Close()      {}

func (r *recordingHandle) TrySend(msg []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return true
}

func (r *recordingHandle) events(t *testing.T) []domain.Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.msgs))
	for i, raw := range r.msgs {
		if err := sonic.Unmarshal(raw, &out[i]); err != nil {
			t.Fatalf("unmarshal event %d: %v", i, err)
		}
	}
	return out
}

func waitForEvents(t *testing.T, rec *recordingHandle, n int) []domain.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := rec.events(t); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d events before deadline", n)
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodPost, "/auth/register", "",
		`{"email":"a@example.com","password":"s3cret-pass","name":"A"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.User.Email != "a@example.com" {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = env.do(t, http.MethodPost, "/auth/register", "",
		`{"email":"a@example.com","password":"s3cret-pass"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"a@example.com","password":"s3cret-pass"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"a@example.com","password":"wrong-password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rec.Code)
	}
}

func TestBoardEndpoints(t *testing.T) {
	env := setupAPI(t)
	ownerToken := env.seedUser(t, "owner", "o@example.com")
	strangerToken := env.seedUser(t, "stranger", "s@example.com")

	rec := env.do(t, http.MethodPost, "/boards", ownerToken, `{"title":"Sprint"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create board: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Board domain.Board `json:"board"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode board: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/boards", ownerToken, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Sprint") {
		t.Fatalf("list boards: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/boards/"+created.Board.ID+"/full", strangerToken, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger board full: %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/boards/"+created.Board.ID+"/full", ownerToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("owner board full: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/boards", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: %d", rec.Code)
	}
}

func TestColumnMutationsBroadcast(t *testing.T) {
	env := setupAPI(t)
	ownerToken := env.seedUser(t, "owner", "o@example.com")
	strangerToken := env.seedUser(t, "stranger", "s@example.com")
	env.seedBoard(t, "b1", "owner")

	recorder := &recordingHandle{}
	env.hub.Add("b1", recorder)

	rec := env.do(t, http.MethodPost, "/boards/b1/columns", strangerToken, `{"title":"To Do"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger create column: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/boards/b1/columns", ownerToken, `{"title":"To Do","position":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create column: %d %s", rec.Code, rec.Body.String())
	}
	var col domain.Column
	if err := sonic.Unmarshal(rec.Body.Bytes(), &col); err != nil {
		t.Fatalf("decode column: %v", err)
	}

	evs := waitForEvents(t, recorder, 1)
	if evs[0].Type != domain.EventColumnCreated || evs[0].Column.ID != col.ID {
		t.Fatalf("unexpected event %+v", evs[0])
	}

	rec = env.do(t, http.MethodDelete, "/boards/b1/columns/"+col.ID, ownerToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete column: %d %s", rec.Code, rec.Body.String())
	}
	evs = waitForEvents(t, recorder, 2)
	if evs[1].Type != domain.EventColumnDeleted || evs[1].ColumnID != col.ID {
		t.Fatalf("unexpected event %+v", evs[1])
	}

	rec = env.do(t, http.MethodDelete, "/boards/b1/columns/"+col.ID, ownerToken, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing column: %d", rec.Code)
	}
}

func TestTaskLifecycleBroadcasts(t *testing.T) {
	env := setupAPI(t)
	ownerToken := env.seedUser(t, "owner", "o@example.com")
	env.seedBoard(t, "b1", "owner")
	err := env.store.CreateColumn(context.Background(), domain.Column{ID: "c1", BoardID: "b1", Title: "To Do"})
	if err != nil {
		t.Fatalf("seed column: %v", err)
	}

	recorder := &recordingHandle{}
	env.hub.Add("b1", recorder)

	rec := env.do(t, http.MethodPost, "/columns/c1/tasks", ownerToken, `{"title":"Write docs","reward":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create task: %d %s", rec.Code, rec.Body.String())
	}
	var task domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}

	rec = env.do(t, http.MethodPut, "/tasks/"+task.ID, ownerToken, `{"title":"Write more docs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update task: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/tasks/"+task.ID+"/assign", ownerToken, `{"assignee_id":"owner"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("assign task: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/tasks/"+task.ID, ownerToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete task: %d %s", rec.Code, rec.Body.String())
	}

	evs := waitForEvents(t, recorder, 4)
	wantTypes := []string{domain.EventTaskCreated, domain.EventTaskUpdated, domain.EventTaskAssigned, domain.EventTaskDeleted}
	for i, want := range wantTypes {
		if evs[i].Type != want {
			t.Fatalf("event %d: got %s want %s", i, evs[i].Type, want)
		}
	}
	if evs[1].Task.Title != "Write more docs" {
		t.Fatalf("update event payload: %+v", evs[1].Task)
	}
	if evs[2].TaskID != task.ID || evs[2].AssigneeID != "owner" {
		t.Fatalf("assign event payload: %+v", evs[2])
	}
	if evs[3].TaskID != task.ID || evs[3].ColumnID != "c1" {
		t.Fatalf("delete event payload: %+v", evs[3])
	}

	rec = env.do(t, http.MethodPut, "/tasks/"+task.ID, ownerToken, `{"title":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update deleted task: %d", rec.Code)
	}
}

func TestReorderEndpoint(t *testing.T) {
	env := setupAPI(t)
	ownerToken := env.seedUser(t, "owner", "o@example.com")
	strangerToken := env.seedUser(t, "stranger", "s@example.com")
	env.seedBoard(t, "b1", "owner")

	ctx := context.Background()
	for _, col := range []domain.Column{
		{ID: "c1", BoardID: "b1", Title: "To Do", Position: 0},
		{ID: "c2", BoardID: "b1", Title: "Doing", Position: 1},
	} {
		if err := env.store.CreateColumn(ctx, col); err != nil {
			t.Fatalf("seed column: %v", err)
		}
	}
	for i, id := range []string{"t1", "t2", "t3"} {
		err := env.store.CreateTask(ctx, domain.Task{ID: id, ColumnID: "c1", Title: id, StartDate: time.Now().UTC(), Position: i})
		if err != nil {
			t.Fatalf("seed task: %v", err)
		}
	}

	recorder := &recordingHandle{}
	env.hub.Add("b1", recorder)

	body := `{"board_id":"b1","columns":[{"id":"c1","task_ids":["t3","t1"]},{"id":"c2","task_ids":["t2"]}]}`

	rec := env.do(t, http.MethodPost, "/tasks/reorder", strangerToken, body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger reorder: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/tasks/reorder", ownerToken, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: %d %s", rec.Code, rec.Body.String())
	}

	full, err := env.store.BoardFull(ctx, "b1")
	if err != nil {
		t.Fatalf("board full: %v", err)
	}
	c1 := full.Columns[0].Tasks
	if len(c1) != 2 || c1[0].ID != "t3" || c1[1].ID != "t1" {
		t.Fatalf("unexpected c1 arrangement: %+v", c1)
	}
	c2 := full.Columns[1].Tasks
	if len(c2) != 1 || c2[0].ID != "t2" {
		t.Fatalf("unexpected c2 arrangement: %+v", c2)
	}

	// exactly one reorder event carrying the submitted arrangement
	evs := waitForEvents(t, recorder, 1)
	if len(evs) != 1 || evs[0].Type != domain.EventReorder {
		t.Fatalf("unexpected events %+v", evs)
	}
	data := evs[0].Data
	if data.BoardID != "b1" || len(data.Columns) != 2 {
		t.Fatalf("unexpected reorder payload %+v", data)
	}
	if data.Columns[0].ID != "c1" || data.Columns[0].TaskIDs[0] != "t3" {
		t.Fatalf("unexpected reorder payload %+v", data)
	}

	rec = env.do(t, http.MethodPost, "/tasks/reorder", ownerToken, `{"columns":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reorder without board_id: %d", rec.Code)
	}
}

func TestAddMemberEndpoint(t *testing.T) {
	env := setupAPI(t)
	ownerToken := env.seedUser(t, "owner", "o@example.com")
	friendToken := env.seedUser(t, "friend", "f@example.com")
	env.seedBoard(t, "b1", "owner")

	rec := env.do(t, http.MethodGet, "/boards/b1/full", friendToken, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("friend before membership: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/boards/b1/members", ownerToken, `{"user_id":"friend"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add member: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/boards/b1/full", friendToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("friend after membership: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/boards/b1/members", ownerToken, `{"user_id":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("add unknown user: %d", rec.Code)
	}
}

func TestBootstrapDemo(t *testing.T) {
	env := setupAPI(t)
	token := env.seedUser(t, "u1", "u@example.com")

	rec := env.do(t, http.MethodPost, "/_bootstrap_demo", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bootstrap: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		BoardID string `json:"board_id"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	full, err := env.store.BoardFull(context.Background(), resp.BoardID)
	if err != nil {
		t.Fatalf("board full: %v", err)
	}
	if len(full.Columns) != 3 || len(full.Columns[0].Tasks) != 2 {
		t.Fatalf("unexpected demo board %+v", full)
	}
}
