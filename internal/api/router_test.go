package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/isdelr/ender-tasks/internal/auth"
	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/isdelr/ender-tasks/internal/services"
	"github.com/isdelr/ender-tasks/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	server *httptest.Server
	tasks  *services.TaskService
	hub    *websocket.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)
	users := services.NewUserService(issuer)
	tasks := services.NewTaskService()
	hub := websocket.NewHub()
	go hub.Run()

	tasks.OnChange(func(ev services.TaskEvent) {
		hub.BroadcastTo(ev.Task.UserID, websocket.Encode(ev.Type, ev.Task))
	})

	srv := httptest.NewServer(NewRouter(hub, users, tasks, nil))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return &testAPI{server: srv, tasks: tasks, hub: hub}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	obj, _ := decoded.(map[string]interface{})
	if list, ok := decoded.([]interface{}); ok {
		obj = map[string]interface{}{"items": list}
	}
	return resp, obj
}

func (a *testAPI) signup(t *testing.T, email, name string) string {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "name": name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["token"].(string)
}

func TestHealthAndIndex(t *testing.T) {
	a := newTestAPI(t)

	resp, body := a.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "Task Manager API is running", body["message"])

	resp, body = a.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.0.0", body["version"])
	assert.Contains(t, body["endpoints"], "PUT /api/tasks/:id")
	assert.Contains(t, body["endpoints"], "POST /api/auth/login")
}

func TestSignupAndLogin(t *testing.T) {
	a := newTestAPI(t)

	resp, body := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "secret1", "name": "Alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User created successfully", body["message"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "Alice", user["name"])
	assert.NotContains(t, user, "passwordHash")

	resp, body = a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "different", "name": "Other",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists", body["error"])

	resp, body = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "Alice", body["user"].(map[string]interface{})["name"])

	_, wrongPassword := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "nope-nope",
	})
	resp, unknownEmail := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, wrongPassword, unknownEmail)
	assert.Equal(t, "Invalid credentials", unknownEmail["error"])
}

func TestSignup_Validation(t *testing.T) {
	a := newTestAPI(t)

	resp, body := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "123", "name": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "email")
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "name")

	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/auth/signup", strings.NewReader("{"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestTasks_RequireToken(t *testing.T) {
	a := newTestAPI(t)

	resp, body := a.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Access token required", body["error"])

	resp, body = a.do(t, http.MethodGet, "/api/tasks", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid token", body["error"])
}

func TestBuyMilkScenario(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signup(t, "alice@example.com", "Alice")
	bob := a.signup(t, "bob@example.com", "Bob")

	resp, created := a.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{
		"title":       "Buy milk",
		"description": "2% organic",
		"dueDate":     "2025-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "Buy milk", created["title"])
	id := int(created["id"].(float64))
	path := fmt.Sprintf("/api/tasks/%d", id)

	resp, list := a.do(t, http.MethodGet, "/api/tasks", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list["items"], 1)

	// Bob sees nothing of Alice's.
	resp, list = a.do(t, http.MethodGet, "/api/tasks", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, list["items"])

	resp, body := a.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Task not found", body["error"])

	resp, _ = a.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, updated := a.do(t, http.MethodPut, path, alice, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", updated["status"])
	assert.Equal(t, "Buy milk", updated["title"])

	resp, body = a.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Task deleted successfully", body["message"])

	resp, _ = a.do(t, http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTasks_BadRequests(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signup(t, "alice@example.com", "Alice")

	resp, body := a.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{"title": "only title"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["fields"], "description")

	resp, _ = a.do(t, http.MethodGet, "/api/tasks/abc", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPut, "/api/tasks/99", alice, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdate_ImageNullClears(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signup(t, "alice@example.com", "Alice")

	_, created := a.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{
		"title": "Photo", "description": "with image", "dueDate": "2025-01-01T00:00:00Z",
		"image": "data:image/png;base64,AAAA",
	})
	path := fmt.Sprintf("/api/tasks/%d", int(created["id"].(float64)))

	_, kept := a.do(t, http.MethodPut, path, alice, map[string]string{"title": "Renamed"})
	assert.Equal(t, "data:image/png;base64,AAAA", kept["image"])

	_, cleared := a.do(t, http.MethodPut, path, alice, map[string]interface{}{"image": nil})
	assert.NotContains(t, cleared, "image")
}

func TestUpdate_EmptyDueDateIsIgnored(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signup(t, "alice@example.com", "Alice")

	_, created := a.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{
		"title": "Buy milk", "description": "2% organic", "dueDate": "2025-01-01T00:00:00Z",
	})
	path := fmt.Sprintf("/api/tasks/%d", int(created["id"].(float64)))

	resp, updated := a.do(t, http.MethodPut, path, alice, map[string]string{"title": "new", "dueDate": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new", updated["title"])
	assert.Equal(t, "2025-01-01T00:00:00Z", updated["dueDate"])

	resp, updated = a.do(t, http.MethodPut, path, alice, map[string]interface{}{"description": "oat", "dueDate": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "oat", updated["description"])
	assert.Equal(t, "2025-01-01T00:00:00Z", updated["dueDate"])
}

func TestCreate_EmptyDueDateIsValidationError(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signup(t, "alice@example.com", "Alice")

	resp, body := a.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{
		"title": "Buy milk", "description": "2% organic", "dueDate": "",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "dueDate must be provided", body["error"])
}

func TestStats(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signup(t, "alice@example.com", "Alice")

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	_, err := a.tasks.Create(1, models.TaskInput{Title: "t", Description: "d", DueDate: ptrTime(time.Now().Add(time.Hour))})
	require.NoError(t, err)
	a.do(t, http.MethodPost, "/api/tasks", alice, map[string]string{"title": "late", "description": "d", "dueDate": past})

	resp, body := a.do(t, http.MethodGet, "/api/stats", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 2, body["pending"])
	assert.EqualValues(t, 1, body["overdue"])
}

func TestWebSocket_ReceivesOwnTaskEvents(t *testing.T) {
	a := newTestAPI(t)
	alice := a.signup(t, "alice@example.com", "Alice")
	bob := a.signup(t, "bob@example.com", "Bob")

	wsURL := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/api/ws?token=" + alice
	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	messages := make(chan websocket.Message, 16)
	go func() {
		defer close(messages)
		for {
			var msg websocket.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			messages <- msg
		}
	}()

	// The hub registers the connection asynchronously, so keep creating
	// tasks until one of Alice's arrives.
	body := map[string]string{"title": "Buy milk", "description": "d", "dueDate": "2030-01-01T00:00:00Z"}
	require.Eventually(t, func() bool {
		a.do(t, http.MethodPost, "/api/tasks", bob, map[string]string{"title": "bob's", "description": "d", "dueDate": "2030-01-01T00:00:00Z"})
		a.do(t, http.MethodPost, "/api/tasks", alice, body)
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return false
				}
				payload := msg.Payload.(map[string]interface{})
				assert.Equal(t, "Buy milk", payload["title"], "only the owner's events are delivered")
				if msg.Action == services.TaskCreated {
					return true
				}
			default:
				return false
			}
		}
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWebSocket_RejectsMissingToken(t *testing.T) {
	a := newTestAPI(t)

	wsURL := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/api/ws"
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, rec.Body.String())
}

func ptrTime(t time.Time) *time.Time { return &t }
