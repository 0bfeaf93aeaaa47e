package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory dataStore with the same ownership and cascade
// rules as the PostgreSQL schema.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	clock    time.Time
	users    map[int64]*user
	projects map[int64]*project
	tasks    map[int64]*task
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    make(map[int64]*user),
		projects: make(map[int64]*project),
		tasks:    make(map[int64]*task),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// tick advances the store clock so timestamps are strictly ordered.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) ping(ctx context.Context) error {
	return nil
}

func (s *memStore) checkUserAvailable(ctx context.Context, username, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return errDuplicateUsername
		}
	}
	for _, u := range s.users {
		if u.Email == email {
			return errDuplicateEmail
		}
	}
	return nil
}

func (s *memStore) insertUser(ctx context.Context, u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return errDuplicateUsername
		}
		if existing.Email == u.Email {
			return errDuplicateEmail
		}
	}
	u.ID = s.id()
	u.CreatedAt = s.tick()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) getUserByUsername(ctx context.Context, username string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errRecordNotFound
}

func (s *memStore) activateUser(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			if u.IsActive {
				return true, nil
			}
			u.IsActive = true
			return false, nil
		}
	}
	return false, errRecordNotFound
}

func (s *memStore) deleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errRecordNotFound
	}
	delete(s.users, id)
	for pid, p := range s.projects {
		if p.OwnerID == id {
			s.deleteProjectLocked(pid)
		}
	}
	return nil
}

func (s *memStore) listProjects(ctx context.Context, ownerID int64) ([]projectSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	projects := []projectSummary{}
	for _, p := range s.projects {
		if p.OwnerID != ownerID {
			continue
		}
		summary := projectSummary{project: *p}
		for _, t := range s.tasks {
			if t.ProjectID == p.ID {
				summary.TaskCount++
			}
		}
		projects = append(projects, summary)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

func (s *memStore) insertProject(ctx context.Context, p *project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	p.CreatedAt = s.tick()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *memStore) getOwnedProject(ctx context.Context, projectID, ownerID int64) (*project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.OwnerID != ownerID {
		return nil, errRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) updateProject(ctx context.Context, projectID, ownerID int64, mutate func(*project)) (*project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.OwnerID != ownerID {
		return nil, errRecordNotFound
	}
	cp := *p
	mutate(&cp)
	s.projects[projectID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) deleteProject(ctx context.Context, projectID, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.OwnerID != ownerID {
		return errRecordNotFound
	}
	s.deleteProjectLocked(projectID)
	return nil
}

func (s *memStore) deleteProjectLocked(projectID int64) {
	delete(s.projects, projectID)
	for tid, t := range s.tasks {
		if t.ProjectID == projectID {
			delete(s.tasks, tid)
		}
	}
}

func (s *memStore) listTasks(ctx context.Context, projectID int64, status taskStatus) ([]task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := []task{}
	for _, t := range s.tasks {
		if t.ProjectID == projectID && (status == "" || t.Status == status) {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *memStore) recentTasks(ctx context.Context, ownerID int64, limit int) ([]task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := []task{}
	for _, t := range s.tasks {
		if p, ok := s.projects[t.ProjectID]; ok && p.OwnerID == ownerID {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].UpdatedAt.Equal(tasks[j].UpdatedAt) {
			return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *memStore) insertTask(ctx context.Context, t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[t.ProjectID]; !ok {
		return errRecordNotFound
	}
	t.ID = s.id()
	t.CreatedAt = s.tick()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *memStore) getProjectTask(ctx context.Context, taskID, projectID int64) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, errRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) updateTask(ctx context.Context, taskID, projectID int64, mutate func(*task)) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, errRecordNotFound
	}
	cp := *t
	mutate(&cp)
	cp.UpdatedAt = s.tick()
	s.tasks[taskID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) deleteTask(ctx context.Context, taskID, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return errRecordNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

// recordingNotifier keeps the last verification token sent to each address.
type recordingNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{tokens: make(map[string]string)}
}

func (n *recordingNotifier) sendVerificationEmail(to, username, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[to] = token
	return n.err
}

func (n *recordingNotifier) tokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

type testDependencies struct {
	app      *application
	store    *memStore
	notifier *recordingNotifier
	handler  http.Handler
}

func testConfig() config {
	return config{
		Port:    8000,
		Env:     "testing",
		BaseURL: "http://localhost:8000",
		JWT: jwtConfig{
			Secret:             "test-secret",
			Algorithm:          "HS256",
			AccessTokenMinutes: 30,
		},
		CORS: corsConfig{TrustedOrigins: []string{"*"}},
	}
}

func setupApp(t *testing.T) *testDependencies {
	t.Helper()
	cfg := testConfig()
	tokens, err := newTokenService(cfg.JWT)
	require.NoError(t, err)

	store := newMemStore()
	notifier := newRecordingNotifier()
	app := &application{
		config:   cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		storage:  store,
		tokens:   tokens,
		notifier: notifier,
	}
	return &testDependencies{
		app:      app,
		store:    store,
		notifier: notifier,
		handler:  composeRoutes(app),
	}
}

func (td *testDependencies) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			js, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(js)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	td.handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers, verifies and logs in a user, returning an access token.
func (td *testDependencies) signUp(t *testing.T, username, email, password string) string {
	t.Helper()
	rr := td.do(t, http.MethodPost, "/auth/register", "", envelope{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = td.do(t, http.MethodGet, "/auth/verify?token="+td.notifier.tokenFor(email), "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	return td.login(t, username, password)
}

func (td *testDependencies) login(t *testing.T, username, password string) string {
	t.Helper()
	rr := td.do(t, http.MethodPost, "/auth/login", "", envelope{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, rr, &res)
	require.Equal(t, "bearer", res.TokenType)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var res struct {
		Error string `json:"error"`
	}
	decodeBody(t, rr, &res)
	return res.Error
}
