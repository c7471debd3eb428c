package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/questlog/questlog/internal/model"
	"github.com/questlog/questlog/internal/platform"
	"github.com/questlog/questlog/internal/repository"
)

// --- connection repository mock ---

type mockConnRepo struct {
	mu    sync.Mutex
	conns map[string]*model.Connection // keyed by userID|platform

	upserts int
	updates int
}

func newMockConnRepo() *mockConnRepo {
	return &mockConnRepo{conns: make(map[string]*model.Connection)}
}

func connKey(userID, platformKey string) string {
	return userID + "|" + platformKey
}

func cloneConn(c *model.Connection) *model.Connection {
	out := *c
	out.RemoteProjection = model.RemoteProjection{}
	for k, v := range c.RemoteProjection {
		out.RemoteProjection[k] = v
	}
	return &out
}

func (m *mockConnRepo) Upsert(conn *model.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++

	key := connKey(conn.UserID, conn.Platform)
	stored := cloneConn(conn)
	if existing, ok := m.conns[key]; ok {
		// Conflict path mirrors the SQL upsert: credentials and the
		// connected flag change, sync state survives.
		stored.ID = existing.ID
		stored.RemoteProjection = existing.RemoteProjection
		stored.LastSync = existing.LastSync
		stored.LastError = existing.LastError
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = fmt.Sprintf("conn-%d", len(m.conns)+1)
		stored.CreatedAt = time.Now()
		if stored.RemoteProjection == nil {
			stored.RemoteProjection = model.RemoteProjection{}
		}
	}
	m.conns[key] = stored
	conn.ID = stored.ID
	return nil
}

func (m *mockConnRepo) ByUserAndPlatform(userID, platformKey string) (*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[connKey(userID, platformKey)]
	if !ok {
		return nil, repository.ErrConnectionNotFound
	}
	return cloneConn(conn), nil
}

func (m *mockConnRepo) ConnectedByPlatform(platformKey string) ([]*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Connection
	for _, conn := range m.conns {
		if conn.Platform == platformKey && conn.Connected {
			out = append(out, cloneConn(conn))
		}
	}
	return out, nil
}

func (m *mockConnRepo) ConnectedByUser(userID string) ([]*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Connection
	for _, conn := range m.conns {
		if conn.UserID == userID && conn.Connected {
			out = append(out, cloneConn(conn))
		}
	}
	return out, nil
}

func (m *mockConnRepo) Update(conn *model.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++

	key := connKey(conn.UserID, conn.Platform)
	if _, ok := m.conns[key]; !ok {
		return repository.ErrConnectionNotFound
	}
	m.conns[key] = cloneConn(conn)
	return nil
}

func (m *mockConnRepo) SaveProjection(userID, platformKey string, projection model.RemoteProjection) (*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := connKey(userID, platformKey)
	conn, ok := m.conns[key]
	if !ok {
		return nil, repository.ErrConnectionNotFound
	}
	if conn.RemoteProjection == nil {
		conn.RemoteProjection = model.RemoteProjection{}
	}
	// Stored keys win, matching the first-writer-wins merge in SQL.
	for k, v := range projection {
		if _, exists := conn.RemoteProjection[k]; !exists {
			conn.RemoteProjection[k] = v
		}
	}
	return cloneConn(conn), nil
}

func (m *mockConnRepo) SetProjectionKey(userID, platformKey, key, value string) (*model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[connKey(userID, platformKey)]
	if !ok {
		return nil, repository.ErrConnectionNotFound
	}
	if conn.RemoteProjection == nil {
		conn.RemoteProjection = model.RemoteProjection{}
	}
	conn.RemoteProjection[key] = value
	return cloneConn(conn), nil
}

func (m *mockConnRepo) SetSyncResult(userID, platformKey string, lastSync *time.Time, lastError *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connKey(userID, platformKey)]
	if !ok {
		return repository.ErrConnectionNotFound
	}
	if lastSync != nil {
		conn.LastSync = lastSync
	}
	conn.LastError = lastError
	return nil
}

// seed installs a connection directly, bypassing upsert bookkeeping.
func (m *mockConnRepo) seed(conn *model.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn.ID == "" {
		conn.ID = fmt.Sprintf("conn-%d", len(m.conns)+1)
	}
	if conn.RemoteProjection == nil {
		conn.RemoteProjection = model.RemoteProjection{}
	}
	m.conns[connKey(conn.UserID, conn.Platform)] = cloneConn(conn)
}

func (m *mockConnRepo) get(userID, platformKey string) *model.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[connKey(userID, platformKey)]
	if !ok {
		return nil
	}
	return cloneConn(conn)
}

func (m *mockConnRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// --- goal repository mock ---

type mockGoalRepo struct {
	mu    sync.Mutex
	goals map[string]*model.Goal
	seq   int
}

func newMockGoalRepo() *mockGoalRepo {
	return &mockGoalRepo{goals: make(map[string]*model.Goal)}
}

func cloneGoal(g *model.Goal) *model.Goal {
	out := *g
	return &out
}

func (m *mockGoalRepo) Create(goal *model.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if goal.ID == "" {
		goal.ID = fmt.Sprintf("goal-%d", m.seq)
	}
	m.goals[goal.ID] = cloneGoal(goal)
	return nil
}

func (m *mockGoalRepo) ByID(userID, goalID string) (*model.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[goalID]
	if !ok || goal.UserID != userID {
		return nil, repository.ErrGoalNotFound
	}
	return cloneGoal(goal), nil
}

func (m *mockGoalRepo) Goals(userID, sortBy string) ([]*model.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Goal
	for _, goal := range m.goals {
		if goal.UserID == userID {
			out = append(out, cloneGoal(goal))
		}
	}
	return out, nil
}

func (m *mockGoalRepo) DirtyByUser(userID string) ([]*model.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Goal
	for _, goal := range m.goals {
		if goal.UserID == userID && goal.NeedsSync {
			out = append(out, cloneGoal(goal))
		}
	}
	return out, nil
}

func (m *mockGoalRepo) Update(goal *model.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[goal.ID]; !ok {
		return repository.ErrGoalNotFound
	}
	m.goals[goal.ID] = cloneGoal(goal)
	return nil
}

func (m *mockGoalRepo) MarkSynced(goalID, remoteHandle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[goalID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	handle := remoteHandle
	goal.RemoteHandle = &handle
	goal.NeedsSync = false
	return nil
}

func (m *mockGoalRepo) ClearRemoteHandle(goalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[goalID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	goal.RemoteHandle = nil
	return nil
}

func (m *mockGoalRepo) Delete(userID, goalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[goalID]
	if !ok || goal.UserID != userID {
		return repository.ErrGoalNotFound
	}
	delete(m.goals, goalID)
	return nil
}

func (m *mockGoalRepo) get(goalID string) *model.Goal {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[goalID]
	if !ok {
		return nil
	}
	return cloneGoal(goal)
}

// --- streak repository mock ---

type mockStreakRepo struct {
	mu      sync.Mutex
	streaks map[string]*model.Streak
}

func newMockStreakRepo() *mockStreakRepo {
	return &mockStreakRepo{streaks: make(map[string]*model.Streak)}
}

func (m *mockStreakRepo) ByUserID(userID string) (*model.Streak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	streak, ok := m.streaks[userID]
	if !ok {
		return nil, repository.ErrStreakNotFound
	}
	out := *streak
	return &out, nil
}

func (m *mockStreakRepo) Upsert(streak *model.Streak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *streak
	m.streaks[streak.UserID] = &out
	return nil
}

// --- user repository mock ---

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("unique constraint violated: %s", user.Email)
		}
	}
	out := *user
	m.users[user.ID] = &out
	return nil
}

func (m *mockUserRepo) ByID(id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (m *mockUserRepo) ByEmail(email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// --- platform adapter fakes ---

type fakeAdapter struct {
	key string
}

func (f *fakeAdapter) Key() string         { return f.key }
func (f *fakeAdapter) DisplayName() string { return f.key }

type fakeFetcher struct {
	fakeAdapter
	mu       sync.Mutex
	activity *platform.Activity
	err      error
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, conn *model.Connection, accessToken string) (*platform.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.activity
	out.Platform = f.key
	return &out, nil
}

type fakeRefresher struct {
	fakeFetcher
	cred       *platform.Credential
	refreshErr error
	refreshes  int
}

func (f *fakeRefresher) Refresh(ctx context.Context, conn *model.Connection) (*platform.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	out := *f.cred
	return &out, nil
}

func strptr(s string) *string { return &s }

func timeptr(t time.Time) *time.Time { return &t }
