package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/questlog/questlog/internal/model"
	"github.com/questlog/questlog/internal/platform"
	"github.com/questlog/questlog/internal/remote"
	"github.com/questlog/questlog/internal/repository"
)

// --- repository mocks ---

type mockConnRepo struct {
	mu    sync.Mutex
	conns map[string]*model.Connection
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
	if conn.ID == "" {
		conn.ID = fmt.Sprintf("conn-%d", len(m.conns)+1)
	}
	m.conns[connKey(conn.UserID, conn.Platform)] = cloneConn(conn)
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
	conn, ok := m.conns[connKey(userID, platformKey)]
	if !ok {
		return nil, repository.ErrConnectionNotFound
	}
	if conn.RemoteProjection == nil {
		conn.RemoteProjection = model.RemoteProjection{}
	}
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

func (m *mockConnRepo) seed(conn *model.Connection) {
	_ = m.Upsert(conn)
}

func (m *mockConnRepo) get(userID, platformKey string) *model.Connection {
	conn, err := m.ByUserAndPlatform(userID, platformKey)
	if err != nil {
		return nil
	}
	return conn
}

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
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
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

// --- remote store mock ---

type createdRecord struct {
	container remote.Ref
	props     *remote.Properties
	updates   int
}

type mockStore struct {
	mu  sync.Mutex
	seq int

	containers map[remote.Ref]remote.Schema
	records    map[remote.Ref]*createdRecord
	blocks     map[remote.Ref][]remote.Block

	// failCreateRecord makes CreateRecord fail when the record's title
	// property matches the key.
	failCreateRecord map[string]error
	// goneRecords makes UpdateRecord answer ErrNotFound for these refs.
	goneRecords map[remote.Ref]bool
	// failContainer makes CreateContainer fail for a schema title.
	failContainer map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{
		containers:       make(map[remote.Ref]remote.Schema),
		records:          make(map[remote.Ref]*createdRecord),
		blocks:           make(map[remote.Ref][]remote.Block),
		failCreateRecord: make(map[string]error),
		goneRecords:      make(map[remote.Ref]bool),
		failContainer:    make(map[string]error),
	}
}

func (s *mockStore) CreateContainer(ctx context.Context, parent remote.Ref, schema remote.Schema) (remote.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failContainer[schema.Title]; ok {
		return "", err
	}
	s.seq++
	ref := remote.Ref(fmt.Sprintf("container-%d", s.seq))
	s.containers[ref] = schema
	return ref, nil
}

func (s *mockStore) CreateRecord(ctx context.Context, container remote.Ref, props *remote.Properties) (remote.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failCreateRecord[titleOf(props)]; ok {
		return "", err
	}
	s.seq++
	ref := remote.Ref(fmt.Sprintf("record-%d", s.seq))
	s.records[ref] = &createdRecord{container: container, props: props}
	return ref, nil
}

func (s *mockStore) UpdateRecord(ctx context.Context, ref remote.Ref, props *remote.Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goneRecords[ref] {
		return remote.ErrNotFound
	}
	record, ok := s.records[ref]
	if !ok {
		return remote.ErrNotFound
	}
	record.props = props
	record.updates++
	return nil
}

func (s *mockStore) AppendBlocks(ctx context.Context, ref remote.Ref, blocks []remote.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[ref] = append(s.blocks[ref], blocks...)
	return nil
}

func (s *mockStore) containerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.containers)
}

func (s *mockStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *mockStore) record(ref remote.Ref) *createdRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[ref]
}

func titleOf(props *remote.Properties) string {
	for _, name := range props.Fields() {
		if v, ok := props.Get(name); ok && v.Kind == remote.FieldTitle {
			return v.Text
		}
	}
	return ""
}

// --- platform fakes ---

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

func strptr(s string) *string { return &s }
