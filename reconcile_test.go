package merchpilot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedUpdate struct {
	id     int64
	update PlatformUpdate
}

// fakeStore is an in-memory PlatformStore that records every update it
// receives, in order.
type fakeStore struct {
	mu        sync.Mutex
	seq       int64
	platforms map[int64]*PlatformConnection
	updates   []recordedUpdate
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{platforms: make(map[int64]*PlatformConnection)}
}

func (f *fakeStore) add(conn PlatformConnection) *PlatformConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	conn.ID = f.seq
	stored := conn
	f.platforms[conn.ID] = &stored
	out := stored
	return &out
}

func (f *fakeStore) GetPlatform(ctx context.Context, merchantID int64, name string) (*PlatformConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.platforms {
		if p.MerchantID == merchantID && p.Name == name {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrPlatformNotFound
}

func (f *fakeStore) GetPlatformsByMerchant(ctx context.Context, merchantID int64) ([]PlatformConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PlatformConnection
	for _, p := range f.platforms {
		if p.MerchantID == merchantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePlatform(ctx context.Context, conn *PlatformConnection) (*PlatformConnection, error) {
	return f.add(*conn), nil
}

func (f *fakeStore) UpdatePlatform(ctx context.Context, id int64, update PlatformUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, recordedUpdate{id: id, update: update})

	p, ok := f.platforms[id]
	if !ok {
		return nil
	}
	if update.IsConnected != nil {
		p.IsConnected = *update.IsConnected
	}
	if update.Status != nil {
		p.Status = *update.Status
	}
	if update.ClearCredentials {
		p.Username = ""
		p.EncryptedPassword = ""
	} else {
		if update.Username != nil {
			p.Username = *update.Username
		}
		if update.Password != nil {
			p.EncryptedPassword = obfuscatePassword(*update.Password)
		}
	}
	if update.ClearLastSync {
		p.LastSync = nil
	} else if update.LastSync != nil {
		t := *update.LastSync
		p.LastSync = &t
	}
	return nil
}

func (f *fakeStore) updatesFor(id int64) []PlatformUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PlatformUpdate
	for _, u := range f.updates {
		if u.id == id {
			out = append(out, u.update)
		}
	}
	return out
}

func (f *fakeStore) get(id int64) PlatformConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.platforms[id]
}

func TestReconcileConnectOutcomeIdempotent(t *testing.T) {
	cfg := testConfig()
	reg := NewRegistry()
	store := newFakeStore()
	conn := store.add(PlatformConnection{MerchantID: 1, Name: "swiggy", Status: ConnConnecting})
	r := NewReconciler(cfg, reg, store)

	task := reg.Create("login")
	reg.SetRunning(task.ID)
	reg.Complete(task.ID, &WorkerResult{Status: "success", LoginStatus: "success"})

	// Two delayed checks firing after the task resolved must agree.
	r.ApplyConnectOutcome(conn.ID, "swiggy", task.ID)
	r.ApplyConnectOutcome(conn.ID, "swiggy", task.ID)

	updates := store.updatesFor(conn.ID)
	require.Len(t, updates, 2)
	for _, u := range updates {
		require.NotNil(t, u.IsConnected)
		assert.True(t, *u.IsConnected)
		require.NotNil(t, u.Status)
		assert.Equal(t, ConnConnected, *u.Status)
		require.NotNil(t, u.LastSync)
	}
	// The same terminal outcome carries the same sync instant, so a later
	// attempt cannot move lastSync.
	assert.Equal(t, *updates[0].LastSync, *updates[1].LastSync)

	final := store.get(conn.ID)
	assert.True(t, final.IsConnected)
	assert.Equal(t, ConnConnected, final.Status)
	require.NotNil(t, final.LastSync)
}

func TestReconcileConnectOutcomeFailedTask(t *testing.T) {
	cfg := testConfig()
	reg := NewRegistry()
	store := newFakeStore()
	conn := store.add(PlatformConnection{MerchantID: 1, Name: "zomato", Status: ConnConnecting})
	r := NewReconciler(cfg, reg, store)

	task := reg.Create("login")
	reg.SetRunning(task.ID)
	reg.Fail(task.ID, "automation worker exited with code 1")

	r.ApplyConnectOutcome(conn.ID, "zomato", task.ID)

	final := store.get(conn.ID)
	assert.False(t, final.IsConnected)
	assert.Equal(t, ConnFailed, final.Status)
	assert.Nil(t, final.LastSync)
}

func TestReconcileNonTerminalIsNoop(t *testing.T) {
	cfg := testConfig()
	reg := NewRegistry()
	store := newFakeStore()
	conn := store.add(PlatformConnection{MerchantID: 1, Name: "swiggy", Status: ConnConnecting})
	r := NewReconciler(cfg, reg, store)

	task := reg.Create("login")
	reg.SetRunning(task.ID)

	r.ApplyConnectOutcome(conn.ID, "swiggy", task.ID)

	assert.Empty(t, store.updatesFor(conn.ID))
	assert.Equal(t, ConnConnecting, store.get(conn.ID).Status)
}

func TestReconcileUnknownTaskIsNoop(t *testing.T) {
	cfg := testConfig()
	reg := NewRegistry()
	store := newFakeStore()
	conn := store.add(PlatformConnection{MerchantID: 1, Name: "swiggy"})
	r := NewReconciler(cfg, reg, store)

	r.ApplyConnectOutcome(conn.ID, "swiggy", "task_missing")

	assert.Empty(t, store.updatesFor(conn.ID))
}

func TestReconcileStoreErrorDoesNotPanic(t *testing.T) {
	cfg := testConfig()
	var logged bool
	cfg.ErrorLog = func(LogEvent) { logged = true }

	reg := NewRegistry()
	store := newFakeStore()
	conn := store.add(PlatformConnection{MerchantID: 1, Name: "swiggy"})
	store.updateErr = errors.New("db gone")
	r := NewReconciler(cfg, reg, store)

	task := reg.Create("login")
	reg.SetRunning(task.ID)
	reg.Complete(task.ID, &WorkerResult{Status: "success"})

	r.ApplyConnectOutcome(conn.ID, "swiggy", task.ID)
	assert.True(t, logged)

	// The task itself is untouched by the persistence failure.
	got, ok := reg.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, TaskCompleted, got.Status)
}

func TestScheduleConnectChecksEventuallyReconciles(t *testing.T) {
	cfg := testConfig()
	cfg.ReconcileDelays = []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond}

	reg := NewRegistry()
	store := newFakeStore()
	conn := store.add(PlatformConnection{MerchantID: 1, Name: "swiggy", Status: ConnConnecting})
	r := NewReconciler(cfg, reg, store)

	task := reg.Create("login")
	reg.SetRunning(task.ID)
	reg.Complete(task.ID, &WorkerResult{Status: "success"})

	r.ScheduleConnectChecks(conn.ID, "swiggy", task.ID)

	require.Eventually(t, func() bool {
		return len(store.updatesFor(conn.ID)) == 3
	}, 2*time.Second, 10*time.Millisecond)

	final := store.get(conn.ID)
	assert.True(t, final.IsConnected)
	assert.Equal(t, ConnConnected, final.Status)
}

func TestScheduleStatusCheckDemotesToDisconnected(t *testing.T) {
	cfg := testConfig()
	cfg.StatusCheckDelay = 5 * time.Millisecond

	reg := NewRegistry()
	store := newFakeStore()
	conn := store.add(PlatformConnection{MerchantID: 1, Name: "zomato", IsConnected: true, Status: ConnConnected})
	r := NewReconciler(cfg, reg, store)

	task := reg.Create("status probe")
	reg.SetRunning(task.ID)
	reg.Complete(task.ID, &WorkerResult{Status: "completed", LoginStatus: "logged_out", Result: "login form visible"})

	r.ScheduleStatusCheck(conn.ID, "zomato", task.ID)

	require.Eventually(t, func() bool {
		return len(store.updatesFor(conn.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	final := store.get(conn.ID)
	assert.False(t, final.IsConnected)
	assert.Equal(t, ConnDisconnected, final.Status)
	assert.Nil(t, final.LastSync)
}

func TestResultIndicatesLogin(t *testing.T) {
	tests := []struct {
		name string
		res  *WorkerResult
		want bool
	}{
		{name: "nil result", res: nil, want: false},
		{name: "explicit success status", res: &WorkerResult{Status: "success"}, want: true},
		{name: "login_status success", res: &WorkerResult{Status: "done", LoginStatus: "success"}, want: true},
		{name: "login_status completed", res: &WorkerResult{Status: "done", LoginStatus: "completed"}, want: true},
		{name: "success buried in free text", res: &WorkerResult{Status: "done", Result: "Login was Successful, dashboard loaded"}, want: true},
		{name: "data status success", res: &WorkerResult{Status: "done", Data: map[string]any{"status": "success"}}, want: true},
		{name: "completed in message", res: &WorkerResult{Status: "done", Message: "Browser automation completed for swiggy"}, want: true},
		{name: "nothing indicates login", res: &WorkerResult{Status: "done", Result: "login form visible"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resultIndicatesLogin(tt.res))
		})
	}
}
