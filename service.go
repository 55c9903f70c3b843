package merchpilot

import (
	"context"
	"fmt"
	"time"
)

// PlatformCredentials identifies a merchant account on one platform.
type PlatformCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// OpResult is the uniform outcome shape for platform operations. A failed
// operation carries a user-facing message; the task ID is present whenever
// an automation job was dispatched.
type OpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TaskID  string `json:"taskId,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// PlatformService orchestrates platform connections: it dispatches
// automation tasks, schedules reconciliation of their outcomes, and answers
// polling queries. It is the single entry point the HTTP layer and the chat
// assistant talk to.
type PlatformService struct {
	cfg        *Config
	store      PlatformStore
	registry   *Registry
	dispatcher *Dispatcher
	reconciler *Reconciler
	poller     *Poller
}

// New assembles the orchestration core. When store is nil a MySQL store is
// built from cfg.DB; when worker is nil a subprocess worker is built from
// cfg.WorkerCommand.
func New(cfg Config, store PlatformStore, worker Worker) *PlatformService {
	cfg.applyDefaults()

	if store == nil {
		store = NewSQLPlatformStore(cfg.DB, cfg.DbName)
	}
	if worker == nil {
		worker = &ScriptWorker{Command: cfg.WorkerCommand, Log: cfg.logInfo}
	}

	registry := NewRegistry()
	return &PlatformService{
		cfg:        &cfg,
		store:      store,
		registry:   registry,
		dispatcher: NewDispatcher(&cfg, registry, worker),
		reconciler: NewReconciler(&cfg, registry, store),
		poller:     NewPoller(registry, cfg.PollInterval),
	}
}

// Dispatcher exposes the task dispatcher for callers that build their own
// task descriptions (e.g. the chat assistant's data pulls).
func (s *PlatformService) Dispatcher() *Dispatcher { return s.dispatcher }

// Shutdown waits up to timeout for in-flight automation jobs.
func (s *PlatformService) Shutdown(timeout time.Duration) { s.dispatcher.Shutdown(timeout) }

// AuthenticatePlatform upserts the connection as "connecting", dispatches
// an automated login, and schedules delayed reconciliation of the outcome.
// It returns as soon as the task is dispatched.
func (s *PlatformService) AuthenticatePlatform(ctx context.Context, merchantID int64, platformName string, creds PlatformCredentials) OpResult {
	if creds.Username == "" || creds.Password == "" {
		return OpResult{Success: false, Message: "Username and password are required"}
	}

	conn, err := s.store.GetPlatform(ctx, merchantID, platformName)
	switch {
	case err == nil:
		status := ConnConnecting
		update := PlatformUpdate{
			Status:   &status,
			Username: &creds.Username,
			Password: &creds.Password,
		}
		if updateErr := s.store.UpdatePlatform(ctx, conn.ID, update); updateErr != nil {
			s.cfg.logError(LogEvent{Message: "Failed to update platform before login", Platform: platformName, Err: updateErr})
			return OpResult{Success: false, Message: fmt.Sprintf("Failed to connect to %s. Please check your credentials and try again.", platformName)}
		}
	case err == ErrPlatformNotFound:
		conn, err = s.store.CreatePlatform(ctx, &PlatformConnection{
			MerchantID:        merchantID,
			Name:              platformName,
			IsConnected:       false,
			Status:            ConnConnecting,
			Username:          creds.Username,
			EncryptedPassword: obfuscatePassword(creds.Password),
		})
		if err != nil {
			s.cfg.logError(LogEvent{Message: "Failed to create platform record", Platform: platformName, Err: err})
			return OpResult{Success: false, Message: fmt.Sprintf("Failed to connect to %s. Please check your credentials and try again.", platformName)}
		}
	default:
		s.cfg.logError(LogEvent{Message: "Failed to load platform record", Platform: platformName, Err: err})
		return OpResult{Success: false, Message: fmt.Sprintf("Failed to connect to %s. Please check your credentials and try again.", platformName)}
	}

	taskID, err := s.dispatcher.LoginToPlatform(LoginCredentials{
		Platform: platformName,
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		s.markFailed(ctx, conn.ID, platformName)
		return OpResult{Success: false, Message: fmt.Sprintf("Automated login failed for %s: %v", platformName, err)}
	}

	s.reconciler.ScheduleConnectChecks(conn.ID, platformName, taskID)

	return OpResult{
		Success: true,
		Message: fmt.Sprintf("Login process started for %s. This may take a few moments.", platformName),
		TaskID:  taskID,
	}
}

// DisconnectPlatform clears credentials and marks the connection
// disconnected. No automation is involved.
func (s *PlatformService) DisconnectPlatform(ctx context.Context, merchantID int64, platformName string) OpResult {
	conn, err := s.store.GetPlatform(ctx, merchantID, platformName)
	if err != nil {
		return s.notFoundOr(err, platformName, "Platform connection not found")
	}

	connected := false
	status := ConnDisconnected
	update := PlatformUpdate{
		IsConnected:      &connected,
		Status:           &status,
		ClearCredentials: true,
		ClearLastSync:    true,
	}
	if err := s.store.UpdatePlatform(ctx, conn.ID, update); err != nil {
		s.cfg.logError(LogEvent{Message: "Failed to disconnect platform", Platform: platformName, Err: err})
		return OpResult{Success: false, Message: fmt.Sprintf("Failed to disconnect from %s", platformName)}
	}

	return OpResult{Success: true, Message: fmt.Sprintf("Successfully disconnected from %s", platformName)}
}

// RefreshConnection re-authenticates with the stored credentials. Without
// stored credentials the connection is marked connection_error and the
// merchant must reconnect manually.
func (s *PlatformService) RefreshConnection(ctx context.Context, merchantID int64, platformName string) OpResult {
	conn, err := s.store.GetPlatform(ctx, merchantID, platformName)
	if err != nil {
		return s.notFoundOr(err, platformName, "Platform not found")
	}

	status := ConnRefreshing
	if err := s.store.UpdatePlatform(ctx, conn.ID, PlatformUpdate{Status: &status}); err != nil {
		s.cfg.logError(LogEvent{Message: "Failed to mark platform refreshing", Platform: platformName, Err: err})
		return OpResult{Success: false, Message: fmt.Sprintf("Failed to refresh %s connection", platformName)}
	}

	if conn.Username == "" || conn.EncryptedPassword == "" {
		errStatus := ConnError
		if err := s.store.UpdatePlatform(ctx, conn.ID, PlatformUpdate{Status: &errStatus}); err != nil {
			s.cfg.logError(LogEvent{Message: "Failed to mark platform connection_error", Platform: platformName, Err: err})
		}
		return OpResult{Success: false, Message: fmt.Sprintf("No stored credentials found for %s. Please reconnect manually.", platformName)}
	}

	password, err := revealPassword(conn.EncryptedPassword)
	if err != nil {
		errStatus := ConnError
		if updateErr := s.store.UpdatePlatform(ctx, conn.ID, PlatformUpdate{Status: &errStatus}); updateErr != nil {
			s.cfg.logError(LogEvent{Message: "Failed to mark platform connection_error", Platform: platformName, Err: updateErr})
		}
		return OpResult{Success: false, Message: fmt.Sprintf("No stored credentials found for %s. Please reconnect manually.", platformName)}
	}

	return s.AuthenticatePlatform(ctx, merchantID, platformName, PlatformCredentials{
		Username: conn.Username,
		Password: password,
	})
}

// CheckPlatformStatus dispatches a status probe and schedules one delayed
// reconciliation of its outcome.
func (s *PlatformService) CheckPlatformStatus(ctx context.Context, merchantID int64, platformName string) OpResult {
	conn, err := s.store.GetPlatform(ctx, merchantID, platformName)
	if err != nil {
		return s.notFoundOr(err, platformName, "Platform not found")
	}

	taskID, err := s.dispatcher.CheckLoginStatus(platformName, "")
	if err != nil {
		return OpResult{Success: false, Message: fmt.Sprintf("Failed to check %s status: %v", platformName, err)}
	}

	s.reconciler.ScheduleStatusCheck(conn.ID, platformName, taskID)

	return OpResult{
		Success: true,
		Message: fmt.Sprintf("Checking %s status...", platformName),
		TaskID:  taskID,
	}
}

// GetPlatformData dispatches a data extraction task for one platform.
func (s *PlatformService) GetPlatformData(ctx context.Context, merchantID int64, platformName, dataType string, filters map[string]any) OpResult {
	if _, err := s.store.GetPlatform(ctx, merchantID, platformName); err != nil {
		return s.notFoundOr(err, platformName, "Platform not found")
	}

	taskID, err := s.dispatcher.ExtractPlatformData(platformName, dataType, filters)
	if err != nil {
		return OpResult{Success: false, Message: fmt.Sprintf("Failed to extract data from %s: %v", platformName, err)}
	}

	return OpResult{
		Success: true,
		Message: fmt.Sprintf("Extracting %s data from %s...", dataType, platformName),
		TaskID:  taskID,
	}
}

// ExecuteAction dispatches a store action on a connected platform and
// returns immediately with the task ID.
func (s *PlatformService) ExecuteAction(ctx context.Context, merchantID int64, platformName, actionType string, data map[string]any) OpResult {
	conn, err := s.store.GetPlatform(ctx, merchantID, platformName)
	if err != nil || !conn.IsConnected {
		return OpResult{Success: false, Message: fmt.Sprintf("Not connected to %s", platformName)}
	}

	taskID, err := s.dispatcher.ExecutePlatformAction(platformName, actionType, data)
	if err != nil {
		return OpResult{Success: false, Message: fmt.Sprintf("Failed to execute action on %s: %v", platformName, err)}
	}

	return OpResult{
		Success: true,
		Message: fmt.Sprintf("Action %q started on %s", actionType, platformName),
		TaskID:  taskID,
		Data:    map[string]any{"actionType": actionType, "status": "initiated"},
	}
}

// ExecuteActionAndWait dispatches a store action and waits up to
// cfg.ActionWait for it to resolve. A task still running after the wait is
// reported as success=false with the task ID so the client can keep
// polling.
func (s *PlatformService) ExecuteActionAndWait(ctx context.Context, merchantID int64, platformName, actionType string, data map[string]any) OpResult {
	dispatched := s.ExecuteAction(ctx, merchantID, platformName, actionType, data)
	if !dispatched.Success {
		return dispatched
	}

	completed := s.poller.AwaitCompletion(ctx, dispatched.TaskID, s.cfg.ActionWait)
	task, ok := s.registry.Get(dispatched.TaskID)
	if !ok || !task.Status.Terminal() {
		return OpResult{
			Success: false,
			Message: fmt.Sprintf("Action initiated but taking longer than expected. Task ID: %s", dispatched.TaskID),
			TaskID:  dispatched.TaskID,
			Data:    map[string]any{"polling": true},
		}
	}

	if completed {
		return OpResult{
			Success: true,
			Message: fmt.Sprintf("Action executed successfully on %s", platformName),
			TaskID:  dispatched.TaskID,
			Data:    task.Result,
		}
	}
	return OpResult{
		Success: false,
		Message: fmt.Sprintf("Failed to execute action on %s: %s", platformName, task.Error),
		TaskID:  dispatched.TaskID,
	}
}

// MarkPlatformConnected manually flips a connection to connected. Used by
// operators when automation cannot observe an already-valid session.
func (s *PlatformService) MarkPlatformConnected(ctx context.Context, merchantID int64, platformName string) OpResult {
	conn, err := s.store.GetPlatform(ctx, merchantID, platformName)
	if err != nil {
		return s.notFoundOr(err, platformName, "Platform not found")
	}

	connected := true
	status := ConnConnected
	now := time.Now()
	update := PlatformUpdate{IsConnected: &connected, Status: &status, LastSync: &now}
	if err := s.store.UpdatePlatform(ctx, conn.ID, update); err != nil {
		s.cfg.logError(LogEvent{Message: "Failed to mark platform connected", Platform: platformName, Err: err})
		return OpResult{Success: false, Message: fmt.Sprintf("Failed to mark %s as connected", platformName)}
	}

	return OpResult{Success: true, Message: fmt.Sprintf("Successfully marked %s as connected", platformName)}
}

// ListPlatforms returns every connection the merchant has.
func (s *PlatformService) ListPlatforms(ctx context.Context, merchantID int64) ([]PlatformConnection, error) {
	return s.store.GetPlatformsByMerchant(ctx, merchantID)
}

// TaskStatus returns the polling snapshot of one task.
func (s *PlatformService) TaskStatus(taskID string) (TaskSnapshot, bool) {
	return s.poller.Snapshot(taskID)
}

// TaskResult returns the full task record, including the result payload.
func (s *PlatformService) TaskResult(taskID string) (Task, bool) {
	return s.registry.Get(taskID)
}

// ListTasks returns summaries of every task in insertion order.
func (s *PlatformService) ListTasks() []TaskSummary {
	return s.registry.Summaries()
}

// Await blocks up to maxWait for the task to resolve; see
// Poller.AwaitCompletion.
func (s *PlatformService) Await(ctx context.Context, taskID string, maxWait time.Duration) bool {
	return s.poller.AwaitCompletion(ctx, taskID, maxWait)
}

func (s *PlatformService) markFailed(ctx context.Context, platformID int64, platformName string) {
	connected := false
	status := ConnFailed
	update := PlatformUpdate{IsConnected: &connected, Status: &status, ClearLastSync: true}
	if err := s.store.UpdatePlatform(ctx, platformID, update); err != nil {
		s.cfg.logError(LogEvent{Message: "Failed to mark platform failed", Platform: platformName, Err: err})
	}
}

func (s *PlatformService) notFoundOr(err error, platformName, notFoundMsg string) OpResult {
	if err == ErrPlatformNotFound {
		return OpResult{Success: false, Message: notFoundMsg}
	}
	s.cfg.logError(LogEvent{Message: "Platform store error", Platform: platformName, Err: err})
	return OpResult{Success: false, Message: fmt.Sprintf("Failed to load %s connection", platformName)}
}
