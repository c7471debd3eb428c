// Package sync projects local mutable state (goals, weekly summaries) onto
// the user's remote workspace. The engine decides create vs. update per
// entity, provisions missing parent containers exactly once per user, and
// tolerates partial failure across a batch.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/questlog/questlog/internal/model"
	"github.com/questlog/questlog/internal/remote"
	"github.com/questlog/questlog/internal/repository"
	"github.com/questlog/questlog/internal/service"
	"github.com/sethvargo/go-retry"
)

var (
	ErrNotConnected      = errors.New("projection target not connected")
	ErrRemoteWriteFailed = errors.New("remote write failed")
)

// ProjectionPlatform is the platform key of the remote projection target.
const ProjectionPlatform = "notion"

// Container keys memoized in Connection.RemoteProjection.
const (
	keyHomePage  = "home_page"
	keyGoalsDB   = "goals_db"
	keyReportsDB = "reports_db"

	// keyLastReportPeriod marks the most recent weekly period already
	// projected, keeping the append-only reports idempotent per period.
	keyLastReportPeriod = "reports:last_period"
)

// StoreFactory builds a remote store bound to one user's access token.
type StoreFactory func(accessToken string) remote.Store

// EntityResult is one entry of the batch audit trail: either a remote handle
// or the error that kept this entity from syncing.
type EntityResult struct {
	EntityID     string `json:"entity_id"`
	RemoteHandle string `json:"remote_handle,omitempty"`
	Err          error  `json:"-"`
	ErrMessage   string `json:"error,omitempty"`
}

type Reconciler struct {
	connRepo        repository.ConnectionRepository
	goalRepo        repository.GoalRepository
	connections     *service.ConnectionService
	stores          StoreFactory
	writeTimeout    time.Duration
	lastErrorMaxLen int
}

func NewReconciler(
	connRepo repository.ConnectionRepository,
	goalRepo repository.GoalRepository,
	connections *service.ConnectionService,
	stores StoreFactory,
	writeTimeout time.Duration,
	lastErrorMaxLen int,
) *Reconciler {
	return &Reconciler{
		connRepo:        connRepo,
		goalRepo:        goalRepo,
		connections:     connections,
		stores:          stores,
		writeTimeout:    writeTimeout,
		lastErrorMaxLen: lastErrorMaxLen,
	}
}

var goalsSchema = remote.Schema{
	Title: "Goals",
	Kind:  remote.KindDatabase,
	Fields: []remote.FieldSpec{
		{Name: "Name", Kind: remote.FieldTitle},
		{Name: "Status", Kind: remote.FieldSelect, Options: []string{
			model.GoalStatusActive, model.GoalStatusCompleted, model.GoalStatusPaused,
		}},
		{Name: "Cadence", Kind: remote.FieldSelect, Options: []string{
			model.GoalTypeDaily, model.GoalTypeWeekly, model.GoalTypeMonthly,
		}},
		{Name: "Progress", Kind: remote.FieldNumber},
		{Name: "Target", Kind: remote.FieldNumber},
		{Name: "Notes", Kind: remote.FieldRichText},
	},
}

var reportsSchema = remote.Schema{
	Title: "Weekly Reports",
	Kind:  remote.KindDatabase,
	Fields: []remote.FieldSpec{
		{Name: "Period", Kind: remote.FieldTitle},
		{Name: "Problems Solved", Kind: remote.FieldNumber},
		{Name: "Commits", Kind: remote.FieldNumber},
		{Name: "Active Minutes", Kind: remote.FieldNumber},
		{Name: "Distance (km)", Kind: remote.FieldNumber},
		{Name: "Goals Completed", Kind: remote.FieldNumber},
		{Name: "Insight", Kind: remote.FieldRichText},
	},
}

var homeSchema = remote.Schema{
	Title: "Questlog",
	Kind:  remote.KindPage,
}

// SyncPendingForUser is the interactive entry point ("sync now"): it loads
// the user's projection connection and reconciles every dirty goal.
func (r *Reconciler) SyncPendingForUser(ctx context.Context, userID string) ([]EntityResult, error) {
	conn, err := r.connRepo.ByUserAndPlatform(userID, ProjectionPlatform)
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	if !conn.Connected {
		return nil, ErrNotConnected
	}
	return r.SyncConnection(ctx, conn)
}

// SyncConnection reconciles all dirty goals for an already-loaded projection
// connection. One entity's failure never aborts the batch; the last error is
// recorded on the connection, truncated to a bounded length.
func (r *Reconciler) SyncConnection(ctx context.Context, conn *model.Connection) ([]EntityResult, error) {
	accessToken, err := r.connections.EnsureFreshToken(ctx, conn)
	if err != nil {
		return nil, err
	}
	store := r.stores(accessToken)

	goals, err := r.goalRepo.DirtyByUser(conn.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dirty goals: %w", err)
	}

	results := make([]EntityResult, 0, len(goals))
	var lastError *string
	for _, goal := range goals {
		result := r.reconcileGoal(ctx, conn, store, goal)
		if result.Err != nil {
			result.ErrMessage = result.Err.Error()
			msg := truncate(result.ErrMessage, r.lastErrorMaxLen)
			lastError = &msg
			slog.Warn("goal reconcile failed",
				"error", result.Err, "user_id", conn.UserID, "goal_id", goal.ID)
		}
		results = append(results, result)
	}

	now := time.Now()
	err = r.connRepo.SetSyncResult(conn.UserID, conn.Platform, &now, lastError)
	if err != nil {
		slog.Warn("failed to record sync result", "error", err, "user_id", conn.UserID)
	}

	return results, nil
}

// reconcileGoal runs the create-vs-update decision for one goal. A stale
// remote handle (mirror deleted out-of-band) is cleared and the goal falls
// through to create, instead of surfacing a hard error forever.
func (r *Reconciler) reconcileGoal(ctx context.Context, conn *model.Connection, store remote.Store, goal *model.Goal) EntityResult {
	result := EntityResult{EntityID: goal.ID}

	container, err := r.ensureContainer(ctx, conn, store, keyGoalsDB, goalsSchema)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
		return result
	}

	props := goalProperties(goal)

	if goal.HasRemoteHandle() {
		handle := remote.Ref(*goal.RemoteHandle)
		err = r.withRetry(ctx, func(ctx context.Context) error {
			return store.UpdateRecord(ctx, handle, props)
		})
		switch {
		case err == nil:
			err = r.goalRepo.MarkSynced(goal.ID, string(handle))
			if err != nil {
				result.Err = fmt.Errorf("failed to clear dirty flag: %w", err)
				return result
			}
			result.RemoteHandle = string(handle)
			return result
		case errors.Is(err, remote.ErrNotFound):
			slog.Info("stale remote handle, recreating",
				"user_id", conn.UserID, "goal_id", goal.ID, "handle", handle)
			clearErr := r.goalRepo.ClearRemoteHandle(goal.ID)
			if clearErr != nil {
				result.Err = fmt.Errorf("failed to clear stale handle: %w", clearErr)
				return result
			}
			goal.RemoteHandle = nil
		default:
			result.Err = fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
			return result
		}
	}

	var ref remote.Ref
	err = r.withRetry(ctx, func(ctx context.Context) error {
		var createErr error
		ref, createErr = store.CreateRecord(ctx, container, props)
		return createErr
	})
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
		return result
	}

	err = r.goalRepo.MarkSynced(goal.ID, string(ref))
	if err != nil {
		result.Err = fmt.Errorf("failed to record remote handle: %w", err)
		return result
	}

	result.RemoteHandle = string(ref)
	return result
}

// WeeklyProjected reports whether the given period was already pushed.
func (r *Reconciler) WeeklyProjected(conn *model.Connection, periodLabel string) bool {
	return conn.RemoteProjection[keyLastReportPeriod] == periodLabel
}

// ProjectWeeklySummary appends one immutable weekly row, provisioning the
// reports container on first use. Each period is projected at most once;
// rows are keyed by period label and never updated.
func (r *Reconciler) ProjectWeeklySummary(ctx context.Context, conn *model.Connection, summary *model.WeeklySummary) error {
	if r.WeeklyProjected(conn, summary.PeriodLabel) {
		return nil
	}

	accessToken, err := r.connections.EnsureFreshToken(ctx, conn)
	if err != nil {
		return err
	}
	store := r.stores(accessToken)

	container, err := r.ensureContainer(ctx, conn, store, keyReportsDB, reportsSchema)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
	}

	props := remote.NewProperties().
		Title("Period", summary.PeriodLabel).
		Number("Problems Solved", float64(summary.ProblemsSolved)).
		Number("Commits", float64(summary.Commits)).
		Number("Active Minutes", float64(summary.ActiveMinutes)).
		Number("Distance (km)", summary.DistanceMeters/1000).
		Number("Goals Completed", float64(summary.GoalsCompleted)).
		RichText("Insight", summary.Insight)

	var ref remote.Ref
	err = r.withRetry(ctx, func(ctx context.Context) error {
		var createErr error
		ref, createErr = store.CreateRecord(ctx, container, props)
		return createErr
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteWriteFailed, err)
	}

	if summary.Insight != "" {
		err = r.withRetry(ctx, func(ctx context.Context) error {
			return store.AppendBlocks(ctx, ref, []remote.Block{
				{Heading: "Weekly Insight", Paragraph: summary.Insight},
			})
		})
		if err != nil {
			// The row itself landed; a missing insight block is not fatal.
			slog.Warn("failed to append insight block", "error", err, "user_id", conn.UserID)
		}
	}

	updated, err := r.connRepo.SetProjectionKey(conn.UserID, conn.Platform, keyLastReportPeriod, summary.PeriodLabel)
	if err != nil {
		return fmt.Errorf("failed to memoize report period: %w", err)
	}
	conn.RemoteProjection = updated.RemoteProjection

	slog.Info("weekly summary projected", "user_id", conn.UserID, "period", summary.PeriodLabel)
	return nil
}

// ensureContainer resolves a remote container by its memoized key,
// provisioning it (and its parent, recursively) on first use. The stored
// connection is re-read immediately before creating to narrow the window for
// duplicate-container races; SaveProjection keeps the first writer's ID.
func (r *Reconciler) ensureContainer(ctx context.Context, conn *model.Connection, store remote.Store, key string, schema remote.Schema) (remote.Ref, error) {
	if id, ok := conn.RemoteProjection[key]; ok && id != "" {
		return remote.Ref(id), nil
	}

	fresh, err := r.connRepo.ByUserAndPlatform(conn.UserID, conn.Platform)
	if err != nil {
		return "", fmt.Errorf("failed to reload connection: %w", err)
	}
	conn.RemoteProjection = fresh.RemoteProjection
	if id, ok := conn.RemoteProjection[key]; ok && id != "" {
		return remote.Ref(id), nil
	}

	var parent remote.Ref
	if schema.Kind == remote.KindDatabase {
		// Databases nest inside the provisioned home page.
		parent, err = r.ensureContainer(ctx, conn, store, keyHomePage, homeSchema)
		if err != nil {
			return "", err
		}
	}

	var ref remote.Ref
	err = r.withRetry(ctx, func(ctx context.Context) error {
		var createErr error
		ref, createErr = store.CreateContainer(ctx, parent, schema)
		return createErr
	})
	if err != nil {
		return "", err
	}

	updated, err := r.connRepo.SaveProjection(conn.UserID, conn.Platform, model.RemoteProjection{
		key: string(ref),
	})
	if err != nil {
		return "", fmt.Errorf("failed to memoize container: %w", err)
	}
	conn.RemoteProjection = updated.RemoteProjection

	// First writer wins: a concurrent provisioner may have stored its ID
	// before ours was merged.
	return remote.Ref(conn.RemoteProjection[key]), nil
}

// withRetry bounds each remote write with the configured timeout and retries
// transient failures with fibonacci backoff. Handle-gone responses are never
// retried: they feed the stale-handle recovery path instead.
func (r *Reconciler) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, r.writeTimeout)
		defer cancel()

		err := op(opCtx)
		if err == nil {
			return nil
		}
		if errors.Is(err, remote.ErrNotFound) || ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})
}

// goalProperties applies the fixed field mapping. Optional fields with no
// value are simply not emitted.
func goalProperties(goal *model.Goal) *remote.Properties {
	return remote.NewProperties().
		Title("Name", goal.Title).
		Select("Status", goal.Status).
		Select("Cadence", goal.Type).
		Number("Progress", float64(goal.Progress)).
		Number("Target", float64(goal.Target)).
		RichText("Notes", goal.Description)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
