package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/questlog/questlog/internal/model"
	"github.com/questlog/questlog/internal/platform"
	"github.com/questlog/questlog/internal/repository"
	"github.com/questlog/questlog/internal/scheduler"
	"github.com/questlog/questlog/internal/service"
)

// CycleRunner implements the per-platform sync cycle the scheduler invokes:
// list the platform's connected users, and for each, refresh, fetch and
// reconcile independently.
type CycleRunner struct {
	connRepo        repository.ConnectionRepository
	registry        *platform.Registry
	aggregates      *service.AggregateService
	goals           *service.GoalService
	insights        *service.InsightService
	reconciler      *Reconciler
	lastErrorMaxLen int
}

func NewCycleRunner(
	connRepo repository.ConnectionRepository,
	registry *platform.Registry,
	aggregates *service.AggregateService,
	goals *service.GoalService,
	insights *service.InsightService,
	reconciler *Reconciler,
	lastErrorMaxLen int,
) *CycleRunner {
	return &CycleRunner{
		connRepo:        connRepo,
		registry:        registry,
		aggregates:      aggregates,
		goals:           goals,
		insights:        insights,
		reconciler:      reconciler,
		lastErrorMaxLen: lastErrorMaxLen,
	}
}

// RunSyncCycle processes every connected user of the platform. One user's
// failure is recorded on that user's connection and never stops iteration
// over the rest.
func (r *CycleRunner) RunSyncCycle(ctx context.Context, platformKey string) scheduler.CycleResult {
	key := platform.Normalize(platformKey)
	result := scheduler.CycleResult{Platform: key, StartedAt: time.Now()}

	conns, err := r.connRepo.ConnectedByPlatform(key)
	if err != nil {
		slog.Error("failed to list connections for sync cycle", "error", err, "platform", key)
		result.Duration = time.Since(result.StartedAt)
		return result
	}
	result.Total = len(conns)

	for _, conn := range conns {
		if ctx.Err() != nil {
			break
		}

		err := r.syncOne(ctx, conn)
		if err != nil {
			result.Failed++
			slog.Warn("user sync failed", "error", err, "user_id", conn.UserID, "platform", key)
			// The projection path records its own outcome per batch.
			if conn.Platform != ProjectionPlatform {
				msg := truncate(err.Error(), r.lastErrorMaxLen)
				recordErr := r.connRepo.SetSyncResult(conn.UserID, conn.Platform, nil, &msg)
				if recordErr != nil {
					slog.Warn("failed to record sync error", "error", recordErr, "user_id", conn.UserID)
				}
			}
			continue
		}

		result.Succeeded++
		if conn.Platform != ProjectionPlatform {
			now := time.Now()
			recordErr := r.connRepo.SetSyncResult(conn.UserID, conn.Platform, &now, nil)
			if recordErr != nil {
				slog.Warn("failed to record sync success", "error", recordErr, "user_id", conn.UserID)
			}
		}
	}

	result.Duration = time.Since(result.StartedAt)
	return result
}

func (r *CycleRunner) syncOne(ctx context.Context, conn *model.Connection) error {
	if conn.Platform == ProjectionPlatform {
		return r.syncProjection(ctx, conn)
	}

	activity, err := r.aggregates.FetchActivity(ctx, conn)
	if err != nil {
		return err
	}
	if activity == nil {
		return nil
	}

	_, err = r.goals.ApplyAutoProgress(conn.UserID, activity.ProblemsSolved)
	if err != nil {
		return fmt.Errorf("auto progress: %w", err)
	}
	return nil
}

// syncProjection pushes dirty goals and, once per period, the weekly
// summary row.
func (r *CycleRunner) syncProjection(ctx context.Context, conn *model.Connection) error {
	results, err := r.reconciler.SyncConnection(ctx, conn)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	label := model.WeekLabel(time.Now())
	if !r.reconciler.WeeklyProjected(conn, label) {
		summary, aggErr := r.aggregates.WeeklySummary(ctx, conn.UserID)
		if aggErr != nil {
			slog.Warn("weekly summary aggregation failed", "error", aggErr, "user_id", conn.UserID)
		} else {
			summary.Insight = r.insights.WeeklyInsight(ctx, summary)
			projErr := r.reconciler.ProjectWeeklySummary(ctx, conn, summary)
			if projErr != nil {
				slog.Warn("weekly projection failed", "error", projErr, "user_id", conn.UserID)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d goals failed to reconcile", failed, len(results))
	}
	return nil
}
