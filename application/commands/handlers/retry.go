package handlers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

const (
	// saveAttempts bounds the load-mutate-save loop under contention.
	saveAttempts = 3
	// initialBackoff is doubled after each conflicted attempt.
	initialBackoff = 100 * time.Millisecond
)

// errAlreadyApplied signals that a concurrent writer already produced the
// state this mutation was going to produce. The retry loop treats it as an
// idempotent no-op and returns the loaded canvas without saving.
var errAlreadyApplied = errors.New("mutation already applied")

// saveWithRetry runs the optimistic-concurrency protocol shared by every
// canvas use case: load a fresh snapshot (synthesizing an empty canvas at
// version 0 when none exists), apply the logical mutation, and attempt a
// versioned save. On ConflictError the snapshot is stale: reload, reapply
// the intent against the winner's state, and retry with backoff until the
// attempt budget is spent, then propagate the conflict to the caller.
func saveWithRetry(
	ctx context.Context,
	repo ports.CanvasRepository,
	projectID string,
	logger *zap.Logger,
	apply func(canvas *aggregates.Canvas) error,
) (*aggregates.Canvas, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= saveAttempts; attempt++ {
		canvas, err := repo.FindByProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if canvas == nil {
			canvas = aggregates.NewCanvas(projectID)
		}

		if err := apply(canvas); err != nil {
			if errors.Is(err, errAlreadyApplied) {
				return canvas, nil
			}
			return nil, err
		}

		saved, err := repo.SaveWithVersion(ctx, canvas, canvas.Version())
		if err == nil {
			return saved, nil
		}
		if !apperrors.IsConflict(err) {
			return nil, err
		}

		lastErr = err
		logger.Warn("canvas save conflict, retrying with fresh snapshot",
			zap.String("projectID", projectID),
			zap.Int("attempt", attempt),
			zap.Int("expectedVersion", canvas.Version()),
		)

		if attempt < saveAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}
