package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/store"
)

// attempts guards one recovery path with a completion flag and a capped
// attempt counter
type attempts struct {
	state       store.StateStore
	completeKey string
	counterKey  string
	max         int
}

// gate decides whether a run may start. A non-empty status means the run
// must stop with that status. Nothing is incremented.
func (a attempts) gate(ctx context.Context) (domain.Status, error) {
	done, err := a.state.Flag(ctx, a.completeKey)
	if err != nil {
		return domain.StatusError, fmt.Errorf("failed to read completion flag: %w", err)
	}
	if done {
		return domain.StatusAlreadyCompleted, nil
	}

	count, err := a.state.Counter(ctx, a.counterKey)
	if err != nil {
		return domain.StatusError, fmt.Errorf("failed to read attempt counter: %w", err)
	}
	if count >= a.max {
		logger.WarnCtx(ctx, "Attempt cap reached, leaving source untouched",
			zap.String("counter", a.counterKey), zap.Int("attempts", count), zap.Int("max", a.max))
		return domain.StatusAbandoned, domain.ErrAttemptsExhausted
	}
	return "", nil
}

// consume records the start of an attempt
func (a attempts) consume(ctx context.Context) (int, error) {
	n, err := a.state.Increment(ctx, a.counterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempt counter: %w", err)
	}
	return n, nil
}

// complete sets the completion flag and clears the counter
func (a attempts) complete(ctx context.Context) error {
	if err := a.state.SetFlag(ctx, a.completeKey, true); err != nil {
		return fmt.Errorf("failed to set completion flag: %w", err)
	}
	if err := a.state.Reset(ctx, a.counterKey); err != nil {
		return fmt.Errorf("failed to reset attempt counter: %w", err)
	}
	return nil
}
