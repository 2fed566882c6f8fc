package decode

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/logger"
)

// Step is one fallible decoder in a Chain
type Step[T any] struct {
	Name   string
	Decode func(data []byte) (T, error)
}

// Chain tries its steps in order and returns the first success.
// Fallback is the terminal entry and never fails.
type Chain[T any] struct {
	Field    string
	Steps    []Step[T]
	Fallback func() T
}

// Outcome describes how a Chain produced its value
type Outcome[T any] struct {
	Value T
	// Step is the name of the step that succeeded, empty when the fallback was used
	Step string
	// Fallback is true when every step failed on non-empty input
	Fallback bool
	Err      error
}

// Decode runs the chain against data. Empty input goes straight to the fallback
// without being reported as a failure.
func (c Chain[T]) Decode(ctx context.Context, data []byte) Outcome[T] {
	if len(data) == 0 {
		return Outcome[T]{Value: c.Fallback()}
	}

	var errs []error
	for _, step := range c.Steps {
		value, err := step.Decode(data)
		if err == nil {
			if len(errs) > 0 {
				logger.DebugCtx(ctx, "Decoded blob after fallback",
					zap.String("field", c.Field),
					zap.String("step", step.Name),
					zap.Int("failed_steps", len(errs)))
			}
			return Outcome[T]{Value: value, Step: step.Name}
		}
		errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
	}

	err := errors.Join(errs...)
	logger.WarnCtx(ctx, "Blob could not be decoded, using default",
		zap.String("field", c.Field),
		zap.Int("size", len(data)),
		zap.String("mime", mimetype.Detect(data).String()),
		zap.Error(err))

	return Outcome[T]{Value: c.Fallback(), Fallback: true, Err: err}
}
