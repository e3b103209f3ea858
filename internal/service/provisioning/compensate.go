package provisioning

import (
	"context"
	"log/slog"
	"time"
)

const compensationTimeout = 30 * time.Second

type undoStep struct {
	name string
	fn   func(context.Context) error
}

// compensator collects undo steps for a multi-step write. Steps run in
// reverse order unless release is called first.
//
//	undo := newCompensator(logger)
//	defer undo.unwind(ctx, &err)
//	undo.register("delete principal", ...)
//	...
//	undo.release()
type compensator struct {
	logger *slog.Logger
	steps  []undoStep
}

func newCompensator(logger *slog.Logger) *compensator {
	return &compensator{logger: logger}
}

func (c *compensator) register(name string, fn func(context.Context) error) {
	c.steps = append(c.steps, undoStep{name: name, fn: fn})
}

// release drops every registered step; the write is committed.
func (c *compensator) release() {
	c.steps = nil
}

// unwind runs the remaining steps when *errp is non-nil. It detaches from
// ctx cancellation so an abandoned request still cleans up. Step failures
// are logged and never replace *errp.
func (c *compensator) unwind(ctx context.Context, errp *error) {
	if *errp == nil || len(c.steps) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(ctx); err != nil {
			c.logger.ErrorContext(ctx, "compensation failed",
				"step", step.name, "error", err, "cause", *errp)
			continue
		}
		c.logger.WarnContext(ctx, "compensation applied", "step", step.name, "cause", *errp)
	}
	c.steps = nil
}
