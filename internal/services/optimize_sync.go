package services

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"time"
)

// OptimizeSync runs the optimizer inline under a deadline.
// Running out of time is reported as a timeout rather than whatever
// error the cancelled provider call surfaced.
func (o *Optimizer) OptimizeSync(ctx context.Context, p OptimizeParams, timeout time.Duration) (*domain.OptimizationResult, error) {
	if timeout <= 0 {
		return o.Optimize(ctx, p)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := o.Optimize(tctx, p)
	if err != nil {
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, domain.TimeoutErr(err, "optimization did not finish within %s", timeout)
		}
		return nil, err
	}

	return res, nil
}
