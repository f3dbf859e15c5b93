// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/log"
)

// Hook runs after a settlement has been committed. It cannot undo the
// settlement.
type Hook interface {
	AfterSettlement(ctx context.Context, result SettlementResult) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, result SettlementResult) error

func (f HookFunc) AfterSettlement(ctx context.Context, result SettlementResult) error {
	return f(ctx, result)
}

// runHooks invokes every hook in order. Failures are logged; with strict
// hooks enabled they are also returned.
func (r *Router) runHooks(ctx context.Context, result SettlementResult) error {
	var errs []error
	for i, h := range r.hooks {
		if err := h.AfterSettlement(ctx, result); err != nil {
			r.metrics.hookFailures.Inc()
			r.log.Warn("post-settlement hook failed",
				log.Int("hook", i),
				log.Stringer("requestID", result.RequestID),
				log.Err(err),
			)
			errs = append(errs, fmt.Errorf("hook %d: %w", i, err))
		}
	}
	if len(errs) == 0 || !r.strictHooks {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrHookFailed, errors.Join(errs...))
}
