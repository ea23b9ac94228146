package utils

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds one snapshot store round trip made by a site command.
const DefaultQueryTimeout = 10 * time.Second

// FastQueryTimeout is for activity log lookups.
const FastQueryTimeout = 3 * time.Second

// SlowQueryTimeout covers exports that wait on a generated report.
const SlowQueryTimeout = 60 * time.Second

// GetQueryContext derives a bounded context for a store call. A nil parent is treated as
// context.Background.
func GetQueryContext(parentCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return context.WithTimeout(parentCtx, timeout)
}

// GetDefaultQueryContext is used by the command handlers.
func GetDefaultQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, DefaultQueryTimeout)
}

func GetFastQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, FastQueryTimeout)
}

// GetSlowQueryContext is used by the report and export handlers.
func GetSlowQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, SlowQueryTimeout)
}
