package health

import (
	"context"
	"runtime"

	"github.com/dd0wney/cluso-anomaly/pkg/checkpoint"
)

// StoreCheck reports whether the checkpoint store answers, and whether a
// training table is already saved in it.
func StoreCheck(store checkpoint.Store) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Details: map[string]any{"location": store.Location(checkpoint.TrainFile)},
		}

		saved, err := store.Exists(ctx, checkpoint.TrainFile)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Details["train_saved"] = saved
		check.Status = StatusHealthy
		check.Message = "Store reachable"
		return check
	}
}

// MemoryCheck degrades when the heap exceeds limit bytes; 0 disables the
// limit.
func MemoryCheck(limit uint64) CheckFunc {
	return func(ctx context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
				"goroutines":  runtime.NumGoroutine(),
			},
			Status:  StatusHealthy,
			Message: "Memory usage normal",
		}
		if limit > 0 && m.Alloc > limit {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}
