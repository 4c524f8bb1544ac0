// Package safego launches background goroutines that survive panics. Planivo
// runs its reminder and expiry jobs and the realtime event fan-out as
// fire-and-forget goroutines; a panic in any of them must be logged with an
// attributable task name, not allowed to kill the goroutine silently.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine. A panic is recovered and logged with the
// task name and stack rather than crashing the process.
func Go(task string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background task panicked",
					"task", task, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
