package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not blocked.
// Use from request paths for fire-and-forget, best-effort emission; errors are logged.
//
// producer and event may be nil; EmitAsync returns immediately without starting a goroutine.
// The goroutine uses context.Background() with emitTimeout so request cancellation does not
// abort an in-flight emit.
func EmitAsync(producer Producer, log *zap.Logger, event *Event) {
	if producer == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := producer.Emit(ctx, event); err != nil && log != nil {
			log.Warn("async event emit failed", zap.Error(err))
		}
	}()
}
