package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dispatcher sends messages through the configured provider with a bounded
// timeout. Failures are logged and counted, never propagated: a notification
// must not affect the financial operation that produced it.
type Dispatcher struct {
	provider Provider
	log      *zap.Logger
	timeout  time.Duration
}

func NewDispatcher(provider Provider, log *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		provider: provider,
		log:      log.Named("notification"),
		timeout:  timeout,
	}
}

// Dispatch sends every message, returning the number delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []Message) int {
	sent := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		result := d.provider.Send(sendCtx, msg)
		cancel()

		if !result.Success {
			d.log.Warn("notification send failed",
				zap.String("template", msg.TemplateType),
				zap.String("recipient", msg.Recipient),
				zap.Error(result.Err),
			)
			continue
		}
		sent++
	}
	return sent
}
