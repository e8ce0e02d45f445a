package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/hsu0403/hcast-backend/internal/logging"
)

// DefaultTimeout bounds a single asynchronous delivery.
const DefaultTimeout = 30 * time.Second

// Dispatcher delivers messages in the background. Failures are logged and
// never reported to the caller.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps sender. A zero timeout selects DefaultTimeout.
func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{sender: sender, timeout: timeout}
}

// Dispatch sends msg on its own goroutine. The delivery outlives the request
// that triggered it but keeps its logging fields.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.sender.Send(sendCtx, msg); err != nil {
			logging.FromContext(ctx).Error().
				Err(err).
				Str("to", msg.To).
				Str("subject", msg.Subject).
				Msg("Failed to send email")
			return
		}
		logging.FromContext(ctx).Debug().Str("subject", msg.Subject).Msg("Email sent")
	}()
}

// Wait blocks until every dispatched message has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
