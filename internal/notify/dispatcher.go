// Package notify hands newly created accounts to the message service.
package notify

import (
	"context"
	"time"

	"github.com/eaglebank/accounts/internal/events"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/metrics"
	"github.com/eaglebank/accounts/internal/models"
)

const defaultTimeout = 2 * time.Second

type Dispatcher struct {
	transport events.Transport
	channel   string
	timeout   time.Duration
	log       *logger.Logger
}

func NewDispatcher(transport events.Transport, channel string, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{transport: transport, channel: channel, timeout: timeout, log: log}
}

// Dispatch enqueues one communication request and reports whether the
// transport accepted it. It never retries. The enqueue is detached from the
// caller's cancellation because it runs after the account is committed.
func (d *Dispatcher) Dispatch(ctx context.Context, msg models.AccountsMsg) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	d.log.Info("sending communication request", "accountNumber", msg.AccountNumber, "channel", d.channel)
	err := d.transport.Send(ctx, d.channel, events.NewEvent(events.CommunicationRequested, msg))
	metrics.IncNotificationDispatched(err == nil)
	if err != nil {
		d.log.Error("communication request not sent", "accountNumber", msg.AccountNumber, "channel", d.channel, "error", err)
		return false
	}
	d.log.Info("communication request sent", "accountNumber", msg.AccountNumber)
	return true
}
