// Package notification renders transactional emails and sends them in the
// background. Delivery failures never reach the caller.
package notification

import (
	"context"
	"sync"
	"time"

	"flightbooker/pkg/logger"
	"flightbooker/pkg/mailer"
)

// Email is the outgoing message handed to the mail sender.
type Email = mailer.Message

type Dispatcher struct {
	sender  mailer.Sender
	logger  logger.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender mailer.Sender, l logger.Client, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{sender: sender, logger: l, timeout: timeout}
}

// Send delivers email asynchronously with its own timeout.
func (d *Dispatcher) Send(email Email) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, email); err != nil {
			d.logger.Error("notification_send_failed",
				logger.Field{Key: "to", Value: email.ToAddress},
				logger.Field{Key: "subject", Value: email.Subject},
				logger.Err(err),
			)
			return
		}
		d.logger.Debug("notification_sent", logger.Field{Key: "to", Value: email.ToAddress})
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) BookingConfirmed(n BookingConfirmation) {
	d.dispatch(bookingTemplate, n.ToAddress, n.ToName, n)
}

func (d *Dispatcher) FlightDelayed(n FlightDelay) {
	d.dispatch(delayTemplate, n.ToAddress, n.ToName, n)
}

func (d *Dispatcher) ComplaintAnswered(n ComplaintResponse) {
	d.dispatch(complaintTemplate, n.ToAddress, n.ToName, n)
}

func (d *Dispatcher) ConfirmEmail(n EmailConfirmation) {
	d.dispatch(confirmTemplate, n.ToAddress, n.ToName, n)
}

func (d *Dispatcher) dispatch(t template, to, name string, data any) {
	subject, text, html, err := t.render(data)
	if err != nil {
		d.logger.Error("notification_render_failed", logger.Field{Key: "to", Value: to}, logger.Err(err))
		return
	}
	d.Send(Email{
		ToAddress: to,
		ToName:    name,
		Subject:   subject,
		TextBody:  text,
		HTMLBody:  html,
	})
}
