package notification

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flightbooker/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Email(nil), s.sent...)
}

func waitFor(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}

func TestDispatcher_BookingConfirmed(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, logger.NewWithWriter("test", &bytes.Buffer{}), time.Second)

	dep := time.Date(2024, 4, 10, 8, 30, 0, 0, time.UTC)
	d.BookingConfirmed(BookingConfirmation{
		ToAddress:     "ana@example.com",
		ToName:        "Ana",
		ReservationID: 99,
		RouteName:     "SOF - IST",
		TotalCost:     decimal.NewFromInt(200),
		Legs: []BookingLeg{{
			DepartureAirportCode: "SOF",
			ArrivalAirportCode:   "IST",
			DepartureTime:        dep,
			ArrivalTime:          dep.Add(90 * time.Minute),
			Seats:                []string{"12C", "12D"},
		}},
	})
	waitFor(t, d)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ana@example.com", msgs[0].ToAddress)
	assert.Equal(t, "Your booking is confirmed", msgs[0].Subject)
	assert.Contains(t, msgs[0].TextBody, "#99")
	assert.Contains(t, msgs[0].TextBody, "12C, 12D")
	assert.Contains(t, msgs[0].TextBody, "200.00")
	assert.Contains(t, msgs[0].HTMLBody, "SOF &rarr; IST")
}

func TestDispatcher_EscapesHTML(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, logger.NewWithWriter("test", &bytes.Buffer{}), time.Second)

	d.ComplaintAnswered(ComplaintResponse{
		ToAddress:   "ana@example.com",
		ComplaintID: 1,
		Description: "<script>alert(1)</script>",
		Response:    "Sorry",
	})
	waitFor(t, d)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.NotContains(t, msgs[0].HTMLBody, "<script>")
	assert.Contains(t, msgs[0].TextBody, "<script>")
}

func TestDispatcher_SwallowsSendErrors(t *testing.T) {
	var logs bytes.Buffer
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, logger.NewWithWriter("test", &logs), time.Second)

	d.FlightDelayed(FlightDelay{ToAddress: "ana@example.com", DelayMinutes: 45, NewDepartureTime: time.Now()})
	waitFor(t, d)

	assert.Empty(t, sender.messages())
	assert.Contains(t, logs.String(), "notification_send_failed")
	assert.Contains(t, logs.String(), "smtp down")
}
