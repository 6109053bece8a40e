// Package reservation claims flight seats for a client against a route.
package reservation

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("reservation not found")
	ErrClientNotFound = errors.New("client not found")
	ErrRouteNotFound  = errors.New("route not found")
	// ErrSeatNotFound means the seat is not on the route, or the same request
	// already claimed it.
	ErrSeatNotFound = errors.New("flight seat not found")
	// ErrSeatTaken means another reservation holds the seat.
	ErrSeatTaken = errors.New("seat no longer available")
)

// SeatError names the seat a claim failed on. It unwraps to ErrSeatNotFound
// or ErrSeatTaken.
type SeatError struct {
	FlightID       int64
	AirplaneSeatID int64
	Err            error
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("flight %d seat %d: %v", e.FlightID, e.AirplaneSeatID, e.Err)
}

func (e *SeatError) Unwrap() error { return e.Err }

type SeatSelection struct {
	FlightID        int64   `json:"flightId" binding:"required"`
	AirplaneSeatIDs []int64 `json:"airplaneSeatIds" binding:"required,min=1"`
}

type CreateRequest struct {
	ClientID    string          `json:"clientId"`
	RouteID     int64           `json:"routeId" binding:"required"`
	FlightSeats []SeatSelection `json:"flightSeats" binding:"required,min=1,dive"`
}

func (r CreateRequest) seatCount() int {
	n := 0
	for _, sel := range r.FlightSeats {
		n += len(sel.AirplaneSeatIDs)
	}
	return n
}

// NewReservation is a reservation ready to be written with its seat claims.
type NewReservation struct {
	ID        int64
	ClientID  string
	RouteID   int64
	CreatedAt time.Time
	Seats     []SeatSelection
}

// claimOrder flattens the selections sorted by flight then seat. Claiming in
// one global order keeps concurrent bookings from locking rows in a cycle.
func (nr NewReservation) claimOrder() []ClaimedSeat {
	var seats []ClaimedSeat
	for _, sel := range nr.Seats {
		for _, seatID := range sel.AirplaneSeatIDs {
			seats = append(seats, ClaimedSeat{FlightID: sel.FlightID, AirplaneSeatID: seatID})
		}
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].FlightID != seats[j].FlightID {
			return seats[i].FlightID < seats[j].FlightID
		}
		return seats[i].AirplaneSeatID < seats[j].AirplaneSeatID
	})
	return seats
}

// ClaimedSeat is a flight seat taken by a reservation.
type ClaimedSeat struct {
	FlightID       int64
	AirplaneSeatID int64
	SeatClassID    int
	Row            int
	Column         string
}

func (s ClaimedSeat) Label() string {
	return fmt.Sprintf("%d%s", s.Row, s.Column)
}

// SeatGroup lists the seats a reservation holds on one flight.
type SeatGroup struct {
	FlightID             int64     `json:"flightId"`
	AirplaneID           int64     `json:"airplaneId"`
	DepartureAirportCode string    `json:"departureAirportCode"`
	ArrivalAirportCode   string    `json:"arrivalAirportCode"`
	DepartureTime        time.Time `json:"departureTime"`
	ArrivalTime          time.Time `json:"arrivalTime"`
	ReservedSeats        []string  `json:"reservedSeats"`
}

type Reservation struct {
	ID              int64           `json:"id,string"`
	ClientID        string          `json:"clientId"`
	RouteID         int64           `json:"routeId"`
	RouteName       string          `json:"routeName"`
	DepartureTime   time.Time       `json:"departureTime"`
	ArrivalTime     time.Time       `json:"arrivalTime"`
	ReservationDate time.Time       `json:"reservationDate"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	Seats           []SeatGroup     `json:"reservationSeatsData"`
}

// Client is the contact data of the booking user.
type Client struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// TotalCost sums the route price of every claimed seat's class. A class
// without a price costs nothing.
func TotalCost(seats []ClaimedSeat, prices map[int]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, s := range seats {
		total = total.Add(prices[s.SeatClassID])
	}
	return total
}

func routeName(dep, arr string) string {
	return dep + " - " + arr
}

// seatRow is one reserved flight seat as read back from the store.
type seatRow struct {
	ReservationID        int64
	FlightID             int64
	AirplaneID           int64
	DepartureAirportCode string
	ArrivalAirportCode   string
	DepartureTime        time.Time
	ArrivalTime          time.Time
	Row                  int
	Column               string
}

// groupSeats groups seat rows per reservation and flight, keeping row order.
func groupSeats(rows []seatRow) map[int64][]SeatGroup {
	out := map[int64][]SeatGroup{}
	for _, r := range rows {
		groups := out[r.ReservationID]
		if n := len(groups); n > 0 && groups[n-1].FlightID == r.FlightID {
			groups[n-1].ReservedSeats = append(groups[n-1].ReservedSeats, fmt.Sprintf("%d%s", r.Row, r.Column))
			continue
		}
		out[r.ReservationID] = append(groups, SeatGroup{
			FlightID:             r.FlightID,
			AirplaneID:           r.AirplaneID,
			DepartureAirportCode: r.DepartureAirportCode,
			ArrivalAirportCode:   r.ArrivalAirportCode,
			DepartureTime:        r.DepartureTime,
			ArrivalTime:          r.ArrivalTime,
			ReservedSeats:        []string{fmt.Sprintf("%d%s", r.Row, r.Column)},
		})
	}
	return out
}
