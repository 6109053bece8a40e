package route

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("route not found")
	ErrFlightNotFound = errors.New("flight not found")
)

type LegRequest struct {
	AirplaneID           int64     `json:"airplaneId" binding:"required"`
	DepartureAirportCode string    `json:"departureAirportCode" binding:"required,len=3"`
	ArrivalAirportCode   string    `json:"arrivalAirportCode" binding:"required,len=3"`
	DepartureTime        time.Time `json:"departureTime" binding:"required"`
	ArrivalTime          time.Time `json:"arrivalTime" binding:"required"`
}

// CreateRequest describes a route to schedule. Prices are keyed by seat class id.
type CreateRequest struct {
	AirlineID int64                   `json:"airlineId" binding:"required"`
	IsTransit bool                    `json:"isTransit"`
	Repeating bool                    `json:"repeating"`
	Frequency Frequency               `json:"frequency"`
	Flights   []LegRequest            `json:"flights" binding:"required,min=1,dive"`
	Prices    map[int]decimal.Decimal `json:"prices"`
}

// NewLeg and NewRoute are one occurrence ready to be persisted.
type NewLeg struct {
	AirplaneID           int64
	DepartureAirportCode string
	ArrivalAirportCode   string
	DepartureTime        time.Time
	ArrivalTime          time.Time
}

type NewRoute struct {
	AirlineID            int64
	DepartureAirportCode string
	ArrivalAirportCode   string
	DepartureTime        time.Time
	ArrivalTime          time.Time
	IsRepeating          bool
	Frequency            *Frequency
	Legs                 []NewLeg
	Prices               map[int]decimal.Decimal
}

type CreateResult struct {
	RouteGroupID int64   `json:"routeGroupId"`
	RouteIDs     []int64 `json:"routeIds"`
}

type Price struct {
	SeatClassID   int             `json:"seatClassId"`
	SeatClassName string          `json:"seatClassName"`
	Price         decimal.Decimal `json:"price"`
}

type Flight struct {
	ID                   int64     `json:"flightId"`
	RouteID              int64     `json:"routeId"`
	AirlineID            int64     `json:"airlineId"`
	AirplaneID           int64     `json:"airplaneId"`
	DepartureAirportCode string    `json:"departureAirportCode"`
	ArrivalAirportCode   string    `json:"arrivalAirportCode"`
	DepartureTime        time.Time `json:"departureTime"`
	ArrivalTime          time.Time `json:"arrivalTime"`
	DelayMinutes         *int      `json:"delay"`
	Duration             int       `json:"duration"`
}

// EffectiveDeparture is the departure time including the current delay.
func (f Flight) EffectiveDeparture() time.Time {
	if f.DelayMinutes == nil {
		return f.DepartureTime
	}
	return f.DepartureTime.Add(time.Duration(*f.DelayMinutes) * time.Minute)
}

type Route struct {
	ID                   int64      `json:"routeId"`
	AirlineID            int64      `json:"airlineId"`
	AirlineName          string     `json:"airlineName"`
	DepartureAirportCode string     `json:"departureAirportCode"`
	ArrivalAirportCode   string     `json:"arrivalAirportCode"`
	DepartureTime        time.Time  `json:"departureTime"`
	ArrivalTime          time.Time  `json:"arrivalTime"`
	IsRepeating          bool       `json:"isRepeating"`
	Frequency            *Frequency `json:"frequency"`
	RouteGroupID         int64      `json:"routeGroupId"`
	IsTransit            bool       `json:"isTransit"`
	HasReservations      bool       `json:"hasReservations"`
	FlightCount          int        `json:"flightCount"`
	Prices               []Price    `json:"prices"`
	Flights              []Flight   `json:"flights,omitempty"`
}

type BookingSeat struct {
	AirplaneSeatID int64  `json:"airplaneSeatId"`
	Row            int    `json:"row"`
	Column         string `json:"column"`
	SeatClassID    int    `json:"seatClassId"`
	IsReserved     bool   `json:"isReserved"`
}

type BookingLeg struct {
	Flight
	Seats []BookingSeat `json:"seats"`
}

// BookingData is everything a client needs to pick seats on a route.
type BookingData struct {
	Route
	Legs []BookingLeg `json:"legs"`
}

// Passenger is a user holding at least one seat on a flight.
type Passenger struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

func minutesBetween(from, to time.Time) int {
	return roundMinutes(to.Sub(from).Minutes())
}

func roundMinutes(m float64) int {
	return int(math.Round(m))
}
