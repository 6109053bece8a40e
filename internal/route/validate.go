package route

import (
	"context"
	"sort"
	"strings"

	"flightbooker/internal/apperr"

	"github.com/shopspring/decimal"
)

// Lookups answers the existence checks route creation depends on.
type Lookups interface {
	AirlineExists(ctx context.Context, id int64) (bool, error)
	AirplaneExists(ctx context.Context, id int64) (bool, error)
	AirportExists(ctx context.Context, code string) (bool, error)
	SeatClassIDs(ctx context.Context) ([]int, error)
}

// validateCreate runs every check before anything is written. The order is
// fixed: frequency, leg count, airline, each leg, then transit chaining and prices.
func validateCreate(ctx context.Context, req *CreateRequest, lookups Lookups) error {
	if req.Repeating && !req.Frequency.Valid() {
		return apperr.Validation("frequency", "Frequency must be one of daily, weekly, monthly or yearly.")
	}

	if !req.IsTransit && len(req.Flights) != 1 {
		return apperr.Validation("flights", "A direct route must have exactly one flight.")
	}
	if req.IsTransit && len(req.Flights) < 2 {
		return apperr.Validation("flights", "A transit route must have at least two flights.")
	}

	ok, err := lookups.AirlineExists(ctx, req.AirlineID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("airlineId", "Airline with id %d not found.", req.AirlineID)
	}

	for i := range req.Flights {
		leg := &req.Flights[i]
		leg.DepartureAirportCode = strings.ToUpper(leg.DepartureAirportCode)
		leg.ArrivalAirportCode = strings.ToUpper(leg.ArrivalAirportCode)

		ok, err := lookups.AirplaneExists(ctx, leg.AirplaneID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("airplaneId", "Airplane with id %d not found.", leg.AirplaneID)
		}
		for _, code := range []string{leg.DepartureAirportCode, leg.ArrivalAirportCode} {
			ok, err := lookups.AirportExists(ctx, code)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound("airportCode", "Airport with code %s not found.", code)
			}
		}
		if !leg.DepartureTime.Before(leg.ArrivalTime) {
			return apperr.Validation("flights", "Flight %d must depart before it arrives.", i+1)
		}
	}

	if req.IsTransit {
		for i := 0; i+1 < len(req.Flights); i++ {
			cur, next := req.Flights[i], req.Flights[i+1]
			if cur.ArrivalAirportCode != next.DepartureAirportCode {
				return apperr.Validation("flights",
					"Flight %d arrives at %s but flight %d departs from %s.",
					i+1, cur.ArrivalAirportCode, i+2, next.DepartureAirportCode)
			}
			if !next.DepartureTime.After(cur.ArrivalTime) {
				return apperr.Validation("flights", "Flight %d must depart after flight %d arrives.", i+2, i+1)
			}
		}
	}

	return validatePrices(ctx, req, lookups)
}

// validatePrices requires known, non-negative prices and fills missing classes with 0.
func validatePrices(ctx context.Context, req *CreateRequest, lookups Lookups) error {
	classIDs, err := lookups.SeatClassIDs(ctx)
	if err != nil {
		return err
	}
	known := make(map[int]bool, len(classIDs))
	for _, id := range classIDs {
		known[id] = true
	}

	ids := make([]int, 0, len(req.Prices))
	for id := range req.Prices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if !known[id] {
			return apperr.Validation("prices", "Seat class %d does not exist.", id)
		}
		if req.Prices[id].IsNegative() {
			return apperr.Validation("prices", "The price for seat class %d cannot be negative.", id)
		}
	}

	prices := make(map[int]decimal.Decimal, len(classIDs))
	for _, id := range classIDs {
		prices[id] = req.Prices[id]
	}
	req.Prices = prices
	return nil
}
