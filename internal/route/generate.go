package route

import (
	"time"

	"github.com/shopspring/decimal"
)

// expand materializes every occurrence of the request. Each occurrence shifts
// the whole leg schedule by the same offset and carries its own price rows.
func expand(req CreateRequest, offsets []time.Duration) []NewRoute {
	var freq *Frequency
	if req.Repeating {
		f := req.Frequency
		freq = &f
	}

	first, last := req.Flights[0], req.Flights[len(req.Flights)-1]
	routes := make([]NewRoute, 0, len(offsets))
	for _, off := range offsets {
		legs := make([]NewLeg, len(req.Flights))
		for i, leg := range req.Flights {
			legs[i] = NewLeg{
				AirplaneID:           leg.AirplaneID,
				DepartureAirportCode: leg.DepartureAirportCode,
				ArrivalAirportCode:   leg.ArrivalAirportCode,
				DepartureTime:        leg.DepartureTime.Add(off),
				ArrivalTime:          leg.ArrivalTime.Add(off),
			}
		}

		prices := make(map[int]decimal.Decimal, len(req.Prices))
		for id, p := range req.Prices {
			prices[id] = p
		}

		routes = append(routes, NewRoute{
			AirlineID:            req.AirlineID,
			DepartureAirportCode: first.DepartureAirportCode,
			ArrivalAirportCode:   last.ArrivalAirportCode,
			DepartureTime:        first.DepartureTime.Add(off),
			ArrivalTime:          last.ArrivalTime.Add(off),
			IsRepeating:          req.Repeating,
			Frequency:            freq,
			Legs:                 legs,
			Prices:               prices,
		})
	}
	return routes
}
