package route

import (
	"strings"
	"time"

	"flightbooker/internal/seatclass"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// SearchRequest is bound from the query string.
type SearchRequest struct {
	DepartureAirportCode string `form:"departureAirportCode" json:"departureAirportCode" binding:"required,len=3"`
	ArrivalAirportCode   string `form:"arrivalAirportCode" json:"arrivalAirportCode" binding:"required,len=3"`
	DepartureDate        string `form:"departureDate" json:"departureDate" binding:"required"`
	IsRoundTrip          bool   `form:"isRoundTrip" json:"isRoundTrip"`
	ReturnDate           string `form:"returnDate" json:"returnDate"`
	Seats                int    `form:"seats,default=1" json:"seats" binding:"min=1"`
	DirectFlightsOnly    bool   `form:"directFlightsOnly" json:"directFlightsOnly"`
	CabinClass           *int   `form:"cabinClass" json:"cabinClass"`
	SortBy               string `form:"sortBy" json:"sortBy"`
	SortOrder            string `form:"sortOrder" json:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

// Criteria is a validated search with dates resolved to calendar days.
type Criteria struct {
	DepartureAirportCode string
	ArrivalAirportCode   string
	DepartureDay         time.Time
	IsRoundTrip          bool
	ReturnDay            time.Time
	Seats                int
	DirectOnly           bool
	CabinClass           *int
}

// CandidateLeg is one flight of a candidate route with its unreserved seat
// counts per class.
type CandidateLeg struct {
	FlightID             int64
	AirplaneID           int64
	DepartureAirportCode string
	ArrivalAirportCode   string
	DepartureTime        time.Time
	ArrivalTime          time.Time
	DelayMinutes         *int
	FreeSeats            map[int]int
}

// Candidate is a route departing from the requested airport on the requested day.
type Candidate struct {
	RouteID              int64
	AirlineID            int64
	AirlineName          string
	DepartureAirportCode string
	ArrivalAirportCode   string
	DepartureTime        time.Time
	ArrivalTime          time.Time
	Legs                 []CandidateLeg
	Prices               map[int]decimal.Decimal
}

type ResultLeg struct {
	FlightID             int64     `json:"flightId"`
	AirplaneID           int64     `json:"airplaneId"`
	DepartureAirportCode string    `json:"departureAirportCode"`
	ArrivalAirportCode   string    `json:"arrivalAirportCode"`
	DepartureTime        time.Time `json:"departureTime"`
	ArrivalTime          time.Time `json:"arrivalTime"`
	Duration             int       `json:"duration"`
	DelayMinutes         *int      `json:"delay"`
}

type SearchResult struct {
	RouteID              int64           `json:"routeId"`
	AirlineID            int64           `json:"airlineId"`
	AirlineName          string          `json:"airlineName"`
	DepartureAirportCode string          `json:"departureAirportCode"`
	ArrivalAirportCode   string          `json:"arrivalAirportCode"`
	DepartureTime        time.Time       `json:"departureTime"`
	ArrivalTime          time.Time       `json:"arrivalTime"`
	Duration             int             `json:"duration"`
	Stops                int             `json:"stops"`
	AvailableSeats       int             `json:"availableSeats"`
	PricePerSeat         decimal.Decimal `json:"pricePerSeat"`
	TotalPrice           decimal.Decimal `json:"totalPrice"`
	Legs                 []ResultLeg     `json:"legs"`
}

type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Metadata SearchMetadata `json:"metadata"`
}

type SearchMetadata struct {
	TotalResults int    `json:"totalResults"`
	CacheHit     bool   `json:"cacheHit"`
	CacheKey     string `json:"cacheKey,omitempty"`
	SearchTimeMs int64  `json:"searchTimeMs"`
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func sameDay(t, day time.Time) bool {
	ty, tm, td := t.In(day.Location()).Date()
	dy, dm, dd := day.Date()
	return ty == dy && tm == dm && td == dd
}

// freeSeats counts the unreserved seats of a leg. Without a cabin class every
// unreserved seat counts, whatever its class.
func freeSeats(leg CandidateLeg, cabinClass *int) int {
	if cabinClass != nil {
		return leg.FreeSeats[*cabinClass]
	}
	total := 0
	for _, n := range leg.FreeSeats {
		total += n
	}
	return total
}

func matches(c Candidate, cr Criteria) bool {
	if len(c.Legs) == 0 || c.DepartureAirportCode != cr.DepartureAirportCode {
		return false
	}
	if !sameDay(c.DepartureTime, cr.DepartureDay) {
		return false
	}

	if cr.IsRoundTrip {
		reachesDestination := false
		for _, leg := range c.Legs {
			if leg.ArrivalAirportCode == cr.ArrivalAirportCode {
				reachesDestination = true
				break
			}
		}
		if !reachesDestination || !sameDay(c.ArrivalTime, cr.ReturnDay) || c.ArrivalAirportCode != cr.DepartureAirportCode {
			return false
		}
		if cr.DirectOnly && len(c.Legs) != 2 {
			return false
		}
	} else {
		if c.ArrivalAirportCode != cr.ArrivalAirportCode {
			return false
		}
		if cr.DirectOnly && len(c.Legs) != 1 {
			return false
		}
	}

	for _, leg := range c.Legs {
		if freeSeats(leg, cr.CabinClass) < cr.Seats {
			return false
		}
	}
	return true
}

func toResult(c Candidate, cr Criteria) SearchResult {
	available := -1
	totalMinutes := 0.0
	legs := make([]ResultLeg, len(c.Legs))
	for i, leg := range c.Legs {
		if n := freeSeats(leg, cr.CabinClass); available < 0 || n < available {
			available = n
		}
		minutes := leg.ArrivalTime.Sub(leg.DepartureTime).Minutes()
		totalMinutes += minutes
		legs[i] = ResultLeg{
			FlightID:             leg.FlightID,
			AirplaneID:           leg.AirplaneID,
			DepartureAirportCode: leg.DepartureAirportCode,
			ArrivalAirportCode:   leg.ArrivalAirportCode,
			DepartureTime:        leg.DepartureTime,
			ArrivalTime:          leg.ArrivalTime,
			Duration:             minutesBetween(leg.DepartureTime, leg.ArrivalTime),
			DelayMinutes:         leg.DelayMinutes,
		}
	}

	class := seatclass.Economy
	if cr.CabinClass != nil {
		class = *cr.CabinClass
	}
	price := c.Prices[class]

	return SearchResult{
		RouteID:              c.RouteID,
		AirlineID:            c.AirlineID,
		AirlineName:          c.AirlineName,
		DepartureAirportCode: c.DepartureAirportCode,
		ArrivalAirportCode:   c.ArrivalAirportCode,
		DepartureTime:        c.DepartureTime,
		ArrivalTime:          c.ArrivalTime,
		Duration:             roundMinutes(totalMinutes),
		Stops:                len(c.Legs),
		AvailableSeats:       available,
		PricePerSeat:         price,
		TotalPrice:           price.Mul(decimal.NewFromInt(int64(cr.Seats))),
		Legs:                 legs,
	}
}

// Match filters candidates and computes availability and pricing, keeping
// candidate order.
func Match(candidates []Candidate, cr Criteria) []SearchResult {
	results := []SearchResult{}
	for _, c := range candidates {
		if matches(c, cr) {
			results = append(results, toResult(c, cr))
		}
	}
	return results
}
