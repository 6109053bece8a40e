package reservation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalCost(t *testing.T) {
	prices := map[int]decimal.Decimal{
		1: decimal.RequireFromString("899.99"),
		2: decimal.RequireFromString("300"),
		3: decimal.Zero,
		4: decimal.RequireFromString("100.10"),
	}

	tests := []struct {
		name  string
		seats []ClaimedSeat
		want  string
	}{
		{"no seats", nil, "0"},
		{"two economy", []ClaimedSeat{{SeatClassID: 4}, {SeatClassID: 4}}, "200.2"},
		{"mixed classes across legs", []ClaimedSeat{
			{FlightID: 1, SeatClassID: 1},
			{FlightID: 1, SeatClassID: 4},
			{FlightID: 2, SeatClassID: 2},
			{FlightID: 2, SeatClassID: 3},
		}, "1300.09"},
		{"class without price", []ClaimedSeat{{SeatClassID: 9}, {SeatClassID: 2}}, "300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalCost(tt.seats, prices)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestClaimedSeat_Label(t *testing.T) {
	assert.Equal(t, "12C", ClaimedSeat{Row: 12, Column: "C"}.Label())
}

func TestGroupSeats(t *testing.T) {
	dep := time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC)
	rows := []seatRow{
		{ReservationID: 1, FlightID: 10, AirplaneID: 3, DepartureAirportCode: "SOF", ArrivalAirportCode: "IST", DepartureTime: dep, Row: 12, Column: "C"},
		{ReservationID: 1, FlightID: 10, AirplaneID: 3, Row: 12, Column: "D"},
		{ReservationID: 1, FlightID: 11, AirplaneID: 4, Row: 3, Column: "A"},
		{ReservationID: 2, FlightID: 10, AirplaneID: 3, Row: 1, Column: "F"},
	}

	groups := groupSeats(rows)

	require.Len(t, groups[1], 2)
	assert.Equal(t, []string{"12C", "12D"}, groups[1][0].ReservedSeats)
	assert.Equal(t, int64(3), groups[1][0].AirplaneID)
	assert.Equal(t, "SOF", groups[1][0].DepartureAirportCode)
	assert.Equal(t, []string{"3A"}, groups[1][1].ReservedSeats)
	require.Len(t, groups[2], 1)
	assert.Equal(t, []string{"1F"}, groups[2][0].ReservedSeats)
}

func TestSeatError_Unwraps(t *testing.T) {
	err := error(&SeatError{FlightID: 1, AirplaneSeatID: 2, Err: ErrSeatTaken})

	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.NotErrorIs(t, err, ErrSeatNotFound)
	assert.Equal(t, "flight 1 seat 2: seat no longer available", err.Error())
}

func TestClaimOrder_SortsByFlightThenSeat(t *testing.T) {
	nr := NewReservation{Seats: []SeatSelection{
		{FlightID: 71, AirplaneSeatIDs: []int64{3, 1}},
		{FlightID: 70, AirplaneSeatIDs: []int64{4, 2}},
	}}
	reversed := NewReservation{Seats: []SeatSelection{
		{FlightID: 70, AirplaneSeatIDs: []int64{2, 4}},
		{FlightID: 71, AirplaneSeatIDs: []int64{1, 3}},
	}}

	want := []ClaimedSeat{
		{FlightID: 70, AirplaneSeatID: 2},
		{FlightID: 70, AirplaneSeatID: 4},
		{FlightID: 71, AirplaneSeatID: 1},
		{FlightID: 71, AirplaneSeatID: 3},
	}
	assert.Equal(t, want, nr.claimOrder())
	assert.Equal(t, want, reversed.claimOrder())
	assert.Empty(t, NewReservation{}.claimOrder())
}
