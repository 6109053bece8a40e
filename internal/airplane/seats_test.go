package airplane

import (
	"testing"

	"flightbooker/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownClasses = map[int]string{1: "First", 2: "Business", 3: "PremiumEconomy", 4: "Economy"}

func rows(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for r := from; r <= to; r++ {
		out = append(out, r)
	}
	return out
}

func TestGenerateSeats_OneSeatPerRowAndColumn(t *testing.T) {
	mappings := []RowSeatClassMapping{
		{Rows: rows(1, 4), SeatClass: 2},
		{Rows: rows(5, 30), SeatClass: 4},
	}

	seats, err := GenerateSeats(30, 6, mappings, knownClasses)
	require.NoError(t, err)
	require.Len(t, seats, 180)

	perClass := map[int]int{}
	labels := map[string]bool{}
	for _, s := range seats {
		perClass[s.SeatClassID]++
		labels[s.Label()] = true
		if s.Row <= 4 {
			assert.Equal(t, 2, s.SeatClassID, "row %d", s.Row)
		} else {
			assert.Equal(t, 4, s.SeatClassID, "row %d", s.Row)
		}
	}
	assert.Equal(t, 24, perClass[2])
	assert.Equal(t, 156, perClass[4])
	assert.Len(t, labels, 180)
	assert.True(t, labels["1A"])
	assert.True(t, labels["30F"])
	assert.False(t, labels["30G"])
}

func TestGenerateSeats_RejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name     string
		nrRows   int
		nrCols   int
		mappings []RowSeatClassMapping
		field    string
	}{
		{"missing row", 3, 2, []RowSeatClassMapping{{Rows: []int{1, 2}, SeatClass: 4}}, "seatConfiguration"},
		{"row assigned twice", 2, 2, []RowSeatClassMapping{{Rows: []int{1, 2}, SeatClass: 4}, {Rows: []int{2}, SeatClass: 1}}, "seatConfiguration"},
		{"row out of range", 2, 2, []RowSeatClassMapping{{Rows: []int{1, 2, 3}, SeatClass: 4}}, "seatConfiguration"},
		{"unknown class", 1, 2, []RowSeatClassMapping{{Rows: []int{1}, SeatClass: 9}}, "seatConfiguration"},
		{"too many rows", 201, 2, nil, "nrRows"},
		{"too many columns", 2, 27, nil, "nrColumns"},
		{"no columns", 2, 0, nil, "nrColumns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSeats(tt.nrRows, tt.nrCols, tt.mappings, knownClasses)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestConfiguration_GroupsRowsByClass(t *testing.T) {
	seats, err := GenerateSeats(5, 2, []RowSeatClassMapping{
		{Rows: []int{5, 3, 4}, SeatClass: 4},
		{Rows: []int{2, 1}, SeatClass: 1},
	}, knownClasses)
	require.NoError(t, err)

	assert.Equal(t, []RowSeatClassMapping{
		{Rows: []int{1, 2}, SeatClass: 1},
		{Rows: []int{3, 4, 5}, SeatClass: 4},
	}, Configuration(seats))
}

func TestSameLayout(t *testing.T) {
	seats, err := GenerateSeats(3, 2, []RowSeatClassMapping{
		{Rows: []int{1}, SeatClass: 2},
		{Rows: []int{2, 3}, SeatClass: 4},
	}, knownClasses)
	require.NoError(t, err)

	tests := []struct {
		name     string
		mappings []RowSeatClassMapping
		same     bool
	}{
		{"identical", []RowSeatClassMapping{{Rows: []int{1}, SeatClass: 2}, {Rows: []int{2, 3}, SeatClass: 4}}, true},
		{"reordered and split", []RowSeatClassMapping{{Rows: []int{3}, SeatClass: 4}, {Rows: []int{1}, SeatClass: 2}, {Rows: []int{2}, SeatClass: 4}}, true},
		{"class changed", []RowSeatClassMapping{{Rows: []int{1, 2}, SeatClass: 2}, {Rows: []int{3}, SeatClass: 4}}, false},
		{"row missing", []RowSeatClassMapping{{Rows: []int{1}, SeatClass: 2}, {Rows: []int{2}, SeatClass: 4}}, false},
		{"extra row", []RowSeatClassMapping{{Rows: []int{1}, SeatClass: 2}, {Rows: []int{2, 3, 4}, SeatClass: 4}}, false},
		{"row repeated", []RowSeatClassMapping{{Rows: []int{1}, SeatClass: 2}, {Rows: []int{2, 3, 3}, SeatClass: 4}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, SameLayout(seats, tt.mappings))
		})
	}
}
