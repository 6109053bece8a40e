package airplane

import (
	"fmt"
	"maps"
	"slices"

	"flightbooker/internal/apperr"
)

const (
	MaxRows    = 200
	MaxColumns = 26
)

// RowSeatClassMapping assigns whole rows to one cabin class.
type RowSeatClassMapping struct {
	Rows      []int `json:"rows" binding:"required,min=1"`
	SeatClass int   `json:"seatClass" binding:"required"`
}

type Seat struct {
	ID          int64  `json:"airplaneSeatId"`
	AirplaneID  int64  `json:"airplaneId"`
	Row         int    `json:"row"`
	Column      string `json:"column"`
	SeatClassID int    `json:"seatClassId"`
}

// Label renders the seat as "12C".
func (s Seat) Label() string {
	return fmt.Sprintf("%d%s", s.Row, s.Column)
}

// ColumnLetter returns the letter of the 0-based column index.
func ColumnLetter(i int) string {
	return string(rune('A' + i))
}

// rowClasses checks that mappings cover rows 1..nrRows exactly once with known
// classes and returns the class of each row, indexed from 1.
func rowClasses(nrRows int, mappings []RowSeatClassMapping, known map[int]string) ([]int, error) {
	classes := make([]int, nrRows+1)
	for _, m := range mappings {
		if _, ok := known[m.SeatClass]; !ok {
			return nil, apperr.Validation("seatConfiguration", "Seat class %d does not exist.", m.SeatClass)
		}
		for _, row := range m.Rows {
			if row < 1 || row > nrRows {
				return nil, apperr.Validation("seatConfiguration", "Row %d is outside 1..%d.", row, nrRows)
			}
			if classes[row] != 0 {
				return nil, apperr.Validation("seatConfiguration", "Row %d is assigned more than once.", row)
			}
			classes[row] = m.SeatClass
		}
	}
	for row := 1; row <= nrRows; row++ {
		if classes[row] == 0 {
			return nil, apperr.Validation("seatConfiguration", "Row %d has no seat class.", row)
		}
	}
	return classes, nil
}

// GenerateSeats materializes one seat per row and column with the class its row
// is mapped to.
func GenerateSeats(nrRows, nrColumns int, mappings []RowSeatClassMapping, known map[int]string) ([]Seat, error) {
	if nrRows < 1 || nrRows > MaxRows {
		return nil, apperr.Validation("nrRows", "The number of rows must be between 1 and %d.", MaxRows)
	}
	if nrColumns < 1 || nrColumns > MaxColumns {
		return nil, apperr.Validation("nrColumns", "The number of columns must be between 1 and %d.", MaxColumns)
	}

	classes, err := rowClasses(nrRows, mappings, known)
	if err != nil {
		return nil, err
	}

	seats := make([]Seat, 0, nrRows*nrColumns)
	for row := 1; row <= nrRows; row++ {
		for col := 0; col < nrColumns; col++ {
			seats = append(seats, Seat{Row: row, Column: ColumnLetter(col), SeatClassID: classes[row]})
		}
	}
	return seats, nil
}

// Configuration groups rows by class, in class id order. A row's class is
// taken from its first seat.
func Configuration(seats []Seat) []RowSeatClassMapping {
	byClass := map[int][]int{}
	seen := map[int]bool{}
	for _, s := range seats {
		if seen[s.Row] {
			continue
		}
		seen[s.Row] = true
		byClass[s.SeatClassID] = append(byClass[s.SeatClassID], s.Row)
	}

	classIDs := make([]int, 0, len(byClass))
	for id := range byClass {
		classIDs = append(classIDs, id)
	}
	slices.Sort(classIDs)

	out := make([]RowSeatClassMapping, 0, len(classIDs))
	for _, id := range classIDs {
		rows := byClass[id]
		slices.Sort(rows)
		out = append(out, RowSeatClassMapping{Rows: rows, SeatClass: id})
	}
	return out
}

// SameLayout reports whether mappings give every row of seats the class it
// already has, regardless of how the rows are grouped or ordered.
func SameLayout(seats []Seat, mappings []RowSeatClassMapping) bool {
	stored := map[int]int{}
	for _, m := range Configuration(seats) {
		for _, row := range m.Rows {
			stored[row] = m.SeatClass
		}
	}
	requested := map[int]int{}
	for _, m := range mappings {
		for _, row := range m.Rows {
			if _, dup := requested[row]; dup {
				return false
			}
			requested[row] = m.SeatClass
		}
	}
	return maps.Equal(stored, requested)
}
