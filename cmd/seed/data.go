package main

import (
	"fmt"
	"os"

	"flightbooker/internal/airline"
	"flightbooker/internal/airplane"
	"flightbooker/internal/airport"

	"gopkg.in/yaml.v3"
)

type dataset struct {
	Airports  []airportRow  `yaml:"airports"`
	Airplanes []airplaneRow `yaml:"airplanes"`
	Airlines  []airlineRow  `yaml:"airlines"`
}

type airportRow struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	City    string `yaml:"city"`
	Country string `yaml:"country"`
}

type rowRange struct {
	From      int `yaml:"from"`
	To        int `yaml:"to"`
	SeatClass int `yaml:"seatClass"`
}

type airplaneRow struct {
	Brand             string     `yaml:"brand"`
	Model             string     `yaml:"model"`
	Rows              int        `yaml:"rows"`
	Columns           int        `yaml:"columns"`
	SeatConfiguration []rowRange `yaml:"seatConfiguration"`
}

type airlineRow struct {
	Name         string `yaml:"name"`
	PhoneNumber  string `yaml:"phoneNumber"`
	EmailAddress string `yaml:"emailAddress"`
	Country      string `yaml:"country"`
}

func loadDataset(path string) (*dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed data: %w", err)
	}
	var data dataset
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed data %s: %w", path, err)
	}
	return &data, nil
}

func (a airportRow) airport() airport.Airport {
	return airport.Airport{Code: a.Code, Name: a.Name, City: a.City, Country: a.Country}
}

// request expands the inclusive row ranges. Coverage of every row is checked
// by the airplane service.
func (a airplaneRow) request() (airplane.CreateRequest, error) {
	mappings := make([]airplane.RowSeatClassMapping, 0, len(a.SeatConfiguration))
	for _, r := range a.SeatConfiguration {
		if r.From < 1 || r.To < r.From {
			return airplane.CreateRequest{}, fmt.Errorf("%s %s: invalid row range %d-%d", a.Brand, a.Model, r.From, r.To)
		}
		rows := make([]int, 0, r.To-r.From+1)
		for row := r.From; row <= r.To; row++ {
			rows = append(rows, row)
		}
		mappings = append(mappings, airplane.RowSeatClassMapping{Rows: rows, SeatClass: r.SeatClass})
	}
	return airplane.CreateRequest{
		Brand:             a.Brand,
		Model:             a.Model,
		NrRows:            a.Rows,
		NrColumns:         a.Columns,
		SeatConfiguration: mappings,
	}, nil
}

func (a airlineRow) request() airline.Request {
	return airline.Request{
		Name:         a.Name,
		PhoneNumber:  a.PhoneNumber,
		EmailAddress: a.EmailAddress,
		Country:      a.Country,
	}
}
