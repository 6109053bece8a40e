package main

import (
	"context"
	"fmt"
	"strings"

	"flightbooker/internal/airline"
	"flightbooker/internal/airplane"
	"flightbooker/internal/airport"
	"flightbooker/internal/apperr"
	"flightbooker/pkg/db"
	"flightbooker/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type seeder struct {
	airports  *airport.Service
	airplanes *airplane.Service
	airlines  *airline.Service
	log       logger.Client
}

// run inserts whatever part of data is not stored yet. Airports match on
// code, airplanes on brand and model, airlines on name.
func (s *seeder) run(ctx context.Context, data *dataset) error {
	if err := s.seedAirports(ctx, data.Airports); err != nil {
		return err
	}
	if err := s.seedAirplanes(ctx, data.Airplanes); err != nil {
		return err
	}
	return s.seedAirlines(ctx, data.Airlines)
}

func (s *seeder) seedAirports(ctx context.Context, rows []airportRow) error {
	for _, row := range rows {
		_, err := s.airports.Get(ctx, row.Code)
		if err == nil {
			s.log.Debug("seed_airport_exists", logger.Field{Key: "airport_code", Value: row.Code})
			continue
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if err := s.airports.Create(ctx, row.airport()); err != nil {
			return fmt.Errorf("airport %s: %w", row.Code, err)
		}
	}
	return nil
}

func (s *seeder) seedAirplanes(ctx context.Context, rows []airplaneRow) error {
	existing, err := s.airplanes.List(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a.Brand+"/"+a.Model] = true
	}

	for _, row := range rows {
		if have[row.Brand+"/"+row.Model] {
			s.log.Debug("seed_airplane_exists", logger.Field{Key: "brand", Value: row.Brand}, logger.Field{Key: "model", Value: row.Model})
			continue
		}
		req, err := row.request()
		if err != nil {
			return err
		}
		if _, err := s.airplanes.Create(ctx, req); err != nil {
			return fmt.Errorf("airplane %s %s: %w", row.Brand, row.Model, err)
		}
		have[row.Brand+"/"+row.Model] = true
	}
	return nil
}

func (s *seeder) seedAirlines(ctx context.Context, rows []airlineRow) error {
	existing, err := s.airlines.List(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a.Name] = true
	}

	for _, row := range rows {
		if have[row.Name] {
			s.log.Debug("seed_airline_exists", logger.Field{Key: "name", Value: row.Name})
			continue
		}
		if _, err := s.airlines.Create(ctx, row.request()); err != nil {
			return fmt.Errorf("airline %s: %w", row.Name, err)
		}
		have[row.Name] = true
	}
	return nil
}

// upsertAdmin creates a confirmed Admin or promotes the account already
// registered under email, resetting its password.
func upsertAdmin(ctx context.Context, q db.Querier, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	username, _, _ := strings.Cut(email, "@")

	if _, err := q.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, username, password_hash, role, email_confirmed)
		VALUES ($1, 'Admin', 'Admin', $2, $3, $4, 'Admin', TRUE)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, role = 'Admin', email_confirmed = TRUE`,
		uuid.NewString(), email, username, string(hash)); err != nil {
		return fmt.Errorf("upsert admin %s: %w", email, err)
	}
	if _, err := q.ExecContext(ctx, `
		DELETE FROM airline_operators WHERE user_id = (SELECT id FROM users WHERE email = $1)`, email); err != nil {
		return fmt.Errorf("clear operator link of %s: %w", email, err)
	}
	return nil
}
