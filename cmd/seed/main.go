package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"flightbooker/cfg"
	"flightbooker/internal/airline"
	"flightbooker/internal/airplane"
	"flightbooker/internal/airport"
	"flightbooker/internal/seatclass"
	"flightbooker/pkg/db"
	"flightbooker/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
)

// noInvalidation stands in for the search cache, which the seeder never touches.
type noInvalidation struct{}

func (noInvalidation) Invalidate(context.Context) {}

func main() {
	dataPath := pflag.String("data", "db/seed/sample.yaml", "YAML file with airports, airplanes and airlines")
	adminEmail := pflag.String("admin-email", "", "email of the administrator to create or promote")
	adminPassword := pflag.String("admin-password", "", "password for --admin-email")
	skipMigrate := pflag.Bool("skip-migrate", false, "do not apply pending migrations first")
	pflag.Parse()

	if *adminEmail != "" && *adminPassword == "" {
		log.Fatal("--admin-password is required with --admin-email")
	}

	// ============
	// config
	// ============
	config, errCfg := cfg.Load()
	if errCfg != nil {
		log.Fatal(errCfg)
	}
	zlogger := logger.NewZeroLog(config.AppEnv)
	ctx := context.Background()

	data, err := loadDataset(*dataPath)
	if err != nil {
		log.Fatal(err)
	}

	pg := config.PostgresConfig
	pgDSN := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		pg.User, pg.Password, pg.Host, pg.Port, pg.DBName, pg.SSLMode)

	// =========
	// Migrate
	// =========
	if !*skipMigrate {
		m, err := migrate.New(pg.MigrationsPath, pgDSN)
		if err != nil {
			log.Fatal(err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal(err)
		}
	}

	sqlClient, err := db.NewSQLClient("pgx", pgDSN, db.PoolConfig{MaxOpenConns: 4})
	if err != nil {
		log.Fatal(err)
	}
	defer sqlClient.Close()

	// ============
	// Seed
	// ============
	clock := clockwork.NewRealClock()
	s := &seeder{
		airports:  airport.NewService(airport.NewRepository(sqlClient), zlogger),
		airplanes: airplane.NewService(airplane.NewRepository(sqlClient), seatclass.NewService(seatclass.NewRepository(sqlClient)), zlogger),
		airlines:  airline.NewService(airline.NewRepository(sqlClient), noInvalidation{}, clock, config.Location, zlogger),
		log:       zlogger,
	}
	if err := s.run(ctx, data); err != nil {
		log.Fatal(err)
	}

	if *adminEmail != "" {
		err := sqlClient.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
			return upsertAdmin(ctx, tx, *adminEmail, *adminPassword)
		})
		if err != nil {
			log.Fatal(err)
		}
		zlogger.Info("admin_seeded", logger.Field{Key: "email", Value: *adminEmail})
	}

	zlogger.Info("seed_completed",
		logger.Field{Key: "airports", Value: len(data.Airports)},
		logger.Field{Key: "airplanes", Value: len(data.Airplanes)},
		logger.Field{Key: "airlines", Value: len(data.Airlines)},
	)
}
