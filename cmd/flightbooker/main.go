package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightbooker/cfg"
	_ "flightbooker/docs" // swagger docs
	"flightbooker/internal/airline"
	"flightbooker/internal/airplane"
	"flightbooker/internal/airport"
	"flightbooker/internal/apperr"
	"flightbooker/internal/auth"
	"flightbooker/internal/complaint"
	"flightbooker/internal/notification"
	"flightbooker/internal/reservation"
	"flightbooker/internal/route"
	"flightbooker/internal/seatclass"
	"flightbooker/internal/user"
	"flightbooker/pkg/cache"
	"flightbooker/pkg/db"
	"flightbooker/pkg/idgen"
	"flightbooker/pkg/logger"
	"flightbooker/pkg/mailer"
	"flightbooker/pkg/oauth2"
	"flightbooker/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jonboulle/clockwork"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const defaultServiceName = "flightbooker"

// @title        FlightBooker API
// @version      1.0
// @description  Flight scheduling, seat search and booking.
// @BasePath     /
func main() {
	// ============
	// config
	// ============
	config, errCfg := cfg.Load()
	if errCfg != nil {
		log.Fatal(errCfg)
	}

	// ============
	// logger
	// ============
	zlogger := logger.NewZeroLog(config.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ============
	// Otel
	// ============
	serviceName := defaultServiceName
	if config.ObservabilityConfig != nil {
		serviceName = config.ObservabilityConfig.ServiceName
		shutdownOtel, err := initOtel(ctx, config.ObservabilityConfig, config.AppEnv, zlogger)
		if err != nil {
			zlogger.Warn("otel_init_failed", logger.Err(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownOtel(ctx); err != nil {
					zlogger.Error("otel_shutdown_failed", logger.Err(err))
				}
			}()
		}
	}

	// ============
	// Build Postgres DSN from config
	// ============
	pg := config.PostgresConfig
	pgDSN := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		pg.User,
		pg.Password,
		pg.Host,
		pg.Port,
		pg.DBName,
		pg.SSLMode,
	)

	// ============
	// Init DB client
	// ============
	sqlClient, err := db.NewSQLClient("pgx", pgDSN, db.PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer sqlClient.Close()

	// =========
	// Migrate
	// =========
	m, err := migrate.New(pg.MigrationsPath, pgDSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal(err)
	}

	// ============
	// Cache + sessions
	// ============
	clock := clockwork.NewRealClock()
	redisClient := cache.NewRedisClient(config.RedisConfig.Host+":"+config.RedisConfig.Port, config.RedisConfig.Password)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis unreachable: %v", err)
	}
	searches := route.NewSearchCache(cache.NewRedisCache(redisClient), config.CacheTTLMinutes, zlogger)
	sessions := session.NewRedisStore(redisClient, clock)

	// ============
	// Notifications
	// ============
	var sender mailer.Sender = mailer.NewLogSender(zlogger)
	if smtp := config.SMTPConfig; smtp.Host != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			Username: smtp.Username,
			Password: smtp.Password,
			From:     smtp.From,
		})
	}
	dispatcher := notification.NewDispatcher(sender, zlogger, 30*time.Second)

	// ============
	// Services
	// ============
	ids, err := idgen.NewSnowflakeGenerator(config.SnowflakeNodeID)
	if err != nil {
		log.Fatal(err)
	}

	classes := seatclass.NewService(seatclass.NewRepository(sqlClient))
	airports := airport.NewService(airport.NewRepository(sqlClient), zlogger)
	airplanes := airplane.NewService(airplane.NewRepository(sqlClient), classes, zlogger)
	airlines := airline.NewService(airline.NewRepository(sqlClient), searches, clock, config.Location, zlogger)
	routes := route.NewService(route.NewRepository(sqlClient), searches, dispatcher, clock, config.Location, zlogger)
	reservations := reservation.NewService(reservation.NewRepository(sqlClient), ids, searches, dispatcher,
		clock, config.Location, zlogger)
	complaints := complaint.NewService(complaint.NewRepository(sqlClient), ids, dispatcher, clock, zlogger)
	users := user.NewService(user.NewRepository(sqlClient), searches, zlogger)
	accounts := auth.NewService(
		auth.NewRepository(sqlClient),
		auth.NewConfirmationTokens(config.AuthConfig.TokenSecret, clock),
		sessions,
		dispatcher,
		auth.ServiceConfig{SessionTTL: config.AuthConfig.SessionTTL, PublicURL: config.PublicURL},
		zlogger,
	)

	// ============
	// Oauth2
	// ============
	oauth2mgr, err := oauth2.NewManager(ctx, config.GoogleOAuth2, config.GitHubOAuth2, clock)
	if err != nil {
		log.Fatal(err)
	}
	defer oauth2mgr.Close()
	var providers auth.SocialProviders
	if enabled := oauth2mgr.Providers(); len(enabled) > 0 {
		providers = oauth2mgr
		zlogger.Info("social_login_enabled", logger.Field{Key: "providers", Value: enabled})
	}

	// ============
	// HTTP
	// ============
	apperr.UseJSONFieldNames()
	if config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(TraceLoggerMiddleware(zlogger))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/docs", apiReference)
	r.GET("/healthz", healthz(sqlClient, redisClient))

	guard := auth.NewMiddleware(sessions, users, zlogger)

	auth.NewHandler(accounts, providers, config.AppEnv == "production").RegisterRoutes(r)
	seatclass.NewHandler(classes).RegisterRoutes(r)
	airport.NewHandler(airports).RegisterRoutes(r, guard)
	airplane.NewHandler(airplanes).RegisterRoutes(r, guard)
	airline.NewHandler(airlines).RegisterRoutes(r, guard)
	route.NewHandler(routes).RegisterRoutes(r, guard)
	reservation.NewHandler(reservations).RegisterRoutes(r, guard)
	complaint.NewHandler(complaints).RegisterRoutes(r, guard)
	user.NewHandler(users).RegisterRoutes(r, guard)

	srv := &http.Server{
		Addr:              ":" + config.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	zlogger.Info("server_started", logger.Field{Key: "port", Value: config.AppPort})

	<-ctx.Done()
	zlogger.Info("server_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlogger.Error("server_shutdown_failed", logger.Err(err))
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		zlogger.Warn("pending_notifications_dropped", logger.Err(err))
	}
}
