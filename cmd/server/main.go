package main // Entry point package

import (
	"context"   // shutdown deadline and startup checks
	"errors"    // errors recognises http.ErrServerClosed
	"net/http"  // net/http sentinel for a clean shutdown
	"os"        // process signals
	"os/signal" // signal.NotifyContext for graceful shutdown
	"syscall"   // SIGTERM
	"time"      // shutdown timeout

	"github.com/labstack/echo/v4"                      // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"    // Recover and RequestID
	"go.uber.org/zap"                                  // structured logging

	"github.com/iliyamo/lab-equipment-reservation/internal/chat"        // conversation threads
	"github.com/iliyamo/lab-equipment-reservation/internal/client"      // remote API clients
	"github.com/iliyamo/lab-equipment-reservation/internal/config"      // env config
	"github.com/iliyamo/lab-equipment-reservation/internal/database"    // MySQL connection and migration
	"github.com/iliyamo/lab-equipment-reservation/internal/handler"     // HTTP handlers
	"github.com/iliyamo/lab-equipment-reservation/internal/logger"      // zap constructor
	"github.com/iliyamo/lab-equipment-reservation/internal/middleware"  // auth, logging, rate limiting
	"github.com/iliyamo/lab-equipment-reservation/internal/queue"       // audit consumer
	"github.com/iliyamo/lab-equipment-reservation/internal/repository"  // refresh tokens
	"github.com/iliyamo/lab-equipment-reservation/internal/reservation" // workflow guards
	"github.com/iliyamo/lab-equipment-reservation/internal/router"      // route registration
	"github.com/iliyamo/lab-equipment-reservation/internal/service"     // event publisher
	"github.com/iliyamo/lab-equipment-reservation/internal/session"     // Redis sessions
	"github.com/iliyamo/lab-equipment-reservation/internal/utils"       // request validator
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		// the logger is not built yet; report and stop
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Must(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Remote APIs
	resAPI, err := client.NewReservationClient(cfg.ReservationAPIURL, cfg.HTTPTimeout, log)
	if err != nil {
		log.Fatal("reservation api client", zap.Error(err))
	}
	sheets, err := client.NewSheetClient(cfg.SheetAPIURL, cfg.HTTPTimeout, log)
	if err != nil {
		log.Fatal("sheet api client", zap.Error(err))
	}

	// Redis is mandatory: it holds the current-user sessions.
	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()
	sessions := session.NewStore(rdb, cfg.SessionTTL)

	// MySQL keeps the hashed refresh tokens.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("mysql unavailable", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("migrate refresh_tokens", zap.Error(err))
	}
	tokens := repository.NewTokenRepo(db)

	// Events are best effort.  A nil publisher disables them.
	var events reservation.Publisher
	if cfg.EventsEnabled {
		events = service.NewEventPublisher(cfg.RabbitURL, log)
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	wf := reservation.NewWorkflow(resAPI, events, log)
	messenger := chat.NewMessenger(resAPI, events, log)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = utils.NewValidator(nil)
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(log))

	gd := router.Guards{
		Auth:  middleware.JWTAuth(cfg.JWTSecret, sessions),
		Limit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	}

	router.RegisterRoutes(e, map[string]handler.HealthCheck{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"mysql": db.PingContext,
	})
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, sheets, sessions, tokens, log), gd)
	router.RegisterReservations(e, handler.NewReservationHandler(resAPI, wf, messenger, log), gd)
	router.RegisterStaff(e,
		handler.NewStaffReservationHandler(resAPI, resAPI, wf, log),
		handler.NewSheetHandler(sheets, resAPI, log),
		gd,
	)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
