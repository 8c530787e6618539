package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/database"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/logging"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/router"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBDriver, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; rate limiting and response caching disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQP.Enabled {
		events = queue.NewPublisher(cfg.AMQP.URL, log)
	}

	theatres := repository.NewTheatreRepo(db)
	shows := repository.NewShowRepo(db)
	bookings := repository.NewBookingRepo(db)
	svc := service.NewBookingService(shows, theatres, bookings, events, log)

	e := router.New(router.Deps{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Redis:     rdb,
		Log:       log,
		DB:        db,
		Bookings:  handler.NewBookingHandler(svc, log),
		Public:    &handler.PublicHandler{Theatres: theatres, Shows: shows, Log: log},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	// let in-flight booking events reach the broker before exiting
	svc.Wait()
}
