// Command consumer drains the booking event queues and appends every
// confirmed or cancelled booking to <BOOKING_LOG_DIR>/booking.log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/logging"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
)

type consumerConfig struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDir   string `env:"BOOKING_LOG_DIR" envDefault:"logs"`
	AMQP     config.AMQPConfig
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.WithError(err).Fatal("load .env")
	}
	var cfg consumerConfig
	if err := config.Parse(&cfg); err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.AMQP.URL, LogDir: cfg.LogDir, Log: log}
	log.WithField("log_dir", cfg.LogDir).Info("booking-consumer: started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("booking-consumer: stopped")
	}
	log.Info("booking-consumer: stopped")
}
