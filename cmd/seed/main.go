// Command seed inserts a demo theatre with two screens and a few shows,
// then prints a CUSTOMER access token for trying the booking API.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/database"
	"github.com/iliyamo/cinema-seat-booking/internal/logging"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/router"
	"github.com/iliyamo/cinema-seat-booking/internal/utils"
)

func main() {
	userID := flag.Uint64("user", 1001, "user id embedded in the printed token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBDriver, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	theatres := repository.NewTheatreRepo(db)
	shows := repository.NewShowRepo(db)

	th := &model.Theatre{Name: "Grand Cinema", Location: "Main Street 1"}
	if err := theatres.Create(ctx, th); err != nil {
		log.WithError(err).Fatal("create theatre")
	}
	screens := []model.Screen{
		{TheatreID: th.ID, Number: 1, Rows: 5, Cols: 5},
		{TheatreID: th.ID, Number: 2, Rows: 8, Cols: 12},
	}
	for i := range screens {
		if err := theatres.CreateScreen(ctx, &screens[i]); err != nil {
			log.WithError(err).WithField("screen", screens[i].Number).Fatal("create screen")
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	demo := []model.Show{
		{TheatreID: th.ID, ScreenNumber: 1, MovieName: "Inception", Date: today, Time: "18:00"},
		{TheatreID: th.ID, ScreenNumber: 1, MovieName: "Inception", Date: today.AddDate(0, 0, 1), Time: "21:00"},
		{TheatreID: th.ID, ScreenNumber: 2, MovieName: "Interstellar", Date: today, Time: "19:30"},
	}
	for i := range demo {
		if err := shows.Create(ctx, &demo[i]); err != nil {
			log.WithError(err).WithField("movie", demo[i].MovieName).Fatal("create show")
		}
		log.WithFields(logrus.Fields{
			"show_id": demo[i].ID,
			"movie":   demo[i].MovieName,
			"screen":  demo[i].ScreenNumber,
			"date":    demo[i].Date.Format("2006-01-02"),
			"time":    demo[i].Time,
		}).Info("show created")
	}

	tok, err := utils.NewAccessToken(cfg.JWTSecret, *userID, router.CustomerRole, cfg.AccessTTLMin)
	if err != nil {
		log.WithError(err).Fatal("sign token")
	}
	log.WithFields(logrus.Fields{
		"theatre_id": th.ID,
		"user_id":    *userID,
		"expires_at": tok.Exp.Format(time.RFC3339),
		"token":      tok.Token,
	}).Info("seed complete")
}
