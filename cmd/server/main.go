package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/avetikov/event-ticketing/internal/config"
	"github.com/avetikov/event-ticketing/internal/database"
	"github.com/avetikov/event-ticketing/internal/handler"
	"github.com/avetikov/event-ticketing/internal/middleware"
	"github.com/avetikov/event-ticketing/internal/queue"
	"github.com/avetikov/event-ticketing/internal/repository"
	"github.com/avetikov/event-ticketing/internal/router"
	"github.com/avetikov/event-ticketing/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if cfg.Env == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is absent; cache and limiter degrade

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	bookings := repository.NewBookingRepo(db)
	waitlist := repository.NewWaitlistRepo(db)

	notifier := queue.NewPublisher(cfg.AMQPURL, log)
	go queue.StartNotificationConsumer(cfg.AMQPURL, log)

	engine := service.NewEngine(db, users, tickets, bookings, waitlist, notifier, log)
	catalog := service.NewCatalog(db, events, tickets, bookings, waitlist, notifier, log)
	accounts := service.NewAccounts(db, users, tokens, events, tickets, bookings, waitlist, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterHealth(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg, users, tokens),
		handler.NewProfileHandler(users, accounts),
		cfg.JWTSecret,
		middleware.NewRateLimit(config.LoadRateLimitConfig(), rdb))
	router.RegisterPublic(e,
		handler.NewPublicHandler(events, tickets),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterOrganizer(e,
		handler.NewOrganizerHandler(catalog, events, tickets, bookings, waitlist),
		cfg.JWTSecret)
	router.RegisterCustomer(e,
		handler.NewBookingHandler(engine, bookings),
		handler.NewWaitlistHandler(engine, waitlist),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
