package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/booking"
	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/database"
	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/reservation"
	"github.com/iliyamo/event-ticket-booking/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	categories := repository.NewCategoryRepo(db)
	events := repository.NewEventRepo(db)
	inventory := repository.NewInventoryRepo(db)
	bookings := repository.NewBookingRepo(db)

	engine := reservation.NewEngine(inventory)
	mode := model.QuantityMode(cfg.QuantityMode)
	agg := booking.NewAggregator(mode, events, bookings, engine, inventory)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterCatalog(e, handler.NewEventHandler(events, inventory, bookings), handler.NewCategoryHandler(categories), cfg.JWTSecret, cache)
	router.RegisterSeats(e, handler.NewSeatHandler(engine, inventory), cfg.JWTSecret)
	router.RegisterBookings(e, handler.NewBookingHandler(agg), cfg.JWTSecret)

	// Booking notification consumer runs for the life of the process and
	// reconnects on its own.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, quantity_mode=%s)", addr, cfg.Env, cfg.QuantityMode)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
