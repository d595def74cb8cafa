package main

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/config"
	"github.com/mxkwnz/Mangekyo-Films/internal/database"
	"github.com/mxkwnz/Mangekyo-Films/internal/handler"
	"github.com/mxkwnz/Mangekyo-Films/internal/middleware"
	"github.com/mxkwnz/Mangekyo-Films/internal/queue"
	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
	"github.com/mxkwnz/Mangekyo-Films/internal/reservation"
	"github.com/mxkwnz/Mangekyo-Films/internal/router"
	"github.com/mxkwnz/Mangekyo-Films/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables the availability cache
	// and the rate limiter but the API keeps working.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; availability cache and rate limiting disabled")
	}

	halls := repository.NewHallRepo(db)
	sessions := repository.NewSessionRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	payments := repository.NewPaymentRepo(db)

	availCfg := config.LoadAvailabilityConfig()
	var avail *reservation.Availability
	if availCfg.Enabled {
		avail = reservation.NewAvailability(rdb, availCfg.TTL, availCfg.Prefix)
	}
	engine := reservation.NewEngine(bookings, sessions, halls, avail)
	wallet := service.NewWallet(db, users, payments)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	bookingH := handler.NewBookingHandler(engine, wallet, bookings, sessions, halls)
	publicH := handler.NewPublicHandler(sessions, halls, engine)
	adminH := handler.NewAdminCatalogHandler(halls, sessions)
	walletH := handler.NewWalletHandler(wallet)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterPublic(e, publicH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterCustomer(e, bookingH, walletH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, bookingH, cfg.JWTSecret)

	// Records booking events to logs/booking.log; reconnects on its own.
	go queue.StartBookingConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
