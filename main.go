package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"coinwatch/config"
	"coinwatch/database"
	"coinwatch/ingest"
	"coinwatch/jobs"
	"coinwatch/notify"
	"coinwatch/routes"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment")
	}

	cfg := config.Load()
	database.Connect()
	st := store.NewGormStore(database.DB)

	hub := notify.NewHub()
	go hub.Run()

	push := notify.NewPushSender(st, cfg)
	dispatcher := notify.NewDispatcher(hub, push, st, cfg)
	svc := ingest.NewService(st, dispatcher, cfg)

	host := os.Getenv("HOST")
	port := os.Getenv("PORT")

	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3000"
	}

	app := fiber.New()
	routes.Setup(app, routes.Deps{
		Cfg:   cfg,
		Store: st,
		Svc:   svc,
		Hub:   hub,
		Push:  push,
	})
	jobs.StartHeartbeatWatchdog(svc)

	addr := fmt.Sprintf("%s:%s", host, port)
	log.Println("Server running at", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Panicf("Failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Gracefully shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited cleanly")
}
