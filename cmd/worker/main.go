package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canopus-software/aoede-backend/config"
	"github.com/canopus-software/aoede-backend/internal/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	reaper := sandbox.NewReaper(cfg.Sandbox.BaseDir, time.Duration(cfg.Sandbox.ReapHours)*time.Hour)

	// Sweep once on startup, then on the cron schedule.
	reaper.Sweep()
	c := reaper.Start()
	defer c.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("worker shutting down")
}
