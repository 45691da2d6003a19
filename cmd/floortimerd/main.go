package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mesworks/floortimer/internal/api"
	"github.com/mesworks/floortimer/internal/config"
	"github.com/mesworks/floortimer/internal/controller"
	"github.com/mesworks/floortimer/internal/guard"
	"github.com/mesworks/floortimer/internal/recovery"
	"github.com/mesworks/floortimer/internal/report"
	"github.com/mesworks/floortimer/internal/store"
)

func main() {
	// check for argument to determine config location
	argPath := "/etc/floortimer/config.toml"
	if len(os.Args) > 1 {
		argPath = os.Args[1]
	}

	cfgMgr, err := config.NewManager(argPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("no config at %s, using floor defaults", argPath)
			cfgMgr = config.NewStaticManager(config.Config{})
		} else {
			log.Fatal("failed to load config: ", err)
		}
	} else {
		log.Println("using config file at:", argPath)
	}
	cfg := cfgMgr.Current()

	st, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatal("failed to open store: ", err)
	}

	ctrl := controller.New(st)
	rec := recovery.New(st, ctrl)
	limitGuard := guard.New(st, ctrl, cfgMgr)
	aggregator := report.New(st, cfgMgr)
	server := api.New(ctrl, limitGuard, rec, aggregator)

	// Sessions left running across an outage are checkpointed as of the last
	// heartbeat before anything else touches them.
	if err := rec.CrashSweep(time.Now().UTC()); err != nil {
		log.Fatal("crash sweep failed: ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown, SIGHUP reloads config
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for s := range sig {
			if s == syscall.SIGHUP {
				if err := cfgMgr.Reload(); err != nil {
					log.Println("config reload failed:", err)
				} else {
					log.Println("config reloaded")
				}
				continue
			}
			cancel()
			return
		}
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := limitGuard.Run(ctx); err != nil {
			log.Println("limit guard error:", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("listening on", cfg.Listen)
		if err := server.Listen(cfg.Listen); err != nil {
			log.Println("api server error:", err)
			cancel()
		}
	}()

	<-ctx.Done()
	if err := server.Shutdown(); err != nil {
		log.Println("api shutdown error:", err)
	}
	wg.Wait()
	fmt.Println("shutdown complete")
}
