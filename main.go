package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		// No logger yet.
		println("config error:", err.Error())
		os.Exit(1)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		println("logger error:", err.Error())
		os.Exit(1)
	}
	defer log.Sync()

	content, err := LoadContent(cfg.Game.ContentPath)
	if err != nil {
		log.Fatal("load content", zap.Error(err))
	}
	layout, err := LoadLayout(cfg.Game.LayoutPath, content)
	if err != nil {
		log.Warn("layout fallback", zap.Error(err))
	}

	rec, err := NewRecorder(cfg.Database.Path, log)
	if err != nil {
		log.Fatal("open recorder", zap.Error(err))
	}
	if rec != nil {
		defer rec.Close()
	}

	mm := NewMatchManager(cfg, content, layout, rec, log)
	hub := NewHub(cfg, mm, log)
	srv := NewServer(cfg, hub, mm, rec, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go mm.Run(ctx)
	go hub.Run(ctx)

	httpSrv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: srv.Routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("map", layout.Name),
		zap.Int("tick_rate", cfg.Game.TickRate))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("serve", zap.Error(err))
	}
	log.Info("shutdown complete")
}
