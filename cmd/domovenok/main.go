// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command domovenok runs the furniture-store chat assistant server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/DomovenokAI/domovenok/services/chatapi"
	"github.com/DomovenokAI/domovenok/services/dialog"
	"github.com/DomovenokAI/domovenok/services/dialog/config"
	badgerstore "github.com/DomovenokAI/domovenok/services/dialog/storage/badger"
	"github.com/DomovenokAI/domovenok/services/speech"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	configPath := flag.String("config", "", "Bot configuration YAML (empty uses the embedded default)")
	corpusPath := flag.String("corpus", "", "Dialogue corpus file (empty disables the corpus matcher)")
	userRPS := flag.Float64("user-rps", 5, "Sustained per-user request rate (0 disables limiting)")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagator so trace context flows from incoming HTTP
	// headers through all handlers and middleware.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Corpus parse cache in BadgerDB. Graceful degradation: if the cache
	// directory is unavailable, the corpus is simply re-parsed at startup.
	var corpusStore dialog.CorpusCacheStore
	var corpusDB *badgerstore.DB
	cacheDir := os.Getenv("CORPUS_CACHE_DIR")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cacheDir = filepath.Join(home, ".domovenok", "cache", "corpus")
		}
	}
	if cacheDir != "" && *corpusPath != "" {
		dbCfg := badgerstore.DefaultConfig()
		dbCfg.Path = cacheDir
		db, err := badgerstore.OpenDB(dbCfg)
		if err != nil {
			slog.Warn("Corpus cache BadgerDB unavailable, parse caching disabled",
				slog.String("path", cacheDir),
				slog.String("error", err.Error()),
			)
		} else {
			corpusDB = db
			corpusStore = dialog.NewBadgerCorpusCacheStore(db, 0, slog.Default())
			slog.Info("Corpus cache BadgerDB opened", slog.String("path", cacheDir))
		}
	}

	var pairs []dialog.Pair
	if *corpusPath != "" {
		raw, err := os.ReadFile(*corpusPath)
		if err != nil {
			slog.Error("Failed to read corpus file",
				slog.String("path", *corpusPath),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		pairs, err = dialog.LoadCorpus(context.Background(), raw, corpusStore)
		if err != nil {
			slog.Error("Failed to parse corpus", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		slog.Warn("No corpus file given, corpus matcher disabled")
	}

	// Speech backends are optional. Without an API key, voice messages get
	// the fixed recognition-failure reply and all replies go out as text.
	var engineOpts []dialog.EngineOption
	var handlerOpts []chatapi.HandlersOption
	if speechClient, err := speech.NewHTTPClient(); err == nil {
		engineOpts = append(engineOpts, dialog.WithRecognizer(speechClient))
		handlerOpts = append(handlerOpts, chatapi.WithSynthesizer(speechClient))
	}

	engine, err := dialog.NewEngine(cfg, pairs, engineOpts...)
	if err != nil {
		slog.Error("Failed to assemble engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Train in the background; the readiness guard serves 503 until done.
	go func() {
		if err := engine.Train(context.Background()); err != nil {
			slog.Error("Engine training failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	handlers := chatapi.NewHandlers(engine, handlerOpts...)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("domovenok-chat"))
	if *debug {
		router.Use(gin.Logger())
	}

	var limiter *chatapi.UserRateLimiter
	if *userRPS > 0 {
		limiter = chatapi.NewUserRateLimiter(*userRPS, int(*userRPS)*2)
	}

	v1 := router.Group("/v1")
	chatapi.RegisterRoutes(v1, handlers, limiter)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Domovenok chat server")
		if corpusDB != nil {
			if err := corpusDB.Close(); err != nil {
				slog.Warn("Failed to close corpus cache BadgerDB", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Domovenok chat server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(port int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                     DOMOVENOK CHAT SERVER                         ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Retrieval-based chat assistant for the furniture storefront.     ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/chat/health                   │  ║
║  │                                                             │  ║
║  │ # Ask a question                                            │  ║
║  │ curl -X POST http://localhost:%d/v1/chat/respond \        │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"user_id": "u1", "text": "есть ли диваны?"}'         │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, port, port)
}
