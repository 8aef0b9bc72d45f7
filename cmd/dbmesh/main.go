package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/dbmesh/dbmesh/backend"
	"github.com/dbmesh/dbmesh/cache"
	"github.com/dbmesh/dbmesh/config"
	"github.com/dbmesh/dbmesh/metrics"
	"github.com/dbmesh/dbmesh/route"
	"github.com/dbmesh/dbmesh/server"
)

func main() {
	configPath := flag.String("config", "config.ini", "Path to configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	// A positional address overrides the configured listener.
	if addr := flag.Arg(0); addr != "" {
		cfg.Server.Listen = addr
	}

	router, err := route.Load(cfg.Rules.Path)
	if err != nil {
		logger.Fatal("rules load failed", zap.String("path", cfg.Rules.Path), zap.Error(err))
	}
	routes := route.NewHolder(router)

	// Initialize metrics
	metrics.Init()

	// Start metrics HTTP server with pprof
	go func() {
		http.Handle("/metrics", metrics.Handler())
		logger.Info("metrics endpoint up",
			zap.String("metrics", cfg.Metrics.Listen+"/metrics"),
			zap.String("pprof", cfg.Metrics.Listen+"/debug/pprof/"))
		if err := http.ListenAndServe(cfg.Metrics.Listen, nil); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	queryCache, err := cache.New(cfg.Cache.MaxSize)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	defer queryCache.Close()

	backends := backend.NewManager(logger.Named("backend"), backend.Config{
		CheckoutTimeout: cfg.Backend.CheckoutTimeout,
		QueryTimeout:    cfg.Backend.QueryTimeout,
		MaxOpenConns:    cfg.Backend.MaxOpenConns,
		MaxIdleConns:    cfg.Backend.MaxIdleConns,
		ConnMaxLifetime: cfg.Backend.ConnMaxLifetime,
	})
	defer backends.Close()
	for _, dsCfg := range cfg.Datasources {
		ds, err := backend.ParseURL(dsCfg.Name, dsCfg.URL)
		if err != nil {
			logger.Fatal("datasource parse failed", zap.String("datasource", dsCfg.Name), zap.Error(err))
		}
		for i, replicaURL := range dsCfg.Replicas {
			replica, err := backend.ParseURL(replicaName(dsCfg.Name, i), replicaURL)
			if err != nil {
				logger.Fatal("replica parse failed", zap.String("datasource", dsCfg.Name), zap.Error(err))
			}
			ds.Replicas = append(ds.Replicas, replica)
		}
		if err := backends.Add(ds); err != nil {
			logger.Fatal("datasource open failed", zap.String("datasource", dsCfg.Name), zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backends.StartHealthChecks(ctx, cfg.Backend.HealthCheckInterval)

	srv := server.New(cfg.Server, logger.Named("server"), routes, backends, queryCache)
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	logger.Info("dbmesh started", zap.String("listen", cfg.Server.Listen))

	// Handle signals: SIGHUP reloads the routing rules, INT/TERM stop.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGHUP:
			logger.Info("reloading routing rules", zap.String("path", cfg.Rules.Path))
			newRouter, err := route.Load(cfg.Rules.Path)
			if err != nil {
				logger.Warn("rules reload failed", zap.Error(err))
				continue
			}
			routes.Swap(newRouter)
			logger.Info("routing rules reloaded")

		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("shutting down")
			srv.Close()
			return
		}
	}
}

func replicaName(datasource string, i int) string {
	return datasource + "-replica" + strconv.Itoa(i+1)
}
