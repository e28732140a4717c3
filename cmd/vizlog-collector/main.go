package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vizlog/vizlog/internal/applog"
	"github.com/vizlog/vizlog/internal/config"
	"github.com/vizlog/vizlog/internal/destination"
	"github.com/vizlog/vizlog/internal/rules"
	"github.com/vizlog/vizlog/internal/server"
	"github.com/vizlog/vizlog/internal/version"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	testConfigShort := flag.Bool("t", false, "Test configuration and exit (nginx style)")
	testConfigLong := flag.Bool("test", false, "Test configuration and exit (nginx style)")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.VersionInfo())
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("[CRITICAL] Failed to load configuration from '%s': %v\n", *configPath, err)
		os.Exit(1)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Printf("[CRITICAL] Configuration validation failed for '%s':\n%v\n", *configPath, err)
		os.Exit(1)
	}

	if *testConfigShort || *testConfigLong {
		fmt.Printf("Configuration '%s' is valid.\n", *configPath)
		os.Exit(0)
	}

	appLog := applog.Get()
	if err := appLog.SetLogLevelFromString(cfg.AppLog.Level); err != nil {
		fmt.Printf("[WARN] Invalid log level '%s', using default: %v\n", cfg.AppLog.Level, err)
	}
	appLog.SetShowHealth(cfg.AppLog.ShowHealthLogs)

	appLog.Warn("%s", version.VersionInfo())

	destinations := destination.NewManager()
	if err := destinations.Init(cfg.LogDestinations); err != nil {
		appLog.Fatal("Failed to initialize one or more destinations: %v. Exiting.", err)
	}
	defer destinations.CloseAll()

	ruleProcessor, err := rules.NewProcessor(cfg)
	if err != nil {
		appLog.Fatal("Failed to initialize rule processor: %v", err)
	}

	srv := server.NewServer(server.Dependencies{
		Config:       cfg,
		Destinations: destinations,
		Rules:        ruleProcessor,
		AppLog:       appLog,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Received shutdown signal.")

	appLog.Info("Collector shut down gracefully.")
	os.Exit(0)
}
