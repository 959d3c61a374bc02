// Package main is the WiFi manager daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bbernstein/lacylights-wifi/internal/api"
	"github.com/bbernstein/lacylights-wifi/internal/config"
	"github.com/bbernstein/lacylights-wifi/internal/database"
	"github.com/bbernstein/lacylights-wifi/internal/database/repositories"
	"github.com/bbernstein/lacylights-wifi/internal/logging"
	"github.com/bbernstein/lacylights-wifi/internal/services/diagnostics"
	"github.com/bbernstein/lacylights-wifi/internal/services/metrics"
	"github.com/bbernstein/lacylights-wifi/internal/services/network"
	"github.com/bbernstein/lacylights-wifi/internal/services/pubsub"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// eventRetention is how long radio events are kept.
const eventRetention = 30 * 24 * time.Hour

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	log, closeLog := logging.New(logging.Options{
		Verbose: cfg.LogVerbose,
		Debug:   cfg.LogDebug,
		File:    cfg.LogFile,
	})
	defer func() { _ = closeLog() }()
	if envErr != nil {
		log.V(1).Info("No .env file found, using environment variables")
	}

	printBanner(cfg)

	if err := run(cfg, log); err != nil {
		log.Error(err, "Server failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logr.Logger) error {
	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
		Debug:       cfg.LogDebug,
	})
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()
	eventRepo := repositories.NewEventRepository(db)

	driver, err := buildDriver(cfg, log)
	if err != nil {
		return err
	}
	ctrl := radio.NewController(driver, log)
	store := wifi.NewConfigStore(cfg.WiFiConfPath, log)
	resolver := diagnostics.NewStationResolver(ctrl, diagnostics.SystemResolver{}, log)
	probe := diagnostics.NewProbe(ctrl, resolver, cfg.InternetCheckHost, log)

	svc := wifi.NewService(ctrl, store, probe, log)
	svc.SetConnectTimeout(cfg.ConnectTimeout)

	ps := pubsub.New()
	svc.SetStatusCallback(func(status *wifi.Status) {
		ps.PublishAll(pubsub.TopicWiFiStatus, status)
	})
	svc.SetEventRecorder(&publishingRecorder{repo: eventRepo, pubsub: ps})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	svc.SetMetrics(metrics.New(reg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := eventRepo.DeleteOlderThan(ctx, time.Now().Add(-eventRetention)); err != nil {
		log.Error(err, "Failed to prune radio events")
	} else if n > 0 {
		log.Info("Pruned radio events", "count", n)
	}

	server := api.NewServer(svc, eventRepo, ps, api.Options{
		Version:     Version,
		CORSOrigin:  cfg.CORSOrigin,
		Debug:       cfg.IsDevelopment() && cfg.LogDebug,
		STUNServers: cfg.STUNServers,
		Gatherer:    reg,
	}, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "url", "http://localhost:"+cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go func() {
		restore(ctx, svc, cfg, log)
		runStatusLog(ctx, svc, cfg.StatusLogInterval)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server shutdown error")
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Radio shutdown error")
	}

	log.Info("Server stopped")
	return nil
}

// buildDriver selects the radio backend.
func buildDriver(cfg *config.Config, log logr.Logger) (radio.Driver, error) {
	if cfg.UseSimulator() {
		log.Info("Using simulated radio")
		return radio.NewSimulator(simulatedMAC, simulatedNetworks()...), nil
	}

	iface := cfg.WiFiInterface
	if iface == "" {
		detected, err := network.DetectWirelessInterface()
		if err != nil {
			return nil, err
		}
		iface = detected
	}
	log.Info("Using NetworkManager radio", "interface", iface, "apInterface", cfg.WiFiAPInterface)
	return radio.NewNMCLIDriver(iface, cfg.WiFiAPInterface, log), nil
}

var simulatedMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x57, 0x1f, 0x01}

func simulatedNetworks() []radio.SimulatedNetwork {
	return []radio.SimulatedNetwork{
		{
			Network:          radio.Network{SSID: "Venue-WiFi", BSSID: "02:00:00:00:00:01", RSSI: -45, Channel: 6, Auth: radio.AuthWPA2},
			Key:              "lacylights",
			Lease:            radio.InterfaceAddress{IP: "10.10.0.50", Mask: network.ClassCMask, Gateway: "10.10.0.1", DNS: "10.10.0.1"},
			AssociationDelay: 500 * time.Millisecond,
		},
		{
			Network: radio.Network{SSID: "Guest", BSSID: "02:00:00:00:00:02", RSSI: -70, Channel: 11, Auth: radio.AuthOpen},
			Lease:   radio.InterfaceAddress{IP: "172.16.4.20", Mask: network.ClassCMask, Gateway: "172.16.4.1", DNS: "172.16.4.1"},
		},
	}
}

// restore turns the radio off, then brings back the persisted access point
// and network, falling back to the configured defaults.
func restore(ctx context.Context, svc *wifi.Service, cfg *config.Config, log logr.Logger) {
	if err := svc.DisableRadio(ctx); err != nil {
		log.Error(err, "Failed to reset radio")
	}

	if !svc.HasAccessPointProfile() || !svc.OpenAccessPointFromConfig(ctx).Success {
		if cfg.DefaultAPSSID != "" {
			svc.OpenAccessPoint(ctx, cfg.DefaultAPSSID, cfg.DefaultAPKey, cfg.DefaultAPIP, true)
		}
	}

	if len(svc.SavedNetworks()) > 0 {
		if result := svc.ConnectFromConfig(ctx, false, 0); result.Success {
			return
		}
	}
	if cfg.DefaultSTASSID != "" {
		svc.Connect(ctx, wifi.ConnectRequest{SSID: cfg.DefaultSTASSID, Key: cfg.DefaultSTAKey, AutoSave: true})
	}
}

// runStatusLog logs the radio status every interval until ctx is done.
func runStatusLog(ctx context.Context, svc *wifi.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.LogStatus(ctx)
		}
	}
}

// publishingRecorder stores events and announces them to subscribers.
type publishingRecorder struct {
	repo   *repositories.EventRepository
	pubsub *pubsub.PubSub
}

func (r *publishingRecorder) Record(ctx context.Context, e wifi.Event) error {
	r.pubsub.Publish(pubsub.TopicRadioEvent, e.Operation, e)
	return r.repo.Record(ctx, e)
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  LacyLights WiFi Manager")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Profiles:    %s\n", cfg.WiFiConfPath)
	fmt.Printf("  Radio:       %s\n", cfg.RadioDriver)
	fmt.Println("============================================")
}
