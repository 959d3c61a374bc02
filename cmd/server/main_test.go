package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-logr/logr"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-wifi/internal/config"
	"github.com/bbernstein/lacylights-wifi/internal/database"
	"github.com/bbernstein/lacylights-wifi/internal/database/repositories"
	"github.com/bbernstein/lacylights-wifi/internal/services/diagnostics"
	"github.com/bbernstein/lacylights-wifi/internal/services/pubsub"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

type noResolver struct{}

func (noResolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	return "", errors.New("offline")
}

func newSimulatedService(t *testing.T) (*wifi.Service, *radio.Simulator, *wifi.ConfigStore) {
	t.Helper()
	return newSimulatedServiceWithStore(t, wifi.NewConfigStore(filepath.Join(t.TempDir(), "wifi.json"), logr.Discard()))
}

func newSimulatedServiceWithStore(t *testing.T, store *wifi.ConfigStore) (*wifi.Service, *radio.Simulator, *wifi.ConfigStore) {
	t.Helper()
	sim := radio.NewSimulator(simulatedMAC, simulatedNetworks()...)
	ctrl := radio.NewController(sim, logr.Discard())
	probe := diagnostics.NewProbe(ctrl, noResolver{}, "", logr.Discard())
	return wifi.NewService(ctrl, store, probe, logr.Discard()), sim, store
}

func TestPrintBanner(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	printBanner(&config.Config{
		Env:          "test",
		Port:         "4100",
		DatabaseURL:  "test.db",
		WiFiConfPath: "conf/wifi.json",
		RadioDriver:  "sim",
	})

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	output := buf.String()

	for _, expected := range []string{"LacyLights WiFi Manager", "Version:", "Environment: test", "Port:        4100", "Profiles:    conf/wifi.json", "Radio:       sim"} {
		if !strings.Contains(output, expected) {
			t.Errorf("Expected %q in banner", expected)
		}
	}
}

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if BuildTime == "" {
		t.Error("BuildTime should have a default value")
	}
	if GitCommit == "" {
		t.Error("GitCommit should have a default value")
	}
}

func TestBuildDriver_Simulator(t *testing.T) {
	driver, err := buildDriver(&config.Config{RadioDriver: "sim"}, logr.Discard())
	if err != nil {
		t.Fatalf("buildDriver failed: %v", err)
	}
	if _, ok := driver.(*radio.Simulator); !ok {
		t.Errorf("Expected simulator, got %T", driver)
	}
}

func TestBuildDriver_NMCLI(t *testing.T) {
	driver, err := buildDriver(&config.Config{RadioDriver: "nmcli", WiFiInterface: "wlan0", WiFiAPInterface: "uap0"}, logr.Discard())
	if err != nil {
		t.Fatalf("buildDriver failed: %v", err)
	}
	if _, ok := driver.(*radio.NMCLIDriver); !ok {
		t.Errorf("Expected nmcli driver, got %T", driver)
	}
}

func TestRestore_Defaults(t *testing.T) {
	svc, sim, store := newSimulatedService(t)
	cfg := &config.Config{
		DefaultAPSSID:  "LacyLights",
		DefaultAPIP:    "192.168.0.254",
		DefaultSTASSID: "Guest",
	}

	restore(context.Background(), svc, cfg, logr.Discard())

	status := svc.Status()
	if !status.AccessPointOpen {
		t.Error("Expected default access point to be open")
	}
	if !status.Connected || status.Connection.SSID != "Guest" {
		t.Errorf("Expected connection to Guest, got %+v", status.Connection)
	}
	if status.Mode != radio.ModeDual {
		t.Errorf("Expected dual mode, got %s", status.Mode)
	}
	doc := store.Load()
	if doc.AccessPoint == nil || doc.AccessPoint.SSID != "LacyLights" {
		t.Error("Expected default access point to be persisted")
	}
	if len(doc.Stations) != 1 {
		t.Errorf("Expected default network to be persisted, got %d", len(doc.Stations))
	}
	if sim.ModeSwitches() == 0 {
		t.Error("Expected the radio to be reconfigured")
	}
}

func TestRestore_PersistedProfilesWin(t *testing.T) {
	store := wifi.NewConfigStore(filepath.Join(t.TempDir(), "wifi.json"), logr.Discard())
	doc := wifi.NewDocument()
	doc.AccessPoint = &wifi.AccessPointProfile{SSID: "Saved-AP", IP: "192.168.4.1"}
	doc.Stations["02:00:00:00:00:02"] = wifi.StationProfile{SSID: "Guest"}
	if err := store.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	svc, _, _ := newSimulatedServiceWithStore(t, store)

	restore(context.Background(), svc, &config.Config{DefaultAPSSID: "Ignored", DefaultAPIP: "10.0.0.1"}, logr.Discard())

	if got := svc.AccessPoint().SSID; got != "Saved-AP" {
		t.Errorf("Expected Saved-AP, got %q", got)
	}
	if got := svc.Connection().SSID; got != "Guest" {
		t.Errorf("Expected Guest, got %q", got)
	}
}

func TestRestore_SavedAccessPointFailsFallsBack(t *testing.T) {
	store := wifi.NewConfigStore(filepath.Join(t.TempDir(), "wifi.json"), logr.Discard())
	doc := wifi.NewDocument()
	doc.AccessPoint = &wifi.AccessPointProfile{SSID: "Broken-AP"}
	if err := store.Save(doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	svc, _, _ := newSimulatedServiceWithStore(t, store)

	restore(context.Background(), svc, &config.Config{DefaultAPSSID: "Default-AP", DefaultAPIP: "192.168.0.254"}, logr.Discard())

	if !svc.IsAccessPointOpen() {
		t.Fatal("Expected the default access point to be open")
	}
	if got := svc.AccessPoint().SSID; got != "Default-AP" {
		t.Errorf("Expected Default-AP, got %q", got)
	}
}

func TestRestore_NothingConfigured(t *testing.T) {
	svc, _, _ := newSimulatedService(t)

	restore(context.Background(), svc, &config.Config{}, logr.Discard())

	status := svc.Status()
	if status.Mode != radio.ModeOff || status.AccessPointOpen || status.Connected {
		t.Errorf("Expected radio off, got %+v", status)
	}
}

func TestRunStatusLog_StopsOnCancel(t *testing.T) {
	svc, _, _ := newSimulatedService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runStatusLog(ctx, svc, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("status log did not stop")
	}

	// A zero interval returns immediately.
	runStatusLog(context.Background(), svc, 0)
}

func TestPublishingRecorder(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	repo := repositories.NewEventRepository(db)
	ps := pubsub.New()
	sub := ps.Subscribe(pubsub.TopicRadioEvent, "connect", 1)

	rec := &publishingRecorder{repo: repo, pubsub: ps}
	if err := rec.Record(context.Background(), wifi.Event{Operation: "connect", SSID: "Guest", Success: true}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	select {
	case msg := <-sub.Channel:
		if e, ok := msg.(wifi.Event); !ok || e.SSID != "Guest" {
			t.Errorf("Unexpected message %v", msg)
		}
	default:
		t.Error("Expected event to be published")
	}

	events, err := repo.ListRecent(context.Background(), "connect", 10)
	if err != nil || len(events) != 1 {
		t.Errorf("Expected 1 stored event, got %d (%v)", len(events), err)
	}
}
