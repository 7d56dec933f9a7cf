package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("carcompanion-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tracking.NoiseFloorKm != 0.01 {
		t.Errorf("expected noise floor 0.01, got %f", cfg.Tracking.NoiseFloorKm)
	}
	if cfg.Tracking.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Tracking.Timeout)
	}
	if cfg.Search.RadiusKm != 50 || cfg.Search.PerTermLimit != 5 || cfg.Search.MaxResults != 10 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Telemetry.ServiceName != "carcompanion-test" {
		t.Errorf("expected service name default, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CARCOMPANION_SEARCH_RADIUS_KM", "25")
	t.Setenv("CARCOMPANION_LANGUAGE", "es")

	cfg, err := Load("carcompanion-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Search.RadiusKm != 25 {
		t.Errorf("expected radius override, got %f", cfg.Search.RadiusKm)
	}
	if cfg.Language != "es" {
		t.Errorf("expected language override, got %s", cfg.Language)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		NATS:     NATSConfig{URL: "nats://x", DeviceID: "car.1"},
		Valkey:   ValkeyConfig{Addr: "x"},
		Database: DatabaseConfig{Host: "h", Port: 5432, User: "u", DBName: "d"},
		Mapbox:   MapboxConfig{BaseURL: "https://api.mapbox.com", TokenURL: "http://x", RequestTimeout: time.Second},
		Tracking: TrackingConfig{NoiseFloorKm: -1, Timeout: time.Second},
		Search:   SearchConfig{RadiusKm: 50, PerTermLimit: 5, MaxResults: 10},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "nats.device_id", "tracking.noise_floor_km"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error: %v", want, err)
		}
	}
}
