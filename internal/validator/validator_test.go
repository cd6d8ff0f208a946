package validator

import (
	"strings"
	"testing"

	"github.com/stemsi/exstem-player/internal/model"
)

func ptr(f float64) *float64 { return &f }

func TestStructAcceptsDefaults(t *testing.T) {
	cfg := model.DefaultSecurityConfig("quiz-1")
	if fields := Struct(cfg); fields != nil {
		t.Fatalf("expected defaults to validate, got %v", fields)
	}
}

func TestStructGeofenceRequiresCenter(t *testing.T) {
	cfg := model.DefaultSecurityConfig("quiz-1")
	cfg.GeofencingEnabled = true
	cfg.Latitude = ptr(-6.2)

	fields := Struct(cfg)
	if fields == nil {
		t.Fatal("expected validation failure")
	}
	msg, ok := fields["longitude"]
	if !ok {
		t.Fatalf("expected longitude error, got %v", fields)
	}
	if !strings.Contains(msg, "geofencing is enabled") {
		t.Fatalf("unexpected message %q", msg)
	}
	if _, ok := fields["latitude"]; ok {
		t.Fatalf("latitude was set, got %v", fields)
	}
}

func TestStructGeofenceRadiusBounds(t *testing.T) {
	cfg := model.DefaultSecurityConfig("quiz-1")
	cfg.GeofencingEnabled = true
	cfg.Latitude, cfg.Longitude = ptr(1), ptr(2)
	cfg.RadiusMeters = 9000

	fields := Struct(cfg)
	if _, ok := fields["radius_meters"]; !ok {
		t.Fatalf("expected radius error, got %v", fields)
	}
}

func TestStructFieldBounds(t *testing.T) {
	cfg := model.DefaultSecurityConfig("quiz-1")
	cfg.CheckIntervalSeconds = 1
	cfg.Latitude = ptr(120)

	fields := Struct(cfg)
	if _, ok := fields["check_interval_seconds"]; !ok {
		t.Fatalf("expected interval error, got %v", fields)
	}
	if _, ok := fields["latitude"]; !ok {
		t.Fatalf("expected latitude range error, got %v", fields)
	}
}
