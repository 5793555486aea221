package db

import (
	"context"
	"errors"
	"testing"
)

func TestRunChecks_AllHealthy(t *testing.T) {
	checks := []Check{
		{Name: "postgres", Ping: func(context.Context) error { return nil }},
		{Name: "redis", Ping: func(context.Context) error { return nil }},
	}
	deps, healthy := RunChecks(context.Background(), checks)
	if !healthy {
		t.Fatal("expected healthy")
	}
	if deps["postgres"] != "ok" || deps["redis"] != "ok" {
		t.Errorf("unexpected dependency report: %v", deps)
	}
}

func TestRunChecks_OneFailing(t *testing.T) {
	checks := []Check{
		{Name: "postgres", Ping: func(context.Context) error { return nil }},
		{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	}
	deps, healthy := RunChecks(context.Background(), checks)
	if healthy {
		t.Fatal("expected unhealthy")
	}
	if deps["redis"] != "connection refused" {
		t.Errorf("expected redis error in report, got %q", deps["redis"])
	}
	if deps["postgres"] != "ok" {
		t.Errorf("expected postgres ok, got %q", deps["postgres"])
	}
}
