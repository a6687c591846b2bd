package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/TheBitDrifter/depot"
)

func TestRunWorld(t *testing.T) {
	cfg := depot.DefaultConfig()
	logger, err := depot.NewLogger(depot.LoggingConfig{Level: "error"}, io.Discard)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	visited, err := runWorld(cfg, logger, 15, 3)
	if err != nil {
		t.Fatalf("runWorld() error = %v", err)
	}
	if visited != 7*3 {
		t.Errorf("visited = %d, want %d", visited, 7*3)
	}
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	opts := options{configPath: "depot.toml", rounds: 2, entities: 15, frames: 1}
	if err := run(&out, opts); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "visited 14 entities") {
		t.Errorf("output = %q", out.String())
	}

	opts.profile = "gpu"
	if err := run(&out, opts); err == nil {
		t.Errorf("run() accepted an unknown profile mode")
	}
}
