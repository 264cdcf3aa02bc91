package main

import (
	"testing"

	"github.com/mwiater/miasma/internal/appconfig"
)

func TestMainWiring(t *testing.T) {
	origDotenv := loadDotenv
	origLoadConfig := loadConfig
	origInitLogging := initLogging
	origCloseLogging := closeLogging
	origSetVersion := setVersionInfo
	origExecute := executeCmd
	t.Cleanup(func() {
		loadDotenv = origDotenv
		loadConfig = origLoadConfig
		initLogging = origInitLogging
		closeLogging = origCloseLogging
		setVersionInfo = origSetVersion
		executeCmd = origExecute
	})

	calls := struct {
		dotenv  bool
		load    bool
		initLog bool
		close   bool
		version bool
		exec    bool
	}{}

	loadDotenv = func() {
		calls.dotenv = true
	}
	loadConfig = func(path string) (appconfig.Config, error) {
		calls.load = true
		if path != "" {
			t.Fatalf("expected empty path, got %q", path)
		}
		return appconfig.Config{LogFile: "test.log"}, nil
	}
	initLogging = func(path string) error {
		calls.initLog = true
		if path != "test.log" {
			t.Fatalf("expected log path test.log, got %q", path)
		}
		return nil
	}
	closeLogging = func() error {
		calls.close = true
		return nil
	}
	setVersionInfo = func(v, c, d string) {
		calls.version = true
		if v == "" || c == "" || d == "" {
			t.Fatalf("expected version info to be set")
		}
	}
	executeCmd = func() {
		calls.exec = true
	}

	main()

	if !calls.dotenv || !calls.load || !calls.initLog || !calls.version || !calls.exec {
		t.Fatalf("expected all wiring calls, got %+v", calls)
	}
	if !calls.close {
		t.Fatalf("expected logging to be closed on exit, got %+v", calls)
	}
}
