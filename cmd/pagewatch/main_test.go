package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	// Execute version command directly
	versionCmd.Run(nil, nil)

	w.Close()
	os.Stdout = old
	out := <-outC

	// Version is "dev" by default in tests
	if !strings.Contains(out, "pagewatch dev") {
		t.Errorf("Expected version output to contain 'pagewatch dev', got: %s", out)
	}
	if !strings.Contains(out, "Web page change watcher") {
		t.Errorf("Expected version output to contain 'Web page change watcher', got: %s", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, ".config", "pagewatch", "config.toml")

	// Point the home fallback at the temp directory
	t.Setenv("HOME", tmpDir)

	oldPath := configPath
	configPath = ""
	defer func() { configPath = oldPath }()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	err := configInitCmd.RunE(nil, nil)

	w.Close()
	os.Stdout = old
	out := <-outC

	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, statErr := os.Stat(configFile); os.IsNotExist(statErr) {
		t.Errorf("Config file was not created at %s", configFile)
	}
	if !strings.Contains(out, "Generated default configuration at:") {
		t.Errorf("Expected output to contain 'Generated default configuration at:', got: %s", out)
	}
}

func TestConfigInitCommandExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "custom.toml")

	oldPath := configPath
	configPath = configFile
	defer func() { configPath = oldPath }()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	err := configInitCmd.RunE(nil, nil)

	w.Close()
	os.Stdout = old
	out := <-outC

	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, statErr := os.Stat(configFile); os.IsNotExist(statErr) {
		t.Errorf("Config file was not created at %s", configFile)
	}
	if !strings.Contains(out, configFile) {
		t.Errorf("Expected output to mention %s, got: %s", configFile, out)
	}
}
