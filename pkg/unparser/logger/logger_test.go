package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"

	"github.com/sambeau/unparser/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logging.Level
		wantErr  bool
	}{
		{"", logging.INFO, false},
		{"debug", logging.DEBUG, false},
		{"WARN", logging.WARNING, false},
		{"warning", logging.WARNING, false},
		{"critical", logging.CRITICAL, false},
		{"verbose", logging.INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if level != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, level)
			}
		})
	}
}

func TestNewWritesToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l, closer, err := New(config.LoggingConfig{Level: "info"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closer.Close()

	l.Debugf("hidden %d", 1)
	l.Infof("checked %s", "a.rb")

	out := stderr.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered, got %q", out)
	}
	if !strings.Contains(out, "INFO checked a.rb") {
		t.Errorf("expected info message, got %q", out)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected nothing on stdout, got %q", stdout.String())
	}
}

func TestNewOutputs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l, closer, err := New(config.LoggingConfig{Output: "stdout", Format: "%{level} %{message}"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Warning("careful")
	closer.Close()
	if got := stdout.String(); got != "WARNING careful\n" {
		t.Errorf("expected %q, got %q", "WARNING careful\n", got)
	}

	path := filepath.Join(t.TempDir(), "logs", "unparser.log")
	l, closer, err = New(config.LoggingConfig{Output: path, Level: "error", Format: "%{message}"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Info("dropped")
	l.Error("kept")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if string(data) != "kept\n" {
		t.Errorf("expected %q, got %q", "kept\n", data)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestMemory(t *testing.T) {
	l, mem := NewMemory(10, logging.INFO)
	l.Debug("skip")
	l.Infof("one %d", 1)
	l.Errorf("two")

	lines := mem.Lines()
	expected := []string{"INFO one 1", "ERROR two"}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %v", len(expected), lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}
}

func TestStd(t *testing.T) {
	l, mem := NewMemory(10, logging.DEBUG)
	Std(l).Printf("watching %s", "src")

	lines := mem.Lines()
	if len(lines) != 1 || lines[0] != "INFO watching src" {
		t.Errorf("unexpected lines %v", lines)
	}
}
