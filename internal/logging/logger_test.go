package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidshelf/internal/config"
	"vidshelf/internal/logging"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("backend connected", logging.String(logging.FieldSessionID, "abc"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.StateDir, "vidshelf.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("log file should hold JSON records: %v (%q)", err, content)
	}
	if record["msg"] != "backend connected" || record["session_id"] != "abc" {
		t.Fatalf("unexpected record %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v, want lower-case info", record["level"])
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rpcLogger := logging.NewComponentLogger(logger, "rpc")
	rpcLogger.Debug("hidden")
	rpcLogger.Info("request settled",
		logging.Int64(logging.FieldRequestID, 12),
		logging.String(logging.FieldMethod, "get video"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record should be filtered at info level: %q", line)
	}
	for _, want := range []string{"INFO [rpc] request settled", "request_id=12", `method="get video"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("info logs should not carry source locations: %q", line)
	}
}

func TestConsoleLoggerShortensSessionID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "rpc").
		With(logging.String(logging.FieldSessionID, "0f8e2a61-5c4b-4d3e-9a1f-7b6c5d4e3f2a")).
		Info("backend connected")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO [rpc 0f8e2a61] backend connected") {
		t.Fatalf("expected session prefix in header: %q", line)
	}
	if strings.Contains(line, "session_id=") {
		t.Fatalf("session id should not repeat as a field: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextFillsRequiredFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "backend connection lost", "rpc_connection_lost",
		logging.String(logging.FieldImpact, "pending calls were rejected"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "rpc_connection_lost" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldImpact] != "pending calls were rejected" {
		t.Fatalf("impact overwritten: %v", record[logging.FieldImpact])
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("error_hint should be defaulted: %v", record)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := logging.NewProgressSampler(25)
	steps := []struct {
		name    string
		task    string
		percent float64
		want    bool
	}{
		{"scan_progress", "scan", 0, true},
		{"scan_progress", "scan", 10, false},
		{"scan_progress", "scan", 26, true},
		{"scan_progress", "scan", 30, false},
		{"import_progress", "import", 5, true},
		{"scan_progress", "scan", 100, true},
		{"scan_progress", "scan", 120, false},
		{"scan_progress", "thumbnails", 1, true},
		{"scan_progress", "thumbnails", -1, false},
	}
	for i, step := range steps {
		if got := sampler.ShouldEmit(step.name, step.task, step.percent); got != step.want {
			t.Fatalf("step %d (%s %s %.0f) = %v, want %v", i, step.name, step.task, step.percent, got, step.want)
		}
	}

	sampler.Reset()
	if !sampler.ShouldEmit("scan_progress", "thumbnails", 1) {
		t.Fatal("reset should forget previous progress")
	}
}

func TestFileCopyFiltersIndependently(t *testing.T) {
	dir := t.TempDir()
	consolePath := filepath.Join(dir, "console.log")
	filePath := filepath.Join(dir, "vidshelf.log")
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{consolePath},
		FilePath:    filePath,
		FileLevel:   "debug",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("request sent", logging.Int64(logging.FieldRequestID, 3))
	logger.Warn("backend connection lost")

	console, err := os.ReadFile(consolePath)
	if err != nil {
		t.Fatalf("read console log: %v", err)
	}
	if strings.Contains(string(console), "request sent") {
		t.Fatalf("debug record leaked to console: %q", console)
	}
	if !strings.Contains(string(console), "backend connection lost") {
		t.Fatalf("warning missing from console: %q", console)
	}

	file, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read file log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(file)), "\n")
	if len(lines) != 2 {
		t.Fatalf("file log lines = %d, want 2: %q", len(lines), file)
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode file record: %v", err)
	}
	if first["msg"] != "request sent" || first["request_id"] != float64(3) {
		t.Fatalf("file record = %v", first)
	}
}
