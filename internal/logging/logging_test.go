package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestProdIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "prod", slog.LevelInfo, "1.2.3", "beacon")
	log.Debug("hidden")
	log.Info("reading published", "temp_centi_c", 2150)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "reading published" || rec["app"] != "beacon" || rec["version"] != "1.2.3" || rec["env"] != "prod" {
		t.Fatalf("record = %v", rec)
	}
	if rec["temp_centi_c"] != 2150.0 {
		t.Fatalf("temp_centi_c = %v", rec["temp_centi_c"])
	}
}

func TestDevIsText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "dev", slog.LevelWarn, "dev", "scan").Warn("cycle skipped", "code", "bus_timeout")
	out := buf.String()
	if !strings.Contains(out, "cycle skipped") || !strings.Contains(out, "bus_timeout") {
		t.Fatalf("output = %q", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Fatal("dev output should not be JSON")
	}
}
