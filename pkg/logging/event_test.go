package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// decode parses the single JSON line in buf.
func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return m
}

func TestPhaseCompleteFields(t *testing.T) {
	SetPrettyMode(false)
	var buf bytes.Buffer

	PhaseComplete(zerolog.New(&buf), "unpack", 1500*time.Millisecond).
		Str("type", "Is").
		Str("title_id", "0001000148414241").
		Bool("fakesigned", true).
		Bytes("bytes", 0x1000).
		Log("package unpacked")

	m := decode(t, &buf)
	want := map[string]any{
		"event":       EventPhaseCompleted,
		"phase":       "unpack",
		"duration_ms": 1500.0,
		"type":        "Is",
		"title_id":    "0001000148414241",
		"fakesigned":  true,
		"bytes":       4096.0,
		"level":       "info",
		"message":     "package unpacked",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
	for _, k := range []string{"bytes_h", "duration_h"} {
		if _, ok := m[k]; ok {
			t.Errorf("%s written outside pretty mode", k)
		}
	}
}

func TestEventFieldOrder(t *testing.T) {
	SetPrettyMode(false)
	var buf bytes.Buffer

	FileCreated(zerolog.New(&buf), "unpack", time.Millisecond).
		Str("file", "tik.bin").
		Bytes("size", 0x2A4).
		Log("section written")

	line := buf.String()
	order := []string{`"event"`, `"phase"`, `"duration_ms"`, `"file"`, `"size"`}
	last := -1
	for _, key := range order {
		i := strings.Index(line, key)
		if i <= last {
			t.Fatalf("%s out of order in %s", key, line)
		}
		last = i
	}
}

func TestEventPrettyCompanions(t *testing.T) {
	SetPrettyMode(true)
	defer SetPrettyMode(false)
	var buf bytes.Buffer

	FileCreated(zerolog.New(&buf), "catalog", 2*time.Second).
		Count("records", 1500).
		Bytes("size", 3*1024*1024).
		Log("report written")

	m := decode(t, &buf)
	for k, v := range map[string]string{
		"records_h":  "1.50K",
		"size_h":     "3.00 MiB",
		"duration_h": "2.00s",
	} {
		if m[k] != v {
			t.Errorf("%s = %v, want %q", k, m[k], v)
		}
	}
}

func TestEventThroughput(t *testing.T) {
	SetPrettyMode(true)
	defer SetPrettyMode(false)
	var buf bytes.Buffer

	FileCreated(zerolog.New(&buf), "fetch", 2*time.Second).
		Throughput(8 * 1024 * 1024).
		Log("object downloaded")
	m := decode(t, &buf)
	if m["throughput_bps"] != 4194304.0 || m["throughput_h"] != "4.00 MiB/s" {
		t.Errorf("throughput = %v, %v", m["throughput_bps"], m["throughput_h"])
	}

	// A download that took no measurable time has no rate.
	buf.Reset()
	FileCreated(zerolog.New(&buf), "fetch", 0).
		Throughput(100).
		Log("object downloaded")
	if _, ok := decode(t, &buf)["throughput_bps"]; ok {
		t.Error("throughput written for a zero duration")
	}
}

func TestEventLogDebugRespectsLevel(t *testing.T) {
	SetPrettyMode(false)
	var buf bytes.Buffer

	FileCreated(zerolog.New(&buf).Level(zerolog.InfoLevel), "unpack", time.Millisecond).
		Str("file", "cert.bin").
		LogDebug("section written")
	if buf.Len() != 0 {
		t.Errorf("debug event written at info level: %s", buf.String())
	}

	old := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(old)

	FileCreated(zerolog.New(&buf), "unpack", time.Millisecond).
		Str("file", "cert.bin").
		LogDebug("section written")
	if m := decode(t, &buf); m["level"] != "debug" || m["file"] != "cert.bin" {
		t.Errorf("debug event = %v", m)
	}
}
