package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/model"
)

func newTestLogger(t *testing.T) *FileLogger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewFileLogger(path, RotationConfig{MaxSize: 1 << 20, MaxBackups: 3})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestLogAndQuery(t *testing.T) {
	logger := newTestLogger(t)

	ev := NewEvent(EventTypeConfirmed, "server-07", "iDRAC").
		WithMAC("aa:bb:cc:dd:ee:01").
		WithLocations(
			model.Endpoint{Switch: "oob-sw-01", Port: "Ethernet12"},
			model.Endpoint{Switch: "oob-sw-02", Port: "Ethernet3"},
		).
		WithCounter(2).
		WithSuccess()
	if err := logger.Log(ev); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := logger.Log(NewEvent(EventTypeCleared, "server-07", "iDRAC").WithSuccess()); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := logger.Log(NewEvent(EventTypeConfirmed, "server-09", "ilo").WithError(errors.New("netbox: 502"))); err != nil {
		t.Fatalf("Log: %v", err)
	}

	all, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	byDevice, err := logger.Query(Filter{Device: "server-07"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byDevice) != 2 {
		t.Fatalf("expected 2 events for server-07, got %d", len(byDevice))
	}

	byType, err := logger.Query(Filter{Type: EventTypeConfirmed})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byType) != 2 {
		t.Fatalf("expected 2 move_confirmed events, got %d", len(byType))
	}
	if byType[0].Observed.Switch != "oob-sw-02" {
		t.Errorf("expected observed switch oob-sw-02, got %q", byType[0].Observed.Switch)
	}
}

func TestQueryOffsetLimit(t *testing.T) {
	logger := newTestLogger(t)

	for i := 0; i < 5; i++ {
		if err := logger.Log(NewEvent(EventTypeReminder, "server-01", "ipmi0")); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	page, err := logger.Query(Filter{Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 events, got %d", len(page))
	}

	past, err := logger.Query(Filter{Offset: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("expected no events past offset, got %d", len(past))
	}
}

func TestQuerySkipsMalformedLines(t *testing.T) {
	logger := newTestLogger(t)

	if err := logger.Log(NewEvent(EventTypeCleared, "server-02", "bmc0")); err != nil {
		t.Fatalf("Log: %v", err)
	}
	f, err := os.OpenFile(logger.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString("not json\n")
	f.Close()
	if err := logger.Log(NewEvent(EventTypeCleared, "server-03", "bmc0")); err != nil {
		t.Fatalf("Log: %v", err)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewFileLogger(path, RotationConfig{MaxSize: 200, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 20; i++ {
		if err := logger.Log(NewEvent(EventTypeReminder, "server-01", "ipmi0").WithMAC("aa:bb:cc:dd:ee:ff")); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) == 0 {
		t.Error("expected rotated files")
	}
}

func TestTrim(t *testing.T) {
	logger := newTestLogger(t)

	old := NewEvent(EventTypeConfirmed, "server-01", "ipmi0")
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	if err := logger.Log(old); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := logger.Log(NewEvent(EventTypeCleared, "server-01", "ipmi0")); err != nil {
		t.Fatalf("Log: %v", err)
	}

	dropped, err := logger.Trim(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped event, got %d", dropped)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 remaining event, got %d", len(events))
	}
	if events[0].Type != EventTypeCleared {
		t.Errorf("expected cleared event to survive, got %s", events[0].Type)
	}

	// Log still writable after trim
	if err := logger.Log(NewEvent(EventTypeReminder, "server-01", "ipmi0")); err != nil {
		t.Fatalf("Log after Trim: %v", err)
	}
	events, err = logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after trim+log, got %d", len(events))
	}
}
