package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sxwebdev/espflasher/flasher"
)

type event struct {
	name string
	data interface{}
}

// closedPort транспорт, который не удается открыть
type closedPort struct {
	flasher.Transport
	name string
}

var errBusy = errors.New("port busy")

func (p *closedPort) Open(name string) error {
	p.name = name
	return errBusy
}

func newTestApp(port *closedPort) (*App, *[]event) {
	var events []event
	a := &App{newPort: func() flasher.Transport { return port }}
	a.emit = func(name string, data interface{}) {
		events = append(events, event{name, data})
	}
	a.newLogger = func() flasher.Logger { return &eventLogger{emit: a.emitLog} }
	return a, &events
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"", DefaultAppOffset, false},
		{"0x1000", 0x1000, false},
		{"65536", 0x10000, false},
		{"0x", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		got, err := parseOffset(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseOffset(%q) = 0x%x, %v", tt.in, got, err)
		}
	}
}

func TestReportProgress(t *testing.T) {
	a, events := newTestApp(&closedPort{})

	a.reportProgress(flasher.Progress{Stage: flasher.StageStub, Value: 0.5})
	a.reportProgress(flasher.Progress{Stage: flasher.StageFlash, Value: 0.5, Written: 512, Total: 1024})
	a.reportProgress(flasher.Progress{Stage: flasher.StageFlash, Value: 1, Written: 1024, Total: 1024})

	var got []int
	for _, e := range *events {
		got = append(got, e.data.(map[string]interface{})["progress"].(int))
	}
	if diff := cmp.Diff([]int{25, 65, 100}, got); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestFlashOpenError(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "app.bin")
	if err := os.WriteFile(bin, []byte{0xE9, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	port := &closedPort{}
	a, events := newTestApp(port)

	err := a.Flash("COM7", bin, "")
	if !errors.Is(err, errBusy) {
		t.Fatalf("Flash() error = %v, want %v", err, errBusy)
	}
	if port.name != "COM7" {
		t.Errorf("opened %q, want COM7", port.name)
	}

	last := (*events)[len(*events)-1]
	if last.name != "flash-log" || !strings.HasPrefix(last.data.(string), "❌") {
		t.Errorf("last event = %+v", last)
	}
	if a.flashing.Load() {
		t.Error("flashing flag left set")
	}
}

func TestFlashMissingFile(t *testing.T) {
	port := &closedPort{}
	a, _ := newTestApp(port)

	if err := a.Flash("COM7", filepath.Join(t.TempDir(), "missing.bin"), "0x10000"); err == nil {
		t.Fatal("Flash() succeeded without a file")
	}
	if port.name != "" {
		t.Error("port opened without a file")
	}
}
