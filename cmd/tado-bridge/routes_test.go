package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tado_bridge/internal/device"
)

func TestDevicesHandler(t *testing.T) {
	d := device.New(device.Spec{Name: "Living Room", Kind: device.KindRadiator, Settings: device.Settings{Room: "Living"}})
	d.Update(func(s *device.LocalState) { s.TargetState = device.Auto })
	reg, err := device.NewRegistry(d)
	if err != nil {
		t.Fatal(err)
	}
	h := devicesHandler(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got []struct {
		Name  string `json:"name"`
		Slug  string `json:"slug"`
		Room  string `json:"room"`
		State struct {
			TargetState string `json:"target_state"`
		} `json:"state"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Slug != "living-room" || got[0].Room != "Living" || got[0].State.TargetState != "auto" {
		t.Errorf("devices = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/devices", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
