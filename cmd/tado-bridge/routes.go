package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tado_bridge/internal/device"
)

// deviceView is one entry of the /devices response.
type deviceView struct {
	Name  string            `json:"name"`
	Slug  string            `json:"slug"`
	Kind  device.Kind       `json:"kind"`
	Room  string            `json:"room,omitempty"`
	State device.LocalState `json:"state"`
}

// healthHandler responds to health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK\n"))
}

// devicesHandler returns the last known state of every device.
func devicesHandler(registry *device.Registry, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		devs := registry.All()
		views := make([]deviceView, 0, len(devs))
		for _, d := range devs {
			views = append(views, deviceView{
				Name:  d.Name,
				Slug:  device.Slug(d.Name),
				Kind:  d.Kind,
				Room:  d.Settings().Room,
				State: d.State(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(views); err != nil {
			logger.Error("Failed to encode devices", "error", err)
		}
	})
}
