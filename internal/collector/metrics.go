package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"tado_bridge/internal/mapper"
)

// MetricSet holds all Prometheus metric descriptors for the bridge.
type MetricSet struct {
	// Thermostat metrics
	currentTemp  *prometheus.Desc
	targetTemp   *prometheus.Desc
	humidity     *prometheus.Desc
	targetState  *prometheus.Desc
	currentState *prometheus.Desc
	delayActive  *prometheus.Desc

	// Battery metrics
	batteryLevel *prometheus.Desc
	batteryLow   *prometheus.Desc

	// Sensor metrics
	windowOpen     *prometheus.Desc
	windowDuration *prometheus.Desc
	solarIntensity *prometheus.Desc
	occupied       *prometheus.Desc
	pressure       *prometheus.Desc

	// Central switch metrics
	centralCount  *prometheus.Desc
	centralSwitch *prometheus.Desc

	lastUpdateUnix *prometheus.Desc

	// Poll metrics
	pollErrors   *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
}

// newMetricSet creates all metric descriptors.
func newMetricSet() *MetricSet {
	labels := []string{mapper.LabelDevice, mapper.LabelKind}
	labelsWithUnit := append(labels[:len(labels):len(labels)], mapper.LabelUnit)
	labelsWithMode := append(labels[:len(labels):len(labels)], mapper.LabelMode)
	labelsWithGroup := append(labels[:len(labels):len(labels)], mapper.LabelGroup)

	return &MetricSet{
		currentTemp: prometheus.NewDesc(
			"tado_current_temperature",
			"Current temperature in the device unit",
			labelsWithUnit, nil,
		),
		targetTemp: prometheus.NewDesc(
			"tado_target_temperature",
			"Target temperature in the device unit",
			labelsWithUnit, nil,
		),
		humidity: prometheus.NewDesc(
			"tado_humidity_percent",
			"Relative humidity (%)",
			labels, nil,
		),
		targetState: prometheus.NewDesc(
			"tado_target_state",
			"Target heating state one-hot (1 for current, 0 for others)",
			labelsWithMode, nil,
		),
		currentState: prometheus.NewDesc(
			"tado_current_state",
			"Current heating state one-hot (1 for current, 0 for others)",
			labelsWithMode, nil,
		),
		delayActive: prometheus.NewDesc(
			"tado_delay_active",
			"Extended delay switch state (0/1)",
			labels, nil,
		),

		batteryLevel: prometheus.NewDesc(
			"tado_battery_level_percent",
			"Battery level (%)",
			labels, nil,
		),
		batteryLow: prometheus.NewDesc(
			"tado_battery_low",
			"Battery low (1) / normal (0)",
			labels, nil,
		),

		windowOpen: prometheus.NewDesc(
			"tado_window_open",
			"Open window detected (0/1)",
			labels, nil,
		),
		windowDuration: prometheus.NewDesc(
			"tado_window_open_duration_seconds",
			"Duration of the open window detection",
			labels, nil,
		),
		solarIntensity: prometheus.NewDesc(
			"tado_solar_intensity_percent",
			"Solar intensity (%)",
			labels, nil,
		),
		occupied: prometheus.NewDesc(
			"tado_occupied",
			"Occupancy detected (0/1)",
			labels, nil,
		),
		pressure: prometheus.NewDesc(
			"tado_pressure_hpa",
			"Air pressure (hPa)",
			labels, nil,
		),

		centralCount: prometheus.NewDesc(
			"tado_central_thermostats",
			"Number of thermostats per target state group",
			labelsWithGroup, nil,
		),
		centralSwitch: prometheus.NewDesc(
			"tado_central_switch_on",
			"Central switch state (0/1)",
			labels, nil,
		),

		lastUpdateUnix: prometheus.NewDesc(
			"tado_last_update_unix",
			"Last successful state update (unix seconds)",
			labels, nil,
		),

		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tado_poll_errors_total",
			Help: "Total number of failed poll cycles",
		}, []string{mapper.LabelClass}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tado_poll_duration_seconds",
			Help:    "Time spent in a poll cycle",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		}, []string{mapper.LabelClass}),
	}
}
