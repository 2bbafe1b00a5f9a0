// Package collector exposes the device registry as Prometheus metrics.
package collector

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tado_bridge/internal/device"
	"tado_bridge/internal/mapper"
)

var modes = []device.Mode{device.Off, device.Heat, device.Cool, device.Auto}

// BridgeCollector implements prometheus.Collector over the device registry.
// Collect reads the last known state and never calls the remote API.
type BridgeCollector struct {
	registry *device.Registry
	logger   *slog.Logger
	metrics  *MetricSet
}

// NewBridgeCollector creates a new collector.
func NewBridgeCollector(registry *device.Registry, logger *slog.Logger) *BridgeCollector {
	return &BridgeCollector{
		registry: registry,
		logger:   logger,
		metrics:  newMetricSet(),
	}
}

// ObservePoll records the outcome of a poll cycle.
func (c *BridgeCollector) ObservePoll(class string, took time.Duration, err error) {
	c.metrics.pollDuration.WithLabelValues(class).Observe(took.Seconds())
	if err != nil {
		c.metrics.pollErrors.WithLabelValues(class).Inc()
	}
}

// Describe implements prometheus.Collector.
func (c *BridgeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.metrics.currentTemp
	ch <- c.metrics.targetTemp
	ch <- c.metrics.humidity
	ch <- c.metrics.targetState
	ch <- c.metrics.currentState
	ch <- c.metrics.delayActive

	ch <- c.metrics.batteryLevel
	ch <- c.metrics.batteryLow

	ch <- c.metrics.windowOpen
	ch <- c.metrics.windowDuration
	ch <- c.metrics.solarIntensity
	ch <- c.metrics.occupied
	ch <- c.metrics.pressure

	ch <- c.metrics.centralCount
	ch <- c.metrics.centralSwitch

	ch <- c.metrics.lastUpdateUnix

	c.metrics.pollErrors.Describe(ch)
	c.metrics.pollDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *BridgeCollector) Collect(ch chan<- prometheus.Metric) {
	devs := c.registry.All()
	c.logger.Debug("Collecting device metrics", "devices", len(devs))

	for _, d := range devs {
		s := d.State()
		labels := []string{d.Name, string(d.Kind)}

		switch {
		case d.Kind.IsThermostat():
			c.emitThermostatMetrics(ch, labels, d.Unit, s)
			c.emitBatteryMetrics(ch, labels, s)
		case d.Kind == device.KindCentral:
			c.emitCentralMetrics(ch, labels, s)
		case d.Kind == device.KindExternalSensor:
			c.emitClimateMetrics(ch, labels, d.Unit, s)
			c.emitBatteryMetrics(ch, labels, s)
		case d.Kind == device.KindWeather:
			c.emitClimateMetrics(ch, labels, d.Unit, s)
			if s.Pressure > 0 {
				ch <- prometheus.MustNewConstMetric(c.metrics.pressure, prometheus.GaugeValue, s.Pressure, labels...)
			}
		case d.Kind == device.KindWindow:
			ch <- prometheus.MustNewConstMetric(c.metrics.windowOpen, prometheus.GaugeValue, boolValue(s.WindowOpen), labels...)
			ch <- prometheus.MustNewConstMetric(c.metrics.windowDuration, prometheus.GaugeValue, float64(s.WindowDuration), labels...)
		case d.Kind == device.KindSolar:
			ch <- prometheus.MustNewConstMetric(c.metrics.solarIntensity, prometheus.GaugeValue, s.SolarBrightness, labels...)
		case d.Kind == device.KindOccupancy:
			ch <- prometheus.MustNewConstMetric(c.metrics.occupied, prometheus.GaugeValue, boolValue(s.Occupied), labels...)
		}

		if !s.UpdatedAt.IsZero() {
			ch <- prometheus.MustNewConstMetric(c.metrics.lastUpdateUnix, prometheus.GaugeValue, float64(s.UpdatedAt.Unix()), labels...)
		}
	}

	c.metrics.pollErrors.Collect(ch)
	c.metrics.pollDuration.Collect(ch)
}

// emitThermostatMetrics emits temperatures and the one-hot heating states.
func (c *BridgeCollector) emitThermostatMetrics(ch chan<- prometheus.Metric, labels []string, unit device.Unit, s device.LocalState) {
	withUnit := append(labels[:len(labels):len(labels)], unit.String())
	ch <- prometheus.MustNewConstMetric(c.metrics.currentTemp, prometheus.GaugeValue, s.CurrentTemperature, withUnit...)
	ch <- prometheus.MustNewConstMetric(c.metrics.targetTemp, prometheus.GaugeValue, s.TargetTemperature, withUnit...)
	ch <- prometheus.MustNewConstMetric(c.metrics.humidity, prometheus.GaugeValue, s.Humidity, labels...)
	ch <- prometheus.MustNewConstMetric(c.metrics.delayActive, prometheus.GaugeValue, boolValue(s.DelayActive), labels...)

	for _, m := range modes {
		withMode := append(labels[:len(labels):len(labels)], m.String())
		ch <- prometheus.MustNewConstMetric(c.metrics.targetState, prometheus.GaugeValue, boolValue(s.TargetState == m), withMode...)
		ch <- prometheus.MustNewConstMetric(c.metrics.currentState, prometheus.GaugeValue, boolValue(s.CurrentState == m), withMode...)
	}
}

// emitClimateMetrics emits temperature and humidity of plain sensors.
func (c *BridgeCollector) emitClimateMetrics(ch chan<- prometheus.Metric, labels []string, unit device.Unit, s device.LocalState) {
	withUnit := append(labels[:len(labels):len(labels)], unit.String())
	ch <- prometheus.MustNewConstMetric(c.metrics.currentTemp, prometheus.GaugeValue, s.CurrentTemperature, withUnit...)
	ch <- prometheus.MustNewConstMetric(c.metrics.humidity, prometheus.GaugeValue, s.Humidity, labels...)
}

func (c *BridgeCollector) emitBatteryMetrics(ch chan<- prometheus.Metric, labels []string, s device.LocalState) {
	ch <- prometheus.MustNewConstMetric(c.metrics.batteryLevel, prometheus.GaugeValue, float64(s.BatteryLevel), labels...)
	ch <- prometheus.MustNewConstMetric(c.metrics.batteryLow, prometheus.GaugeValue, boolValue(s.BatteryLow), labels...)
}

// emitCentralMetrics emits the aggregate counts of the central switch.
func (c *BridgeCollector) emitCentralMetrics(ch chan<- prometheus.Metric, labels []string, s device.LocalState) {
	if s.Aggregate == nil {
		return
	}
	counts := map[string]int{
		mapper.GroupAuto:   s.Aggregate.CountAuto,
		mapper.GroupManual: s.Aggregate.CountManual,
		mapper.GroupOff:    s.Aggregate.CountOff,
	}
	for group, n := range counts {
		withGroup := append(labels[:len(labels):len(labels)], group)
		ch <- prometheus.MustNewConstMetric(c.metrics.centralCount, prometheus.GaugeValue, float64(n), withGroup...)
	}
	ch <- prometheus.MustNewConstMetric(c.metrics.centralSwitch, prometheus.GaugeValue, boolValue(s.Aggregate.MainSwitchOn), labels...)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
