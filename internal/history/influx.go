// Package history stores historical device samples in InfluxDB.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"tado_bridge/internal/config"
	"tado_bridge/internal/device"
)

// Measurement is the InfluxDB measurement samples are written to.
const Measurement = "device_history"

const defaultConnectTimeout = 10 * time.Second

var (
	// ErrDisabled indicates history is disabled in configuration.
	ErrDisabled = errors.New("history: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("history: connection failed")
)

// InfluxSink appends device samples to InfluxDB. Writes are non-blocking
// and batched by the client library.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Connect creates the sink and verifies the server is reachable.
func Connect(cfg config.InfluxDBConfig, logger *slog.Logger) (*InfluxSink, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10000
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	s := &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
	}
	go s.handleWriteErrors(s.writeAPI.Errors())

	logger.Info("History store connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return s, nil
}

func (s *InfluxSink) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		s.logger.Error("History write failed", "error", err)
	}
}

// AppendSample implements device.SampleSink.
func (s *InfluxSink) AppendSample(d *device.Device, ts time.Time, fields map[string]float64) {
	if len(fields) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.writeAPI.WritePoint(samplePoint(d, ts, fields))
}

// Close flushes pending samples and closes the client.
func (s *InfluxSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.writeAPI.Flush()
	s.client.Close()
	return nil
}

func samplePoint(d *device.Device, ts time.Time, fields map[string]float64) *write.Point {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return write.NewPoint(
		Measurement,
		map[string]string{
			"device": d.Name,
			"kind":   string(d.Kind),
		},
		values,
		ts,
	)
}
