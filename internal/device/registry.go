package device

import (
	"fmt"
	"sync"
	"time"
)

// Registry is the set of devices owned by the process. Devices are added at
// startup and never removed.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Device
	bySlug map[string]*Device
	order  []*Device
}

// NewRegistry creates a registry holding devs.
func NewRegistry(devs ...*Device) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Device, len(devs)),
		bySlug: make(map[string]*Device, len(devs)),
	}
	for _, d := range devs {
		if err := r.Add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a device. Names and their slugs must be unique.
func (r *Registry) Add(d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slug := Slug(d.Name)
	if _, ok := r.byName[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDevice, d.Name)
	}
	if _, ok := r.bySlug[slug]; ok {
		return fmt.Errorf("%w: %s (slug %s)", ErrDuplicateDevice, d.Name, slug)
	}
	r.byName[d.Name] = d
	r.bySlug[slug] = d
	r.order = append(r.order, d)
	return nil
}

// GetByName returns the device with the given name.
func (r *Registry) GetByName(name string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	return d, nil
}

// GetBySlug returns the device whose name slug matches.
func (r *Registry) GetBySlug(slug string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, slug)
	}
	return d, nil
}

// ListByKind returns the devices of any of the given kinds in registration order.
func (r *Registry) ListByKind(kinds ...Kind) []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Device
	for _, d := range r.order {
		for _, k := range kinds {
			if d.Kind == k {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// All returns every device in registration order.
func (r *Registry) All() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, len(r.order))
	copy(out, r.order)
	return out
}

// Publisher receives every state a device publishes.
type Publisher interface {
	Publish(d *Device, s LocalState)
}

// Publishers fans a publication out to several publishers.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(d *Device, s LocalState) {
	for _, p := range ps {
		p.Publish(d, s)
	}
}

// SampleSink consumes historical samples. The core does not keep history itself.
type SampleSink interface {
	AppendSample(d *Device, ts time.Time, fields map[string]float64)
}

// NopSampleSink drops every sample.
type NopSampleSink struct{}

// AppendSample implements SampleSink.
func (NopSampleSink) AppendSample(*Device, time.Time, map[string]float64) {}
