// Copyright 2024 Alexandre Mahdhaoui
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics records Prometheus metrics about a single inventory run.
//
// The program exits once the inventory is printed, so metrics are not served over HTTP. They can be written to a
// file picked up by the node-exporter textfile collector instead.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/inventory"
)

const namespace = "libvirt_inventory"

var errWriteTextfile = errors.New("writing metrics textfile")

// Run holds the collectors of one inventory run.
type Run struct {
	registry *prometheus.Registry

	domains            *prometheus.GaugeVec
	resolutionFailures prometheus.Counter
	connectionFailures prometheus.Counter
	duration           prometheus.Gauge
	timestamp          prometheus.Gauge

	start time.Time
	now   func() time.Time
}

var _ inventory.Observer = (*Run)(nil)

// NewRun creates the collectors and registers them on a dedicated registry.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		domains: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "domains",
			Help:      "Number of libvirt domains found, by state.",
		}, []string{"state"}),
		resolutionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_resolution_failures_total",
			Help:      "Number of domains whose guest agent addresses could not be resolved.",
		}),
		connectionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_failures_total",
			Help:      "Number of failures to connect to libvirt or to list its domains.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last inventory run.",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last inventory run finished.",
		}),
		now: time.Now,
	}

	r.registry.MustRegister(r.domains, r.resolutionFailures, r.connectionFailures, r.duration, r.timestamp)

	// both states are always exported, so that a fleet going to zero is visible.
	r.domains.WithLabelValues("running")
	r.domains.WithLabelValues("stopped")

	r.start = r.now()

	return r
}

// ObserveDomain implements inventory.Observer.
func (r *Run) ObserveDomain(_ string, active bool) {
	state := "stopped"
	if active {
		state = "running"
	}
	r.domains.WithLabelValues(state).Inc()
}

// ObserveResolutionFailure implements inventory.Observer.
func (r *Run) ObserveResolutionFailure(string, error) {
	r.resolutionFailures.Inc()
}

// ObserveConnectionFailure records a failure to reach the hypervisor.
func (r *Run) ObserveConnectionFailure() {
	r.connectionFailures.Inc()
}

// Finish sets the duration and timestamp gauges.
func (r *Run) Finish() {
	end := r.now()
	r.duration.Set(end.Sub(r.start).Seconds())
	r.timestamp.Set(float64(end.UnixNano()) / 1e9)
}

// WriteTextfile writes the metrics in the text exposition format. An empty path is a no-op.
func (r *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Join(err, fmt.Errorf("path=%s", path), errWriteTextfile)
	}

	return nil
}
