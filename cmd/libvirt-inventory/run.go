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

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/go-logr/logr"

	"github.com/alexandremahdhaoui/libvirt-inventory/internal/adapter"
	"github.com/alexandremahdhaoui/libvirt-inventory/internal/k8s"
	"github.com/alexandremahdhaoui/libvirt-inventory/internal/metrics"
	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/inventory"
	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/vmm"
)

// domainSource lists the domains of a hypervisor.
type domainSource interface {
	ListDomains(ctx context.Context) ([]inventory.Domain, error)
	Close() error
}

type (
	connectFunc   func(ctx context.Context, config *Config, log logr.Logger) (domainSource, error)
	publisherFunc func(config *Config) (adapter.Inventory, error)
)

// app renders the inventory of a single run.
type app struct {
	config *Config
	log    logr.Logger
	stdout io.Writer

	connect   connectFunc
	publisher publisherFunc
}

func newApp(config *Config, log logr.Logger, stdout io.Writer) *app {
	return &app{
		config:    config,
		log:       log,
		stdout:    stdout,
		connect:   connectLibvirt,
		publisher: configMapPublisher,
	}
}

// run writes the whole inventory, or the variables of host when host is not empty, to stdout.
//
// Failures are logged and never prevent a valid document from being written.
func (a *app) run(ctx context.Context, host string) {
	m := metrics.NewRun()

	format, err := inventory.ParseFormat(a.config.Format)
	if err != nil {
		slog.ErrorContext(ctx, "parsing output format, falling back to json", "error", err.Error())
		format = inventory.FormatJSON
	}

	domains, src := a.listDomains(ctx, m)
	if src != nil {
		defer a.close(ctx, src)
	}

	if host != "" {
		domains = named(domains, host)
	}

	doc := inventory.Build(ctx, domains,
		inventory.WithDomainDetails(a.config.domainDetails()),
		inventory.WithObserver(m),
	)

	var out any = doc
	if host != "" {
		out = doc.HostVarsFor(host)
	}

	// rendered keeps a copy of what was printed, for publishing.
	var rendered bytes.Buffer
	if err := inventory.Render(io.MultiWriter(&rendered, a.stdout), out, format); err != nil {
		slog.ErrorContext(ctx, "writing inventory", "error", err.Error())
	}

	if rendered.Len() == 0 {
		// nothing could be encoded; still emit something Ansible can parse.
		_, _ = io.WriteString(a.stdout, "{}\n")
	} else if host == "" {
		a.publish(ctx, rendered.Bytes(), format)
	}

	m.Finish()
	if err := m.WriteTextfile(a.config.Metrics.TextfilePath); err != nil {
		slog.ErrorContext(ctx, "writing metrics", "error", err.Error())
	}
}

// listDomains returns the domains of the hypervisor, or no domain if it cannot be reached. The returned source must
// be closed once the domains are no longer used; it is nil when the connection failed.
func (a *app) listDomains(ctx context.Context, m *metrics.Run) ([]inventory.Domain, domainSource) {
	src, err := a.connect(ctx, a.config, a.log)
	if err != nil {
		slog.ErrorContext(ctx, "fetching libvirt VMs", "uri", a.config.URI, "error", err.Error())
		m.ObserveConnectionFailure()
		return nil, nil
	}

	domains, err := src.ListDomains(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "fetching libvirt VMs", "uri", a.config.URI, "error", err.Error())
		m.ObserveConnectionFailure()
		return nil, src
	}

	slog.DebugContext(ctx, "listed libvirt VMs", "uri", a.config.URI, "count", len(domains))

	return domains, src
}

// named keeps the domains called name, so that "--host" only queries that domain.
func named(domains []inventory.Domain, name string) []inventory.Domain {
	var out []inventory.Domain
	for _, d := range domains {
		if d.Name() == name {
			out = append(out, d)
		}
	}
	return out
}

func (a *app) close(ctx context.Context, src domainSource) {
	if err := src.Close(); err != nil {
		slog.WarnContext(ctx, "closing libvirt connection", "error", err.Error())
	}
}

func (a *app) publish(ctx context.Context, data []byte, format inventory.Format) {
	if !a.config.ConfigMap.Enabled {
		return
	}

	pub, err := a.publisher(a.config)
	if err != nil {
		slog.ErrorContext(ctx, "creating kube client", "error", err.Error())
		return
	}

	if err := pub.Publish(ctx, data, format); err != nil {
		slog.ErrorContext(ctx, "publishing inventory", "error", err.Error())
		return
	}

	slog.InfoContext(ctx, "published inventory",
		"namespace", a.config.ConfigMap.Namespace,
		"name", a.config.ConfigMap.Name)
}

// ------------------------------------------------- Libvirt -------------------------------------------------------- //

type libvirtSource struct {
	vmm *vmm.VMM
}

func connectLibvirt(ctx context.Context, config *Config, log logr.Logger) (domainSource, error) {
	v, err := vmm.New(ctx,
		vmm.WithURI(config.URI),
		vmm.WithConnectTimeout(config.connectTimeout()),
		vmm.WithQueryTimeout(config.queryTimeout()),
		vmm.WithLogger(log.WithName("vmm")),
	)
	if err != nil {
		return nil, err
	}

	return &libvirtSource{vmm: v}, nil
}

func (s *libvirtSource) ListDomains(ctx context.Context) ([]inventory.Domain, error) {
	domains, err := s.vmm.ListDomains(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]inventory.Domain, 0, len(domains))
	for _, d := range domains {
		out = append(out, d)
	}

	return out, nil
}

func (s *libvirtSource) Close() error {
	return s.vmm.Close()
}

// ------------------------------------------------- ConfigMap ------------------------------------------------------ //

func configMapPublisher(config *Config) (adapter.Inventory, error) {
	restConfig, err := k8s.NewKubeRestConfig(config.ConfigMap.KubeconfigPath)
	if err != nil {
		return nil, err
	}

	cl, err := k8s.NewKubeClient(restConfig)
	if err != nil {
		return nil, err
	}

	return adapter.NewInventoryConfigMap(cl, config.ConfigMap.Namespace, config.ConfigMap.Name), nil
}
