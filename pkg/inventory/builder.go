/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package inventory

import (
	"context"
	"log/slog"
)

const (
	stateRunning = "running"
	stateStopped = "stopped"
)

// Observer is notified while an inventory is being built.
type Observer interface {
	// ObserveDomain is called once per domain.
	ObserveDomain(name string, active bool)
	// ObserveResolutionFailure is called when the addresses of a domain could not be resolved.
	ObserveResolutionFailure(name string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveDomain(string, bool)             {}
func (nopObserver) ObserveResolutionFailure(string, error) {}

type buildOptions struct {
	details  bool
	observer Observer
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithDomainDetails adds the libvirt_* host variables for domains implementing Describer.
func WithDomainDetails(enabled bool) BuildOption {
	return func(o *buildOptions) {
		o.details = enabled
	}
}

// WithObserver sets an Observer notified of each domain and each resolution failure.
func WithObserver(obs Observer) BuildOption {
	return func(o *buildOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Build groups domains into a dynamic inventory.
//
// Every domain is a member of "libvirt_vms" and "all", and of either "running" or "stopped". Host lists keep the
// order of domains. Build never fails: address resolution errors leave the host with an empty "ansible_host".
func Build(ctx context.Context, domains []Domain, opts ...BuildOption) *Document {
	o := buildOptions{observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}

	doc := NewDocument()

	for _, d := range domains {
		name := d.Name()
		active := d.Active()
		o.observer.ObserveDomain(name, active)

		for _, group := range membership(active) {
			doc.addHost(group, name)
		}

		hv := HostVars{AnsibleHost: resolveAddresses(ctx, d, o.observer)}
		if o.details {
			addDetails(ctx, d, active, &hv)
		}

		doc.Meta.HostVars[name] = hv
	}

	return doc
}

func membership(active bool) []string {
	if active {
		return []string{GroupLibvirtVMs, GroupRunning, GroupAll}
	}
	return []string{GroupLibvirtVMs, GroupStopped, GroupAll}
}

func addDetails(ctx context.Context, d Domain, active bool, hv *HostVars) {
	hv.LibvirtState = stateStopped
	if active {
		hv.LibvirtState = stateRunning
	}

	describer, ok := d.(Describer)
	if !ok {
		return
	}

	details, err := describer.Details(ctx)
	if err != nil {
		slog.WarnContext(ctx, "reading domain details", "domain", d.Name(), "error", err.Error())
		return
	}

	hv.LibvirtUUID = details.UUID
	hv.LibvirtVCPUs = details.VCPUs
	hv.LibvirtMemoryMiB = details.MemoryMiB
	hv.LibvirtMACs = details.MACs
}
