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
	"encoding/json"
	"errors"
)

// Group names emitted in every inventory document.
const (
	GroupAll        = "all"
	GroupLibvirtVMs = "libvirt_vms"
	GroupRunning    = "running"
	GroupStopped    = "stopped"

	metaKey = "_meta"
)

// ErrAddressResolution is returned by Domain.InterfaceAddresses when the underlying query cannot complete, e.g. the
// guest agent is not running or the domain is still booting.
var ErrAddressResolution = errors.New("address resolution failed")

// --------------------------------------------------- INTERFACES --------------------------------------------------- //

// Domain is a read-only snapshot of a virtual machine as seen by the hypervisor.
type Domain interface {
	// Name returns the unique name of the domain.
	Name() string
	// Active reports whether the domain was running when it was enumerated.
	Active() bool
	// InterfaceAddresses returns the interfaces and addresses reported by the in-guest agent.
	InterfaceAddresses(ctx context.Context) ([]Interface, error)
}

// Describer is implemented by domains able to report static details from their definition.
type Describer interface {
	Details(ctx context.Context) (Details, error)
}

// Interface is a guest network interface.
type Interface struct {
	Name  string
	Addrs []string
}

// Details holds information read from a domain definition.
type Details struct {
	UUID      string
	VCPUs     uint
	MemoryMiB uint64
	MACs      []string
}

// ----------------------------------------------------- DOCUMENT --------------------------------------------------- //

// HostVars are the variables attached to a single host.
type HostVars struct {
	AnsibleHost []string `json:"ansible_host"`

	LibvirtUUID      string   `json:"libvirt_uuid,omitempty"`
	LibvirtState     string   `json:"libvirt_state,omitempty"`
	LibvirtVCPUs     uint     `json:"libvirt_vcpus,omitempty"`
	LibvirtMemoryMiB uint64   `json:"libvirt_memory_mib,omitempty"`
	LibvirtMACs      []string `json:"libvirt_macs,omitempty"`
}

// Meta is the "_meta" section of a dynamic inventory.
type Meta struct {
	HostVars map[string]HostVars `json:"hostvars"`
}

// Group is a named set of hosts. Vars is only serialized when non-nil, which is the case for the "all" group.
type Group struct {
	Hosts []string
	Vars  map[string]any
}

// MarshalJSON implements json.Marshaler.
func (g Group) MarshalJSON() ([]byte, error) {
	hosts := g.Hosts
	if hosts == nil {
		hosts = []string{}
	}

	if g.Vars == nil {
		return json.Marshal(struct {
			Hosts []string `json:"hosts"`
		}{Hosts: hosts})
	}

	return json.Marshal(struct {
		Hosts []string       `json:"hosts"`
		Vars  map[string]any `json:"vars"`
	}{Hosts: hosts, Vars: g.Vars})
}

// Document is an Ansible dynamic inventory.
type Document struct {
	Meta   Meta
	Groups map[string]*Group
}

// NewDocument returns an empty inventory holding only the "all" group.
func NewDocument() *Document {
	return &Document{
		Meta: Meta{HostVars: make(map[string]HostVars)},
		Groups: map[string]*Group{
			GroupAll: {Hosts: []string{}, Vars: map[string]any{}},
		},
	}
}

// MarshalJSON implements json.Marshaler. Groups and "_meta" share the top level of the document.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Groups)+1)
	for name, g := range d.Groups {
		out[name] = g
	}

	hostvars := d.Meta.HostVars
	if hostvars == nil {
		hostvars = map[string]HostVars{}
	}
	out[metaKey] = Meta{HostVars: hostvars}

	return json.Marshal(out)
}

// Hosts returns the hosts of the named group, or nil if the group does not exist.
func (d *Document) Hosts(group string) []string {
	g, ok := d.Groups[group]
	if !ok {
		return nil
	}
	return g.Hosts
}

// HostVarsFor returns the variables of a single host. Unknown hosts yield an empty object so that the output of
// "--host <name>" is always valid.
func (d *Document) HostVarsFor(name string) any {
	hv, ok := d.Meta.HostVars[name]
	if !ok {
		return map[string]any{}
	}
	return hv
}

// addHost appends name to group, creating the group first if needed. libvirt domain names are unique, so no
// deduplication is done.
func (d *Document) addHost(group, name string) {
	g, ok := d.Groups[group]
	if !ok {
		g = &Group{Hosts: []string{}}
		d.Groups[group] = g
	}
	g.Hosts = append(g.Hosts, name)
}
