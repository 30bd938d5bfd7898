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

package vmm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"libvirt.org/go/libvirt"
	"libvirt.org/go/libvirtxml"

	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/inventory"
)

var (
	errGetDomainXML       = errors.New("failed to get domain XML")
	errUnmarshalDomainXML = errors.New("failed to unmarshal domain XML")
	errParseDomainUUID    = errors.New("failed to parse domain UUID")
)

// Domain is a libvirt domain whose name and run state were read once, when it was listed.
type Domain struct {
	dom    libvirt.Domain
	name   string
	active bool

	queryTimeout time.Duration
	calls        *inflight
}

var (
	_ inventory.Domain    = (*Domain)(nil)
	_ inventory.Describer = (*Domain)(nil)
)

// Name implements inventory.Domain.
func (d *Domain) Name() string {
	return d.name
}

// Active implements inventory.Domain.
func (d *Domain) Active() bool {
	return d.active
}

// InterfaceAddresses asks the guest agent for the addresses of the domain. DHCP leases and the ARP table are not
// consulted.
//
// Errors are joined with inventory.ErrAddressResolution.
func (d *Domain) InterfaceAddresses(ctx context.Context) ([]inventory.Interface, error) {
	ifaces, err := call(ctx, d.calls, d.queryTimeout, func() ([]libvirt.DomainInterface, error) {
		return d.dom.ListAllInterfaceAddresses(libvirt.DOMAIN_INTERFACE_ADDRESSES_SRC_AGENT)
	})
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("domain=%s", d.name), inventory.ErrAddressResolution)
	}

	return toInterfaces(ifaces), nil
}

// Details implements inventory.Describer using the live domain XML.
func (d *Domain) Details(ctx context.Context) (inventory.Details, error) {
	xmlDesc, err := call(ctx, d.calls, d.queryTimeout, func() (string, error) {
		return d.dom.GetXMLDesc(0)
	})
	if err != nil {
		return inventory.Details{}, errors.Join(err, fmt.Errorf("domain=%s", d.name), errGetDomainXML)
	}

	return parseDomainXML(xmlDesc)
}

func toInterfaces(ifaces []libvirt.DomainInterface) []inventory.Interface {
	out := make([]inventory.Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, addr := range iface.Addrs {
			addrs = append(addrs, addr.Addr)
		}
		out = append(out, inventory.Interface{Name: iface.Name, Addrs: addrs})
	}
	return out
}

// parseDomainXML extracts inventory.Details from a libvirt domain definition.
func parseDomainXML(xmlDesc string) (inventory.Details, error) {
	var domain libvirtxml.Domain
	if err := domain.Unmarshal(xmlDesc); err != nil {
		return inventory.Details{}, errors.Join(err, errUnmarshalDomainXML)
	}

	var details inventory.Details

	if domain.UUID != "" {
		id, err := uuid.Parse(domain.UUID)
		if err != nil {
			return inventory.Details{}, errors.Join(err, fmt.Errorf("uuid=%s", domain.UUID), errParseDomainUUID)
		}
		details.UUID = id.String()
	}

	if domain.VCPU != nil {
		details.VCPUs = domain.VCPU.Value
	}

	if domain.Memory != nil {
		details.MemoryMiB = toMiB(uint64(domain.Memory.Value), domain.Memory.Unit)
	}

	if domain.Devices != nil {
		for _, iface := range domain.Devices.Interfaces {
			if iface.MAC != nil && iface.MAC.Address != "" {
				details.MACs = append(details.MACs, strings.ToLower(iface.MAC.Address))
			}
		}
	}

	return details, nil
}

// toMiB converts a libvirt memory value to MiB. libvirt defaults to KiB when no unit is given.
func toMiB(value uint64, unit string) uint64 {
	switch unit {
	case "b", "bytes":
		return value / (1 << 20)
	case "KB":
		return value * 1000 / (1 << 20)
	case "", "k", "KiB":
		return value / (1 << 10)
	case "MB":
		return value * 1000 * 1000 / (1 << 20)
	case "M", "MiB":
		return value
	case "GB":
		return value * 1000 * 1000 * 1000 / (1 << 20)
	case "G", "GiB":
		return value << 10
	case "TB":
		return value * 1000 * 1000 * 1000 * 1000 / (1 << 20)
	case "T", "TiB":
		return value << 20
	default:
		return value / (1 << 10)
	}
}
