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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libvirt.org/go/libvirt"
	"libvirt.org/go/libvirtxml"

	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/inventory"
)

func newDomainXML(t *testing.T, mutate func(*libvirtxml.Domain)) string {
	t.Helper()

	domain := &libvirtxml.Domain{
		Type: "kvm",
		Name: "web1",
		UUID: "4DEA22B3-1D52-D8F3-2516-782E98AB3FA0",
		Memory: &libvirtxml.DomainMemory{
			Value: 2097152,
			Unit:  "KiB",
		},
		VCPU: &libvirtxml.DomainVCPU{
			Value: 2,
		},
		Devices: &libvirtxml.DomainDeviceList{
			Interfaces: []libvirtxml.DomainInterface{
				{
					MAC: &libvirtxml.DomainInterfaceMAC{Address: "52:54:00:AA:BB:CC"},
					Source: &libvirtxml.DomainInterfaceSource{
						Network: &libvirtxml.DomainInterfaceSourceNetwork{Network: "default"},
					},
				},
				{
					Source: &libvirtxml.DomainInterfaceSource{
						User: &libvirtxml.DomainInterfaceSourceUser{},
					},
				},
				{
					MAC: &libvirtxml.DomainInterfaceMAC{Address: "52:54:00:12:34:56"},
					Source: &libvirtxml.DomainInterfaceSource{
						Bridge: &libvirtxml.DomainInterfaceSourceBridge{Bridge: "br0"},
					},
				},
			},
		},
	}

	if mutate != nil {
		mutate(domain)
	}

	xmlStr, err := domain.Marshal()
	require.NoError(t, err)

	return xmlStr
}

func TestParseDomainXML(t *testing.T) {
	details, err := parseDomainXML(newDomainXML(t, nil))
	require.NoError(t, err)

	assert.Equal(t, inventory.Details{
		UUID:      "4dea22b3-1d52-d8f3-2516-782e98ab3fa0",
		VCPUs:     2,
		MemoryMiB: 2048,
		MACs:      []string{"52:54:00:aa:bb:cc", "52:54:00:12:34:56"},
	}, details)
}

func TestParseDomainXML_Minimal(t *testing.T) {
	details, err := parseDomainXML(newDomainXML(t, func(d *libvirtxml.Domain) {
		d.UUID = ""
		d.Memory = nil
		d.VCPU = nil
		d.Devices = nil
	}))
	require.NoError(t, err)

	assert.Equal(t, inventory.Details{}, details)
}

func TestParseDomainXML_Errors(t *testing.T) {
	tests := []struct {
		name        string
		xml         string
		expectedErr error
	}{
		{
			name:        "not xml",
			xml:         "definitely not xml",
			expectedErr: errUnmarshalDomainXML,
		},
		{
			name: "invalid uuid",
			xml: newDomainXML(t, func(d *libvirtxml.Domain) {
				d.UUID = "not-a-uuid"
			}),
			expectedErr: errParseDomainUUID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDomainXML(tt.xml)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expectedErr))
		})
	}
}

func TestToMiB(t *testing.T) {
	tests := []struct {
		value    uint64
		unit     string
		expected uint64
	}{
		{value: 2097152, unit: "", expected: 2048},
		{value: 2097152, unit: "KiB", expected: 2048},
		{value: 2097152, unit: "k", expected: 2048},
		{value: 512, unit: "MiB", expected: 512},
		{value: 512, unit: "M", expected: 512},
		{value: 4, unit: "GiB", expected: 4096},
		{value: 1, unit: "TiB", expected: 1048576},
		{value: 1073741824, unit: "bytes", expected: 1024},
		{value: 1048576, unit: "KB", expected: 1000},
		{value: 2, unit: "GB", expected: 1907},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			assert.Equal(t, tt.expected, toMiB(tt.value, tt.unit))
		})
	}
}

func TestToInterfaces(t *testing.T) {
	got := toInterfaces([]libvirt.DomainInterface{
		{
			Name:   "lo",
			Hwaddr: "00:00:00:00:00:00",
			Addrs: []libvirt.DomainIPAddress{
				{Addr: "127.0.0.1", Prefix: 8},
			},
		},
		{
			Name:   "eth0",
			Hwaddr: "52:54:00:aa:bb:cc",
			Addrs: []libvirt.DomainIPAddress{
				{Addr: "192.168.122.10", Prefix: 24},
				{Addr: "fe80::5054:ff:feaa:bbcc", Prefix: 64},
			},
		},
		{
			Name: "eth1",
		},
	})

	assert.Equal(t, []inventory.Interface{
		{Name: "lo", Addrs: []string{"127.0.0.1"}},
		{Name: "eth0", Addrs: []string{"192.168.122.10", "fe80::5054:ff:feaa:bbcc"}},
		{Name: "eth1", Addrs: []string{}},
	}, got)
}
