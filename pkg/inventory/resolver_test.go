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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAddresses(t *testing.T) {
	tests := []struct {
		name     string
		domain   *fakeDomain
		expected []string
		queries  int
	}{
		{
			name:     "inactive domain",
			domain:   &fakeDomain{name: "vm", ifaces: []Interface{{Name: "eth0", Addrs: []string{"10.0.0.1"}}}},
			expected: []string{},
			queries:  0,
		},
		{
			name:     "active domain without interfaces",
			domain:   &fakeDomain{name: "vm", active: true},
			expected: []string{},
			queries:  1,
		},
		{
			name: "interfaces keep query order",
			domain: &fakeDomain{name: "vm", active: true, ifaces: []Interface{
				{Name: "lo", Addrs: []string{"127.0.0.1", "::1"}},
				{Name: "eth0"},
				{Name: "eth1", Addrs: []string{"192.168.122.10"}},
			}},
			expected: []string{"127.0.0.1", "::1", "192.168.122.10"},
			queries:  1,
		},
		{
			name:     "query failure",
			domain:   &fakeDomain{name: "vm", active: true, err: errors.Join(errors.New("agent"), ErrAddressResolution)},
			expected: []string{},
			queries:  1,
		},
		{
			name:     "unclassified failure",
			domain:   &fakeDomain{name: "vm", active: true, err: errors.New("unexpected")},
			expected: []string{},
			queries:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAddresses(context.Background(), tt.domain)

			assert.NotNil(t, got)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.queries, tt.domain.queried)
		})
	}
}
